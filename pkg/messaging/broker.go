package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Event is the envelope published for every ticket lifecycle change.
// Display boards and kiosks subscribe to these to refresh in near
// real time.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Lifecycle event types
const (
	EventTicketCreated   = "ticket.created"
	EventTicketAssigned  = "ticket.assigned"
	EventTicketCompleted = "ticket.completed"
	EventTicketCancelled = "ticket.cancelled"
	EventTicketNoShow    = "ticket.no_show"
)
