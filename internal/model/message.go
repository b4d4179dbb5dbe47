package model

import (
	"time"

	"github.com/google/uuid"
)

type MessageStatus string

const (
	MessageStatusPending MessageStatus = "pending"
	MessageStatusSent    MessageStatus = "sent"
	MessageStatusFailed  MessageStatus = "failed"
)

type MessageTemplate string

const (
	TemplateTicketCreated MessageTemplate = "ticket_created"
	TemplateUpcomingTurn  MessageTemplate = "upcoming_turn"
	TemplateNowServing    MessageTemplate = "now_serving"
)

type Message struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	TicketID    uuid.UUID       `db:"ticket_id" json:"ticket_id"`
	Template    MessageTemplate `db:"template" json:"template"`
	ScheduledAt time.Time       `db:"scheduled_at" json:"scheduled_at"`
	Status      MessageStatus   `db:"status" json:"status"`
	Attempts    int             `db:"attempts" json:"attempts"`
	SentAt      *time.Time      `db:"sent_at" json:"sent_at,omitempty"`
	ExternalID  *string         `db:"external_id" json:"external_id,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}
