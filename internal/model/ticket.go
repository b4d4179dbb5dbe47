package model

import (
	"time"

	"github.com/google/uuid"
)

type TicketStatus string

const (
	TicketStatusWaiting   TicketStatus = "waiting"
	TicketStatusImminent  TicketStatus = "imminent"
	TicketStatusServing   TicketStatus = "serving"
	TicketStatusCompleted TicketStatus = "completed"
	TicketStatusCancelled TicketStatus = "cancelled"
	TicketStatusNoShow    TicketStatus = "no_show"
)

// ActiveStatuses are the statuses of tickets still holding a place in a queue.
func ActiveStatuses() []TicketStatus {
	return []TicketStatus{TicketStatusWaiting, TicketStatusImminent}
}

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusWaiting, TicketStatusImminent, TicketStatusServing,
		TicketStatusCompleted, TicketStatusCancelled, TicketStatusNoShow:
		return true
	}
	return false
}

// IsTerminal reports whether a ticket in this status can never change again.
func (s TicketStatus) IsTerminal() bool {
	switch s {
	case TicketStatusCompleted, TicketStatusCancelled, TicketStatusNoShow:
		return true
	}
	return false
}

var ticketTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusWaiting:  {TicketStatusImminent, TicketStatusServing, TicketStatusCompleted, TicketStatusCancelled, TicketStatusNoShow},
	TicketStatusImminent: {TicketStatusServing, TicketStatusCompleted, TicketStatusCancelled},
	TicketStatusServing:  {TicketStatusCompleted, TicketStatusCancelled},
}

// CanTransition reports whether moving from s to target is a legal
// lifecycle transition. Terminal states allow nothing.
func (s TicketStatus) CanTransition(target TicketStatus) bool {
	for _, t := range ticketTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

type Ticket struct {
	ID                   uuid.UUID    `db:"id" json:"id"`
	ReferenceCode        uuid.UUID    `db:"reference_code" json:"reference_code"`
	Number               string       `db:"number" json:"number"`
	NationalID           string       `db:"national_id" json:"national_id"`
	Phone                string       `db:"phone" json:"phone,omitempty"`
	BranchOffice         string       `db:"branch_office" json:"branch_office"`
	QueueType            QueueType    `db:"queue_type" json:"queue_type"`
	Status               TicketStatus `db:"status" json:"status"`
	PositionInQueue      int          `db:"position_in_queue" json:"position_in_queue"`
	EstimatedWaitMinutes int          `db:"estimated_wait_minutes" json:"estimated_wait_minutes"`
	AssignedAdvisorID    *uuid.UUID   `db:"assigned_advisor_id" json:"assigned_advisor_id,omitempty"`
	AssignedModule       *int         `db:"assigned_module" json:"assigned_module,omitempty"`
	CreatedAt            time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time    `db:"updated_at" json:"updated_at"`
}

type CreateTicketRequest struct {
	NationalID   string `json:"national_id" binding:"required,min=7,max=12"`
	Phone        string `json:"phone" binding:"omitempty,e164"`
	BranchOffice string `json:"branch_office" binding:"required,max=128"`
	QueueType    string `json:"queue_type" binding:"required,queuetype"`
}
