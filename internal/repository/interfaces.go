package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/queuedesk/ticketero/internal/model"
)

// All repository interfaces in one file
type (
	// TicketRepository is the durable queue store. Every mutation is
	// atomic on a single row; conditional updates report zero affected
	// rows as a Conflict so callers can retry on the next pass.
	TicketRepository interface {
		Create(ctx context.Context, ticket *model.Ticket) error
		Get(ctx context.Context, id uuid.UUID) (*model.Ticket, error)
		GetByReferenceCode(ctx context.Context, code uuid.UUID) (*model.Ticket, error)
		GetByNumber(ctx context.Context, number string) (*model.Ticket, error)
		ListByStatus(ctx context.Context, status model.TicketStatus) ([]*model.Ticket, error)
		ListActiveByQueueType(ctx context.Context, queueType model.QueueType, statuses []model.TicketStatus) ([]*model.Ticket, error)

		// NextSequence atomically increments and returns the per-queue
		// ticket counter.
		NextSequence(ctx context.Context, queueType model.QueueType) (int64, error)

		// Assign moves a waiting or imminent ticket to serving with the
		// given advisor. Fails with Conflict if the ticket left those
		// statuses since it was read.
		Assign(ctx context.Context, ticketID, advisorID uuid.UUID, moduleNumber int) error

		// Promote flips a still-waiting ticket to imminent.
		Promote(ctx context.Context, ticketID uuid.UUID) error

		// SetStatus transitions a non-terminal ticket and clears nothing
		// else; terminal targets freeze the row for good.
		SetStatus(ctx context.Context, ticketID uuid.UUID, status model.TicketStatus) error

		// UpdatePosition refreshes recomputed position and wait estimate.
		UpdatePosition(ctx context.Context, ticketID uuid.UUID, position, estimatedWaitMinutes int) error

		CountByStatus(ctx context.Context, status model.TicketStatus) (int, error)
		CountByQueueType(ctx context.Context, queueType model.QueueType) (int, error)
		CountCreatedToday(ctx context.Context) (int, error)
		AverageWaitMinutesToday(ctx context.Context) (float64, error)
	}

	// AdvisorRepository is the advisor store.
	AdvisorRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Advisor, error)
		List(ctx context.Context) ([]*model.Advisor, error)
		ListByStatus(ctx context.Context, status model.AdvisorStatus) ([]*model.Advisor, error)

		// ListAvailableOrderedByWorkload returns available advisors by
		// ascending assigned count, ties broken by ascending id.
		ListAvailableOrderedByWorkload(ctx context.Context) ([]*model.Advisor, error)

		// IncrementAssigned adds one assignment, flipping available to
		// busy, but only if the advisor is still available with exactly
		// expectedCount assignments; otherwise Conflict.
		IncrementAssigned(ctx context.Context, id uuid.UUID, expectedCount int) error

		// DecrementAssigned releases one assignment, flipping busy back
		// to available when the count reaches zero. No-op below zero.
		DecrementAssigned(ctx context.Context, id uuid.UUID) error

		UpdateStatus(ctx context.Context, id uuid.UUID, status model.AdvisorStatus) error
	}

	// MessageRepository is the outbound message store.
	MessageRepository interface {
		Create(ctx context.Context, msg *model.Message) error
		Get(ctx context.Context, id uuid.UUID) (*model.Message, error)
		ListDueForSend(ctx context.Context, now time.Time, limit int) ([]*model.Message, error)
		ListFailedRetryable(ctx context.Context, maxAttempts int, now time.Time, limit int) ([]*model.Message, error)
		MarkSent(ctx context.Context, id uuid.UUID, externalID string, sentAt time.Time) error
		MarkFailed(ctx context.Context, id uuid.UUID) error
	}

	// UserRepository backs the admin login.
	UserRepository interface {
		GetByEmail(ctx context.Context, email string) (*model.User, error)
	}
)
