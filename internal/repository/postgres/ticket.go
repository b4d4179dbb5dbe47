package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/queuedesk/ticketero/internal/model"
	"github.com/queuedesk/ticketero/pkg/errors"
)

const ticketColumns = `
	id, reference_code, number, national_id, phone, branch_office,
	queue_type, status, position_in_queue, estimated_wait_minutes,
	assigned_advisor_id, assigned_module, created_at, updated_at
`

func (r *ticketRepository) Create(ctx context.Context, ticket *model.Ticket) error {
	query := `
		INSERT INTO tickets (
			id, reference_code, number, national_id, phone, branch_office,
			queue_type, status, position_in_queue, estimated_wait_minutes,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		ticket.ID,
		ticket.ReferenceCode,
		ticket.Number,
		ticket.NationalID,
		ticket.Phone,
		ticket.BranchOffice,
		ticket.QueueType,
		ticket.Status,
		ticket.PositionInQueue,
		ticket.EstimatedWaitMinutes,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	return nil
}

func (r *ticketRepository) Get(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`

	var ticket model.Ticket
	err := r.db.GetContext(ctx, &ticket, query, id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("ticket", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return &ticket, nil
}

func (r *ticketRepository) GetByReferenceCode(ctx context.Context, code uuid.UUID) (*model.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE reference_code = $1`

	var ticket model.Ticket
	err := r.db.GetContext(ctx, &ticket, query, code)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("ticket", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket by reference code: %w", err)
	}
	return &ticket, nil
}

func (r *ticketRepository) GetByNumber(ctx context.Context, number string) (*model.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE number = $1`

	var ticket model.Ticket
	err := r.db.GetContext(ctx, &ticket, query, number)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("ticket", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket by number: %w", err)
	}
	return &ticket, nil
}

func (r *ticketRepository) ListByStatus(ctx context.Context, status model.TicketStatus) ([]*model.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE status = $1
		ORDER BY created_at ASC
	`
	var tickets []*model.Ticket
	if err := r.db.SelectContext(ctx, &tickets, query, status); err != nil {
		return nil, fmt.Errorf("failed to list tickets by status: %w", err)
	}
	return tickets, nil
}

func (r *ticketRepository) ListActiveByQueueType(ctx context.Context, queueType model.QueueType, statuses []model.TicketStatus) ([]*model.Ticket, error) {
	query, args, err := sqlx.In(`
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE queue_type = ? AND status IN (?)
		ORDER BY created_at ASC
	`, queueType, statuses)
	if err != nil {
		return nil, fmt.Errorf("failed to build active tickets query: %w", err)
	}

	var tickets []*model.Ticket
	if err := r.db.SelectContext(ctx, &tickets, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list active tickets: %w", err)
	}
	return tickets, nil
}

// NextSequence relies on the ticket_counters row being the single point
// of truth for per-queue numbering, so concurrent creations can never
// draw the same number.
func (r *ticketRepository) NextSequence(ctx context.Context, queueType model.QueueType) (int64, error) {
	query := `
		INSERT INTO ticket_counters (queue_type, value)
		VALUES ($1, 1)
		ON CONFLICT (queue_type)
		DO UPDATE SET value = ticket_counters.value + 1
		RETURNING value
	`
	var seq int64
	if err := r.db.GetContext(ctx, &seq, query, queueType); err != nil {
		return 0, fmt.Errorf("failed to advance ticket counter: %w", err)
	}
	return seq, nil
}

func (r *ticketRepository) Assign(ctx context.Context, ticketID, advisorID uuid.UUID, moduleNumber int) error {
	query := `
		UPDATE tickets
		SET status = $2, assigned_advisor_id = $3, assigned_module = $4,
			position_in_queue = 0, estimated_wait_minutes = 0, updated_at = $5
		WHERE id = $1 AND status IN ($6, $7)
	`
	result, err := r.db.ExecContext(ctx, query,
		ticketID,
		model.TicketStatusServing,
		advisorID,
		moduleNumber,
		time.Now(),
		model.TicketStatusWaiting,
		model.TicketStatusImminent,
	)
	if err != nil {
		return fmt.Errorf("failed to assign ticket: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errors.Conflict("ticket no longer assignable")
	}
	return nil
}

func (r *ticketRepository) Promote(ctx context.Context, ticketID uuid.UUID) error {
	query := `
		UPDATE tickets
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query,
		ticketID,
		model.TicketStatusImminent,
		time.Now(),
		model.TicketStatusWaiting,
	)
	if err != nil {
		return fmt.Errorf("failed to promote ticket: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errors.Conflict("ticket no longer waiting")
	}
	return nil
}

func (r *ticketRepository) SetStatus(ctx context.Context, ticketID uuid.UUID, status model.TicketStatus) error {
	query := `
		UPDATE tickets
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status NOT IN ($4, $5, $6)
	`
	result, err := r.db.ExecContext(ctx, query,
		ticketID,
		status,
		time.Now(),
		model.TicketStatusCompleted,
		model.TicketStatusCancelled,
		model.TicketStatusNoShow,
	)
	if err != nil {
		return fmt.Errorf("failed to update ticket status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errors.Conflict("ticket already terminal")
	}
	return nil
}

func (r *ticketRepository) UpdatePosition(ctx context.Context, ticketID uuid.UUID, position, estimatedWaitMinutes int) error {
	query := `
		UPDATE tickets
		SET position_in_queue = $2, estimated_wait_minutes = $3, updated_at = $4
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, ticketID, position, estimatedWaitMinutes, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update ticket position: %w", err)
	}
	return nil
}

func (r *ticketRepository) CountByStatus(ctx context.Context, status model.TicketStatus) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM tickets WHERE status = $1`, status)
	if err != nil {
		return 0, fmt.Errorf("failed to count tickets by status: %w", err)
	}
	return count, nil
}

func (r *ticketRepository) CountByQueueType(ctx context.Context, queueType model.QueueType) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM tickets WHERE queue_type = $1`, queueType)
	if err != nil {
		return 0, fmt.Errorf("failed to count tickets by queue type: %w", err)
	}
	return count, nil
}

func (r *ticketRepository) CountCreatedToday(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM tickets WHERE created_at::date = CURRENT_DATE`)
	if err != nil {
		return 0, fmt.Errorf("failed to count today's tickets: %w", err)
	}
	return count, nil
}

func (r *ticketRepository) AverageWaitMinutesToday(ctx context.Context) (float64, error) {
	query := `
		SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (updated_at - created_at)) / 60), 0)
		FROM tickets
		WHERE status = $1 AND created_at::date = CURRENT_DATE
	`
	var avg float64
	if err := r.db.GetContext(ctx, &avg, query, model.TicketStatusCompleted); err != nil {
		return 0, fmt.Errorf("failed to compute average wait: %w", err)
	}
	return avg, nil
}
