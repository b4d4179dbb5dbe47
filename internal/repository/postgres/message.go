package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/queuedesk/ticketero/internal/model"
	"github.com/queuedesk/ticketero/pkg/errors"
)

const messageColumns = `
	id, ticket_id, template, scheduled_at, status, attempts,
	sent_at, external_id, created_at, updated_at
`

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	query := `
		INSERT INTO messages (
			id, ticket_id, template, scheduled_at, status, attempts,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	now := time.Now()
	msg.CreatedAt = now
	msg.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		msg.ID,
		msg.TicketID,
		msg.Template,
		msg.ScheduledAt,
		msg.Status,
		msg.Attempts,
		msg.CreatedAt,
		msg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *messageRepository) Get(ctx context.Context, id uuid.UUID) (*model.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`

	var msg model.Message
	err := r.db.GetContext(ctx, &msg, query, id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("message", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &msg, nil
}

func (r *messageRepository) ListDueForSend(ctx context.Context, now time.Time, limit int) ([]*model.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE status = $1 AND scheduled_at <= $2
		ORDER BY scheduled_at ASC
		LIMIT $3
	`
	var msgs []*model.Message
	if err := r.db.SelectContext(ctx, &msgs, query, model.MessageStatusPending, now, limit); err != nil {
		return nil, fmt.Errorf("failed to list due messages: %w", err)
	}
	return msgs, nil
}

func (r *messageRepository) ListFailedRetryable(ctx context.Context, maxAttempts int, now time.Time, limit int) ([]*model.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE status = $1 AND attempts < $2 AND scheduled_at <= $3
		ORDER BY scheduled_at ASC
		LIMIT $4
	`
	var msgs []*model.Message
	if err := r.db.SelectContext(ctx, &msgs, query, model.MessageStatusFailed, maxAttempts, now, limit); err != nil {
		return nil, fmt.Errorf("failed to list retryable messages: %w", err)
	}
	return msgs, nil
}

// MarkSent is guarded against double delivery: a message already in
// sent status is never updated again.
func (r *messageRepository) MarkSent(ctx context.Context, id uuid.UUID, externalID string, sentAt time.Time) error {
	query := `
		UPDATE messages
		SET status = $2, external_id = $3, sent_at = $4, updated_at = $5
		WHERE id = $1 AND status != $2
	`
	result, err := r.db.ExecContext(ctx, query, id, model.MessageStatusSent, externalID, sentAt, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark message sent: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errors.Conflict("message already sent")
	}
	return nil
}

func (r *messageRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE messages
		SET status = $2, attempts = attempts + 1, updated_at = $3
		WHERE id = $1 AND status != $4
	`
	_, err := r.db.ExecContext(ctx, query, id, model.MessageStatusFailed, time.Now(), model.MessageStatusSent)
	if err != nil {
		return fmt.Errorf("failed to mark message failed: %w", err)
	}
	return nil
}
