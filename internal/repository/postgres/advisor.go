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

const advisorColumns = `
	id, name, email, status, module_number, assigned_count, created_at, updated_at
`

func (r *advisorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Advisor, error) {
	query := `SELECT ` + advisorColumns + ` FROM advisors WHERE id = $1`

	var advisor model.Advisor
	err := r.db.GetContext(ctx, &advisor, query, id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("advisor", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get advisor: %w", err)
	}
	return &advisor, nil
}

func (r *advisorRepository) List(ctx context.Context) ([]*model.Advisor, error) {
	query := `SELECT ` + advisorColumns + ` FROM advisors ORDER BY module_number ASC`

	var advisors []*model.Advisor
	if err := r.db.SelectContext(ctx, &advisors, query); err != nil {
		return nil, fmt.Errorf("failed to list advisors: %w", err)
	}
	return advisors, nil
}

func (r *advisorRepository) ListByStatus(ctx context.Context, status model.AdvisorStatus) ([]*model.Advisor, error) {
	query := `SELECT ` + advisorColumns + ` FROM advisors WHERE status = $1 ORDER BY module_number ASC`

	var advisors []*model.Advisor
	if err := r.db.SelectContext(ctx, &advisors, query, status); err != nil {
		return nil, fmt.Errorf("failed to list advisors by status: %w", err)
	}
	return advisors, nil
}

// Ordering must be deterministic so repeated reconciliation passes over
// an unchanged snapshot pick the same advisor.
func (r *advisorRepository) ListAvailableOrderedByWorkload(ctx context.Context) ([]*model.Advisor, error) {
	query := `
		SELECT ` + advisorColumns + `
		FROM advisors
		WHERE status = $1
		ORDER BY assigned_count ASC, id ASC
	`
	var advisors []*model.Advisor
	if err := r.db.SelectContext(ctx, &advisors, query, model.AdvisorStatusAvailable); err != nil {
		return nil, fmt.Errorf("failed to list available advisors: %w", err)
	}
	return advisors, nil
}

// IncrementAssigned couples the count bump and the available->busy flip
// in one statement, guarded by the state observed at read time.
func (r *advisorRepository) IncrementAssigned(ctx context.Context, id uuid.UUID, expectedCount int) error {
	query := `
		UPDATE advisors
		SET assigned_count = assigned_count + 1,
			status = $4,
			updated_at = $3
		WHERE id = $1 AND status = $5 AND assigned_count = $2
	`
	result, err := r.db.ExecContext(ctx, query,
		id,
		expectedCount,
		time.Now(),
		model.AdvisorStatusBusy,
		model.AdvisorStatusAvailable,
	)
	if err != nil {
		return fmt.Errorf("failed to increment advisor workload: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errors.Conflict("advisor workload changed")
	}
	return nil
}

// DecrementAssigned flips busy advisors back to available exactly when
// their last ticket is released. Offline advisors keep their status.
func (r *advisorRepository) DecrementAssigned(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE advisors
		SET assigned_count = assigned_count - 1,
			status = CASE
				WHEN assigned_count - 1 = 0 AND status = $3 THEN $4
				ELSE status
			END,
			updated_at = $2
		WHERE id = $1 AND assigned_count > 0
	`
	_, err := r.db.ExecContext(ctx, query,
		id,
		time.Now(),
		model.AdvisorStatusBusy,
		model.AdvisorStatusAvailable,
	)
	if err != nil {
		return fmt.Errorf("failed to decrement advisor workload: %w", err)
	}
	return nil
}

func (r *advisorRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AdvisorStatus) error {
	query := `UPDATE advisors SET status = $2, updated_at = $3 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update advisor status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errors.NotFound("advisor", nil)
	}
	return nil
}
