package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shift-rota-api/internal/models"
)

// ParametersRepository reads and writes the singleton parameters row.
type ParametersRepository struct {
	db *sqlx.DB
}

// NewParametersRepository constructs the repository.
func NewParametersRepository(db *sqlx.DB) *ParametersRepository {
	return &ParametersRepository{db: db}
}

// Get returns the parameters record.
func (r *ParametersRepository) Get(ctx context.Context, exec sqlx.ExtContext) (*models.Parameters, error) {
	const query = `SELECT version, availability_id, schedule_id, updated_at FROM parameters WHERE id = 1`
	var params models.Parameters
	if err := sqlx.GetContext(ctx, fallback(r.db, exec), &params, query); err != nil {
		return nil, fmt.Errorf("get parameters: %w", err)
	}
	return &params, nil
}

// SetSchedule points the current head at id. A zero id clears it.
func (r *ParametersRepository) SetSchedule(ctx context.Context, exec sqlx.ExtContext, id models.ID) error {
	const query = `UPDATE parameters SET schedule_id = $1, version = version + 1, updated_at = $2 WHERE id = 1`
	if _, err := fallback(r.db, exec).ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("set current schedule: %w", err)
	}
	return nil
}

// SetAvailability activates the given availability set. A zero id clears it.
func (r *ParametersRepository) SetAvailability(ctx context.Context, exec sqlx.ExtContext, id models.ID) error {
	const query = `UPDATE parameters SET availability_id = $1, version = version + 1, updated_at = $2 WHERE id = 1`
	if _, err := fallback(r.db, exec).ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("set active availability: %w", err)
	}
	return nil
}
