package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shift-rota-api/internal/models"
)

// AvailabilityRepository persists immutable availability sets and their entries.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs the repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// List returns every set in creation order.
func (r *AvailabilityRepository) List(ctx context.Context) ([]models.AvailabilitySet, error) {
	const query = `SELECT id, name, created_at FROM availability_sets ORDER BY created_at ASC`
	var sets []models.AvailabilitySet
	if err := r.db.SelectContext(ctx, &sets, query); err != nil {
		return nil, fmt.Errorf("list availability sets: %w", err)
	}
	return sets, nil
}

// FindByID returns a set header by id.
func (r *AvailabilityRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id models.ID) (*models.AvailabilitySet, error) {
	const query = `SELECT id, name, created_at FROM availability_sets WHERE id = $1`
	var set models.AvailabilitySet
	if err := sqlx.GetContext(ctx, fallback(r.db, exec), &set, query, id); err != nil {
		return nil, err
	}
	return &set, nil
}

// Entries returns the set's entries joined with slot order and subject name,
// ordered by slot order key then subject name.
func (r *AvailabilityRepository) Entries(ctx context.Context, exec sqlx.ExtContext, id models.ID) ([]models.SlotSubject, error) {
	const query = `SELECT e.slot_id, sl.order_key, e.subject_id, su.name AS subject_name
FROM availability_entries e
JOIN slots sl ON sl.id = e.slot_id
JOIN subjects su ON su.id = e.subject_id
WHERE e.availability_id = $1
ORDER BY sl.order_key ASC, su.name ASC`
	var rows []models.SlotSubject
	if err := sqlx.SelectContext(ctx, fallback(r.db, exec), &rows, query, id); err != nil {
		return nil, fmt.Errorf("list availability entries: %w", err)
	}
	return rows, nil
}

// Create inserts a set header and its entries. Callers run it inside a transaction.
func (r *AvailabilityRepository) Create(ctx context.Context, exec sqlx.ExtContext, set *models.AvailabilitySet, entries []models.AvailabilityEntry) error {
	if set.ID.IsZero() {
		set.ID = models.NewID(models.KindAvailability)
	}
	if set.CreatedAt.IsZero() {
		set.CreatedAt = time.Now().UTC()
	}
	target := fallback(r.db, exec)

	const insertSet = `INSERT INTO availability_sets (id, name, created_at) VALUES ($1, $2, $3)`
	if _, err := target.ExecContext(ctx, insertSet, set.ID, set.Name, set.CreatedAt); err != nil {
		return fmt.Errorf("insert availability set: %w", err)
	}

	const insertEntry = `INSERT INTO availability_entries (availability_id, slot_id, subject_id) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`
	for _, entry := range entries {
		if _, err := target.ExecContext(ctx, insertEntry, set.ID, entry.SlotID, entry.SubjectID); err != nil {
			return fmt.Errorf("insert availability entry: %w", err)
		}
	}
	return nil
}
