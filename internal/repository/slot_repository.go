package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shift-rota-api/internal/models"
)

// SlotRepository persists the slot catalog.
type SlotRepository struct {
	db *sqlx.DB
}

// NewSlotRepository constructs the repository.
func NewSlotRepository(db *sqlx.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

// List returns all slots by ascending order key.
func (r *SlotRepository) List(ctx context.Context) ([]models.Slot, error) {
	const query = `SELECT id, order_key, created_at FROM slots ORDER BY order_key ASC`
	var slots []models.Slot
	if err := r.db.SelectContext(ctx, &slots, query); err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return slots, nil
}

// FindByID returns a slot by id.
func (r *SlotRepository) FindByID(ctx context.Context, id models.ID) (*models.Slot, error) {
	const query = `SELECT id, order_key, created_at FROM slots WHERE id = $1`
	var slot models.Slot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// FindByIDs returns the slots among ids that exist.
func (r *SlotRepository) FindByIDs(ctx context.Context, exec sqlx.ExtContext, ids []models.ID) ([]models.Slot, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT id, order_key, created_at FROM slots WHERE id = ANY($1) ORDER BY order_key ASC`
	var slots []models.Slot
	if err := sqlx.SelectContext(ctx, fallback(r.db, exec), &slots, query, idArray(ids)); err != nil {
		return nil, fmt.Errorf("find slots: %w", err)
	}
	return slots, nil
}

// Upsert registers a slot keyed by its order key. An existing slot keeps its id.
func (r *SlotRepository) Upsert(ctx context.Context, slot *models.Slot) error {
	if slot.ID.IsZero() {
		slot.ID = models.NewID(models.KindSlot)
	}
	slot.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO slots (id, order_key, created_at) VALUES ($1, $2, $3)
ON CONFLICT (order_key) DO UPDATE SET order_key = EXCLUDED.order_key
RETURNING id, created_at`
	row := r.db.QueryRowxContext(ctx, query, slot.ID, slot.OrderKey, slot.CreatedAt)
	if err := row.Scan(&slot.ID, &slot.CreatedAt); err != nil {
		return fmt.Errorf("upsert slot: %w", err)
	}
	return nil
}
