package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shift-rota-api/internal/models"
)

// SubjectRepository handles persistence for subjects.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new repository instance.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// List returns subjects matching filters ordered by name, with the total count.
func (r *SubjectRepository) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error) {
	base := "FROM subjects"
	var args []interface{}
	if filter.Search != "" {
		base += " WHERE LOWER(name) LIKE $1"
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, external_key, name, created_at, updated_at %s ORDER BY name ASC, id ASC LIMIT %d OFFSET %d", base, size, offset)
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list subjects: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count subjects: %w", err)
	}
	return subjects, total, nil
}

// FindByID returns a subject by id.
func (r *SubjectRepository) FindByID(ctx context.Context, id models.ID) (*models.Subject, error) {
	const query = `SELECT id, external_key, name, created_at, updated_at FROM subjects WHERE id = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// FindByIDs returns the subjects among ids that exist.
func (r *SubjectRepository) FindByIDs(ctx context.Context, exec sqlx.ExtContext, ids []models.ID) ([]models.Subject, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT id, external_key, name, created_at, updated_at FROM subjects WHERE id = ANY($1)`
	var subjects []models.Subject
	if err := sqlx.SelectContext(ctx, fallback(r.db, exec), &subjects, query, idArray(ids)); err != nil {
		return nil, fmt.Errorf("find subjects: %w", err)
	}
	return subjects, nil
}

// Upsert registers a subject. A subject carrying an external key already on file
// keeps its id and only has its name refreshed; subject.ID is updated accordingly.
func (r *SubjectRepository) Upsert(ctx context.Context, subject *models.Subject) error {
	if subject.ID.IsZero() {
		subject.ID = models.NewID(models.KindSubject)
	}
	now := time.Now().UTC()
	subject.CreatedAt = now
	subject.UpdatedAt = now

	if subject.ExternalKey == nil {
		const insert = `INSERT INTO subjects (id, external_key, name, created_at, updated_at) VALUES ($1, NULL, $2, $3, $4)`
		if _, err := r.db.ExecContext(ctx, insert, subject.ID, subject.Name, subject.CreatedAt, subject.UpdatedAt); err != nil {
			return fmt.Errorf("create subject: %w", err)
		}
		return nil
	}

	const upsert = `INSERT INTO subjects (id, external_key, name, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (external_key) DO UPDATE SET name = EXCLUDED.name, updated_at = EXCLUDED.updated_at
RETURNING id, created_at`
	row := r.db.QueryRowxContext(ctx, upsert, subject.ID, *subject.ExternalKey, subject.Name, subject.CreatedAt, subject.UpdatedAt)
	if err := row.Scan(&subject.ID, &subject.CreatedAt); err != nil {
		return fmt.Errorf("upsert subject: %w", err)
	}
	return nil
}

// Rename updates a subject's display name. It returns sql.ErrNoRows for unknown ids.
func (r *SubjectRepository) Rename(ctx context.Context, id models.ID, name string) error {
	const query = `UPDATE subjects SET name = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, name, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("rename subject: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rename subject: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
