package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shift-rota-api/internal/models"
)

// ScheduleRepository persists schedule chain nodes and their assignments.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// List returns every node, newest first.
func (r *ScheduleRepository) List(ctx context.Context) ([]models.Schedule, error) {
	const query = `SELECT id, parent_id, name, created_at FROM schedules ORDER BY created_at DESC`
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return schedules, nil
}

// FindByID returns a node by id.
func (r *ScheduleRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id models.ID) (*models.Schedule, error) {
	const query = `SELECT id, parent_id, name, created_at FROM schedules WHERE id = $1`
	var schedule models.Schedule
	if err := sqlx.GetContext(ctx, fallback(r.db, exec), &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// Upsert writes a node. An existing node only has its parent overwritten.
func (r *ScheduleRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error {
	if schedule.ID.IsZero() {
		schedule.ID = models.NewID(models.KindSchedule)
	}
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO schedules (id, parent_id, name, created_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET parent_id = EXCLUDED.parent_id`
	if _, err := fallback(r.db, exec).ExecContext(ctx, query, schedule.ID, schedule.ParentID, schedule.Name, schedule.CreatedAt); err != nil {
		return fmt.Errorf("upsert schedule: %w", err)
	}
	return nil
}

// AddAssignment appends one (slot, subject) row to a node.
func (r *ScheduleRepository) AddAssignment(ctx context.Context, exec sqlx.ExtContext, assignment models.Assignment) error {
	const query = `INSERT INTO schedule_assignments (schedule_id, slot_id, subject_id) VALUES ($1, $2, $3)`
	if _, err := fallback(r.db, exec).ExecContext(ctx, query, assignment.ScheduleID, assignment.SlotID, assignment.SubjectID); err != nil {
		return fmt.Errorf("insert schedule assignment: %w", err)
	}
	return nil
}

// CountAssignments counts a subject's assignments within a single node.
func (r *ScheduleRepository) CountAssignments(ctx context.Context, exec sqlx.ExtContext, scheduleID, subjectID models.ID) (int, error) {
	const query = `SELECT COUNT(*) FROM schedule_assignments WHERE schedule_id = $1 AND subject_id = $2`
	var count int
	if err := sqlx.GetContext(ctx, fallback(r.db, exec), &count, query, scheduleID, subjectID); err != nil {
		return 0, fmt.Errorf("count schedule assignments: %w", err)
	}
	return count, nil
}

// SlotSubjects returns the subjects a node assigns to one slot.
func (r *ScheduleRepository) SlotSubjects(ctx context.Context, exec sqlx.ExtContext, scheduleID, slotID models.ID) ([]models.ID, error) {
	const query = `SELECT subject_id FROM schedule_assignments WHERE schedule_id = $1 AND slot_id = $2 ORDER BY id ASC`
	var subjects []models.ID
	if err := sqlx.SelectContext(ctx, fallback(r.db, exec), &subjects, query, scheduleID, slotID); err != nil {
		return nil, fmt.Errorf("list slot subjects: %w", err)
	}
	return subjects, nil
}

// Assignments returns a node's assignments joined with slot order and subject name,
// ordered by slot order key then subject name.
func (r *ScheduleRepository) Assignments(ctx context.Context, scheduleID models.ID) ([]models.SlotSubject, error) {
	const query = `SELECT a.slot_id, sl.order_key, a.subject_id, su.name AS subject_name
FROM schedule_assignments a
JOIN slots sl ON sl.id = a.slot_id
JOIN subjects su ON su.id = a.subject_id
WHERE a.schedule_id = $1
ORDER BY sl.order_key ASC, su.name ASC`
	var rows []models.SlotSubject
	if err := r.db.SelectContext(ctx, &rows, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list schedule assignments: %w", err)
	}
	return rows, nil
}
