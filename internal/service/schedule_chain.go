package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shift-rota-api/internal/models"
	appErrors "github.com/noah-isme/shift-rota-api/pkg/errors"
)

const defaultMaxChainDepth = 10000

type scheduleStore interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id models.ID) (*models.Schedule, error)
	Upsert(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error
	AddAssignment(ctx context.Context, exec sqlx.ExtContext, assignment models.Assignment) error
	CountAssignments(ctx context.Context, exec sqlx.ExtContext, scheduleID, subjectID models.ID) (int, error)
	SlotSubjects(ctx context.Context, exec sqlx.ExtContext, scheduleID, slotID models.ID) ([]models.ID, error)
}

type parametersStore interface {
	Get(ctx context.Context, exec sqlx.ExtContext) (*models.Parameters, error)
	SetSchedule(ctx context.Context, exec sqlx.ExtContext, id models.ID) error
	SetAvailability(ctx context.Context, exec sqlx.ExtContext, id models.ID) error
}

// ScheduleChain walks and extends the parent-pointer history of schedule nodes.
// All reads and writes go through exec; a nil exec uses the repository pool.
// Resolved nodes are cached for the lifetime of the chain, so a chain should not
// outlive the unit of work it was created for.
type ScheduleChain struct {
	store    scheduleStore
	params   parametersStore
	exec     sqlx.ExtContext
	maxDepth int
	metrics  *MetricsService

	mu    sync.RWMutex
	nodes map[models.ID]models.Schedule
}

// NewScheduleChain constructs a chain bound to exec.
func NewScheduleChain(store scheduleStore, params parametersStore, exec sqlx.ExtContext, maxDepth int, metrics *MetricsService) *ScheduleChain {
	if maxDepth <= 0 {
		maxDepth = defaultMaxChainDepth
	}
	return &ScheduleChain{
		store:    store,
		params:   params,
		exec:     exec,
		maxDepth: maxDepth,
		metrics:  metrics,
		nodes:    make(map[models.ID]models.Schedule),
	}
}

// Resolve loads a node by id.
func (c *ScheduleChain) Resolve(ctx context.Context, id models.ID) (*models.Schedule, error) {
	if id.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schedule id is required")
	}

	c.mu.RLock()
	cached, ok := c.nodes[id]
	c.mu.RUnlock()
	if ok {
		return &cached, nil
	}

	node, err := c.store.FindByID(ctx, c.exec, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("schedule %s not found", id))
		}
		return nil, appErrors.Storage(err, "failed to load schedule")
	}
	c.remember(*node)
	return node, nil
}

// FetchCurrent resolves the node the parameters record points at.
func (c *ScheduleChain) FetchCurrent(ctx context.Context) (*models.Schedule, error) {
	params, err := c.params.Get(ctx, c.exec)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load parameters")
	}
	if params.ScheduleID.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no current schedule")
	}
	return c.Resolve(ctx, params.ScheduleID)
}

// Create allocates and persists a new node under parent. A zero parent makes a root.
func (c *ScheduleChain) Create(ctx context.Context, parent models.ID, name *string) (*models.Schedule, error) {
	if !parent.IsZero() {
		if _, err := c.Resolve(ctx, parent); err != nil {
			return nil, err
		}
	}
	node := &models.Schedule{
		ID:        models.NewID(models.KindSchedule),
		ParentID:  parent,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := c.store.Upsert(ctx, c.exec, node); err != nil {
		return nil, appErrors.Storage(err, "failed to create schedule")
	}
	c.remember(*node)
	return node, nil
}

// Add appends one assignment to node.
func (c *ScheduleChain) Add(ctx context.Context, node, slot, subject models.ID) error {
	assignment := models.Assignment{ScheduleID: node, SlotID: slot, SubjectID: subject}
	if err := c.store.AddAssignment(ctx, c.exec, assignment); err != nil {
		return appErrors.Storage(err, "failed to add assignment")
	}
	return nil
}

// Count returns how often subject is assigned in node itself.
func (c *ScheduleChain) Count(ctx context.Context, node, subject models.ID) (int, error) {
	count, err := c.store.CountAssignments(ctx, c.exec, node, subject)
	if err != nil {
		return 0, appErrors.Storage(err, "failed to count assignments")
	}
	return count, nil
}

// CountTotal sums Count over node and all of its ancestors.
func (c *ScheduleChain) CountTotal(ctx context.Context, node, subject models.ID) (int, error) {
	total := 0
	err := c.walk(ctx, node, func(n models.Schedule, _ int) (bool, error) {
		count, err := c.Count(ctx, n.ID, subject)
		if err != nil {
			return false, err
		}
		total += count
		return true, nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// LastScheduled returns the number of parent hops from node to the nearest node
// assigning subject, or nil when no node on the chain does.
func (c *ScheduleChain) LastScheduled(ctx context.Context, node, subject models.ID) (*int, error) {
	var found *int
	err := c.walk(ctx, node, func(n models.Schedule, hops int) (bool, error) {
		count, err := c.Count(ctx, n.ID, subject)
		if err != nil {
			return false, err
		}
		if count > 0 {
			h := hops
			found = &h
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// GetSlot returns the subjects node itself assigns to slot.
func (c *ScheduleChain) GetSlot(ctx context.Context, node, slot models.ID) ([]models.ID, error) {
	subjects, err := c.store.SlotSubjects(ctx, c.exec, node, slot)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load slot assignments")
	}
	return subjects, nil
}

// Ancestry lists node ids from node back to its root.
func (c *ScheduleChain) Ancestry(ctx context.Context, node models.ID) ([]models.ID, error) {
	var ids []models.ID
	err := c.walk(ctx, node, func(n models.Schedule, _ int) (bool, error) {
		ids = append(ids, n.ID)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// walk visits start and then each ancestor until visit returns false or the root is reached.
func (c *ScheduleChain) walk(ctx context.Context, start models.ID, visit func(node models.Schedule, hops int) (bool, error)) error {
	visited := make(map[models.ID]struct{})
	current, child := start, models.ID{}
	hops := 0
	defer func() { c.metrics.ObserveChainWalk(hops) }()

	for {
		if err := ctx.Err(); err != nil {
			return appErrors.Storage(err, "schedule chain walk interrupted")
		}
		if hops >= c.maxDepth {
			return appErrors.Integrity(fmt.Sprintf("schedule chain from %s exceeds %d nodes", start, c.maxDepth))
		}
		if _, seen := visited[current]; seen {
			return appErrors.Integrity(fmt.Sprintf("schedule chain from %s revisits %s", start, current))
		}
		visited[current] = struct{}{}

		node, err := c.Resolve(ctx, current)
		if err != nil {
			if hops > 0 && errors.Is(err, appErrors.ErrNotFound) {
				return appErrors.Integrity(fmt.Sprintf("schedule %s references missing parent %s", child, current))
			}
			return err
		}

		more, err := visit(*node, hops)
		if err != nil {
			return err
		}
		if !more || node.ParentID.IsZero() {
			return nil
		}
		child, current = node.ID, node.ParentID
		hops++
	}
}

func (c *ScheduleChain) remember(node models.Schedule) {
	c.mu.Lock()
	c.nodes[node.ID] = node
	c.mu.Unlock()
}
