package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/shift-rota-api/internal/dto"
	"github.com/noah-isme/shift-rota-api/internal/models"
	"github.com/noah-isme/shift-rota-api/pkg/config"
	"github.com/noah-isme/shift-rota-api/pkg/database"
	appErrors "github.com/noah-isme/shift-rota-api/pkg/errors"
	"github.com/noah-isme/shift-rota-api/pkg/logger"
)

const assignmentsPerSlot = 2

type activeAvailabilityLoader interface {
	LoadActive(ctx context.Context, exec sqlx.ExtContext) (*AvailabilitySet, error)
}

type scheduleWarmer interface {
	Warm(id models.ID)
}

// ScheduleGeneratorService appends a new node to the schedule chain by greedily
// assigning two subjects to every slot of the active availability set.
type ScheduleGeneratorService struct {
	db             database.TxBeginner
	schedules      scheduleStore
	params         parametersStore
	availability   activeAvailabilityLoader
	warmer         scheduleWarmer
	metrics        *MetricsService
	weighting      Weighting
	maxDepth       int
	historyWorkers int
	historyTimeout time.Duration
	validator      *validator.Validate
	logger         *zap.Logger
}

// NewScheduleGeneratorService wires the generator. warmer and metrics may be nil.
func NewScheduleGeneratorService(
	db database.TxBeginner,
	schedules scheduleStore,
	params parametersStore,
	availability activeAvailabilityLoader,
	warmer scheduleWarmer,
	metrics *MetricsService,
	cfg config.SchedulerConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *ScheduleGeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	weighting, rejected := WeightingFromConfig(cfg)
	if len(rejected) > 0 {
		logger.Warn("ignoring out-of-range scheduler coefficients", zap.Strings("keys", rejected))
	}
	return &ScheduleGeneratorService{
		db:             db,
		schedules:      schedules,
		params:         params,
		availability:   availability,
		warmer:         warmer,
		metrics:        metrics,
		weighting:      weighting,
		maxDepth:       cfg.MaxChainDepth,
		historyWorkers: cfg.HistoryWorkers,
		historyTimeout: cfg.HistoryTimeout,
		validator:      validate,
		logger:         logger,
	}
}

type subjectHistory struct {
	total int
	last  *int
}

type candidate struct {
	subject models.ID
	weight  float64
}

// Generate writes one child of the current head (or of req.Parent) and moves the
// current pointer to it. Nothing is persisted unless every slot was filled.
func (s *ScheduleGeneratorService) Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid schedule generation payload")
	}
	var parentOverride models.ID
	if strings.TrimSpace(req.Parent) != "" {
		id, err := parseID(models.KindSchedule, req.Parent, "parent schedule id")
		if err != nil {
			return nil, err
		}
		parentOverride = id
	}
	var name *string
	if trimmed := strings.TrimSpace(req.Name); trimmed != "" {
		name = &trimmed
	}

	log := logger.WithContext(ctx, s.logger)
	start := time.Now()
	var node *models.Schedule
	assigned := 0

	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		availability, err := s.availability.LoadActive(ctx, tx)
		if err != nil {
			return err
		}

		chain := NewScheduleChain(s.schedules, s.params, tx, s.maxDepth, s.metrics)
		head, err := s.resolveHead(ctx, tx, chain, parentOverride)
		if err != nil {
			return err
		}

		headID := models.ID{}
		if head != nil {
			headID = head.ID
		}
		node, err = chain.Create(ctx, headID, name)
		if err != nil {
			return err
		}

		history, err := s.history(ctx, tx, head, availability.Subjects())
		if err != nil {
			return err
		}

		for _, slot := range availability.RankedByFlexibility() {
			if len(slot.Subjects) < assignmentsPerSlot {
				return appErrors.Integrity(fmt.Sprintf("slot %s has %d eligible subjects, %d required", slot.SlotID, len(slot.Subjects), assignmentsPerSlot))
			}
			ranked, err := s.rank(ctx, chain, node.ID, availability, history, slot.Subjects)
			if err != nil {
				return err
			}
			for _, c := range ranked[:assignmentsPerSlot] {
				if err := chain.Add(ctx, node.ID, slot.SlotID, c.subject); err != nil {
					return err
				}
				assigned++
			}
		}

		if err := s.params.SetSchedule(ctx, tx, node.ID); err != nil {
			return appErrors.Storage(err, "failed to move current schedule")
		}
		return nil
	})
	if err != nil {
		s.metrics.ObserveGeneration(GenerationFailed, 0, time.Since(start))
		log.Warn("schedule generation failed", zap.Error(err))
		return nil, asAppError(err)
	}

	s.metrics.ObserveGeneration(GenerationSucceeded, assigned, time.Since(start))
	log.Info("schedule generated",
		zap.String("schedule_id", node.ID.String()),
		zap.String("parent_id", node.ParentID.String()),
		zap.Int("assignments", assigned),
		zap.Duration("duration", time.Since(start)))
	if s.warmer != nil {
		s.warmer.Warm(node.ID)
	}

	return &dto.GenerateScheduleResponse{ID: node.ID, Parent: node.ParentID, Name: node.Name}, nil
}

func (s *ScheduleGeneratorService) resolveHead(ctx context.Context, tx sqlx.ExtContext, chain *ScheduleChain, override models.ID) (*models.Schedule, error) {
	if !override.IsZero() {
		return chain.Resolve(ctx, override)
	}
	params, err := s.params.Get(ctx, tx)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load parameters")
	}
	if params.ScheduleID.IsZero() {
		return nil, nil
	}
	return chain.Resolve(ctx, params.ScheduleID)
}

// history computes each subject's total count and last-scheduled distance at head.
// Both are fixed for the whole run, so they are read once per subject. With more than
// one worker the reads go through the pool, which sees only committed ancestors;
// otherwise they share the run's transaction one at a time. Pooled reads are bounded
// by historyTimeout so a drained pool fails the run instead of blocking it.
func (s *ScheduleGeneratorService) history(ctx context.Context, tx sqlx.ExtContext, head *models.Schedule, subjects []models.ID) (map[models.ID]subjectHistory, error) {
	result := make(map[models.ID]subjectHistory, len(subjects))
	if head == nil {
		for _, subject := range subjects {
			result[subject] = subjectHistory{}
		}
		return result, nil
	}

	exec, limit := tx, 1
	if s.historyWorkers > 1 {
		exec, limit = nil, s.historyWorkers
		if s.historyTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.historyTimeout)
			defer cancel()
		}
	}
	chain := NewScheduleChain(s.schedules, s.params, exec, s.maxDepth, s.metrics)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, subject := range subjects {
		subject := subject
		g.Go(func() error {
			total, err := chain.CountTotal(gctx, head.ID, subject)
			if err != nil {
				return err
			}
			last, err := chain.LastScheduled(gctx, head.ID, subject)
			if err != nil {
				return err
			}
			mu.Lock()
			result[subject] = subjectHistory{total: total, last: last}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// rank orders a slot's candidates by descending weight, breaking ties by subject id.
func (s *ScheduleGeneratorService) rank(
	ctx context.Context,
	chain *ScheduleChain,
	node models.ID,
	availability *AvailabilitySet,
	history map[models.ID]subjectHistory,
	subjects []models.ID,
) ([]candidate, error) {
	candidates := make([]candidate, 0, len(subjects))
	for _, subject := range subjects {
		current, err := chain.Count(ctx, node, subject)
		if err != nil {
			return nil, err
		}
		h := history[subject]
		candidates = append(candidates, candidate{
			subject: subject,
			weight: s.weighting.Score(WeightInputs{
				LastScheduled: h.last,
				Flexibility:   availability.Flexibility(subject),
				Total:         h.total,
				Current:       current,
			}),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].weight != candidates[j].weight {
			return candidates[i].weight > candidates[j].weight
		}
		return candidates[i].subject.Less(candidates[j].subject)
	})
	return candidates, nil
}
