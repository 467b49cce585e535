package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/shift-rota-api/internal/dto"
	"github.com/noah-isme/shift-rota-api/internal/models"
	"github.com/noah-isme/shift-rota-api/pkg/config"
	"github.com/noah-isme/shift-rota-api/pkg/database"
	appErrors "github.com/noah-isme/shift-rota-api/pkg/errors"
	"github.com/noah-isme/shift-rota-api/pkg/export"
	"github.com/noah-isme/shift-rota-api/pkg/logger"
)

// RevertToRoot clears the current schedule pointer.
const RevertToRoot = "ROOT"

type scheduleRepository interface {
	scheduleStore
	List(ctx context.Context) ([]models.Schedule, error)
	Assignments(ctx context.Context, scheduleID models.ID) ([]models.SlotSubject, error)
}

// ScheduleService serves read access to schedule nodes, exports and pointer reverts.
type ScheduleService struct {
	db          database.TxBeginner
	repo        scheduleRepository
	params      parametersStore
	cache       *CacheService
	metrics     *MetricsService
	maxDepth    int
	slotsPerDay int
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewScheduleService constructs the service.
func NewScheduleService(
	db database.TxBeginner,
	repo scheduleRepository,
	params parametersStore,
	cache *CacheService,
	metrics *MetricsService,
	schedulerCfg config.SchedulerConfig,
	exportCfg config.ExportConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		db:          db,
		repo:        repo,
		params:      params,
		cache:       cache,
		metrics:     metrics,
		maxDepth:    schedulerCfg.MaxChainDepth,
		slotsPerDay: exportCfg.SlotsPerDay,
		validator:   validate,
		logger:      logger,
	}
}

func (s *ScheduleService) chain() *ScheduleChain {
	return NewScheduleChain(s.repo, s.params, nil, s.maxDepth, s.metrics)
}

// List returns every node, newest first, flagging the current head.
func (s *ScheduleService) List(ctx context.Context) ([]dto.ScheduleSummary, error) {
	schedules, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list schedules")
	}
	params, err := s.params.Get(ctx, nil)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load parameters")
	}

	summaries := make([]dto.ScheduleSummary, 0, len(schedules))
	for _, schedule := range schedules {
		summaries = append(summaries, dto.ScheduleSummary{
			ID:        schedule.ID,
			Parent:    schedule.ParentID,
			Name:      schedule.Name,
			CreatedAt: schedule.CreatedAt.UTC().Format(time.RFC3339),
			Current:   schedule.ID == params.ScheduleID,
		})
	}
	return summaries, nil
}

// Get returns a node with its own assignments grouped by slot.
func (s *ScheduleService) Get(ctx context.Context, rawID string) (*dto.ScheduleResponse, error) {
	id, err := parseID(models.KindSchedule, rawID, "schedule id")
	if err != nil {
		return nil, err
	}

	var detail dto.ScheduleResponse
	if s.cache.Get(ctx, scheduleCacheKey(id), &detail) {
		return &detail, nil
	}

	node, err := s.chain().Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.Assignments(ctx, id)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load schedule assignments")
	}

	detail = dto.ScheduleResponse{
		ID:          node.ID,
		Parent:      node.ParentID,
		Name:        node.Name,
		Assignments: make(map[models.ID][]models.SubjectRef),
	}
	for _, row := range rows {
		detail.Assignments[row.SlotID] = append(detail.Assignments[row.SlotID], models.SubjectRef{ID: row.SubjectID, Name: row.SubjectName})
	}
	s.cache.Set(ctx, scheduleCacheKey(id), detail)
	return &detail, nil
}

// Export renders a node's assignments as a day-by-slot grid.
func (s *ScheduleService) Export(ctx context.Context, rawID, format string) (*dto.ExportResult, error) {
	id, err := parseID(models.KindSchedule, rawID, "schedule id")
	if err != nil {
		return nil, err
	}
	exportFormat := dto.ExportFormat(strings.ToLower(strings.TrimSpace(format)))
	if exportFormat == "" {
		exportFormat = dto.ExportFormatCSV
	}
	switch exportFormat {
	case dto.ExportFormatCSV, dto.ExportFormatSheetsExport, dto.ExportFormatPDF:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	node, err := s.chain().Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.Assignments(ctx, id)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load schedule assignments")
	}
	grid := export.NewGrid(slotPairs(rows), s.slotsPerDay)

	base := "schedule-" + id.String()
	switch exportFormat {
	case dto.ExportFormatPDF:
		title := id.String()
		if node.Name != nil {
			title = *node.Name
		}
		body, err := export.NewPDFExporter().Render(grid, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &dto.ExportResult{Filename: base + ".pdf", ContentType: "application/pdf", Body: body}, nil
	default:
		body, err := export.NewCSVExporter(exportFormat == dto.ExportFormatSheetsExport).Render(grid)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &dto.ExportResult{Filename: base + ".csv", ContentType: "text/csv; charset=utf-8", Body: body}, nil
	}
}

// slotPairs folds rows ordered by slot order key into one name pair per slot.
func slotPairs(rows []models.SlotSubject) []export.Pair {
	var pairs []export.Pair
	var current models.ID
	filled := 0
	for _, row := range rows {
		if len(pairs) == 0 || row.SlotID != current {
			pairs = append(pairs, export.Pair{})
			current, filled = row.SlotID, 0
		}
		if filled < len(export.Pair{}) {
			pairs[len(pairs)-1][filled] = row.SubjectName
			filled++
		}
	}
	return pairs
}

// Revert moves the current pointer to an existing node, or clears it for ROOT.
func (s *ScheduleService) Revert(ctx context.Context, req dto.RevertScheduleRequest) (*models.Parameters, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid revert payload")
	}

	target := models.ID{}
	if !strings.EqualFold(strings.TrimSpace(req.Target), RevertToRoot) {
		id, err := parseID(models.KindSchedule, req.Target, "schedule id")
		if err != nil {
			return nil, err
		}
		target = id
	}

	var updated *models.Parameters
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if !target.IsZero() {
			chain := NewScheduleChain(s.repo, s.params, tx, s.maxDepth, s.metrics)
			if _, err := chain.Resolve(ctx, target); err != nil {
				return err
			}
		}
		if err := s.params.SetSchedule(ctx, tx, target); err != nil {
			return appErrors.Storage(err, "failed to move current schedule")
		}
		params, err := s.params.Get(ctx, tx)
		if err != nil {
			return appErrors.Storage(err, "failed to load parameters")
		}
		updated = params
		return nil
	})
	if err != nil {
		return nil, asAppError(err)
	}

	logger.WithContext(ctx, s.logger).Info("current schedule reverted", zap.String("schedule_id", target.String()))
	return updated, nil
}

// Ancestry lists node ids from the node back to its root.
func (s *ScheduleService) Ancestry(ctx context.Context, rawID string) (*dto.ScheduleAncestryResponse, error) {
	id, err := parseID(models.KindSchedule, rawID, "schedule id")
	if err != nil {
		return nil, err
	}
	ids, err := s.chain().Ancestry(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.ScheduleAncestryResponse{ID: id, Ancestors: ids}, nil
}

// Stats reports a subject's count, total count and last-scheduled distance at a node.
func (s *ScheduleService) Stats(ctx context.Context, rawScheduleID, rawSubjectID string) (*dto.SubjectStatsResponse, error) {
	scheduleID, err := parseID(models.KindSchedule, rawScheduleID, "schedule id")
	if err != nil {
		return nil, err
	}
	subjectID, err := parseID(models.KindSubject, rawSubjectID, "subject id")
	if err != nil {
		return nil, err
	}

	chain := s.chain()
	if _, err := chain.Resolve(ctx, scheduleID); err != nil {
		return nil, err
	}
	count, err := chain.Count(ctx, scheduleID, subjectID)
	if err != nil {
		return nil, err
	}
	total, err := chain.CountTotal(ctx, scheduleID, subjectID)
	if err != nil {
		return nil, err
	}
	last, err := chain.LastScheduled(ctx, scheduleID, subjectID)
	if err != nil {
		return nil, err
	}
	return &dto.SubjectStatsResponse{
		ScheduleID:    scheduleID,
		SubjectID:     subjectID,
		Count:         count,
		CountTotal:    total,
		LastScheduled: last,
	}, nil
}
