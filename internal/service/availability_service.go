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
	"github.com/noah-isme/shift-rota-api/pkg/database"
	appErrors "github.com/noah-isme/shift-rota-api/pkg/errors"
	"github.com/noah-isme/shift-rota-api/pkg/logger"
)

type availabilityStore interface {
	List(ctx context.Context) ([]models.AvailabilitySet, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id models.ID) (*models.AvailabilitySet, error)
	Entries(ctx context.Context, exec sqlx.ExtContext, id models.ID) ([]models.SlotSubject, error)
	Create(ctx context.Context, exec sqlx.ExtContext, set *models.AvailabilitySet, entries []models.AvailabilityEntry) error
}

type subjectLookup interface {
	FindByIDs(ctx context.Context, exec sqlx.ExtContext, ids []models.ID) ([]models.Subject, error)
}

type slotLookup interface {
	FindByIDs(ctx context.Context, exec sqlx.ExtContext, ids []models.ID) ([]models.Slot, error)
}

// AvailabilityService loads and imports availability snapshots.
type AvailabilityService struct {
	db        database.TxBeginner
	store     availabilityStore
	subjects  subjectLookup
	slots     slotLookup
	params    parametersStore
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService constructs the service.
func NewAvailabilityService(db database.TxBeginner, store availabilityStore, subjects subjectLookup, slots slotLookup, params parametersStore, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{
		db:        db,
		store:     store,
		subjects:  subjects,
		slots:     slots,
		params:    params,
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// Load reads a set and indexes its entries.
func (s *AvailabilityService) Load(ctx context.Context, exec sqlx.ExtContext, id models.ID) (*AvailabilitySet, error) {
	header, err := s.store.FindByID(ctx, exec, id)
	if err != nil {
		return nil, notFoundOrStorage(err, fmt.Sprintf("availability set %s not found", id), "failed to load availability set")
	}
	rows, err := s.store.Entries(ctx, exec, id)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load availability entries")
	}
	return NewAvailabilitySet(*header, rows), nil
}

// LoadActive loads the set the parameters record points at.
func (s *AvailabilityService) LoadActive(ctx context.Context, exec sqlx.ExtContext) (*AvailabilitySet, error) {
	params, err := s.params.Get(ctx, exec)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load parameters")
	}
	if params.AvailabilityID.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no active availability set")
	}
	return s.Load(ctx, exec, params.AvailabilityID)
}

// List returns every set in creation order.
func (s *AvailabilityService) List(ctx context.Context) ([]models.AvailabilitySet, error) {
	sets, err := s.store.List(ctx)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list availability sets")
	}
	return sets, nil
}

// Get returns a set with its entries grouped by slot.
func (s *AvailabilityService) Get(ctx context.Context, rawID string) (*dto.AvailabilityResponse, error) {
	id, err := parseID(models.KindAvailability, rawID, "availability id")
	if err != nil {
		return nil, err
	}

	var detail dto.AvailabilityResponse
	if !s.cache.Get(ctx, availabilityCacheKey(id), &detail) {
		header, err := s.store.FindByID(ctx, nil, id)
		if err != nil {
			return nil, notFoundOrStorage(err, "availability set not found", "failed to load availability set")
		}
		rows, err := s.store.Entries(ctx, nil, id)
		if err != nil {
			return nil, appErrors.Storage(err, "failed to load availability entries")
		}
		detail = buildAvailabilityResponse(*header, rows)
		s.cache.Set(ctx, availabilityCacheKey(id), detail)
	}

	params, err := s.params.Get(ctx, nil)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load parameters")
	}
	detail.Active = params.AvailabilityID == id
	return &detail, nil
}

// Ranking returns the set's slots least-flexible first.
func (s *AvailabilityService) Ranking(ctx context.Context, rawID string) ([]models.RankedSlot, error) {
	id, err := parseID(models.KindAvailability, rawID, "availability id")
	if err != nil {
		return nil, err
	}
	set, err := s.Load(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	return set.RankedByFlexibility(), nil
}

// Create imports a normalized snapshot as a new immutable set and optionally activates it.
func (s *AvailabilityService) Create(ctx context.Context, req dto.CreateAvailabilityRequest) (*dto.AvailabilityResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid availability payload")
	}

	entries, slotIDs, subjectIDs, err := parseAvailabilityEntries(req.Entries)
	if err != nil {
		return nil, err
	}

	set := &models.AvailabilitySet{ID: models.NewID(models.KindAvailability), CreatedAt: time.Now().UTC()}
	if name := strings.TrimSpace(req.Name); name != "" {
		set.Name = &name
	}

	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		slots, err := s.slots.FindByIDs(ctx, tx, slotIDs)
		if err != nil {
			return appErrors.Storage(err, "failed to load slots")
		}
		if missing := missingIDs(slotIDs, slotIDsOf(slots)); len(missing) > 0 {
			return appErrors.Clone(appErrors.ErrNotFound, "unknown slots: "+joinIDs(missing))
		}
		subjects, err := s.subjects.FindByIDs(ctx, tx, subjectIDs)
		if err != nil {
			return appErrors.Storage(err, "failed to load subjects")
		}
		if missing := missingIDs(subjectIDs, subjectIDsOf(subjects)); len(missing) > 0 {
			return appErrors.Clone(appErrors.ErrNotFound, "unknown subjects: "+joinIDs(missing))
		}

		if err := s.store.Create(ctx, tx, set, entries); err != nil {
			return appErrors.Storage(err, "failed to store availability set")
		}
		if req.Activate {
			if err := s.params.SetAvailability(ctx, tx, set.ID); err != nil {
				return appErrors.Storage(err, "failed to activate availability set")
			}
		}
		return nil
	})
	if err != nil {
		return nil, asAppError(err)
	}

	logger.WithContext(ctx, s.logger).Info("availability set created",
		zap.String("availability_id", set.ID.String()),
		zap.Int("entries", len(entries)),
		zap.Bool("activated", req.Activate))
	return s.Get(ctx, set.ID.String())
}

func parseAvailabilityEntries(inputs []dto.AvailabilityEntryInput) ([]models.AvailabilityEntry, []models.ID, []models.ID, error) {
	var entries []models.AvailabilityEntry
	seenEntry := make(map[models.AvailabilityEntry]struct{})
	seenSlot := make(map[models.ID]struct{})
	seenSubject := make(map[models.ID]struct{})
	var slotIDs, subjectIDs []models.ID

	for _, input := range inputs {
		slotID, err := parseID(models.KindSlot, input.SlotID, "slot id")
		if err != nil {
			return nil, nil, nil, err
		}
		if _, ok := seenSlot[slotID]; !ok {
			seenSlot[slotID] = struct{}{}
			slotIDs = append(slotIDs, slotID)
		}
		for _, raw := range input.SubjectIDs {
			subjectID, err := parseID(models.KindSubject, raw, "subject id")
			if err != nil {
				return nil, nil, nil, err
			}
			if _, ok := seenSubject[subjectID]; !ok {
				seenSubject[subjectID] = struct{}{}
				subjectIDs = append(subjectIDs, subjectID)
			}
			entry := models.AvailabilityEntry{SlotID: slotID, SubjectID: subjectID}
			if _, dup := seenEntry[entry]; dup {
				continue
			}
			seenEntry[entry] = struct{}{}
			entries = append(entries, entry)
		}
	}
	return entries, slotIDs, subjectIDs, nil
}

func buildAvailabilityResponse(header models.AvailabilitySet, rows []models.SlotSubject) dto.AvailabilityResponse {
	resp := dto.AvailabilityResponse{
		ID:        header.ID,
		Name:      header.Name,
		CreatedAt: header.CreatedAt.UTC().Format(time.RFC3339),
		Slots:     []dto.AvailabilitySlot{},
	}
	index := make(map[models.ID]int)
	for _, row := range rows {
		i, ok := index[row.SlotID]
		if !ok {
			i = len(resp.Slots)
			index[row.SlotID] = i
			resp.Slots = append(resp.Slots, dto.AvailabilitySlot{SlotID: row.SlotID, OrderKey: row.OrderKey})
		}
		resp.Slots[i].Subjects = append(resp.Slots[i].Subjects, models.SubjectRef{ID: row.SubjectID, Name: row.SubjectName})
	}
	return resp
}

func slotIDsOf(slots []models.Slot) []models.ID {
	ids := make([]models.ID, len(slots))
	for i, slot := range slots {
		ids[i] = slot.ID
	}
	return ids
}

func subjectIDsOf(subjects []models.Subject) []models.ID {
	ids := make([]models.ID, len(subjects))
	for i, subject := range subjects {
		ids[i] = subject.ID
	}
	return ids
}

func missingIDs(want, have []models.ID) []models.ID {
	present := make(map[models.ID]struct{}, len(have))
	for _, id := range have {
		present[id] = struct{}{}
	}
	var missing []models.ID
	for _, id := range want {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	sortIDs(missing)
	return missing
}

func joinIDs(ids []models.ID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ", ")
}
