package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/shift-rota-api/internal/dto"
	"github.com/noah-isme/shift-rota-api/internal/models"
	appErrors "github.com/noah-isme/shift-rota-api/pkg/errors"
)

type slotRepository interface {
	List(ctx context.Context) ([]models.Slot, error)
	FindByID(ctx context.Context, id models.ID) (*models.Slot, error)
	Upsert(ctx context.Context, slot *models.Slot) error
}

// SlotService manages the slot catalog.
type SlotService struct {
	repo      slotRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSlotService creates a new slot service.
func NewSlotService(repo slotRepository, validate *validator.Validate, logger *zap.Logger) *SlotService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotService{repo: repo, validator: validate, logger: logger}
}

// List returns every slot ordered by order key.
func (s *SlotService) List(ctx context.Context) ([]models.Slot, error) {
	slots, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list slots")
	}
	return slots, nil
}

// Get returns a slot by identifier.
func (s *SlotService) Get(ctx context.Context, rawID string) (*models.Slot, error) {
	id, err := parseID(models.KindSlot, rawID, "slot id")
	if err != nil {
		return nil, err
	}
	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		return nil, appErrors.Storage(err, "failed to load slot")
	}
	return slot, nil
}

// Register adds a slot for the order key, returning the existing one when already present.
func (s *SlotService) Register(ctx context.Context, req dto.CreateSlotRequest) (*models.Slot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid slot payload")
	}
	slot := &models.Slot{OrderKey: *req.OrderKey}
	if err := s.repo.Upsert(ctx, slot); err != nil {
		return nil, appErrors.Storage(err, "failed to register slot")
	}
	return slot, nil
}
