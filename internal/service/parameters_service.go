package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/shift-rota-api/internal/dto"
	"github.com/noah-isme/shift-rota-api/internal/models"
	"github.com/noah-isme/shift-rota-api/pkg/database"
	appErrors "github.com/noah-isme/shift-rota-api/pkg/errors"
	"github.com/noah-isme/shift-rota-api/pkg/logger"
)

// ParametersService reads and moves the current-pointer record.
type ParametersService struct {
	db           database.TxBeginner
	params       parametersStore
	schedules    scheduleStore
	availability availabilityStore
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewParametersService constructs the service.
func NewParametersService(db database.TxBeginner, params parametersStore, schedules scheduleStore, availability availabilityStore, validate *validator.Validate, logger *zap.Logger) *ParametersService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ParametersService{db: db, params: params, schedules: schedules, availability: availability, validator: validate, logger: logger}
}

// Get returns the parameters record.
func (s *ParametersService) Get(ctx context.Context) (*models.Parameters, error) {
	params, err := s.params.Get(ctx, nil)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load parameters")
	}
	return params, nil
}

// Update points the record at the given availability set and/or schedule. Both
// targets must exist; empty fields are left untouched.
func (s *ParametersService) Update(ctx context.Context, req dto.UpdateParametersRequest) (*models.Parameters, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid parameters payload")
	}
	if req.AvailabilityID == "" && req.ScheduleID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "availabilityId or scheduleId is required")
	}

	var availabilityID, scheduleID models.ID
	var err error
	if req.AvailabilityID != "" {
		if availabilityID, err = parseID(models.KindAvailability, req.AvailabilityID, "availability id"); err != nil {
			return nil, err
		}
	}
	if req.ScheduleID != "" {
		if scheduleID, err = parseID(models.KindSchedule, req.ScheduleID, "schedule id"); err != nil {
			return nil, err
		}
	}

	var updated *models.Parameters
	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if !availabilityID.IsZero() {
			if _, err := s.availability.FindByID(ctx, tx, availabilityID); err != nil {
				return notFoundOrStorage(err, "availability set not found", "failed to load availability set")
			}
			if err := s.params.SetAvailability(ctx, tx, availabilityID); err != nil {
				return appErrors.Storage(err, "failed to activate availability set")
			}
		}
		if !scheduleID.IsZero() {
			if _, err := s.schedules.FindByID(ctx, tx, scheduleID); err != nil {
				return notFoundOrStorage(err, "schedule not found", "failed to load schedule")
			}
			if err := s.params.SetSchedule(ctx, tx, scheduleID); err != nil {
				return appErrors.Storage(err, "failed to move current schedule")
			}
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

	logger.WithContext(ctx, s.logger).Info("parameters updated",
		zap.String("availability_id", updated.AvailabilityID.String()),
		zap.String("schedule_id", updated.ScheduleID.String()),
		zap.Int("version", updated.Version))
	return updated, nil
}

func notFoundOrStorage(err error, notFound, storage string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Storage(err, storage)
}

// asAppError keeps typed errors and reports transaction plumbing failures as storage errors.
func asAppError(err error) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return appErrors.Storage(err, "transaction failed")
}
