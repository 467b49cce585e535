package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/shift-rota-api/internal/dto"
	"github.com/noah-isme/shift-rota-api/internal/models"
	appErrors "github.com/noah-isme/shift-rota-api/pkg/errors"
)

type subjectRepository interface {
	List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error)
	FindByID(ctx context.Context, id models.ID) (*models.Subject, error)
	Upsert(ctx context.Context, subject *models.Subject) error
	Rename(ctx context.Context, id models.ID, name string) error
}

// SubjectService manages the subject registry.
type SubjectService struct {
	repo      subjectRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService creates a new subject service.
func NewSubjectService(repo subjectRepository, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated subjects.
func (s *SubjectService) List(ctx context.Context, query dto.ListSubjectsQuery) ([]models.Subject, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, validationError(err, "invalid subject filter")
	}
	filter := models.SubjectFilter{Search: strings.TrimSpace(query.Search), Page: query.Page, PageSize: query.PageSize}
	subjects, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Storage(err, "failed to list subjects")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	return subjects, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a subject by identifier.
func (s *SubjectService) Get(ctx context.Context, rawID string) (*models.Subject, error) {
	id, err := parseID(models.KindSubject, rawID, "subject id")
	if err != nil {
		return nil, err
	}
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Storage(err, "failed to load subject")
	}
	return subject, nil
}

// Register adds a subject, or renames the one already holding the external key.
func (s *SubjectService) Register(ctx context.Context, req dto.CreateSubjectRequest) (*models.Subject, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid subject payload")
	}

	subject := &models.Subject{Name: req.Name, ExternalKey: req.ExternalKey}
	if err := s.repo.Upsert(ctx, subject); err != nil {
		return nil, appErrors.Storage(err, "failed to register subject")
	}
	s.logger.Info("subject registered", zap.String("subject_id", subject.ID.String()))
	return subject, nil
}

// Rename changes a subject's display name.
func (s *SubjectService) Rename(ctx context.Context, rawID string, req dto.RenameSubjectRequest) (*models.Subject, error) {
	id, err := parseID(models.KindSubject, rawID, "subject id")
	if err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid subject payload")
	}

	if err := s.repo.Rename(ctx, id, req.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Storage(err, "failed to rename subject")
	}
	return s.Get(ctx, rawID)
}
