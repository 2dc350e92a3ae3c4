package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/satriadp/supervision-api/internal/models"
	"github.com/satriadp/supervision-api/internal/repository"
	appErrors "github.com/satriadp/supervision-api/pkg/errors"
)

type periodRepository interface {
	List(ctx context.Context, filter models.PeriodFilter) ([]models.Period, int, error)
	FindByID(ctx context.Context, id string) (*models.Period, error)
	FindActive(ctx context.Context) (*models.Period, error)
	Create(ctx context.Context, period *models.Period) error
	Update(ctx context.Context, period *models.Period) error
	SetActive(ctx context.Context, id string) error
	SetCurrent(ctx context.Context, id string) error
	SetPublished(ctx context.Context, id string, published bool) error
}

// CreatePeriodRequest describes period creation payload.
type CreatePeriodRequest struct {
	Name      string    `json:"name" validate:"required"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
}

// UpdatePeriodRequest describes period mutation payload.
type UpdatePeriodRequest struct {
	Name      string    `json:"name" validate:"required"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
}

// PeriodService manages the academic period lifecycle.
type PeriodService struct {
	repo      periodRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPeriodService constructs PeriodService.
func NewPeriodService(repo periodRepository, validate *validator.Validate, logger *zap.Logger) *PeriodService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeriodService{repo: repo, validator: validate, logger: logger}
}

// List returns periods. Students only see published ones.
func (s *PeriodService) List(ctx context.Context, actor models.Actor, filter models.PeriodFilter) ([]models.Period, *models.Pagination, error) {
	if actor.Kind == models.ActorStudent {
		published := true
		filter.IsPublished = &published
	}
	periods, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to list periods")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return periods, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one period.
func (s *PeriodService) Get(ctx context.Context, id string) (*models.Period, error) {
	period, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "period not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load period")
	}
	return period, nil
}

// Active returns the currently active period or an invalid-state error when
// no allocation window is open.
func (s *PeriodService) Active(ctx context.Context) (*models.Period, error) {
	period, err := s.repo.FindActive(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "no active period")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load active period")
	}
	return period, nil
}

// Create registers a new period. New periods start inactive and unpublished.
func (s *PeriodService) Create(ctx context.Context, actor models.Actor, req CreatePeriodRequest) (*models.Period, error) {
	if !actor.CanOperate() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only operators may manage periods")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid period payload")
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must be after start date")
	}
	period := &models.Period{
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	if err := s.repo.Create(ctx, period); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to create period")
	}
	return period, nil
}

// Update modifies period dates and name.
func (s *PeriodService) Update(ctx context.Context, actor models.Actor, id string, req UpdatePeriodRequest) (*models.Period, error) {
	if !actor.CanOperate() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only operators may manage periods")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid period payload")
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must be after start date")
	}
	period, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	period.Name = req.Name
	period.StartDate = req.StartDate
	period.EndDate = req.EndDate
	if err := s.repo.Update(ctx, period); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to update period")
	}
	return period, nil
}

// SetActive makes the target period the single active one.
func (s *PeriodService) SetActive(ctx context.Context, actor models.Actor, id string) error {
	if !actor.CanOperate() {
		return appErrors.Clone(appErrors.ErrForbidden, "only operators may manage periods")
	}
	if err := s.repo.SetActive(ctx, id); err != nil {
		if repository.ErrPeriodNotFound(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "period not found")
		}
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to activate period")
	}
	s.logger.Info("period activated", zap.String("period_id", id), zap.String("actor", actor.UserID))
	return nil
}

// SetCurrent makes the target period the single current one.
func (s *PeriodService) SetCurrent(ctx context.Context, actor models.Actor, id string) error {
	if !actor.CanOperate() {
		return appErrors.Clone(appErrors.ErrForbidden, "only operators may manage periods")
	}
	if err := s.repo.SetCurrent(ctx, id); err != nil {
		if repository.ErrPeriodNotFound(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "period not found")
		}
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to set current period")
	}
	return nil
}

// SetPublished toggles student visibility of a period.
func (s *PeriodService) SetPublished(ctx context.Context, actor models.Actor, id string, published bool) error {
	if !actor.CanOperate() {
		return appErrors.Clone(appErrors.ErrForbidden, "only operators may manage periods")
	}
	if err := s.repo.SetPublished(ctx, id, published); err != nil {
		if repository.ErrPeriodNotFound(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "period not found")
		}
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to publish period")
	}
	return nil
}
