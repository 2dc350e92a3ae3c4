package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/satriadp/supervision-api/internal/models"
	"github.com/satriadp/supervision-api/internal/repository"
	appErrors "github.com/satriadp/supervision-api/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type capacityRepository interface {
	List(ctx context.Context, filter models.CapacityFilter) ([]models.CapacityGrantDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.CapacityGrant, error)
	FindByTeacherAndPeriod(ctx context.Context, teacherID, periodID string) (*models.CapacityGrant, error)
	Create(ctx context.Context, grant *models.CapacityGrant) error
	LockByTeacherAndPeriod(ctx context.Context, exec sqlx.ExtContext, teacherID, periodID string) (*models.CapacityGrant, error)
	Resize(ctx context.Context, exec sqlx.ExtContext, grantID string, kind models.CaseKind, newMax int) error
}

type teacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type periodReader interface {
	FindByID(ctx context.Context, id string) (*models.Period, error)
	FindActive(ctx context.Context) (*models.Period, error)
}

// GrantCapacityRequest describes a new slot grant.
type GrantCapacityRequest struct {
	TeacherID         string `json:"teacher_id" validate:"required"`
	PeriodID          string `json:"period_id" validate:"required"`
	MaxPreThesisSlots int    `json:"max_pre_thesis_slots" validate:"gte=0"`
	MaxThesisSlots    int    `json:"max_thesis_slots" validate:"gte=0"`
}

// ResizeCapacityRequest adjusts one track's maximum.
type ResizeCapacityRequest struct {
	Kind   models.CaseKind `json:"kind" validate:"required"`
	NewMax int             `json:"new_max" validate:"gte=0"`
}

// CapacityService manages the per-teacher slot ledger.
type CapacityService struct {
	repo      capacityRepository
	teachers  teacherReader
	periods   periodReader
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCapacityService constructs CapacityService.
func NewCapacityService(repo capacityRepository, teachers teacherReader, periods periodReader, tx txProvider, validate *validator.Validate, logger *zap.Logger) *CapacityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CapacityService{repo: repo, teachers: teachers, periods: periods, tx: tx, validator: validate, logger: logger}
}

// List returns grants with teacher context. Teachers only see their own.
func (s *CapacityService) List(ctx context.Context, actor models.Actor, filter models.CapacityFilter) ([]models.CapacityGrantDetail, *models.Pagination, error) {
	if actor.Kind == models.ActorTeacher {
		filter.TeacherID = actor.TeacherID
	}
	grants, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to list capacity grants")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return grants, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one grant. Teachers may only read their own grant.
func (s *CapacityService) Get(ctx context.Context, actor models.Actor, id string) (*models.CapacityGrant, error) {
	grant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "capacity grant not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load capacity grant")
	}
	if !actor.CanActForTeacher(grant.TeacherID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "grant belongs to another teacher")
	}
	return grant, nil
}

// Grant creates a new slot budget for a teacher in a period.
func (s *CapacityService) Grant(ctx context.Context, actor models.Actor, req GrantCapacityRequest) (*models.CapacityGrant, error) {
	if !actor.CanOperate() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only operators may grant capacity")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid capacity payload")
	}
	teacher, err := s.teachers.FindByID(ctx, req.TeacherID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load teacher")
	}
	if !teacher.Active {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "teacher is inactive")
	}
	if _, err := s.periods.FindByID(ctx, req.PeriodID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "period not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load period")
	}
	if _, err := s.repo.FindByTeacherAndPeriod(ctx, req.TeacherID, req.PeriodID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "teacher already holds a grant for this period")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to check existing grant")
	}

	grant := &models.CapacityGrant{
		TeacherID:         req.TeacherID,
		PeriodID:          req.PeriodID,
		MaxPreThesisSlots: req.MaxPreThesisSlots,
		MaxThesisSlots:    req.MaxThesisSlots,
	}
	if err := s.repo.Create(ctx, grant); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to create capacity grant")
	}
	s.logger.Info("capacity granted",
		zap.String("teacher_id", grant.TeacherID),
		zap.String("period_id", grant.PeriodID),
		zap.Int("pre_thesis", grant.MaxPreThesisSlots),
		zap.Int("thesis", grant.MaxThesisSlots))
	return grant, nil
}

// Resize adjusts one track's maximum inside a transaction holding the grant
// row, so the in-use check cannot race a concurrent allocation.
func (s *CapacityService) Resize(ctx context.Context, actor models.Actor, grantID string, req ResizeCapacityRequest) (*models.CapacityGrant, error) {
	if !actor.CanOperate() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only operators may resize capacity")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid resize payload")
	}
	if !req.Kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown case kind")
	}

	grant, err := s.repo.FindByID(ctx, grantID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "capacity grant not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load capacity grant")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to begin resize")
	}
	defer func() { _ = tx.Rollback() }()

	locked, err := s.repo.LockByTeacherAndPeriod(ctx, tx, grant.TeacherID, grant.PeriodID)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to lock capacity grant")
	}
	if err := s.repo.Resize(ctx, tx, locked.ID, req.Kind, req.NewMax); err != nil {
		if repository.IsResizeBelowInUse(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "new maximum is below slots already in use")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to resize capacity grant")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to commit resize")
	}

	updated, err := s.repo.FindByID(ctx, grantID)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to reload capacity grant")
	}
	s.logger.Info("capacity resized",
		zap.String("grant_id", grantID),
		zap.String("kind", string(req.Kind)),
		zap.Int("new_max", req.NewMax))
	return updated, nil
}
