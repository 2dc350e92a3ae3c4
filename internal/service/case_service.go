package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/satriadp/supervision-api/internal/models"
	appErrors "github.com/satriadp/supervision-api/pkg/errors"
)

type preThesisStore interface {
	FindByID(ctx context.Context, id string) (*models.PreThesisCase, error)
	List(ctx context.Context, filter models.CaseFilter) ([]models.PreThesisCase, int, error)
	Snapshot(ctx context.Context, id string) (*models.CaseSnapshot, error)
}

type thesisStore interface {
	FindByID(ctx context.Context, id string) (*models.ThesisCase, error)
	List(ctx context.Context, filter models.CaseFilter) ([]models.ThesisCase, int, error)
	Snapshot(ctx context.Context, id string) (*models.CaseSnapshot, error)
}

// CaseService is the read surface over both case tracks.
type CaseService struct {
	preTheses preThesisStore
	theses    thesisStore
	roles     roleChecker
	grades    gradeRepository
	logger    *zap.Logger
}

// NewCaseService constructs CaseService.
func NewCaseService(preTheses preThesisStore, theses thesisStore, roles roleChecker, grades gradeRepository, logger *zap.Logger) *CaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CaseService{preTheses: preTheses, theses: theses, roles: roles, grades: grades, logger: logger}
}

// scopeFilter narrows a listing to the actor's own cases.
func scopeFilter(actor models.Actor, filter models.CaseFilter) models.CaseFilter {
	switch actor.Kind {
	case models.ActorStudent:
		filter.StudentID = actor.StudentID
	case models.ActorTeacher:
		filter.TeacherID = actor.TeacherID
	}
	return filter
}

// ListPreThesis returns pre-thesis cases visible to the actor.
func (s *CaseService) ListPreThesis(ctx context.Context, actor models.Actor, filter models.CaseFilter) ([]models.PreThesisCase, *models.Pagination, error) {
	filter = scopeFilter(actor, filter)
	cases, total, err := s.preTheses.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to list pre-thesis cases")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return cases, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ListThesis returns thesis cases visible to the actor.
func (s *CaseService) ListThesis(ctx context.Context, actor models.Actor, filter models.CaseFilter) ([]models.ThesisCase, *models.Pagination, error) {
	filter = scopeFilter(actor, filter)
	cases, total, err := s.theses.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to list thesis cases")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return cases, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// GetPreThesis returns one pre-thesis case if the actor participates in it.
func (s *CaseService) GetPreThesis(ctx context.Context, actor models.Actor, id string) (*models.PreThesisCase, error) {
	c, err := s.preTheses.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load case")
	}
	if !actor.CanOperate() && !actor.IsStudent(c.StudentID) && !actor.IsTeacher(c.TeacherID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not a participant of this case")
	}
	return c, nil
}

// GetThesis returns one thesis case if the actor participates in it.
func (s *CaseService) GetThesis(ctx context.Context, actor models.Actor, id string) (*models.ThesisCase, error) {
	c, err := s.theses.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load case")
	}
	if actor.CanOperate() || actor.IsStudent(c.StudentID) || actor.IsTeacher(c.SupervisorID) {
		return c, nil
	}
	if actor.Kind == models.ActorTeacher {
		holds, err := s.roles.HasAnyRole(ctx, id, actor.TeacherID)
		if err != nil {
			return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to check thesis role")
		}
		if holds {
			return c, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrForbidden, "not a participant of this case")
}

// Snapshot assembles the read-only export projection with grades attached.
func (s *CaseService) Snapshot(ctx context.Context, actor models.Actor, caseKind models.CaseKind, caseID string) (*models.CaseSnapshot, error) {
	var snapshot *models.CaseSnapshot
	var err error
	switch caseKind {
	case models.CaseKindPreThesis:
		if _, err := s.GetPreThesis(ctx, actor, caseID); err != nil {
			return nil, err
		}
		snapshot, err = s.preTheses.Snapshot(ctx, caseID)
	case models.CaseKindThesis:
		if _, err := s.GetThesis(ctx, actor, caseID); err != nil {
			return nil, err
		}
		snapshot, err = s.theses.Snapshot(ctx, caseID)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown case kind")
	}
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to build case snapshot")
	}
	grades, err := s.grades.ListByCase(ctx, caseKind, caseID)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to attach grades")
	}
	snapshot.Grades = grades
	return snapshot, nil
}
