package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/satriadp/supervision-api/internal/models"
	appErrors "github.com/satriadp/supervision-api/pkg/errors"
)

type enrollmentStore interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentRecord, int, error)
	FindByStudentAndPeriod(ctx context.Context, studentID, periodID string) (*models.EnrollmentRecord, error)
	Ensure(ctx context.Context, studentID, periodID string, enrollType models.EnrollmentType) (*models.EnrollmentRecord, error)
}

// EnrollmentService is the read surface over registration state. All writes
// to the registration flag happen inside allocation transactions.
type EnrollmentService struct {
	repo   enrollmentStore
	logger *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentStore, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, logger: logger}
}

// List returns enrollment records. Students only see their own.
func (s *EnrollmentService) List(ctx context.Context, actor models.Actor, filter models.EnrollmentFilter) ([]models.EnrollmentRecord, *models.Pagination, error) {
	if actor.Kind == models.ActorStudent {
		filter.StudentID = actor.StudentID
	}
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return records, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Status returns one student's registration state for a period, creating
// the record on first read.
func (s *EnrollmentService) Status(ctx context.Context, actor models.Actor, studentID, periodID string) (*models.EnrollmentRecord, error) {
	if !actor.CanActForStudent(studentID) && actor.Kind != models.ActorTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot view another student's enrollment")
	}
	record, err := s.repo.FindByStudentAndPeriod(ctx, studentID, periodID)
	if err != nil {
		if err == sql.ErrNoRows {
			return s.ensure(ctx, studentID, periodID)
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load enrollment")
	}
	return record, nil
}

func (s *EnrollmentService) ensure(ctx context.Context, studentID, periodID string) (*models.EnrollmentRecord, error) {
	record, err := s.repo.Ensure(ctx, studentID, periodID, models.EnrollmentTypeNone)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to ensure enrollment")
	}
	return record, nil
}
