package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/satriadp/supervision-api/internal/models"
	"github.com/satriadp/supervision-api/internal/repository"
	appErrors "github.com/satriadp/supervision-api/pkg/errors"
)

type applicationRepository interface {
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.TopicApplicationDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.TopicApplication, error)
	FindDetailByID(ctx context.Context, id string) (*models.TopicApplicationDetail, error)
	FindByStudentAndTopic(ctx context.Context, studentID, topicID string) (*models.TopicApplication, error)
	Create(ctx context.Context, app *models.TopicApplication) error
	Recycle(ctx context.Context, id string, note *string) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.ApplicationStatus) error
	RejectOtherPending(ctx context.Context, exec sqlx.ExtContext, studentID, keepID string) ([]models.TopicApplication, error)
}

type topicAllocator interface {
	FindByID(ctx context.Context, id string) (*models.Topic, error)
	Lock(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Topic, error)
	ReserveSlot(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type capacityAllocator interface {
	LockByTeacherAndPeriod(ctx context.Context, exec sqlx.ExtContext, teacherID, periodID string) (*models.CapacityGrant, error)
	ReserveSlot(ctx context.Context, exec sqlx.ExtContext, grantID string, kind models.CaseKind) error
}

type enrollmentGuard interface {
	Ensure(ctx context.Context, studentID, periodID string, enrollType models.EnrollmentType) (*models.EnrollmentRecord, error)
	LockByStudentAndPeriod(ctx context.Context, exec sqlx.ExtContext, studentID, periodID string) (*models.EnrollmentRecord, error)
	MarkRegistered(ctx context.Context, exec sqlx.ExtContext, studentID, periodID string, enrollType models.EnrollmentType) error
}

type preThesisWriter interface {
	Create(ctx context.Context, exec sqlx.ExtContext, c *models.PreThesisCase) error
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type notifier interface {
	Emit(n models.Notification)
	EmitAll(notifications []models.Notification)
}

// ApplyRequest is a student's request for a slot on a topic.
type ApplyRequest struct {
	TopicID string  `json:"topic_id" validate:"required"`
	Note    *string `json:"note"`
}

// ApplicationService runs the topic application workflow, including the
// directed pre-thesis allocation that fires on approval.
type ApplicationService struct {
	repo        applicationRepository
	topics      topicAllocator
	capacity    capacityAllocator
	enrollments enrollmentGuard
	cases       preThesisWriter
	students    studentReader
	periods     periodReader
	notify      notifier
	tx          txProvider
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewApplicationService constructs ApplicationService.
func NewApplicationService(
	repo applicationRepository,
	topics topicAllocator,
	capacity capacityAllocator,
	enrollments enrollmentGuard,
	cases preThesisWriter,
	students studentReader,
	periods periodReader,
	notify notifier,
	tx txProvider,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *ApplicationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApplicationService{
		repo:        repo,
		topics:      topics,
		capacity:    capacity,
		enrollments: enrollments,
		cases:       cases,
		students:    students,
		periods:     periods,
		notify:      notify,
		tx:          tx,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// List returns applications. Students see their own, teachers those on
// their topics.
func (s *ApplicationService) List(ctx context.Context, actor models.Actor, filter models.ApplicationFilter) ([]models.TopicApplicationDetail, *models.Pagination, error) {
	switch actor.Kind {
	case models.ActorStudent:
		filter.StudentID = actor.StudentID
	case models.ActorTeacher:
		filter.TeacherID = actor.TeacherID
	}
	apps, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to list applications")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return apps, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Apply files a student's request for a topic slot. A previous rejection on
// the same topic is recycled back to PENDING instead of duplicated.
func (s *ApplicationService) Apply(ctx context.Context, actor models.Actor, req ApplyRequest) (*models.TopicApplication, error) {
	if actor.Kind != models.ActorStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students may apply for topics")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid application payload")
	}

	topic, err := s.topics.FindByID(ctx, req.TopicID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "topic not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load topic")
	}
	if topic.Status != models.TopicStatusOpen || topic.RemainingSlots <= 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "topic is not accepting applications")
	}

	period, err := s.periods.FindByID(ctx, topic.PeriodID)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load period")
	}
	if !period.IsActive || !period.IsPublished {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "period is not open for applications")
	}

	student, err := s.students.FindByID(ctx, actor.StudentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load student")
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "student is inactive")
	}
	if student.GPA < topic.MinGPA {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("GPA below topic minimum of %.2f", topic.MinGPA))
	}
	if student.Credits < topic.MinCredits {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("credits below topic minimum of %d", topic.MinCredits))
	}

	record, err := s.enrollments.Ensure(ctx, actor.StudentID, topic.PeriodID, models.EnrollmentTypeNone)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load enrollment")
	}
	if record.IsRegistered {
		return nil, appErrors.Clone(appErrors.ErrAlreadyRegistered, "")
	}

	existing, err := s.repo.FindByStudentAndTopic(ctx, actor.StudentID, req.TopicID)
	switch {
	case err == nil && existing.Status == models.ApplicationStatusRejected:
		if err := s.repo.Recycle(ctx, existing.ID, req.Note); err != nil {
			return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to re-apply")
		}
		return s.repo.FindByID(ctx, existing.ID)
	case err == nil:
		return nil, appErrors.Clone(appErrors.ErrConflict, "application already exists for this topic")
	case err != sql.ErrNoRows:
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to check existing application")
	}

	app := &models.TopicApplication{
		StudentID: actor.StudentID,
		TopicID:   req.TopicID,
		Note:      req.Note,
	}
	if err := s.repo.Create(ctx, app); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to create application")
	}

	s.notify.Emit(models.Notification{
		RecipientID: topic.TeacherID,
		Kind:        models.NotificationApplicationReceived,
		Title:       "New topic application",
		Message:     fmt.Sprintf("%s applied for %q", student.FullName, topic.Title),
	})
	return app, nil
}

// Approve accepts a PENDING application and runs the directed allocation:
// one transaction reserves the topic slot and a supervisor capacity slot,
// opens the pre-thesis case, flips the registration flag and retires the
// student's other pending applications. Any failed check rolls the whole
// allocation back.
func (s *ApplicationService) Approve(ctx context.Context, actor models.Actor, appID string) (*models.PreThesisCase, error) {
	detail, err := s.repo.FindDetailByID(ctx, appID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load application")
	}
	if !actor.CanActForTeacher(detail.TeacherID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "application belongs to another teacher's topic")
	}
	if detail.Status != models.ApplicationStatusPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "application already settled")
	}

	topicRef, err := s.topics.FindByID(ctx, detail.TopicID)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load topic")
	}
	if _, err := s.enrollments.Ensure(ctx, detail.StudentID, topicRef.PeriodID, models.EnrollmentTypeNone); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load enrollment")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to begin allocation")
	}
	defer func() { _ = tx.Rollback() }()

	// Lock order: enrollment, topic, capacity. Every allocator uses the
	// same order.
	record, err := s.enrollments.LockByStudentAndPeriod(ctx, tx, detail.StudentID, topicRef.PeriodID)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to lock enrollment")
	}
	if record.IsRegistered {
		return nil, appErrors.Clone(appErrors.ErrAlreadyRegistered, "")
	}

	topic, err := s.topics.Lock(ctx, tx, detail.TopicID)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to lock topic")
	}
	if topic.Status != models.TopicStatusOpen || topic.RemainingSlots <= 0 {
		return nil, appErrors.Clone(appErrors.ErrCapacityExhausted, "topic has no remaining slots")
	}

	grant, err := s.capacity.LockByTeacherAndPeriod(ctx, tx, topic.TeacherID, topic.PeriodID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "supervisor holds no capacity grant")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to lock capacity grant")
	}
	if grant.Remaining(models.CaseKindPreThesis) <= 0 {
		return nil, appErrors.Clone(appErrors.ErrCapacityExhausted, "supervisor has no remaining pre-thesis capacity")
	}

	if err := s.repo.UpdateStatus(ctx, tx, appID, models.ApplicationStatusApproved); err != nil {
		if repository.IsApplicationNotPending(err) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "application already settled")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to approve application")
	}
	if err := s.topics.ReserveSlot(ctx, tx, topic.ID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrCapacityExhausted, "topic has no remaining slots")
	}
	if err := s.capacity.ReserveSlot(ctx, tx, grant.ID, models.CaseKindPreThesis); err != nil {
		return nil, appErrors.Clone(appErrors.ErrCapacityExhausted, "supervisor has no remaining pre-thesis capacity")
	}

	preThesis := &models.PreThesisCase{
		StudentID:   detail.StudentID,
		TopicID:     topic.ID,
		TeacherID:   topic.TeacherID,
		PeriodID:    topic.PeriodID,
		Title:       topic.Title,
		Description: topic.Description,
	}
	if err := s.cases.Create(ctx, tx, preThesis); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to open pre-thesis case")
	}

	if err := s.enrollments.MarkRegistered(ctx, tx, detail.StudentID, topic.PeriodID, models.EnrollmentTypePreThesis); err != nil {
		if repository.IsAlreadyRegistered(err) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyRegistered, "")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to register student")
	}

	displaced, err := s.repo.RejectOtherPending(ctx, tx, detail.StudentID, appID)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to retire other applications")
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to commit allocation")
	}

	notifications := []models.Notification{{
		RecipientID: detail.StudentID,
		Kind:        models.NotificationApplicationApproved,
		Title:       "Application approved",
		Message:     fmt.Sprintf("Your application for %q was approved", topic.Title),
	}, {
		RecipientID: detail.StudentID,
		Kind:        models.NotificationAssignment,
		Title:       "Pre-thesis assigned",
		Message:     fmt.Sprintf("You are assigned to %q", topic.Title),
	}}
	for _, other := range displaced {
		notifications = append(notifications, models.Notification{
			RecipientID: other.StudentID,
			Kind:        models.NotificationApplicationRejected,
			Title:       "Application closed",
			Message:     "Your application was closed because another one was approved",
		})
	}
	s.notify.EmitAll(notifications)
	s.metrics.RecordAllocation(string(models.CaseKindPreThesis), "directed")

	s.logger.Info("pre-thesis allocated",
		zap.String("application_id", appID),
		zap.String("student_id", detail.StudentID),
		zap.String("topic_id", topic.ID),
		zap.String("case_id", preThesis.ID))
	return preThesis, nil
}

// Reject settles a PENDING application without allocation.
func (s *ApplicationService) Reject(ctx context.Context, actor models.Actor, appID string) error {
	detail, err := s.repo.FindDetailByID(ctx, appID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load application")
	}
	if !actor.CanActForTeacher(detail.TeacherID) {
		return appErrors.Clone(appErrors.ErrForbidden, "application belongs to another teacher's topic")
	}
	if detail.Status != models.ApplicationStatusPending {
		return appErrors.Clone(appErrors.ErrInvalidState, "application already settled")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to begin rejection")
	}
	defer func() { _ = tx.Rollback() }()
	if err := s.repo.UpdateStatus(ctx, tx, appID, models.ApplicationStatusRejected); err != nil {
		if repository.IsApplicationNotPending(err) {
			return appErrors.Clone(appErrors.ErrInvalidState, "application already settled")
		}
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to reject application")
	}
	if err := tx.Commit(); err != nil {
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to commit rejection")
	}

	s.notify.Emit(models.Notification{
		RecipientID: detail.StudentID,
		Kind:        models.NotificationApplicationRejected,
		Title:       "Application rejected",
		Message:     fmt.Sprintf("Your application for %q was rejected", detail.TopicTitle),
	})
	return nil
}
