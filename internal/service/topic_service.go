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

type topicRepository interface {
	List(ctx context.Context, filter models.TopicFilter) ([]models.TopicDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Topic, error)
	FindDetailByID(ctx context.Context, id string) (*models.TopicDetail, error)
	Create(ctx context.Context, topic *models.Topic) error
	Update(ctx context.Context, topic *models.Topic) error
	Lock(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Topic, error)
	Resize(ctx context.Context, exec sqlx.ExtContext, id string, newMax int) error
}

type capacityReader interface {
	FindByTeacherAndPeriod(ctx context.Context, teacherID, periodID string) (*models.CapacityGrant, error)
}

// CreateTopicRequest describes a new topic offering.
type CreateTopicRequest struct {
	TeacherID   string  `json:"teacher_id" validate:"required"`
	PeriodID    string  `json:"period_id" validate:"required"`
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description"`
	MaxSlots    int     `json:"max_slots" validate:"gt=0"`
	MinGPA      float64 `json:"min_gpa" validate:"gte=0,lte=4"`
	MinCredits  int     `json:"min_credits" validate:"gte=0"`
}

// UpdateTopicRequest modifies a topic's descriptive fields.
type UpdateTopicRequest struct {
	Title       string             `json:"title" validate:"required"`
	Description string             `json:"description"`
	MinGPA      float64            `json:"min_gpa" validate:"gte=0,lte=4"`
	MinCredits  int                `json:"min_credits" validate:"gte=0"`
	Status      models.TopicStatus `json:"status" validate:"required,oneof=OPEN CLOSED"`
}

// ResizeTopicRequest adjusts a topic's slot budget.
type ResizeTopicRequest struct {
	NewMax int `json:"new_max" validate:"gte=0"`
}

// TopicService manages pre-thesis topic offerings.
type TopicService struct {
	repo      topicRepository
	capacity  capacityReader
	periods   periodReader
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTopicService constructs TopicService.
func NewTopicService(repo topicRepository, capacity capacityReader, periods periodReader, tx txProvider, validate *validator.Validate, logger *zap.Logger) *TopicService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TopicService{repo: repo, capacity: capacity, periods: periods, tx: tx, validator: validate, logger: logger}
}

// List returns topics. Students only see open topics in published periods,
// enforced by defaulting their status filter.
func (s *TopicService) List(ctx context.Context, actor models.Actor, filter models.TopicFilter) ([]models.TopicDetail, *models.Pagination, error) {
	if actor.Kind == models.ActorStudent {
		filter.Status = models.TopicStatusOpen
	}
	topics, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to list topics")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return topics, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one topic with supervisor context.
func (s *TopicService) Get(ctx context.Context, id string) (*models.TopicDetail, error) {
	topic, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "topic not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load topic")
	}
	return topic, nil
}

// Create opens a new topic. Teachers may only offer topics under their own
// name, and only when they hold a capacity grant for the period.
func (s *TopicService) Create(ctx context.Context, actor models.Actor, req CreateTopicRequest) (*models.Topic, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid topic payload")
	}
	if !actor.CanActForTeacher(req.TeacherID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot offer topics for another teacher")
	}
	if _, err := s.periods.FindByID(ctx, req.PeriodID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "period not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load period")
	}
	if _, err := s.capacity.FindByTeacherAndPeriod(ctx, req.TeacherID, req.PeriodID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "teacher holds no capacity grant for this period")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to check capacity grant")
	}

	topic := &models.Topic{
		TeacherID:   req.TeacherID,
		PeriodID:    req.PeriodID,
		Title:       req.Title,
		Description: req.Description,
		MaxSlots:    req.MaxSlots,
		MinGPA:      req.MinGPA,
		MinCredits:  req.MinCredits,
	}
	if err := s.repo.Create(ctx, topic); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to create topic")
	}
	return topic, nil
}

// Update modifies a topic. Only the owning teacher or an operator may.
func (s *TopicService) Update(ctx context.Context, actor models.Actor, id string, req UpdateTopicRequest) (*models.Topic, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid topic payload")
	}
	topic, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "topic not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load topic")
	}
	if !actor.CanActForTeacher(topic.TeacherID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "topic belongs to another teacher")
	}
	if req.Status == models.TopicStatusOpen && topic.RemainingSlots == 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "cannot reopen a topic with no remaining slots")
	}
	topic.Title = req.Title
	topic.Description = req.Description
	topic.MinGPA = req.MinGPA
	topic.MinCredits = req.MinCredits
	topic.Status = req.Status
	if err := s.repo.Update(ctx, topic); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to update topic")
	}
	return topic, nil
}

// Resize adjusts the slot budget inside a transaction holding the topic row.
func (s *TopicService) Resize(ctx context.Context, actor models.Actor, id string, req ResizeTopicRequest) (*models.Topic, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid resize payload")
	}
	topic, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "topic not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load topic")
	}
	if !actor.CanActForTeacher(topic.TeacherID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "topic belongs to another teacher")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to begin resize")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := s.repo.Lock(ctx, tx, id); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to lock topic")
	}
	if err := s.repo.Resize(ctx, tx, id, req.NewMax); err != nil {
		if repository.IsResizeBelowInUse(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "new maximum is below slots already taken")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to resize topic")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to commit resize")
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to reload topic")
	}
	return updated, nil
}
