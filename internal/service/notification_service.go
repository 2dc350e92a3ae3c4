package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/satriadp/supervision-api/internal/models"
	"github.com/satriadp/supervision-api/internal/repository"
	appErrors "github.com/satriadp/supervision-api/pkg/errors"
	"github.com/satriadp/supervision-api/pkg/jobs"
)

type notificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, id, recipientID string) error
}

// NotificationService delivers post-commit events. Emission is best-effort:
// a failed delivery is logged and never propagated to the caller, so the
// state change that triggered it stays committed.
type NotificationService struct {
	repo    notificationRepository
	queue   *jobs.Queue
	redis   *redis.Client
	channel string
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService constructs the service. The queue is created here
// and must be started by the caller before notifications flow.
func NewNotificationService(repo notificationRepository, redisClient *redis.Client, channel string, workers, bufferSize int, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		repo:    repo,
		redis:   redisClient,
		channel: channel,
		metrics: metrics,
		logger:  logger,
	}
	s.queue = jobs.NewQueue("notifications", s.deliver, jobs.QueueConfig{
		Workers:    workers,
		BufferSize: bufferSize,
		Logger:     logger,
	})
	return s
}

// Queue exposes the underlying dispatcher for lifecycle management.
func (s *NotificationService) Queue() *jobs.Queue {
	return s.queue
}

// Emit schedules one notification for delivery. Callers invoke this only
// after their transaction has committed. Errors are swallowed here.
func (s *NotificationService) Emit(n models.Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	err := s.queue.Enqueue(jobs.Job{ID: n.ID, Type: string(n.Kind), Payload: n})
	if err != nil {
		s.logger.Warn("notification dropped",
			zap.String("kind", string(n.Kind)),
			zap.String("recipient_id", n.RecipientID),
			zap.Error(err))
	}
}

// EmitAll schedules a batch, one job per notification.
func (s *NotificationService) EmitAll(notifications []models.Notification) {
	for _, n := range notifications {
		s.Emit(n)
	}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(models.Notification)
	if !ok {
		s.logger.Error("notification job carried unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	if err := s.repo.Create(ctx, &n); err != nil {
		return err
	}
	s.metrics.RecordNotification()
	s.publish(ctx, n)
	return nil
}

// publish mirrors the notification onto the Redis channel for live
// consumers. Failure here never fails the job; the row is already stored.
func (s *NotificationService) publish(ctx context.Context, n models.Notification) {
	if s.redis == nil || s.channel == "" {
		return
	}
	payload, err := json.Marshal(n)
	if err != nil {
		s.logger.Warn("notification publish marshal failed", zap.String("id", n.ID), zap.Error(err))
		return
	}
	if err := s.redis.Publish(ctx, s.channel, payload).Err(); err != nil {
		s.logger.Warn("notification publish failed",
			zap.String("id", n.ID),
			zap.String("channel", s.channel),
			zap.Error(err))
	}
}

// recipientOf picks the identity notifications are addressed to. Students
// and teachers are addressed by their roster row, operators by account.
func recipientOf(actor models.Actor) string {
	switch {
	case actor.StudentID != "":
		return actor.StudentID
	case actor.TeacherID != "":
		return actor.TeacherID
	default:
		return actor.UserID
	}
}

// List returns the actor's own notifications.
func (s *NotificationService) List(ctx context.Context, actor models.Actor, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	filter.RecipientID = recipientOf(actor)
	notifications, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to list notifications")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return notifications, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// MarkRead stamps one of the actor's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, actor models.Actor, id string) error {
	if err := s.repo.MarkRead(ctx, id, recipientOf(actor)); err != nil {
		if repository.IsNotificationNotFound(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to mark notification read")
	}
	return nil
}
