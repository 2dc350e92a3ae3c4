package service

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/satriadp/supervision-api/internal/models"
	appErrors "github.com/satriadp/supervision-api/pkg/errors"
)

type deadlineRepository interface {
	Find(ctx context.Context, periodID string, artifact models.ArtifactKind) (*models.Deadline, error)
	ListByPeriod(ctx context.Context, periodID string) ([]models.Deadline, error)
	Upsert(ctx context.Context, deadline *models.Deadline) error
	Delete(ctx context.Context, periodID string, artifact models.ArtifactKind) error
}

// noDeadline marks a cached miss so absent rows do not hammer the database.
const noDeadline = "none"

// DeadlineGate answers "is this write still allowed" for deadline-gated
// artifacts. Lookups go through a short-lived Redis cache; a missing row
// means no deadline is enforced.
type DeadlineGate struct {
	repo    deadlineRepository
	redis   *redis.Client
	ttl     time.Duration
	metrics *MetricsService
	logger  *zap.Logger
}

// NewDeadlineGate constructs the gate. redisClient may be nil, in which
// case every lookup hits the database.
func NewDeadlineGate(repo deadlineRepository, redisClient *redis.Client, ttl time.Duration, metrics *MetricsService, logger *zap.Logger) *DeadlineGate {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &DeadlineGate{repo: repo, redis: redisClient, ttl: ttl, metrics: metrics, logger: logger}
}

func deadlineCacheKey(periodID string, artifact models.ArtifactKind) string {
	return "deadline:" + periodID + ":" + string(artifact)
}

// DueAt returns the configured cutoff, or nil when none is enforced.
func (g *DeadlineGate) DueAt(ctx context.Context, periodID string, artifact models.ArtifactKind) (*time.Time, error) {
	key := deadlineCacheKey(periodID, artifact)
	if g.redis != nil {
		cached, err := g.redis.Get(ctx, key).Result()
		if err == nil {
			g.metrics.RecordDeadlineLookup(true)
			if cached == noDeadline {
				return nil, nil
			}
			if unix, parseErr := strconv.ParseInt(cached, 10, 64); parseErr == nil {
				due := time.Unix(unix, 0).UTC()
				return &due, nil
			}
		} else if err != redis.Nil {
			g.logger.Warn("deadline cache read failed", zap.String("key", key), zap.Error(err))
		}
	}
	g.metrics.RecordDeadlineLookup(false)

	deadline, err := g.repo.Find(ctx, periodID, artifact)
	if err != nil {
		if err == sql.ErrNoRows {
			g.cache(ctx, key, noDeadline)
			return nil, nil
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to resolve deadline")
	}
	g.cache(ctx, key, strconv.FormatInt(deadline.DueAt.Unix(), 10))
	due := deadline.DueAt.UTC()
	return &due, nil
}

// Check rejects a write attempted after the configured cutoff.
func (g *DeadlineGate) Check(ctx context.Context, periodID string, artifact models.ArtifactKind, now time.Time) error {
	due, err := g.DueAt(ctx, periodID, artifact)
	if err != nil {
		return err
	}
	if due != nil && now.After(*due) {
		return appErrors.Clone(appErrors.ErrDeadlinePassed, "deadline for "+string(artifact)+" has passed")
	}
	return nil
}

// Invalidate drops the cached entry after an admin changes the deadline.
func (g *DeadlineGate) Invalidate(ctx context.Context, periodID string, artifact models.ArtifactKind) {
	if g.redis == nil {
		return
	}
	if err := g.redis.Del(ctx, deadlineCacheKey(periodID, artifact)).Err(); err != nil {
		g.logger.Warn("deadline cache invalidation failed",
			zap.String("period_id", periodID),
			zap.String("artifact", string(artifact)),
			zap.Error(err))
	}
}

func (g *DeadlineGate) cache(ctx context.Context, key, value string) {
	if g.redis == nil {
		return
	}
	if err := g.redis.Set(ctx, key, value, g.ttl).Err(); err != nil {
		g.logger.Warn("deadline cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// DeadlineService is the admin surface over the deadline store.
type DeadlineService struct {
	repo   deadlineRepository
	gate   *DeadlineGate
	logger *zap.Logger
}

// NewDeadlineService constructs DeadlineService.
func NewDeadlineService(repo deadlineRepository, gate *DeadlineGate, logger *zap.Logger) *DeadlineService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeadlineService{repo: repo, gate: gate, logger: logger}
}

// SetDeadlineRequest configures one cutoff.
type SetDeadlineRequest struct {
	PeriodID string              `json:"period_id" validate:"required"`
	Artifact models.ArtifactKind `json:"artifact" validate:"required"`
	DueAt    time.Time           `json:"due_at" validate:"required"`
}

// List returns a period's configured deadlines.
func (s *DeadlineService) List(ctx context.Context, periodID string) ([]models.Deadline, error) {
	deadlines, err := s.repo.ListByPeriod(ctx, periodID)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to list deadlines")
	}
	return deadlines, nil
}

// Set creates or moves a cutoff and drops the stale cache entry.
func (s *DeadlineService) Set(ctx context.Context, actor models.Actor, req SetDeadlineRequest) (*models.Deadline, error) {
	if !actor.CanOperate() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only operators may manage deadlines")
	}
	deadline := &models.Deadline{
		PeriodID: req.PeriodID,
		Artifact: req.Artifact,
		DueAt:    req.DueAt.UTC(),
	}
	if err := s.repo.Upsert(ctx, deadline); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to set deadline")
	}
	s.gate.Invalidate(ctx, req.PeriodID, req.Artifact)
	s.logger.Info("deadline set",
		zap.String("period_id", req.PeriodID),
		zap.String("artifact", string(req.Artifact)),
		zap.Time("due_at", deadline.DueAt))
	return deadline, nil
}

// Remove lifts a cutoff entirely.
func (s *DeadlineService) Remove(ctx context.Context, actor models.Actor, periodID string, artifact models.ArtifactKind) error {
	if !actor.CanOperate() {
		return appErrors.Clone(appErrors.ErrForbidden, "only operators may manage deadlines")
	}
	if err := s.repo.Delete(ctx, periodID, artifact); err != nil {
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to remove deadline")
	}
	s.gate.Invalidate(ctx, periodID, artifact)
	return nil
}
