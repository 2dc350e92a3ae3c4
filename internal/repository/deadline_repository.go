package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/satriadp/supervision-api/internal/models"
)

// DeadlineRepository stores per-period artifact deadlines.
type DeadlineRepository struct {
	db *sqlx.DB
}

// NewDeadlineRepository constructs the repository.
func NewDeadlineRepository(db *sqlx.DB) *DeadlineRepository {
	return &DeadlineRepository{db: db}
}

// Find returns the deadline for (period, artifact). sql.ErrNoRows means the
// artifact has no deadline configured.
func (r *DeadlineRepository) Find(ctx context.Context, periodID string, artifact models.ArtifactKind) (*models.Deadline, error) {
	const query = `SELECT id, period_id, artifact, due_at, created_at, updated_at
        FROM deadlines WHERE period_id = $1 AND artifact = $2`
	var deadline models.Deadline
	if err := r.db.GetContext(ctx, &deadline, query, periodID, artifact); err != nil {
		return nil, err
	}
	return &deadline, nil
}

// ListByPeriod returns every configured deadline for a period.
func (r *DeadlineRepository) ListByPeriod(ctx context.Context, periodID string) ([]models.Deadline, error) {
	const query = `SELECT id, period_id, artifact, due_at, created_at, updated_at
        FROM deadlines WHERE period_id = $1 ORDER BY due_at`
	var deadlines []models.Deadline
	if err := r.db.SelectContext(ctx, &deadlines, query, periodID); err != nil {
		return nil, fmt.Errorf("list deadlines: %w", err)
	}
	return deadlines, nil
}

// Upsert sets or moves the deadline for (period, artifact).
func (r *DeadlineRepository) Upsert(ctx context.Context, deadline *models.Deadline) error {
	if deadline.ID == "" {
		deadline.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	deadline.CreatedAt = now
	deadline.UpdatedAt = now
	const query = `INSERT INTO deadlines (id, period_id, artifact, due_at, created_at, updated_at)
        VALUES (:id, :period_id, :artifact, :due_at, :created_at, :updated_at)
        ON CONFLICT (period_id, artifact)
        DO UPDATE SET due_at = EXCLUDED.due_at, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, deadline); err != nil {
		return fmt.Errorf("upsert deadline: %w", err)
	}
	return nil
}

// Delete removes the deadline for (period, artifact), lifting the gate.
func (r *DeadlineRepository) Delete(ctx context.Context, periodID string, artifact models.ArtifactKind) error {
	const query = `DELETE FROM deadlines WHERE period_id = $1 AND artifact = $2`
	if _, err := r.db.ExecContext(ctx, query, periodID, artifact); err != nil {
		return fmt.Errorf("delete deadline: %w", err)
	}
	return nil
}
