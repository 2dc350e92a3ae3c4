package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/satriadp/supervision-api/internal/models"
)

// SubmissionRepository stores the append-only milestone log. There is no
// update or delete path; the current artifact per kind is a projection.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create appends one upload to the log.
func (r *SubmissionRepository) Create(ctx context.Context, sub *models.Submission) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now().UTC()
	}
	const query = `INSERT INTO submissions (id, case_kind, case_id, kind, file_ref, submitted_at)
        VALUES (:id, :case_kind, :case_id, :kind, :file_ref, :submitted_at)`
	if _, err := r.db.NamedExecContext(ctx, query, sub); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// History returns the full log for a case, newest first.
func (r *SubmissionRepository) History(ctx context.Context, caseKind models.CaseKind, caseID string) ([]models.Submission, error) {
	const query = `SELECT id, case_kind, case_id, kind, file_ref, submitted_at
        FROM submissions
        WHERE case_kind = $1 AND case_id = $2
        ORDER BY submitted_at DESC, id DESC`
	var subs []models.Submission
	if err := r.db.SelectContext(ctx, &subs, query, caseKind, caseID); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return subs, nil
}

// Latest projects the current artifact per kind: the newest row wins.
func (r *SubmissionRepository) Latest(ctx context.Context, caseKind models.CaseKind, caseID string) ([]models.Submission, error) {
	const query = `SELECT DISTINCT ON (kind) id, case_kind, case_id, kind, file_ref, submitted_at
        FROM submissions
        WHERE case_kind = $1 AND case_id = $2
        ORDER BY kind, submitted_at DESC, id DESC`
	var subs []models.Submission
	if err := r.db.SelectContext(ctx, &subs, query, caseKind, caseID); err != nil {
		return nil, fmt.Errorf("project latest submissions: %w", err)
	}
	return subs, nil
}

// LatestOfKind returns the current artifact for one kind, if any.
func (r *SubmissionRepository) LatestOfKind(ctx context.Context, caseKind models.CaseKind, caseID string, kind models.SubmissionKind) (*models.Submission, error) {
	const query = `SELECT id, case_kind, case_id, kind, file_ref, submitted_at
        FROM submissions
        WHERE case_kind = $1 AND case_id = $2 AND kind = $3
        ORDER BY submitted_at DESC, id DESC
        LIMIT 1`
	var sub models.Submission
	if err := r.db.GetContext(ctx, &sub, query, caseKind, caseID, kind); err != nil {
		return nil, err
	}
	return &sub, nil
}
