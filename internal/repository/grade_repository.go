package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/satriadp/supervision-api/internal/models"
)

// GradeRepository stores evaluator grades. One row per (case, evaluator);
// the unique index backs the upsert.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs the repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// Upsert inserts the evaluator's grade or overwrites their previous one.
func (r *GradeRepository) Upsert(ctx context.Context, grade *models.EvaluationGrade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	grade.CreatedAt = now
	grade.UpdatedAt = now
	const query = `INSERT INTO evaluation_grades (id, case_kind, case_id, evaluator_id, value, feedback, created_at, updated_at)
        VALUES (:id, :case_kind, :case_id, :evaluator_id, :value, :feedback, :created_at, :updated_at)
        ON CONFLICT (case_kind, case_id, evaluator_id)
        DO UPDATE SET value = EXCLUDED.value, feedback = EXCLUDED.feedback, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("upsert evaluation grade: %w", err)
	}
	return nil
}

// ListByCase returns every evaluator's grade for a case.
func (r *GradeRepository) ListByCase(ctx context.Context, caseKind models.CaseKind, caseID string) ([]models.EvaluationGrade, error) {
	const query = `SELECT id, case_kind, case_id, evaluator_id, value, feedback, created_at, updated_at
        FROM evaluation_grades
        WHERE case_kind = $1 AND case_id = $2
        ORDER BY created_at`
	var grades []models.EvaluationGrade
	if err := r.db.SelectContext(ctx, &grades, query, caseKind, caseID); err != nil {
		return nil, fmt.Errorf("list evaluation grades: %w", err)
	}
	return grades, nil
}

// FindByEvaluator returns the evaluator's grade for a case, if any.
func (r *GradeRepository) FindByEvaluator(ctx context.Context, caseKind models.CaseKind, caseID, evaluatorID string) (*models.EvaluationGrade, error) {
	const query = `SELECT id, case_kind, case_id, evaluator_id, value, feedback, created_at, updated_at
        FROM evaluation_grades
        WHERE case_kind = $1 AND case_id = $2 AND evaluator_id = $3`
	var grade models.EvaluationGrade
	if err := r.db.GetContext(ctx, &grade, query, caseKind, caseID, evaluatorID); err != nil {
		return nil, err
	}
	return &grade, nil
}
