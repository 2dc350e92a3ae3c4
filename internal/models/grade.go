package models

import "time"

// EvaluationGrade records one evaluator's grade for one case. One row per
// (case, evaluator); re-grading updates the row in place. Grades are never
// aggregated into the case final grade by the engine.
type EvaluationGrade struct {
	ID          string    `db:"id" json:"id"`
	CaseKind    CaseKind  `db:"case_kind" json:"case_kind"`
	CaseID      string    `db:"case_id" json:"case_id"`
	EvaluatorID string    `db:"evaluator_id" json:"evaluator_id"`
	Value       float64   `db:"value" json:"value"`
	Feedback    *string   `db:"feedback" json:"feedback,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
