package models

import "time"

// EnrollmentType classifies a student's track for one period.
type EnrollmentType string

const (
	EnrollmentTypeNone            EnrollmentType = "NONE"
	EnrollmentTypePreThesis       EnrollmentType = "PRE_THESIS"
	EnrollmentTypeThesis          EnrollmentType = "THESIS"
	EnrollmentTypeFailedPreThesis EnrollmentType = "FAILED_PRE_THESIS"
	EnrollmentTypeFailedThesis    EnrollmentType = "FAILED_THESIS"
)

// AllowsAssignment reports whether a record of this type may take a new
// assignment of the given kind. A failed track pins the student to
// retaking that same track; PRE_THESIS and THESIS mean an assignment
// already exists.
func (t EnrollmentType) AllowsAssignment(kind CaseKind) bool {
	switch t {
	case EnrollmentTypeNone:
		return true
	case EnrollmentTypeFailedPreThesis:
		return kind == CaseKindPreThesis
	case EnrollmentTypeFailedThesis:
		return kind == CaseKindThesis
	default:
		return false
	}
}

// EnrollmentRecord tracks one student's registration state for one period.
// IsRegistered flips false→true exactly once per period; it is the guard
// against double assignment.
type EnrollmentRecord struct {
	ID           string         `db:"id" json:"id"`
	StudentID    string         `db:"student_id" json:"student_id"`
	PeriodID     string         `db:"period_id" json:"period_id"`
	Type         EnrollmentType `db:"type" json:"type"`
	IsRegistered bool           `db:"is_registered" json:"is_registered"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// EnrollmentFilter defines filters for listing enrollment records.
type EnrollmentFilter struct {
	PeriodID     string
	StudentID    string
	Type         EnrollmentType
	IsRegistered *bool
	Page         int
	PageSize     int
}
