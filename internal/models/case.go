package models

import "time"

// CaseStatus is the coarse lifecycle of an accepted assignment. Submission
// progress is tracked by the append-only submission log, not by this field.
type CaseStatus string

const (
	CaseStatusPending  CaseStatus = "PENDING"
	CaseStatusGraded   CaseStatus = "GRADED"
	CaseStatusFailed   CaseStatus = "FAILED"
	CaseStatusComplete CaseStatus = "COMPLETE"
)

// PreThesisCase is an accepted pre-thesis assignment: a student working a
// topic under the topic's supervisor for a period.
type PreThesisCase struct {
	ID          string     `db:"id" json:"id"`
	StudentID   string     `db:"student_id" json:"student_id"`
	TopicID     string     `db:"topic_id" json:"topic_id"`
	TeacherID   string     `db:"teacher_id" json:"teacher_id"`
	PeriodID    string     `db:"period_id" json:"period_id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	Status      CaseStatus `db:"status" json:"status"`
	VideoURL    *string    `db:"video_url" json:"video_url,omitempty"`
	FinalGrade  *float64   `db:"final_grade" json:"final_grade,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// ThesisCase is an accepted thesis assignment supervised by a teacher
// directly (no topic). The supervisor also appears as a RoleAssignment row
// so reviewer/committee exclusivity can be checked uniformly.
type ThesisCase struct {
	ID           string     `db:"id" json:"id"`
	StudentID    string     `db:"student_id" json:"student_id"`
	SupervisorID string     `db:"supervisor_id" json:"supervisor_id"`
	PeriodID     string     `db:"period_id" json:"period_id"`
	Title        string     `db:"title" json:"title"`
	Description  string     `db:"description" json:"description"`
	Status       CaseStatus `db:"status" json:"status"`
	VideoURL     *string    `db:"video_url" json:"video_url,omitempty"`
	DefenseDate  *time.Time `db:"defense_date" json:"defense_date,omitempty"`
	FinalGrade   *float64   `db:"final_grade" json:"final_grade,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// CaseFilter defines filters for listing cases.
type CaseFilter struct {
	PeriodID  string
	StudentID string
	TeacherID string
	Status    CaseStatus
	Page      int
	PageSize  int
}

// CaseSnapshot is the read-only projection consumed by report export.
type CaseSnapshot struct {
	CaseID      string            `json:"case_id"`
	Kind        CaseKind          `json:"kind"`
	Title       string            `json:"title"`
	Status      CaseStatus        `json:"status"`
	StudentName string            `json:"student_name"`
	StudentNIM  string            `json:"student_nim"`
	PeriodName  string            `json:"period_name"`
	Supervisor  string            `json:"supervisor"`
	DefenseDate *time.Time        `json:"defense_date,omitempty"`
	FinalGrade  *float64          `json:"final_grade,omitempty"`
	Grades      []EvaluationGrade `json:"grades"`
}
