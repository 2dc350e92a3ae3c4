package models

import "time"

// ApplicationStatus tracks the lifecycle of a topic application.
type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "PENDING"
	ApplicationStatusApproved ApplicationStatus = "APPROVED"
	ApplicationStatusRejected ApplicationStatus = "REJECTED"
)

// TopicApplication is a student's request for a slot on a topic. A student
// holds at most one non-rejected row per topic; re-applying after a
// rejection recycles the same row back to PENDING.
type TopicApplication struct {
	ID        string            `db:"id" json:"id"`
	StudentID string            `db:"student_id" json:"student_id"`
	TopicID   string            `db:"topic_id" json:"topic_id"`
	Note      *string           `db:"note" json:"note,omitempty"`
	Status    ApplicationStatus `db:"status" json:"status"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt time.Time         `db:"updated_at" json:"updated_at"`
}

// TopicApplicationDetail joins student and topic context.
type TopicApplicationDetail struct {
	TopicApplication
	StudentName string  `db:"student_name" json:"student_name"`
	StudentNIM  string  `db:"student_nim" json:"student_nim"`
	StudentGPA  float64 `db:"student_gpa" json:"student_gpa"`
	TopicTitle  string  `db:"topic_title" json:"topic_title"`
	TeacherID   string  `db:"teacher_id" json:"teacher_id"`
}

// ApplicationFilter defines filters for listing applications.
type ApplicationFilter struct {
	TopicID   string
	StudentID string
	TeacherID string
	Status    ApplicationStatus
	Page      int
	PageSize  int
}
