package models

import "time"

// TopicStatus tracks whether a topic accepts new applications.
type TopicStatus string

const (
	TopicStatusOpen   TopicStatus = "OPEN"
	TopicStatusClosed TopicStatus = "CLOSED"
)

// Topic is a pre-thesis research subject offered by a supervisor for a
// period with its own slot budget and eligibility thresholds.
// Invariant: RemainingSlots >= 0; the topic closes when it hits zero.
type Topic struct {
	ID             string      `db:"id" json:"id"`
	TeacherID      string      `db:"teacher_id" json:"teacher_id"`
	PeriodID       string      `db:"period_id" json:"period_id"`
	Title          string      `db:"title" json:"title"`
	Description    string      `db:"description" json:"description"`
	MaxSlots       int         `db:"max_slots" json:"max_slots"`
	RemainingSlots int         `db:"remaining_slots" json:"remaining_slots"`
	MinGPA         float64     `db:"min_gpa" json:"min_gpa"`
	MinCredits     int         `db:"min_credits" json:"min_credits"`
	Status         TopicStatus `db:"status" json:"status"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
}

// TopicDetail joins supervisor context onto the topic.
type TopicDetail struct {
	Topic
	TeacherName string `db:"teacher_name" json:"teacher_name"`
}

// TopicFilter defines filters for listing topics.
type TopicFilter struct {
	PeriodID  string
	TeacherID string
	Status    TopicStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
