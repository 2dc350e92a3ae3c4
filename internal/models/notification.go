package models

import "time"

// NotificationKind classifies emitted events.
type NotificationKind string

const (
	NotificationAssignment          NotificationKind = "ASSIGNMENT"
	NotificationApplicationReceived NotificationKind = "APPLICATION_RECEIVED"
	NotificationApplicationApproved NotificationKind = "APPLICATION_APPROVED"
	NotificationApplicationRejected NotificationKind = "APPLICATION_REJECTED"
	NotificationSubmissionReceived  NotificationKind = "SUBMISSION_RECEIVED"
	NotificationGradeRecorded       NotificationKind = "GRADE_RECORDED"
	NotificationDefenseScheduled    NotificationKind = "DEFENSE_SCHEDULED"
	NotificationRoleAssigned        NotificationKind = "ROLE_ASSIGNED"
)

// Notification is one delivered message. Emission is post-commit and
// best-effort; rows exist only for successfully persisted messages.
type Notification struct {
	ID          string           `db:"id" json:"id"`
	RecipientID string           `db:"recipient_id" json:"recipient_id"`
	Kind        NotificationKind `db:"kind" json:"kind"`
	Title       string           `db:"title" json:"title"`
	Message     string           `db:"message" json:"message"`
	ReadAt      *time.Time       `db:"read_at" json:"read_at,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}

// NotificationFilter defines filters for listing notifications.
type NotificationFilter struct {
	RecipientID string
	Unread      *bool
	Page        int
	PageSize    int
}
