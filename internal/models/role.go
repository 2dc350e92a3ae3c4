package models

import "time"

// ThesisRole is a teacher's function on a specific thesis case.
type ThesisRole string

const (
	ThesisRoleSupervisor ThesisRole = "SUPERVISOR"
	ThesisRoleReviewer   ThesisRole = "REVIEWER"
	ThesisRoleCommittee  ThesisRole = "COMMITTEE"
)

// RoleAssignment links a teacher to a thesis under one role. Unique per
// (thesis, teacher, role); a supervisor may not simultaneously hold the
// reviewer or committee role on the same thesis.
type RoleAssignment struct {
	ID        string     `db:"id" json:"id"`
	ThesisID  string     `db:"thesis_id" json:"thesis_id"`
	TeacherID string     `db:"teacher_id" json:"teacher_id"`
	Role      ThesisRole `db:"role" json:"role"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// RoleAssignmentDetail joins teacher context onto the role row.
type RoleAssignmentDetail struct {
	RoleAssignment
	TeacherName string `db:"teacher_name" json:"teacher_name"`
}
