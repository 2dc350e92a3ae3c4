package models

import "time"

// UserRole enumerates the closed set of account roles.
type UserRole string

const (
	RoleStudent   UserRole = "STUDENT"
	RoleTeacher   UserRole = "TEACHER"
	RoleModerator UserRole = "MODERATOR"
	RoleAdmin     UserRole = "ADMIN"
)

// User is an authenticated account. Student and teacher accounts link to
// their roster row; moderator and admin accounts do not.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	StudentID    *string    `db:"student_id" json:"student_id,omitempty"`
	TeacherID    *string    `db:"teacher_id" json:"teacher_id,omitempty"`
	Active       bool       `db:"active" json:"active"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}
