package models

import "time"

// Student represents a learner eligible for supervision allocation.
type Student struct {
	ID        string    `db:"id" json:"id"`
	NIM       string    `db:"nim" json:"nim"`
	Email     string    `db:"email" json:"email"`
	FullName  string    `db:"full_name" json:"full_name"`
	GPA       float64   `db:"gpa" json:"gpa"`
	Credits   int       `db:"credits" json:"credits"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
