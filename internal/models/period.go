package models

import "time"

// Period models an academic semester. Flags are maintained exclusively by
// the dedicated activate/current/publish operations so that at most one
// row carries each flag.
type Period struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	StartDate   time.Time `db:"start_date" json:"start_date"`
	EndDate     time.Time `db:"end_date" json:"end_date"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	IsCurrent   bool      `db:"is_current" json:"is_current"`
	IsPublished bool      `db:"is_published" json:"is_published"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// PeriodFilter defines filters supported by the period list endpoint.
type PeriodFilter struct {
	IsActive    *bool
	IsPublished *bool
	Page        int
	PageSize    int
}
