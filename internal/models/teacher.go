package models

import "time"

// Teacher is a lecturer who can hold supervision capacity. NIP is the civil
// staff number, nullable because external co-examiners have none. Inactive
// teachers keep their historical cases but receive no new allocations.
type Teacher struct {
	ID        string    `db:"id" json:"id"`
	NIP       *string   `db:"nip" json:"nip,omitempty"`
	Email     string    `db:"email" json:"email"`
	FullName  string    `db:"full_name" json:"full_name"`
	Expertise *string   `db:"expertise" json:"expertise,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherFilter narrows roster listings. Search matches name and expertise.
type TeacherFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
