package models

import "time"

// CaseKind distinguishes the two supervision tracks.
type CaseKind string

const (
	CaseKindPreThesis CaseKind = "PRE_THESIS"
	CaseKindThesis    CaseKind = "THESIS"
)

// Valid reports whether the kind is one of the known tracks.
func (k CaseKind) Valid() bool {
	return k == CaseKindPreThesis || k == CaseKindThesis
}

// CapacityGrant is the slot budget a teacher holds for a period, split by
// track. Invariant: 0 <= remaining <= max for each track; remaining is
// only mutated inside an allocation transaction or an explicit resize.
type CapacityGrant struct {
	ID                      string    `db:"id" json:"id"`
	TeacherID               string    `db:"teacher_id" json:"teacher_id"`
	PeriodID                string    `db:"period_id" json:"period_id"`
	MaxPreThesisSlots       int       `db:"max_pre_thesis_slots" json:"max_pre_thesis_slots"`
	RemainingPreThesisSlots int       `db:"remaining_pre_thesis_slots" json:"remaining_pre_thesis_slots"`
	MaxThesisSlots          int       `db:"max_thesis_slots" json:"max_thesis_slots"`
	RemainingThesisSlots    int       `db:"remaining_thesis_slots" json:"remaining_thesis_slots"`
	CreatedAt               time.Time `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time `db:"updated_at" json:"updated_at"`
}

// Remaining returns the remaining slots for the given track.
func (g CapacityGrant) Remaining(kind CaseKind) int {
	if kind == CaseKindThesis {
		return g.RemainingThesisSlots
	}
	return g.RemainingPreThesisSlots
}

// Max returns the maximum slots for the given track.
func (g CapacityGrant) Max(kind CaseKind) int {
	if kind == CaseKindThesis {
		return g.MaxThesisSlots
	}
	return g.MaxPreThesisSlots
}

// InUse returns the consumed slot count for the given track.
func (g CapacityGrant) InUse(kind CaseKind) int {
	return g.Max(kind) - g.Remaining(kind)
}

// CapacityGrantDetail joins teacher context onto the grant.
type CapacityGrantDetail struct {
	CapacityGrant
	TeacherName string `db:"teacher_name" json:"teacher_name"`
	PeriodName  string `db:"period_name" json:"period_name"`
}

// CapacityFilter defines filters for listing grants.
type CapacityFilter struct {
	PeriodID  string
	TeacherID string
	Page      int
	PageSize  int
}
