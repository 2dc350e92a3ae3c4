package models

import "time"

// SubmissionKind enumerates milestone artifact types.
type SubmissionKind string

const (
	SubmissionKindReport       SubmissionKind = "REPORT"
	SubmissionKindProject      SubmissionKind = "PROJECT"
	SubmissionKindPresentation SubmissionKind = "PRESENTATION"
)

// Valid reports whether the kind is a known artifact type.
func (k SubmissionKind) Valid() bool {
	switch k {
	case SubmissionKindReport, SubmissionKindProject, SubmissionKindPresentation:
		return true
	}
	return false
}

// Submission is one append-only milestone upload for a case. Rows are never
// overwritten; the current artifact per kind is the max-by-submitted_at row.
type Submission struct {
	ID          string         `db:"id" json:"id"`
	CaseKind    CaseKind       `db:"case_kind" json:"case_kind"`
	CaseID      string         `db:"case_id" json:"case_id"`
	Kind        SubmissionKind `db:"kind" json:"kind"`
	FileRef     string         `db:"file_ref" json:"file_ref"`
	SubmittedAt time.Time      `db:"submitted_at" json:"submitted_at"`
}
