package models

import (
	"fmt"
	"time"
)

// ArtifactKind keys a deadline row within a period.
type ArtifactKind string

const (
	ArtifactPreThesisReport       ArtifactKind = "PRE_THESIS_REPORT"
	ArtifactPreThesisProject      ArtifactKind = "PRE_THESIS_PROJECT"
	ArtifactPreThesisPresentation ArtifactKind = "PRE_THESIS_PRESENTATION"
	ArtifactPreThesisGrading      ArtifactKind = "PRE_THESIS_GRADING"
	ArtifactThesisReport          ArtifactKind = "THESIS_REPORT"
	ArtifactThesisProject         ArtifactKind = "THESIS_PROJECT"
	ArtifactThesisPresentation    ArtifactKind = "THESIS_PRESENTATION"
	ArtifactThesisGrading         ArtifactKind = "THESIS_GRADING"
	ArtifactThesisDefense         ArtifactKind = "THESIS_DEFENSE"
)

// ArtifactForSubmission maps a case track and submission type to the
// deadline key guarding it.
func ArtifactForSubmission(caseKind CaseKind, kind SubmissionKind) ArtifactKind {
	prefix := "PRE_THESIS"
	if caseKind == CaseKindThesis {
		prefix = "THESIS"
	}
	return ArtifactKind(fmt.Sprintf("%s_%s", prefix, kind))
}

// ArtifactForGrading maps a case track to its grading window key.
func ArtifactForGrading(caseKind CaseKind) ArtifactKind {
	if caseKind == CaseKindThesis {
		return ArtifactThesisGrading
	}
	return ArtifactPreThesisGrading
}

// Deadline is one configured cutoff. Absence of a row for a
// (period, artifact) pair means no deadline is enforced.
type Deadline struct {
	ID        string       `db:"id" json:"id"`
	PeriodID  string       `db:"period_id" json:"period_id"`
	Artifact  ArtifactKind `db:"artifact" json:"artifact"`
	DueAt     time.Time    `db:"due_at" json:"due_at"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}
