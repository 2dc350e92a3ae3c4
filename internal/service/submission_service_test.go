package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satriadp/supervision-api/internal/models"
	appErrors "github.com/satriadp/supervision-api/pkg/errors"
)

type submissionFixture struct {
	svc       *SubmissionService
	repo      *mockSubmissionRepo
	preTheses *mockPreThesisRepo
	theses    *mockThesisRepo
	roles     *mockRoleRepo
	deadlines *mockDeadlineRepo
	notify    *mockNotifier
}

func newSubmissionFixture(t *testing.T) *submissionFixture {
	t.Helper()
	f := &submissionFixture{
		repo: &mockSubmissionRepo{},
		preTheses: &mockPreThesisRepo{cases: map[string]models.PreThesisCase{
			"pre-1": {
				ID: "pre-1", StudentID: "student-1", TopicID: "topic-1",
				TeacherID: "teacher-1", PeriodID: "period-1",
				Title: "Stream joins", Status: models.CaseStatusPending,
			},
		}},
		theses: &mockThesisRepo{cases: map[string]models.ThesisCase{
			"th-1": {
				ID: "th-1", StudentID: "student-2", SupervisorID: "teacher-1",
				PeriodID: "period-1", Title: "Consensus under churn",
				Status: models.CaseStatusPending,
			},
		}},
		roles:     &mockRoleRepo{},
		deadlines: &mockDeadlineRepo{deadlines: map[string]models.Deadline{}},
		notify:    &mockNotifier{},
	}
	gate := NewDeadlineGate(f.deadlines, nil, time.Minute, nil, nil)
	f.svc = NewSubmissionService(f.repo, f.preTheses, f.theses, f.roles, gate, f.notify, nil, nil)
	return f
}

func TestSubmissionServiceSubmit(t *testing.T) {
	f := newSubmissionFixture(t)

	sub, err := f.svc.Submit(context.Background(), studentActor("student-1"), SubmitRequest{
		CaseKind: models.CaseKindPreThesis,
		CaseID:   "pre-1",
		Kind:     models.SubmissionKindReport,
		FileRef:  "s3://bucket/report-v1.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionKindReport, sub.Kind)
	require.Len(t, f.repo.submissions, 1)

	require.Len(t, f.notify.emitted, 1)
	assert.Equal(t, "teacher-1", f.notify.emitted[0].RecipientID)
	assert.Equal(t, models.NotificationSubmissionReceived, f.notify.emitted[0].Kind)
}

func TestSubmissionServiceSubmitAfterDeadlineLeavesNoRow(t *testing.T) {
	f := newSubmissionFixture(t)
	past := time.Now().Add(-time.Hour).UTC()
	f.deadlines.deadlines[deadlineKey("period-1", models.ArtifactPreThesisReport)] = models.Deadline{
		PeriodID: "period-1", Artifact: models.ArtifactPreThesisReport, DueAt: past,
	}

	_, err := f.svc.Submit(context.Background(), studentActor("student-1"), SubmitRequest{
		CaseKind: models.CaseKindPreThesis,
		CaseID:   "pre-1",
		Kind:     models.SubmissionKindReport,
		FileRef:  "s3://bucket/report-late.pdf",
	})
	requireErrCode(t, err, appErrors.ErrDeadlinePassed.Code)
	assert.Empty(t, f.repo.submissions)
	assert.Empty(t, f.notify.emitted)
}

func TestSubmissionServiceSubmitOtherArtifactStaysOpen(t *testing.T) {
	f := newSubmissionFixture(t)
	// Only the report window is closed; project uploads keep working.
	past := time.Now().Add(-time.Hour).UTC()
	f.deadlines.deadlines[deadlineKey("period-1", models.ArtifactPreThesisReport)] = models.Deadline{
		PeriodID: "period-1", Artifact: models.ArtifactPreThesisReport, DueAt: past,
	}

	_, err := f.svc.Submit(context.Background(), studentActor("student-1"), SubmitRequest{
		CaseKind: models.CaseKindPreThesis,
		CaseID:   "pre-1",
		Kind:     models.SubmissionKindProject,
		FileRef:  "s3://bucket/project-v1.zip",
	})
	require.NoError(t, err)
	require.Len(t, f.repo.submissions, 1)
}

func TestSubmissionServiceSubmitRejectsNonOwner(t *testing.T) {
	f := newSubmissionFixture(t)

	_, err := f.svc.Submit(context.Background(), studentActor("student-9"), SubmitRequest{
		CaseKind: models.CaseKindPreThesis,
		CaseID:   "pre-1",
		Kind:     models.SubmissionKindReport,
		FileRef:  "s3://bucket/report.pdf",
	})
	requireErrCode(t, err, appErrors.ErrForbidden.Code)
}

func TestSubmissionServiceSubmitRejectsClosedCase(t *testing.T) {
	f := newSubmissionFixture(t)
	c := f.preTheses.cases["pre-1"]
	c.Status = models.CaseStatusComplete
	f.preTheses.cases["pre-1"] = c

	_, err := f.svc.Submit(context.Background(), studentActor("student-1"), SubmitRequest{
		CaseKind: models.CaseKindPreThesis,
		CaseID:   "pre-1",
		Kind:     models.SubmissionKindReport,
		FileRef:  "s3://bucket/report.pdf",
	})
	requireErrCode(t, err, appErrors.ErrInvalidState.Code)
}

func TestSubmissionServiceLatestKeepsNewestPerKind(t *testing.T) {
	f := newSubmissionFixture(t)
	base := time.Now().UTC()
	f.repo.submissions = []models.Submission{
		{ID: "s1", CaseKind: models.CaseKindPreThesis, CaseID: "pre-1", Kind: models.SubmissionKindReport, FileRef: "v1", SubmittedAt: base.Add(-2 * time.Hour)},
		{ID: "s2", CaseKind: models.CaseKindPreThesis, CaseID: "pre-1", Kind: models.SubmissionKindReport, FileRef: "v2", SubmittedAt: base.Add(-time.Hour)},
		{ID: "s3", CaseKind: models.CaseKindPreThesis, CaseID: "pre-1", Kind: models.SubmissionKindProject, FileRef: "p1", SubmittedAt: base.Add(-time.Hour)},
	}

	latest, err := f.svc.Latest(context.Background(), studentActor("student-1"), models.CaseKindPreThesis, "pre-1")
	require.NoError(t, err)
	require.Len(t, latest, 2)
	byKind := map[models.SubmissionKind]models.Submission{}
	for _, sub := range latest {
		byKind[sub.Kind] = sub
	}
	assert.Equal(t, "v2", byKind[models.SubmissionKindReport].FileRef)
	assert.Equal(t, "p1", byKind[models.SubmissionKindProject].FileRef)
}

func TestSubmissionServiceReadAllowsThesisRoleHolders(t *testing.T) {
	f := newSubmissionFixture(t)
	f.roles.roles = append(f.roles.roles, models.RoleAssignment{
		ThesisID: "th-1", TeacherID: "teacher-2", Role: models.ThesisRoleReviewer,
	})

	_, err := f.svc.History(context.Background(), teacherActor("teacher-2"), models.CaseKindThesis, "th-1")
	require.NoError(t, err)

	_, err = f.svc.History(context.Background(), teacherActor("teacher-3"), models.CaseKindThesis, "th-1")
	requireErrCode(t, err, appErrors.ErrForbidden.Code)
}

func TestSubmissionServiceSetVideoURL(t *testing.T) {
	f := newSubmissionFixture(t)

	err := f.svc.SetVideoURL(context.Background(), studentActor("student-2"), SetVideoURLRequest{
		CaseKind: models.CaseKindThesis,
		CaseID:   "th-1",
		VideoURL: "https://videos.example.edu/defense-rec",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://videos.example.edu/defense-rec", f.theses.videos["th-1"])

	err = f.svc.SetVideoURL(context.Background(), studentActor("student-1"), SetVideoURLRequest{
		CaseKind: models.CaseKindThesis,
		CaseID:   "th-1",
		VideoURL: "https://videos.example.edu/defense-rec",
	})
	requireErrCode(t, err, appErrors.ErrForbidden.Code)
}
