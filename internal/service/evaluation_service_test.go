package service

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satriadp/supervision-api/internal/models"
	appErrors "github.com/satriadp/supervision-api/pkg/errors"
)

type evaluationFixture struct {
	svc         *EvaluationService
	grades      *mockGradeRepo
	roles       *mockRoleRepo
	theses      *mockThesisRepo
	preTheses   *mockPreThesisRepo
	enrollments *mockEnrollmentRepo
	deadlines   *mockDeadlineRepo
	notify      *mockNotifier
	mock        sqlmock.Sqlmock
	cleanup     func()
}

func newEvaluationFixture(t *testing.T) *evaluationFixture {
	db, mock, cleanup := newTxMock(t)
	f := &evaluationFixture{
		grades: &mockGradeRepo{},
		roles: &mockRoleRepo{roles: []models.RoleAssignment{
			{ThesisID: "th-1", TeacherID: "teacher-1", Role: models.ThesisRoleSupervisor},
		}},
		theses: &mockThesisRepo{cases: map[string]models.ThesisCase{
			"th-1": {
				ID: "th-1", StudentID: "student-2", SupervisorID: "teacher-1",
				PeriodID: "period-1", Title: "Consensus under churn",
				Status: models.CaseStatusPending,
			},
		}},
		preTheses: &mockPreThesisRepo{cases: map[string]models.PreThesisCase{
			"pre-1": {
				ID: "pre-1", StudentID: "student-1", TeacherID: "teacher-1",
				PeriodID: "period-1", Title: "Stream joins",
				Status: models.CaseStatusPending,
			},
		}},
		enrollments: &mockEnrollmentRepo{records: map[string]models.EnrollmentRecord{}},
		deadlines:   &mockDeadlineRepo{deadlines: map[string]models.Deadline{}},
		notify:      &mockNotifier{},
		mock:        mock,
		cleanup:     cleanup,
	}
	teachers := &mockTeacherReader{teachers: map[string]models.Teacher{
		"teacher-1": {ID: "teacher-1", FullName: "Dr. One", Active: true},
		"teacher-2": {ID: "teacher-2", FullName: "Dr. Two", Active: true},
		"teacher-3": {ID: "teacher-3", FullName: "Dr. Three", Active: false},
	}}
	gate := NewDeadlineGate(f.deadlines, nil, time.Minute, nil, nil)
	f.svc = NewEvaluationService(f.grades, f.roles, f.theses, f.preTheses, f.enrollments, teachers, gate, f.notify, db, nil, nil)
	return f
}

func TestEvaluationServiceRecordGradeOverwrites(t *testing.T) {
	f := newEvaluationFixture(t)
	defer f.cleanup()

	first, err := f.svc.RecordGrade(context.Background(), teacherActor("teacher-1"), RecordGradeRequest{
		CaseKind: models.CaseKindPreThesis, CaseID: "pre-1", Value: 70,
	})
	require.NoError(t, err)
	assert.Equal(t, 70.0, first.Value)

	_, err = f.svc.RecordGrade(context.Background(), teacherActor("teacher-1"), RecordGradeRequest{
		CaseKind: models.CaseKindPreThesis, CaseID: "pre-1", Value: 85,
	})
	require.NoError(t, err)

	grades, err := f.svc.ListGrades(context.Background(), models.CaseKindPreThesis, "pre-1")
	require.NoError(t, err)
	require.Len(t, grades, 1)
	assert.Equal(t, 85.0, grades[0].Value)
}

func TestEvaluationServiceRecordGradeRequiresRole(t *testing.T) {
	f := newEvaluationFixture(t)
	defer f.cleanup()

	_, err := f.svc.RecordGrade(context.Background(), teacherActor("teacher-2"), RecordGradeRequest{
		CaseKind: models.CaseKindThesis, CaseID: "th-1", Value: 80,
	})
	requireErrCode(t, err, appErrors.ErrForbidden.Code)

	f.roles.roles = append(f.roles.roles, models.RoleAssignment{
		ThesisID: "th-1", TeacherID: "teacher-2", Role: models.ThesisRoleReviewer,
	})
	_, err = f.svc.RecordGrade(context.Background(), teacherActor("teacher-2"), RecordGradeRequest{
		CaseKind: models.CaseKindThesis, CaseID: "th-1", Value: 80,
	})
	require.NoError(t, err)
}

func TestEvaluationServiceRecordGradeRejectsOutOfRange(t *testing.T) {
	f := newEvaluationFixture(t)
	defer f.cleanup()

	_, err := f.svc.RecordGrade(context.Background(), teacherActor("teacher-1"), RecordGradeRequest{
		CaseKind: models.CaseKindPreThesis, CaseID: "pre-1", Value: 101,
	})
	requireErrCode(t, err, appErrors.ErrValidation.Code)
}

func TestEvaluationServiceRecordGradeHonorsGradingWindow(t *testing.T) {
	f := newEvaluationFixture(t)
	defer f.cleanup()
	past := time.Now().Add(-time.Hour).UTC()
	f.deadlines.deadlines[deadlineKey("period-1", models.ArtifactPreThesisGrading)] = models.Deadline{
		PeriodID: "period-1", Artifact: models.ArtifactPreThesisGrading, DueAt: past,
	}

	_, err := f.svc.RecordGrade(context.Background(), teacherActor("teacher-1"), RecordGradeRequest{
		CaseKind: models.CaseKindPreThesis, CaseID: "pre-1", Value: 80,
	})
	requireErrCode(t, err, appErrors.ErrDeadlinePassed.Code)
	assert.Empty(t, f.grades.grades)
}

func TestEvaluationServiceSetDefenseDate(t *testing.T) {
	f := newEvaluationFixture(t)
	defer f.cleanup()
	future := time.Now().Add(48 * time.Hour)

	err := f.svc.SetDefenseDate(context.Background(), teacherActor("teacher-1"), "th-1", SetDefenseDateRequest{
		DefenseDate: future,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, f.theses.defense["th-1"])

	// Student and supervisor are both told.
	require.Len(t, f.notify.emitted, 2)
	assert.Equal(t, "student-2", f.notify.emitted[0].RecipientID)
	assert.Equal(t, "teacher-1", f.notify.emitted[1].RecipientID)
}

func TestEvaluationServiceSetDefenseDateRejectsPast(t *testing.T) {
	f := newEvaluationFixture(t)
	defer f.cleanup()

	err := f.svc.SetDefenseDate(context.Background(), teacherActor("teacher-1"), "th-1", SetDefenseDateRequest{
		DefenseDate: time.Now().Add(-time.Hour),
	})
	requireErrCode(t, err, appErrors.ErrValidation.Code)
	assert.Empty(t, f.theses.defense)
}

func TestEvaluationServiceAssignReviewer(t *testing.T) {
	f := newEvaluationFixture(t)
	defer f.cleanup()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	err := f.svc.AssignReviewer(context.Background(), operatorActor(), "th-1", AssignReviewerRequest{TeacherID: "teacher-2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"teacher-2"}, f.roles.replaced[models.ThesisRoleReviewer])
	require.Len(t, f.notify.emitted, 1)
	assert.Equal(t, models.NotificationRoleAssigned, f.notify.emitted[0].Kind)
}

func TestEvaluationServiceSupervisorCannotReview(t *testing.T) {
	f := newEvaluationFixture(t)
	defer f.cleanup()

	err := f.svc.AssignReviewer(context.Background(), operatorActor(), "th-1", AssignReviewerRequest{TeacherID: "teacher-1"})
	requireErrCode(t, err, appErrors.ErrConflict.Code)
	assert.Empty(t, f.roles.replaced)
}

func TestEvaluationServiceAssignCommitteeRejectsInactiveTeacher(t *testing.T) {
	f := newEvaluationFixture(t)
	defer f.cleanup()

	err := f.svc.AssignCommittee(context.Background(), operatorActor(), "th-1", AssignCommitteeRequest{
		TeacherIDs: []string{"teacher-2", "teacher-3"},
	})
	requireErrCode(t, err, appErrors.ErrInvalidState.Code)
	assert.Empty(t, f.roles.replaced)
}

func TestEvaluationServiceSetFinalGrade(t *testing.T) {
	f := newEvaluationFixture(t)
	defer f.cleanup()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	err := f.svc.SetFinalGrade(context.Background(), operatorActor(), SetFinalGradeRequest{
		CaseKind: models.CaseKindPreThesis, CaseID: "pre-1",
		Value: 88, Status: models.CaseStatusGraded,
	})
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())
	assert.Equal(t, 88.0, f.preTheses.graded["pre-1"])
	require.Len(t, f.notify.emitted, 1)
	assert.Equal(t, "student-1", f.notify.emitted[0].RecipientID)
}

func TestEvaluationServiceSetFinalGradeOperatorOnly(t *testing.T) {
	f := newEvaluationFixture(t)
	defer f.cleanup()

	err := f.svc.SetFinalGrade(context.Background(), teacherActor("teacher-1"), SetFinalGradeRequest{
		CaseKind: models.CaseKindPreThesis, CaseID: "pre-1",
		Value: 88, Status: models.CaseStatusGraded,
	})
	requireErrCode(t, err, appErrors.ErrForbidden.Code)
}

func TestEvaluationServiceFinalGradeFailedMovesToFailedTrack(t *testing.T) {
	f := newEvaluationFixture(t)
	defer f.cleanup()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	err := f.svc.SetFinalGrade(context.Background(), operatorActor(), SetFinalGradeRequest{
		CaseKind: models.CaseKindThesis, CaseID: "th-1",
		Value: 40, Status: models.CaseStatusFailed,
	})
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())

	record := f.enrollments.records[enrollmentKey("student-2", "period-1")]
	assert.Equal(t, models.EnrollmentTypeFailedThesis, record.Type)
}

func TestEvaluationServiceFinalGradeFailedPreThesisTrack(t *testing.T) {
	f := newEvaluationFixture(t)
	defer f.cleanup()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	err := f.svc.SetFinalGrade(context.Background(), operatorActor(), SetFinalGradeRequest{
		CaseKind: models.CaseKindPreThesis, CaseID: "pre-1",
		Value: 35, Status: models.CaseStatusFailed,
	})
	require.NoError(t, err)

	record := f.enrollments.records[enrollmentKey("student-1", "period-1")]
	assert.Equal(t, models.EnrollmentTypeFailedPreThesis, record.Type)
}

func TestEvaluationServiceFinalGradePassLeavesTrackAlone(t *testing.T) {
	f := newEvaluationFixture(t)
	defer f.cleanup()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	err := f.svc.SetFinalGrade(context.Background(), operatorActor(), SetFinalGradeRequest{
		CaseKind: models.CaseKindThesis, CaseID: "th-1",
		Value: 90, Status: models.CaseStatusComplete,
	})
	require.NoError(t, err)
	assert.Empty(t, f.enrollments.records)
}
