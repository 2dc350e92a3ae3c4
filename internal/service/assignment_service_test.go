package service

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satriadp/supervision-api/internal/models"
	appErrors "github.com/satriadp/supervision-api/pkg/errors"
)

type assignmentFixture struct {
	svc         *AssignmentService
	topics      *mockTopicRepo
	capacity    *mockCapacityRepo
	enrollments *mockEnrollmentRepo
	preTheses   *mockPreThesisRepo
	theses      *mockThesisRepo
	roles       *mockRoleRepo
	notify      *mockNotifier
	mock        sqlmock.Sqlmock
	cleanup     func()
}

func newAssignmentFixture(t *testing.T) *assignmentFixture {
	db, mock, cleanup := newTxMock(t)
	f := &assignmentFixture{
		topics:      &mockTopicRepo{topics: map[string]models.Topic{}},
		capacity:    &mockCapacityRepo{grants: map[string]models.CapacityGrant{}},
		enrollments: &mockEnrollmentRepo{records: map[string]models.EnrollmentRecord{}},
		preTheses:   &mockPreThesisRepo{},
		theses:      &mockThesisRepo{},
		roles:       &mockRoleRepo{},
		notify:      &mockNotifier{},
		mock:        mock,
		cleanup:     cleanup,
	}
	students := &mockStudentReader{students: map[string]models.Student{
		"student-1": {ID: "student-1", FullName: "Ana", GPA: 3.2, Credits: 110, Active: true},
		"student-2": {ID: "student-2", FullName: "Budi", GPA: 3.0, Credits: 100, Active: true},
		"student-3": {ID: "student-3", FullName: "Citra", GPA: 3.8, Credits: 130, Active: true},
	}}
	teachers := &mockTeacherReader{teachers: map[string]models.Teacher{
		"teacher-1": {ID: "teacher-1", FullName: "Dr. One", Active: true},
		"teacher-2": {ID: "teacher-2", FullName: "Dr. Two", Active: true},
	}}
	periods := &mockPeriodReader{periods: map[string]models.Period{
		"period-1": {ID: "period-1", Name: "2026 Odd", IsActive: true, IsPublished: true},
	}}
	f.svc = NewAssignmentService(f.topics, f.capacity, f.enrollments, f.preTheses, f.theses, f.roles,
		students, teachers, periods, f.notify, db, nil, nil, nil)
	return f
}

func (f *assignmentFixture) grant(id, teacherID string, preRemaining, thesisRemaining int) {
	f.capacity.grants[id] = models.CapacityGrant{
		ID: id, TeacherID: teacherID, PeriodID: "period-1",
		MaxPreThesisSlots: preRemaining, RemainingPreThesisSlots: preRemaining,
		MaxThesisSlots: thesisRemaining, RemainingThesisSlots: thesisRemaining,
	}
}

func TestAssignmentServiceDirectedTopic(t *testing.T) {
	f := newAssignmentFixture(t)
	defer f.cleanup()
	f.grant("grant-1", "teacher-1", 2, 1)
	f.topics.topics["topic-1"] = models.Topic{
		ID: "topic-1", TeacherID: "teacher-1", PeriodID: "period-1",
		Title: "Stream joins", MaxSlots: 1, RemainingSlots: 1,
		Status: models.TopicStatusOpen,
	}
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	pairing, err := f.svc.AssignDirected(context.Background(), operatorActor(), DirectedAssignmentRequest{
		StudentID: "student-1", TopicID: "topic-1",
	})
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())

	assert.Equal(t, "teacher-1", pairing.TeacherID)
	assert.Equal(t, "topic-1", pairing.TopicID)
	require.Len(t, f.preTheses.created, 1)
	assert.Equal(t, "Stream joins", f.preTheses.created[0].Title)
	assert.Equal(t, []string{enrollmentKey("student-1", "period-1")}, f.enrollments.registered)
	assert.Equal(t, models.TopicStatusClosed, f.topics.topics["topic-1"].Status)
}

func TestAssignmentServiceDirectedNeedsOneTarget(t *testing.T) {
	f := newAssignmentFixture(t)
	defer f.cleanup()

	_, err := f.svc.AssignDirected(context.Background(), operatorActor(), DirectedAssignmentRequest{
		StudentID: "student-1", TopicID: "topic-1", TeacherID: "teacher-1",
	})
	requireErrCode(t, err, appErrors.ErrValidation.Code)

	_, err = f.svc.AssignDirected(context.Background(), operatorActor(), DirectedAssignmentRequest{StudentID: "student-1"})
	requireErrCode(t, err, appErrors.ErrValidation.Code)
}

func TestAssignmentServiceDirectedTeacher(t *testing.T) {
	f := newAssignmentFixture(t)
	defer f.cleanup()
	f.grant("grant-1", "teacher-1", 0, 1)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	pairing, err := f.svc.AssignDirected(context.Background(), operatorActor(), DirectedAssignmentRequest{
		StudentID: "student-1", TeacherID: "teacher-1", Title: "Consensus under churn",
	})
	require.NoError(t, err)

	assert.Equal(t, "teacher-1", pairing.TeacherID)
	assert.Empty(t, pairing.TopicID)
	require.Len(t, f.theses.created, 1)
	assert.Equal(t, "Consensus under churn", f.theses.created[0].Title)
	require.Len(t, f.roles.roles, 1)
	assert.Equal(t, models.ThesisRoleSupervisor, f.roles.roles[0].Role)
	assert.Equal(t, 0, f.capacity.grants["grant-1"].RemainingThesisSlots)
	record := f.enrollments.records[enrollmentKey("student-1", "period-1")]
	assert.Equal(t, models.EnrollmentTypeThesis, record.Type)
	assert.True(t, record.IsRegistered)
}

func TestAssignmentServiceDirectedTeacherExhausted(t *testing.T) {
	f := newAssignmentFixture(t)
	defer f.cleanup()
	f.grant("grant-1", "teacher-1", 2, 0)
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.AssignDirected(context.Background(), operatorActor(), DirectedAssignmentRequest{
		StudentID: "student-1", TeacherID: "teacher-1", Title: "Consensus under churn",
	})
	requireErrCode(t, err, appErrors.ErrCapacityExhausted.Code)
	require.NoError(t, f.mock.ExpectationsWereMet())
	assert.Empty(t, f.theses.created)
	assert.Empty(t, f.enrollments.registered)
}

func TestAssignmentServiceRandomThesisBatch(t *testing.T) {
	f := newAssignmentFixture(t)
	defer f.cleanup()
	f.grant("grant-1", "teacher-1", 0, 2)
	f.grant("grant-2", "teacher-2", 0, 1)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	pairings, err := f.svc.AssignRandom(context.Background(), operatorActor(), RandomAssignmentRequest{
		PeriodID:   "period-1",
		Kind:       models.CaseKindThesis,
		StudentIDs: []string{"student-1", "student-2", "student-3"},
		Seed:       42,
	})
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())
	require.Len(t, pairings, 3)

	// Every student is paired exactly once and no teacher exceeds the
	// capacity that was locked for the batch.
	seen := map[string]bool{}
	perTeacher := map[string]int{}
	for _, pairing := range pairings {
		assert.False(t, seen[pairing.StudentID])
		seen[pairing.StudentID] = true
		perTeacher[pairing.TeacherID]++
	}
	assert.LessOrEqual(t, perTeacher["teacher-1"], 2)
	assert.LessOrEqual(t, perTeacher["teacher-2"], 1)
	assert.Equal(t, 0, f.capacity.grants["grant-1"].RemainingThesisSlots)
	assert.Equal(t, 0, f.capacity.grants["grant-2"].RemainingThesisSlots)
	assert.Len(t, f.theses.created, 3)
	assert.Len(t, f.roles.roles, 3)
	assert.Len(t, f.enrollments.registered, 3)
	// One message each to student and teacher per pairing, post-commit.
	assert.Len(t, f.notify.emitted, 6)
}

func TestAssignmentServiceRandomBatchIsAllOrNothing(t *testing.T) {
	f := newAssignmentFixture(t)
	defer f.cleanup()
	f.grant("grant-1", "teacher-1", 0, 2)
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.AssignRandom(context.Background(), operatorActor(), RandomAssignmentRequest{
		PeriodID:   "period-1",
		Kind:       models.CaseKindThesis,
		StudentIDs: []string{"student-1", "student-2", "student-3"},
		Seed:       7,
	})
	requireErrCode(t, err, appErrors.ErrCapacityExhausted.Code)
	require.NoError(t, f.mock.ExpectationsWereMet())

	assert.Empty(t, f.theses.created)
	assert.Empty(t, f.enrollments.registered)
	assert.Empty(t, f.notify.emitted)
	assert.Equal(t, 2, f.capacity.grants["grant-1"].RemainingThesisSlots)
}

func TestAssignmentServiceRandomRejectsRegisteredStudent(t *testing.T) {
	f := newAssignmentFixture(t)
	defer f.cleanup()
	f.grant("grant-1", "teacher-1", 0, 3)
	f.enrollments.records[enrollmentKey("student-2", "period-1")] = models.EnrollmentRecord{
		StudentID: "student-2", PeriodID: "period-1",
		Type: models.EnrollmentTypeThesis, IsRegistered: true,
	}
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.AssignRandom(context.Background(), operatorActor(), RandomAssignmentRequest{
		PeriodID:   "period-1",
		Kind:       models.CaseKindThesis,
		StudentIDs: []string{"student-1", "student-2"},
		Seed:       7,
	})
	requireErrCode(t, err, appErrors.ErrAlreadyRegistered.Code)
	assert.Empty(t, f.theses.created)
	assert.Empty(t, f.enrollments.registered)
}

func TestAssignmentServiceRandomPreThesisHonorsGrantBudget(t *testing.T) {
	f := newAssignmentFixture(t)
	defer f.cleanup()
	// Topic offers three slots but the supervisor's grant only covers one,
	// so the pool holds a single unit.
	f.grant("grant-1", "teacher-1", 1, 0)
	f.topics.topics["topic-1"] = models.Topic{
		ID: "topic-1", TeacherID: "teacher-1", PeriodID: "period-1",
		Title: "Stream joins", MaxSlots: 3, RemainingSlots: 3,
		Status: models.TopicStatusOpen,
	}
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.AssignRandom(context.Background(), operatorActor(), RandomAssignmentRequest{
		PeriodID:   "period-1",
		Kind:       models.CaseKindPreThesis,
		StudentIDs: []string{"student-1", "student-2"},
		Seed:       7,
	})
	requireErrCode(t, err, appErrors.ErrCapacityExhausted.Code)
	assert.Empty(t, f.preTheses.created)
}

func TestAssignmentServiceRandomRejectsDuplicates(t *testing.T) {
	f := newAssignmentFixture(t)
	defer f.cleanup()

	_, err := f.svc.AssignRandom(context.Background(), operatorActor(), RandomAssignmentRequest{
		PeriodID:   "period-1",
		Kind:       models.CaseKindThesis,
		StudentIDs: []string{"student-1", "student-1"},
	})
	requireErrCode(t, err, appErrors.ErrValidation.Code)
}

func TestAssignmentServiceRandomForbiddenForNonOperators(t *testing.T) {
	f := newAssignmentFixture(t)
	defer f.cleanup()

	_, err := f.svc.AssignRandom(context.Background(), teacherActor("teacher-1"), RandomAssignmentRequest{
		PeriodID:   "period-1",
		Kind:       models.CaseKindThesis,
		StudentIDs: []string{"student-1"},
	})
	requireErrCode(t, err, appErrors.ErrForbidden.Code)
}

func TestAssignmentServiceRandomRejectsMismatchedTrack(t *testing.T) {
	f := newAssignmentFixture(t)
	defer f.cleanup()
	f.grant("grant-1", "teacher-1", 3, 0)
	f.topics.topics["topic-1"] = models.Topic{
		ID: "topic-1", TeacherID: "teacher-1", PeriodID: "period-1",
		Title: "Stream joins", MaxSlots: 3, RemainingSlots: 3,
		Status: models.TopicStatusOpen,
	}
	// student-2 failed a thesis; only a thesis retake may take them.
	f.enrollments.records[enrollmentKey("student-2", "period-1")] = models.EnrollmentRecord{
		StudentID: "student-2", PeriodID: "period-1",
		Type: models.EnrollmentTypeFailedThesis,
	}
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.AssignRandom(context.Background(), operatorActor(), RandomAssignmentRequest{
		PeriodID:   "period-1",
		Kind:       models.CaseKindPreThesis,
		StudentIDs: []string{"student-1", "student-2"},
		Seed:       7,
	})
	requireErrCode(t, err, appErrors.ErrInvalidState.Code)
	require.NoError(t, f.mock.ExpectationsWereMet())

	assert.Empty(t, f.preTheses.created)
	assert.Empty(t, f.enrollments.registered)
	assert.Empty(t, f.notify.emitted)
}

func TestAssignmentServiceRandomAllowsFailedTrackRetake(t *testing.T) {
	f := newAssignmentFixture(t)
	defer f.cleanup()
	f.grant("grant-1", "teacher-1", 0, 1)
	f.enrollments.records[enrollmentKey("student-1", "period-1")] = models.EnrollmentRecord{
		StudentID: "student-1", PeriodID: "period-1",
		Type: models.EnrollmentTypeFailedThesis,
	}
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	pairings, err := f.svc.AssignRandom(context.Background(), operatorActor(), RandomAssignmentRequest{
		PeriodID:   "period-1",
		Kind:       models.CaseKindThesis,
		StudentIDs: []string{"student-1"},
		Seed:       7,
	})
	require.NoError(t, err)
	require.Len(t, pairings, 1)
	assert.Equal(t, []string{enrollmentKey("student-1", "period-1")}, f.enrollments.registered)
}

func TestAssignmentServiceDirectedTeacherRejectsMismatchedTrack(t *testing.T) {
	f := newAssignmentFixture(t)
	defer f.cleanup()
	f.grant("grant-1", "teacher-1", 0, 1)
	f.enrollments.records[enrollmentKey("student-1", "period-1")] = models.EnrollmentRecord{
		StudentID: "student-1", PeriodID: "period-1",
		Type: models.EnrollmentTypeFailedPreThesis,
	}
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.AssignDirected(context.Background(), operatorActor(), DirectedAssignmentRequest{
		StudentID: "student-1", TeacherID: "teacher-1", Title: "Consensus under churn",
	})
	requireErrCode(t, err, appErrors.ErrInvalidState.Code)
	assert.Empty(t, f.theses.created)
	assert.Equal(t, 1, f.capacity.grants["grant-1"].RemainingThesisSlots)
}

func TestAssignmentServiceRandomThesisTitleComesFromBatch(t *testing.T) {
	f := newAssignmentFixture(t)
	defer f.cleanup()
	f.grant("grant-1", "teacher-1", 0, 2)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	_, err := f.svc.AssignRandom(context.Background(), operatorActor(), RandomAssignmentRequest{
		PeriodID:   "period-1",
		Kind:       models.CaseKindThesis,
		StudentIDs: []string{"student-1", "student-2"},
		Seed:       3,
		Title:      "Capstone 2026",
	})
	require.NoError(t, err)
	require.Len(t, f.theses.created, 2)
	for _, thesis := range f.theses.created {
		assert.Equal(t, "Capstone 2026", thesis.Title)
	}
}

func TestAssignmentServiceRandomThesisUntitledByDefault(t *testing.T) {
	f := newAssignmentFixture(t)
	defer f.cleanup()
	f.grant("grant-1", "teacher-1", 0, 1)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	_, err := f.svc.AssignRandom(context.Background(), operatorActor(), RandomAssignmentRequest{
		PeriodID:   "period-1",
		Kind:       models.CaseKindThesis,
		StudentIDs: []string{"student-1"},
		Seed:       3,
	})
	require.NoError(t, err)
	require.Len(t, f.theses.created, 1)
	assert.Empty(t, f.theses.created[0].Title)
}
