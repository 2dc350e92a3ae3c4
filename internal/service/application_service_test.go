package service

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satriadp/supervision-api/internal/models"
	appErrors "github.com/satriadp/supervision-api/pkg/errors"
)

type mockApplicationRepo struct {
	apps     map[string]models.TopicApplication
	details  map[string]models.TopicApplicationDetail
	recycled []string
	settled  map[string]models.ApplicationStatus
}

func (m *mockApplicationRepo) List(_ context.Context, _ models.ApplicationFilter) ([]models.TopicApplicationDetail, int, error) {
	return nil, 0, nil
}

func (m *mockApplicationRepo) FindByID(_ context.Context, id string) (*models.TopicApplication, error) {
	if app, ok := m.apps[id]; ok {
		return &app, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockApplicationRepo) FindDetailByID(_ context.Context, id string) (*models.TopicApplicationDetail, error) {
	if detail, ok := m.details[id]; ok {
		return &detail, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockApplicationRepo) FindByStudentAndTopic(_ context.Context, studentID, topicID string) (*models.TopicApplication, error) {
	for _, app := range m.apps {
		if app.StudentID == studentID && app.TopicID == topicID {
			return &app, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockApplicationRepo) Create(_ context.Context, app *models.TopicApplication) error {
	if m.apps == nil {
		m.apps = make(map[string]models.TopicApplication)
	}
	if app.ID == "" {
		app.ID = "app-" + app.StudentID
	}
	app.Status = models.ApplicationStatusPending
	m.apps[app.ID] = *app
	return nil
}

func (m *mockApplicationRepo) Recycle(_ context.Context, id string, note *string) error {
	app := m.apps[id]
	app.Status = models.ApplicationStatusPending
	app.Note = note
	m.apps[id] = app
	m.recycled = append(m.recycled, id)
	return nil
}

func (m *mockApplicationRepo) UpdateStatus(_ context.Context, _ sqlx.ExtContext, id string, status models.ApplicationStatus) error {
	if m.settled == nil {
		m.settled = make(map[string]models.ApplicationStatus)
	}
	m.settled[id] = status
	return nil
}

func (m *mockApplicationRepo) RejectOtherPending(_ context.Context, _ sqlx.ExtContext, studentID, keepID string) ([]models.TopicApplication, error) {
	var displaced []models.TopicApplication
	for id, app := range m.apps {
		if app.StudentID == studentID && id != keepID && app.Status == models.ApplicationStatusPending {
			app.Status = models.ApplicationStatusRejected
			m.apps[id] = app
			displaced = append(displaced, app)
		}
	}
	return displaced, nil
}

type applicationFixture struct {
	svc         *ApplicationService
	apps        *mockApplicationRepo
	topics      *mockTopicRepo
	capacity    *mockCapacityRepo
	enrollments *mockEnrollmentRepo
	cases       *mockPreThesisRepo
	notify      *mockNotifier
	mock        sqlmock.Sqlmock
	cleanup     func()
}

func newApplicationFixture(t *testing.T) *applicationFixture {
	db, mock, cleanup := newTxMock(t)
	f := &applicationFixture{
		apps: &mockApplicationRepo{
			apps:    map[string]models.TopicApplication{},
			details: map[string]models.TopicApplicationDetail{},
		},
		topics: &mockTopicRepo{topics: map[string]models.Topic{
			"topic-1": {
				ID: "topic-1", TeacherID: "teacher-1", PeriodID: "period-1",
				Title: "Graph partitioning", Description: "desc",
				MaxSlots: 2, RemainingSlots: 2, MinGPA: 3.0, MinCredits: 100,
				Status: models.TopicStatusOpen,
			},
		}},
		capacity: &mockCapacityRepo{grants: map[string]models.CapacityGrant{
			"grant-1": {
				ID: "grant-1", TeacherID: "teacher-1", PeriodID: "period-1",
				MaxPreThesisSlots: 3, RemainingPreThesisSlots: 3,
				MaxThesisSlots: 2, RemainingThesisSlots: 2,
			},
		}},
		enrollments: &mockEnrollmentRepo{records: map[string]models.EnrollmentRecord{}},
		cases:       &mockPreThesisRepo{},
		notify:      &mockNotifier{},
		mock:        mock,
		cleanup:     cleanup,
	}
	students := &mockStudentReader{students: map[string]models.Student{
		"student-1": {ID: "student-1", FullName: "Ana", GPA: 3.5, Credits: 120, Active: true},
		"student-2": {ID: "student-2", FullName: "Budi", GPA: 2.4, Credits: 120, Active: true},
	}}
	periods := &mockPeriodReader{periods: map[string]models.Period{
		"period-1": {ID: "period-1", Name: "2026 Odd", IsActive: true, IsPublished: true},
	}}
	f.svc = NewApplicationService(f.apps, f.topics, f.capacity, f.enrollments, f.cases, students, periods, f.notify, db, nil, nil, nil)
	return f
}

func studentActor(id string) models.Actor {
	return models.Actor{Kind: models.ActorStudent, UserID: "u-" + id, StudentID: id}
}

func teacherActor(id string) models.Actor {
	return models.Actor{Kind: models.ActorTeacher, UserID: "u-" + id, TeacherID: id}
}

func operatorActor() models.Actor {
	return models.Actor{Kind: models.ActorModerator, UserID: "u-op"}
}

func TestApplicationServiceApply(t *testing.T) {
	f := newApplicationFixture(t)
	defer f.cleanup()

	app, err := f.svc.Apply(context.Background(), studentActor("student-1"), ApplyRequest{TopicID: "topic-1"})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusPending, app.Status)
	assert.Equal(t, "student-1", app.StudentID)

	require.Len(t, f.notify.emitted, 1)
	assert.Equal(t, "teacher-1", f.notify.emitted[0].RecipientID)
	assert.Equal(t, models.NotificationApplicationReceived, f.notify.emitted[0].Kind)
}

func TestApplicationServiceApplyRejectsBelowThresholds(t *testing.T) {
	f := newApplicationFixture(t)
	defer f.cleanup()

	_, err := f.svc.Apply(context.Background(), studentActor("student-2"), ApplyRequest{TopicID: "topic-1"})
	requireErrCode(t, err, appErrors.ErrValidation.Code)
	assert.Empty(t, f.notify.emitted)
}

func TestApplicationServiceApplyBlocksRegisteredStudent(t *testing.T) {
	f := newApplicationFixture(t)
	defer f.cleanup()
	f.enrollments.records[enrollmentKey("student-1", "period-1")] = models.EnrollmentRecord{
		StudentID: "student-1", PeriodID: "period-1",
		Type: models.EnrollmentTypePreThesis, IsRegistered: true,
	}

	_, err := f.svc.Apply(context.Background(), studentActor("student-1"), ApplyRequest{TopicID: "topic-1"})
	requireErrCode(t, err, appErrors.ErrAlreadyRegistered.Code)
}

func TestApplicationServiceApplyRecyclesRejectedRow(t *testing.T) {
	f := newApplicationFixture(t)
	defer f.cleanup()
	f.apps.apps["app-old"] = models.TopicApplication{
		ID: "app-old", StudentID: "student-1", TopicID: "topic-1",
		Status: models.ApplicationStatusRejected,
	}

	app, err := f.svc.Apply(context.Background(), studentActor("student-1"), ApplyRequest{TopicID: "topic-1"})
	require.NoError(t, err)
	assert.Equal(t, "app-old", app.ID)
	assert.Equal(t, models.ApplicationStatusPending, app.Status)
	assert.Equal(t, []string{"app-old"}, f.apps.recycled)
}

func TestApplicationServiceApproveAllocates(t *testing.T) {
	f := newApplicationFixture(t)
	defer f.cleanup()
	f.apps.apps["app-1"] = models.TopicApplication{
		ID: "app-1", StudentID: "student-1", TopicID: "topic-1",
		Status: models.ApplicationStatusPending,
	}
	f.apps.apps["app-2"] = models.TopicApplication{
		ID: "app-2", StudentID: "student-1", TopicID: "topic-2",
		Status: models.ApplicationStatusPending,
	}
	f.apps.details["app-1"] = models.TopicApplicationDetail{
		TopicApplication: f.apps.apps["app-1"],
		TeacherID:        "teacher-1",
		TopicTitle:       "Graph partitioning",
	}
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	preThesis, err := f.svc.Approve(context.Background(), teacherActor("teacher-1"), "app-1")
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())

	assert.Equal(t, "student-1", preThesis.StudentID)
	assert.Equal(t, "Graph partitioning", preThesis.Title)
	assert.Equal(t, models.ApplicationStatusApproved, f.apps.settled["app-1"])
	assert.Equal(t, []string{"topic-1"}, f.topics.reserved)
	assert.Equal(t, []string{"grant-1"}, f.capacity.reserved)
	assert.Equal(t, 1, f.topics.topics["topic-1"].RemainingSlots)
	assert.Equal(t, []string{enrollmentKey("student-1", "period-1")}, f.enrollments.registered)

	// Competing pending application was displaced, so the student gets
	// approval, assignment and a closure message for the other row.
	require.Len(t, f.notify.emitted, 3)
	assert.Equal(t, models.NotificationApplicationApproved, f.notify.emitted[0].Kind)
	assert.Equal(t, models.NotificationAssignment, f.notify.emitted[1].Kind)
	assert.Equal(t, models.NotificationApplicationRejected, f.notify.emitted[2].Kind)
}

func TestApplicationServiceApproveClosesTopicAtZero(t *testing.T) {
	f := newApplicationFixture(t)
	defer f.cleanup()
	topic := f.topics.topics["topic-1"]
	topic.RemainingSlots = 1
	f.topics.topics["topic-1"] = topic
	f.apps.apps["app-1"] = models.TopicApplication{
		ID: "app-1", StudentID: "student-1", TopicID: "topic-1",
		Status: models.ApplicationStatusPending,
	}
	f.apps.details["app-1"] = models.TopicApplicationDetail{
		TopicApplication: f.apps.apps["app-1"], TeacherID: "teacher-1",
	}
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	_, err := f.svc.Approve(context.Background(), teacherActor("teacher-1"), "app-1")
	require.NoError(t, err)
	assert.Equal(t, models.TopicStatusClosed, f.topics.topics["topic-1"].Status)
}

func TestApplicationServiceApproveRollsBackWhenExhausted(t *testing.T) {
	f := newApplicationFixture(t)
	defer f.cleanup()
	topic := f.topics.topics["topic-1"]
	topic.RemainingSlots = 0
	topic.Status = models.TopicStatusClosed
	f.topics.topics["topic-1"] = topic
	f.apps.apps["app-1"] = models.TopicApplication{
		ID: "app-1", StudentID: "student-1", TopicID: "topic-1",
		Status: models.ApplicationStatusPending,
	}
	f.apps.details["app-1"] = models.TopicApplicationDetail{
		TopicApplication: f.apps.apps["app-1"], TeacherID: "teacher-1",
	}
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.Approve(context.Background(), teacherActor("teacher-1"), "app-1")
	requireErrCode(t, err, appErrors.ErrCapacityExhausted.Code)
	require.NoError(t, f.mock.ExpectationsWereMet())

	assert.Empty(t, f.cases.created)
	assert.Empty(t, f.enrollments.registered)
	assert.Empty(t, f.notify.emitted)
}

func TestApplicationServiceApproveRejectsForeignTeacher(t *testing.T) {
	f := newApplicationFixture(t)
	defer f.cleanup()
	f.apps.apps["app-1"] = models.TopicApplication{
		ID: "app-1", StudentID: "student-1", TopicID: "topic-1",
		Status: models.ApplicationStatusPending,
	}
	f.apps.details["app-1"] = models.TopicApplicationDetail{
		TopicApplication: f.apps.apps["app-1"], TeacherID: "teacher-1",
	}

	_, err := f.svc.Approve(context.Background(), teacherActor("teacher-9"), "app-1")
	requireErrCode(t, err, appErrors.ErrForbidden.Code)
}

func TestApplicationServiceReject(t *testing.T) {
	f := newApplicationFixture(t)
	defer f.cleanup()
	f.apps.apps["app-1"] = models.TopicApplication{
		ID: "app-1", StudentID: "student-1", TopicID: "topic-1",
		Status: models.ApplicationStatusPending,
	}
	f.apps.details["app-1"] = models.TopicApplicationDetail{
		TopicApplication: f.apps.apps["app-1"], TeacherID: "teacher-1",
	}
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	err := f.svc.Reject(context.Background(), teacherActor("teacher-1"), "app-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusRejected, f.apps.settled["app-1"])
	require.Len(t, f.notify.emitted, 1)
	assert.Equal(t, "student-1", f.notify.emitted[0].RecipientID)
}
