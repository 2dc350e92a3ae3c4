package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/satriadp/supervision-api/internal/models"
	appErrors "github.com/satriadp/supervision-api/pkg/errors"
)

func requireErrCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, appErrors.FromError(err).Code)
}

// newTxMock returns a sqlx handle backed by sqlmock for services that only
// need Begin/Commit/Rollback; repository mocks ignore the exec they get.
func newTxMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

type mockTopicRepo struct {
	topics   map[string]models.Topic
	reserved []string
	released []string
}

func (m *mockTopicRepo) FindByID(_ context.Context, id string) (*models.Topic, error) {
	if topic, ok := m.topics[id]; ok {
		return &topic, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTopicRepo) Lock(_ context.Context, _ sqlx.ExtContext, id string) (*models.Topic, error) {
	if topic, ok := m.topics[id]; ok {
		return &topic, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTopicRepo) ReserveSlot(_ context.Context, _ sqlx.ExtContext, id string) error {
	topic := m.topics[id]
	if topic.Status != models.TopicStatusOpen || topic.RemainingSlots <= 0 {
		return errMockCapacity
	}
	topic.RemainingSlots--
	if topic.RemainingSlots == 0 {
		topic.Status = models.TopicStatusClosed
	}
	m.topics[id] = topic
	m.reserved = append(m.reserved, id)
	return nil
}

func (m *mockTopicRepo) LockOpenByPeriod(_ context.Context, _ sqlx.ExtContext, periodID string) ([]models.Topic, error) {
	var open []models.Topic
	for _, topic := range m.topics {
		if topic.PeriodID == periodID && topic.Status == models.TopicStatusOpen && topic.RemainingSlots > 0 {
			open = append(open, topic)
		}
	}
	return open, nil
}

type mockCapacityRepo struct {
	grants   map[string]models.CapacityGrant
	reserved []string
}

func (m *mockCapacityRepo) LockByTeacherAndPeriod(_ context.Context, _ sqlx.ExtContext, teacherID, periodID string) (*models.CapacityGrant, error) {
	for _, grant := range m.grants {
		if grant.TeacherID == teacherID && grant.PeriodID == periodID {
			return &grant, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockCapacityRepo) ReserveSlot(_ context.Context, _ sqlx.ExtContext, grantID string, kind models.CaseKind) error {
	grant := m.grants[grantID]
	if grant.Remaining(kind) <= 0 {
		return errMockCapacity
	}
	if kind == models.CaseKindThesis {
		grant.RemainingThesisSlots--
	} else {
		grant.RemainingPreThesisSlots--
	}
	m.grants[grantID] = grant
	m.reserved = append(m.reserved, grantID)
	return nil
}

func (m *mockCapacityRepo) LockAvailableForPeriod(_ context.Context, _ sqlx.ExtContext, periodID string, kind models.CaseKind) ([]models.CapacityGrant, error) {
	var available []models.CapacityGrant
	for _, grant := range m.grants {
		if grant.PeriodID == periodID && grant.Remaining(kind) > 0 {
			available = append(available, grant)
		}
	}
	return available, nil
}

type mockEnrollmentRepo struct {
	records    map[string]models.EnrollmentRecord
	registered []string
}

func enrollmentKey(studentID, periodID string) string { return studentID + "/" + periodID }

func (m *mockEnrollmentRepo) Ensure(_ context.Context, studentID, periodID string, enrollType models.EnrollmentType) (*models.EnrollmentRecord, error) {
	if m.records == nil {
		m.records = make(map[string]models.EnrollmentRecord)
	}
	key := enrollmentKey(studentID, periodID)
	if record, ok := m.records[key]; ok {
		return &record, nil
	}
	record := models.EnrollmentRecord{ID: key, StudentID: studentID, PeriodID: periodID, Type: enrollType}
	m.records[key] = record
	return &record, nil
}

func (m *mockEnrollmentRepo) LockByStudentAndPeriod(_ context.Context, _ sqlx.ExtContext, studentID, periodID string) (*models.EnrollmentRecord, error) {
	if record, ok := m.records[enrollmentKey(studentID, periodID)]; ok {
		return &record, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) LockByStudentsAndPeriod(_ context.Context, _ sqlx.ExtContext, studentIDs []string, periodID string) ([]models.EnrollmentRecord, error) {
	var records []models.EnrollmentRecord
	for _, studentID := range studentIDs {
		if record, ok := m.records[enrollmentKey(studentID, periodID)]; ok {
			records = append(records, record)
		}
	}
	return records, nil
}

func (m *mockEnrollmentRepo) SetType(_ context.Context, _ sqlx.ExtContext, studentID, periodID string, enrollType models.EnrollmentType) error {
	if m.records == nil {
		m.records = make(map[string]models.EnrollmentRecord)
	}
	key := enrollmentKey(studentID, periodID)
	record := m.records[key]
	record.StudentID, record.PeriodID = studentID, periodID
	record.Type = enrollType
	m.records[key] = record
	return nil
}

func (m *mockEnrollmentRepo) MarkRegistered(_ context.Context, _ sqlx.ExtContext, studentID, periodID string, enrollType models.EnrollmentType) error {
	key := enrollmentKey(studentID, periodID)
	record, ok := m.records[key]
	if !ok || record.IsRegistered {
		return errMockRegistered
	}
	record.IsRegistered = true
	record.Type = enrollType
	m.records[key] = record
	m.registered = append(m.registered, key)
	return nil
}

type mockPreThesisRepo struct {
	created []models.PreThesisCase
	cases   map[string]models.PreThesisCase
	graded  map[string]float64
	videos  map[string]string
}

func (m *mockPreThesisRepo) Create(_ context.Context, _ sqlx.ExtContext, c *models.PreThesisCase) error {
	if c.ID == "" {
		c.ID = "pre-" + c.StudentID
	}
	m.created = append(m.created, *c)
	return nil
}

func (m *mockPreThesisRepo) FindByID(_ context.Context, id string) (*models.PreThesisCase, error) {
	if c, ok := m.cases[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPreThesisRepo) SetVideoURL(_ context.Context, id, videoURL string) error {
	if m.videos == nil {
		m.videos = make(map[string]string)
	}
	m.videos[id] = videoURL
	return nil
}

func (m *mockPreThesisRepo) SetFinalGrade(_ context.Context, _ sqlx.ExtContext, id string, grade float64, status models.CaseStatus) error {
	if m.graded == nil {
		m.graded = make(map[string]float64)
	}
	m.graded[id] = grade
	if c, ok := m.cases[id]; ok {
		c.FinalGrade = &grade
		c.Status = status
		m.cases[id] = c
	}
	return nil
}

type mockThesisRepo struct {
	created []models.ThesisCase
	cases   map[string]models.ThesisCase
	defense map[string]string
	graded  map[string]float64
	videos  map[string]string
}

func (m *mockThesisRepo) Create(_ context.Context, _ sqlx.ExtContext, c *models.ThesisCase) error {
	if c.ID == "" {
		c.ID = "th-" + c.StudentID
	}
	m.created = append(m.created, *c)
	return nil
}

func (m *mockThesisRepo) FindByID(_ context.Context, id string) (*models.ThesisCase, error) {
	if c, ok := m.cases[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockThesisRepo) SetVideoURL(_ context.Context, id, videoURL string) error {
	if m.videos == nil {
		m.videos = make(map[string]string)
	}
	m.videos[id] = videoURL
	return nil
}

func (m *mockThesisRepo) SetDefenseDate(_ context.Context, id string, defenseDate time.Time) error {
	if m.defense == nil {
		m.defense = make(map[string]string)
	}
	m.defense[id] = defenseDate.UTC().Format(time.RFC3339)
	return nil
}

func (m *mockThesisRepo) SetFinalGrade(_ context.Context, _ sqlx.ExtContext, id string, grade float64, status models.CaseStatus) error {
	if m.graded == nil {
		m.graded = make(map[string]float64)
	}
	m.graded[id] = grade
	return nil
}

type mockRoleRepo struct {
	roles    []models.RoleAssignment
	replaced map[models.ThesisRole][]string
}

func (m *mockRoleRepo) Create(_ context.Context, _ sqlx.ExtContext, assignment *models.RoleAssignment) error {
	m.roles = append(m.roles, *assignment)
	return nil
}

func (m *mockRoleRepo) ListByThesis(_ context.Context, thesisID string) ([]models.RoleAssignmentDetail, error) {
	var details []models.RoleAssignmentDetail
	for _, role := range m.roles {
		if role.ThesisID == thesisID {
			details = append(details, models.RoleAssignmentDetail{RoleAssignment: role})
		}
	}
	return details, nil
}

func (m *mockRoleRepo) HasRole(_ context.Context, thesisID, teacherID string, role models.ThesisRole) (bool, error) {
	for _, r := range m.roles {
		if r.ThesisID == thesisID && r.TeacherID == teacherID && r.Role == role {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRoleRepo) HasAnyRole(_ context.Context, thesisID, teacherID string) (bool, error) {
	for _, r := range m.roles {
		if r.ThesisID == thesisID && r.TeacherID == teacherID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRoleRepo) Replace(_ context.Context, _ sqlx.ExtContext, thesisID string, role models.ThesisRole, teacherIDs []string) error {
	if m.replaced == nil {
		m.replaced = make(map[models.ThesisRole][]string)
	}
	kept := m.roles[:0]
	for _, r := range m.roles {
		if !(r.ThesisID == thesisID && r.Role == role) {
			kept = append(kept, r)
		}
	}
	m.roles = kept
	for _, teacherID := range teacherIDs {
		m.roles = append(m.roles, models.RoleAssignment{ThesisID: thesisID, TeacherID: teacherID, Role: role})
	}
	m.replaced[role] = teacherIDs
	return nil
}

type mockStudentReader struct {
	students map[string]models.Student
}

func (m *mockStudentReader) FindByID(_ context.Context, id string) (*models.Student, error) {
	if student, ok := m.students[id]; ok {
		return &student, nil
	}
	return nil, sql.ErrNoRows
}

type mockTeacherReader struct {
	teachers map[string]models.Teacher
}

func (m *mockTeacherReader) FindByID(_ context.Context, id string) (*models.Teacher, error) {
	if teacher, ok := m.teachers[id]; ok {
		return &teacher, nil
	}
	return nil, sql.ErrNoRows
}

type mockPeriodReader struct {
	periods map[string]models.Period
}

func (m *mockPeriodReader) FindByID(_ context.Context, id string) (*models.Period, error) {
	if period, ok := m.periods[id]; ok {
		return &period, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPeriodReader) FindActive(_ context.Context) (*models.Period, error) {
	for _, period := range m.periods {
		if period.IsActive {
			return &period, nil
		}
	}
	return nil, sql.ErrNoRows
}

type mockNotifier struct {
	emitted []models.Notification
}

func (m *mockNotifier) Emit(n models.Notification) { m.emitted = append(m.emitted, n) }

func (m *mockNotifier) EmitAll(notifications []models.Notification) {
	m.emitted = append(m.emitted, notifications...)
}

type mockDeadlineRepo struct {
	deadlines map[string]models.Deadline
	upserted  []models.Deadline
}

func deadlineKey(periodID string, artifact models.ArtifactKind) string {
	return periodID + "/" + string(artifact)
}

func (m *mockDeadlineRepo) Find(_ context.Context, periodID string, artifact models.ArtifactKind) (*models.Deadline, error) {
	if deadline, ok := m.deadlines[deadlineKey(periodID, artifact)]; ok {
		return &deadline, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDeadlineRepo) ListByPeriod(_ context.Context, periodID string) ([]models.Deadline, error) {
	var list []models.Deadline
	for _, deadline := range m.deadlines {
		if deadline.PeriodID == periodID {
			list = append(list, deadline)
		}
	}
	return list, nil
}

func (m *mockDeadlineRepo) Upsert(_ context.Context, deadline *models.Deadline) error {
	if m.deadlines == nil {
		m.deadlines = make(map[string]models.Deadline)
	}
	m.deadlines[deadlineKey(deadline.PeriodID, deadline.Artifact)] = *deadline
	m.upserted = append(m.upserted, *deadline)
	return nil
}

func (m *mockDeadlineRepo) Delete(_ context.Context, periodID string, artifact models.ArtifactKind) error {
	delete(m.deadlines, deadlineKey(periodID, artifact))
	return nil
}

type mockSubmissionRepo struct {
	submissions []models.Submission
}

func (m *mockSubmissionRepo) Create(_ context.Context, sub *models.Submission) error {
	if sub.ID == "" {
		sub.ID = "sub"
	}
	m.submissions = append(m.submissions, *sub)
	return nil
}

func (m *mockSubmissionRepo) History(_ context.Context, caseKind models.CaseKind, caseID string) ([]models.Submission, error) {
	var history []models.Submission
	for _, sub := range m.submissions {
		if sub.CaseKind == caseKind && sub.CaseID == caseID {
			history = append(history, sub)
		}
	}
	return history, nil
}

func (m *mockSubmissionRepo) Latest(_ context.Context, caseKind models.CaseKind, caseID string) ([]models.Submission, error) {
	latest := make(map[models.SubmissionKind]models.Submission)
	for _, sub := range m.submissions {
		if sub.CaseKind != caseKind || sub.CaseID != caseID {
			continue
		}
		if current, ok := latest[sub.Kind]; !ok || sub.SubmittedAt.After(current.SubmittedAt) {
			latest[sub.Kind] = sub
		}
	}
	var out []models.Submission
	for _, sub := range latest {
		out = append(out, sub)
	}
	return out, nil
}

type mockGradeRepo struct {
	grades map[string]models.EvaluationGrade
}

func gradeMockKey(caseKind models.CaseKind, caseID, evaluatorID string) string {
	return string(caseKind) + "/" + caseID + "/" + evaluatorID
}

func (m *mockGradeRepo) Upsert(_ context.Context, grade *models.EvaluationGrade) error {
	if m.grades == nil {
		m.grades = make(map[string]models.EvaluationGrade)
	}
	m.grades[gradeMockKey(grade.CaseKind, grade.CaseID, grade.EvaluatorID)] = *grade
	return nil
}

func (m *mockGradeRepo) ListByCase(_ context.Context, caseKind models.CaseKind, caseID string) ([]models.EvaluationGrade, error) {
	var list []models.EvaluationGrade
	for _, grade := range m.grades {
		if grade.CaseKind == caseKind && grade.CaseID == caseID {
			list = append(list, grade)
		}
	}
	return list, nil
}

var (
	errMockCapacity   = errors.New("no slots left")
	errMockRegistered = errors.New("registration flag already set")
)
