package service

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/satriadp/supervision-api/internal/models"
	"github.com/satriadp/supervision-api/internal/repository"
	appErrors "github.com/satriadp/supervision-api/pkg/errors"
)

type topicPoolLocker interface {
	topicAllocator
	LockOpenByPeriod(ctx context.Context, exec sqlx.ExtContext, periodID string) ([]models.Topic, error)
}

type capacityPoolLocker interface {
	capacityAllocator
	LockAvailableForPeriod(ctx context.Context, exec sqlx.ExtContext, periodID string, kind models.CaseKind) ([]models.CapacityGrant, error)
}

type enrollmentBatchGuard interface {
	enrollmentGuard
	LockByStudentsAndPeriod(ctx context.Context, exec sqlx.ExtContext, studentIDs []string, periodID string) ([]models.EnrollmentRecord, error)
}

type thesisWriter interface {
	Create(ctx context.Context, exec sqlx.ExtContext, c *models.ThesisCase) error
}

type roleWriter interface {
	Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.RoleAssignment) error
}

// DirectedAssignmentRequest pins one student to one specific resource:
// a topic for pre-thesis, a supervising teacher for thesis.
type DirectedAssignmentRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	TopicID   string `json:"topic_id"`
	TeacherID string `json:"teacher_id"`
	Title     string `json:"title"`
}

// RandomAssignmentRequest spreads a batch of students over every resource
// with remaining capacity. Seed makes the shuffle reproducible; zero means
// time-seeded. Title is an optional working title stamped on thesis cases
// opened by the batch; left empty, the case starts untitled.
type RandomAssignmentRequest struct {
	PeriodID   string          `json:"period_id" validate:"required"`
	Kind       models.CaseKind `json:"kind" validate:"required"`
	StudentIDs []string        `json:"student_ids" validate:"required,min=1,dive,required"`
	Seed       int64           `json:"seed"`
	Title      string          `json:"title"`
}

// AssignmentPairing reports one student-resource pairing from a batch.
type AssignmentPairing struct {
	StudentID string `json:"student_id"`
	TeacherID string `json:"teacher_id"`
	TopicID   string `json:"topic_id,omitempty"`
	CaseID    string `json:"case_id"`
}

// AssignmentService runs the directed and random allocation algorithms.
// Every allocation is one transaction over the capacity ledger and the
// registration state machine; notifications go out only after commit.
type AssignmentService struct {
	topics      topicPoolLocker
	capacity    capacityPoolLocker
	enrollments enrollmentBatchGuard
	preTheses   preThesisWriter
	theses      thesisWriter
	roles       roleWriter
	students    studentReader
	teachers    teacherReader
	periods     periodReader
	notify      notifier
	tx          txProvider
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAssignmentService constructs AssignmentService.
func NewAssignmentService(
	topics topicPoolLocker,
	capacity capacityPoolLocker,
	enrollments enrollmentBatchGuard,
	preTheses preThesisWriter,
	theses thesisWriter,
	roles roleWriter,
	students studentReader,
	teachers teacherReader,
	periods periodReader,
	notify notifier,
	tx txProvider,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		topics:      topics,
		capacity:    capacity,
		enrollments: enrollments,
		preTheses:   preTheses,
		theses:      theses,
		roles:       roles,
		students:    students,
		teachers:    teachers,
		periods:     periods,
		notify:      notify,
		tx:          tx,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// AssignDirected places one student on a specific topic or under a specific
// supervisor. Capacity is re-validated against locked rows inside the
// transaction; a target with nothing left fails the whole operation.
func (s *AssignmentService) AssignDirected(ctx context.Context, actor models.Actor, req DirectedAssignmentRequest) (*AssignmentPairing, error) {
	if !actor.CanOperate() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only operators may run assignments")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid assignment payload")
	}
	if (req.TopicID == "") == (req.TeacherID == "") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exactly one of topic_id or teacher_id is required")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load student")
	}

	if req.TopicID != "" {
		return s.assignDirectedTopic(ctx, student, req.TopicID)
	}
	return s.assignDirectedTeacher(ctx, student, req.TeacherID, req.Title)
}

func (s *AssignmentService) assignDirectedTopic(ctx context.Context, student *models.Student, topicID string) (*AssignmentPairing, error) {
	topicRef, err := s.topics.FindByID(ctx, topicID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "topic not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load topic")
	}
	if _, err := s.enrollments.Ensure(ctx, student.ID, topicRef.PeriodID, models.EnrollmentTypeNone); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load enrollment")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to begin assignment")
	}
	defer func() { _ = tx.Rollback() }()

	record, err := s.enrollments.LockByStudentAndPeriod(ctx, tx, student.ID, topicRef.PeriodID)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to lock enrollment")
	}
	if record.IsRegistered {
		return nil, appErrors.Clone(appErrors.ErrAlreadyRegistered, "")
	}
	if !record.Type.AllowsAssignment(models.CaseKindPreThesis) {
		return nil, appErrors.Clone(appErrors.ErrInvalidState,
			fmt.Sprintf("student is on track %s, not eligible for pre-thesis", record.Type))
	}

	topic, err := s.topics.Lock(ctx, tx, topicID)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to lock topic")
	}
	if topic.Status != models.TopicStatusOpen || topic.RemainingSlots <= 0 {
		return nil, appErrors.Clone(appErrors.ErrCapacityExhausted, "topic has no remaining slots")
	}
	grant, err := s.capacity.LockByTeacherAndPeriod(ctx, tx, topic.TeacherID, topic.PeriodID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "supervisor holds no capacity grant")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to lock capacity grant")
	}
	if grant.Remaining(models.CaseKindPreThesis) <= 0 {
		return nil, appErrors.Clone(appErrors.ErrCapacityExhausted, "supervisor has no remaining pre-thesis capacity")
	}

	if err := s.topics.ReserveSlot(ctx, tx, topic.ID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrCapacityExhausted, "topic has no remaining slots")
	}
	if err := s.capacity.ReserveSlot(ctx, tx, grant.ID, models.CaseKindPreThesis); err != nil {
		return nil, appErrors.Clone(appErrors.ErrCapacityExhausted, "supervisor has no remaining pre-thesis capacity")
	}

	preThesis := &models.PreThesisCase{
		StudentID:   student.ID,
		TopicID:     topic.ID,
		TeacherID:   topic.TeacherID,
		PeriodID:    topic.PeriodID,
		Title:       topic.Title,
		Description: topic.Description,
	}
	if err := s.preTheses.Create(ctx, tx, preThesis); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to open pre-thesis case")
	}
	if err := s.enrollments.MarkRegistered(ctx, tx, student.ID, topic.PeriodID, models.EnrollmentTypePreThesis); err != nil {
		if repository.IsAlreadyRegistered(err) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyRegistered, "")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to register student")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to commit assignment")
	}

	s.emitPairing(student.ID, topic.TeacherID, topic.Title)
	s.metrics.RecordAllocation(string(models.CaseKindPreThesis), "directed")
	s.logger.Info("directed pre-thesis assignment",
		zap.String("student_id", student.ID),
		zap.String("topic_id", topic.ID),
		zap.String("case_id", preThesis.ID))
	return &AssignmentPairing{StudentID: student.ID, TeacherID: topic.TeacherID, TopicID: topic.ID, CaseID: preThesis.ID}, nil
}

func (s *AssignmentService) assignDirectedTeacher(ctx context.Context, student *models.Student, teacherID, title string) (*AssignmentPairing, error) {
	if title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title is required for thesis assignment")
	}
	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load teacher")
	}
	if !teacher.Active {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "teacher is inactive")
	}
	period, err := s.periods.FindActive(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "no active period")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load active period")
	}
	if _, err := s.enrollments.Ensure(ctx, student.ID, period.ID, models.EnrollmentTypeNone); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load enrollment")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to begin assignment")
	}
	defer func() { _ = tx.Rollback() }()

	record, err := s.enrollments.LockByStudentAndPeriod(ctx, tx, student.ID, period.ID)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to lock enrollment")
	}
	if record.IsRegistered {
		return nil, appErrors.Clone(appErrors.ErrAlreadyRegistered, "")
	}
	if !record.Type.AllowsAssignment(models.CaseKindThesis) {
		return nil, appErrors.Clone(appErrors.ErrInvalidState,
			fmt.Sprintf("student is on track %s, not eligible for thesis", record.Type))
	}

	grant, err := s.capacity.LockByTeacherAndPeriod(ctx, tx, teacherID, period.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "supervisor holds no capacity grant")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to lock capacity grant")
	}
	if grant.Remaining(models.CaseKindThesis) <= 0 {
		return nil, appErrors.Clone(appErrors.ErrCapacityExhausted, "supervisor has no remaining thesis capacity")
	}
	if err := s.capacity.ReserveSlot(ctx, tx, grant.ID, models.CaseKindThesis); err != nil {
		return nil, appErrors.Clone(appErrors.ErrCapacityExhausted, "supervisor has no remaining thesis capacity")
	}

	thesis := &models.ThesisCase{
		StudentID:    student.ID,
		SupervisorID: teacherID,
		PeriodID:     period.ID,
		Title:        title,
	}
	if err := s.theses.Create(ctx, tx, thesis); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to open thesis case")
	}
	if err := s.roles.Create(ctx, tx, &models.RoleAssignment{
		ThesisID:  thesis.ID,
		TeacherID: teacherID,
		Role:      models.ThesisRoleSupervisor,
	}); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to record supervisor role")
	}
	if err := s.enrollments.MarkRegistered(ctx, tx, student.ID, period.ID, models.EnrollmentTypeThesis); err != nil {
		if repository.IsAlreadyRegistered(err) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyRegistered, "")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to register student")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to commit assignment")
	}

	s.emitPairing(student.ID, teacherID, title)
	s.metrics.RecordAllocation(string(models.CaseKindThesis), "directed")
	s.logger.Info("directed thesis assignment",
		zap.String("student_id", student.ID),
		zap.String("teacher_id", teacherID),
		zap.String("case_id", thesis.ID))
	return &AssignmentPairing{StudentID: student.ID, TeacherID: teacherID, CaseID: thesis.ID}, nil
}

// poolEntry is one capacity unit available to the random shuffle.
type poolEntry struct {
	teacherID string
	grantID   string
	topicID   string
	title     string
	desc      string
}

// AssignRandom spreads a batch of students uniformly over every resource
// with remaining capacity. The batch is all-or-nothing: every precondition
// is checked against freshly locked rows and any failure rolls everything
// back with no student assigned.
func (s *AssignmentService) AssignRandom(ctx context.Context, actor models.Actor, req RandomAssignmentRequest) ([]AssignmentPairing, error) {
	if !actor.CanOperate() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only operators may run assignments")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid batch payload")
	}
	if !req.Kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown case kind")
	}
	if hasDuplicates(req.StudentIDs) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "duplicate student in batch")
	}
	if _, err := s.periods.FindByID(ctx, req.PeriodID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "period not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load period")
	}
	for _, studentID := range req.StudentIDs {
		if _, err := s.enrollments.Ensure(ctx, studentID, req.PeriodID, models.EnrollmentTypeNone); err != nil {
			return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load enrollment")
		}
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to begin batch")
	}
	defer func() { _ = tx.Rollback() }()

	records, err := s.enrollments.LockByStudentsAndPeriod(ctx, tx, req.StudentIDs, req.PeriodID)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to lock enrollments")
	}
	if len(records) != len(req.StudentIDs) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "one or more students are not enrolled in the period")
	}
	for _, record := range records {
		if record.IsRegistered {
			return nil, appErrors.Clone(appErrors.ErrAlreadyRegistered,
				fmt.Sprintf("student %s already registered this period", record.StudentID))
		}
		if !record.Type.AllowsAssignment(req.Kind) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState,
				fmt.Sprintf("student %s is on track %s, not eligible for %s", record.StudentID, record.Type, req.Kind))
		}
	}

	pool, err := s.buildPool(ctx, tx, req.PeriodID, req.Kind)
	if err != nil {
		return nil, err
	}
	// The sum-of-remaining check runs against rows locked above, never a
	// stale snapshot.
	if len(pool) < len(req.StudentIDs) {
		return nil, appErrors.Clone(appErrors.ErrCapacityExhausted,
			fmt.Sprintf("batch needs %d slots, only %d available", len(req.StudentIDs), len(pool)))
	}

	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	pairings := make([]AssignmentPairing, 0, len(req.StudentIDs))
	for i, studentID := range req.StudentIDs {
		entry := pool[i]
		pairing, err := s.assignFromPool(ctx, tx, studentID, req, entry)
		if err != nil {
			return nil, err
		}
		pairings = append(pairings, *pairing)
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to commit batch")
	}

	batchLabel := req.Title
	if batchLabel == "" {
		batchLabel = fmt.Sprintf("%s supervision", req.Kind)
	}
	for _, pairing := range pairings {
		s.emitPairing(pairing.StudentID, pairing.TeacherID, batchLabel)
		s.metrics.RecordAllocation(string(req.Kind), "random")
	}
	s.logger.Info("random batch assigned",
		zap.String("period_id", req.PeriodID),
		zap.String("kind", string(req.Kind)),
		zap.Int("students", len(pairings)),
		zap.Int64("seed", seed))
	return pairings, nil
}

// buildPool flattens remaining capacity into one entry per unit. For thesis
// the pool comes straight off the capacity grants; for pre-thesis each unit
// is an open topic slot capped by its supervisor's remaining grant.
func (s *AssignmentService) buildPool(ctx context.Context, tx sqlx.ExtContext, periodID string, kind models.CaseKind) ([]poolEntry, error) {
	grants, err := s.capacity.LockAvailableForPeriod(ctx, tx, periodID, kind)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to lock capacity grants")
	}

	if kind == models.CaseKindThesis {
		var pool []poolEntry
		for _, grant := range grants {
			for i := 0; i < grant.Remaining(models.CaseKindThesis); i++ {
				pool = append(pool, poolEntry{teacherID: grant.TeacherID, grantID: grant.ID})
			}
		}
		return pool, nil
	}

	topics, err := s.topics.LockOpenByPeriod(ctx, tx, periodID)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to lock topics")
	}
	grantByTeacher := make(map[string]models.CapacityGrant, len(grants))
	for _, grant := range grants {
		grantByTeacher[grant.TeacherID] = grant
	}
	// Per teacher, units are bounded by both topic slots and the grant.
	budget := make(map[string]int, len(grants))
	for teacherID, grant := range grantByTeacher {
		budget[teacherID] = grant.Remaining(models.CaseKindPreThesis)
	}
	var pool []poolEntry
	for _, topic := range topics {
		grant, ok := grantByTeacher[topic.TeacherID]
		if !ok {
			continue
		}
		for i := 0; i < topic.RemainingSlots && budget[topic.TeacherID] > 0; i++ {
			budget[topic.TeacherID]--
			pool = append(pool, poolEntry{
				teacherID: topic.TeacherID,
				grantID:   grant.ID,
				topicID:   topic.ID,
				title:     topic.Title,
				desc:      topic.Description,
			})
		}
	}
	return pool, nil
}

func (s *AssignmentService) assignFromPool(ctx context.Context, tx sqlx.ExtContext, studentID string, req RandomAssignmentRequest, entry poolEntry) (*AssignmentPairing, error) {
	periodID := req.PeriodID
	if err := s.capacity.ReserveSlot(ctx, tx, entry.grantID, req.Kind); err != nil {
		return nil, appErrors.Clone(appErrors.ErrCapacityExhausted, "capacity drained during batch")
	}

	if req.Kind == models.CaseKindThesis {
		thesis := &models.ThesisCase{
			StudentID:    studentID,
			SupervisorID: entry.teacherID,
			PeriodID:     periodID,
			Title:        req.Title,
		}
		if err := s.theses.Create(ctx, tx, thesis); err != nil {
			return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to open thesis case")
		}
		if err := s.roles.Create(ctx, tx, &models.RoleAssignment{
			ThesisID:  thesis.ID,
			TeacherID: entry.teacherID,
			Role:      models.ThesisRoleSupervisor,
		}); err != nil {
			return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to record supervisor role")
		}
		if err := s.enrollments.MarkRegistered(ctx, tx, studentID, periodID, models.EnrollmentTypeThesis); err != nil {
			return nil, appErrors.Clone(appErrors.ErrAlreadyRegistered, "")
		}
		return &AssignmentPairing{StudentID: studentID, TeacherID: entry.teacherID, CaseID: thesis.ID}, nil
	}

	if err := s.topics.ReserveSlot(ctx, tx, entry.topicID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrCapacityExhausted, "topic drained during batch")
	}
	preThesis := &models.PreThesisCase{
		StudentID:   studentID,
		TopicID:     entry.topicID,
		TeacherID:   entry.teacherID,
		PeriodID:    periodID,
		Title:       entry.title,
		Description: entry.desc,
	}
	if err := s.preTheses.Create(ctx, tx, preThesis); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to open pre-thesis case")
	}
	if err := s.enrollments.MarkRegistered(ctx, tx, studentID, periodID, models.EnrollmentTypePreThesis); err != nil {
		return nil, appErrors.Clone(appErrors.ErrAlreadyRegistered, "")
	}
	return &AssignmentPairing{StudentID: studentID, TeacherID: entry.teacherID, TopicID: entry.topicID, CaseID: preThesis.ID}, nil
}

// emitPairing sends one notification to each side of a pairing.
func (s *AssignmentService) emitPairing(studentID, teacherID, title string) {
	s.notify.EmitAll([]models.Notification{{
		RecipientID: studentID,
		Kind:        models.NotificationAssignment,
		Title:       "Supervision assigned",
		Message:     fmt.Sprintf("You have been assigned: %s", title),
	}, {
		RecipientID: teacherID,
		Kind:        models.NotificationAssignment,
		Title:       "New supervisee",
		Message:     "A student has been assigned to your supervision",
	}})
}

func hasDuplicates(ids []string) bool {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}
