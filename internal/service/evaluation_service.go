package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/satriadp/supervision-api/internal/models"
	appErrors "github.com/satriadp/supervision-api/pkg/errors"
)

type gradeRepository interface {
	Upsert(ctx context.Context, grade *models.EvaluationGrade) error
	ListByCase(ctx context.Context, caseKind models.CaseKind, caseID string) ([]models.EvaluationGrade, error)
}

type roleRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.RoleAssignment) error
	ListByThesis(ctx context.Context, thesisID string) ([]models.RoleAssignmentDetail, error)
	HasRole(ctx context.Context, thesisID, teacherID string, role models.ThesisRole) (bool, error)
	HasAnyRole(ctx context.Context, thesisID, teacherID string) (bool, error)
	Replace(ctx context.Context, exec sqlx.ExtContext, thesisID string, role models.ThesisRole, teacherIDs []string) error
}

type thesisEvaluationStore interface {
	FindByID(ctx context.Context, id string) (*models.ThesisCase, error)
	SetDefenseDate(ctx context.Context, id string, defenseDate time.Time) error
	SetFinalGrade(ctx context.Context, exec sqlx.ExtContext, id string, grade float64, status models.CaseStatus) error
}

type preThesisEvaluationStore interface {
	FindByID(ctx context.Context, id string) (*models.PreThesisCase, error)
	SetFinalGrade(ctx context.Context, exec sqlx.ExtContext, id string, grade float64, status models.CaseStatus) error
}

type enrollmentTrackSetter interface {
	SetType(ctx context.Context, exec sqlx.ExtContext, studentID, periodID string, enrollType models.EnrollmentType) error
}

// RecordGradeRequest is one evaluator's grade for one case.
type RecordGradeRequest struct {
	CaseKind models.CaseKind `json:"case_kind" validate:"required"`
	CaseID   string          `json:"case_id" validate:"required"`
	Value    float64         `json:"value" validate:"gte=0,lte=100"`
	Feedback *string         `json:"feedback"`
}

// SetDefenseDateRequest schedules a thesis defense.
type SetDefenseDateRequest struct {
	DefenseDate time.Time `json:"defense_date" validate:"required"`
}

// AssignReviewerRequest replaces the reviewer on a thesis.
type AssignReviewerRequest struct {
	TeacherID string `json:"teacher_id" validate:"required"`
}

// AssignCommitteeRequest replaces the full committee set on a thesis.
type AssignCommitteeRequest struct {
	TeacherIDs []string `json:"teacher_ids" validate:"required,min=1,dive,required"`
}

// SetFinalGradeRequest records the externally decided final grade. The
// engine stores it verbatim and never derives it from evaluator grades.
type SetFinalGradeRequest struct {
	CaseKind models.CaseKind   `json:"case_kind" validate:"required"`
	CaseID   string            `json:"case_id" validate:"required"`
	Value    float64           `json:"value" validate:"gte=0,lte=100"`
	Status   models.CaseStatus `json:"status" validate:"required,oneof=GRADED FAILED COMPLETE"`
}

// EvaluationService covers grading, defense scheduling and evaluation role
// management on thesis cases.
type EvaluationService struct {
	grades      gradeRepository
	roles       roleRepository
	theses      thesisEvaluationStore
	preTheses   preThesisEvaluationStore
	enrollments enrollmentTrackSetter
	teachers    teacherReader
	gate        *DeadlineGate
	notify      notifier
	tx          txProvider
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewEvaluationService constructs EvaluationService.
func NewEvaluationService(
	grades gradeRepository,
	roles roleRepository,
	theses thesisEvaluationStore,
	preTheses preThesisEvaluationStore,
	enrollments enrollmentTrackSetter,
	teachers teacherReader,
	gate *DeadlineGate,
	notify notifier,
	tx txProvider,
	validate *validator.Validate,
	logger *zap.Logger,
) *EvaluationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvaluationService{
		grades:      grades,
		roles:       roles,
		theses:      theses,
		preTheses:   preTheses,
		enrollments: enrollments,
		teachers:    teachers,
		gate:        gate,
		notify:      notify,
		tx:          tx,
		validator:   validate,
		logger:      logger,
	}
}

// RecordGrade upserts the evaluator's grade for a case. One row per
// evaluator; a second call overwrites the first.
func (s *EvaluationService) RecordGrade(ctx context.Context, actor models.Actor, req RecordGradeRequest) (*models.EvaluationGrade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "grade must be between 0 and 100")
	}
	if actor.Kind != models.ActorTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers may record grades")
	}

	var studentID, periodID string
	switch req.CaseKind {
	case models.CaseKindPreThesis:
		c, err := s.preTheses.FindByID(ctx, req.CaseID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
			}
			return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load case")
		}
		if c.TeacherID != actor.TeacherID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only the supervisor grades a pre-thesis")
		}
		studentID, periodID = c.StudentID, c.PeriodID
	case models.CaseKindThesis:
		c, err := s.theses.FindByID(ctx, req.CaseID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
			}
			return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load case")
		}
		holds, err := s.roles.HasAnyRole(ctx, req.CaseID, actor.TeacherID)
		if err != nil {
			return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to check evaluator role")
		}
		if !holds {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "evaluator holds no role on this thesis")
		}
		studentID, periodID = c.StudentID, c.PeriodID
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown case kind")
	}

	if err := s.gate.Check(ctx, periodID, models.ArtifactForGrading(req.CaseKind), time.Now().UTC()); err != nil {
		return nil, err
	}

	grade := &models.EvaluationGrade{
		CaseKind:    req.CaseKind,
		CaseID:      req.CaseID,
		EvaluatorID: actor.TeacherID,
		Value:       req.Value,
		Feedback:    req.Feedback,
	}
	if err := s.grades.Upsert(ctx, grade); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to record grade")
	}

	s.notify.Emit(models.Notification{
		RecipientID: studentID,
		Kind:        models.NotificationGradeRecorded,
		Title:       "Grade recorded",
		Message:     "An evaluator recorded a grade on your case",
	})
	return grade, nil
}

// ListGrades returns every evaluator's grade for a case.
func (s *EvaluationService) ListGrades(ctx context.Context, caseKind models.CaseKind, caseID string) ([]models.EvaluationGrade, error) {
	grades, err := s.grades.ListByCase(ctx, caseKind, caseID)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to list grades")
	}
	return grades, nil
}

// SetDefenseDate schedules a defense strictly in the future.
func (s *EvaluationService) SetDefenseDate(ctx context.Context, actor models.Actor, thesisID string, req SetDefenseDateRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.WrapAs(err, appErrors.ErrValidation, "invalid defense payload")
	}
	thesis, err := s.theses.FindByID(ctx, thesisID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "thesis not found")
		}
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load thesis")
	}
	if !actor.CanActForTeacher(thesis.SupervisorID) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the supervisor or an operator schedules a defense")
	}
	if !req.DefenseDate.After(time.Now()) {
		return appErrors.Clone(appErrors.ErrValidation, "defense date must be in the future")
	}
	if err := s.gate.Check(ctx, thesis.PeriodID, models.ArtifactThesisDefense, time.Now().UTC()); err != nil {
		return err
	}
	if err := s.theses.SetDefenseDate(ctx, thesisID, req.DefenseDate.UTC()); err != nil {
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to set defense date")
	}

	s.notify.EmitAll([]models.Notification{{
		RecipientID: thesis.StudentID,
		Kind:        models.NotificationDefenseScheduled,
		Title:       "Defense scheduled",
		Message:     fmt.Sprintf("Your defense is scheduled for %s", req.DefenseDate.Format(time.RFC1123)),
	}, {
		RecipientID: thesis.SupervisorID,
		Kind:        models.NotificationDefenseScheduled,
		Title:       "Defense scheduled",
		Message:     fmt.Sprintf("Defense for %q scheduled for %s", thesis.Title, req.DefenseDate.Format(time.RFC1123)),
	}})
	return nil
}

// AssignReviewer replaces the thesis reviewer. A supervisor of the thesis
// can never double as its reviewer.
func (s *EvaluationService) AssignReviewer(ctx context.Context, actor models.Actor, thesisID string, req AssignReviewerRequest) error {
	if !actor.CanOperate() {
		return appErrors.Clone(appErrors.ErrForbidden, "only operators assign evaluation roles")
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.WrapAs(err, appErrors.ErrValidation, "invalid reviewer payload")
	}
	if _, err := s.theses.FindByID(ctx, thesisID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "thesis not found")
		}
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load thesis")
	}
	if err := s.checkEvaluator(ctx, thesisID, req.TeacherID); err != nil {
		return err
	}
	return s.replaceRole(ctx, thesisID, models.ThesisRoleReviewer, []string{req.TeacherID})
}

// AssignCommittee replaces the full committee set atomically.
func (s *EvaluationService) AssignCommittee(ctx context.Context, actor models.Actor, thesisID string, req AssignCommitteeRequest) error {
	if !actor.CanOperate() {
		return appErrors.Clone(appErrors.ErrForbidden, "only operators assign evaluation roles")
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.WrapAs(err, appErrors.ErrValidation, "invalid committee payload")
	}
	if hasDuplicates(req.TeacherIDs) {
		return appErrors.Clone(appErrors.ErrValidation, "duplicate teacher in committee")
	}
	if _, err := s.theses.FindByID(ctx, thesisID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "thesis not found")
		}
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load thesis")
	}
	for _, teacherID := range req.TeacherIDs {
		if err := s.checkEvaluator(ctx, thesisID, teacherID); err != nil {
			return err
		}
	}
	return s.replaceRole(ctx, thesisID, models.ThesisRoleCommittee, req.TeacherIDs)
}

// checkEvaluator rejects inactive teachers and the thesis supervisor.
func (s *EvaluationService) checkEvaluator(ctx context.Context, thesisID, teacherID string) error {
	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load teacher")
	}
	if !teacher.Active {
		return appErrors.Clone(appErrors.ErrInvalidState, "teacher is inactive")
	}
	isSupervisor, err := s.roles.HasRole(ctx, thesisID, teacherID, models.ThesisRoleSupervisor)
	if err != nil {
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to check supervisor role")
	}
	if isSupervisor {
		return appErrors.Clone(appErrors.ErrConflict, "supervisor cannot hold an evaluation role on the same thesis")
	}
	return nil
}

// replaceRole swaps a role's holders inside one transaction and notifies
// the incoming teachers after commit.
func (s *EvaluationService) replaceRole(ctx context.Context, thesisID string, role models.ThesisRole, teacherIDs []string) error {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to begin role replacement")
	}
	defer func() { _ = tx.Rollback() }()
	if err := s.roles.Replace(ctx, tx, thesisID, role, teacherIDs); err != nil {
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to replace role")
	}
	if err := tx.Commit(); err != nil {
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to commit role replacement")
	}

	notifications := make([]models.Notification, 0, len(teacherIDs))
	for _, teacherID := range teacherIDs {
		notifications = append(notifications, models.Notification{
			RecipientID: teacherID,
			Kind:        models.NotificationRoleAssigned,
			Title:       "Evaluation role assigned",
			Message:     fmt.Sprintf("You were assigned as %s on a thesis", role),
		})
	}
	s.notify.EmitAll(notifications)
	s.logger.Info("evaluation role replaced",
		zap.String("thesis_id", thesisID),
		zap.String("role", string(role)),
		zap.Int("teachers", len(teacherIDs)))
	return nil
}

// ListRoles returns the role rows on a thesis.
func (s *EvaluationService) ListRoles(ctx context.Context, thesisID string) ([]models.RoleAssignmentDetail, error) {
	roles, err := s.roles.ListByThesis(ctx, thesisID)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to list thesis roles")
	}
	return roles, nil
}

// SetFinalGrade stores the externally supplied final grade and terminal
// status in one statement.
func (s *EvaluationService) SetFinalGrade(ctx context.Context, actor models.Actor, req SetFinalGradeRequest) error {
	if !actor.CanOperate() {
		return appErrors.Clone(appErrors.ErrForbidden, "only operators record final grades")
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.WrapAs(err, appErrors.ErrValidation, "invalid final grade payload")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to begin final grading")
	}
	defer func() { _ = tx.Rollback() }()

	var studentID, periodID string
	var failedTrack models.EnrollmentType
	switch req.CaseKind {
	case models.CaseKindPreThesis:
		c, findErr := s.preTheses.FindByID(ctx, req.CaseID)
		if findErr != nil {
			if findErr == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "case not found")
			}
			return appErrors.WrapAs(findErr, appErrors.ErrInternal, "failed to load case")
		}
		studentID, periodID = c.StudentID, c.PeriodID
		failedTrack = models.EnrollmentTypeFailedPreThesis
		err = s.preTheses.SetFinalGrade(ctx, tx, req.CaseID, req.Value, req.Status)
	case models.CaseKindThesis:
		c, findErr := s.theses.FindByID(ctx, req.CaseID)
		if findErr != nil {
			if findErr == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "case not found")
			}
			return appErrors.WrapAs(findErr, appErrors.ErrInternal, "failed to load case")
		}
		studentID, periodID = c.StudentID, c.PeriodID
		failedTrack = models.EnrollmentTypeFailedThesis
		err = s.theses.SetFinalGrade(ctx, tx, req.CaseID, req.Value, req.Status)
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unknown case kind")
	}
	if err != nil {
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to record final grade")
	}
	// A FAILED verdict rolls the enrollment onto the failed track in the
	// same transaction, so retake eligibility follows the verdict exactly.
	if req.Status == models.CaseStatusFailed {
		if err := s.enrollments.SetType(ctx, tx, studentID, periodID, failedTrack); err != nil {
			return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to move student to failed track")
		}
	}
	if err := tx.Commit(); err != nil {
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to commit final grade")
	}

	s.notify.Emit(models.Notification{
		RecipientID: studentID,
		Kind:        models.NotificationGradeRecorded,
		Title:       "Final grade recorded",
		Message:     fmt.Sprintf("Your case was graded %.1f", req.Value),
	})
	return nil
}
