package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/satriadp/supervision-api/internal/models"
	appErrors "github.com/satriadp/supervision-api/pkg/errors"
)

type submissionRepository interface {
	Create(ctx context.Context, sub *models.Submission) error
	History(ctx context.Context, caseKind models.CaseKind, caseID string) ([]models.Submission, error)
	Latest(ctx context.Context, caseKind models.CaseKind, caseID string) ([]models.Submission, error)
}

type preThesisReader interface {
	FindByID(ctx context.Context, id string) (*models.PreThesisCase, error)
	SetVideoURL(ctx context.Context, id, videoURL string) error
}

type thesisReader interface {
	FindByID(ctx context.Context, id string) (*models.ThesisCase, error)
	SetVideoURL(ctx context.Context, id, videoURL string) error
}

// SubmitRequest appends one milestone artifact to a case.
type SubmitRequest struct {
	CaseKind models.CaseKind       `json:"case_kind" validate:"required"`
	CaseID   string                `json:"case_id" validate:"required"`
	Kind     models.SubmissionKind `json:"kind" validate:"required"`
	FileRef  string                `json:"file_ref" validate:"required"`
}

// SetVideoURLRequest attaches a recording link to a case.
type SetVideoURLRequest struct {
	CaseKind models.CaseKind `json:"case_kind" validate:"required"`
	CaseID   string          `json:"case_id" validate:"required"`
	VideoURL string          `json:"video_url" validate:"required,url"`
}

type roleChecker interface {
	HasAnyRole(ctx context.Context, thesisID, teacherID string) (bool, error)
}

// caseRef is the ownership and period context shared by both case tracks.
type caseRef struct {
	id        string
	kind      models.CaseKind
	studentID string
	teacherID string
	periodID  string
	status    models.CaseStatus
}

// SubmissionService runs the deadline-gated append-only milestone pipeline.
type SubmissionService struct {
	repo      submissionRepository
	preTheses preThesisReader
	theses    thesisReader
	roles     roleChecker
	gate      *DeadlineGate
	notify    notifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubmissionService constructs SubmissionService.
func NewSubmissionService(repo submissionRepository, preTheses preThesisReader, theses thesisReader, roles roleChecker, gate *DeadlineGate, notify notifier, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{repo: repo, preTheses: preTheses, theses: theses, roles: roles, gate: gate, notify: notify, validator: validate, logger: logger}
}

func (s *SubmissionService) resolveCase(ctx context.Context, caseKind models.CaseKind, caseID string) (*caseRef, error) {
	switch caseKind {
	case models.CaseKindPreThesis:
		c, err := s.preTheses.FindByID(ctx, caseID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
			}
			return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load case")
		}
		return &caseRef{id: c.ID, kind: caseKind, studentID: c.StudentID, teacherID: c.TeacherID, periodID: c.PeriodID, status: c.Status}, nil
	case models.CaseKindThesis:
		c, err := s.theses.FindByID(ctx, caseID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
			}
			return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load case")
		}
		return &caseRef{id: c.ID, kind: caseKind, studentID: c.StudentID, teacherID: c.SupervisorID, periodID: c.PeriodID, status: c.Status}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown case kind")
	}
}

// Submit appends a milestone upload. The deadline is checked before any row
// is written; a rejected upload leaves no trace.
func (s *SubmissionService) Submit(ctx context.Context, actor models.Actor, req SubmitRequest) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid submission payload")
	}
	if !req.Kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown submission kind")
	}
	ref, err := s.resolveCase(ctx, req.CaseKind, req.CaseID)
	if err != nil {
		return nil, err
	}
	if !actor.IsStudent(ref.studentID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the case owner may submit")
	}
	if ref.status == models.CaseStatusFailed || ref.status == models.CaseStatusComplete {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "case is closed")
	}

	now := time.Now().UTC()
	artifact := models.ArtifactForSubmission(req.CaseKind, req.Kind)
	if err := s.gate.Check(ctx, ref.periodID, artifact, now); err != nil {
		return nil, err
	}

	sub := &models.Submission{
		CaseKind:    req.CaseKind,
		CaseID:      req.CaseID,
		Kind:        req.Kind,
		FileRef:     req.FileRef,
		SubmittedAt: now,
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to store submission")
	}

	s.notify.Emit(models.Notification{
		RecipientID: ref.teacherID,
		Kind:        models.NotificationSubmissionReceived,
		Title:       "New submission",
		Message:     fmt.Sprintf("A %s was submitted for review", req.Kind),
	})
	s.logger.Info("submission accepted",
		zap.String("case_id", req.CaseID),
		zap.String("kind", string(req.Kind)),
		zap.String("file_ref", req.FileRef))
	return sub, nil
}

// Latest returns the current artifact per kind, newest row winning.
func (s *SubmissionService) Latest(ctx context.Context, actor models.Actor, caseKind models.CaseKind, caseID string) ([]models.Submission, error) {
	ref, err := s.resolveCase(ctx, caseKind, caseID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(ctx, actor, ref); err != nil {
		return nil, err
	}
	subs, err := s.repo.Latest(ctx, caseKind, caseID)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to project submissions")
	}
	return subs, nil
}

// History returns the full append-only log for a case.
func (s *SubmissionService) History(ctx context.Context, actor models.Actor, caseKind models.CaseKind, caseID string) ([]models.Submission, error) {
	ref, err := s.resolveCase(ctx, caseKind, caseID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(ctx, actor, ref); err != nil {
		return nil, err
	}
	subs, err := s.repo.History(ctx, caseKind, caseID)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to list submissions")
	}
	return subs, nil
}

// SetVideoURL attaches a recording link. Owner only, same deadline as the
// presentation artifact.
func (s *SubmissionService) SetVideoURL(ctx context.Context, actor models.Actor, req SetVideoURLRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.WrapAs(err, appErrors.ErrValidation, "invalid video payload")
	}
	ref, err := s.resolveCase(ctx, req.CaseKind, req.CaseID)
	if err != nil {
		return err
	}
	if !actor.IsStudent(ref.studentID) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the case owner may attach a recording")
	}
	artifact := models.ArtifactForSubmission(req.CaseKind, models.SubmissionKindPresentation)
	if err := s.gate.Check(ctx, ref.periodID, artifact, time.Now().UTC()); err != nil {
		return err
	}

	switch req.CaseKind {
	case models.CaseKindPreThesis:
		err = s.preTheses.SetVideoURL(ctx, req.CaseID, req.VideoURL)
	default:
		err = s.theses.SetVideoURL(ctx, req.CaseID, req.VideoURL)
	}
	if err != nil {
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to store video url")
	}
	return nil
}

// authorizeRead allows the case owner, the supervising teacher, any
// operator, and for theses any teacher holding a role on the case.
func (s *SubmissionService) authorizeRead(ctx context.Context, actor models.Actor, ref *caseRef) error {
	if actor.CanOperate() || actor.IsStudent(ref.studentID) || actor.IsTeacher(ref.teacherID) {
		return nil
	}
	if ref.kind == models.CaseKindThesis && actor.Kind == models.ActorTeacher {
		holds, err := s.roles.HasAnyRole(ctx, ref.id, actor.TeacherID)
		if err != nil {
			return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to check thesis role")
		}
		if holds {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "not a participant of this case")
}
