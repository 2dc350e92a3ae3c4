package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/satriadp/supervision-api/internal/models"
)

// ApplicationRepository persists topic applications.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

const applicationColumns = `id, student_id, topic_id, note, status, created_at, updated_at`

const applicationDetailSelect = `SELECT a.id, a.student_id, a.topic_id, a.note, a.status,
        a.created_at, a.updated_at,
        s.full_name AS student_name, s.nim AS student_nim, s.gpa AS student_gpa,
        tp.title AS topic_title, tp.teacher_id AS teacher_id
    FROM topic_applications a
    JOIN students s ON s.id = a.student_id
    JOIN topics tp ON tp.id = a.topic_id`

// List returns applications with student and topic context.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.TopicApplicationDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.TopicID != "" {
		conditions = append(conditions, fmt.Sprintf("a.topic_id = $%d", len(args)+1))
		args = append(args, filter.TopicID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("a.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("tp.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("%s%s ORDER BY a.created_at DESC LIMIT %d OFFSET %d", applicationDetailSelect, clause, size, offset)
	var apps []models.TopicApplicationDetail
	if err := r.db.SelectContext(ctx, &apps, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}

	countQuery := `SELECT COUNT(*) FROM topic_applications a JOIN topics tp ON tp.id = a.topic_id` + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}
	return apps, total, nil
}

// FindByID returns an application by its ID.
func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*models.TopicApplication, error) {
	query := fmt.Sprintf("SELECT %s FROM topic_applications WHERE id = $1", applicationColumns)
	var app models.TopicApplication
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		return nil, err
	}
	return &app, nil
}

// FindDetailByID returns an application joined with student and topic rows.
func (r *ApplicationRepository) FindDetailByID(ctx context.Context, id string) (*models.TopicApplicationDetail, error) {
	query := applicationDetailSelect + " WHERE a.id = $1"
	var app models.TopicApplicationDetail
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		return nil, err
	}
	return &app, nil
}

// FindByStudentAndTopic returns the student's row for a topic, if any.
// At most one exists per pair.
func (r *ApplicationRepository) FindByStudentAndTopic(ctx context.Context, studentID, topicID string) (*models.TopicApplication, error) {
	query := fmt.Sprintf("SELECT %s FROM topic_applications WHERE student_id = $1 AND topic_id = $2", applicationColumns)
	var app models.TopicApplication
	if err := r.db.GetContext(ctx, &app, query, studentID, topicID); err != nil {
		return nil, err
	}
	return &app, nil
}

// Create persists a new PENDING application.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.TopicApplication) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now
	app.Status = models.ApplicationStatusPending
	const query = `INSERT INTO topic_applications (id, student_id, topic_id, note, status, created_at, updated_at)
        VALUES (:id, :student_id, :topic_id, :note, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, app); err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// Recycle flips a REJECTED row back to PENDING with a fresh note. The guard
// refuses to touch rows in any other state.
func (r *ApplicationRepository) Recycle(ctx context.Context, id string, note *string) error {
	const query = `UPDATE topic_applications
        SET status = 'PENDING', note = $2, updated_at = $3
        WHERE id = $1 AND status = 'REJECTED'`
	result, err := r.db.ExecContext(ctx, query, id, note, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("recycle application: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("recycle application: %w", err)
	}
	if affected == 0 {
		return errApplicationNotRecyclable
	}
	return nil
}

// UpdateStatus transitions a PENDING application to a terminal state. Zero
// rows affected means the row already left PENDING.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.ApplicationStatus) error {
	const query = `UPDATE topic_applications
        SET status = $2, updated_at = $3
        WHERE id = $1 AND status = 'PENDING'`
	result, err := exec.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	if affected == 0 {
		return errApplicationNotPending
	}
	return nil
}

// RejectOtherPending marks every other PENDING application of the student as
// REJECTED, returning the affected rows so callers can notify.
func (r *ApplicationRepository) RejectOtherPending(ctx context.Context, exec sqlx.ExtContext, studentID, keepID string) ([]models.TopicApplication, error) {
	const query = `UPDATE topic_applications
        SET status = 'REJECTED', updated_at = $3
        WHERE student_id = $1 AND id <> $2 AND status = 'PENDING'
        RETURNING id, student_id, topic_id, note, status, created_at, updated_at`
	var rejected []models.TopicApplication
	if err := sqlx.SelectContext(ctx, exec, &rejected, query, studentID, keepID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("reject other pending applications: %w", err)
	}
	return rejected, nil
}

var (
	errApplicationNotRecyclable = fmt.Errorf("application is not in a rejected state")
	errApplicationNotPending    = fmt.Errorf("application is not pending")
)

// IsApplicationNotRecyclable reports a recycle attempt on a non-rejected row.
func IsApplicationNotRecyclable(err error) bool { return err == errApplicationNotRecyclable }

// IsApplicationNotPending reports a status transition on a settled row.
func IsApplicationNotPending(err error) bool { return err == errApplicationNotPending }
