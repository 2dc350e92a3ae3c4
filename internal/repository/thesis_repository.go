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

// ThesisRepository persists thesis cases and their defense schedule.
type ThesisRepository struct {
	db *sqlx.DB
}

// NewThesisRepository constructs the repository.
func NewThesisRepository(db *sqlx.DB) *ThesisRepository {
	return &ThesisRepository{db: db}
}

const thesisColumns = `id, student_id, supervisor_id, period_id, title, description, status, video_url, defense_date, final_grade, created_at, updated_at`

// Create inserts a case inside the caller's allocation transaction.
func (r *ThesisRepository) Create(ctx context.Context, exec sqlx.ExtContext, c *models.ThesisCase) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = models.CaseStatusPending
	}
	const query = `INSERT INTO thesis_cases (id, student_id, supervisor_id, period_id,
            title, description, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`
	if _, err := exec.ExecContext(ctx, query,
		c.ID, c.StudentID, c.SupervisorID, c.PeriodID,
		c.Title, c.Description, c.Status, now); err != nil {
		return fmt.Errorf("create thesis case: %w", err)
	}
	return nil
}

// FindByID returns a case by its ID.
func (r *ThesisRepository) FindByID(ctx context.Context, id string) (*models.ThesisCase, error) {
	query := fmt.Sprintf("SELECT %s FROM thesis_cases WHERE id = $1", thesisColumns)
	var c models.ThesisCase
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByStudentAndPeriod returns the student's case for a period, if any.
func (r *ThesisRepository) FindByStudentAndPeriod(ctx context.Context, studentID, periodID string) (*models.ThesisCase, error) {
	query := fmt.Sprintf("SELECT %s FROM thesis_cases WHERE student_id = $1 AND period_id = $2", thesisColumns)
	var c models.ThesisCase
	if err := r.db.GetContext(ctx, &c, query, studentID, periodID); err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns cases filtered by the provided criteria. TeacherID matches
// the supervisor column.
func (r *ThesisRepository) List(ctx context.Context, filter models.CaseFilter) ([]models.ThesisCase, int, error) {
	var conditions []string
	var args []interface{}

	if filter.PeriodID != "" {
		conditions = append(conditions, fmt.Sprintf("period_id = $%d", len(args)+1))
		args = append(args, filter.PeriodID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("supervisor_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
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

	query := fmt.Sprintf("SELECT %s FROM thesis_cases%s ORDER BY created_at DESC LIMIT %d OFFSET %d", thesisColumns, clause, size, offset)
	var cases []models.ThesisCase
	if err := r.db.SelectContext(ctx, &cases, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list thesis cases: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM thesis_cases" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count thesis cases: %w", err)
	}
	return cases, total, nil
}

// SetVideoURL records the defense recording link.
func (r *ThesisRepository) SetVideoURL(ctx context.Context, id, videoURL string) error {
	const query = `UPDATE thesis_cases SET video_url = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, videoURL, time.Now().UTC()); err != nil {
		return fmt.Errorf("set thesis video url: %w", err)
	}
	return nil
}

// SetDefenseDate schedules or reschedules the defense.
func (r *ThesisRepository) SetDefenseDate(ctx context.Context, id string, defenseDate time.Time) error {
	const query = `UPDATE thesis_cases SET defense_date = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, defenseDate, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set defense date: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set defense date: %w", err)
	}
	if affected == 0 {
		return errCaseNotFound
	}
	return nil
}

// SetFinalGrade records the moderator-entered final grade and the matching
// terminal status in one statement.
func (r *ThesisRepository) SetFinalGrade(ctx context.Context, exec sqlx.ExtContext, id string, grade float64, status models.CaseStatus) error {
	const query = `UPDATE thesis_cases SET final_grade = $2, status = $3, updated_at = $4 WHERE id = $1`
	result, err := exec.ExecContext(ctx, query, id, grade, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set thesis final grade: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set thesis final grade: %w", err)
	}
	if affected == 0 {
		return errCaseNotFound
	}
	return nil
}

// Snapshot builds the export projection for one case.
func (r *ThesisRepository) Snapshot(ctx context.Context, id string) (*models.CaseSnapshot, error) {
	const query = `SELECT c.id AS case_id, c.title, c.status,
            s.full_name AS student_name, s.nim AS student_nim,
            p.name AS period_name, t.full_name AS supervisor,
            c.defense_date, c.final_grade
        FROM thesis_cases c
        JOIN students s ON s.id = c.student_id
        JOIN periods p ON p.id = c.period_id
        JOIN teachers t ON t.id = c.supervisor_id
        WHERE c.id = $1`
	row := struct {
		CaseID      string            `db:"case_id"`
		Title       string            `db:"title"`
		Status      models.CaseStatus `db:"status"`
		StudentName string            `db:"student_name"`
		StudentNIM  string            `db:"student_nim"`
		PeriodName  string            `db:"period_name"`
		Supervisor  string            `db:"supervisor"`
		DefenseDate *time.Time        `db:"defense_date"`
		FinalGrade  *float64          `db:"final_grade"`
	}{}
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	return &models.CaseSnapshot{
		CaseID:      row.CaseID,
		Kind:        models.CaseKindThesis,
		Title:       row.Title,
		Status:      row.Status,
		StudentName: row.StudentName,
		StudentNIM:  row.StudentNIM,
		PeriodName:  row.PeriodName,
		Supervisor:  row.Supervisor,
		DefenseDate: row.DefenseDate,
		FinalGrade:  row.FinalGrade,
	}, nil
}
