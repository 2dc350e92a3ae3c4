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

// EnrollmentRepository tracks per-period registration state. The one-way
// is_registered flip is enforced at the SQL level with a guarded UPDATE.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `id, student_id, period_id, type, is_registered, created_at, updated_at`

// List returns enrollment records filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentRecord, int, error) {
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
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.IsRegistered != nil {
		conditions = append(conditions, fmt.Sprintf("is_registered = $%d", len(args)+1))
		args = append(args, *filter.IsRegistered)
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

	query := fmt.Sprintf("SELECT %s FROM enrollments%s ORDER BY created_at DESC LIMIT %d OFFSET %d", enrollmentColumns, clause, size, offset)
	var records []models.EnrollmentRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM enrollments" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return records, total, nil
}

// FindByStudentAndPeriod returns the record for one student in one period.
func (r *EnrollmentRepository) FindByStudentAndPeriod(ctx context.Context, studentID, periodID string) (*models.EnrollmentRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE student_id = $1 AND period_id = $2", enrollmentColumns)
	var record models.EnrollmentRecord
	if err := r.db.GetContext(ctx, &record, query, studentID, periodID); err != nil {
		return nil, err
	}
	return &record, nil
}

// Ensure creates the record for (student, period) if none exists and returns
// the current row either way. The unique index on (student_id, period_id)
// makes the insert race-safe.
func (r *EnrollmentRepository) Ensure(ctx context.Context, studentID, periodID string, enrollType models.EnrollmentType) (*models.EnrollmentRecord, error) {
	now := time.Now().UTC()
	const insert = `INSERT INTO enrollments (id, student_id, period_id, type, is_registered, created_at, updated_at)
        VALUES ($1, $2, $3, $4, FALSE, $5, $5)
        ON CONFLICT (student_id, period_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insert, uuid.NewString(), studentID, periodID, enrollType, now); err != nil {
		return nil, fmt.Errorf("ensure enrollment: %w", err)
	}
	return r.FindByStudentAndPeriod(ctx, studentID, periodID)
}

// LockByStudentAndPeriod fetches the record with FOR UPDATE inside the
// caller's transaction.
func (r *EnrollmentRepository) LockByStudentAndPeriod(ctx context.Context, exec sqlx.ExtContext, studentID, periodID string) (*models.EnrollmentRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE student_id = $1 AND period_id = $2 FOR UPDATE", enrollmentColumns)
	var record models.EnrollmentRecord
	if err := sqlx.GetContext(ctx, exec, &record, query, studentID, periodID); err != nil {
		return nil, err
	}
	return &record, nil
}

// LockByStudentsAndPeriod locks the records for a batch of students in a
// stable order, so concurrent batch allocators cannot deadlock.
func (r *EnrollmentRepository) LockByStudentsAndPeriod(ctx context.Context, exec sqlx.ExtContext, studentIDs []string, periodID string) ([]models.EnrollmentRecord, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(
		fmt.Sprintf("SELECT %s FROM enrollments WHERE period_id = ? AND student_id IN (?) ORDER BY student_id FOR UPDATE", enrollmentColumns),
		periodID, studentIDs)
	if err != nil {
		return nil, fmt.Errorf("build enrollment lock query: %w", err)
	}
	query = sqlx.Rebind(sqlx.DOLLAR, query)
	var records []models.EnrollmentRecord
	if err := sqlx.SelectContext(ctx, exec, &records, query, args...); err != nil {
		return nil, err
	}
	return records, nil
}

// MarkRegistered flips is_registered for the record, guarded so the flip
// happens at most once. Zero rows affected means the student was already
// registered or the record is missing.
func (r *EnrollmentRepository) MarkRegistered(ctx context.Context, exec sqlx.ExtContext, studentID, periodID string, enrollType models.EnrollmentType) error {
	const query = `UPDATE enrollments
        SET is_registered = TRUE, type = $3, updated_at = $4
        WHERE student_id = $1 AND period_id = $2 AND is_registered = FALSE`
	result, err := exec.ExecContext(ctx, query, studentID, periodID, enrollType, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark registered: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark registered: %w", err)
	}
	if affected == 0 {
		return errAlreadyRegistered
	}
	return nil
}

// SetType overwrites the enrollment type. A FAILED final grade moves the
// record onto the matching failed track so retakes target the same kind.
func (r *EnrollmentRepository) SetType(ctx context.Context, exec sqlx.ExtContext, studentID, periodID string, enrollType models.EnrollmentType) error {
	const query = `UPDATE enrollments SET type = $3, updated_at = $4
        WHERE student_id = $1 AND period_id = $2`
	if _, err := exec.ExecContext(ctx, query, studentID, periodID, enrollType, time.Now().UTC()); err != nil {
		return fmt.Errorf("set enrollment type: %w", err)
	}
	return nil
}

var errAlreadyRegistered = fmt.Errorf("student already registered for period")

// IsAlreadyRegistered reports the failed one-way flip.
func IsAlreadyRegistered(err error) bool { return err == errAlreadyRegistered }
