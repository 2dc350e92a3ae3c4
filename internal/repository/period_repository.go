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

// PeriodRepository handles persistence of academic periods.
type PeriodRepository struct {
	db *sqlx.DB
}

// NewPeriodRepository constructs the repository.
func NewPeriodRepository(db *sqlx.DB) *PeriodRepository {
	return &PeriodRepository{db: db}
}

const periodColumns = `id, name, start_date, end_date, is_active, is_current, is_published, created_at, updated_at`

// List returns periods filtered by the provided criteria.
func (r *PeriodRepository) List(ctx context.Context, filter models.PeriodFilter) ([]models.Period, int, error) {
	var conditions []string
	var args []interface{}

	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)+1))
		args = append(args, *filter.IsActive)
	}
	if filter.IsPublished != nil {
		conditions = append(conditions, fmt.Sprintf("is_published = $%d", len(args)+1))
		args = append(args, *filter.IsPublished)
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

	query := fmt.Sprintf("SELECT %s FROM periods%s ORDER BY start_date DESC LIMIT %d OFFSET %d", periodColumns, clause, size, offset)
	var periods []models.Period
	if err := r.db.SelectContext(ctx, &periods, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list periods: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM periods" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count periods: %w", err)
	}
	return periods, total, nil
}

// FindByID returns a period by its ID.
func (r *PeriodRepository) FindByID(ctx context.Context, id string) (*models.Period, error) {
	query := fmt.Sprintf("SELECT %s FROM periods WHERE id = $1", periodColumns)
	var period models.Period
	if err := r.db.GetContext(ctx, &period, query, id); err != nil {
		return nil, err
	}
	return &period, nil
}

// FindActive returns the period currently flagged active, if any.
func (r *PeriodRepository) FindActive(ctx context.Context) (*models.Period, error) {
	query := fmt.Sprintf("SELECT %s FROM periods WHERE is_active = TRUE LIMIT 1", periodColumns)
	var period models.Period
	if err := r.db.GetContext(ctx, &period, query); err != nil {
		return nil, err
	}
	return &period, nil
}

// Create persists a new period.
func (r *PeriodRepository) Create(ctx context.Context, period *models.Period) error {
	if period.ID == "" {
		period.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	period.CreatedAt = now
	period.UpdatedAt = now
	const query = `INSERT INTO periods (id, name, start_date, end_date, is_active, is_current, is_published, created_at, updated_at)
        VALUES (:id, :name, :start_date, :end_date, :is_active, :is_current, :is_published, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, period); err != nil {
		return fmt.Errorf("create period: %w", err)
	}
	return nil
}

// Update modifies the mutable fields of a period.
func (r *PeriodRepository) Update(ctx context.Context, period *models.Period) error {
	period.UpdatedAt = time.Now().UTC()
	const query = `UPDATE periods SET name = :name, start_date = :start_date, end_date = :end_date, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, period); err != nil {
		return fmt.Errorf("update period: %w", err)
	}
	return nil
}

// setFlag clears one boolean flag on all periods and sets it on the target
// inside a single transaction, so at most one row ever carries the flag.
func (r *PeriodRepository) setFlag(ctx context.Context, column, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin period flag transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	clearQuery := fmt.Sprintf("UPDATE periods SET %s = FALSE, updated_at = $1 WHERE %s = TRUE", column, column)
	if _, err = tx.ExecContext(ctx, clearQuery, now); err != nil {
		return fmt.Errorf("clear period %s: %w", column, err)
	}

	setQuery := fmt.Sprintf("UPDATE periods SET %s = TRUE, updated_at = $1 WHERE id = $2", column)
	result, execErr := tx.ExecContext(ctx, setQuery, now, id)
	if execErr != nil {
		err = fmt.Errorf("set period %s: %w", column, execErr)
		return err
	}
	affected, raErr := result.RowsAffected()
	if raErr != nil {
		err = fmt.Errorf("set period %s: %w", column, raErr)
		return err
	}
	if affected == 0 {
		err = errPeriodNotFound
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit period %s: %w", column, err)
	}
	return nil
}

var errPeriodNotFound = fmt.Errorf("period not found")

// ErrPeriodNotFound reports whether the error is the missing-period sentinel.
func ErrPeriodNotFound(err error) bool {
	return err == errPeriodNotFound
}

// SetActive flags the target period as the single active one.
func (r *PeriodRepository) SetActive(ctx context.Context, id string) error {
	return r.setFlag(ctx, "is_active", id)
}

// SetCurrent flags the target period as the single current one.
func (r *PeriodRepository) SetCurrent(ctx context.Context, id string) error {
	return r.setFlag(ctx, "is_current", id)
}

// SetPublished marks a period visible to students. Unlike active/current,
// multiple periods may be published.
func (r *PeriodRepository) SetPublished(ctx context.Context, id string, published bool) error {
	const query = `UPDATE periods SET is_published = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, published, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("publish period: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("publish period: %w", err)
	}
	if affected == 0 {
		return errPeriodNotFound
	}
	return nil
}
