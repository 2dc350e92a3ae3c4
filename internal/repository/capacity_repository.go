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

// CapacityRepository persists per-teacher slot grants. All slot mutations go
// through guarded UPDATEs so remaining can never leave the [0, max] range
// even under concurrent allocators.
type CapacityRepository struct {
	db *sqlx.DB
}

// NewCapacityRepository constructs the repository.
func NewCapacityRepository(db *sqlx.DB) *CapacityRepository {
	return &CapacityRepository{db: db}
}

const capacityColumns = `id, teacher_id, period_id, max_pre_thesis_slots, remaining_pre_thesis_slots, max_thesis_slots, remaining_thesis_slots, created_at, updated_at`

func capacitySlotColumns(kind models.CaseKind) (remaining, max string) {
	if kind == models.CaseKindThesis {
		return "remaining_thesis_slots", "max_thesis_slots"
	}
	return "remaining_pre_thesis_slots", "max_pre_thesis_slots"
}

// List returns grants with teacher and period context.
func (r *CapacityRepository) List(ctx context.Context, filter models.CapacityFilter) ([]models.CapacityGrantDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.PeriodID != "" {
		conditions = append(conditions, fmt.Sprintf("cg.period_id = $%d", len(args)+1))
		args = append(args, filter.PeriodID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("cg.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
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

	query := fmt.Sprintf(`SELECT cg.id, cg.teacher_id, cg.period_id,
            cg.max_pre_thesis_slots, cg.remaining_pre_thesis_slots,
            cg.max_thesis_slots, cg.remaining_thesis_slots,
            cg.created_at, cg.updated_at,
            t.full_name AS teacher_name, p.name AS period_name
        FROM capacity_grants cg
        JOIN teachers t ON t.id = cg.teacher_id
        JOIN periods p ON p.id = cg.period_id%s
        ORDER BY t.full_name ASC LIMIT %d OFFSET %d`, clause, size, offset)

	var grants []models.CapacityGrantDetail
	if err := r.db.SelectContext(ctx, &grants, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list capacity grants: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM capacity_grants cg" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count capacity grants: %w", err)
	}
	return grants, total, nil
}

// FindByID returns a grant by its ID.
func (r *CapacityRepository) FindByID(ctx context.Context, id string) (*models.CapacityGrant, error) {
	query := fmt.Sprintf("SELECT %s FROM capacity_grants WHERE id = $1", capacityColumns)
	var grant models.CapacityGrant
	if err := r.db.GetContext(ctx, &grant, query, id); err != nil {
		return nil, err
	}
	return &grant, nil
}

// FindByTeacherAndPeriod returns the grant for one teacher in one period.
func (r *CapacityRepository) FindByTeacherAndPeriod(ctx context.Context, teacherID, periodID string) (*models.CapacityGrant, error) {
	query := fmt.Sprintf("SELECT %s FROM capacity_grants WHERE teacher_id = $1 AND period_id = $2", capacityColumns)
	var grant models.CapacityGrant
	if err := r.db.GetContext(ctx, &grant, query, teacherID, periodID); err != nil {
		return nil, err
	}
	return &grant, nil
}

// Create persists a new grant with remaining initialized to max.
func (r *CapacityRepository) Create(ctx context.Context, grant *models.CapacityGrant) error {
	if grant.ID == "" {
		grant.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	grant.CreatedAt = now
	grant.UpdatedAt = now
	grant.RemainingPreThesisSlots = grant.MaxPreThesisSlots
	grant.RemainingThesisSlots = grant.MaxThesisSlots
	const query = `INSERT INTO capacity_grants (id, teacher_id, period_id,
            max_pre_thesis_slots, remaining_pre_thesis_slots,
            max_thesis_slots, remaining_thesis_slots, created_at, updated_at)
        VALUES (:id, :teacher_id, :period_id,
            :max_pre_thesis_slots, :remaining_pre_thesis_slots,
            :max_thesis_slots, :remaining_thesis_slots, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, grant); err != nil {
		return fmt.Errorf("create capacity grant: %w", err)
	}
	return nil
}

// LockByTeacherAndPeriod fetches a grant with FOR UPDATE so the caller's
// transaction holds the row until commit.
func (r *CapacityRepository) LockByTeacherAndPeriod(ctx context.Context, exec sqlx.ExtContext, teacherID, periodID string) (*models.CapacityGrant, error) {
	query := fmt.Sprintf("SELECT %s FROM capacity_grants WHERE teacher_id = $1 AND period_id = $2 FOR UPDATE", capacityColumns)
	var grant models.CapacityGrant
	if err := sqlx.GetContext(ctx, exec, &grant, query, teacherID, periodID); err != nil {
		return nil, err
	}
	return &grant, nil
}

// LockAvailableForPeriod fetches every grant in a period with at least one
// remaining slot for the track, locking the rows in a stable order.
func (r *CapacityRepository) LockAvailableForPeriod(ctx context.Context, exec sqlx.ExtContext, periodID string, kind models.CaseKind) ([]models.CapacityGrant, error) {
	remainingCol, _ := capacitySlotColumns(kind)
	query := fmt.Sprintf("SELECT %s FROM capacity_grants WHERE period_id = $1 AND %s > 0 ORDER BY teacher_id FOR UPDATE", capacityColumns, remainingCol)
	var grants []models.CapacityGrant
	if err := sqlx.SelectContext(ctx, exec, &grants, query, periodID); err != nil {
		return nil, err
	}
	return grants, nil
}

// ReserveSlot decrements remaining for one track. The WHERE guard keeps the
// counter from going negative; zero rows affected means capacity ran out.
func (r *CapacityRepository) ReserveSlot(ctx context.Context, exec sqlx.ExtContext, grantID string, kind models.CaseKind) error {
	remainingCol, _ := capacitySlotColumns(kind)
	query := fmt.Sprintf(`UPDATE capacity_grants
        SET %s = %s - 1, updated_at = $2
        WHERE id = $1 AND %s > 0`, remainingCol, remainingCol, remainingCol)
	result, err := exec.ExecContext(ctx, query, grantID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("reserve capacity slot: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve capacity slot: %w", err)
	}
	if affected == 0 {
		return errCapacityExhausted
	}
	return nil
}

// ReleaseSlot returns one slot for the track. The guard keeps remaining from
// exceeding max.
func (r *CapacityRepository) ReleaseSlot(ctx context.Context, exec sqlx.ExtContext, grantID string, kind models.CaseKind) error {
	remainingCol, maxCol := capacitySlotColumns(kind)
	query := fmt.Sprintf(`UPDATE capacity_grants
        SET %s = %s + 1, updated_at = $2
        WHERE id = $1 AND %s < %s`, remainingCol, remainingCol, remainingCol, maxCol)
	result, err := exec.ExecContext(ctx, query, grantID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("release capacity slot: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("release capacity slot: %w", err)
	}
	if affected == 0 {
		return errCapacityFull
	}
	return nil
}

// Resize adjusts max for one track and shifts remaining by the same delta.
// The guard rejects any new max below the in-use count, so remaining stays
// non-negative.
func (r *CapacityRepository) Resize(ctx context.Context, exec sqlx.ExtContext, grantID string, kind models.CaseKind, newMax int) error {
	remainingCol, maxCol := capacitySlotColumns(kind)
	query := fmt.Sprintf(`UPDATE capacity_grants
        SET %s = $2 - (%s - %s), %s = $2, updated_at = $3
        WHERE id = $1 AND $2 >= %s - %s`,
		remainingCol, maxCol, remainingCol, maxCol, maxCol, remainingCol)
	result, err := exec.ExecContext(ctx, query, grantID, newMax, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("resize capacity grant: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("resize capacity grant: %w", err)
	}
	if affected == 0 {
		return errResizeBelowInUse
	}
	return nil
}

var (
	errCapacityExhausted = fmt.Errorf("no remaining capacity")
	errCapacityFull      = fmt.Errorf("capacity already at maximum")
	errResizeBelowInUse  = fmt.Errorf("new maximum below slots in use")
)

// IsCapacityExhausted reports the guarded-decrement failure.
func IsCapacityExhausted(err error) bool { return err == errCapacityExhausted }

// IsCapacityFull reports the guarded-increment failure.
func IsCapacityFull(err error) bool { return err == errCapacityFull }

// IsResizeBelowInUse reports a resize below the consumed slot count.
func IsResizeBelowInUse(err error) bool { return err == errResizeBelowInUse }
