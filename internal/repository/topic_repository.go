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

// TopicRepository persists pre-thesis topics. Slot mutations mirror the
// capacity ledger: guarded decrements, auto-close at zero.
type TopicRepository struct {
	db *sqlx.DB
}

// NewTopicRepository constructs the repository.
func NewTopicRepository(db *sqlx.DB) *TopicRepository {
	return &TopicRepository{db: db}
}

const topicColumns = `id, teacher_id, period_id, title, description, max_slots, remaining_slots, min_gpa, min_credits, status, created_at, updated_at`

// List returns topics with supervisor context, filtered and paginated.
func (r *TopicRepository) List(ctx context.Context, filter models.TopicFilter) ([]models.TopicDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.PeriodID != "" {
		conditions = append(conditions, fmt.Sprintf("tp.period_id = $%d", len(args)+1))
		args = append(args, filter.PeriodID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("tp.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("tp.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	sortBy := "tp.created_at"
	switch filter.SortBy {
	case "title":
		sortBy = "tp.title"
	case "remaining_slots":
		sortBy = "tp.remaining_slots"
	}
	sortOrder := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		sortOrder = "ASC"
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

	query := fmt.Sprintf(`SELECT tp.id, tp.teacher_id, tp.period_id, tp.title, tp.description,
            tp.max_slots, tp.remaining_slots, tp.min_gpa, tp.min_credits, tp.status,
            tp.created_at, tp.updated_at, t.full_name AS teacher_name
        FROM topics tp
        JOIN teachers t ON t.id = tp.teacher_id%s
        ORDER BY %s %s LIMIT %d OFFSET %d`, clause, sortBy, sortOrder, size, offset)

	var topics []models.TopicDetail
	if err := r.db.SelectContext(ctx, &topics, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list topics: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM topics tp" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count topics: %w", err)
	}
	return topics, total, nil
}

// FindByID returns a topic by its ID.
func (r *TopicRepository) FindByID(ctx context.Context, id string) (*models.Topic, error) {
	query := fmt.Sprintf("SELECT %s FROM topics WHERE id = $1", topicColumns)
	var topic models.Topic
	if err := r.db.GetContext(ctx, &topic, query, id); err != nil {
		return nil, err
	}
	return &topic, nil
}

// FindDetailByID returns a topic joined with its supervisor's name.
func (r *TopicRepository) FindDetailByID(ctx context.Context, id string) (*models.TopicDetail, error) {
	const query = `SELECT tp.id, tp.teacher_id, tp.period_id, tp.title, tp.description,
            tp.max_slots, tp.remaining_slots, tp.min_gpa, tp.min_credits, tp.status,
            tp.created_at, tp.updated_at, t.full_name AS teacher_name
        FROM topics tp
        JOIN teachers t ON t.id = tp.teacher_id
        WHERE tp.id = $1`
	var topic models.TopicDetail
	if err := r.db.GetContext(ctx, &topic, query, id); err != nil {
		return nil, err
	}
	return &topic, nil
}

// Create persists a new topic with remaining initialized to max.
func (r *TopicRepository) Create(ctx context.Context, topic *models.Topic) error {
	if topic.ID == "" {
		topic.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	topic.CreatedAt = now
	topic.UpdatedAt = now
	topic.RemainingSlots = topic.MaxSlots
	if topic.Status == "" {
		topic.Status = models.TopicStatusOpen
	}
	const query = `INSERT INTO topics (id, teacher_id, period_id, title, description,
            max_slots, remaining_slots, min_gpa, min_credits, status, created_at, updated_at)
        VALUES (:id, :teacher_id, :period_id, :title, :description,
            :max_slots, :remaining_slots, :min_gpa, :min_credits, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, topic); err != nil {
		return fmt.Errorf("create topic: %w", err)
	}
	return nil
}

// Update modifies the descriptive fields of a topic.
func (r *TopicRepository) Update(ctx context.Context, topic *models.Topic) error {
	topic.UpdatedAt = time.Now().UTC()
	const query = `UPDATE topics SET title = :title, description = :description,
        min_gpa = :min_gpa, min_credits = :min_credits, status = :status, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, topic); err != nil {
		return fmt.Errorf("update topic: %w", err)
	}
	return nil
}

// Lock fetches a topic with FOR UPDATE inside the caller's transaction.
func (r *TopicRepository) Lock(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Topic, error) {
	query := fmt.Sprintf("SELECT %s FROM topics WHERE id = $1 FOR UPDATE", topicColumns)
	var topic models.Topic
	if err := sqlx.GetContext(ctx, exec, &topic, query, id); err != nil {
		return nil, err
	}
	return &topic, nil
}

// LockOpenByPeriod fetches every open topic with remaining slots in a
// period, locking the rows in a stable order.
func (r *TopicRepository) LockOpenByPeriod(ctx context.Context, exec sqlx.ExtContext, periodID string) ([]models.Topic, error) {
	query := fmt.Sprintf("SELECT %s FROM topics WHERE period_id = $1 AND status = 'OPEN' AND remaining_slots > 0 ORDER BY id FOR UPDATE", topicColumns)
	var topics []models.Topic
	if err := sqlx.SelectContext(ctx, exec, &topics, query, periodID); err != nil {
		return nil, err
	}
	return topics, nil
}

// ReserveSlot decrements a topic's remaining slots and closes the topic when
// the last slot goes. Zero rows affected means the topic was closed or full.
func (r *TopicRepository) ReserveSlot(ctx context.Context, exec sqlx.ExtContext, id string) error {
	const query = `UPDATE topics
        SET remaining_slots = remaining_slots - 1,
            status = CASE WHEN remaining_slots - 1 = 0 THEN 'CLOSED' ELSE status END,
            updated_at = $2
        WHERE id = $1 AND status = 'OPEN' AND remaining_slots > 0`
	result, err := exec.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("reserve topic slot: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve topic slot: %w", err)
	}
	if affected == 0 {
		return errCapacityExhausted
	}
	return nil
}

// ReleaseSlot returns one slot and reopens the topic.
func (r *TopicRepository) ReleaseSlot(ctx context.Context, exec sqlx.ExtContext, id string) error {
	const query = `UPDATE topics
        SET remaining_slots = remaining_slots + 1, status = 'OPEN', updated_at = $2
        WHERE id = $1 AND remaining_slots < max_slots`
	result, err := exec.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("release topic slot: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("release topic slot: %w", err)
	}
	if affected == 0 {
		return errCapacityFull
	}
	return nil
}

// Resize adjusts max_slots, shifting remaining by the same delta. The guard
// rejects a new maximum below the consumed count.
func (r *TopicRepository) Resize(ctx context.Context, exec sqlx.ExtContext, id string, newMax int) error {
	const query = `UPDATE topics
        SET remaining_slots = $2 - (max_slots - remaining_slots),
            max_slots = $2,
            status = CASE WHEN $2 - (max_slots - remaining_slots) = 0 THEN 'CLOSED' ELSE 'OPEN' END,
            updated_at = $3
        WHERE id = $1 AND $2 >= max_slots - remaining_slots`
	result, err := exec.ExecContext(ctx, query, id, newMax, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("resize topic: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("resize topic: %w", err)
	}
	if affected == 0 {
		return errResizeBelowInUse
	}
	return nil
}
