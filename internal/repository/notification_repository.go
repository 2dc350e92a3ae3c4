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

// NotificationRepository persists delivered notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create persists one notification.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (id, recipient_id, kind, title, message, created_at)
        VALUES (:id, :recipient_id, :kind, :title, :message, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// List returns a recipient's notifications, newest first.
func (r *NotificationRepository) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	conditions := []string{"recipient_id = $1"}
	args := []interface{}{filter.RecipientID}

	if filter.Unread != nil && *filter.Unread {
		conditions = append(conditions, "read_at IS NULL")
	}

	clause := " WHERE " + strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, recipient_id, kind, title, message, read_at, created_at
        FROM notifications%s ORDER BY created_at DESC LIMIT %d OFFSET %d`, clause, size, offset)
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM notifications" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	return notifications, total, nil
}

// MarkRead stamps read_at on one of the recipient's notifications. The
// recipient check keeps users from marking each other's rows.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, recipientID string) error {
	const query = `UPDATE notifications SET read_at = $3
        WHERE id = $1 AND recipient_id = $2 AND read_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id, recipientID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if affected == 0 {
		return errNotificationNotFound
	}
	return nil
}

var errNotificationNotFound = fmt.Errorf("notification not found or already read")

// IsNotificationNotFound reports the missing-or-read sentinel.
func IsNotificationNotFound(err error) bool { return err == errNotificationNotFound }
