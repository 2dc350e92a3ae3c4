package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/satriadp/supervision-api/internal/models"
)

// AuditRepository persists the append-only audit trail.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends one audit row.
func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (user_id, action, resource, detail, ip_address, user_agent)
		VALUES (:user_id, :action, :resource, :detail, :ip_address, :user_agent)`
	_, err := r.db.NamedExecContext(ctx, query, entry)
	return err
}

// ListRecent returns the newest audit rows for one resource.
func (r *AuditRepository) ListRecent(ctx context.Context, resource string, limit int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []models.AuditLog
	query := `
		SELECT id, user_id, action, resource, detail, ip_address, user_agent, created_at
		FROM audit_logs
		WHERE resource = $1
		ORDER BY created_at DESC
		LIMIT $2`
	if err := r.db.SelectContext(ctx, &entries, query, resource, limit); err != nil {
		return nil, err
	}
	return entries, nil
}
