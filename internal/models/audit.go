package models

import (
	"encoding/json"
	"time"
)

// AuditLog records one mutating request after it succeeded.
type AuditLog struct {
	ID        string          `db:"id" json:"id"`
	UserID    *string         `db:"user_id" json:"user_id,omitempty"`
	Action    string          `db:"action" json:"action"`
	Resource  string          `db:"resource" json:"resource"`
	Detail    json.RawMessage `db:"detail" json:"detail"`
	IPAddress string          `db:"ip_address" json:"ip_address"`
	UserAgent string          `db:"user_agent" json:"user_agent"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
