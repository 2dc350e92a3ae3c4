package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/satriadp/supervision-api/internal/models"
)

// RoleRepository persists teacher role assignments on thesis cases.
// Replacement is delete-then-insert inside the caller's transaction so a
// thesis never transiently holds two reviewers.
type RoleRepository struct {
	db *sqlx.DB
}

// NewRoleRepository constructs the repository.
func NewRoleRepository(db *sqlx.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// Create inserts a role row inside the caller's transaction.
func (r *RoleRepository) Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.RoleAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	assignment.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO thesis_roles (id, thesis_id, teacher_id, role, created_at)
        VALUES ($1, $2, $3, $4, $5)`
	if _, err := exec.ExecContext(ctx, query,
		assignment.ID, assignment.ThesisID, assignment.TeacherID, assignment.Role, assignment.CreatedAt); err != nil {
		return fmt.Errorf("create role assignment: %w", err)
	}
	return nil
}

// ListByThesis returns all role rows for a thesis with teacher names.
func (r *RoleRepository) ListByThesis(ctx context.Context, thesisID string) ([]models.RoleAssignmentDetail, error) {
	const query = `SELECT tr.id, tr.thesis_id, tr.teacher_id, tr.role, tr.created_at,
            t.full_name AS teacher_name
        FROM thesis_roles tr
        JOIN teachers t ON t.id = tr.teacher_id
        WHERE tr.thesis_id = $1
        ORDER BY tr.role, t.full_name`
	var roles []models.RoleAssignmentDetail
	if err := r.db.SelectContext(ctx, &roles, query, thesisID); err != nil {
		return nil, fmt.Errorf("list thesis roles: %w", err)
	}
	return roles, nil
}

// HasRole reports whether the teacher holds the given role on the thesis.
func (r *RoleRepository) HasRole(ctx context.Context, thesisID, teacherID string, role models.ThesisRole) (bool, error) {
	const query = `SELECT EXISTS (
        SELECT 1 FROM thesis_roles WHERE thesis_id = $1 AND teacher_id = $2 AND role = $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, thesisID, teacherID, role); err != nil {
		return false, fmt.Errorf("check thesis role: %w", err)
	}
	return exists, nil
}

// HasAnyRole reports whether the teacher holds any role on the thesis.
func (r *RoleRepository) HasAnyRole(ctx context.Context, thesisID, teacherID string) (bool, error) {
	const query = `SELECT EXISTS (
        SELECT 1 FROM thesis_roles WHERE thesis_id = $1 AND teacher_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, thesisID, teacherID); err != nil {
		return false, fmt.Errorf("check thesis role: %w", err)
	}
	return exists, nil
}

// Replace swaps every holder of a role on the thesis for the given teachers,
// delete-then-insert, inside the caller's transaction.
func (r *RoleRepository) Replace(ctx context.Context, exec sqlx.ExtContext, thesisID string, role models.ThesisRole, teacherIDs []string) error {
	const deleteQuery = `DELETE FROM thesis_roles WHERE thesis_id = $1 AND role = $2`
	if _, err := exec.ExecContext(ctx, deleteQuery, thesisID, role); err != nil {
		return fmt.Errorf("clear thesis %s roles: %w", role, err)
	}
	now := time.Now().UTC()
	const insertQuery = `INSERT INTO thesis_roles (id, thesis_id, teacher_id, role, created_at)
        VALUES ($1, $2, $3, $4, $5)`
	for _, teacherID := range teacherIDs {
		if _, err := exec.ExecContext(ctx, insertQuery, uuid.NewString(), thesisID, teacherID, role, now); err != nil {
			return fmt.Errorf("assign thesis %s role: %w", role, err)
		}
	}
	return nil
}
