// users.go implements role and user operations for provisioning (admin role
// and initial user) and the deletion precondition (active-user count).
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atriumhq/atrium/internal/db/models"
)

// CreateRole inserts a tenant-scoped role.
func (s *Store) CreateRole(ctx context.Context, role *models.Role) error {
	query := `
		INSERT INTO roles (id, tenant_id, name, can_create, can_read, can_update, can_delete, can_approve, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	err := s.q.QueryRowContext(ctx, query,
		role.ID,
		role.TenantID,
		role.Name,
		role.CanCreate,
		role.CanRead,
		role.CanUpdate,
		role.CanDelete,
		role.CanApprove,
		role.IsAdmin,
	).Scan(&role.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}

	return nil
}

// GetUserByEmail retrieves a user by email regardless of tenant; emails are
// unique across the system.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, tenant_id, role_id, email, name, password_hash, is_active, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	user := &models.User{}
	err := s.q.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.TenantID,
		&user.RoleID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// CreateUser inserts a new user.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, tenant_id, role_id, email, name, password_hash, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := s.q.QueryRowContext(ctx, query,
		user.ID,
		user.TenantID,
		user.RoleID,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.IsActive,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// CountActiveUsers counts a tenant's non-deactivated users. The deletion
// orchestrator refuses to run while this is nonzero unless forced.
func (s *Store) CountActiveUsers(ctx context.Context, tenantID string) (int, error) {
	query := `SELECT COUNT(*) FROM users WHERE tenant_id = $1 AND is_active = TRUE`

	var count int
	if err := s.q.QueryRowContext(ctx, query, tenantID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active users: %w", err)
	}

	return count, nil
}
