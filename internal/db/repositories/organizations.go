// organizations.go implements organization lookup and creation for the
// provisioning orchestrator.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atriumhq/atrium/internal/db/models"
)

// GetOrganizationByID retrieves an organization by ID.
func (s *Store) GetOrganizationByID(ctx context.Context, id string) (*models.Organization, error) {
	query := `
		SELECT id, name, contact_email, phone, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`

	org := &models.Organization{}
	err := s.q.QueryRowContext(ctx, query, id).Scan(
		&org.ID,
		&org.Name,
		&org.ContactEmail,
		&org.Phone,
		&org.CreatedAt,
		&org.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return org, nil
}

// GetOrganizationByName retrieves an organization by its unique name.
func (s *Store) GetOrganizationByName(ctx context.Context, name string) (*models.Organization, error) {
	query := `
		SELECT id, name, contact_email, phone, created_at, updated_at
		FROM organizations
		WHERE name = $1
	`

	org := &models.Organization{}
	err := s.q.QueryRowContext(ctx, query, name).Scan(
		&org.ID,
		&org.Name,
		&org.ContactEmail,
		&org.Phone,
		&org.CreatedAt,
		&org.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return org, nil
}

// CreateOrganization inserts a new organization.
func (s *Store) CreateOrganization(ctx context.Context, org *models.Organization) error {
	query := `
		INSERT INTO organizations (id, name, contact_email, phone)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	err := s.q.QueryRowContext(ctx, query, org.ID, org.Name, org.ContactEmail, org.Phone).Scan(
		&org.CreatedAt,
		&org.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}

	return nil
}
