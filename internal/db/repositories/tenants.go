// tenants.go implements tenant row operations: lookup, creation, status and
// bucket updates, and the final row deletion at the end of a deletion run.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/atriumhq/atrium/internal/db/models"
)

const tenantColumns = `id, organization_id, plan_id, name, status, is_trial, bucket_name, bucket_region, bucket_status, deletion_date, created_at, updated_at`

func scanTenant(row *sql.Row) (*models.Tenant, error) {
	tenant := &models.Tenant{}
	var status, bucketStatus string
	err := row.Scan(
		&tenant.ID,
		&tenant.OrganizationID,
		&tenant.PlanID,
		&tenant.Name,
		&status,
		&tenant.IsTrial,
		&tenant.BucketName,
		&tenant.BucketRegion,
		&bucketStatus,
		&tenant.DeletionDate,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	tenant.Status = models.TenantStatus(status)
	tenant.BucketStatus = models.BucketStatus(bucketStatus)
	return tenant, nil
}

// GetTenantByID retrieves a tenant by ID.
func (s *Store) GetTenantByID(ctx context.Context, id string) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return scanTenant(s.q.QueryRowContext(ctx, query, id))
}

// GetTenantByOrganization retrieves the tenant belonging to an organization.
func (s *Store) GetTenantByOrganization(ctx context.Context, orgID string) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE organization_id = $1`
	return scanTenant(s.q.QueryRowContext(ctx, query, orgID))
}

// CreateTenant inserts a new tenant.
func (s *Store) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	query := `
		INSERT INTO tenants (id, organization_id, plan_id, name, status, is_trial, bucket_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := s.q.QueryRowContext(ctx, query,
		tenant.ID,
		tenant.OrganizationID,
		tenant.PlanID,
		tenant.Name,
		string(tenant.Status),
		tenant.IsTrial,
		string(tenant.BucketStatus),
	).Scan(&tenant.CreatedAt, &tenant.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	return nil
}

// UpdateTenant updates a tenant's plan, trial flag, name, and status.
func (s *Store) UpdateTenant(ctx context.Context, tenant *models.Tenant) error {
	query := `
		UPDATE tenants
		SET plan_id = $2, name = $3, status = $4, is_trial = $5, updated_at = NOW()
		WHERE id = $1
	`

	result, err := s.q.ExecContext(ctx, query,
		tenant.ID,
		tenant.PlanID,
		tenant.Name,
		string(tenant.Status),
		tenant.IsTrial,
	)
	if err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("tenant %s not found", tenant.ID)
	}

	return nil
}

// UpdateTenantBucket records the tenant's bucket name, region, and status.
func (s *Store) UpdateTenantBucket(ctx context.Context, tenantID, bucketName, region string, status models.BucketStatus) error {
	query := `
		UPDATE tenants
		SET bucket_name = NULLIF($2, ''), bucket_region = NULLIF($3, ''), bucket_status = $4, updated_at = NOW()
		WHERE id = $1
	`

	_, err := s.q.ExecContext(ctx, query, tenantID, bucketName, region, string(status))
	if err != nil {
		return fmt.Errorf("failed to update tenant bucket: %w", err)
	}

	return nil
}

// UpdateTenantStatus sets the tenant's lifecycle status and, for scheduled
// deletions, the deletion date.
func (s *Store) UpdateTenantStatus(ctx context.Context, tenantID string, status models.TenantStatus, deletionDate *time.Time) error {
	query := `
		UPDATE tenants
		SET status = $2, deletion_date = $3, updated_at = NOW()
		WHERE id = $1
	`

	result, err := s.q.ExecContext(ctx, query, tenantID, string(status), deletionDate)
	if err != nil {
		return fmt.Errorf("failed to update tenant status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("tenant %s not found", tenantID)
	}

	return nil
}

// DeleteTenant removes the tenant row itself. The deletion orchestrator calls
// this last, after the tenant-scoped collections are gone.
func (s *Store) DeleteTenant(ctx context.Context, tenantID string) error {
	query := `DELETE FROM tenants WHERE id = $1`

	_, err := s.q.ExecContext(ctx, query, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}

	return nil
}
