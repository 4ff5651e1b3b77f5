// store.go declares the persistence surface the orchestrators depend on.
// The repositories package provides the production implementation over
// database/sql; tests use recording fakes. Lookup methods follow the
// repository convention of returning (nil, nil) when the row is absent.
package tenancy

import (
	"context"
	"time"

	"github.com/atriumhq/atrium/internal/db/models"
)

// Store is the tenant-scoped persistence surface.
type Store interface {
	GetOrganizationByID(ctx context.Context, id string) (*models.Organization, error)
	GetOrganizationByName(ctx context.Context, name string) (*models.Organization, error)
	CreateOrganization(ctx context.Context, org *models.Organization) error

	GetPlanByID(ctx context.Context, id string) (*models.Plan, error)
	GetDefaultPlan(ctx context.Context) (*models.Plan, error)
	CreatePlan(ctx context.Context, plan *models.Plan) error

	GetTenantByID(ctx context.Context, id string) (*models.Tenant, error)
	GetTenantByOrganization(ctx context.Context, orgID string) (*models.Tenant, error)
	CreateTenant(ctx context.Context, tenant *models.Tenant) error
	UpdateTenant(ctx context.Context, tenant *models.Tenant) error
	UpdateTenantBucket(ctx context.Context, tenantID, bucketName, region string, status models.BucketStatus) error
	UpdateTenantStatus(ctx context.Context, tenantID string, status models.TenantStatus, deletionDate *time.Time) error
	DeleteTenant(ctx context.Context, tenantID string) error

	CreateRole(ctx context.Context, role *models.Role) error

	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	CountActiveUsers(ctx context.Context, tenantID string) (int, error)

	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error

	// DeleteByTenant removes all rows of one tenant-scoped collection and
	// returns the number of rows deleted. Deleting zero rows is not an error.
	DeleteByTenant(ctx context.Context, collection models.Collection, tenantID string) (int64, error)
}

// TxStore is a Store bound to a single open database transaction.
type TxStore interface {
	Store
	Commit() error
	Rollback() error
}

// Persistence is a Store that can open transactions for the provisioner's
// transactional mode.
type Persistence interface {
	Store
	Begin(ctx context.Context) (TxStore, error)
}
