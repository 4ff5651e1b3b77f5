// Package models - tenant.go defines the Tenant model, the top-level isolation
// boundary. Every tenant-scoped record (documents, users, assets, sites, and so
// on) carries the owning tenant's ID, and all queries and deletions are scoped
// by it.
package models

import "time"

// TenantStatus is the lifecycle status of a tenant.
type TenantStatus string

const (
	TenantStatusTrial           TenantStatus = "trial"
	TenantStatusActive          TenantStatus = "active"
	TenantStatusInactive        TenantStatus = "inactive"
	TenantStatusPendingDeletion TenantStatus = "pending_deletion"
)

// IsValid reports whether s is one of the known tenant statuses.
func (s TenantStatus) IsValid() bool {
	switch s {
	case TenantStatusTrial, TenantStatusActive, TenantStatusInactive, TenantStatusPendingDeletion:
		return true
	}
	return false
}

// BucketStatus tracks the state of a tenant's dedicated storage bucket.
type BucketStatus string

const (
	BucketStatusNotCreated BucketStatus = "not_created"
	BucketStatusPending    BucketStatus = "pending"
	BucketStatusCreated    BucketStatus = "created"
	BucketStatusFailed     BucketStatus = "failed"
)

// Tenant represents an isolated customer account, the unit of provisioning
// and deletion.
type Tenant struct {
	ID             string
	OrganizationID string
	PlanID         *string
	Name           string
	Status         TenantStatus
	IsTrial        bool
	BucketName     *string // Authoritative once set; derivation is a fallback only
	BucketRegion   *string
	BucketStatus   BucketStatus
	DeletionDate   *time.Time // Set when storage deletion is scheduled rather than immediate
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
