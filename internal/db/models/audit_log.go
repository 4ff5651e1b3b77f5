// Package models - audit_log.go defines the AuditLog model recording
// significant tenant lifecycle events: action, actor, affected resource, and
// arbitrary detail. Entries are append-only; the one exception is the deletion
// orchestrator's final database step, which removes a departing tenant's own
// audit trail.
package models

import "time"

// Audit actions emitted by the lifecycle orchestrators.
const (
	AuditActionTenantProvisioned = "tenant.provisioned"
	AuditActionTenantDeleted     = "tenant.deleted"
	AuditActionTenantSoftDeleted = "tenant.soft_deleted"
	AuditActionBucketFinalized   = "tenant.bucket_finalized"
)

// AuditLog represents one audit entry for a tenant lifecycle event.
type AuditLog struct {
	ID           string
	TenantID     *string // Nullable: survives after the tenant row is gone
	Actor        string  // User ID, "system", or an operator identity
	Action       string
	ResourceType *string
	ResourceID   *string
	Detail       map[string]interface{} // JSONB: additional context
	CreatedAt    time.Time
}
