// Package models - role.go defines the tenant-scoped Role model with a flat
// capability set.
package models

import "time"

// Role represents a tenant-scoped role with CRUD and approval capabilities.
type Role struct {
	ID         string
	TenantID   string
	Name       string
	CanCreate  bool
	CanRead    bool
	CanUpdate  bool
	CanDelete  bool
	CanApprove bool
	IsAdmin    bool
	CreatedAt  time.Time
}

// AdminRole returns the full-capability administrative role for a tenant.
func AdminRole(tenantID string) *Role {
	return &Role{
		TenantID:   tenantID,
		Name:       "Administrator",
		CanCreate:  true,
		CanRead:    true,
		CanUpdate:  true,
		CanDelete:  true,
		CanApprove: true,
		IsAdmin:    true,
	}
}
