// Package models - organization.go defines the Organization model, the business
// entity a tenant belongs to. An organization may pre-date its tenant.
package models

import "time"

// Organization represents the business entity record associated with a tenant.
type Organization struct {
	ID           string
	Name         string // Unique across the system
	ContactEmail string
	Phone        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
