// Package models - user.go defines the tenant-scoped User model. Passwords are
// stored only as bcrypt hashes.
package models

import "time"

// User represents a user account belonging to one tenant.
type User struct {
	ID           string
	TenantID     string
	RoleID       *string
	Email        string // Unique across the system
	Name         string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
