// Package models - plan.go defines the Plan model, a billing tier template
// referenced by tenants. Plans are never owned by a tenant.
package models

import "time"

// DefaultPlanName is the name of the singleton zero-cost plan that
// provisioning falls back to when no plan ID is supplied.
const DefaultPlanName = "default"

// Plan represents a billing tier with usage ceilings.
type Plan struct {
	ID           string
	Name         string
	Tier         string
	MonthlyPrice float64
	MaxUsers     int
	MaxSites     int
	MaxStorageGB int
	IsActive     bool
	IsDefault    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DefaultPlan returns the zero-cost default plan template.
func DefaultPlan() *Plan {
	return &Plan{
		Name:         DefaultPlanName,
		Tier:         "free",
		MonthlyPrice: 0,
		MaxUsers:     5,
		MaxSites:     1,
		MaxStorageGB: 5,
		IsActive:     true,
		IsDefault:    true,
	}
}
