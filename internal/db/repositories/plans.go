// plans.go implements billing plan lookup and creation. Provisioning falls
// back to the singleton default plan when no plan ID is supplied.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atriumhq/atrium/internal/db/models"
)

const planColumns = `id, name, tier, monthly_price, max_users, max_sites, max_storage_gb, is_active, is_default, created_at, updated_at`

func scanPlan(row *sql.Row) (*models.Plan, error) {
	plan := &models.Plan{}
	err := row.Scan(
		&plan.ID,
		&plan.Name,
		&plan.Tier,
		&plan.MonthlyPrice,
		&plan.MaxUsers,
		&plan.MaxSites,
		&plan.MaxStorageGB,
		&plan.IsActive,
		&plan.IsDefault,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	return plan, nil
}

// GetPlanByID retrieves a plan by ID.
func (s *Store) GetPlanByID(ctx context.Context, id string) (*models.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE id = $1`
	return scanPlan(s.q.QueryRowContext(ctx, query, id))
}

// GetDefaultPlan retrieves the singleton default plan.
func (s *Store) GetDefaultPlan(ctx context.Context) (*models.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE is_default = TRUE ORDER BY created_at LIMIT 1`
	return scanPlan(s.q.QueryRowContext(ctx, query))
}

// CreatePlan inserts a new plan.
func (s *Store) CreatePlan(ctx context.Context, plan *models.Plan) error {
	query := `
		INSERT INTO plans (id, name, tier, monthly_price, max_users, max_sites, max_storage_gb, is_active, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := s.q.QueryRowContext(ctx, query,
		plan.ID,
		plan.Name,
		plan.Tier,
		plan.MonthlyPrice,
		plan.MaxUsers,
		plan.MaxSites,
		plan.MaxStorageGB,
		plan.IsActive,
		plan.IsDefault,
	).Scan(&plan.CreatedAt, &plan.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}

	return nil
}
