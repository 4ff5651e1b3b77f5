// audit.go implements the append-only audit log writes the orchestrators
// emit at the start and end of a tenant's life.
package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/atriumhq/atrium/internal/db/models"
)

// CreateAuditLog inserts one audit entry. The detail payload is stored as
// JSONB.
func (s *Store) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	var detail []byte
	if entry.Detail != nil {
		var err error
		detail, err = json.Marshal(entry.Detail)
		if err != nil {
			return fmt.Errorf("failed to marshal audit detail: %w", err)
		}
	}

	query := `
		INSERT INTO audit_logs (id, tenant_id, actor, action, resource_type, resource_id, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	err := s.q.QueryRowContext(ctx, query,
		entry.ID,
		entry.TenantID,
		entry.Actor,
		entry.Action,
		entry.ResourceType,
		entry.ResourceID,
		detail,
	).Scan(&entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}

	return nil
}
