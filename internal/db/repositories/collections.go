// collections.go implements the bulk tenant-scoped deletion the deletion
// orchestrator fans out across. The collection name is interpolated into the
// statement, so it is checked against the closed set of known tables first.
package repositories

import (
	"context"
	"fmt"

	"github.com/atriumhq/atrium/internal/db/models"
)

// collectionTables is the closed set of tenant-scoped tables DeleteByTenant
// may touch.
var collectionTables = map[models.Collection]struct{}{
	models.CollectionDocumentComments:   {},
	models.CollectionApprovalHistory:    {},
	models.CollectionDocuments:          {},
	models.CollectionAssets:             {},
	models.CollectionFloors:             {},
	models.CollectionBuildings:          {},
	models.CollectionSites:              {},
	models.CollectionCustomers:          {},
	models.CollectionVendors:            {},
	models.CollectionEmailNotifications: {},
	models.CollectionNotifications:      {},
	models.CollectionSettings:           {},
	models.CollectionUsers:              {},
	models.CollectionRoles:              {},
	models.CollectionAuditLogs:          {},
}

// DeleteByTenant removes all rows of one tenant-scoped collection and returns
// the count. Deleting zero rows is not an error.
func (s *Store) DeleteByTenant(ctx context.Context, collection models.Collection, tenantID string) (int64, error) {
	if _, ok := collectionTables[collection]; !ok {
		return 0, fmt.Errorf("unknown collection %q", collection)
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE tenant_id = $1`, collection)

	result, err := s.q.ExecContext(ctx, query, tenantID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete from %s: %w", collection, err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted rows: %w", err)
	}

	return count, nil
}
