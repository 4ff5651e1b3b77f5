// handler.go bridges the lifecycle event dispatcher to the shippers: a
// subscribed handler converts each event into a LogEntry and ships it off the
// request path.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/atriumhq/atrium/internal/db/models"
	"github.com/atriumhq/atrium/internal/safego"
	"github.com/atriumhq/atrium/internal/tenancy"
)

// Subscribe registers handlers on the dispatcher that export every tenant
// lifecycle event through the shipper. Shipping happens on a background
// goroutine so a slow destination never blocks an orchestrator.
func Subscribe(d *tenancy.Dispatcher, shipper Shipper) {
	ship := func(entry *LogEntry) {
		safego.Go("audit-ship", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := shipper.Ship(ctx, entry); err != nil {
				slog.Warn("failed to ship audit entry", "action", entry.Action, "error", err)
			}
		})
	}

	d.Subscribe(tenancy.EventTenantProvisioned, func(_ context.Context, event tenancy.Event) {
		e, ok := event.(tenancy.TenantProvisionedEvent)
		if !ok {
			return
		}
		ship(&LogEntry{
			Timestamp:    time.Now().UTC(),
			Action:       models.AuditActionTenantProvisioned,
			TenantID:     e.Tenant.ID,
			Actor:        "system",
			ResourceType: "tenant",
			ResourceID:   e.Tenant.ID,
			Detail: map[string]interface{}{
				"organization": e.Organization.Name,
				"bucket":       e.BucketName,
			},
		})
	})

	d.Subscribe(tenancy.EventTenantDeleted, func(_ context.Context, event tenancy.Event) {
		e, ok := event.(tenancy.TenantDeletedEvent)
		if !ok {
			return
		}
		counts := make(map[string]interface{}, len(e.Counts))
		for collection, n := range e.Counts {
			counts[string(collection)] = n
		}
		ship(&LogEntry{
			Timestamp:    time.Now().UTC(),
			Action:       models.AuditActionTenantDeleted,
			TenantID:     e.TenantID,
			Actor:        "system",
			ResourceType: "tenant",
			ResourceID:   e.TenantID,
			Detail: map[string]interface{}{
				"tenant_name":   e.TenantName,
				"deletion_type": e.DeletionType,
				"counts":        counts,
			},
		})
	})

	d.Subscribe(tenancy.EventTenantSoftDeleted, func(_ context.Context, event tenancy.Event) {
		e, ok := event.(tenancy.TenantSoftDeletedEvent)
		if !ok {
			return
		}
		ship(&LogEntry{
			Timestamp:    time.Now().UTC(),
			Action:       models.AuditActionTenantSoftDeleted,
			TenantID:     e.TenantID,
			Actor:        e.Actor,
			ResourceType: "tenant",
			ResourceID:   e.TenantID,
		})
	})
}
