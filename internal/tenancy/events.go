// events.go implements the lifecycle event dispatcher. It replaces the kind of
// process-wide mutable hook registry keyed by free-form strings with an
// explicit dispatcher injected into whichever service emits events: callers
// register typed handlers for a closed set of event types.
package tenancy

import (
	"context"
	"sync"

	"github.com/atriumhq/atrium/internal/db/models"
)

// EventType identifies one of the closed set of lifecycle events.
type EventType string

const (
	EventTenantProvisioned EventType = "tenant_provisioned"
	EventTenantDeleted     EventType = "tenant_deleted"
	EventTenantSoftDeleted EventType = "tenant_soft_deleted"
	EventRecordSaved       EventType = "record_saved"
)

// Event is a lifecycle event payload.
type Event interface {
	Type() EventType
}

// TenantProvisionedEvent is dispatched after a successful provisioning run.
type TenantProvisionedEvent struct {
	Tenant       *models.Tenant
	Organization *models.Organization
	BucketName   string
}

func (TenantProvisionedEvent) Type() EventType { return EventTenantProvisioned }

// TenantDeletedEvent is dispatched after a successful deletion run.
type TenantDeletedEvent struct {
	TenantID     string
	TenantName   string
	DeletionType string
	Counts       map[models.Collection]int64
}

func (TenantDeletedEvent) Type() EventType { return EventTenantDeleted }

// TenantSoftDeletedEvent is dispatched after a soft delete.
type TenantSoftDeletedEvent struct {
	TenantID string
	Actor    string
}

func (TenantSoftDeletedEvent) Type() EventType { return EventTenantSoftDeleted }

// RecordSavedEvent is dispatched when a tenant-scoped record is written
// outside the orchestrators (exposed for the CRUD layer; the orchestrators
// themselves do not emit it).
type RecordSavedEvent struct {
	TenantID   string
	Collection models.Collection
	RecordID   string
}

func (RecordSavedEvent) Type() EventType { return EventRecordSaved }

// Handler processes one dispatched event. Handlers must not block for long;
// anything slow should hand off to a goroutine (see safego.Go).
type Handler func(ctx context.Context, event Event)

// Dispatcher fans events out to registered handlers. Dispatch is synchronous
// and runs handlers in registration order; a nil Dispatcher is valid and
// drops everything, so orchestrators can be constructed without one in tests.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[EventType][]Handler)}
}

// Subscribe registers a handler for one event type.
func (d *Dispatcher) Subscribe(t EventType, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[t] = append(d.handlers[t], h)
}

// Dispatch delivers the event to all handlers registered for its type.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	d.mu.RLock()
	handlers := d.handlers[event.Type()]
	d.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, event)
	}
}
