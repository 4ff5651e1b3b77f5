package tenancy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/atriumhq/atrium/internal/db/models"
	"github.com/atriumhq/atrium/internal/storage"
	"github.com/atriumhq/atrium/internal/telemetry"
)

// Storage deletion modes reported in DeletionResult and bucket audit rows.
// None means the run never touched storage (DeleteStorage was off).
const (
	DeletionTypeImmediate = "immediate"
	DeletionTypeScheduled = "scheduled_90_days"
	DeletionTypeNone      = "none"
)

// DeletionSequence is the strict order tenant-scoped collections are deleted
// in: children before parents, audit logs last. Changing this order risks
// foreign-key violations mid-run.
var DeletionSequence = []models.Collection{
	models.CollectionDocumentComments,
	models.CollectionApprovalHistory,
	models.CollectionDocuments,
	models.CollectionAssets,
	models.CollectionFloors,
	models.CollectionBuildings,
	models.CollectionSites,
	models.CollectionCustomers,
	models.CollectionVendors,
	models.CollectionEmailNotifications,
	models.CollectionNotifications,
	models.CollectionSettings,
	models.CollectionUsers,
	models.CollectionRoles,
	models.CollectionAuditLogs,
}

// DeleteOptions controls a full tenant deletion run.
type DeleteOptions struct {
	// DeleteStorage controls the bucket teardown phase.
	DeleteStorage bool
	// ImmediateStorageDelete empties and removes the bucket now. When false
	// the bucket is tagged and given an expiry lifecycle instead; the
	// deletion sweeper finalizes it once the retention window passes.
	ImmediateStorageDelete bool
	// RetentionDays is the delay before a scheduled bucket expires.
	// Zero means the default 90 days.
	RetentionDays int32
	// DeleteDatabase controls the ordered record fan-out.
	DeleteDatabase bool
	// ForceDelete bypasses the active-user precondition.
	ForceDelete bool
	// CreateFinalAuditLog writes a pre-deletion audit row (best-effort).
	CreateFinalAuditLog bool
	// Actor is recorded in the audit trail.
	Actor string
}

// DefaultDeleteOptions returns the standard full-deletion options: database
// and storage both deleted, storage scheduled rather than immediate.
func DefaultDeleteOptions() DeleteOptions {
	return DeleteOptions{
		DeleteStorage:       true,
		DeleteDatabase:      true,
		CreateFinalAuditLog: true,
		Actor:               "system",
	}
}

// SoftDeleteOptions controls a reversible soft delete.
type SoftDeleteOptions struct {
	Actor string
}

// StorageDeletionResult is the best-effort storage sub-result of a deletion
// run. A failed storage phase never fails the run; Error carries what went
// wrong for reconciliation.
type StorageDeletionResult struct {
	Attempted      bool   `json:"attempted"`
	Success        bool   `json:"success"`
	Bucket         string `json:"bucket,omitempty"`
	BucketExisted  bool   `json:"bucket_existed"`
	ObjectsDeleted int    `json:"objects_deleted"`
	BucketDeleted  bool   `json:"bucket_deleted"`
	Scheduled      bool   `json:"scheduled"`
	Error          string `json:"error,omitempty"`
}

// DeletionResult reports a full deletion run.
type DeletionResult struct {
	Success      bool                        `json:"success"`
	Message      string                      `json:"message"`
	TenantID     string                      `json:"tenant_id"`
	TenantName   string                      `json:"tenant_name"`
	DeletionType string                      `json:"deletion_type"`
	Counts       map[models.Collection]int64 `json:"counts"`
	Storage      *StorageDeletionResult      `json:"storage,omitempty"`
	Log          []DeletionLogEntry          `json:"log"`
	Errors       []DeletionErrorEntry        `json:"errors,omitempty"`
}

// Deleter removes tenants and everything they own.
type Deleter struct {
	store      Persistence
	buckets    storage.TenantStore
	dispatcher *Dispatcher

	// retentionDays is the default scheduled-deletion window.
	retentionDays int32
}

// NewDeleter creates a deletion orchestrator. dispatcher may be nil.
func NewDeleter(store Persistence, buckets storage.TenantStore, dispatcher *Dispatcher, retentionDays int32) *Deleter {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	return &Deleter{
		store:         store,
		buckets:       buckets,
		dispatcher:    dispatcher,
		retentionDays: retentionDays,
	}
}

// DeleteTenantCompletely removes one tenant: precondition checks, a final
// audit row, the ordered database fan-out, the storage teardown, and finally
// the tenant row itself. Database failures abort before storage is touched;
// storage failures are captured in the result and never abort the run.
// Nothing is rolled back — deletion is forward-only, not atomic across record
// types.
func (d *Deleter) DeleteTenantCompletely(ctx context.Context, tenantID string, opts DeleteOptions) (*DeletionResult, error) {
	result := &DeletionResult{
		TenantID:     tenantID,
		DeletionType: deletionType(opts),
		Counts:       make(map[models.Collection]int64),
	}
	logStep := func(step string, detail map[string]interface{}) {
		result.Log = append(result.Log, DeletionLogEntry{Step: step, Timestamp: time.Now(), Detail: detail})
	}
	logError := func(step string, err error) {
		result.Errors = append(result.Errors, DeletionErrorEntry{Step: step, Message: err.Error(), Timestamp: time.Now()})
	}

	tenant, err := d.store.GetTenantByID(ctx, tenantID)
	if err != nil {
		return result, &DatabaseOperationError{Op: "get tenant", Err: err}
	}
	if tenant == nil {
		return result, ErrTenantNotFound
	}
	result.TenantName = tenant.Name
	logStep("load_tenant", map[string]interface{}{"name": tenant.Name, "status": string(tenant.Status)})

	if !opts.ForceDelete {
		count, err := d.store.CountActiveUsers(ctx, tenantID)
		if err != nil {
			return result, &DatabaseOperationError{Op: "count active users", Err: err}
		}
		if count > 0 {
			return result, &ActiveUsersError{Count: count}
		}
		logStep("check_active_users", map[string]interface{}{"active_users": 0})
	} else {
		logStep("check_active_users", map[string]interface{}{"forced": true})
	}

	if opts.CreateFinalAuditLog {
		entry := &models.AuditLog{
			ID:           uuid.New().String(),
			TenantID:     &tenantID,
			Actor:        opts.Actor,
			Action:       models.AuditActionTenantDeleted,
			ResourceType: strPtr("tenant"),
			ResourceID:   &tenantID,
			Detail: map[string]interface{}{
				"tenant_name":   tenant.Name,
				"deletion_type": result.DeletionType,
				"forced":        opts.ForceDelete,
			},
		}
		if err := d.store.CreateAuditLog(ctx, entry); err != nil {
			// Audit is best-effort here; the row would be deleted later in
			// the run anyway.
			slog.Warn("failed to write pre-deletion audit entry", "tenant_id", tenantID, "error", err)
			logError("final_audit_log", err)
		} else {
			logStep("final_audit_log", nil)
		}
	}

	if opts.DeleteDatabase {
		for _, collection := range DeletionSequence {
			n, err := d.store.DeleteByTenant(ctx, collection, tenantID)
			if err != nil {
				logError("delete_"+string(collection), err)
				telemetry.TenantsDeletedTotal.WithLabelValues("failed").Inc()
				return result, &DatabaseDeletionError{Collection: collection, Counts: result.Counts, Err: err}
			}
			result.Counts[collection] = n
		}
		logStep("delete_database_records", map[string]interface{}{"collections": len(DeletionSequence)})
	}

	if opts.DeleteStorage {
		result.Storage = d.deleteStorage(ctx, tenant, opts, logStep, logError)
	}

	if err := d.store.DeleteTenant(ctx, tenantID); err != nil {
		logError("delete_tenant_record", err)
		telemetry.TenantsDeletedTotal.WithLabelValues("failed").Inc()
		return result, &DatabaseOperationError{Op: "delete tenant", Err: err}
	}
	logStep("delete_tenant_record", nil)

	result.Success = true
	result.Message = deletionMessage(tenant.Name, result)
	telemetry.TenantsDeletedTotal.WithLabelValues(result.DeletionType).Inc()

	d.dispatcher.Dispatch(ctx, TenantDeletedEvent{
		TenantID:     tenantID,
		TenantName:   tenant.Name,
		DeletionType: result.DeletionType,
		Counts:       result.Counts,
	})

	return result, nil
}

// deleteStorage tears the tenant bucket down, immediately or by scheduling
// expiry. Every failure is captured in the sub-result instead of returned:
// the tenant must disappear from the product even when storage cleanup fails.
func (d *Deleter) deleteStorage(ctx context.Context, tenant *models.Tenant, opts DeleteOptions, logStep func(string, map[string]interface{}), logError func(string, error)) *StorageDeletionResult {
	sub := &StorageDeletionResult{Attempted: true, Scheduled: !opts.ImmediateStorageDelete}
	fail := func(op string, err error) *StorageDeletionResult {
		wrapped := &StorageOperationError{Op: op, Bucket: sub.Bucket, Err: err}
		sub.Error = wrapped.Error()
		logError("storage_"+op, wrapped)
		telemetry.StorageOperationErrors.WithLabelValues(op).Inc()
		return sub
	}

	if tenant.BucketName == nil || *tenant.BucketName == "" {
		// Never provisioned a bucket; nothing to clean up.
		sub.Success = true
		logStep("storage_teardown", map[string]interface{}{"skipped": "no bucket recorded"})
		return sub
	}
	sub.Bucket = *tenant.BucketName

	exists, err := d.buckets.BucketExists(ctx, sub.Bucket)
	if err != nil {
		return fail("head bucket", err)
	}
	sub.BucketExisted = exists
	if !exists {
		sub.Success = true
		logStep("storage_teardown", map[string]interface{}{"bucket": sub.Bucket, "existed": false})
		return sub
	}

	if opts.ImmediateStorageDelete {
		deleted, err := d.emptyBucket(ctx, sub.Bucket)
		sub.ObjectsDeleted = deleted
		if err != nil {
			return fail("empty bucket", err)
		}
		if err := d.buckets.DeleteBucket(ctx, sub.Bucket); err != nil {
			return fail("delete bucket", err)
		}
		sub.BucketDeleted = true
		sub.Success = true
		logStep("storage_teardown", map[string]interface{}{
			"bucket":          sub.Bucket,
			"objects_deleted": deleted,
			"mode":            DeletionTypeImmediate,
		})
		return sub
	}

	retention := opts.RetentionDays
	if retention <= 0 {
		retention = d.retentionDays
	}
	now := time.Now().UTC()
	deletionDate := now.AddDate(0, 0, int(retention))

	// Merge the scheduling tags into whatever is already on the bucket.
	tags, err := d.buckets.GetTags(ctx, sub.Bucket)
	if err != nil {
		return fail("get tags", err)
	}
	if tags == nil {
		tags = make(map[string]string)
	}
	tags[storage.TagStatus] = "PendingDeletion"
	tags[storage.TagDeletionScheduled] = "true"
	tags[storage.TagDeletionDate] = deletionDate.Format(time.RFC3339)
	tags[storage.TagDeletedAt] = now.Format(time.RFC3339)
	if _, ok := tags[storage.TagTenantID]; !ok {
		tags[storage.TagTenantID] = tenant.ID
	}
	if err := d.buckets.PutTags(ctx, sub.Bucket, tags); err != nil {
		return fail("put tags", err)
	}

	if err := d.buckets.PutLifecycle(ctx, sub.Bucket, storage.ExpiryLifecycle(retention)); err != nil {
		return fail("put lifecycle", err)
	}

	sub.Success = true
	logStep("storage_teardown", map[string]interface{}{
		"bucket":        sub.Bucket,
		"mode":          DeletionTypeScheduled,
		"deletion_date": deletionDate.Format(time.RFC3339),
	})
	return sub
}

// emptyBucket drains every object from the bucket, one page at a time, in
// delete batches no larger than the store allows. Returns the number of
// objects deleted, which is accurate even when an error cuts the drain short.
func (d *Deleter) emptyBucket(ctx context.Context, bucket string) (int, error) {
	deleted := 0
	var token *string
	for {
		page, err := d.buckets.ListObjects(ctx, bucket, token)
		if err != nil {
			return deleted, fmt.Errorf("list objects: %w", err)
		}
		for start := 0; start < len(page.Keys); start += storage.MaxDeleteBatch {
			end := start + storage.MaxDeleteBatch
			if end > len(page.Keys) {
				end = len(page.Keys)
			}
			batch := page.Keys[start:end]
			if err := d.buckets.DeleteObjects(ctx, bucket, batch); err != nil {
				return deleted, fmt.Errorf("delete objects: %w", err)
			}
			deleted += len(batch)
		}
		if page.NextToken == nil {
			return deleted, nil
		}
		token = page.NextToken
	}
}

// SoftDeleteTenant marks the tenant inactive and records the action. It is
// the reversible alternative to DeleteTenantCompletely: no dependent records
// or storage are touched.
func (d *Deleter) SoftDeleteTenant(ctx context.Context, tenantID string, opts SoftDeleteOptions) (*models.Tenant, error) {
	tenant, err := d.store.GetTenantByID(ctx, tenantID)
	if err != nil {
		return nil, &DatabaseOperationError{Op: "get tenant", Err: err}
	}
	if tenant == nil {
		return nil, ErrTenantNotFound
	}

	if err := d.store.UpdateTenantStatus(ctx, tenantID, models.TenantStatusInactive, nil); err != nil {
		return nil, &DatabaseOperationError{Op: "update tenant status", Err: err}
	}
	tenant.Status = models.TenantStatusInactive

	actor := opts.Actor
	if actor == "" {
		actor = "system"
	}
	entry := &models.AuditLog{
		ID:           uuid.New().String(),
		TenantID:     &tenantID,
		Actor:        actor,
		Action:       models.AuditActionTenantSoftDeleted,
		ResourceType: strPtr("tenant"),
		ResourceID:   &tenantID,
		Detail:       map[string]interface{}{"tenant_name": tenant.Name},
	}
	if err := d.store.CreateAuditLog(ctx, entry); err != nil {
		slog.Warn("failed to write soft-delete audit entry", "tenant_id", tenantID, "error", err)
	}

	d.dispatcher.Dispatch(ctx, TenantSoftDeletedEvent{TenantID: tenantID, Actor: actor})
	return tenant, nil
}

func deletionType(opts DeleteOptions) string {
	switch {
	case !opts.DeleteStorage:
		return DeletionTypeNone
	case opts.ImmediateStorageDelete:
		return DeletionTypeImmediate
	default:
		return DeletionTypeScheduled
	}
}

func deletionMessage(name string, result *DeletionResult) string {
	switch result.DeletionType {
	case DeletionTypeImmediate:
		return fmt.Sprintf("tenant %q deleted; bucket and contents removed immediately", name)
	case DeletionTypeNone:
		return fmt.Sprintf("tenant %q deleted; storage untouched", name)
	default:
		return fmt.Sprintf("tenant %q deleted; bucket scheduled for expiry", name)
	}
}
