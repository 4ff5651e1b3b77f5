package tenancy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/atriumhq/atrium/internal/db/models"
	"github.com/atriumhq/atrium/internal/storage"
)

func seedTenant(store *fakeStore, bucket string) *models.Tenant {
	tenant := &models.Tenant{
		ID:             "ten-1",
		OrganizationID: "org-1",
		Name:           "Acme Pty Ltd",
		Status:         models.TenantStatusActive,
	}
	if bucket != "" {
		tenant.BucketName = &bucket
		tenant.BucketStatus = models.BucketStatusCreated
	}
	store.tenants[tenant.ID] = tenant
	return tenant
}

func newTestDeleter(store *fakeStore, buckets *fakeBuckets) *Deleter {
	return NewDeleter(store, buckets, nil, 90)
}

func TestDeleteTenantCompletely_CollectionOrder(t *testing.T) {
	store := newFakeStore()
	seedTenant(store, "")
	d := newTestDeleter(store, newFakeBuckets())

	result, err := d.DeleteTenantCompletely(context.Background(), "ten-1", DefaultDeleteOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Error("expected Success = true")
	}

	var deletions []string
	tenantRowAt := -1
	for i, call := range store.calls {
		if rest, ok := strings.CutPrefix(call, "DeleteByTenant:"); ok {
			deletions = append(deletions, rest)
		}
		if call == "DeleteTenant" {
			tenantRowAt = i
		}
	}

	if len(deletions) != len(DeletionSequence) {
		t.Fatalf("deleted %d collections, want %d", len(deletions), len(DeletionSequence))
	}
	for i, collection := range DeletionSequence {
		if deletions[i] != string(collection) {
			t.Errorf("deletion %d = %s, want %s", i, deletions[i], collection)
		}
	}
	// The tenant row goes last, after every dependent record.
	for i, call := range store.calls {
		if strings.HasPrefix(call, "DeleteByTenant:") && i > tenantRowAt {
			t.Fatalf("collection deleted after the tenant row: %s", call)
		}
	}
	if _, ok := store.tenants["ten-1"]; ok {
		t.Error("tenant row survived")
	}
}

func TestDeleteTenantCompletely_ReportsRowCounts(t *testing.T) {
	store := newFakeStore()
	seedTenant(store, "")
	store.rows[models.CollectionDocuments] = 42
	store.rows[models.CollectionUsers] = 3
	d := newTestDeleter(store, newFakeBuckets())

	result, err := d.DeleteTenantCompletely(context.Background(), "ten-1", DefaultDeleteOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Counts[models.CollectionDocuments] != 42 {
		t.Errorf("documents count = %d, want 42", result.Counts[models.CollectionDocuments])
	}
	if result.Counts[models.CollectionUsers] != 3 {
		t.Errorf("users count = %d, want 3", result.Counts[models.CollectionUsers])
	}
	if result.Counts[models.CollectionSites] != 0 {
		t.Errorf("sites count = %d, want 0", result.Counts[models.CollectionSites])
	}
}

func TestDeleteTenantCompletely_ActiveUsersBlock(t *testing.T) {
	store := newFakeStore()
	seedTenant(store, "")
	store.activeUsers = 2
	d := newTestDeleter(store, newFakeBuckets())

	_, err := d.DeleteTenantCompletely(context.Background(), "ten-1", DefaultDeleteOptions())
	var activeErr *ActiveUsersError
	if !errors.As(err, &activeErr) {
		t.Fatalf("err = %v, want ActiveUsersError", err)
	}
	if activeErr.Count != 2 {
		t.Errorf("count = %d, want 2", activeErr.Count)
	}

	for _, call := range store.calls {
		if strings.HasPrefix(call, "DeleteByTenant:") || call == "DeleteTenant" {
			t.Fatalf("deletion proceeded despite active users: %s", call)
		}
	}
}

func TestDeleteTenantCompletely_ForceBypassesActiveUsers(t *testing.T) {
	store := newFakeStore()
	seedTenant(store, "")
	store.activeUsers = 2
	d := newTestDeleter(store, newFakeBuckets())

	opts := DefaultDeleteOptions()
	opts.ForceDelete = true
	result, err := d.DeleteTenantCompletely(context.Background(), "ten-1", opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Error("expected Success = true")
	}
	for _, call := range store.calls {
		if call == "CountActiveUsers" {
			t.Error("active users counted despite force delete")
		}
	}
}

func TestDeleteTenantCompletely_NotFound(t *testing.T) {
	d := newTestDeleter(newFakeStore(), newFakeBuckets())
	_, err := d.DeleteTenantCompletely(context.Background(), "missing", DefaultDeleteOptions())
	if !errors.Is(err, ErrTenantNotFound) {
		t.Fatalf("err = %v, want ErrTenantNotFound", err)
	}
}

func TestDeleteTenantCompletely_ImmediateStorage(t *testing.T) {
	store := newFakeStore()
	seedTenant(store, "atrium-acme-pty-ltd-ten-1")
	buckets := newFakeBuckets()
	buckets.pageSize = 2
	state := &bucketState{tags: map[string]string{storage.TagTenantID: "ten-1"}}
	for i := 0; i < 5; i++ {
		state.objects = append(state.objects, fmt.Sprintf("docs/file-%d.pdf", i))
	}
	buckets.buckets["atrium-acme-pty-ltd-ten-1"] = state
	d := newTestDeleter(store, buckets)

	opts := DefaultDeleteOptions()
	opts.ImmediateStorageDelete = true
	opts.ForceDelete = true
	result, err := d.DeleteTenantCompletely(context.Background(), "ten-1", opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.DeletionType != DeletionTypeImmediate {
		t.Errorf("deletion type = %s, want immediate", result.DeletionType)
	}
	sub := result.Storage
	if sub == nil || !sub.Success {
		t.Fatalf("storage = %+v", sub)
	}
	if sub.ObjectsDeleted != 5 {
		t.Errorf("objects deleted = %d, want 5", sub.ObjectsDeleted)
	}
	if !sub.BucketDeleted || sub.Scheduled {
		t.Errorf("storage flags = %+v", sub)
	}
	if _, ok := buckets.buckets["atrium-acme-pty-ltd-ten-1"]; ok {
		t.Error("bucket survived immediate deletion")
	}
}

func TestDeleteTenantCompletely_ScheduledStorage(t *testing.T) {
	store := newFakeStore()
	seedTenant(store, "atrium-acme-pty-ltd-ten-1")
	buckets := newFakeBuckets()
	buckets.buckets["atrium-acme-pty-ltd-ten-1"] = &bucketState{
		objects: []string{"docs/keep-until-expiry.pdf"},
		tags: map[string]string{
			storage.TagTenantID:         "ten-1",
			storage.TagOrganisationName: "Acme Pty Ltd",
			storage.TagStatus:           "Active",
		},
	}
	d := newTestDeleter(store, buckets)

	opts := DefaultDeleteOptions()
	opts.ForceDelete = true
	before := time.Now().UTC()
	result, err := d.DeleteTenantCompletely(context.Background(), "ten-1", opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.DeletionType != DeletionTypeScheduled {
		t.Errorf("deletion type = %s, want scheduled", result.DeletionType)
	}
	sub := result.Storage
	if sub == nil || !sub.Success || !sub.Scheduled || sub.BucketDeleted {
		t.Fatalf("storage = %+v", sub)
	}

	// The bucket survives with merged tags and an expiry lifecycle.
	state := buckets.buckets["atrium-acme-pty-ltd-ten-1"]
	if state == nil {
		t.Fatal("bucket was deleted in scheduled mode")
	}
	if len(state.objects) != 1 {
		t.Error("objects drained in scheduled mode")
	}
	if state.tags[storage.TagOrganisationName] != "Acme Pty Ltd" {
		t.Error("pre-existing tags were not preserved")
	}
	if state.tags[storage.TagStatus] != "PendingDeletion" {
		t.Errorf("Status tag = %q", state.tags[storage.TagStatus])
	}
	if state.tags[storage.TagDeletionScheduled] != "true" {
		t.Errorf("DeletionScheduled tag = %q", state.tags[storage.TagDeletionScheduled])
	}
	deletionDate, err := time.Parse(time.RFC3339, state.tags[storage.TagDeletionDate])
	if err != nil {
		t.Fatalf("DeletionDate tag unparseable: %v", err)
	}
	wantEarliest := before.AddDate(0, 0, 90).Add(-time.Minute)
	if deletionDate.Before(wantEarliest) {
		t.Errorf("deletion date %v is sooner than 90 days out", deletionDate)
	}
	if state.lifecycle == nil || state.lifecycle.ExpirationDays != 90 || state.lifecycle.NoncurrentExpirationDays != 90 {
		t.Errorf("lifecycle = %+v, want 90-day expiry", state.lifecycle)
	}
}

func TestDeleteTenantCompletely_CustomRetention(t *testing.T) {
	store := newFakeStore()
	seedTenant(store, "atrium-acme-pty-ltd-ten-1")
	buckets := newFakeBuckets()
	buckets.buckets["atrium-acme-pty-ltd-ten-1"] = &bucketState{tags: make(map[string]string)}
	d := newTestDeleter(store, buckets)

	opts := DefaultDeleteOptions()
	opts.ForceDelete = true
	opts.RetentionDays = 30
	result, err := d.DeleteTenantCompletely(context.Background(), "ten-1", opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Storage.Success {
		t.Fatalf("storage = %+v", result.Storage)
	}

	state := buckets.buckets["atrium-acme-pty-ltd-ten-1"]
	if state.lifecycle == nil || state.lifecycle.ExpirationDays != 30 {
		t.Errorf("lifecycle = %+v, want 30-day expiry", state.lifecycle)
	}
	// The tenant id tag is backfilled when the bucket never carried one.
	if state.tags[storage.TagTenantID] != "ten-1" {
		t.Errorf("TenantId tag = %q", state.tags[storage.TagTenantID])
	}
}

func TestDeleteTenantCompletely_StorageFailureIsBestEffort(t *testing.T) {
	store := newFakeStore()
	seedTenant(store, "atrium-acme-pty-ltd-ten-1")
	buckets := newFakeBuckets()
	buckets.buckets["atrium-acme-pty-ltd-ten-1"] = &bucketState{tags: make(map[string]string)}
	buckets.failOn["PutTags"] = errStorageDown
	d := newTestDeleter(store, buckets)

	opts := DefaultDeleteOptions()
	opts.ForceDelete = true
	result, err := d.DeleteTenantCompletely(context.Background(), "ten-1", opts)
	if err != nil {
		t.Fatalf("storage failure must not fail the run: %v", err)
	}

	if !result.Success {
		t.Error("expected Success = true")
	}
	if result.Storage.Success || result.Storage.Error == "" {
		t.Errorf("storage = %+v, want captured failure", result.Storage)
	}
	if len(result.Errors) == 0 {
		t.Error("expected a recorded error entry")
	}
	// The tenant row is still gone.
	if _, ok := store.tenants["ten-1"]; ok {
		t.Error("tenant row survived")
	}
}

func TestDeleteTenantCompletely_MissingBucketIsSuccess(t *testing.T) {
	store := newFakeStore()
	seedTenant(store, "atrium-acme-pty-ltd-ten-1") // recorded but never created
	d := newTestDeleter(store, newFakeBuckets())

	opts := DefaultDeleteOptions()
	opts.ForceDelete = true
	result, err := d.DeleteTenantCompletely(context.Background(), "ten-1", opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Storage.Success || result.Storage.BucketExisted {
		t.Errorf("storage = %+v", result.Storage)
	}
}

func TestDeleteTenantCompletely_StorageSkipped(t *testing.T) {
	store := newFakeStore()
	seedTenant(store, "atrium-acme-pty-ltd-ten-1")
	buckets := newFakeBuckets()
	buckets.buckets["atrium-acme-pty-ltd-ten-1"] = &bucketState{tags: make(map[string]string)}
	d := newTestDeleter(store, buckets)

	opts := DefaultDeleteOptions()
	opts.ForceDelete = true
	opts.DeleteStorage = false
	result, err := d.DeleteTenantCompletely(context.Background(), "ten-1", opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.DeletionType != DeletionTypeNone {
		t.Errorf("DeletionType = %q, want %q", result.DeletionType, DeletionTypeNone)
	}
	if result.Storage != nil {
		t.Errorf("storage sub-result = %+v, want nil", result.Storage)
	}
	if len(buckets.calls) != 0 {
		t.Errorf("bucket calls = %v, want none", buckets.calls)
	}
	if _, ok := buckets.buckets["atrium-acme-pty-ltd-ten-1"]; !ok {
		t.Error("bucket was removed despite DeleteStorage=false")
	}
}

func TestDeleteTenantCompletely_DatabaseFailureAbortsBeforeStorage(t *testing.T) {
	store := newFakeStore()
	seedTenant(store, "atrium-acme-pty-ltd-ten-1")
	store.rows[models.CollectionDocumentComments] = 7
	store.rows[models.CollectionApprovalHistory] = 2
	store.failOn["DeleteByTenant:documents"] = errDBDown
	buckets := newFakeBuckets()
	buckets.buckets["atrium-acme-pty-ltd-ten-1"] = &bucketState{tags: make(map[string]string)}
	d := newTestDeleter(store, buckets)

	opts := DefaultDeleteOptions()
	opts.ForceDelete = true
	result, err := d.DeleteTenantCompletely(context.Background(), "ten-1", opts)

	var dbErr *DatabaseDeletionError
	if !errors.As(err, &dbErr) {
		t.Fatalf("err = %v, want DatabaseDeletionError", err)
	}
	if dbErr.Collection != models.CollectionDocuments {
		t.Errorf("failed collection = %s, want documents", dbErr.Collection)
	}
	// Counts cover what was deleted before the failure.
	if dbErr.Counts[models.CollectionDocumentComments] != 7 || dbErr.Counts[models.CollectionApprovalHistory] != 2 {
		t.Errorf("counts = %+v", dbErr.Counts)
	}

	if len(buckets.calls) != 0 {
		t.Errorf("storage touched after database failure: %v", buckets.calls)
	}
	if result.Storage != nil {
		t.Error("storage phase should not have run")
	}
	if _, ok := store.tenants["ten-1"]; !ok {
		t.Error("tenant row deleted despite aborted run")
	}
}

func TestDeleteTenantCompletely_EventDispatched(t *testing.T) {
	store := newFakeStore()
	seedTenant(store, "")
	store.rows[models.CollectionAssets] = 9
	dispatcher := NewDispatcher()
	var got []Event
	dispatcher.Subscribe(EventTenantDeleted, func(_ context.Context, e Event) {
		got = append(got, e)
	})
	d := NewDeleter(store, newFakeBuckets(), dispatcher, 90)

	if _, err := d.DeleteTenantCompletely(context.Background(), "ten-1", DefaultDeleteOptions()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("events = %d, want 1", len(got))
	}
	event := got[0].(TenantDeletedEvent)
	if event.TenantID != "ten-1" || event.TenantName != "Acme Pty Ltd" {
		t.Errorf("event = %+v", event)
	}
	if event.Counts[models.CollectionAssets] != 9 {
		t.Errorf("event counts = %+v", event.Counts)
	}
}

func TestSoftDeleteTenant(t *testing.T) {
	store := newFakeStore()
	seedTenant(store, "")
	dispatcher := NewDispatcher()
	var got []Event
	dispatcher.Subscribe(EventTenantSoftDeleted, func(_ context.Context, e Event) {
		got = append(got, e)
	})
	d := NewDeleter(store, newFakeBuckets(), dispatcher, 90)

	tenant, err := d.SoftDeleteTenant(context.Background(), "ten-1", SoftDeleteOptions{Actor: "ops@acme.test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tenant.Status != models.TenantStatusInactive {
		t.Errorf("status = %s, want inactive", tenant.Status)
	}
	if store.tenants["ten-1"].Status != models.TenantStatusInactive {
		t.Error("stored tenant status not updated")
	}
	if len(store.audits) != 1 || store.audits[0].Action != models.AuditActionTenantSoftDeleted {
		t.Errorf("audits = %+v", store.audits)
	}
	if store.audits[0].Actor != "ops@acme.test" {
		t.Errorf("audit actor = %q", store.audits[0].Actor)
	}
	if len(got) != 1 {
		t.Fatalf("events = %d, want 1", len(got))
	}
	if event := got[0].(TenantSoftDeletedEvent); event.Actor != "ops@acme.test" {
		t.Errorf("event = %+v", event)
	}
}

func TestSoftDeleteTenant_NotFound(t *testing.T) {
	d := newTestDeleter(newFakeStore(), newFakeBuckets())
	_, err := d.SoftDeleteTenant(context.Background(), "missing", SoftDeleteOptions{})
	if !errors.Is(err, ErrTenantNotFound) {
		t.Fatalf("err = %v, want ErrTenantNotFound", err)
	}
}

// Provision a tenant end-to-end and then delete it completely, asserting no
// residue on either side.
func TestProvisionThenDeleteLeavesNothingBehind(t *testing.T) {
	store := newFakeStore()
	buckets := newFakeBuckets()
	p := newTestProvisioner(store, buckets, Capabilities{})
	d := newTestDeleter(store, buckets)

	provisioned, err := p.ProvisionTenant(context.Background(), acmeInput(), DefaultProvisionOptions())
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	bucket := provisioned.Bucket.Name

	// Simulate tenant activity in storage.
	if _, err := buckets.Upload(context.Background(), bucket, "docs/lease.pdf", strings.NewReader("x"), 1); err != nil {
		t.Fatalf("upload: %v", err)
	}

	opts := DefaultDeleteOptions()
	opts.ForceDelete = true
	opts.ImmediateStorageDelete = true
	result, err := d.DeleteTenantCompletely(context.Background(), provisioned.Tenant.ID, opts)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}

	if !result.Success {
		t.Error("expected Success = true")
	}
	if result.Storage.ObjectsDeleted != 1 || !result.Storage.BucketDeleted {
		t.Errorf("storage = %+v", result.Storage)
	}
	if len(store.tenants) != 0 {
		t.Errorf("tenants remaining: %d", len(store.tenants))
	}
	if len(store.users) != 0 {
		t.Errorf("users remaining: %d", len(store.users))
	}
	if len(store.roles) != 0 {
		t.Errorf("roles remaining: %d", len(store.roles))
	}
	if result.Counts[models.CollectionUsers] != 1 || result.Counts[models.CollectionRoles] != 1 {
		t.Errorf("counts = %v, want 1 user and 1 role deleted", result.Counts)
	}
	if len(buckets.buckets) != 0 {
		t.Errorf("buckets remaining: %d", len(buckets.buckets))
	}
}
