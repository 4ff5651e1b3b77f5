// deletion_sweeper.go implements the DeletionSweeper background job, which
// finalizes scheduled tenant-bucket deletions. A scheduled deletion tags the
// bucket and leaves a lifecycle rule to expire its objects; the sweeper
// periodically scans for tagged buckets whose deletion date has passed,
// drains whatever objects remain, removes the bucket, and writes an audit
// row. State lives entirely in the bucket tags, so the sweeper works even
// though the tenant row was deleted when the deletion ran.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atriumhq/atrium/internal/db/models"
	"github.com/atriumhq/atrium/internal/storage"
	"github.com/atriumhq/atrium/internal/telemetry"
	"github.com/atriumhq/atrium/internal/tenancy"
)

// DeletionSweeper finalizes scheduled bucket deletions whose retention window
// has passed.
type DeletionSweeper struct {
	buckets      storage.TenantStore
	store        tenancy.Store
	bucketPrefix string
	interval     time.Duration
	stopChan     chan struct{}

	// now is swapped in tests.
	now func() time.Time
}

// NewDeletionSweeper creates a sweeper. intervalHours controls how often the
// scan runs (default 24h).
func NewDeletionSweeper(buckets storage.TenantStore, store tenancy.Store, bucketPrefix string, intervalHours int) *DeletionSweeper {
	if intervalHours <= 0 {
		intervalHours = 24
	}
	return &DeletionSweeper{
		buckets:      buckets,
		store:        store,
		bucketPrefix: bucketPrefix,
		interval:     time.Duration(intervalHours) * time.Hour,
		stopChan:     make(chan struct{}),
		now:          time.Now,
	}
}

// Start begins the background sweep loop. It runs an initial sweep
// immediately, then repeats on the configured interval. The loop exits when
// ctx is cancelled or Stop is called.
func (s *DeletionSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("deletion sweeper started", "interval", s.interval, "bucket_prefix", s.bucketPrefix)

	s.Sweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-s.stopChan:
			slog.Info("deletion sweeper stopped")
			return
		case <-ctx.Done():
			slog.Info("deletion sweeper context cancelled")
			return
		}
	}
}

// Stop signals the background loop to exit.
func (s *DeletionSweeper) Stop() {
	close(s.stopChan)
}

// Sweep scans all buckets under the prefix and finalizes any whose scheduled
// deletion date has passed. Individual bucket failures are logged and skipped
// so one stuck bucket never blocks the rest.
func (s *DeletionSweeper) Sweep(ctx context.Context) {
	buckets, err := s.buckets.ListBuckets(ctx)
	if err != nil {
		slog.Error("deletion sweeper: failed to list buckets", "error", err)
		return
	}

	for _, bucket := range buckets {
		if !strings.HasPrefix(bucket, s.bucketPrefix+"-") {
			continue
		}
		if err := s.sweepBucket(ctx, bucket); err != nil {
			slog.Warn("deletion sweeper: failed to finalize bucket", "bucket", bucket, "error", err)
		}
	}
}

// sweepBucket finalizes one bucket if it is due. Returns nil for buckets that
// are not scheduled or not yet due.
func (s *DeletionSweeper) sweepBucket(ctx context.Context, bucket string) error {
	tags, err := s.buckets.GetTags(ctx, bucket)
	if err != nil {
		return fmt.Errorf("get tags: %w", err)
	}
	if tags[storage.TagDeletionScheduled] != "true" {
		return nil
	}

	dateTag := tags[storage.TagDeletionDate]
	if dateTag == "" {
		return fmt.Errorf("bucket tagged for deletion but %s tag is missing", storage.TagDeletionDate)
	}
	deletionDate, err := time.Parse(time.RFC3339, dateTag)
	if err != nil {
		return fmt.Errorf("parse %s tag %q: %w", storage.TagDeletionDate, dateTag, err)
	}
	if s.now().Before(deletionDate) {
		return nil
	}

	// The lifecycle rule should have expired everything by now, but expiry
	// timing is approximate; drain whatever is left.
	deleted := 0
	var token *string
	for {
		page, err := s.buckets.ListObjects(ctx, bucket, token)
		if err != nil {
			return fmt.Errorf("list objects: %w", err)
		}
		for start := 0; start < len(page.Keys); start += storage.MaxDeleteBatch {
			end := start + storage.MaxDeleteBatch
			if end > len(page.Keys) {
				end = len(page.Keys)
			}
			if err := s.buckets.DeleteObjects(ctx, bucket, page.Keys[start:end]); err != nil {
				return fmt.Errorf("delete objects: %w", err)
			}
			deleted += end - start
		}
		if page.NextToken == nil {
			break
		}
		token = page.NextToken
	}

	if err := s.buckets.DeleteBucket(ctx, bucket); err != nil {
		return fmt.Errorf("delete bucket: %w", err)
	}

	telemetry.SweeperBucketsFinalized.Inc()
	slog.Info("deletion sweeper: finalized bucket", "bucket", bucket, "objects_drained", deleted)

	entry := &models.AuditLog{
		ID:     uuid.New().String(),
		Actor:  "system",
		Action: models.AuditActionBucketFinalized,
		Detail: map[string]interface{}{
			"bucket":          bucket,
			"objects_drained": deleted,
		},
	}
	if tenantID := tags[storage.TagTenantID]; tenantID != "" {
		entry.Detail["tenant_id"] = tenantID
	}
	if err := s.store.CreateAuditLog(ctx, entry); err != nil {
		// The bucket is gone; losing the audit row is not worth failing over.
		slog.Warn("deletion sweeper: failed to write audit entry", "bucket", bucket, "error", err)
	}

	return nil
}
