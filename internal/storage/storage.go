// Package storage defines the TenantStore interface for per-tenant object
// storage and the lifecycle/tag types the orchestrators configure on buckets.
//
// New backends are added by implementing TenantStore and registering with the
// factory via an init() function in the backend's own package:
//
//	func init() {
//	    storage.Register("mybackend", func(cfg *config.Config) (storage.TenantStore, error) {
//	        return NewMyBackend(cfg)
//	    })
//	}
//
// The main package imports each backend with a blank import to trigger init(),
// so adding a backend requires no changes to the factory or main package.
package storage

import (
	"context"
	"io"
)

// MaxDeleteBatch is the largest number of keys a single DeleteObjects call
// may carry. The S3 API rejects larger batches.
const MaxDeleteBatch = 1000

// LifecycleTransition moves objects to a cheaper storage class after the
// given number of days.
type LifecycleTransition struct {
	Days         int32
	StorageClass string // e.g. "STANDARD_IA", "GLACIER"
}

// LifecyclePolicy describes the lifecycle rule applied to a tenant bucket.
// Zero-valued day counts disable the corresponding behaviour.
type LifecyclePolicy struct {
	ExpirationDays               int32 // expire current object versions
	NoncurrentExpirationDays     int32 // expire noncurrent (versioned) objects
	AbortIncompleteMultipartDays int32
	Transitions                  []LifecycleTransition
}

// StandardLifecycle is the policy applied to a freshly provisioned tenant
// bucket: infrequent-access at 30 days, archival at 90, abandoned multipart
// uploads reaped after 7.
func StandardLifecycle() LifecyclePolicy {
	return LifecyclePolicy{
		AbortIncompleteMultipartDays: 7,
		Transitions: []LifecycleTransition{
			{Days: 30, StorageClass: "STANDARD_IA"},
			{Days: 90, StorageClass: "GLACIER"},
		},
	}
}

// ExpiryLifecycle is the policy applied when a tenant's bucket is scheduled
// for delayed deletion: everything (current and noncurrent versions) expires
// after retentionDays, and incomplete multipart uploads are aborted after one
// day.
func ExpiryLifecycle(retentionDays int32) LifecyclePolicy {
	return LifecyclePolicy{
		ExpirationDays:               retentionDays,
		NoncurrentExpirationDays:     retentionDays,
		AbortIncompleteMultipartDays: 1,
	}
}

// ObjectPage is one page of an object listing. NextToken is nil on the final
// page.
type ObjectPage struct {
	Keys      []string
	NextToken *string
}

// UploadResult describes a stored object.
type UploadResult struct {
	Bucket   string
	Key      string
	Size     int64
	Checksum string // SHA256 of the object contents
}

// TenantStore is the object-storage capability consumed by the lifecycle
// orchestrators: bucket existence, creation, versioning, lifecycle rules,
// tags, paginated listing, batch deletion, and bucket removal. All calls may
// fail transiently; callers decide whether a failure is fatal.
type TenantStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	CreateBucket(ctx context.Context, bucket string) error
	EnableVersioning(ctx context.Context, bucket string) error
	PutLifecycle(ctx context.Context, bucket string, policy LifecyclePolicy) error

	GetTags(ctx context.Context, bucket string) (map[string]string, error)
	PutTags(ctx context.Context, bucket string, tags map[string]string) error

	// ListObjects returns one page of keys, following the given continuation
	// token (nil for the first page).
	ListObjects(ctx context.Context, bucket string, continuationToken *string) (*ObjectPage, error)

	// DeleteObjects removes up to MaxDeleteBatch keys in one call.
	DeleteObjects(ctx context.Context, bucket string, keys []string) error

	// DeleteBucket removes an empty bucket.
	DeleteBucket(ctx context.Context, bucket string) error

	// ListBuckets returns all bucket names visible to this store. The
	// deletion sweeper filters them by prefix and tag.
	ListBuckets(ctx context.Context) ([]string, error)

	// Upload stores one object in a tenant bucket.
	Upload(ctx context.Context, bucket, key string, reader io.Reader, size int64) (*UploadResult, error)

	// Region reports the region buckets are created in.
	Region() string
}

// Bucket tag keys managed by the orchestrators.
const (
	TagTenantID          = "TenantId"
	TagOrganisationName  = "OrganisationName"
	TagStatus            = "Status"
	TagDeletionScheduled = "DeletionScheduled"
	TagDeletionDate      = "DeletionDate"
	TagDeletedAt         = "DeletedAt"
)
