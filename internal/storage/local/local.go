// Package local implements a filesystem-backed tenant storage backend for
// development and tests. A bucket is a directory under the configured root;
// tags and the lifecycle policy are persisted as JSON sidecar files inside
// the bucket directory so the full TenantStore surface behaves like the real
// thing, minus the automatic expiry a cloud provider would perform.
package local

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	appconfig "github.com/atriumhq/atrium/internal/config"
	"github.com/atriumhq/atrium/internal/storage"
)

// Sidecar file names. They live inside the bucket directory and are hidden
// from object listings.
const (
	tagsFile       = ".atrium-tags.json"
	lifecycleFile  = ".atrium-lifecycle.json"
	versioningFlag = ".atrium-versioning"
)

func init() {
	storage.Register("local", func(cfg *appconfig.Config) (storage.TenantStore, error) {
		return New(cfg.Storage.Local.Path)
	})
}

// Store implements storage.TenantStore on the local filesystem.
type Store struct {
	root string
}

// New creates a local storage backend rooted at the given directory,
// creating it if needed.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("local storage path is required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &Store{root: root}, nil
}

// Region reports a fixed placeholder region for the local backend.
func (s *Store) Region() string { return "local" }

func (s *Store) bucketDir(bucket string) string {
	return filepath.Join(s.root, bucket)
}

// BucketExists checks for the bucket directory.
func (s *Store) BucketExists(_ context.Context, bucket string) (bool, error) {
	info, err := os.Stat(s.bucketDir(bucket))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat bucket: %w", err)
	}
	return info.IsDir(), nil
}

// CreateBucket creates the bucket directory.
func (s *Store) CreateBucket(_ context.Context, bucket string) error {
	if err := os.MkdirAll(s.bucketDir(bucket), 0o750); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// EnableVersioning records the versioning flag. The local backend keeps no
// object versions; the flag exists so round-trips through the interface are
// observable in tests.
func (s *Store) EnableVersioning(_ context.Context, bucket string) error {
	path := filepath.Join(s.bucketDir(bucket), versioningFlag)
	if err := os.WriteFile(path, []byte("enabled\n"), 0o640); err != nil {
		return fmt.Errorf("failed to enable versioning: %w", err)
	}
	return nil
}

// PutLifecycle persists the lifecycle policy sidecar.
func (s *Store) PutLifecycle(_ context.Context, bucket string, policy storage.LifecyclePolicy) error {
	data, err := json.MarshalIndent(policy, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal lifecycle policy: %w", err)
	}
	path := filepath.Join(s.bucketDir(bucket), lifecycleFile)
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("failed to write lifecycle policy: %w", err)
	}
	return nil
}

// GetLifecycle reads back the persisted lifecycle policy. Not part of the
// TenantStore interface; tests use it to assert what the orchestrators
// applied.
func (s *Store) GetLifecycle(bucket string) (*storage.LifecyclePolicy, error) {
	data, err := os.ReadFile(filepath.Join(s.bucketDir(bucket), lifecycleFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read lifecycle policy: %w", err)
	}
	var policy storage.LifecyclePolicy
	if err := json.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lifecycle policy: %w", err)
	}
	return &policy, nil
}

// GetTags reads the bucket's tag sidecar; a missing sidecar is an empty set.
func (s *Store) GetTags(_ context.Context, bucket string) (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(s.bucketDir(bucket), tagsFile))
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read bucket tags: %w", err)
	}
	tags := make(map[string]string)
	if err := json.Unmarshal(data, &tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bucket tags: %w", err)
	}
	return tags, nil
}

// PutTags replaces the bucket's tag sidecar.
func (s *Store) PutTags(_ context.Context, bucket string, tags map[string]string) error {
	data, err := json.MarshalIndent(tags, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal bucket tags: %w", err)
	}
	path := filepath.Join(s.bucketDir(bucket), tagsFile)
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("failed to write bucket tags: %w", err)
	}
	return nil
}

// ListObjects returns all object keys in a single page; the local backend
// never paginates.
func (s *Store) ListObjects(_ context.Context, bucket string, _ *string) (*storage.ObjectPage, error) {
	dir := s.bucketDir(bucket)
	keys := []string{}

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if strings.HasPrefix(filepath.Base(rel), ".atrium-") {
			return nil
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	sort.Strings(keys)
	return &storage.ObjectPage{Keys: keys}, nil
}

// DeleteObjects removes the given keys.
func (s *Store) DeleteObjects(_ context.Context, bucket string, keys []string) error {
	if len(keys) > storage.MaxDeleteBatch {
		return fmt.Errorf("delete batch of %d exceeds the %d-key limit", len(keys), storage.MaxDeleteBatch)
	}
	for _, key := range keys {
		if err := os.Remove(filepath.Join(s.bucketDir(bucket), filepath.FromSlash(key))); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete object %q: %w", key, err)
		}
	}
	return nil
}

// DeleteBucket removes the bucket. Like S3, it refuses when objects remain;
// sidecar files do not count as objects.
func (s *Store) DeleteBucket(ctx context.Context, bucket string) error {
	page, err := s.ListObjects(ctx, bucket, nil)
	if err != nil {
		return err
	}
	if len(page.Keys) > 0 {
		return fmt.Errorf("bucket %q is not empty (%d objects)", bucket, len(page.Keys))
	}
	if err := os.RemoveAll(s.bucketDir(bucket)); err != nil {
		return fmt.Errorf("failed to delete bucket: %w", err)
	}
	return nil
}

// ListBuckets returns the bucket directory names under the root.
func (s *Store) ListBuckets(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Upload stores one object, creating parent directories for keys with
// slashes.
func (s *Store) Upload(_ context.Context, bucket, key string, reader io.Reader, _ int64) (*storage.UploadResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	path := filepath.Join(s.bucketDir(bucket), filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create object directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return nil, fmt.Errorf("failed to write object: %w", err)
	}

	sum := sha256.Sum256(data)
	return &storage.UploadResult{
		Bucket:   bucket,
		Key:      key,
		Size:     int64(len(data)),
		Checksum: hex.EncodeToString(sum[:]),
	}, nil
}
