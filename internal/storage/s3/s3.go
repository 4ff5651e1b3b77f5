// Package s3 implements the AWS S3-compatible tenant storage backend. It
// supports AWS S3, MinIO, and other S3-compatible services via a configurable
// endpoint. Multiple authentication methods are supported: the default AWS
// credential chain (recommended for EC2/EKS with IAM roles), static
// key/secret, and AssumeRole for cross-account access.
package s3

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	appconfig "github.com/atriumhq/atrium/internal/config"
	"github.com/atriumhq/atrium/internal/storage"
)

func init() {
	storage.Register("s3", func(cfg *appconfig.Config) (storage.TenantStore, error) {
		return New(&cfg.Storage.S3)
	})
}

// Store implements storage.TenantStore on top of the AWS S3 API.
type Store struct {
	client *s3.Client
	region string
}

// New creates an S3 tenant storage backend.
//
// Authentication methods:
//   - "default" or empty: AWS default credential chain (env vars, shared
//     config, IAM role, IMDS)
//   - "static": explicit access key and secret key
//   - "assume_role": assumes an IAM role (optionally with external ID)
func New(cfg *appconfig.S3StorageConfig) (*Store, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3 region is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	authMethod := cfg.AuthMethod
	if authMethod == "" {
		// Backwards compatibility: if access keys are provided, use static auth.
		if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
			authMethod = "static"
		} else {
			authMethod = "default"
		}
	}

	switch authMethod {
	case "static":
		if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
			return nil, fmt.Errorf("access_key_id and secret_access_key are required for static auth")
		}
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	case "assume_role", "default":
		// Configured after the base config is loaded (assume_role) or not at
		// all (default chain).
	default:
		return nil, fmt.Errorf("unsupported auth_method: %s (must be 'default', 'static', or 'assume_role')", authMethod)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if authMethod == "assume_role" {
		if cfg.RoleARN == "" {
			return nil, fmt.Errorf("role_arn is required for assume_role auth")
		}

		stsClient := sts.NewFromConfig(awsCfg)

		var assumeRoleOpts []func(*stscreds.AssumeRoleOptions)
		if cfg.RoleSessionName != "" {
			assumeRoleOpts = append(assumeRoleOpts, func(o *stscreds.AssumeRoleOptions) {
				o.RoleSessionName = cfg.RoleSessionName
			})
		}
		if cfg.ExternalID != "" {
			assumeRoleOpts = append(assumeRoleOpts, func(o *stscreds.AssumeRoleOptions) {
				o.ExternalID = aws.String(cfg.ExternalID)
			})
		}

		provider := stscreds.NewAssumeRoleProvider(stsClient, cfg.RoleARN, assumeRoleOpts...)
		awsCfg.Credentials = aws.NewCredentialsCache(provider)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// S3-compatible services generally need path-style addressing.
			o.UsePathStyle = true
		})
	}

	return &Store{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		region: cfg.Region,
	}, nil
}

// Region reports the region buckets are created in.
func (s *Store) Region() string { return s.region }

// BucketExists checks whether the bucket exists and is accessible.
func (s *Store) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		var noBucket *types.NoSuchBucket
		if errors.As(err, &noBucket) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head bucket: %w", err)
	}
	return true, nil
}

// CreateBucket creates the bucket in the store's region.
func (s *Store) CreateBucket(ctx context.Context, bucket string) error {
	input := &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	}
	// us-east-1 rejects an explicit location constraint.
	if s.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}

	if _, err := s.client.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// EnableVersioning turns on object versioning for the bucket.
func (s *Store) EnableVersioning(ctx context.Context, bucket string) error {
	_, err := s.client.PutBucketVersioning(ctx, &s3.PutBucketVersioningInput{
		Bucket: aws.String(bucket),
		VersioningConfiguration: &types.VersioningConfiguration{
			Status: types.BucketVersioningStatusEnabled,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to enable versioning: %w", err)
	}
	return nil
}

// PutLifecycle replaces the bucket's lifecycle configuration with a single
// rule built from the supplied policy.
func (s *Store) PutLifecycle(ctx context.Context, bucket string, policy storage.LifecyclePolicy) error {
	rule := types.LifecycleRule{
		ID:     aws.String("atrium-tenant-lifecycle"),
		Status: types.ExpirationStatusEnabled,
		Filter: &types.LifecycleRuleFilter{Prefix: aws.String("")},
	}

	if policy.ExpirationDays > 0 {
		rule.Expiration = &types.LifecycleExpiration{
			Days: aws.Int32(policy.ExpirationDays),
		}
	}
	if policy.NoncurrentExpirationDays > 0 {
		rule.NoncurrentVersionExpiration = &types.NoncurrentVersionExpiration{
			NoncurrentDays: aws.Int32(policy.NoncurrentExpirationDays),
		}
	}
	if policy.AbortIncompleteMultipartDays > 0 {
		rule.AbortIncompleteMultipartUpload = &types.AbortIncompleteMultipartUpload{
			DaysAfterInitiation: aws.Int32(policy.AbortIncompleteMultipartDays),
		}
	}
	for _, t := range policy.Transitions {
		rule.Transitions = append(rule.Transitions, types.Transition{
			Days:         aws.Int32(t.Days),
			StorageClass: types.TransitionStorageClass(t.StorageClass),
		})
	}

	_, err := s.client.PutBucketLifecycleConfiguration(ctx, &s3.PutBucketLifecycleConfigurationInput{
		Bucket: aws.String(bucket),
		LifecycleConfiguration: &types.BucketLifecycleConfiguration{
			Rules: []types.LifecycleRule{rule},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to put lifecycle configuration: %w", err)
	}
	return nil
}

// GetTags returns the bucket's tag set. A bucket with no tag set yields an
// empty map, not an error.
func (s *Store) GetTags(ctx context.Context, bucket string) (map[string]string, error) {
	out, err := s.client.GetBucketTagging(ctx, &s3.GetBucketTaggingInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		// S3 reports an absent tag set as an error; treat it as empty.
		var apiErr interface{ ErrorCode() string }
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchTagSet" {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to get bucket tags: %w", err)
	}

	tags := make(map[string]string, len(out.TagSet))
	for _, t := range out.TagSet {
		if t.Key != nil && t.Value != nil {
			tags[*t.Key] = *t.Value
		}
	}
	return tags, nil
}

// PutTags replaces the bucket's tag set.
func (s *Store) PutTags(ctx context.Context, bucket string, tags map[string]string) error {
	tagSet := make([]types.Tag, 0, len(tags))
	for k, v := range tags {
		tagSet = append(tagSet, types.Tag{Key: aws.String(k), Value: aws.String(v)})
	}

	_, err := s.client.PutBucketTagging(ctx, &s3.PutBucketTaggingInput{
		Bucket:  aws.String(bucket),
		Tagging: &types.Tagging{TagSet: tagSet},
	})
	if err != nil {
		return fmt.Errorf("failed to put bucket tags: %w", err)
	}
	return nil
}

// ListObjects returns one page of keys, following the continuation token.
func (s *Store) ListObjects(ctx context.Context, bucket string, continuationToken *string) (*storage.ObjectPage, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:            aws.String(bucket),
		ContinuationToken: continuationToken,
		MaxKeys:           aws.Int32(storage.MaxDeleteBatch),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	page := &storage.ObjectPage{Keys: make([]string, 0, len(out.Contents))}
	for _, obj := range out.Contents {
		if obj.Key != nil {
			page.Keys = append(page.Keys, *obj.Key)
		}
	}
	if out.IsTruncated != nil && *out.IsTruncated {
		page.NextToken = out.NextContinuationToken
	}
	return page, nil
}

// DeleteObjects removes up to storage.MaxDeleteBatch keys in one call.
func (s *Store) DeleteObjects(ctx context.Context, bucket string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if len(keys) > storage.MaxDeleteBatch {
		return fmt.Errorf("delete batch of %d exceeds the %d-key limit", len(keys), storage.MaxDeleteBatch)
	}

	objects := make([]types.ObjectIdentifier, len(keys))
	for i, key := range keys {
		objects[i] = types.ObjectIdentifier{Key: aws.String(key)}
	}

	_, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(bucket),
		Delete: &types.Delete{
			Objects: objects,
			Quiet:   aws.Bool(true),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete objects: %w", err)
	}
	return nil
}

// DeleteBucket removes an empty bucket.
func (s *Store) DeleteBucket(ctx context.Context, bucket string) error {
	_, err := s.client.DeleteBucket(ctx, &s3.DeleteBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to delete bucket: %w", err)
	}
	return nil
}

// ListBuckets returns all bucket names visible to the configured credentials.
func (s *Store) ListBuckets(ctx context.Context) ([]string, error) {
	out, err := s.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}

	names := make([]string, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		if b.Name != nil {
			names = append(names, *b.Name)
		}
	}
	return names, nil
}

// Upload stores one object and returns its size and SHA256 checksum.
func (s *Store) Upload(ctx context.Context, bucket, key string, reader io.Reader, size int64) (*storage.UploadResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		Metadata: map[string]string{
			"sha256": checksum,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &storage.UploadResult{
		Bucket:   bucket,
		Key:      key,
		Size:     int64(len(data)),
		Checksum: checksum,
	}, nil
}
