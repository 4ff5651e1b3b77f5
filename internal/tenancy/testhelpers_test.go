package tenancy

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/atriumhq/atrium/internal/db/models"
	"github.com/atriumhq/atrium/internal/storage"
)

// fakeStore is an in-memory Persistence that journals every call so tests can
// assert ordering. failOn injects an error for a named call.
type fakeStore struct {
	orgs    map[string]*models.Organization
	plans   map[string]*models.Plan
	tenants map[string]*models.Tenant
	roles   []*models.Role
	users   map[string]*models.User
	audits  []*models.AuditLog

	// rows holds per-collection row counts for DeleteByTenant.
	rows map[models.Collection]int64

	// activeUsers overrides CountActiveUsers when >= 0.
	activeUsers int

	calls  []string
	failOn map[string]error

	began      int
	committed  int
	rolledBack int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orgs:        make(map[string]*models.Organization),
		plans:       make(map[string]*models.Plan),
		tenants:     make(map[string]*models.Tenant),
		users:       make(map[string]*models.User),
		rows:        make(map[models.Collection]int64),
		activeUsers: -1,
		failOn:      make(map[string]error),
	}
}

func (s *fakeStore) call(name string) error {
	s.calls = append(s.calls, name)
	return s.failOn[name]
}

func (s *fakeStore) GetOrganizationByID(_ context.Context, id string) (*models.Organization, error) {
	if err := s.call("GetOrganizationByID"); err != nil {
		return nil, err
	}
	return s.orgs[id], nil
}

func (s *fakeStore) GetOrganizationByName(_ context.Context, name string) (*models.Organization, error) {
	if err := s.call("GetOrganizationByName"); err != nil {
		return nil, err
	}
	for _, org := range s.orgs {
		if org.Name == name {
			return org, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) CreateOrganization(_ context.Context, org *models.Organization) error {
	if err := s.call("CreateOrganization"); err != nil {
		return err
	}
	s.orgs[org.ID] = org
	return nil
}

func (s *fakeStore) GetPlanByID(_ context.Context, id string) (*models.Plan, error) {
	if err := s.call("GetPlanByID"); err != nil {
		return nil, err
	}
	return s.plans[id], nil
}

func (s *fakeStore) GetDefaultPlan(_ context.Context) (*models.Plan, error) {
	if err := s.call("GetDefaultPlan"); err != nil {
		return nil, err
	}
	for _, plan := range s.plans {
		if plan.IsDefault {
			return plan, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) CreatePlan(_ context.Context, plan *models.Plan) error {
	if err := s.call("CreatePlan"); err != nil {
		return err
	}
	s.plans[plan.ID] = plan
	return nil
}

func (s *fakeStore) GetTenantByID(_ context.Context, id string) (*models.Tenant, error) {
	if err := s.call("GetTenantByID"); err != nil {
		return nil, err
	}
	return s.tenants[id], nil
}

func (s *fakeStore) GetTenantByOrganization(_ context.Context, orgID string) (*models.Tenant, error) {
	if err := s.call("GetTenantByOrganization"); err != nil {
		return nil, err
	}
	for _, tenant := range s.tenants {
		if tenant.OrganizationID == orgID {
			return tenant, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) CreateTenant(_ context.Context, tenant *models.Tenant) error {
	if err := s.call("CreateTenant"); err != nil {
		return err
	}
	s.tenants[tenant.ID] = tenant
	return nil
}

func (s *fakeStore) UpdateTenant(_ context.Context, tenant *models.Tenant) error {
	if err := s.call("UpdateTenant"); err != nil {
		return err
	}
	s.tenants[tenant.ID] = tenant
	return nil
}

func (s *fakeStore) UpdateTenantBucket(_ context.Context, tenantID, bucketName, region string, status models.BucketStatus) error {
	if err := s.call("UpdateTenantBucket"); err != nil {
		return err
	}
	tenant, ok := s.tenants[tenantID]
	if !ok {
		return fmt.Errorf("tenant %s not found", tenantID)
	}
	if bucketName != "" {
		tenant.BucketName = &bucketName
	}
	if region != "" {
		tenant.BucketRegion = &region
	}
	tenant.BucketStatus = status
	return nil
}

func (s *fakeStore) UpdateTenantStatus(_ context.Context, tenantID string, status models.TenantStatus, deletionDate *time.Time) error {
	if err := s.call("UpdateTenantStatus"); err != nil {
		return err
	}
	tenant, ok := s.tenants[tenantID]
	if !ok {
		return fmt.Errorf("tenant %s not found", tenantID)
	}
	tenant.Status = status
	tenant.DeletionDate = deletionDate
	return nil
}

func (s *fakeStore) DeleteTenant(_ context.Context, tenantID string) error {
	if err := s.call("DeleteTenant"); err != nil {
		return err
	}
	delete(s.tenants, tenantID)
	return nil
}

func (s *fakeStore) CreateRole(_ context.Context, role *models.Role) error {
	if err := s.call("CreateRole"); err != nil {
		return err
	}
	s.roles = append(s.roles, role)
	return nil
}

func (s *fakeStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	if err := s.call("GetUserByEmail"); err != nil {
		return nil, err
	}
	return s.users[email], nil
}

func (s *fakeStore) CreateUser(_ context.Context, user *models.User) error {
	if err := s.call("CreateUser"); err != nil {
		return err
	}
	s.users[user.Email] = user
	return nil
}

func (s *fakeStore) CountActiveUsers(_ context.Context, tenantID string) (int, error) {
	if err := s.call("CountActiveUsers"); err != nil {
		return 0, err
	}
	if s.activeUsers >= 0 {
		return s.activeUsers, nil
	}
	count := 0
	for _, user := range s.users {
		if user.TenantID == tenantID && user.IsActive {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) CreateAuditLog(_ context.Context, entry *models.AuditLog) error {
	if err := s.call("CreateAuditLog"); err != nil {
		return err
	}
	s.audits = append(s.audits, entry)
	return nil
}

func (s *fakeStore) DeleteByTenant(_ context.Context, collection models.Collection, tenantID string) (int64, error) {
	if err := s.call("DeleteByTenant:" + string(collection)); err != nil {
		return 0, err
	}
	count := s.rows[collection]
	s.rows[collection] = 0
	switch collection {
	case models.CollectionUsers:
		for email, user := range s.users {
			if user.TenantID == tenantID {
				delete(s.users, email)
				count++
			}
		}
	case models.CollectionRoles:
		kept := s.roles[:0]
		for _, role := range s.roles {
			if role.TenantID == tenantID {
				count++
			} else {
				kept = append(kept, role)
			}
		}
		s.roles = kept
	}
	return count, nil
}

// Begin snapshots the store; Rollback restores the snapshot, which is enough
// to verify that a failed transactional provisioning run leaves nothing
// behind.
func (s *fakeStore) Begin(_ context.Context) (TxStore, error) {
	if err := s.call("Begin"); err != nil {
		return nil, err
	}
	s.began++
	return &fakeTx{fakeStore: s, snapshot: s.snapshot()}, nil
}

type storeSnapshot struct {
	orgs    map[string]*models.Organization
	plans   map[string]*models.Plan
	tenants map[string]*models.Tenant
	roles   []*models.Role
	users   map[string]*models.User
}

func (s *fakeStore) snapshot() storeSnapshot {
	snap := storeSnapshot{
		orgs:    make(map[string]*models.Organization, len(s.orgs)),
		plans:   make(map[string]*models.Plan, len(s.plans)),
		tenants: make(map[string]*models.Tenant, len(s.tenants)),
		roles:   append([]*models.Role(nil), s.roles...),
		users:   make(map[string]*models.User, len(s.users)),
	}
	for k, v := range s.orgs {
		snap.orgs[k] = v
	}
	for k, v := range s.plans {
		snap.plans[k] = v
	}
	for k, v := range s.tenants {
		snap.tenants[k] = v
	}
	for k, v := range s.users {
		snap.users[k] = v
	}
	return snap
}

type fakeTx struct {
	*fakeStore
	snapshot storeSnapshot
	done     bool
}

func (t *fakeTx) Commit() error {
	t.done = true
	t.committed++
	return t.failOn["Commit"]
}

func (t *fakeTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.rolledBack++
	t.orgs = t.snapshot.orgs
	t.plans = t.snapshot.plans
	t.tenants = t.snapshot.tenants
	t.roles = t.snapshot.roles
	t.users = t.snapshot.users
	return nil
}

// fakeBuckets is an in-memory storage.TenantStore with a call journal.
type fakeBuckets struct {
	region  string
	buckets map[string]*bucketState
	calls   []string
	failOn  map[string]error

	// pageSize forces ListObjects pagination when > 0.
	pageSize int
}

type bucketState struct {
	objects    []string
	tags       map[string]string
	versioning bool
	lifecycle  *storage.LifecyclePolicy
}

func newFakeBuckets() *fakeBuckets {
	return &fakeBuckets{
		region:  "ap-southeast-2",
		buckets: make(map[string]*bucketState),
		failOn:  make(map[string]error),
	}
}

func (f *fakeBuckets) call(name string) error {
	f.calls = append(f.calls, name)
	return f.failOn[name]
}

func (f *fakeBuckets) BucketExists(_ context.Context, bucket string) (bool, error) {
	if err := f.call("BucketExists"); err != nil {
		return false, err
	}
	_, ok := f.buckets[bucket]
	return ok, nil
}

func (f *fakeBuckets) CreateBucket(_ context.Context, bucket string) error {
	if err := f.call("CreateBucket"); err != nil {
		return err
	}
	f.buckets[bucket] = &bucketState{tags: make(map[string]string)}
	return nil
}

func (f *fakeBuckets) EnableVersioning(_ context.Context, bucket string) error {
	if err := f.call("EnableVersioning"); err != nil {
		return err
	}
	f.buckets[bucket].versioning = true
	return nil
}

func (f *fakeBuckets) PutLifecycle(_ context.Context, bucket string, policy storage.LifecyclePolicy) error {
	if err := f.call("PutLifecycle"); err != nil {
		return err
	}
	f.buckets[bucket].lifecycle = &policy
	return nil
}

func (f *fakeBuckets) GetTags(_ context.Context, bucket string) (map[string]string, error) {
	if err := f.call("GetTags"); err != nil {
		return nil, err
	}
	tags := make(map[string]string)
	for k, v := range f.buckets[bucket].tags {
		tags[k] = v
	}
	return tags, nil
}

func (f *fakeBuckets) PutTags(_ context.Context, bucket string, tags map[string]string) error {
	if err := f.call("PutTags"); err != nil {
		return err
	}
	f.buckets[bucket].tags = tags
	return nil
}

func (f *fakeBuckets) ListObjects(_ context.Context, bucket string, continuationToken *string) (*storage.ObjectPage, error) {
	if err := f.call("ListObjects"); err != nil {
		return nil, err
	}
	objects := f.buckets[bucket].objects
	start := 0
	if continuationToken != nil {
		start, _ = strconv.Atoi(*continuationToken)
	}
	end := len(objects)
	if f.pageSize > 0 && start+f.pageSize < end {
		end = start + f.pageSize
	}
	page := &storage.ObjectPage{Keys: append([]string(nil), objects[start:end]...)}
	if end < len(objects) {
		token := strconv.Itoa(end)
		page.NextToken = &token
	}
	return page, nil
}

func (f *fakeBuckets) DeleteObjects(_ context.Context, bucket string, keys []string) error {
	if err := f.call("DeleteObjects"); err != nil {
		return err
	}
	if len(keys) > storage.MaxDeleteBatch {
		return fmt.Errorf("batch of %d exceeds limit", len(keys))
	}
	state := f.buckets[bucket]
	remove := make(map[string]bool, len(keys))
	for _, k := range keys {
		remove[k] = true
	}
	kept := state.objects[:0]
	for _, obj := range state.objects {
		if !remove[obj] {
			kept = append(kept, obj)
		}
	}
	state.objects = kept
	return nil
}

func (f *fakeBuckets) DeleteBucket(_ context.Context, bucket string) error {
	if err := f.call("DeleteBucket"); err != nil {
		return err
	}
	if len(f.buckets[bucket].objects) > 0 {
		return fmt.Errorf("bucket %s not empty", bucket)
	}
	delete(f.buckets, bucket)
	return nil
}

func (f *fakeBuckets) ListBuckets(_ context.Context) ([]string, error) {
	if err := f.call("ListBuckets"); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(f.buckets))
	for name := range f.buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeBuckets) Upload(_ context.Context, bucket, key string, _ io.Reader, size int64) (*storage.UploadResult, error) {
	if err := f.call("Upload"); err != nil {
		return nil, err
	}
	f.buckets[bucket].objects = append(f.buckets[bucket].objects, key)
	return &storage.UploadResult{Bucket: bucket, Key: key, Size: size}, nil
}

func (f *fakeBuckets) Region() string { return f.region }

var _ Persistence = (*fakeStore)(nil)
var _ storage.TenantStore = (*fakeBuckets)(nil)
