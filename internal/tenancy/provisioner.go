// Package tenancy implements the tenant lifecycle orchestrators: multi-step
// provisioning and deletion with per-step observability. Steps run strictly
// sequentially; there is no retry anywhere in this package — retries are the
// caller's responsibility.
package tenancy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/atriumhq/atrium/internal/db/models"
	"github.com/atriumhq/atrium/internal/storage"
	"github.com/atriumhq/atrium/internal/telemetry"
)

// Provisioning step names, in execution order.
const (
	stepResolveOrganization  = "resolve_organization"
	stepResolvePlan          = "resolve_plan"
	stepCreateTenant         = "create_tenant"
	stepCreateSubscription   = "create_subscription"
	stepCreateAdminRole      = "create_admin_role"
	stepSeedDropdowns        = "seed_dropdowns"
	stepCreateAdminUser      = "create_admin_user"
	stepSendWelcomeEmail     = "send_welcome_email"
	stepCreateBucket         = "create_bucket"
	stepSendSaaSNotification = "send_saas_notification"
	stepInitializeAuditLog   = "initialize_audit_log"
)

// ProvisionInput carries everything needed to provision a tenant.
type ProvisionInput struct {
	OrganizationName string
	ContactEmail     string
	Phone            string

	// OrganizationID selects an existing organization instead of creating
	// one. When nil, a new organization is created and a name collision is
	// an error.
	OrganizationID *string

	// PlanID selects an existing plan. When nil, the singleton default plan
	// is found or created.
	PlanID *string

	IsTrial bool

	// Initial admin user. Left empty, step 7 is skipped.
	AdminName     string
	AdminEmail    string
	AdminPassword string
}

func (in *ProvisionInput) validate(opts ProvisionOptions) error {
	if in.OrganizationID == nil && in.OrganizationName == "" {
		return &ValidationError{Field: "organization_name", Reason: "is required"}
	}
	if opts.CreateUser && in.AdminEmail != "" && in.AdminPassword == "" {
		return &ValidationError{Field: "admin_password", Reason: "is required when an admin email is supplied"}
	}
	return nil
}

// ProvisionOptions toggles individual provisioning steps. Every flag
// defaults to on.
type ProvisionOptions struct {
	CreateUser           bool
	CreateSubscription   bool
	SendWelcomeEmail     bool
	SeedDropdowns        bool
	CreateBucket         bool
	SendSaaSNotification bool
	InitializeAuditLog   bool
	UseTransaction       bool
}

// DefaultProvisionOptions returns options with every step enabled.
func DefaultProvisionOptions() ProvisionOptions {
	return ProvisionOptions{
		CreateUser:           true,
		CreateSubscription:   true,
		SendWelcomeEmail:     true,
		SeedDropdowns:        true,
		CreateBucket:         true,
		SendSaaSNotification: true,
		InitializeAuditLog:   true,
		UseTransaction:       true,
	}
}

// BucketInfo describes the tenant bucket after provisioning step 9.
type BucketInfo struct {
	Name           string              `json:"name"`
	Region         string              `json:"region"`
	Status         models.BucketStatus `json:"status"`
	AlreadyExisted bool                `json:"already_existed"`
}

// ProvisioningResult reports what a provisioning run created, skipped, and
// failed. On failure the result is still returned alongside the error so the
// accumulated step log is not lost.
type ProvisioningResult struct {
	Success         bool
	Organization    *models.Organization
	Tenant          *models.Tenant
	Plan            *models.Plan
	Role            *models.Role
	User            *models.User
	Bucket          *BucketInfo
	AuditLogWritten bool
	TransactionID   string
	Steps           []*ProvisioningStep
}

// Provisioner creates tenants end-to-end.
type Provisioner struct {
	store        Persistence
	buckets      storage.TenantStore
	dispatcher   *Dispatcher
	caps         Capabilities
	bucketPrefix string
}

// NewProvisioner creates a provisioning orchestrator. dispatcher may be nil.
func NewProvisioner(store Persistence, buckets storage.TenantStore, dispatcher *Dispatcher, caps Capabilities, bucketPrefix string) *Provisioner {
	return &Provisioner{
		store:        store,
		buckets:      buckets,
		dispatcher:   dispatcher,
		caps:         caps.withDefaults(),
		bucketPrefix: bucketPrefix,
	}
}

// ProvisionTenant runs the eleven-step provisioning sequence. The first
// unrecoverable failure aborts the remaining steps and is returned as a
// *ProvisioningError; when UseTransaction is set, a failure in steps 1–3
// rolls back every persisted row. Side effects outside the database (bucket
// creation, notifications) are never covered by the transaction; bucket
// creation is idempotent and re-attachable so a bucket orphaned by a
// rollback is adopted on the next successful run.
func (p *Provisioner) ProvisionTenant(ctx context.Context, input ProvisionInput, opts ProvisionOptions) (*ProvisioningResult, error) {
	if err := input.validate(opts); err != nil {
		return nil, err
	}

	log := newStepLog()
	result := &ProvisioningResult{}
	defer func() { result.Steps = log.steps() }()

	store := Store(p.store)
	var tx TxStore
	committed := false
	if opts.UseTransaction {
		t, err := p.store.Begin(ctx)
		if err != nil {
			telemetry.TenantsProvisionedTotal.WithLabelValues("failure").Inc()
			return result, &DatabaseOperationError{Op: "begin transaction", Err: err}
		}
		tx = t
		store = t
		result.TransactionID = uuid.New().String()
		defer func() {
			if !committed {
				if rbErr := tx.Rollback(); rbErr != nil {
					slog.Error("transaction rollback failed", "error", rbErr)
				}
			}
		}()
	}

	fail := func(step *ProvisioningStep, err error) (*ProvisioningResult, error) {
		p.endStep(log, step, StepFailed, map[string]interface{}{"error": err.Error()})
		telemetry.TenantsProvisionedTotal.WithLabelValues("failure").Inc()
		return result, &ProvisioningError{Step: step.Name, Err: err}
	}

	// Step 1: resolve or create the owning organization.
	step := log.begin(stepResolveOrganization)
	org, orgExisted, err := p.resolveOrganization(ctx, store, input)
	if err != nil {
		return fail(step, err)
	}
	result.Organization = org
	p.endStep(log, step, StepCompleted, map[string]interface{}{
		"organization_id": org.ID,
		"pre_existing":    orgExisted,
	})

	// Step 2: resolve or create the billing plan.
	step = log.begin(stepResolvePlan)
	plan, err := p.resolvePlan(ctx, store, input)
	if err != nil {
		return fail(step, err)
	}
	result.Plan = plan
	p.endStep(log, step, StepCompleted, map[string]interface{}{"plan_id": plan.ID, "plan_name": plan.Name})

	// Step 3: create (or update, when the organization pre-existed) the tenant.
	step = log.begin(stepCreateTenant)
	tenant, err := p.createTenant(ctx, store, org, plan, input, orgExisted)
	if err != nil {
		return fail(step, err)
	}
	result.Tenant = tenant
	p.endStep(log, step, StepCompleted, map[string]interface{}{"tenant_id": tenant.ID})

	if opts.UseTransaction {
		if err := tx.Commit(); err != nil {
			return fail(log.record("commit_transaction", StepFailed, nil), &DatabaseOperationError{Op: "commit transaction", Err: err})
		}
		committed = true
		store = p.store
	}

	// Step 4: subscription creation (capability placeholder).
	if _, err := p.capabilityStep(ctx, log, stepCreateSubscription, opts.CreateSubscription, func(ctx context.Context) error {
		return p.caps.Subscriptions.CreateSubscription(ctx, tenant, plan)
	}); err != nil {
		return fail(log.index[stepCreateSubscription], err)
	}

	// Step 5: create the tenant's admin role.
	step = log.begin(stepCreateAdminRole)
	role := models.AdminRole(tenant.ID)
	role.ID = uuid.New().String()
	if err := store.CreateRole(ctx, role); err != nil {
		return fail(step, fmt.Errorf("failed to create admin role: %w", err))
	}
	result.Role = role
	p.endStep(log, step, StepCompleted, map[string]interface{}{"role_id": role.ID})

	// Step 6: seed dropdown taxonomies (capability placeholder).
	if _, err := p.capabilityStep(ctx, log, stepSeedDropdowns, opts.SeedDropdowns, func(ctx context.Context) error {
		return p.caps.Seeder.SeedDefaults(ctx, tenant.ID)
	}); err != nil {
		return fail(log.index[stepSeedDropdowns], err)
	}

	// Step 7: create the initial admin user.
	var user *models.User
	switch {
	case !opts.CreateUser:
		log.record(stepCreateAdminUser, StepSkipped, map[string]interface{}{"reason": "disabled by options"})
	case input.AdminEmail == "":
		log.record(stepCreateAdminUser, StepSkipped, map[string]interface{}{"reason": "no admin user supplied"})
	default:
		step = log.begin(stepCreateAdminUser)
		user, err = p.createAdminUser(ctx, store, tenant, role, input)
		if err != nil {
			return fail(step, err)
		}
		result.User = user
		p.endStep(log, step, StepCompleted, map[string]interface{}{"user_id": user.ID, "email": user.Email})
	}

	// Step 8: welcome email, only when a user was created.
	if user == nil {
		log.record(stepSendWelcomeEmail, StepSkipped, map[string]interface{}{"reason": "no user created"})
	} else if _, err := p.capabilityStep(ctx, log, stepSendWelcomeEmail, opts.SendWelcomeEmail, func(ctx context.Context) error {
		return p.caps.Mailer.SendWelcome(ctx, user, tenant)
	}); err != nil {
		return fail(log.index[stepSendWelcomeEmail], err)
	}

	// Step 9: ensure the dedicated storage bucket.
	if !opts.CreateBucket {
		log.record(stepCreateBucket, StepSkipped, map[string]interface{}{"reason": "disabled by options"})
	} else {
		step = log.begin(stepCreateBucket)
		bucket, err := p.ensureBucket(ctx, tenant, org)
		if err != nil {
			// Best-effort: record the failure on the tenant row before aborting.
			if dbErr := p.store.UpdateTenantBucket(ctx, tenant.ID, "", "", models.BucketStatusFailed); dbErr != nil {
				slog.Error("failed to record bucket failure on tenant", "tenant_id", tenant.ID, "error", dbErr)
			}
			return fail(step, err)
		}
		result.Bucket = bucket
		tenant.BucketName = &bucket.Name
		tenant.BucketRegion = &bucket.Region
		tenant.BucketStatus = bucket.Status
		p.endStep(log, step, StepCompleted, map[string]interface{}{
			"bucket":         bucket.Name,
			"region":         bucket.Region,
			"already_exists": bucket.AlreadyExisted,
		})
	}

	// Step 10: internal SaaS notification (capability placeholder).
	if _, err := p.capabilityStep(ctx, log, stepSendSaaSNotification, opts.SendSaaSNotification, func(ctx context.Context) error {
		return p.caps.Notifier.NotifyTenantCreated(ctx, tenant, org)
	}); err != nil {
		return fail(log.index[stepSendSaaSNotification], err)
	}

	// Step 11: initiating audit entry. Audit write failures are never fatal.
	if !opts.InitializeAuditLog {
		log.record(stepInitializeAuditLog, StepSkipped, map[string]interface{}{"reason": "disabled by options"})
	} else {
		step = log.begin(stepInitializeAuditLog)
		entry := &models.AuditLog{
			ID:           uuid.New().String(),
			TenantID:     &tenant.ID,
			Actor:        "system",
			Action:       models.AuditActionTenantProvisioned,
			ResourceType: strPtr("tenant"),
			ResourceID:   &tenant.ID,
			Detail: map[string]interface{}{
				"organization": org.Name,
				"plan":         plan.Name,
				"is_trial":     tenant.IsTrial,
			},
		}
		if err := p.store.CreateAuditLog(ctx, entry); err != nil {
			slog.Warn("failed to write provisioning audit entry", "tenant_id", tenant.ID, "error", err)
			p.endStep(log, step, StepFailed, map[string]interface{}{"error": err.Error()})
		} else {
			result.AuditLogWritten = true
			p.endStep(log, step, StepCompleted, nil)
		}
	}

	result.Success = true
	telemetry.TenantsProvisionedTotal.WithLabelValues("success").Inc()

	bucketName := ""
	if result.Bucket != nil {
		bucketName = result.Bucket.Name
	}
	p.dispatcher.Dispatch(ctx, TenantProvisionedEvent{
		Tenant:       tenant,
		Organization: org,
		BucketName:   bucketName,
	})

	return result, nil
}

func (p *Provisioner) resolveOrganization(ctx context.Context, store Store, input ProvisionInput) (*models.Organization, bool, error) {
	if input.OrganizationID != nil {
		org, err := store.GetOrganizationByID(ctx, *input.OrganizationID)
		if err != nil {
			return nil, false, err
		}
		if org == nil {
			return nil, false, ErrOrganizationNotFound
		}
		return org, true, nil
	}

	existing, err := store.GetOrganizationByName(ctx, input.OrganizationName)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return nil, false, ErrDuplicateName
	}

	org := &models.Organization{
		ID:           uuid.New().String(),
		Name:         input.OrganizationName,
		ContactEmail: input.ContactEmail,
		Phone:        input.Phone,
	}
	if err := store.CreateOrganization(ctx, org); err != nil {
		return nil, false, fmt.Errorf("failed to create organization: %w", err)
	}
	return org, false, nil
}

func (p *Provisioner) resolvePlan(ctx context.Context, store Store, input ProvisionInput) (*models.Plan, error) {
	if input.PlanID != nil {
		plan, err := store.GetPlanByID(ctx, *input.PlanID)
		if err != nil {
			return nil, err
		}
		if plan == nil {
			return nil, ErrPlanNotFound
		}
		return plan, nil
	}

	plan, err := store.GetDefaultPlan(ctx)
	if err != nil {
		return nil, err
	}
	if plan != nil {
		return plan, nil
	}

	plan = models.DefaultPlan()
	plan.ID = uuid.New().String()
	if err := store.CreatePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to create default plan: %w", err)
	}
	return plan, nil
}

func (p *Provisioner) createTenant(ctx context.Context, store Store, org *models.Organization, plan *models.Plan, input ProvisionInput, orgExisted bool) (*models.Tenant, error) {
	status := models.TenantStatusActive
	if input.IsTrial {
		status = models.TenantStatusTrial
	}

	if orgExisted {
		existing, err := store.GetTenantByOrganization(ctx, org.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			existing.PlanID = &plan.ID
			existing.IsTrial = input.IsTrial
			existing.Status = status
			if err := store.UpdateTenant(ctx, existing); err != nil {
				return nil, fmt.Errorf("failed to update tenant: %w", err)
			}
			return existing, nil
		}
	}

	tenant := &models.Tenant{
		ID:             uuid.New().String(),
		OrganizationID: org.ID,
		PlanID:         &plan.ID,
		Name:           org.Name,
		Status:         status,
		IsTrial:        input.IsTrial,
		BucketStatus:   models.BucketStatusNotCreated,
	}
	if err := store.CreateTenant(ctx, tenant); err != nil {
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}
	return tenant, nil
}

func (p *Provisioner) createAdminUser(ctx context.Context, store Store, tenant *models.Tenant, role *models.Role, input ProvisionInput) (*models.User, error) {
	existing, err := store.GetUserByEmail(ctx, input.AdminEmail)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateEmail
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		TenantID:     tenant.ID,
		RoleID:       &role.ID,
		Email:        input.AdminEmail,
		Name:         input.AdminName,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// ensureBucket makes the tenant's dedicated bucket exist and carries the
// standard policy. An existing bucket short-circuits without re-applying
// policy; the stored name wins over derivation.
func (p *Provisioner) ensureBucket(ctx context.Context, tenant *models.Tenant, org *models.Organization) (*BucketInfo, error) {
	name := storage.BucketName(p.bucketPrefix, org.Name, tenant.ID)
	if tenant.BucketName != nil && *tenant.BucketName != "" {
		name = *tenant.BucketName
	}
	region := p.buckets.Region()

	exists, err := p.buckets.BucketExists(ctx, name)
	if err != nil {
		return nil, &StorageOperationError{Op: "head bucket", Bucket: name, Err: err}
	}

	if !exists {
		if err := p.buckets.CreateBucket(ctx, name); err != nil {
			return nil, &StorageOperationError{Op: "create bucket", Bucket: name, Err: err}
		}
		if err := p.buckets.EnableVersioning(ctx, name); err != nil {
			return nil, &StorageOperationError{Op: "enable versioning", Bucket: name, Err: err}
		}
		if err := p.buckets.PutLifecycle(ctx, name, storage.StandardLifecycle()); err != nil {
			return nil, &StorageOperationError{Op: "put lifecycle", Bucket: name, Err: err}
		}
		tags := map[string]string{
			storage.TagTenantID:         tenant.ID,
			storage.TagOrganisationName: org.Name,
			storage.TagStatus:           "Active",
		}
		if err := p.buckets.PutTags(ctx, name, tags); err != nil {
			return nil, &StorageOperationError{Op: "put tags", Bucket: name, Err: err}
		}
	}

	if err := p.store.UpdateTenantBucket(ctx, tenant.ID, name, region, models.BucketStatusCreated); err != nil {
		return nil, fmt.Errorf("failed to persist bucket info: %w", err)
	}

	return &BucketInfo{
		Name:           name,
		Region:         region,
		Status:         models.BucketStatusCreated,
		AlreadyExisted: exists,
	}, nil
}

// capabilityStep runs one placeholder-backed step. It returns (ran, err):
// ErrNotImplemented is absorbed into a not_implemented step status, a
// disabled flag into skipped, and any other error is returned for the caller
// to abort with.
func (p *Provisioner) capabilityStep(ctx context.Context, log *stepLog, name string, enabled bool, fn func(context.Context) error) (bool, error) {
	if !enabled {
		log.record(name, StepSkipped, map[string]interface{}{"reason": "disabled by options"})
		return false, nil
	}

	step := log.begin(name)
	err := fn(ctx)
	switch {
	case err == nil:
		p.endStep(log, step, StepCompleted, nil)
		return true, nil
	case errors.Is(err, ErrNotImplemented):
		p.endStep(log, step, StepNotImplemented, map[string]interface{}{"reason": "capability not implemented"})
		return false, nil
	default:
		return false, &ExternalServiceError{Service: name, Err: err}
	}
}

func (p *Provisioner) endStep(log *stepLog, step *ProvisioningStep, status StepStatus, detail map[string]interface{}) {
	log.finish(step, status, detail)
	if step.StartedAt != nil && step.FinishedAt != nil {
		telemetry.ProvisioningStepDuration.WithLabelValues(step.Name).Observe(step.FinishedAt.Sub(*step.StartedAt).Seconds())
	}
}

func strPtr(s string) *string { return &s }
