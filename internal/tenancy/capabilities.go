// capabilities.go defines the external collaborator interfaces the
// provisioning orchestrator drives but does not implement: subscription
// billing, dropdown seeding, welcome mail, and the internal SaaS
// notification. Each has an Unimplemented variant returning ErrNotImplemented
// so the orchestrator can report "not wired up yet" distinctly from
// "disabled by options".
package tenancy

import (
	"context"

	"github.com/atriumhq/atrium/internal/db/models"
)

// SubscriptionService creates a billing subscription for a new tenant.
type SubscriptionService interface {
	CreateSubscription(ctx context.Context, tenant *models.Tenant, plan *models.Plan) error
}

// DropdownSeeder seeds default dropdown/taxonomy values for a new tenant.
type DropdownSeeder interface {
	SeedDefaults(ctx context.Context, tenantID string) error
}

// WelcomeMailer sends the initial admin user their welcome notification.
type WelcomeMailer interface {
	SendWelcome(ctx context.Context, user *models.User, tenant *models.Tenant) error
}

// SaaSNotifier notifies the internal distribution list about a new tenant.
type SaaSNotifier interface {
	NotifyTenantCreated(ctx context.Context, tenant *models.Tenant, org *models.Organization) error
}

// Capabilities bundles the provisioner's external collaborators. Zero-value
// fields are treated as unimplemented.
type Capabilities struct {
	Subscriptions SubscriptionService
	Seeder        DropdownSeeder
	Mailer        WelcomeMailer
	Notifier      SaaSNotifier
}

// withDefaults fills nil fields with Unimplemented variants so the
// orchestrator never nil-checks.
func (c Capabilities) withDefaults() Capabilities {
	if c.Subscriptions == nil {
		c.Subscriptions = UnimplementedSubscriptionService{}
	}
	if c.Seeder == nil {
		c.Seeder = UnimplementedDropdownSeeder{}
	}
	if c.Mailer == nil {
		c.Mailer = UnimplementedWelcomeMailer{}
	}
	if c.Notifier == nil {
		c.Notifier = UnimplementedSaaSNotifier{}
	}
	return c
}

// UnimplementedSubscriptionService always reports ErrNotImplemented.
type UnimplementedSubscriptionService struct{}

func (UnimplementedSubscriptionService) CreateSubscription(context.Context, *models.Tenant, *models.Plan) error {
	return ErrNotImplemented
}

// UnimplementedDropdownSeeder always reports ErrNotImplemented.
type UnimplementedDropdownSeeder struct{}

func (UnimplementedDropdownSeeder) SeedDefaults(context.Context, string) error {
	return ErrNotImplemented
}

// UnimplementedWelcomeMailer always reports ErrNotImplemented.
type UnimplementedWelcomeMailer struct{}

func (UnimplementedWelcomeMailer) SendWelcome(context.Context, *models.User, *models.Tenant) error {
	return ErrNotImplemented
}

// UnimplementedSaaSNotifier always reports ErrNotImplemented.
type UnimplementedSaaSNotifier struct{}

func (UnimplementedSaaSNotifier) NotifyTenantCreated(context.Context, *models.Tenant, *models.Organization) error {
	return ErrNotImplemented
}
