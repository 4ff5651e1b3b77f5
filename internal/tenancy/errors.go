// errors.go defines the error taxonomy shared by the provisioning and deletion
// orchestrators: sentinel values for precondition failures and typed errors
// carrying the structured detail callers need to retry, alert, or reconcile.
package tenancy

import (
	"errors"
	"fmt"

	"github.com/atriumhq/atrium/internal/db/models"
)

var (
	// Precondition / lookup errors
	ErrTenantNotFound       = errors.New("tenant not found")
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrPlanNotFound         = errors.New("plan not found")
	ErrDuplicateName        = errors.New("organization with this name already exists")
	ErrDuplicateEmail       = errors.New("user with this email already exists")

	// ErrNotImplemented is returned by placeholder capabilities. Orchestrators
	// detect it to report a step as not_implemented rather than failed, which
	// is distinct from skipped (disabled by options).
	ErrNotImplemented = errors.New("capability not implemented")
)

// ValidationError reports missing or malformed required input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

// ActiveUsersError blocks deletion while a tenant still has active users.
type ActiveUsersError struct {
	Count int
}

func (e *ActiveUsersError) Error() string {
	return fmt.Sprintf("tenant has %d active user(s); deactivate them first or use force delete", e.Count)
}

// ProvisioningError wraps the first unrecoverable failure of a provisioning
// run, naming the step that failed.
type ProvisioningError struct {
	Step string
	Err  error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("provisioning failed at step %q: %v", e.Step, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// DatabaseDeletionError reports a failure partway through the ordered
// multi-collection deletion phase. Counts holds the rows already deleted;
// earlier deletions are not rolled back (deletion is forward-only, not atomic
// across record types).
type DatabaseDeletionError struct {
	Collection models.Collection
	Counts     map[models.Collection]int64
	Err        error
}

func (e *DatabaseDeletionError) Error() string {
	return fmt.Sprintf("database deletion failed at collection %q: %v", e.Collection, e.Err)
}

func (e *DatabaseDeletionError) Unwrap() error { return e.Err }

// DatabaseOperationError reports a persistence-layer failure outside the
// deletion fan-out, such as opening or committing a transaction.
type DatabaseOperationError struct {
	Op  string
	Err error
}

func (e *DatabaseOperationError) Error() string {
	return fmt.Sprintf("database operation %q failed: %v", e.Op, e.Err)
}

func (e *DatabaseOperationError) Unwrap() error { return e.Err }

// StorageOperationError reports an object-storage failure. During deletion
// these are captured in the result rather than aborting the run.
type StorageOperationError struct {
	Op     string
	Bucket string
	Err    error
}

func (e *StorageOperationError) Error() string {
	return fmt.Sprintf("storage operation %q on bucket %q failed: %v", e.Op, e.Bucket, e.Err)
}

func (e *StorageOperationError) Unwrap() error { return e.Err }

// ExternalServiceError reports a failure from an external collaborator such
// as the identity provider or a notification service.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("external service %q failed: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }
