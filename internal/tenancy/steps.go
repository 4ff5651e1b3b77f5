// steps.go defines the in-memory step and log records both orchestrators
// accumulate for observability. None of these are persisted; they are returned
// to the caller so operators can see exactly what ran, what was skipped, and
// what failed.
package tenancy

import "time"

// StepStatus is the state of one orchestration step.
type StepStatus string

const (
	StepPending        StepStatus = "pending"
	StepInProgress     StepStatus = "in_progress"
	StepCompleted      StepStatus = "completed"
	StepFailed         StepStatus = "failed"
	StepSkipped        StepStatus = "skipped"         // disabled by options
	StepNotImplemented StepStatus = "not_implemented" // wired capability declined
)

// ProvisioningStep records one orchestration step with timing and a free-form
// detail payload.
type ProvisioningStep struct {
	Name       string                 `json:"name"`
	Status     StepStatus             `json:"status"`
	StartedAt  *time.Time             `json:"started_at,omitempty"`
	FinishedAt *time.Time             `json:"finished_at,omitempty"`
	Detail     map[string]interface{} `json:"detail,omitempty"`
}

// stepLog accumulates provisioning steps in execution order and indexes them
// by name.
type stepLog struct {
	order []*ProvisioningStep
	index map[string]*ProvisioningStep
}

func newStepLog() *stepLog {
	return &stepLog{index: make(map[string]*ProvisioningStep)}
}

func (l *stepLog) begin(name string) *ProvisioningStep {
	now := time.Now()
	step := &ProvisioningStep{Name: name, Status: StepInProgress, StartedAt: &now}
	l.order = append(l.order, step)
	l.index[name] = step
	return step
}

func (l *stepLog) finish(step *ProvisioningStep, status StepStatus, detail map[string]interface{}) {
	now := time.Now()
	step.FinishedAt = &now
	step.Status = status
	step.Detail = detail
}

// record adds a step that never ran (skipped before execution).
func (l *stepLog) record(name string, status StepStatus, detail map[string]interface{}) *ProvisioningStep {
	step := &ProvisioningStep{Name: name, Status: status, Detail: detail}
	l.order = append(l.order, step)
	l.index[name] = step
	return step
}

// Steps returns the accumulated steps in execution order.
func (l *stepLog) steps() []*ProvisioningStep { return l.order }

// DeletionLogEntry is one append-only record of a deletion run.
type DeletionLogEntry struct {
	Step      string                 `json:"step"`
	Timestamp time.Time              `json:"timestamp"`
	Detail    map[string]interface{} `json:"detail,omitempty"`
}

// DeletionErrorEntry records a captured (non-fatal or fatal) error during a
// deletion run.
type DeletionErrorEntry struct {
	Step      string    `json:"step"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
