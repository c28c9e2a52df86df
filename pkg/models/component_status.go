package models

import "time"

// ComponentState is the per-run lifecycle state of one chain component.
type ComponentState string

const (
	ComponentStatePending   ComponentState = "pending"
	ComponentStateRunning   ComponentState = "running"
	ComponentStateCompleted ComponentState = "completed"
	ComponentStateFailed    ComponentState = "failed"  // Attempts exhausted or ruled out
	ComponentStateSkipped   ComponentState = "skipped" // Never attempted in this run
)

// IsTerminal reports whether the component finished for this run.
func (s ComponentState) IsTerminal() bool {
	return s == ComponentStateCompleted || s == ComponentStateFailed || s == ComponentStateSkipped
}

// Retryable reports whether a manual retry may target this state.
func (s ComponentState) Retryable() bool {
	return s == ComponentStateFailed || s == ComponentStateSkipped
}

// ComponentStatus records the outcome of one component within one run. Name,
// type and order are frozen at run creation so the record stays meaningful
// after the workflow definition changes. RetryCount accumulates across
// automatic retries and manual retries alike.
type ComponentStatus struct {
	ID            string         `json:"id"`
	RunID         string         `json:"run_id"       validate:"required"`
	ComponentID   string         `json:"component_id" validate:"required"`
	ComponentName string         `json:"component_name"`
	ComponentType ComponentType  `json:"component_type"`
	Order         int            `json:"order"`
	State         ComponentState `json:"state"`
	RetryCount    int            `json:"retry_count"`
	LastError     string         `json:"last_error,omitempty"`
	LastSignal    FailureSignal  `json:"last_signal,omitempty"`
	StartedAt     *time.Time     `json:"started_at,omitempty"`
	FinishedAt    *time.Time     `json:"finished_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// NewComponentStatus builds a pending status row for a component in a run,
// freezing the component's descriptive fields.
func NewComponentStatus(id, runID string, component *Component) *ComponentStatus {
	now := time.Now().UTC()

	return &ComponentStatus{
		ID:            id,
		RunID:         runID,
		ComponentID:   component.ID,
		ComponentName: component.Name,
		ComponentType: component.Type,
		Order:         component.Order,
		State:         ComponentStatePending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// MarkRunning transitions the status to running and stamps the start time.
func (cs *ComponentStatus) MarkRunning() {
	now := time.Now().UTC()
	cs.State = ComponentStateRunning
	cs.StartedAt = &now
	cs.UpdatedAt = now
}

// MarkCompleted transitions the status to completed and clears the failure
// fields left by earlier attempts.
func (cs *ComponentStatus) MarkCompleted() {
	now := time.Now().UTC()
	cs.State = ComponentStateCompleted
	cs.LastError = ""
	cs.LastSignal = ""
	cs.FinishedAt = &now
	cs.UpdatedAt = now
}

// MarkFailed transitions the status to failed, recording the final error and
// its classification.
func (cs *ComponentStatus) MarkFailed(err error, signal FailureSignal) {
	now := time.Now().UTC()
	cs.State = ComponentStateFailed
	cs.LastError = err.Error()
	cs.LastSignal = signal
	cs.FinishedAt = &now
	cs.UpdatedAt = now
}

// MarkSkipped transitions the status to skipped.
func (cs *ComponentStatus) MarkSkipped() {
	now := time.Now().UTC()
	cs.State = ComponentStateSkipped
	cs.FinishedAt = &now
	cs.UpdatedAt = now
}
