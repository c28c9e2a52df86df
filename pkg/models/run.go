package models

import (
	"fmt"
	"time"
)

// RunKind distinguishes full-chain runs from sub-range runs.
type RunKind string

const (
	RunKindFull RunKind = "full" // Every component of the workflow, in order
	RunKindSub  RunKind = "sub"  // A contiguous slice of the chain
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunStatusPending            RunStatus = "pending"
	RunStatusRunning            RunStatus = "running"
	RunStatusCompleted          RunStatus = "completed"           // Every in-range component completed
	RunStatusFailed             RunStatus = "failed"              // Stopped on an unrecoverable failure
	RunStatusPartiallyCompleted RunStatus = "partially_completed" // Finished with a mix of outcomes
)

// IsTerminal reports whether the run has finished and will not change state
// on its own.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusPartiallyCompleted
}

// RunRange holds the boundary parameters of a sub-range run as requested.
// The boundaries are resolved against the workflow when execution starts.
type RunRange struct {
	StartID      string `json:"start_id"`
	EndID        string `json:"end_id"`
	IncludeStart bool   `json:"include_start"`
	IncludeEnd   bool   `json:"include_end"`
}

// Run is one execution of a workflow chain. StopOnFailure freezes the
// continuation policy at creation time so later workflow edits cannot change
// a run already underway. Log collects human-readable progress lines.
type Run struct {
	ID                string     `json:"id"`
	WorkflowID        string     `json:"workflow_id" validate:"required"`
	WorkflowName      string     `json:"workflow_name"`
	Kind              RunKind    `json:"kind"        validate:"required"`
	Status            RunStatus  `json:"status"`
	ValidationEnabled bool       `json:"validation_enabled"`
	StopOnFailure     bool       `json:"stop_on_failure"`
	Range             *RunRange  `json:"range,omitempty"`
	CancelRequested   bool       `json:"cancel_requested"`
	Log               []string   `json:"log"`
	CreatedAt         time.Time  `json:"created_at"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	FinishedAt        *time.Time `json:"finished_at,omitempty"`
}

// NewRun builds a pending run for the workflow, freezing the continuation
// policy. Full runs stop on unrecoverable failures only when validation is
// enabled and the workflow requires it; sub-range runs stop whenever
// validation is enabled.
func NewRun(id string, workflow *Workflow, kind RunKind, validationEnabled bool, runRange *RunRange) *Run {
	stopOnFailure := validationEnabled
	if kind == RunKindFull {
		stopOnFailure = validationEnabled && workflow.ValidationMode == ValidationModeRequired
	}

	return &Run{
		ID:                id,
		WorkflowID:        workflow.ID,
		WorkflowName:      workflow.Name,
		Kind:              kind,
		Status:            RunStatusPending,
		ValidationEnabled: validationEnabled,
		StopOnFailure:     stopOnFailure,
		Range:             runRange,
		Log:               []string{},
		CreatedAt:         time.Now().UTC(),
	}
}

const logTimeLayout = "2006-01-02 15:04:05"

// AppendLog appends a timestamped line to the run log.
func (r *Run) AppendLog(message string) {
	r.Log = append(r.Log, fmt.Sprintf("[%s] %s", time.Now().UTC().Format(logTimeLayout), message))
}

// AppendLogf formats and appends a timestamped line to the run log.
func (r *Run) AppendLogf(format string, args ...any) {
	r.AppendLog(fmt.Sprintf(format, args...))
}
