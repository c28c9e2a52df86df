// Package services provides the operation boundary the HTTP and CLI layers
// call into: workflow definition management, run lifecycle, and schedules.
package services

import (
	"errors"
	"fmt"

	"github.com/chainrun/chainrun/pkg/engine"
	"github.com/chainrun/chainrun/pkg/models"
	"github.com/chainrun/chainrun/pkg/persistence"
)

// Business logic errors. Validation errors map to 400 responses, not-found
// to 404, conflicts to 409.
var (
	// ErrWorkflowNotFound is returned when a workflow is not found.
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

	// ErrRunNotFound is returned when a run is not found.
	ErrRunNotFound = persistence.ErrRunNotFound

	// ErrScheduleNotFound is returned when a schedule is not found.
	ErrScheduleNotFound = persistence.ErrScheduleNotFound

	// ErrEmptyWorkflow is returned when a run is requested for a workflow
	// with zero components.
	ErrEmptyWorkflow = errors.New("workflow has no components")

	// ErrWorkflowInactive is returned when a run is requested for a
	// deactivated workflow.
	ErrWorkflowInactive = errors.New("workflow is not active")

	// ErrRunNotCancellable is returned when cancellation targets a run that
	// already finished.
	ErrRunNotCancellable = errors.New("run already finished")

	// Manual retry errors, re-exported from the engine.
	ErrRunNotTerminal = engine.ErrRunNotTerminal
	ErrNotRetryable   = engine.ErrNotRetryable
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{Op: op, Code: code, Message: message, Err: err}
}

// IsValidationError checks if an error is a definition error that should
// return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, engine.ErrRangeInverted) ||
		errors.Is(err, models.ErrInvalidWorkflow) ||
		errors.Is(err, models.ErrInvalidRetryStrategy) ||
		errors.Is(err, models.ErrInvalidSchedule) ||
		errors.Is(err, ErrEmptyWorkflow) ||
		errors.Is(err, ErrWorkflowInactive)
}

// IsNotFoundError checks if an error indicates a missing entity that should
// return HTTP 404.
func IsNotFoundError(err error) bool {
	return persistence.IsNotFound(err) ||
		errors.Is(err, engine.ErrComponentNotInRun) ||
		errors.Is(err, engine.ErrRangeComponentNotFound)
}

// IsConflictError checks if an error is a state conflict that should return
// HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrRunNotTerminal) ||
		errors.Is(err, ErrNotRetryable) ||
		errors.Is(err, ErrRunNotCancellable) ||
		errors.Is(err, engine.ErrRunNotPending)
}
