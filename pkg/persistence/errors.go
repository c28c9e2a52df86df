package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrRunNotFound indicates a run was not found by the given identifier.
	ErrRunNotFound = errors.New("run not found")

	// ErrComponentStatusNotFound indicates a run has no status row for the component.
	ErrComponentStatusNotFound = errors.New("component status not found")

	// ErrScheduleNotFound indicates a schedule was not found by the given identifier.
	ErrScheduleNotFound = errors.New("schedule not found")
)

// StoreError wraps a persistence failure with the operation and entity that
// caused it.
type StoreError struct {
	Op       string // Operation being performed (e.g. "GetByID", "Save", "Delete")
	Entity   string // Entity kind (e.g. "workflow", "run")
	EntityID string // Entity identifier if applicable
	Err      error
}

func (e *StoreError) Error() string {
	if e.EntityID != "" {
		return fmt.Sprintf("%s %s %s: %v", e.Op, e.Entity, e.EntityID, e.Err)
	}

	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a StoreError with context.
func NewStoreError(op, entity, entityID string, err error) *StoreError {
	return &StoreError{Op: op, Entity: entity, EntityID: entityID, Err: err}
}

// IsWorkflowNotFound checks if an error indicates a missing workflow.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsRunNotFound checks if an error indicates a missing run.
func IsRunNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound)
}

// IsScheduleNotFound checks if an error indicates a missing schedule.
func IsScheduleNotFound(err error) bool {
	return errors.Is(err, ErrScheduleNotFound)
}

// IsNotFound checks if an error indicates any missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrRunNotFound) ||
		errors.Is(err, ErrComponentStatusNotFound) ||
		errors.Is(err, ErrScheduleNotFound)
}
