// Package models defines the core domain models for chained integration workflows
package models

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ValidationMode controls how strictly a workflow treats component failures
// and pre-execution configuration checks.
type ValidationMode string

const (
	ValidationModeRequired ValidationMode = "required" // Failures stop the run when validation is enabled
	ValidationModeOptional ValidationMode = "optional" // Failures are recorded, the run continues
	ValidationModeNone     ValidationMode = "none"     // No pre-execution config validation, failures never stop the run
)

// Workflow represents an ordered chain of integration components.
type Workflow struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"            validate:"required,min=3"`
	Description    string         `json:"description"`
	ValidationMode ValidationMode `json:"validation_mode" validate:"required"`
	Active         bool           `json:"active"`
	Components     []*Component   `json:"components"`
	Connections    []*Connection  `json:"connections"`
	CreatedBy      string         `json:"created_by"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// OrderedComponents returns the workflow components sorted by their declared
// execution order. The receiver's slice is not modified.
func (w *Workflow) OrderedComponents() []*Component {
	ordered := make([]*Component, len(w.Components))
	copy(ordered, w.Components)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order < ordered[j].Order
	})

	return ordered
}

// ComponentByID finds a component in the workflow by its identifier.
// Returns nil if no component matches.
func (w *Workflow) ComponentByID(componentID string) *Component {
	for _, component := range w.Components {
		if component.ID == componentID {
			return component
		}
	}

	return nil
}

// Validate checks the structural integrity of the workflow definition:
// validation mode, component types and orders, retry strategies, and
// connection endpoints.
func (w *Workflow) Validate() error {
	switch w.ValidationMode {
	case ValidationModeRequired, ValidationModeOptional, ValidationModeNone:
	default:
		return fmt.Errorf("%w: unknown validation mode %q", ErrInvalidWorkflow, w.ValidationMode)
	}

	seenOrders := make(map[int]string, len(w.Components))
	seenIDs := make(map[string]bool, len(w.Components))

	for _, component := range w.Components {
		if err := component.Validate(); err != nil {
			return err
		}

		if seenIDs[component.ID] {
			return fmt.Errorf("%w: duplicate component id %q", ErrInvalidWorkflow, component.ID)
		}

		seenIDs[component.ID] = true

		if other, ok := seenOrders[component.Order]; ok {
			return fmt.Errorf("%w: components %q and %q share order %d", ErrInvalidWorkflow, other, component.ID, component.Order)
		}

		seenOrders[component.Order] = component.ID
	}

	// Unique orders confined to [1, n] are necessarily the dense sequence 1..n.
	for order, componentID := range seenOrders {
		if order < 1 || order > len(w.Components) {
			return fmt.Errorf("%w: component %q has order %d, orders must run 1..%d without gaps",
				ErrInvalidWorkflow, componentID, order, len(w.Components))
		}
	}

	for _, connection := range w.Connections {
		if err := connection.Validate(w); err != nil {
			return err
		}
	}

	return nil
}

var (
	// ErrInvalidWorkflow is returned when a workflow definition fails validation
	ErrInvalidWorkflow = errors.New("invalid workflow definition")
)
