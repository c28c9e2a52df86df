package engine

import (
	"errors"
	"fmt"

	"github.com/chainrun/chainrun/pkg/models"
)

// Range resolution errors. Both are definition errors: they surface at
// request time and nothing is persisted.
var (
	// ErrRangeComponentNotFound indicates a range boundary references a
	// component absent from the workflow.
	ErrRangeComponentNotFound = errors.New("range component not found")

	// ErrRangeInverted indicates the start component comes after the end
	// component in execution order.
	ErrRangeInverted = errors.New("range start comes after range end")
)

// RangeError wraps a range resolution failure with the boundary that caused
// it.
type RangeError struct {
	ComponentID string
	Err         error
}

func (e *RangeError) Error() string {
	if e.ComponentID != "" {
		return fmt.Sprintf("resolve range: component %q: %v", e.ComponentID, e.Err)
	}

	return fmt.Sprintf("resolve range: %v", e.Err)
}

func (e *RangeError) Unwrap() error {
	return e.Err
}

// ResolveRange computes the contiguous slice of components a sub-range run
// executes. components must already be in execution order. The slice always
// spans [order(start), order(end)]; a false inclusion flag drops the
// corresponding boundary component. start == end with both flags false
// resolves to an empty slice, which is a valid vacuous run.
//
// Deterministic and side-effect free; inverted bounds are an error, never a
// silent swap.
func ResolveRange(components []*models.Component, startID, endID string, includeStart, includeEnd bool) ([]*models.Component, error) {
	startIdx := -1
	endIdx := -1

	for i, component := range components {
		if component.ID == startID {
			startIdx = i
		}

		if component.ID == endID {
			endIdx = i
		}
	}

	if startIdx == -1 {
		return nil, &RangeError{ComponentID: startID, Err: ErrRangeComponentNotFound}
	}

	if endIdx == -1 {
		return nil, &RangeError{ComponentID: endID, Err: ErrRangeComponentNotFound}
	}

	if startIdx > endIdx {
		return nil, &RangeError{Err: fmt.Errorf("%w: %q (order %d) after %q (order %d)",
			ErrRangeInverted, startID, components[startIdx].Order, endID, components[endIdx].Order)}
	}

	if !includeStart {
		startIdx++
	}

	if !includeEnd {
		endIdx--
	}

	if startIdx > endIdx {
		return []*models.Component{}, nil
	}

	resolved := make([]*models.Component, endIdx-startIdx+1)
	copy(resolved, components[startIdx:endIdx+1])

	return resolved, nil
}
