package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainrun/chainrun/pkg/models"
)

func chain(ids ...string) []*models.Component {
	components := make([]*models.Component, 0, len(ids))
	for i, id := range ids {
		components = append(components, &models.Component{
			ID:    id,
			Name:  "Component " + id,
			Type:  models.ComponentTypeService,
			Order: i + 1,
		})
	}

	return components
}

func resolvedIDs(components []*models.Component) []string {
	ids := make([]string, 0, len(components))
	for _, component := range components {
		ids = append(ids, component.ID)
	}

	return ids
}

func TestResolveRange(t *testing.T) {
	components := chain("a", "b", "c", "d", "e")

	tests := []struct {
		name         string
		startID      string
		endID        string
		includeStart bool
		includeEnd   bool
		want         []string
	}{
		{"full span inclusive", "a", "e", true, true, []string{"a", "b", "c", "d", "e"}},
		{"interior slice", "b", "d", true, true, []string{"b", "c", "d"}},
		{"exclusive start", "b", "d", false, true, []string{"c", "d"}},
		{"exclusive end", "b", "d", true, false, []string{"b", "c"}},
		{"both exclusive", "a", "d", false, false, []string{"b", "c"}},
		{"single inclusive", "c", "c", true, true, []string{"c"}},
		{"single exclusive start", "c", "c", false, true, []string{}},
		{"single exclusive end", "c", "c", true, false, []string{}},
		{"single both exclusive is vacuous", "c", "c", false, false, []string{}},
		{"adjacent both exclusive is vacuous", "b", "c", false, false, []string{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resolved, err := ResolveRange(components, tc.startID, tc.endID, tc.includeStart, tc.includeEnd)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resolvedIDs(resolved))
		})
	}
}

func TestResolveRange_DoesNotMutateInput(t *testing.T) {
	components := chain("a", "b", "c")

	resolved, err := ResolveRange(components, "a", "c", false, true)
	require.NoError(t, err)

	resolved[0] = &models.Component{ID: "x"}
	assert.Equal(t, "b", components[1].ID)
}

func TestResolveRange_MissingBoundary(t *testing.T) {
	components := chain("a", "b", "c")

	_, err := ResolveRange(components, "nope", "c", true, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRangeComponentNotFound)

	var rangeErr *RangeError

	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, "nope", rangeErr.ComponentID)

	_, err = ResolveRange(components, "a", "nope", true, true)
	assert.ErrorIs(t, err, ErrRangeComponentNotFound)
}

func TestResolveRange_Inverted(t *testing.T) {
	components := chain("a", "b", "c")

	_, err := ResolveRange(components, "c", "a", true, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRangeInverted)

	// Inverted bounds fail even when exclusion would empty the range anyway.
	_, err = ResolveRange(components, "c", "a", false, false)
	assert.ErrorIs(t, err, ErrRangeInverted)
}

func TestResolveRange_EmptyWorkflow(t *testing.T) {
	_, err := ResolveRange(nil, "a", "b", true, true)
	assert.True(t, errors.Is(err, ErrRangeComponentNotFound))
}
