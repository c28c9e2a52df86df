package file

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/chainrun/chainrun/pkg/models"
	"github.com/chainrun/chainrun/pkg/persistence"
)

// ComponentStatusRepository stores one JSON document per status row under
// <root>/statuses/<runID>/.
type ComponentStatusRepository struct {
	root string
}

func (sr *ComponentStatusRepository) dir(runID string) string {
	return path.Join(sr.root, "statuses", runID)
}

// GetByRunAndComponent retrieves one status row. Returns (nil, nil) when
// absent.
func (sr *ComponentStatusRepository) GetByRunAndComponent(_ context.Context, runID, componentID string) (*models.ComponentStatus, error) {
	var status models.ComponentStatus

	found, err := readJSON(sr.dir(runID), componentID, &status)
	if err != nil {
		return nil, persistence.NewStoreError("GetByRunAndComponent", "component status", componentID, err)
	}

	if !found {
		return nil, nil
	}

	return &status, nil
}

// Save writes a status row keyed by its component within the run.
func (sr *ComponentStatusRepository) Save(_ context.Context, status *models.ComponentStatus) error {
	if err := writeJSON(sr.dir(status.RunID), status.ComponentID, status); err != nil {
		return persistence.NewStoreError("Save", "component status", status.ComponentID, err)
	}

	return nil
}

// ListByRun returns the run's status rows in component order.
func (sr *ComponentStatusRepository) ListByRun(ctx context.Context, runID string) ([]*models.ComponentStatus, error) {
	dir := sr.dir(runID)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []*models.ComponentStatus{}, nil
	}

	entries, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("list status files: %w", err)
	}

	statuses := make([]*models.ComponentStatus, 0, len(entries))

	for _, entry := range entries {
		status, err := sr.GetByRunAndComponent(ctx, runID, strings.TrimSuffix(entry, ".json"))
		if err != nil {
			return nil, err
		}

		if status != nil {
			statuses = append(statuses, status)
		}
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Order < statuses[j].Order
	})

	return statuses, nil
}
