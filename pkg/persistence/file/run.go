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

// RunRepository stores one JSON document per run under <root>/runs/.
type RunRepository struct {
	root string
}

func (rr *RunRepository) dir() string {
	return path.Join(rr.root, "runs")
}

// GetByID retrieves a run by its ID. Returns (nil, nil) when absent.
func (rr *RunRepository) GetByID(_ context.Context, id string) (*models.Run, error) {
	var run models.Run

	found, err := readJSON(rr.dir(), id, &run)
	if err != nil {
		return nil, persistence.NewStoreError("GetByID", "run", id, err)
	}

	if !found {
		return nil, nil
	}

	return &run, nil
}

// Save writes a run document.
func (rr *RunRepository) Save(_ context.Context, run *models.Run) error {
	if err := writeJSON(rr.dir(), run.ID, run); err != nil {
		return persistence.NewStoreError("Save", "run", run.ID, err)
	}

	return nil
}

// ListByWorkflow returns the workflow's runs newest first, optionally
// filtered by kind.
func (rr *RunRepository) ListByWorkflow(ctx context.Context, workflowID string, kind models.RunKind) ([]*models.Run, error) {
	entries, err := fs.Glob(os.DirFS(rr.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("list run files: %w", err)
	}

	runs := make([]*models.Run, 0)

	for _, entry := range entries {
		run, err := rr.GetByID(ctx, strings.TrimSuffix(entry, ".json"))
		if err != nil {
			return nil, err
		}

		if run == nil || run.WorkflowID != workflowID {
			continue
		}

		if kind != "" && run.Kind != kind {
			continue
		}

		runs = append(runs, run)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})

	return runs, nil
}
