package file

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/chainrun/chainrun/pkg/models"
	"github.com/chainrun/chainrun/pkg/persistence"
)

// WorkflowRepository stores one JSON document per workflow under
// <root>/workflows/.
type WorkflowRepository struct {
	root string
}

func (wr *WorkflowRepository) dir() string {
	return path.Join(wr.root, "workflows")
}

// List returns a filtered, paginated page of workflows, newest first.
func (wr *WorkflowRepository) List(ctx context.Context, opts persistence.ListWorkflowsOptions) (*persistence.WorkflowListResult, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}

	if opts.Offset < 0 {
		opts.Offset = 0
	}

	all, err := wr.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.Workflow, 0, len(all))

	for _, workflow := range all {
		if opts.Owner != "" && workflow.CreatedBy != opts.Owner {
			continue
		}

		if opts.Active != nil && workflow.Active != *opts.Active {
			continue
		}

		filtered = append(filtered, workflow)
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	totalCount := int64(len(filtered))

	start := opts.Offset
	if start > len(filtered) {
		start = len(filtered)
	}

	end := start + opts.Limit
	if end > len(filtered) {
		end = len(filtered)
	}

	return &persistence.WorkflowListResult{
		Workflows:   filtered[start:end],
		TotalCount:  totalCount,
		HasNextPage: end < len(filtered),
	}, nil
}

func (wr *WorkflowRepository) loadAll(ctx context.Context) ([]*models.Workflow, error) {
	entries, err := fs.Glob(os.DirFS(wr.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("list workflow files: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(entries))

	for _, entry := range entries {
		workflow, err := wr.GetByID(ctx, strings.TrimSuffix(entry, ".json"))
		if err != nil {
			return nil, err
		}

		if workflow != nil {
			workflows = append(workflows, workflow)
		}
	}

	return workflows, nil
}

// GetByID retrieves a workflow by its ID. Returns (nil, nil) when absent.
func (wr *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	var workflow models.Workflow

	found, err := readJSON(wr.dir(), id, &workflow)
	if err != nil {
		return nil, persistence.NewStoreError("GetByID", "workflow", id, err)
	}

	if !found {
		return nil, nil
	}

	return &workflow, nil
}

// Save writes a workflow document, stamping the timestamps.
func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if err := writeJSON(wr.dir(), workflow.ID, workflow); err != nil {
		return persistence.NewStoreError("Save", "workflow", workflow.ID, err)
	}

	return nil
}

// Delete removes a workflow document. Historical runs stay untouched.
func (wr *WorkflowRepository) Delete(_ context.Context, id string) error {
	if err := removeJSON(wr.dir(), id); err != nil {
		return persistence.NewStoreError("Delete", "workflow", id, err)
	}

	return nil
}
