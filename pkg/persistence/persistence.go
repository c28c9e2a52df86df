// Package persistence provides the storage abstraction for workflow
// definitions, runs, component statuses, and schedules.
package persistence

import (
	"context"
	"time"

	"github.com/chainrun/chainrun/pkg/models"
)

// Persistence bundles the repositories one storage backend provides.
type Persistence interface {
	Workflows() WorkflowRepository
	Runs() RunRepository
	Statuses() ComponentStatusRepository
	Schedules() ScheduleRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// ListWorkflowsOptions filters and paginates workflow listings. A nil
// Active returns workflows regardless of activation state.
type ListWorkflowsOptions struct {
	Limit  int
	Offset int
	Owner  string
	Active *bool
}

// WorkflowListResult is one page of workflows.
type WorkflowListResult struct {
	Workflows   []*models.Workflow `json:"workflows"`
	TotalCount  int64              `json:"total_count"`
	HasNextPage bool               `json:"has_next_page"`
}

// WorkflowRepository stores workflow definitions. GetByID returns (nil, nil)
// when no workflow matches.
type WorkflowRepository interface {
	List(ctx context.Context, opts ListWorkflowsOptions) (*WorkflowListResult, error)
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
}

// RunRepository stores runs. Historical runs survive workflow deletion.
// GetByID returns (nil, nil) when no run matches.
type RunRepository interface {
	GetByID(ctx context.Context, id string) (*models.Run, error)
	Save(ctx context.Context, run *models.Run) error

	// ListByWorkflow returns the workflow's runs newest first. kind filters
	// to full or sub runs when non-empty.
	ListByWorkflow(ctx context.Context, workflowID string, kind models.RunKind) ([]*models.Run, error)
}

// ComponentStatusRepository stores per-run component status rows.
type ComponentStatusRepository interface {
	GetByRunAndComponent(ctx context.Context, runID, componentID string) (*models.ComponentStatus, error)
	Save(ctx context.Context, status *models.ComponentStatus) error

	// ListByRun returns the run's status rows in component order.
	ListByRun(ctx context.Context, runID string) ([]*models.ComponentStatus, error)
}

// ScheduleRepository stores recurring run schedules.
type ScheduleRepository interface {
	List(ctx context.Context) ([]*models.Schedule, error)
	ListDue(ctx context.Context, now time.Time) ([]*models.Schedule, error)
	GetByID(ctx context.Context, id string) (*models.Schedule, error)
	Save(ctx context.Context, schedule *models.Schedule) error
	Delete(ctx context.Context, id string) error
}
