package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/chainrun/chainrun/pkg/models"
	"github.com/chainrun/chainrun/pkg/persistence"
)

// Workflow manages workflow definitions. Definitions are validated at save
// time so execution never sees a structurally broken chain.
type Workflow struct {
	persistence persistence.Persistence
	validate    *validator.Validate
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence) *Workflow {
	return &Workflow{
		persistence: persistence,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ListWorkflowsRequest contains options for listing workflows. Active
// filters to active or deactivated workflows when set.
type ListWorkflowsRequest struct {
	Limit  int `validate:"min=0,max=100"`
	Offset int `validate:"min=0"`
	Owner  string
	Active *bool
}

// List retrieves a page of workflows.
func (w *Workflow) List(ctx context.Context, req ListWorkflowsRequest) (*persistence.WorkflowListResult, error) {
	if err := w.validate.Struct(req); err != nil {
		return nil, NewValidationError("List", "INVALID_REQUEST", err.Error(), models.ErrInvalidWorkflow)
	}

	result, err := w.persistence.Workflows().List(ctx, persistence.ListWorkflowsOptions{
		Limit:  req.Limit,
		Offset: req.Offset,
		Owner:  req.Owner,
		Active: req.Active,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return result, nil
}

// FetchByID retrieves a workflow by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := w.persistence.Workflows().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}

	return workflow, nil
}

// Create validates and stores a new workflow definition.
func (w *Workflow) Create(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	now := time.Now().UTC()
	workflow.ID = uuid.New().String()
	workflow.CreatedAt = now
	workflow.UpdatedAt = now
	workflow.Active = true

	if workflow.ValidationMode == "" {
		workflow.ValidationMode = models.ValidationModeOptional
	}

	if err := w.prepare(workflow); err != nil {
		return nil, err
	}

	if err := w.persistence.Workflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	return workflow, nil
}

// Update validates and replaces an existing workflow definition. In-flight
// runs are unaffected: they executed against a snapshot taken at run start.
func (w *Workflow) Update(ctx context.Context, workflowID string, workflow *models.Workflow) (*models.Workflow, error) {
	existing, err := w.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		return nil, ErrWorkflowNotFound
	}

	workflow.ID = workflowID
	workflow.CreatedAt = existing.CreatedAt
	workflow.CreatedBy = existing.CreatedBy
	workflow.UpdatedAt = time.Now().UTC()

	if workflow.ValidationMode == "" {
		workflow.ValidationMode = existing.ValidationMode
	}

	if err := w.prepare(workflow); err != nil {
		return nil, err
	}

	if err := w.persistence.Workflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	return workflow, nil
}

// Delete removes a workflow by its ID. Historical runs stay readable.
func (w *Workflow) Delete(ctx context.Context, workflowID string) error {
	existing, err := w.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return err
	}

	if existing == nil {
		return ErrWorkflowNotFound
	}

	if err := w.persistence.Workflows().Delete(ctx, workflowID); err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	return nil
}

// prepare applies retry-strategy defaults and runs full definition
// validation. Any failure here is a definition error: nothing is persisted.
func (w *Workflow) prepare(workflow *models.Workflow) error {
	for _, component := range workflow.Components {
		if component.Retry != nil {
			component.Retry.ApplyDefaults()
		}

		if component.ID == "" {
			component.ID = uuid.New().String()
		}
	}

	if err := w.validate.Struct(workflow); err != nil {
		return NewValidationError("prepare", "INVALID_WORKFLOW", err.Error(), models.ErrInvalidWorkflow)
	}

	return workflow.Validate()
}
