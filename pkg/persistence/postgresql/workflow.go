package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chainrun/chainrun/pkg/models"
	"github.com/chainrun/chainrun/pkg/persistence"
)

// WorkflowRepository handles workflow-related database operations. The
// component and connection lists are stored as JSONB documents; the engine
// always reads a workflow whole.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const workflowColumns = `
	id
  , name
  , description
  , validation_mode
  , active
  , components
  , connections
  , created_by
  , created_at
  , updated_at
`

// List returns a filtered, paginated page of workflows, newest first.
func (r *WorkflowRepository) List(ctx context.Context, opts persistence.ListWorkflowsOptions) (*persistence.WorkflowListResult, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}

	if opts.Offset < 0 {
		opts.Offset = 0
	}

	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE ($1 = '' OR created_by = $1)
		  AND ($2::BOOLEAN IS NULL OR active = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.QueryContext(ctx, query, opts.Owner, opts.Active, opts.Limit+1, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	workflows := make([]*models.Workflow, 0, opts.Limit)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	// One extra row was fetched to detect the next page.
	hasNextPage := len(workflows) > opts.Limit
	if hasNextPage {
		workflows = workflows[:opts.Limit]
	}

	var totalCount int64
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM workflows WHERE ($1 = '' OR created_by = $1) AND ($2::BOOLEAN IS NULL OR active = $2)",
		opts.Owner, opts.Active,
	).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("failed to count workflows: %w", err)
	}

	return &persistence.WorkflowListResult{
		Workflows:   workflows,
		TotalCount:  totalCount,
		HasNextPage: hasNextPage,
	}, nil
}

// GetByID retrieves a workflow by its ID. Returns (nil, nil) when absent.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE id = $1
	`

	workflow, err := scanWorkflow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, persistence.NewStoreError("GetByID", "workflow", id, err)
	}

	return workflow, nil
}

// Save upserts a workflow.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	components, err := json.Marshal(workflow.Components)
	if err != nil {
		return persistence.NewStoreError("Save", "workflow", workflow.ID, err)
	}

	connections, err := json.Marshal(workflow.Connections)
	if err != nil {
		return persistence.NewStoreError("Save", "workflow", workflow.ID, err)
	}

	query := `
		INSERT INTO workflows (id, name, description, validation_mode, active, components, connections, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			validation_mode = EXCLUDED.validation_mode,
			active = EXCLUDED.active,
			components = EXCLUDED.components,
			connections = EXCLUDED.connections,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		workflow.ID, workflow.Name, workflow.Description, workflow.ValidationMode, workflow.Active,
		components, connections, workflow.CreatedBy, workflow.CreatedAt, workflow.UpdatedAt)
	if err != nil {
		return persistence.NewStoreError("Save", "workflow", workflow.ID, err)
	}

	return nil
}

// Delete removes a workflow. Runs reference workflows by ID only, so
// history stays readable.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return persistence.NewStoreError("Delete", "workflow", id, err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		workflow    models.Workflow
		components  []byte
		connections []byte
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.Description,
		&workflow.ValidationMode,
		&workflow.Active,
		&components,
		&connections,
		&workflow.CreatedBy,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(components, &workflow.Components); err != nil {
		return nil, fmt.Errorf("unmarshal components: %w", err)
	}

	if err := json.Unmarshal(connections, &workflow.Connections); err != nil {
		return nil, fmt.Errorf("unmarshal connections: %w", err)
	}

	return &workflow, nil
}
