package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chainrun/chainrun/pkg/models"
	"github.com/chainrun/chainrun/pkg/persistence"
)

// RunRepository handles run-related database operations.
type RunRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const runColumns = `
	id
  , workflow_id
  , workflow_name
  , kind
  , status
  , validation_enabled
  , stop_on_failure
  , run_range
  , cancel_requested
  , log
  , created_at
  , started_at
  , finished_at
`

// GetByID retrieves a run by its ID. Returns (nil, nil) when absent.
func (r *RunRepository) GetByID(ctx context.Context, id string) (*models.Run, error) {
	query := `
		SELECT ` + runColumns + `
		FROM runs
		WHERE id = $1
	`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, persistence.NewStoreError("GetByID", "run", id, err)
	}

	return run, nil
}

// Save upserts a run.
func (r *RunRepository) Save(ctx context.Context, run *models.Run) error {
	var runRange any

	if run.Range != nil {
		data, err := json.Marshal(run.Range)
		if err != nil {
			return persistence.NewStoreError("Save", "run", run.ID, err)
		}

		runRange = data
	}

	logLines, err := json.Marshal(run.Log)
	if err != nil {
		return persistence.NewStoreError("Save", "run", run.ID, err)
	}

	query := `
		INSERT INTO runs (id, workflow_id, workflow_name, kind, status, validation_enabled, stop_on_failure, run_range, cancel_requested, log, created_at, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			cancel_requested = EXCLUDED.cancel_requested,
			log = EXCLUDED.log,
			started_at = EXCLUDED.started_at,
			finished_at = EXCLUDED.finished_at
	`

	_, err = r.db.ExecContext(ctx, query,
		run.ID, run.WorkflowID, run.WorkflowName, run.Kind, run.Status,
		run.ValidationEnabled, run.StopOnFailure, runRange, run.CancelRequested,
		logLines, run.CreatedAt, run.StartedAt, run.FinishedAt)
	if err != nil {
		return persistence.NewStoreError("Save", "run", run.ID, err)
	}

	return nil
}

// ListByWorkflow returns the workflow's runs newest first, optionally
// filtered by kind.
func (r *RunRepository) ListByWorkflow(ctx context.Context, workflowID string, kind models.RunKind) ([]*models.Run, error) {
	query := `
		SELECT ` + runColumns + `
		FROM runs
		WHERE workflow_id = $1 AND ($2 = '' OR kind = $2)
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	runs := make([]*models.Run, 0)

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

func scanRun(row rowScanner) (*models.Run, error) {
	var (
		run      models.Run
		runRange []byte
		logLines []byte
	)

	err := row.Scan(
		&run.ID,
		&run.WorkflowID,
		&run.WorkflowName,
		&run.Kind,
		&run.Status,
		&run.ValidationEnabled,
		&run.StopOnFailure,
		&runRange,
		&run.CancelRequested,
		&logLines,
		&run.CreatedAt,
		&run.StartedAt,
		&run.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	if runRange != nil {
		run.Range = &models.RunRange{}
		if err := json.Unmarshal(runRange, run.Range); err != nil {
			return nil, fmt.Errorf("unmarshal run range: %w", err)
		}
	}

	if err := json.Unmarshal(logLines, &run.Log); err != nil {
		return nil, fmt.Errorf("unmarshal run log: %w", err)
	}

	return &run, nil
}
