package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chainrun/chainrun/pkg/models"
	"github.com/chainrun/chainrun/pkg/persistence"
)

// ComponentStatusRepository handles per-run component status rows.
type ComponentStatusRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const statusColumns = `
	id
  , run_id
  , component_id
  , component_name
  , component_type
  , execution_order
  , state
  , retry_count
  , last_error
  , last_signal
  , started_at
  , finished_at
  , created_at
  , updated_at
`

// GetByRunAndComponent retrieves one status row. Returns (nil, nil) when
// absent.
func (r *ComponentStatusRepository) GetByRunAndComponent(ctx context.Context, runID, componentID string) (*models.ComponentStatus, error) {
	query := `
		SELECT ` + statusColumns + `
		FROM component_statuses
		WHERE run_id = $1 AND component_id = $2
	`

	status, err := scanStatus(r.db.QueryRowContext(ctx, query, runID, componentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, persistence.NewStoreError("GetByRunAndComponent", "component status", componentID, err)
	}

	return status, nil
}

// Save upserts a status row.
func (r *ComponentStatusRepository) Save(ctx context.Context, status *models.ComponentStatus) error {
	query := `
		INSERT INTO component_statuses (id, run_id, component_id, component_name, component_type, execution_order, state, retry_count, last_error, last_signal, started_at, finished_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (run_id, component_id) DO UPDATE SET
			state = EXCLUDED.state,
			retry_count = EXCLUDED.retry_count,
			last_error = EXCLUDED.last_error,
			last_signal = EXCLUDED.last_signal,
			started_at = EXCLUDED.started_at,
			finished_at = EXCLUDED.finished_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		status.ID, status.RunID, status.ComponentID, status.ComponentName,
		status.ComponentType, status.Order, status.State, status.RetryCount,
		status.LastError, status.LastSignal, status.StartedAt, status.FinishedAt,
		status.CreatedAt, status.UpdatedAt)
	if err != nil {
		return persistence.NewStoreError("Save", "component status", status.ComponentID, err)
	}

	return nil
}

// ListByRun returns the run's status rows in component order.
func (r *ComponentStatusRepository) ListByRun(ctx context.Context, runID string) ([]*models.ComponentStatus, error) {
	query := `
		SELECT ` + statusColumns + `
		FROM component_statuses
		WHERE run_id = $1
		ORDER BY execution_order ASC
	`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query component statuses: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	statuses := make([]*models.ComponentStatus, 0)

	for rows.Next() {
		status, err := scanStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan component status: %w", err)
		}

		statuses = append(statuses, status)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating component statuses: %w", err)
	}

	return statuses, nil
}

func scanStatus(row rowScanner) (*models.ComponentStatus, error) {
	var status models.ComponentStatus

	err := row.Scan(
		&status.ID,
		&status.RunID,
		&status.ComponentID,
		&status.ComponentName,
		&status.ComponentType,
		&status.Order,
		&status.State,
		&status.RetryCount,
		&status.LastError,
		&status.LastSignal,
		&status.StartedAt,
		&status.FinishedAt,
		&status.CreatedAt,
		&status.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &status, nil
}
