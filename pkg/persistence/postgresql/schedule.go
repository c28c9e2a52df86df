package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chainrun/chainrun/pkg/models"
	"github.com/chainrun/chainrun/pkg/persistence"
)

// ScheduleRepository handles schedule-related database operations.
type ScheduleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const scheduleColumns = `
	id
  , workflow_id
  , cron_expression
  , validation_enabled
  , next_due_at
  , active
  , created_at
  , updated_at
`

// List returns every schedule, oldest first.
func (r *ScheduleRepository) List(ctx context.Context) ([]*models.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedules
		ORDER BY created_at ASC
	`

	return r.queryMany(ctx, query)
}

// ListDue returns active schedules whose next execution time has passed.
// The next_due_at index keeps the poll cheap.
func (r *ScheduleRepository) ListDue(ctx context.Context, now time.Time) ([]*models.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedules
		WHERE active AND next_due_at <= $1
		ORDER BY next_due_at ASC
	`

	return r.queryMany(ctx, query, now)
}

func (r *ScheduleRepository) queryMany(ctx context.Context, query string, args ...any) ([]*models.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	schedules := make([]*models.Schedule, 0)

	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}

		schedules = append(schedules, schedule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedules: %w", err)
	}

	return schedules, nil
}

// GetByID retrieves a schedule by its ID. Returns (nil, nil) when absent.
func (r *ScheduleRepository) GetByID(ctx context.Context, id string) (*models.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedules
		WHERE id = $1
	`

	schedule, err := scanSchedule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, persistence.NewStoreError("GetByID", "schedule", id, err)
	}

	return schedule, nil
}

// Save upserts a schedule.
func (r *ScheduleRepository) Save(ctx context.Context, schedule *models.Schedule) error {
	query := `
		INSERT INTO schedules (id, workflow_id, cron_expression, validation_enabled, next_due_at, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			cron_expression = EXCLUDED.cron_expression,
			validation_enabled = EXCLUDED.validation_enabled,
			next_due_at = EXCLUDED.next_due_at,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		schedule.ID, schedule.WorkflowID, schedule.CronExpression,
		schedule.ValidationEnabled, schedule.NextDueAt, schedule.Active,
		schedule.CreatedAt, schedule.UpdatedAt)
	if err != nil {
		return persistence.NewStoreError("Save", "schedule", schedule.ID, err)
	}

	return nil
}

// Delete removes a schedule.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM schedules WHERE id = $1", id)
	if err != nil {
		return persistence.NewStoreError("Delete", "schedule", id, err)
	}

	return nil
}

func scanSchedule(row rowScanner) (*models.Schedule, error) {
	var schedule models.Schedule

	err := row.Scan(
		&schedule.ID,
		&schedule.WorkflowID,
		&schedule.CronExpression,
		&schedule.ValidationEnabled,
		&schedule.NextDueAt,
		&schedule.Active,
		&schedule.CreatedAt,
		&schedule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &schedule, nil
}
