// Package postgresql provides PostgreSQL persistence for workflows, runs,
// component statuses, and schedules.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // database/sql driver

	"github.com/chainrun/chainrun/pkg/persistence"
	"github.com/chainrun/chainrun/pkg/persistence/sqlbase"
)

// Persistence implements persistence.Persistence on PostgreSQL.
type Persistence struct {
	db           *sql.DB
	logger       *slog.Logger
	workflowRepo *WorkflowRepository
	runRepo      *RunRepository
	statusRepo   *ComponentStatusRepository
	scheduleRepo *ScheduleRepository
}

// NewPersistence connects to the database and runs pending migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:           database,
		logger:       logger,
		workflowRepo: &WorkflowRepository{db: database, logger: logger},
		runRepo:      &RunRepository{db: database, logger: logger},
		statusRepo:   &ComponentStatusRepository{db: database, logger: logger},
		scheduleRepo: &ScheduleRepository{db: database, logger: logger},
	}, nil
}

func (p *Persistence) Workflows() persistence.WorkflowRepository {
	return p.workflowRepo
}

func (p *Persistence) Runs() persistence.RunRepository {
	return p.runRepo
}

func (p *Persistence) Statuses() persistence.ComponentStatusRepository {
	return p.statusRepo
}

func (p *Persistence) Schedules() persistence.ScheduleRepository {
	return p.scheduleRepo
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}
