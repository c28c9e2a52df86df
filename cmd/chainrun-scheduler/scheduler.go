// Package main provides the cron schedule poller that starts recurring runs.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chainrun/chainrun/pkg/eventbus"
	"github.com/chainrun/chainrun/pkg/models"
	"github.com/chainrun/chainrun/pkg/persistence"
	"github.com/chainrun/chainrun/pkg/services"
)

// Scheduler polls due schedules and starts a full run for each. NextDueAt is
// advanced before the run is requested, so a schedule that fails to start is
// retried on its next cron slot rather than every poll.
type Scheduler struct {
	logger          *slog.Logger
	runService      *services.Run
	scheduleService *services.Schedule
	pollInterval    time.Duration
}

func NewScheduler(
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
	pollInterval time.Duration,
) *Scheduler {
	return &Scheduler{
		logger:          logger.With("module", "chainrun-scheduler"),
		runService:      services.NewRun(persistence, eventBus, nil),
		scheduleService: services.NewSchedule(persistence),
		pollInterval:    pollInterval,
	}
}

// Start runs the poll loop until a SIGINT or SIGTERM arrives.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.logger.InfoContext(ctx, "Starting scheduler", "poll_interval", s.pollInterval)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		s.logger.InfoContext(ctx, "Received signal, shutting down...", "signal", sig)
		cancel()
	}()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "Scheduler stopped")

			return
		case now := <-ticker.C:
			s.poll(ctx, now.UTC())
		}
	}
}

func (s *Scheduler) poll(ctx context.Context, now time.Time) {
	due, err := s.scheduleService.ListDue(ctx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list due schedules", "error", err)

		return
	}

	for _, schedule := range due {
		s.trigger(ctx, schedule)
	}
}

func (s *Scheduler) trigger(ctx context.Context, schedule *models.Schedule) {
	logger := s.logger.With("schedule_id", schedule.ID, "workflow_id", schedule.WorkflowID)

	if err := s.scheduleService.Advance(ctx, schedule); err != nil {
		logger.ErrorContext(ctx, "Failed to advance schedule", "error", err)

		return
	}

	run, err := s.runService.StartFullRun(ctx, schedule.WorkflowID, schedule.ValidationEnabled)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to start scheduled run", "error", err)

		return
	}

	logger.InfoContext(ctx, "Started scheduled run", "run_id", run.ID, "next_due_at", schedule.NextDueAt)
}
