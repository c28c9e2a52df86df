// Package main provides the event-driven run executor daemon.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/chainrun/chainrun/pkg/engine"
	"github.com/chainrun/chainrun/pkg/eventbus"
	"github.com/chainrun/chainrun/pkg/events"
	"github.com/chainrun/chainrun/pkg/persistence"
)

// Runner subscribes to run.requested events and drives the execution engine.
// A SIGINT or SIGTERM cancels the subscription context; the engine then
// stops in-flight runs at the next attempt boundary, and Start waits for
// them to record their terminal state before returning.
type Runner struct {
	id       string
	logger   *slog.Logger
	engine   *engine.Engine
	eventBus eventbus.EventBus
	inflight sync.WaitGroup
}

func NewRunner(
	id string,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		id:       id,
		logger:   logger.With("module", "chainrun-runner", "runner_id", id),
		engine:   engine.New(persistence, eventBus, engine.WithLogger(logger)),
		eventBus: eventBus,
	}
}

func (r *Runner) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.logger.InfoContext(ctx, "Starting runner subscriptions")

	err := r.eventBus.Handle(events.RunRequestedEvent, r.handleRunRequested)
	if err != nil {
		return err
	}

	err = r.eventBus.Subscribe(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	r.logger.InfoContext(ctx, "Runner started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	r.logger.InfoContext(ctx, "Shutting down runner...")
	cancel()
	r.inflight.Wait()

	return nil
}

func (r *Runner) handleRunRequested(ctx context.Context, event any) error {
	requestedEvent, ok := event.(*events.RunRequested)
	if !ok {
		r.logger.ErrorContext(ctx, "Invalid event type for RunRequested")

		return nil
	}

	logger := r.logger.With(
		"workflow_id", requestedEvent.WorkflowID,
		"run_id", requestedEvent.RunID,
		"event_id", requestedEvent.ID,
	)
	logger.InfoContext(ctx, "Processing run requested event")

	r.inflight.Add(1)
	defer r.inflight.Done()

	run, err := r.engine.ExecuteRun(ctx, requestedEvent.RunID)
	if err != nil {
		// Another runner already picked the run up; ack without retrying.
		if errors.Is(err, engine.ErrRunNotPending) {
			logger.WarnContext(ctx, "Run is not pending, skipping", "error", err)

			return nil
		}

		logger.ErrorContext(ctx, "Failed to execute run", "error", err)

		return err
	}

	logger.InfoContext(ctx, "Run finished", "status", run.Status)

	return nil
}
