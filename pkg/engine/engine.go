// Package engine drives workflow runs: it sequences components, performs
// attempts through the component runner, consults the retry policy on
// failure, and records every outcome on the run's status rows. Definition
// errors surface to the caller; execution failures become data.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/chainrun/chainrun/pkg/connectors"
	"github.com/chainrun/chainrun/pkg/eventbus"
	"github.com/chainrun/chainrun/pkg/events"
	"github.com/chainrun/chainrun/pkg/models"
	"github.com/chainrun/chainrun/pkg/otelhelper"
	"github.com/chainrun/chainrun/pkg/persistence"
	"github.com/chainrun/chainrun/pkg/retry"
)

var (
	// ErrRunNotFound indicates the run does not exist.
	ErrRunNotFound = persistence.ErrRunNotFound

	// ErrRunNotPending indicates the run was already picked up or finished.
	ErrRunNotPending = errors.New("run is not pending")

	// ErrRunNotTerminal indicates a manual retry was requested while the run
	// is still in flight.
	ErrRunNotTerminal = errors.New("run is not terminal")

	// ErrNotRetryable indicates the targeted component did not fail, so
	// there is nothing to retry.
	ErrNotRetryable = errors.New("component is not in a retryable state")

	// ErrComponentNotInRun indicates the run has no status row for the
	// targeted component.
	ErrComponentNotInRun = errors.New("component has no status in this run")
)

// Engine executes runs against a frozen workflow snapshot. One engine serves
// many concurrent runs; a single run is strictly sequential.
type Engine struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	runner      *Runner
	logger      *slog.Logger
	sleep       func(ctx context.Context, delay time.Duration) error

	// Serializes manual retries per run.
	retryLocks sync.Map
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRunner replaces the component runner, mainly to inject connectors in
// tests or change the per-attempt timeout.
func WithRunner(runner *Runner) Option {
	return func(e *Engine) {
		e.runner = runner
	}
}

// WithSleep replaces the back-off wait, so tests do not spend wall-clock
// time.
func WithSleep(sleep func(ctx context.Context, delay time.Duration) error) Option {
	return func(e *Engine) {
		e.sleep = sleep
	}
}

// New creates an engine. publisher may be nil when lifecycle events are not
// wanted, e.g. one-shot CLI execution.
func New(persistence persistence.Persistence, publisher eventbus.EventPublisher, opts ...Option) *Engine {
	engine := &Engine{
		persistence: persistence,
		publisher:   publisher,
		runner:      NewRunner(DefaultAttemptTimeout),
		logger:      slog.Default().With("module", "engine"),
		sleep:       sleepContext,
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// sleepContext waits for the delay or the context, whichever ends first. The
// wait blocks only this run's goroutine.
func sleepContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *Engine) tracer() trace.Tracer {
	return otel.Tracer("github.com/chainrun/chainrun/pkg/engine")
}

// ExecuteRun drives one pending run to a terminal status. The run and its
// status rows are persisted after every transition so an operator can watch
// progress. Component failures never propagate as errors; only missing or
// non-pending runs and persistence faults do.
func (e *Engine) ExecuteRun(ctx context.Context, runID string) (*models.Run, error) {
	ctx, span := e.tracer().Start(ctx, "engine.run", trace.WithAttributes(
		attribute.String(otelhelper.RunIDKey, runID),
	))
	defer span.End()

	run, err := e.persistence.Runs().GetByID(ctx, runID)
	if err != nil {
		return nil, otelhelper.SetError(span, fmt.Errorf("fetch run %s: %w", runID, err))
	}

	if run == nil {
		return nil, otelhelper.SetError(span, fmt.Errorf("run %s: %w", runID, ErrRunNotFound))
	}

	if run.Status != models.RunStatusPending {
		return nil, otelhelper.SetError(span, fmt.Errorf("run %s is %s: %w", runID, run.Status, ErrRunNotPending))
	}

	workflow, err := e.persistence.Workflows().GetByID(ctx, run.WorkflowID)
	if err != nil {
		return nil, otelhelper.SetError(span, fmt.Errorf("fetch workflow %s: %w", run.WorkflowID, err))
	}

	if workflow == nil {
		return nil, otelhelper.SetError(span, fmt.Errorf("workflow %s: %w", run.WorkflowID, persistence.ErrWorkflowNotFound))
	}

	// Frozen snapshot: workflow edits after this point do not affect the run.
	sequence, err := e.resolveSequence(workflow, run)
	if err != nil {
		return nil, otelhelper.SetError(span, err)
	}

	logger := e.logger.With("run_id", run.ID, "workflow_id", workflow.ID, "kind", run.Kind)
	logger.InfoContext(ctx, "Starting run", "components", len(sequence))

	statuses, err := e.startRun(ctx, run, workflow, sequence)
	if err != nil {
		return nil, otelhelper.SetError(span, err)
	}

	e.publish(ctx, run.WorkflowID, events.RunStarted{
		BaseEvent:      events.NewBaseEvent(events.RunStartedEvent, run.WorkflowID),
		RunID:          run.ID,
		Kind:           run.Kind,
		ComponentCount: len(sequence),
	})

	// ValidationModeNone suppresses the pre-execution config check; it never
	// changes continuation behavior.
	validateConfigs := run.ValidationEnabled && workflow.ValidationMode != models.ValidationModeNone

	outcome := e.executeSequence(ctx, logger, run, sequence, statuses, validateConfigs)

	if err := e.finalizeRun(ctx, run, statuses, outcome); err != nil {
		return nil, otelhelper.SetError(span, err)
	}

	span.SetAttributes(attribute.String(otelhelper.RunStatusKey, string(run.Status)))
	logger.InfoContext(ctx, "Run finished", "status", run.Status)

	e.publish(ctx, run.WorkflowID, events.RunFinished{
		BaseEvent:          events.NewBaseEvent(events.RunFinishedEvent, run.WorkflowID),
		RunID:              run.ID,
		Status:             run.Status,
		DurationMs:         durationMs(run.StartedAt, run.FinishedAt),
		ComponentsExecuted: outcome.executed,
	})

	return run, nil
}

// resolveSequence returns the frozen, ordered component slice the run covers.
func (e *Engine) resolveSequence(workflow *models.Workflow, run *models.Run) ([]*models.Component, error) {
	ordered := workflow.OrderedComponents()

	if run.Kind == models.RunKindFull || run.Range == nil {
		return ordered, nil
	}

	return ResolveRange(ordered, run.Range.StartID, run.Range.EndID, run.Range.IncludeStart, run.Range.IncludeEnd)
}

// startRun marks the run running and creates a pending status row for every
// in-range component. Components outside the range never get a row.
func (e *Engine) startRun(ctx context.Context, run *models.Run, workflow *models.Workflow, sequence []*models.Component) ([]*models.ComponentStatus, error) {
	now := time.Now().UTC()
	run.Status = models.RunStatusRunning
	run.StartedAt = &now
	run.AppendLogf("run started over %d components of workflow %q", len(sequence), workflow.Name)

	if err := e.persistence.Runs().Save(ctx, run); err != nil {
		return nil, fmt.Errorf("save run %s: %w", run.ID, err)
	}

	statuses := make([]*models.ComponentStatus, 0, len(sequence))

	for _, component := range sequence {
		status := models.NewComponentStatus(statusID(run.ID, component.ID), run.ID, component)
		if err := e.persistence.Statuses().Save(ctx, status); err != nil {
			return nil, fmt.Errorf("save status for component %s: %w", component.ID, err)
		}

		statuses = append(statuses, status)
	}

	return statuses, nil
}

func statusID(runID, componentID string) string {
	return runID + ":" + componentID
}

// runOutcome accumulates what the sequence loop saw, for finalization.
type runOutcome struct {
	executed  int
	failed    bool
	stopped   bool
	cancelled bool
}

// executeSequence runs each in-range component in order. It applies the
// automatic retry loop per component and the run's continuation policy on
// unrecoverable failures. Cancellation is honored between attempts only; an
// in-flight attempt always returns before the run stops.
func (e *Engine) executeSequence(ctx context.Context, logger *slog.Logger, run *models.Run, sequence []*models.Component, statuses []*models.ComponentStatus, validateConfigs bool) runOutcome {
	var outcome runOutcome

	for i, component := range sequence {
		if outcome.stopped || outcome.cancelled {
			statuses[i].MarkSkipped()
			e.saveStatus(ctx, logger, statuses[i])

			continue
		}

		if e.cancelRequested(ctx, run) {
			outcome.cancelled = true

			run.AppendLog("run cancelled by request")
			logger.InfoContext(ctx, "Run cancelled", "component_id", component.ID)
			statuses[i].MarkSkipped()
			e.saveStatus(ctx, logger, statuses[i])

			continue
		}

		outcome.executed++

		completed := e.executeComponent(ctx, logger, run, component, statuses[i], validateConfigs)
		if completed {
			continue
		}

		outcome.failed = true

		// Deadline expiry during the back-off wait counts as cancellation,
		// same as an explicit context cancel.
		if ctx.Err() != nil {
			outcome.cancelled = true
			run.AppendLog("run cancelled by request")
		} else if run.StopOnFailure {
			outcome.stopped = true
			run.AppendLogf("stopping run: component %q failed and validation requires all components to succeed", component.Name)
		}
	}

	return outcome
}

// cancelRequested reports whether the run should stop before the next
// component: either the execution context ended or an operator set the
// cancel flag on the persisted run.
func (e *Engine) cancelRequested(ctx context.Context, run *models.Run) bool {
	if ctx.Err() != nil {
		return true
	}

	stored, err := e.persistence.Runs().GetByID(ctx, run.ID)
	if err != nil || stored == nil {
		return false
	}

	if stored.CancelRequested {
		run.CancelRequested = true
	}

	return run.CancelRequested
}

// executeComponent performs the attempt/retry loop for one component and
// persists every transition. Returns true when the component completed.
func (e *Engine) executeComponent(ctx context.Context, logger *slog.Logger, run *models.Run, component *models.Component, status *models.ComponentStatus, validateConfig bool) bool {
	ctx, span := e.tracer().Start(ctx, "engine.component", trace.WithAttributes(
		attribute.String(otelhelper.RunIDKey, run.ID),
		attribute.String(otelhelper.ComponentIDKey, component.ID),
		attribute.String(otelhelper.ComponentTypeKey, string(component.Type)),
	))
	defer span.End()

	status.MarkRunning()
	e.saveStatus(ctx, logger, status)
	run.AppendLogf("component %q (%s) started", component.Name, component.Type)

	if validateConfig {
		if err := connectors.ValidateConfig(component); err != nil {
			err = models.NewAttemptError(models.SignalPermanentConfig, err)
			status.MarkFailed(err, models.SignalPermanentConfig)
			e.saveStatus(ctx, logger, status)
			run.AppendLogf("component %q failed validation: %v", component.Name, err)
			e.saveRun(ctx, logger, run)
			e.publishComponentFinished(ctx, run, status)

			return false
		}
	}

	attempt := status.RetryCount + 1

	for {
		e.publish(ctx, run.WorkflowID, events.ComponentStarted{
			BaseEvent:     events.NewBaseEvent(events.ComponentStartedEvent, run.WorkflowID),
			RunID:         run.ID,
			ComponentID:   component.ID,
			ComponentName: component.Name,
			Attempt:       attempt,
		})

		result := e.runner.Attempt(ctx, component)

		if !result.Failed() {
			status.MarkCompleted()
			e.saveStatus(ctx, logger, status)
			run.AppendLogf("component %q completed", component.Name)
			e.saveRun(ctx, logger, run)
			e.publishComponentFinished(ctx, run, status)
			logger.InfoContext(ctx, "Component completed", "component_id", component.ID, "attempts", attempt)

			return true
		}

		decision := retry.Decide(component.Retry, attempt, result.Signal)
		if !decision.Retry {
			status.MarkFailed(result.Err, result.Signal)
			e.saveStatus(ctx, logger, status)
			run.AppendLogf("component %q failed (%s): %v", component.Name, result.Signal, result.Err)
			e.saveRun(ctx, logger, run)
			e.publishComponentFinished(ctx, run, status)
			logger.WarnContext(ctx, "Component failed",
				"component_id", component.ID, "attempts", attempt, "signal", result.Signal, "error", result.Err)

			return false
		}

		status.RetryCount++
		status.LastError = result.Err.Error()
		status.LastSignal = result.Signal
		e.saveStatus(ctx, logger, status)
		run.AppendLogf("component %q attempt %d failed (%s), retrying in %s: %v",
			component.Name, attempt, result.Signal, decision.Delay, result.Err)
		e.saveRun(ctx, logger, run)

		e.publish(ctx, run.WorkflowID, events.ComponentRetrying{
			BaseEvent:   events.NewBaseEvent(events.ComponentRetryingEvent, run.WorkflowID),
			RunID:       run.ID,
			ComponentID: component.ID,
			Attempt:     attempt,
			DelayMs:     decision.Delay.Milliseconds(),
			Signal:      result.Signal,
		})

		if err := e.sleep(ctx, decision.Delay); err != nil {
			// Cancelled mid back-off: the last attempt's failure stands.
			status.MarkFailed(result.Err, result.Signal)
			e.saveStatus(ctx, logger, status)
			run.AppendLogf("component %q retry abandoned, run cancelled", component.Name)
			e.saveRun(ctx, logger, run)
			e.publishComponentFinished(ctx, run, status)

			return false
		}

		attempt++
	}
}

// finalizeRun computes the terminal status from the status rows and the loop
// outcome, then persists the run.
func (e *Engine) finalizeRun(ctx context.Context, run *models.Run, statuses []*models.ComponentStatus, outcome runOutcome) error {
	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Status = terminalStatus(statuses, outcome)
	run.AppendLogf("run finished with status %s", run.Status)

	if err := e.persistence.Runs().Save(ctx, run); err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}

	return nil
}

// terminalStatus applies the lifecycle invariant: completed iff every
// in-range component completed; failed when the run stopped on an
// unrecoverable failure or was cancelled before anything completed;
// partially_completed for every finished mix of outcomes.
func terminalStatus(statuses []*models.ComponentStatus, outcome runOutcome) models.RunStatus {
	allCompleted := true
	anyCompleted := false

	for _, status := range statuses {
		switch status.State {
		case models.ComponentStateCompleted:
			anyCompleted = true
		default:
			allCompleted = false
		}
	}

	if allCompleted {
		return models.RunStatusCompleted
	}

	if outcome.cancelled {
		if anyCompleted {
			return models.RunStatusPartiallyCompleted
		}

		return models.RunStatusFailed
	}

	if outcome.stopped {
		return models.RunStatusFailed
	}

	return models.RunStatusPartiallyCompleted
}

// RetryComponent performs exactly one bare attempt of a failed or skipped
// component in a terminal run, outside the automatic retry loop. The
// existing status row is reused; retry_count keeps incrementing. Concurrent
// manual retries on the same run serialize.
func (e *Engine) RetryComponent(ctx context.Context, runID, componentID string) (*models.ComponentStatus, error) {
	lock, _ := e.retryLocks.LoadOrStore(runID, &sync.Mutex{})

	mutex, ok := lock.(*sync.Mutex)
	if !ok {
		return nil, errors.New("invalid retry lock")
	}

	mutex.Lock()
	defer mutex.Unlock()

	run, err := e.persistence.Runs().GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("fetch run %s: %w", runID, err)
	}

	if run == nil {
		return nil, fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
	}

	if !run.Status.IsTerminal() {
		return nil, fmt.Errorf("run %s is %s: %w", runID, run.Status, ErrRunNotTerminal)
	}

	status, err := e.persistence.Statuses().GetByRunAndComponent(ctx, runID, componentID)
	if err != nil {
		return nil, fmt.Errorf("fetch status for component %s: %w", componentID, err)
	}

	if status == nil {
		return nil, fmt.Errorf("component %s in run %s: %w", componentID, runID, ErrComponentNotInRun)
	}

	if !status.State.Retryable() {
		return nil, fmt.Errorf("component %s is %s: %w", componentID, status.State, ErrNotRetryable)
	}

	workflow, err := e.persistence.Workflows().GetByID(ctx, run.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("fetch workflow %s: %w", run.WorkflowID, err)
	}

	if workflow == nil {
		return nil, fmt.Errorf("workflow %s: %w", run.WorkflowID, persistence.ErrWorkflowNotFound)
	}

	component := workflow.ComponentByID(componentID)
	if component == nil {
		return nil, fmt.Errorf("component %s: %w", componentID, ErrComponentNotInRun)
	}

	logger := e.logger.With("run_id", run.ID, "component_id", componentID)
	logger.InfoContext(ctx, "Manual component retry")

	status.RetryCount++
	status.MarkRunning()

	if err := e.persistence.Statuses().Save(ctx, status); err != nil {
		return nil, fmt.Errorf("save status: %w", err)
	}

	run.AppendLogf("manual retry of component %q requested", component.Name)

	result := e.runner.Attempt(ctx, component)
	if result.Failed() {
		status.MarkFailed(result.Err, result.Signal)
		run.AppendLogf("manual retry of component %q failed (%s): %v", component.Name, result.Signal, result.Err)
	} else {
		status.MarkCompleted()
		run.AppendLogf("manual retry of component %q completed", component.Name)
	}

	if err := e.persistence.Statuses().Save(ctx, status); err != nil {
		return nil, fmt.Errorf("save status: %w", err)
	}

	if err := e.recomputeRunStatus(ctx, run); err != nil {
		return nil, err
	}

	e.publishComponentFinished(ctx, run, status)

	return status, nil
}

// recomputeRunStatus re-derives the terminal status of a run after a manual
// retry changed a component outcome. A run whose sole failure was just fixed
// transitions to completed.
func (e *Engine) recomputeRunStatus(ctx context.Context, run *models.Run) error {
	statuses, err := e.persistence.Statuses().ListByRun(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("list statuses for run %s: %w", run.ID, err)
	}

	allCompleted := true
	anyFailed := false

	for _, status := range statuses {
		if status.State != models.ComponentStateCompleted {
			allCompleted = false
		}

		if status.State == models.ComponentStateFailed {
			anyFailed = true
		}
	}

	previous := run.Status

	switch {
	case allCompleted:
		run.Status = models.RunStatusCompleted
	case anyFailed && run.StopOnFailure:
		run.Status = models.RunStatusFailed
	default:
		run.Status = models.RunStatusPartiallyCompleted
	}

	if run.Status != previous {
		run.AppendLogf("run status recomputed: %s -> %s", previous, run.Status)
	}

	if err := e.persistence.Runs().Save(ctx, run); err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}

	return nil
}

func (e *Engine) saveStatus(ctx context.Context, logger *slog.Logger, status *models.ComponentStatus) {
	if err := e.persistence.Statuses().Save(ctx, status); err != nil {
		logger.ErrorContext(ctx, "Failed to persist component status",
			"component_id", status.ComponentID, "error", err)
	}
}

func (e *Engine) saveRun(ctx context.Context, logger *slog.Logger, run *models.Run) {
	// An operator may have set the cancel flag on the stored run since it was
	// loaded; never write a stale false over it.
	if !run.CancelRequested {
		if stored, err := e.persistence.Runs().GetByID(ctx, run.ID); err == nil && stored != nil && stored.CancelRequested {
			run.CancelRequested = true
		}
	}

	if err := e.persistence.Runs().Save(ctx, run); err != nil {
		logger.ErrorContext(ctx, "Failed to persist run", "error", err)
	}
}

func (e *Engine) publish(ctx context.Context, workflowID string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, workflowID, event); err != nil {
		e.logger.WarnContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

func (e *Engine) publishComponentFinished(ctx context.Context, run *models.Run, status *models.ComponentStatus) {
	e.publish(ctx, run.WorkflowID, events.ComponentFinished{
		BaseEvent:   events.NewBaseEvent(events.ComponentFinishedEvent, run.WorkflowID),
		RunID:       run.ID,
		ComponentID: status.ComponentID,
		State:       status.State,
		Error:       status.LastError,
		DurationMs:  durationMs(status.StartedAt, status.FinishedAt),
	})
}

func durationMs(start, end *time.Time) int64 {
	if start == nil || end == nil {
		return 0
	}

	return end.Sub(*start).Milliseconds()
}
