package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/chainrun/chainrun/pkg/engine"
	"github.com/chainrun/chainrun/pkg/eventbus"
	"github.com/chainrun/chainrun/pkg/events"
	"github.com/chainrun/chainrun/pkg/models"
	"github.com/chainrun/chainrun/pkg/persistence"
)

// Run is the engine's call boundary: it creates runs, reports their state,
// and forwards cancellation and manual retries. Definition errors surface
// here before anything is persisted; execution failures become data on the
// run.
type Run struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	engine      *engine.Engine
	logger      *slog.Logger
}

// NewRun creates a run service. publisher may be nil when runs are executed
// in-process instead of by a runner daemon.
func NewRun(persistence persistence.Persistence, publisher eventbus.EventPublisher, eng *engine.Engine) *Run {
	return &Run{
		persistence: persistence,
		publisher:   publisher,
		engine:      eng,
		logger:      slog.Default().With("module", "run_service"),
	}
}

// RunStatus is a point-in-time snapshot of a run and its component rows,
// safe to poll.
type RunStatus struct {
	Run        *models.Run               `json:"run"`
	Components []*models.ComponentStatus `json:"components"`
}

// StartFullRun creates a pending run over every component of the workflow
// and asks a runner to pick it up.
func (s *Run) StartFullRun(ctx context.Context, workflowID string, validationEnabled bool) (*models.Run, error) {
	workflow, err := s.fetchRunnableWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	run := models.NewRun(s.newRunID(), workflow, models.RunKindFull, validationEnabled, nil)

	return s.requestRun(ctx, run)
}

// StartSubRun creates a pending run over a contiguous slice of the
// workflow. Range errors are definition errors: nothing is persisted. A
// vacuous range (start == end, both boundaries excluded) is finalized
// completed immediately with zero component rows.
func (s *Run) StartSubRun(ctx context.Context, workflowID, startID, endID string, includeStart, includeEnd, validationEnabled bool) (*models.Run, error) {
	workflow, err := s.fetchRunnableWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	resolved, err := engine.ResolveRange(workflow.OrderedComponents(), startID, endID, includeStart, includeEnd)
	if err != nil {
		return nil, err
	}

	runRange := &models.RunRange{
		StartID:      startID,
		EndID:        endID,
		IncludeStart: includeStart,
		IncludeEnd:   includeEnd,
	}

	run := models.NewRun(s.newRunID(), workflow, models.RunKindSub, validationEnabled, runRange)

	if len(resolved) == 0 {
		now := time.Now().UTC()
		run.Status = models.RunStatusCompleted
		run.StartedAt = &now
		run.FinishedAt = &now
		run.AppendLog("resolved range is empty, nothing to execute")

		if err := s.persistence.Runs().Save(ctx, run); err != nil {
			return nil, fmt.Errorf("save run: %w", err)
		}

		return run, nil
	}

	return s.requestRun(ctx, run)
}

// fetchRunnableWorkflow loads a workflow and checks it can be run at all.
func (s *Run) fetchRunnableWorkflow(ctx context.Context, workflowID string) (*models.Workflow, error) {
	workflow, err := s.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}

	if !workflow.Active {
		return nil, fmt.Errorf("workflow %s: %w", workflowID, ErrWorkflowInactive)
	}

	if len(workflow.Components) == 0 {
		return nil, fmt.Errorf("workflow %s: %w", workflowID, ErrEmptyWorkflow)
	}

	return workflow, nil
}

func (s *Run) newRunID() string {
	// V7 IDs sort by creation time, which keeps run listings cheap.
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}

	return id.String()
}

func (s *Run) requestRun(ctx context.Context, run *models.Run) (*models.Run, error) {
	if err := s.persistence.Runs().Save(ctx, run); err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}

	if s.publisher != nil {
		event := events.RunRequested{
			BaseEvent: events.NewBaseEvent(events.RunRequestedEvent, run.WorkflowID),
			RunID:     run.ID,
		}

		if err := s.publisher.Publish(ctx, run.WorkflowID, event); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish run request", "run_id", run.ID, "error", err)
		}
	}

	return run, nil
}

// Execute drives a pending run to completion in the calling goroutine. Used
// by the runner daemon and by one-shot CLI execution.
func (s *Run) Execute(ctx context.Context, runID string) (*models.Run, error) {
	return s.engine.ExecuteRun(ctx, runID)
}

// GetRunStatus returns a read-only snapshot of the run and its component
// statuses.
func (s *Run) GetRunStatus(ctx context.Context, runID string) (*RunStatus, error) {
	run, err := s.persistence.Runs().GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}

	if run == nil {
		return nil, ErrRunNotFound
	}

	statuses, err := s.persistence.Statuses().ListByRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	return &RunStatus{Run: run, Components: statuses}, nil
}

// ListRuns returns the workflow's runs newest first. kind filters to full or
// sub runs when non-empty.
func (s *Run) ListRuns(ctx context.Context, workflowID string, kind models.RunKind) ([]*models.Run, error) {
	return s.persistence.Runs().ListByWorkflow(ctx, workflowID, kind)
}

// Cancel flags a run for cancellation. The engine honors the flag between
// component attempts; an in-flight attempt finishes first.
func (s *Run) Cancel(ctx context.Context, runID string) (*models.Run, error) {
	run, err := s.persistence.Runs().GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}

	if run == nil {
		return nil, ErrRunNotFound
	}

	if run.Status.IsTerminal() {
		return nil, fmt.Errorf("run %s is %s: %w", runID, run.Status, ErrRunNotCancellable)
	}

	if !run.CancelRequested {
		run.CancelRequested = true
		run.AppendLog("cancellation requested")

		if err := s.persistence.Runs().Save(ctx, run); err != nil {
			return nil, fmt.Errorf("save run: %w", err)
		}
	}

	return run, nil
}

// RetryComponent performs one manual attempt of a failed or skipped
// component in a terminal run.
func (s *Run) RetryComponent(ctx context.Context, runID, componentID string) (*models.ComponentStatus, error) {
	return s.engine.RetryComponent(ctx, runID, componentID)
}
