package models

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chainWorkflow() *Workflow {
	return &Workflow{
		ID:             "wf-1",
		Name:           "order ingestion",
		ValidationMode: ValidationModeRequired,
		Components: []*Component{
			{ID: "comp-a", Name: "orders topic", Type: ComponentTypeStreamTopic, Order: 1},
			{ID: "comp-b", Name: "orders queue", Type: ComponentTypeMessageQueue, Order: 2},
			{ID: "comp-c", Name: "orders db", Type: ComponentTypeDatabase, Order: 3},
		},
	}
}

func TestWorkflow_Validate_ValidChain(t *testing.T) {
	workflow := chainWorkflow()
	workflow.Connections = []*Connection{
		{ID: "conn-1", Type: ConnectionTopicToQueue, SourceID: "comp-a", TargetID: "comp-b"},
		{ID: "conn-2", Type: ConnectionDBOperation, SourceID: "comp-c", TargetID: "comp-b"},
	}

	assert.NoError(t, workflow.Validate())
}

func TestWorkflow_Validate_Rejections(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Workflow)
	}{
		{
			name: "unknown validation mode",
			mutate: func(w *Workflow) {
				w.ValidationMode = "strict"
			},
		},
		{
			name: "duplicate component order",
			mutate: func(w *Workflow) {
				w.Components[1].Order = w.Components[0].Order
			},
		},
		{
			name: "component orders not starting at one",
			mutate: func(w *Workflow) {
				w.Components[0].Order = 0
			},
		},
		{
			name: "gap in component orders",
			mutate: func(w *Workflow) {
				w.Components[2].Order = 7
			},
		},
		{
			name: "duplicate component id",
			mutate: func(w *Workflow) {
				w.Components[2].ID = w.Components[0].ID
			},
		},
		{
			name: "unknown component type",
			mutate: func(w *Workflow) {
				w.Components[0].Type = "ftp-server"
			},
		},
		{
			name: "connection with missing endpoint",
			mutate: func(w *Workflow) {
				w.Connections = []*Connection{
					{ID: "conn-1", Type: ConnectionTopicToQueue, SourceID: "comp-a", TargetID: "ghost"},
				}
			},
		},
		{
			name: "connection type mismatching endpoints",
			mutate: func(w *Workflow) {
				w.Connections = []*Connection{
					{ID: "conn-1", Type: ConnectionQueueToQueue, SourceID: "comp-a", TargetID: "comp-b"},
				}
			},
		},
		{
			name: "db_operation not starting at a database",
			mutate: func(w *Workflow) {
				w.Connections = []*Connection{
					{ID: "conn-1", Type: ConnectionDBOperation, SourceID: "comp-a", TargetID: "comp-c"},
				}
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			workflow := chainWorkflow()
			tc.mutate(workflow)

			err := workflow.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidWorkflow)
		})
	}
}

func TestWorkflow_OrderedComponents(t *testing.T) {
	workflow := chainWorkflow()
	workflow.Components[0].Order = 30
	workflow.Components[1].Order = 10
	workflow.Components[2].Order = 20

	ordered := workflow.OrderedComponents()

	require.Len(t, ordered, 3)
	assert.Equal(t, "comp-b", ordered[0].ID)
	assert.Equal(t, "comp-c", ordered[1].ID)
	assert.Equal(t, "comp-a", ordered[2].ID)
	// The workflow's own slice keeps its declaration order.
	assert.Equal(t, "comp-a", workflow.Components[0].ID)
}

func TestRetryStrategy_Validate(t *testing.T) {
	testCases := []struct {
		name     string
		strategy RetryStrategy
		wantErr  bool
	}{
		{
			name:     "fixed with base delay",
			strategy: RetryStrategy{Type: StrategyFixed, MaxRetries: 3, BaseDelaySeconds: 5},
		},
		{
			name:     "fixed without base delay",
			strategy: RetryStrategy{Type: StrategyFixed, MaxRetries: 3},
			wantErr:  true,
		},
		{
			name:     "exponential with ceiling",
			strategy: RetryStrategy{Type: StrategyExponential, MaxRetries: 5, BaseDelaySeconds: 2, MaxDelaySeconds: 60},
		},
		{
			name:     "custom with one delay per retry",
			strategy: RetryStrategy{Type: StrategyCustom, MaxRetries: 3, Delays: []float64{5, 10, 20}},
		},
		{
			name:     "custom missing delays",
			strategy: RetryStrategy{Type: StrategyCustom, MaxRetries: 3, Delays: []float64{5}},
			wantErr:  true,
		},
		{
			name: "custom with unknown signal",
			strategy: RetryStrategy{
				Type: StrategyCustom, MaxRetries: 1, Delays: []float64{5},
				RetryOn: []FailureSignal{"flaky"},
			},
			wantErr: true,
		},
		{
			name:     "unknown strategy type",
			strategy: RetryStrategy{Type: "linear", MaxRetries: 1, BaseDelaySeconds: 1},
			wantErr:  true,
		},
		{
			name:     "negative max retries",
			strategy: RetryStrategy{Type: StrategyFixed, MaxRetries: -1, BaseDelaySeconds: 5},
			wantErr:  true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.strategy.Validate()
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidRetryStrategy)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRetryStrategy_ApplyDefaults(t *testing.T) {
	strategy := &RetryStrategy{Type: StrategyFixed}
	strategy.ApplyDefaults()

	assert.Equal(t, DefaultMaxRetries, strategy.MaxRetries)
	assert.InEpsilon(t, DefaultBaseDelaySeconds, strategy.BaseDelaySeconds, 0.0001)

	custom := &RetryStrategy{Type: StrategyCustom, Delays: []float64{1, 2, 3}}
	custom.ApplyDefaults()

	assert.Equal(t, DefaultMaxRetries, custom.MaxRetries)
	assert.Zero(t, custom.BaseDelaySeconds) // Custom schedules come from Delays
}

func TestComponent_MaxAttempts(t *testing.T) {
	bare := &Component{ID: "c", Name: "c", Type: ComponentTypeAPI}
	assert.Equal(t, 1, bare.MaxAttempts())

	retried := &Component{
		ID: "c", Name: "c", Type: ComponentTypeAPI,
		Retry: &RetryStrategy{Type: StrategyFixed, MaxRetries: 3, BaseDelaySeconds: 5},
	}
	assert.Equal(t, 4, retried.MaxAttempts())
}

func TestFailureSignal_Classification(t *testing.T) {
	assert.True(t, SignalPermanentConfig.IsPermanent())
	assert.True(t, SignalPermanentData.IsPermanent())
	assert.True(t, SignalTransientConnectivity.IsTransient())
	assert.True(t, SignalTransientRemoteError.IsTransient())
	assert.False(t, FailureSignal("flaky").Valid())
}

func TestSignalOf(t *testing.T) {
	classified := NewAttemptError(SignalPermanentData, errors.New("schema rejected"))
	assert.Equal(t, SignalPermanentData, SignalOf(classified))

	wrapped := NewAttemptError(SignalPermanentConfig, errors.New("missing broker list"))
	assert.Equal(t, SignalPermanentConfig, SignalOf(wrapped))
	assert.ErrorIs(t, wrapped, wrapped.Err)

	// Deadline expiry counts as a connectivity problem.
	assert.Equal(t, SignalTransientConnectivity, SignalOf(context.DeadlineExceeded))

	// Unclassified errors stay retryable.
	assert.Equal(t, SignalTransientRemoteError, SignalOf(errors.New("boom")))
}

func TestNewRun_StopOnFailurePolicy(t *testing.T) {
	testCases := []struct {
		name              string
		mode              ValidationMode
		kind              RunKind
		validationEnabled bool
		wantStop          bool
	}{
		{name: "full run, required mode, validation on", mode: ValidationModeRequired, kind: RunKindFull, validationEnabled: true, wantStop: true},
		{name: "full run, required mode, validation off", mode: ValidationModeRequired, kind: RunKindFull, validationEnabled: false, wantStop: false},
		{name: "full run, optional mode, validation on", mode: ValidationModeOptional, kind: RunKindFull, validationEnabled: true, wantStop: false},
		{name: "full run, none mode, validation on", mode: ValidationModeNone, kind: RunKindFull, validationEnabled: true, wantStop: false},
		{name: "sub run, optional mode, validation on", mode: ValidationModeOptional, kind: RunKindSub, validationEnabled: true, wantStop: true},
		{name: "sub run, required mode, validation off", mode: ValidationModeRequired, kind: RunKindSub, validationEnabled: false, wantStop: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			workflow := chainWorkflow()
			workflow.ValidationMode = tc.mode

			run := NewRun("run-1", workflow, tc.kind, tc.validationEnabled, nil)

			assert.Equal(t, RunStatusPending, run.Status)
			assert.Equal(t, tc.wantStop, run.StopOnFailure)
			assert.Equal(t, workflow.ID, run.WorkflowID)
			assert.Equal(t, workflow.Name, run.WorkflowName)
		})
	}
}

func TestRun_AppendLog(t *testing.T) {
	run := NewRun("run-1", chainWorkflow(), RunKindFull, true, nil)
	run.AppendLog("run started")
	run.AppendLogf("component %s completed", "orders topic")

	require.Len(t, run.Log, 2)
	assert.Regexp(t, `^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] run started$`, run.Log[0])
	assert.Regexp(t, `^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] component orders topic completed$`, run.Log[1])
}

func TestRunStatus_IsTerminal(t *testing.T) {
	assert.False(t, RunStatusPending.IsTerminal())
	assert.False(t, RunStatusRunning.IsTerminal())
	assert.True(t, RunStatusCompleted.IsTerminal())
	assert.True(t, RunStatusFailed.IsTerminal())
	assert.True(t, RunStatusPartiallyCompleted.IsTerminal())
}

func TestComponentStatus_Transitions(t *testing.T) {
	component := &Component{ID: "comp-a", Name: "orders topic", Type: ComponentTypeStreamTopic, Order: 7}
	status := NewComponentStatus("cs-1", "run-1", component)

	assert.Equal(t, ComponentStatePending, status.State)
	assert.Equal(t, "orders topic", status.ComponentName)
	assert.Equal(t, ComponentTypeStreamTopic, status.ComponentType)
	assert.Equal(t, 7, status.Order)

	status.MarkRunning()
	assert.Equal(t, ComponentStateRunning, status.State)
	require.NotNil(t, status.StartedAt)

	status.MarkFailed(errors.New("broker unreachable"), SignalTransientConnectivity)
	assert.Equal(t, ComponentStateFailed, status.State)
	assert.Equal(t, "broker unreachable", status.LastError)
	assert.Equal(t, SignalTransientConnectivity, status.LastSignal)
	require.NotNil(t, status.FinishedAt)
	assert.True(t, status.State.Retryable())

	status.MarkCompleted()
	assert.Equal(t, ComponentStateCompleted, status.State)
	assert.Empty(t, status.LastError)
	assert.Empty(t, status.LastSignal)
	assert.False(t, status.State.Retryable())
}

func TestComponentState_Retryable(t *testing.T) {
	assert.True(t, ComponentStateFailed.Retryable())
	assert.True(t, ComponentStateSkipped.Retryable())
	assert.False(t, ComponentStateCompleted.Retryable())
	assert.False(t, ComponentStatePending.Retryable())
	assert.False(t, ComponentStateRunning.Retryable())
}

func TestSchedule_NewScheduleCalculatesNextDueAt(t *testing.T) {
	schedule, err := NewSchedule("sched-1", "wf-1", "*/5 * * * *", true)
	require.NoError(t, err)

	assert.True(t, schedule.Active)
	assert.True(t, schedule.ValidationEnabled)
	assert.True(t, schedule.NextDueAt.After(time.Now().UTC().Add(-time.Minute)))
	assert.NoError(t, schedule.Validate())
}

func TestSchedule_InvalidCronExpression(t *testing.T) {
	_, err := NewSchedule("sched-1", "wf-1", "not a cron", false)
	assert.Error(t, err)
}

func TestSchedule_IsDue(t *testing.T) {
	schedule, err := NewSchedule("sched-1", "wf-1", "* * * * *", false)
	require.NoError(t, err)

	assert.False(t, schedule.IsDue(time.Now().UTC().Add(-time.Hour)))
	assert.True(t, schedule.IsDue(schedule.NextDueAt.Add(time.Second)))

	schedule.Active = false
	assert.False(t, schedule.IsDue(schedule.NextDueAt.Add(time.Second)))
}
