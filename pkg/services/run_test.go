package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chainrun/chainrun/pkg/engine"
	"github.com/chainrun/chainrun/pkg/eventbus"
	"github.com/chainrun/chainrun/pkg/events"
	"github.com/chainrun/chainrun/pkg/mocks"
	"github.com/chainrun/chainrun/pkg/models"
	"github.com/chainrun/chainrun/pkg/persistence"
	"github.com/chainrun/chainrun/pkg/persistence/file"
	"github.com/chainrun/chainrun/pkg/testutil"
)

func newRunService(t *testing.T) (*Run, persistence.Persistence, *mocks.MockEventBus) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	bus := &mocks.MockEventBus{}

	return NewRun(store, bus, nil), store, bus
}

func saveWorkflow(t *testing.T, store persistence.Persistence, workflow *models.Workflow) {
	t.Helper()
	require.NoError(t, store.Workflows().Save(t.Context(), workflow))
}

func isRunRequested(runID string) any {
	return mock.MatchedBy(func(event eventbus.Event) bool {
		requested, ok := event.(events.RunRequested)

		return ok && requested.RunID == runID
	})
}

func TestStartFullRun(t *testing.T) {
	service, store, bus := newRunService(t)
	workflow := testutil.CreateTestChain(3)
	saveWorkflow(t, store, workflow)

	bus.On("Publish", mock.Anything, workflow.ID, mock.Anything).Return(nil)

	run, err := service.StartFullRun(t.Context(), workflow.ID, false)
	require.NoError(t, err)

	assert.Equal(t, models.RunKindFull, run.Kind)
	assert.Equal(t, models.RunStatusPending, run.Status)
	assert.False(t, run.StopOnFailure)
	assert.Nil(t, run.Range)

	stored, err := store.Runs().GetByID(t.Context(), run.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)

	bus.AssertCalled(t, "Publish", mock.Anything, workflow.ID, isRunRequested(run.ID))
}

func TestStartFullRun_StopOnFailureFrozenAtCreation(t *testing.T) {
	service, store, bus := newRunService(t)
	workflow := testutil.CreateTestChain(1)
	workflow.ValidationMode = models.ValidationModeRequired
	saveWorkflow(t, store, workflow)

	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	run, err := service.StartFullRun(t.Context(), workflow.ID, true)
	require.NoError(t, err)
	assert.True(t, run.StopOnFailure)

	run, err = service.StartFullRun(t.Context(), workflow.ID, false)
	require.NoError(t, err)
	assert.False(t, run.StopOnFailure, "required mode alone does not stop without validation enabled")
}

func TestStartFullRun_WorkflowNotFound(t *testing.T) {
	service, _, _ := newRunService(t)

	_, err := service.StartFullRun(t.Context(), "missing", false)
	require.ErrorIs(t, err, ErrWorkflowNotFound)
	assert.True(t, IsNotFoundError(err))
}

func TestStartFullRun_EmptyWorkflow(t *testing.T) {
	service, store, _ := newRunService(t)
	workflow := testutil.CreateTestWorkflow()
	saveWorkflow(t, store, workflow)

	_, err := service.StartFullRun(t.Context(), workflow.ID, false)
	require.ErrorIs(t, err, ErrEmptyWorkflow)
	assert.True(t, IsValidationError(err))
}

func TestStartFullRun_InactiveWorkflow(t *testing.T) {
	service, store, bus := newRunService(t)
	workflow := testutil.CreateTestChain(1)
	workflow.Active = false
	saveWorkflow(t, store, workflow)

	_, err := service.StartFullRun(t.Context(), workflow.ID, false)
	require.ErrorIs(t, err, ErrWorkflowInactive)
	assert.True(t, IsValidationError(err))

	_, err = service.StartSubRun(t.Context(), workflow.ID, "c0", "c0", true, true, false)
	require.ErrorIs(t, err, ErrWorkflowInactive)

	bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestStartFullRun_PublishFailureDoesNotFailStart(t *testing.T) {
	service, store, bus := newRunService(t)
	workflow := testutil.CreateTestChain(1)
	saveWorkflow(t, store, workflow)

	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

	run, err := service.StartFullRun(t.Context(), workflow.ID, false)
	require.NoError(t, err, "the run is persisted either way; a runner can still find it")
	assert.Equal(t, models.RunStatusPending, run.Status)
}

func TestStartSubRun(t *testing.T) {
	service, store, bus := newRunService(t)
	workflow := testutil.CreateTestChain(4)
	saveWorkflow(t, store, workflow)

	bus.On("Publish", mock.Anything, workflow.ID, mock.Anything).Return(nil)

	run, err := service.StartSubRun(t.Context(), workflow.ID, "c1", "c3", true, false, true)
	require.NoError(t, err)

	assert.Equal(t, models.RunKindSub, run.Kind)
	assert.Equal(t, models.RunStatusPending, run.Status)
	assert.True(t, run.StopOnFailure, "sub-range runs stop on failure when validation is enabled")
	require.NotNil(t, run.Range)
	assert.Equal(t, "c1", run.Range.StartID)
	assert.Equal(t, "c3", run.Range.EndID)
	assert.True(t, run.Range.IncludeStart)
	assert.False(t, run.Range.IncludeEnd)

	bus.AssertCalled(t, "Publish", mock.Anything, workflow.ID, isRunRequested(run.ID))
}

func TestStartSubRun_VacuousRangeCompletesImmediately(t *testing.T) {
	service, store, bus := newRunService(t)
	workflow := testutil.CreateTestChain(3)
	saveWorkflow(t, store, workflow)

	run, err := service.StartSubRun(t.Context(), workflow.ID, "c1", "c1", false, false, false)
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusCompleted, run.Status)
	require.NotNil(t, run.StartedAt)
	require.NotNil(t, run.FinishedAt)
	assert.NotEmpty(t, run.Log)

	stored, err := store.Runs().GetByID(t.Context(), run.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, models.RunStatusCompleted, stored.Status)

	bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestStartSubRun_RangeErrorsPersistNothing(t *testing.T) {
	service, store, _ := newRunService(t)
	workflow := testutil.CreateTestChain(3)
	saveWorkflow(t, store, workflow)

	_, err := service.StartSubRun(t.Context(), workflow.ID, "c2", "c0", true, true, false)
	require.ErrorIs(t, err, engine.ErrRangeInverted)
	assert.True(t, IsValidationError(err))

	_, err = service.StartSubRun(t.Context(), workflow.ID, "missing", "c2", true, true, false)
	require.ErrorIs(t, err, engine.ErrRangeComponentNotFound)
	assert.True(t, IsNotFoundError(err))

	runs, err := store.Runs().ListByWorkflow(t.Context(), workflow.ID, "")
	require.NoError(t, err)
	assert.Empty(t, runs, "definition errors must not leave runs behind")
}

func TestGetRunStatus(t *testing.T) {
	service, store, _ := newRunService(t)
	workflow := testutil.CreateTestChain(2)
	saveWorkflow(t, store, workflow)

	run := models.NewRun("run-1", workflow, models.RunKindFull, false, nil)
	require.NoError(t, store.Runs().Save(t.Context(), run))

	for _, component := range workflow.Components {
		status := models.NewComponentStatus(run.ID+":"+component.ID, run.ID, component)
		require.NoError(t, store.Statuses().Save(t.Context(), status))
	}

	snapshot, err := service.GetRunStatus(t.Context(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, snapshot.Run.ID)
	require.Len(t, snapshot.Components, 2)
	assert.Equal(t, "c0", snapshot.Components[0].ComponentID)

	_, err = service.GetRunStatus(t.Context(), "missing")
	require.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRuns_FiltersByKind(t *testing.T) {
	service, store, _ := newRunService(t)
	workflow := testutil.CreateTestChain(1)
	saveWorkflow(t, store, workflow)

	full := models.NewRun("run-full", workflow, models.RunKindFull, false, nil)
	full.CreatedAt = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, store.Runs().Save(t.Context(), full))

	sub := models.NewRun("run-sub", workflow, models.RunKindSub, false,
		&models.RunRange{StartID: "c0", EndID: "c0", IncludeStart: true, IncludeEnd: true})
	require.NoError(t, store.Runs().Save(t.Context(), sub))

	runs, err := service.ListRuns(t.Context(), workflow.ID, "")
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	runs, err = service.ListRuns(t.Context(), workflow.ID, models.RunKindSub)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-sub", runs[0].ID)
}

func TestCancel(t *testing.T) {
	service, store, _ := newRunService(t)
	workflow := testutil.CreateTestChain(1)
	saveWorkflow(t, store, workflow)

	run := models.NewRun("run-1", workflow, models.RunKindFull, false, nil)
	require.NoError(t, store.Runs().Save(t.Context(), run))

	cancelled, err := service.Cancel(t.Context(), run.ID)
	require.NoError(t, err)
	assert.True(t, cancelled.CancelRequested)
	require.Len(t, cancelled.Log, 1)

	// Idempotent: a second cancel neither errors nor appends a second line.
	cancelled, err = service.Cancel(t.Context(), run.ID)
	require.NoError(t, err)
	assert.True(t, cancelled.CancelRequested)
	assert.Len(t, cancelled.Log, 1)
}

func TestCancel_TerminalRun(t *testing.T) {
	service, store, _ := newRunService(t)
	workflow := testutil.CreateTestChain(1)
	saveWorkflow(t, store, workflow)

	run := models.NewRun("run-1", workflow, models.RunKindFull, false, nil)
	run.Status = models.RunStatusCompleted
	require.NoError(t, store.Runs().Save(t.Context(), run))

	_, err := service.Cancel(t.Context(), run.ID)
	require.ErrorIs(t, err, ErrRunNotCancellable)
	assert.True(t, IsConflictError(err))
}

func TestCancel_RunNotFound(t *testing.T) {
	service, _, _ := newRunService(t)

	_, err := service.Cancel(t.Context(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}
