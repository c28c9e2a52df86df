package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainrun/chainrun/pkg/models"
	"github.com/chainrun/chainrun/pkg/protocol"
)

// stubConnector executes a scripted function.
type stubConnector struct {
	execute func(ctx context.Context) (map[string]any, error)
}

func (s *stubConnector) Execute(ctx context.Context) (map[string]any, error) {
	return s.execute(ctx)
}

func (s *stubConnector) Type() models.ComponentType {
	return models.ComponentTypeService
}

func stubResolver(execute func(ctx context.Context) (map[string]any, error)) ConnectorResolver {
	return func(ctx context.Context, component *models.Component) (protocol.Connector, error) {
		return &stubConnector{execute: execute}, nil
	}
}

func testComponent() *models.Component {
	return &models.Component{
		ID:    "c1",
		Name:  "Component c1",
		Type:  models.ComponentTypeService,
		Order: 1,
	}
}

func TestRunnerAttempt_Success(t *testing.T) {
	runner := NewRunnerWithResolver(stubResolver(func(ctx context.Context) (map[string]any, error) {
		return map[string]any{"status": 200}, nil
	}), time.Second)

	result := runner.Attempt(t.Context(), testComponent())

	require.False(t, result.Failed())
	assert.Equal(t, map[string]any{"status": 200}, result.Output)
	assert.False(t, result.StartedAt.IsZero())
	assert.False(t, result.FinishedAt.Before(result.StartedAt))
}

func TestRunnerAttempt_ResolverFailureIsConfigError(t *testing.T) {
	resolver := func(ctx context.Context, component *models.Component) (protocol.Connector, error) {
		return nil, errors.New("missing required field 'url'")
	}

	runner := NewRunnerWithResolver(resolver, time.Second)
	result := runner.Attempt(t.Context(), testComponent())

	require.True(t, result.Failed())
	assert.Equal(t, models.SignalPermanentConfig, result.Signal)
	assert.True(t, result.Signal.IsPermanent())
}

func TestRunnerAttempt_ClassifiedFailurePassesThrough(t *testing.T) {
	runner := NewRunnerWithResolver(stubResolver(func(ctx context.Context) (map[string]any, error) {
		return nil, models.NewAttemptError(models.SignalPermanentData, errors.New("schema rejected"))
	}), time.Second)

	result := runner.Attempt(t.Context(), testComponent())

	require.True(t, result.Failed())
	assert.Equal(t, models.SignalPermanentData, result.Signal)
}

func TestRunnerAttempt_UnclassifiedFailureIsTransient(t *testing.T) {
	runner := NewRunnerWithResolver(stubResolver(func(ctx context.Context) (map[string]any, error) {
		return nil, errors.New("boom")
	}), time.Second)

	result := runner.Attempt(t.Context(), testComponent())

	require.True(t, result.Failed())
	assert.Equal(t, models.SignalTransientRemoteError, result.Signal)
}

func TestRunnerAttempt_TimeoutIsConnectivity(t *testing.T) {
	runner := NewRunnerWithResolver(stubResolver(func(ctx context.Context) (map[string]any, error) {
		<-ctx.Done()

		return nil, ctx.Err()
	}), 20*time.Millisecond)

	result := runner.Attempt(t.Context(), testComponent())

	require.True(t, result.Failed())
	assert.Equal(t, models.SignalTransientConnectivity, result.Signal)
}

func TestRunnerAttempt_ZeroTimeoutFallsBack(t *testing.T) {
	runner := NewRunner(0)
	assert.Equal(t, DefaultAttemptTimeout, runner.timeout)
}
