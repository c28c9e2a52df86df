package engine

import (
	"context"
	"time"

	"github.com/chainrun/chainrun/pkg/connectors"
	"github.com/chainrun/chainrun/pkg/models"
	"github.com/chainrun/chainrun/pkg/protocol"
)

// DefaultAttemptTimeout bounds a single component attempt when the caller
// does not configure one.
const DefaultAttemptTimeout = 60 * time.Second

// ConnectorResolver builds the connector executing a component. The default
// is connectors.ForComponent; tests inject their own.
type ConnectorResolver func(ctx context.Context, component *models.Component) (protocol.Connector, error)

// AttemptResult is the outcome of exactly one component attempt, with the
// timestamps the caller records on the status row.
type AttemptResult struct {
	Output     map[string]any
	Err        error
	Signal     models.FailureSignal
	StartedAt  time.Time
	FinishedAt time.Time
}

// Failed reports whether the attempt ended in a failure.
func (a AttemptResult) Failed() bool {
	return a.Err != nil
}

// Runner performs single component attempts. It never retries; retrying is
// the engine's responsibility so the policy can change without touching
// execution mechanics.
type Runner struct {
	resolve ConnectorResolver
	timeout time.Duration
}

// NewRunner creates a runner with the given per-attempt timeout. A zero or
// negative timeout falls back to DefaultAttemptTimeout.
func NewRunner(timeout time.Duration) *Runner {
	return NewRunnerWithResolver(connectors.ForComponent, timeout)
}

// NewRunnerWithResolver creates a runner with a custom connector resolver.
func NewRunnerWithResolver(resolve ConnectorResolver, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultAttemptTimeout
	}

	return &Runner{resolve: resolve, timeout: timeout}
}

// Attempt performs one synchronous execution of the component, bounded by
// the per-attempt timeout. An exceeded timeout is classified as
// transient-connectivity; a config the connector cannot parse is
// permanent-configuration. The result always carries start and end
// timestamps, success or not.
func (r *Runner) Attempt(ctx context.Context, component *models.Component) AttemptResult {
	result := AttemptResult{StartedAt: time.Now().UTC()}

	attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	connector, err := r.resolve(attemptCtx, component)
	if err != nil {
		result.Err = models.NewAttemptError(models.SignalPermanentConfig, err)
		result.Signal = models.SignalPermanentConfig
		result.FinishedAt = time.Now().UTC()

		return result
	}

	output, err := connector.Execute(attemptCtx)
	result.FinishedAt = time.Now().UTC()
	result.Output = output

	if err != nil {
		// The connector may have returned the raw context error after
		// the deadline fired mid-call.
		if attemptCtx.Err() != nil && ctx.Err() == nil {
			err = models.NewAttemptError(models.SignalTransientConnectivity, err)
		}

		result.Err = err
		result.Signal = models.SignalOf(err)
	}

	return result
}
