// Package retry decides whether a failed component attempt runs again and
// after what delay, based on the component's declared retry strategy.
package retry

import (
	"math"
	"time"

	"github.com/chainrun/chainrun/pkg/models"
)

// Decision is the outcome of consulting a retry strategy after a failed
// attempt. When Retry is false the component gives up and Delay is zero.
type Decision struct {
	Retry bool
	Delay time.Duration
}

// GiveUp is the decision that ends retrying.
func GiveUp() Decision {
	return Decision{}
}

// After is the decision to retry after the given delay.
func After(delay time.Duration) Decision {
	return Decision{Retry: true, Delay: delay}
}

// Decide evaluates the strategy for the attempt that just failed. attempt is
// 1-based: 1 is the first execution. Permanent signals end retrying
// immediately no matter what the strategy says; a nil strategy never retries.
// Custom strategies with a non-empty eligibility list give up on any signal
// outside that list.
func Decide(strategy *models.RetryStrategy, attempt int, signal models.FailureSignal) Decision {
	if strategy == nil {
		return GiveUp()
	}

	if signal.IsPermanent() {
		return GiveUp()
	}

	if attempt > strategy.MaxRetries {
		return GiveUp()
	}

	switch strategy.Type {
	case models.StrategyFixed:
		return After(models.DurationSeconds(strategy.BaseDelaySeconds))
	case models.StrategyExponential:
		return After(exponentialDelay(strategy, attempt))
	case models.StrategyCustom:
		if !eligible(strategy, signal) {
			return GiveUp()
		}

		if attempt > len(strategy.Delays) {
			return GiveUp()
		}

		return After(models.DurationSeconds(strategy.Delays[attempt-1]))
	}

	return GiveUp()
}

// exponentialDelay doubles the base delay once per failed attempt, so the
// first retry waits the base delay itself. MaxDelaySeconds caps the result
// when set.
func exponentialDelay(strategy *models.RetryStrategy, attempt int) time.Duration {
	seconds := strategy.BaseDelaySeconds * math.Pow(2, float64(attempt-1))
	if strategy.MaxDelaySeconds > 0 && seconds > strategy.MaxDelaySeconds {
		seconds = strategy.MaxDelaySeconds
	}

	return models.DurationSeconds(seconds)
}

func eligible(strategy *models.RetryStrategy, signal models.FailureSignal) bool {
	if len(strategy.RetryOn) == 0 {
		return true
	}

	for _, allowed := range strategy.RetryOn {
		if allowed == signal {
			return true
		}
	}

	return false
}
