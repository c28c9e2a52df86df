package models

import (
	"errors"
	"fmt"
	"time"
)

// StrategyType selects the delay schedule of a retry strategy.
type StrategyType string

const (
	StrategyFixed       StrategyType = "fixed"       // Same delay before every retry
	StrategyExponential StrategyType = "exponential" // Delay doubles after each failed attempt
	StrategyCustom      StrategyType = "custom"      // Explicit per-attempt delays and signal eligibility
)

// Default values applied to declared strategies with unset fields. A
// component that should never retry omits the strategy entirely.
const (
	DefaultMaxRetries       = 3
	DefaultBaseDelaySeconds = 5.0
)

// RetryStrategy declares how a component's failed attempts are retried.
// MaxRetries counts retries beyond the first attempt. For fixed and
// exponential strategies BaseDelaySeconds seeds the schedule; exponential
// doubles it per attempt, capped by MaxDelaySeconds when that is non-zero.
// Custom strategies list one delay per permitted retry in Delays and may
// restrict eligibility to the failure signals in RetryOn; an empty RetryOn
// accepts every transient signal.
type RetryStrategy struct {
	Type             StrategyType    `json:"type"                        yaml:"type"                         validate:"required"`
	MaxRetries       int             `json:"max_retries"                 yaml:"max_retries"`
	BaseDelaySeconds float64         `json:"base_delay_seconds,omitempty" yaml:"base_delay_seconds,omitempty"`
	MaxDelaySeconds  float64         `json:"max_delay_seconds,omitempty"  yaml:"max_delay_seconds,omitempty"`
	Delays           []float64       `json:"delays,omitempty"             yaml:"delays,omitempty"`
	RetryOn          []FailureSignal `json:"retry_on,omitempty"           yaml:"retry_on,omitempty"`
}

// ApplyDefaults fills unset numeric fields with the documented defaults.
func (r *RetryStrategy) ApplyDefaults() {
	if r.MaxRetries == 0 {
		r.MaxRetries = DefaultMaxRetries
	}

	if r.BaseDelaySeconds == 0 && (r.Type == StrategyFixed || r.Type == StrategyExponential) {
		r.BaseDelaySeconds = DefaultBaseDelaySeconds
	}
}

// Validate checks the strategy for internal consistency. Custom strategies
// must declare at least as many delays as permitted retries so that every
// retry has an explicit delay.
func (r *RetryStrategy) Validate() error {
	switch r.Type {
	case StrategyFixed, StrategyExponential:
		if r.BaseDelaySeconds <= 0 {
			return fmt.Errorf("%w: %s strategy requires a positive base delay", ErrInvalidRetryStrategy, r.Type)
		}
	case StrategyCustom:
		if len(r.Delays) < r.MaxRetries {
			return fmt.Errorf("%w: custom strategy declares %d delays for %d retries", ErrInvalidRetryStrategy, len(r.Delays), r.MaxRetries)
		}

		for i, delay := range r.Delays {
			if delay < 0 {
				return fmt.Errorf("%w: custom delay %d is negative", ErrInvalidRetryStrategy, i+1)
			}
		}

		for _, signal := range r.RetryOn {
			if !signal.Valid() {
				return fmt.Errorf("%w: unknown failure signal %q in retry_on", ErrInvalidRetryStrategy, signal)
			}
		}
	default:
		return fmt.Errorf("%w: unknown strategy type %q", ErrInvalidRetryStrategy, r.Type)
	}

	if r.MaxRetries < 0 {
		return fmt.Errorf("%w: negative max_retries", ErrInvalidRetryStrategy)
	}

	if r.MaxDelaySeconds < 0 {
		return fmt.Errorf("%w: negative max_delay_seconds", ErrInvalidRetryStrategy)
	}

	return nil
}

// DurationSeconds converts a seconds value from a strategy field into a
// time.Duration.
func DurationSeconds(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

var (
	// ErrInvalidRetryStrategy is returned when a retry strategy fails validation
	ErrInvalidRetryStrategy = errors.New("invalid retry strategy")
)
