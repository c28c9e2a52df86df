package models

import (
	"context"
	"errors"
	"fmt"
)

// FailureSignal classifies why a component attempt failed. Transient signals
// may be retried; permanent signals never are, regardless of strategy.
type FailureSignal string

const (
	SignalTransientConnectivity FailureSignal = "transient-connectivity" // Timeouts, refused or dropped connections
	SignalTransientRemoteError  FailureSignal = "transient-remote-error" // Remote side answered with a retryable error
	SignalPermanentConfig       FailureSignal = "permanent-configuration" // Component configuration is wrong
	SignalPermanentData         FailureSignal = "permanent-data"          // Payload or schema the remote rejects
)

// Valid reports whether the signal is one of the defined classifications.
func (s FailureSignal) Valid() bool {
	switch s {
	case SignalTransientConnectivity, SignalTransientRemoteError, SignalPermanentConfig, SignalPermanentData:
		return true
	}

	return false
}

// IsPermanent reports whether the signal rules out retrying.
func (s FailureSignal) IsPermanent() bool {
	return s == SignalPermanentConfig || s == SignalPermanentData
}

// IsTransient reports whether the signal allows retrying.
func (s FailureSignal) IsTransient() bool {
	return s == SignalTransientConnectivity || s == SignalTransientRemoteError
}

// AttemptError is a component failure carrying its classification. Connectors
// wrap failures in AttemptError when they can tell what went wrong; anything
// else is classified by SignalOf.
type AttemptError struct {
	Signal FailureSignal
	Err    error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("%s: %s", e.Signal, e.Err)
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

// NewAttemptError wraps err with the given failure classification.
func NewAttemptError(signal FailureSignal, err error) *AttemptError {
	return &AttemptError{Signal: signal, Err: err}
}

// SignalOf extracts the failure signal from an attempt failure. Deadline
// expiry counts as a connectivity problem; unclassified errors default to
// transient-remote-error so a declared strategy still gets to retry them.
func SignalOf(err error) FailureSignal {
	var attemptErr *AttemptError
	if errors.As(err, &attemptErr) {
		return attemptErr.Signal
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return SignalTransientConnectivity
	}

	return SignalTransientRemoteError
}
