// Package errors provides classified errors for the resilience core.
//
// Every failure condition the core can originate is represented by a
// *CoreError carrying a Kind and a Retryable flag, both fixed when the error
// is constructed. Callers branch on the kind (or the helper predicates), not
// on concrete error types, so the set of conditions stays closed and the
// retry decision is made exactly once, at the point of failure.
//
// Errors returned by protected operations themselves are never wrapped into
// a CoreError; they pass through the breaker untouched.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Kind identifies the failure class of a core error.
type Kind int

const (
	// KindUnknown represents an unclassified error.
	KindUnknown Kind = iota
	// KindCircuitOpen signals a call rejected by an open circuit. The
	// protected operation was not attempted.
	KindCircuitOpen
	// KindCacheWrite represents a failed tier-2 cache write. Reads and
	// invalidations degrade silently and never produce this kind.
	KindCacheWrite
	// KindPublish represents an event publish failure in any of its steps
	// (broadcast, durable log append, stats update).
	KindPublish
	// KindStoreUnavailable represents a failed liveness probe against the
	// shared store.
	KindStoreUnavailable
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindCircuitOpen:
		return "CIRCUIT_OPEN"
	case KindCacheWrite:
		return "CACHE_WRITE"
	case KindPublish:
		return "PUBLISH"
	case KindStoreUnavailable:
		return "STORE_UNAVAILABLE"
	default:
		return "UNKNOWN"
	}
}

// CoreError wraps a core failure with its classification.
type CoreError struct {
	Kind        Kind
	Retryable   bool
	Circuit     string // circuit name, set for KindCircuitOpen
	NextAttempt time.Time
	OriginalErr error
	Message     string
}

// Error implements the error interface.
func (e *CoreError) Error() string {
	if e.Circuit != "" {
		return fmt.Sprintf("%s: circuit %q", e.Message, e.Circuit)
	}
	if e.OriginalErr != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.OriginalErr)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is and errors.As compatibility.
func (e *CoreError) Unwrap() error {
	return e.OriginalErr
}

// NewCircuitOpen creates the rejection returned when a named circuit is OPEN.
// The call is retryable once nextAttempt has passed.
func NewCircuitOpen(circuit string, nextAttempt time.Time) *CoreError {
	return &CoreError{
		Kind:        KindCircuitOpen,
		Retryable:   true,
		Circuit:     circuit,
		NextAttempt: nextAttempt,
		Message:     "circuit breaker is open",
	}
}

// NewCacheWrite wraps a failed tier-2 cache write for the given key.
func NewCacheWrite(key string, err error) *CoreError {
	return &CoreError{
		Kind:        KindCacheWrite,
		Retryable:   true,
		OriginalErr: err,
		Message:     fmt.Sprintf("cache write failed for key %q", key),
	}
}

// NewPublish wraps a failed event publish. Callers are expected to queue the
// event for a later retry pass rather than drop it.
func NewPublish(eventType string, err error) *CoreError {
	return &CoreError{
		Kind:        KindPublish,
		Retryable:   true,
		OriginalErr: err,
		Message:     fmt.Sprintf("publish failed for event type %q", eventType),
	}
}

// NewPublishBatch wraps a failed pipelined batch publish. The pipeline is
// all-or-nothing, so the whole batch needs re-publishing.
func NewPublishBatch(count int, err error) *CoreError {
	return &CoreError{
		Kind:        KindPublish,
		Retryable:   true,
		OriginalErr: err,
		Message:     fmt.Sprintf("batch publish failed for %d events", count),
	}
}

// NewStoreUnavailable wraps a failed liveness probe against the shared store.
func NewStoreUnavailable(err error) *CoreError {
	return &CoreError{
		Kind:        KindStoreUnavailable,
		Retryable:   true,
		OriginalErr: err,
		Message:     "shared store unavailable",
	}
}

// KindOf returns the Kind of err, or KindUnknown when err is not a CoreError.
func KindOf(err error) Kind {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether err is a CoreError marked retryable.
// Non-core errors report false; their retry policy belongs to the caller.
func IsRetryable(err error) bool {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}

// IsCircuitOpen reports whether err is an open-circuit rejection, letting
// callers distinguish "not attempted" from a failure of the operation itself.
func IsCircuitOpen(err error) bool {
	return KindOf(err) == KindCircuitOpen
}
