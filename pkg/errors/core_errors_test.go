package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{KindUnknown, "UNKNOWN"},
		{KindCircuitOpen, "CIRCUIT_OPEN"},
		{KindCacheWrite, "CACHE_WRITE"},
		{KindPublish, "PUBLISH"},
		{KindStoreUnavailable, "STORE_UNAVAILABLE"},
		{Kind(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.kind.String())
		})
	}
}

func TestNewCircuitOpen(t *testing.T) {
	next := time.Now().Add(time.Minute)
	err := NewCircuitOpen("auth-service", next)

	assert.Equal(t, KindCircuitOpen, err.Kind)
	assert.True(t, err.Retryable)
	assert.Equal(t, "auth-service", err.Circuit)
	assert.Equal(t, next, err.NextAttempt)
	assert.Contains(t, err.Error(), "auth-service")
	assert.Contains(t, err.Error(), "circuit breaker is open")
}

func TestNewCacheWrite_WrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewCacheWrite("user:42", cause)

	assert.Equal(t, KindCacheWrite, err.Kind)
	assert.True(t, err.Retryable)
	assert.Contains(t, err.Error(), "user:42")
	assert.ErrorIs(t, err, cause)
}

func TestNewPublish_WrapsCause(t *testing.T) {
	cause := errors.New("broken pipe")
	err := NewPublish("USER_CREATED", cause)

	assert.Equal(t, KindPublish, err.Kind)
	assert.True(t, err.Retryable)
	assert.Contains(t, err.Error(), "USER_CREATED")
	assert.ErrorIs(t, err, cause)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Kind
	}{
		{"circuit open", NewCircuitOpen("svc", time.Now()), KindCircuitOpen},
		{"cache write", NewCacheWrite("k", errors.New("x")), KindCacheWrite},
		{"publish", NewPublish("USER_UPDATED", errors.New("x")), KindPublish},
		{"store unavailable", NewStoreUnavailable(errors.New("x")), KindStoreUnavailable},
		{"plain error", errors.New("plain"), KindUnknown},
		{"nil", nil, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, KindOf(tt.err))
		})
	}
}

func TestKindOf_WrappedCoreError(t *testing.T) {
	inner := NewPublish("USER_DELETED", errors.New("timeout"))
	wrapped := fmt.Errorf("retry pass: %w", inner)

	assert.Equal(t, KindPublish, KindOf(wrapped))
	assert.True(t, IsRetryable(wrapped))
}

func TestIsRetryable_NonCoreError(t *testing.T) {
	assert.False(t, IsRetryable(errors.New("caller error")))
	assert.False(t, IsRetryable(nil))
}

func TestIsCircuitOpen(t *testing.T) {
	open := NewCircuitOpen("billing", time.Now().Add(30*time.Second))
	assert.True(t, IsCircuitOpen(open))
	assert.False(t, IsCircuitOpen(NewStoreUnavailable(errors.New("down"))))
	assert.False(t, IsCircuitOpen(errors.New("operation failed")))
}
