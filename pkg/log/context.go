package log

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// contextKey is a private key type for storing the RequestContext.
type contextKey string

const requestContextKey contextKey = "meshguard_request_context"

// RequestContext carries tracing information for one admin request. It is
// injected by the server middleware and threaded through every log call and
// event emitted while handling that request.
type RequestContext struct {
	RequestID     string // short base36 ID, unique per request (e.g. mgrn0zfqda)
	CorrelationID string // opaque ID threading one logical operation across services
	Operator      string // who triggered the request, for audit records
	StartTime     time.Time
}

var (
	randSource = rand.NewSource(time.Now().UnixNano())
	randMutex  sync.Mutex
	// base36 alphabet (lowercase letters + digits)
	base36Chars = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// GenerateRequestID generates a 10-character random request ID.
// base36 keeps it short and log-friendly compared to a UUID.
func GenerateRequestID() string {
	randMutex.Lock()
	defer randMutex.Unlock()

	b := make([]byte, 10)
	for i := range b {
		b[i] = base36Chars[randSource.Int63()%36]
	}
	return string(b)
}

// WithRequestContext injects a RequestContext into ctx. Called once per
// request by the logging middleware.
func WithRequestContext(ctx context.Context, requestID, correlationID, operator string) context.Context {
	reqCtx := &RequestContext{
		RequestID:     requestID,
		CorrelationID: correlationID,
		Operator:      operator,
		StartTime:     time.Now(),
	}
	return context.WithValue(ctx, requestContextKey, reqCtx)
}

// GetRequestContext extracts the RequestContext from ctx.
// Returns a placeholder context when none was injected, so callers never
// need a nil check.
func GetRequestContext(ctx context.Context) *RequestContext {
	if ctx == nil {
		return &RequestContext{RequestID: "unknown"}
	}

	if reqCtx, ok := ctx.Value(requestContextKey).(*RequestContext); ok {
		return reqCtx
	}

	return &RequestContext{RequestID: "unknown"}
}

// GetRequestID extracts the request ID from ctx.
func GetRequestID(ctx context.Context) string {
	return GetRequestContext(ctx).RequestID
}

// GetCorrelationID extracts the correlation ID from ctx.
func GetCorrelationID(ctx context.Context) string {
	return GetRequestContext(ctx).CorrelationID
}

// GetOperator extracts the operator name from ctx.
func GetOperator(ctx context.Context) string {
	return GetRequestContext(ctx).Operator
}

// GetElapsedTime returns how long the request has been running, in
// milliseconds.
func GetElapsedTime(ctx context.Context) int64 {
	reqCtx := GetRequestContext(ctx)
	if reqCtx.StartTime.IsZero() {
		return 0
	}
	return time.Since(reqCtx.StartTime).Milliseconds()
}
