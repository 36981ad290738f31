package biz

import (
	"context"
)

// AuditLogger defines the interface for recording admin mutations.
// Implementations must not block the calling request; a lost entry is
// preferred over a slow admin operation.
type AuditLogger interface {
	// LogCircuitReset logs a manual circuit reset
	LogCircuitReset(ctx context.Context, circuit, operator string)

	// LogCircuitForceOpen logs a manually forced-open circuit
	LogCircuitForceOpen(ctx context.Context, circuit, operator string)

	// LogRetryTriggered logs a manually triggered failed-event retry pass
	LogRetryTriggered(ctx context.Context, operator string, retried, remaining int)
}
