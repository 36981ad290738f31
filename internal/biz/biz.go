// Package biz contains business logic layer implementations.
// This layer holds the core business rules and domain models.
package biz

import (
	"MeshGuard/internal/data"

	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewCircuitBreakerUsecase,
	NewCacheUsecase,
	NewEventPublisherUsecase,
	// Bind data layer implementations to biz layer interfaces
	wire.Bind(new(CacheStore), new(*data.CacheStore)),
	wire.Bind(new(EventStore), new(*data.EventStore)),
	wire.Bind(new(AuditLogger), new(*data.AuditLogRepo)),
)
