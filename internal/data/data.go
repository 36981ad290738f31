// Package data provides data access layer implementations.
// It owns the Redis and MySQL connections and the stores built on them.
package data

import (
	"MeshGuard/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewData,
	NewRedisClient,
	NewMySQLClient,
	NewCacheStore,
	NewEventStore,
	NewAuditLogRepo,
)

// Data anchors the data layer lifecycle.
type Data struct {
	// redisClient is the shared store for cache tier 2, streams and counters
	redisClient *redis.Client
}

// NewData creates a new Data instance.
// Redis connection failure does not prevent application startup (graceful
// degradation); stores surface per-call errors until the store recovers.
func NewData(_ *conf.Data, logger log.Logger, rdb *redis.Client) (*Data, func(), error) {
	helper := log.NewHelper(logger)

	if rdb == nil {
		helper.Warn("Redis client is nil, tier-2 cache and event publishing are unavailable")
	}

	d := &Data{
		redisClient: rdb,
	}

	cleanup := func() {
		helper.Info("closing the data resources")
		// Redis and MySQL cleanup are handled by their constructors' cleanup
		// functions, which Wire calls in reverse order.
	}

	return d, cleanup, nil
}

// GetRedisClient returns the shared Redis client for advanced operations.
func (d *Data) GetRedisClient() *redis.Client {
	return d.redisClient
}
