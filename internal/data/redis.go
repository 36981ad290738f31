// Package data provides data access layer implementations.
package data

import (
	"context"
	"time"

	"MeshGuard/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient creates the shared Redis client with connection pool
// configuration. It returns the client and a cleanup function.
// Connection failure does not prevent application startup (graceful
// degradation): callers observe per-call errors and the health endpoint
// reports the store as unavailable.
func NewRedisClient(c *conf.Data, logger log.Logger) (*redis.Client, func(), error) {
	helper := log.NewHelper(logger)

	// Validate configuration
	if c == nil || c.Redis == nil {
		helper.Warn("Redis configuration is nil, skipping Redis initialization")
		return nil, func() {}, nil
	}

	addr := c.Redis.Addr
	if addr == "" {
		helper.Warn("Redis address is empty, skipping Redis initialization")
		return nil, func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Network:      c.Redis.Network,
		Addr:         addr,
		Password:     c.Redis.Password,
		DB:           c.Redis.DB,
		PoolSize:     c.Redis.PoolSize,
		MinIdleConns: 10,
		DialTimeout:  c.Redis.DialTimeout,
		ReadTimeout:  c.Redis.ReadTimeout,
		WriteTimeout: c.Redis.WriteTimeout,
		// ConnMaxLifetime is not directly supported in go-redis v9.
		// Use ConnMaxIdleTime instead for idle connection cleanup.
		ConnMaxIdleTime: 5 * time.Minute,
	})

	cleanup := func() {
		helper.Info("closing Redis client")
		if err := rdb.Close(); err != nil {
			helper.Errorf("failed to close Redis client: %v", err)
		}
	}

	// Health check: verify connection with ping
	pingTimeout := c.Redis.DialTimeout
	if pingTimeout <= 0 {
		pingTimeout = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		helper.Warnf("failed to connect to Redis at %s: %v (application will continue without Redis)", addr, err)
		// Return the client anyway; stores surface per-call errors until the
		// connection recovers.
		return rdb, cleanup, nil
	}

	helper.Infof("connected to Redis at %s", addr)

	return rdb, cleanup, nil
}
