package main

import (
	"context"
	"time"

	"MeshGuard/internal/biz"
	"MeshGuard/internal/conf"
	pkglog "MeshGuard/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
)

// newOpsCron starts the background maintenance jobs:
//   - failed event retry, every events.retry_interval
//   - breaker and cache health report, every 5 minutes
//
// The returned cleanup stops the scheduler and waits for running jobs
// to finish.
func newOpsCron(
	ec *conf.Events,
	breaker *biz.CircuitBreakerUsecase,
	cache *biz.CacheUsecase,
	publisher *biz.EventPublisherUsecase,
	logger log.Logger,
) (*cron.Cron, func(), error) {
	helper := pkglog.NewLogHelper(logger)

	c := cron.New(cron.WithSeconds())

	// Re-publish queued failed events. The pass is at-least-once; events
	// that fail again stay queued for the next run.
	_, err := c.AddFunc("@every "+ec.RetryInterval.String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		retried, remaining, err := publisher.RetryFailedEvents(ctx)
		if err != nil {
			helper.Errorw("failed event retry pass failed", "error", err)
			return
		}
		if retried > 0 || remaining > 0 {
			helper.Retry("Failed event retry pass finished", "retried", retried, "remaining", remaining)
		}
	})
	if err != nil {
		return nil, nil, err
	}

	// Periodic health report. Cron expression: sec min hour dom month dow.
	_, err = c.AddFunc("0 */5 * * * *", func() {
		health := breaker.HealthStatus()
		helper.BreakerHealth(health.Healthy, health.TotalCircuits, health.OpenCircuits)

		stats := cache.Stats()
		helper.CacheStats("tier1", stats.Size, stats.MaxSize, stats.Utilization)
	})
	if err != nil {
		return nil, nil, err
	}

	c.Start()
	helper.Cron("Background jobs started", "retry_interval", ec.RetryInterval.String())

	cleanup := func() {
		helper.Cron("Stopping background jobs")
		<-c.Stop().Done()
	}

	return c, cleanup, nil
}
