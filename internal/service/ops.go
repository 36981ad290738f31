package service

import (
	"context"
	"fmt"

	"MeshGuard/internal/biz"
	"MeshGuard/internal/model"
	pkglog "MeshGuard/pkg/log"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// RetryResult reports one pass over the failed-event queue.
type RetryResult struct {
	Retried   int `json:"retried"`
	Remaining int `json:"remaining"`
}

// HealthStatus is the aggregate liveness report for the admin surface.
type HealthStatus struct {
	Status  string               `json:"status"` // ok or degraded
	Store   string               `json:"store"`  // up or down
	Breaker *model.BreakerHealth `json:"breaker"`
}

// OpsService is the administrative facade over the breaker, the cache and the
// event publisher. It is consumed by operational tooling through the HTTP
// server; the core components never call it.
type OpsService struct {
	breaker   *biz.CircuitBreakerUsecase
	cache     *biz.CacheUsecase
	publisher *biz.EventPublisherUsecase
	audit     biz.AuditLogger

	logger *pkglog.LogHelper
}

// NewOpsService creates a new OpsService instance.
func NewOpsService(
	breaker *biz.CircuitBreakerUsecase,
	cache *biz.CacheUsecase,
	publisher *biz.EventPublisherUsecase,
	audit biz.AuditLogger,
	logger log.Logger,
) *OpsService {
	return &OpsService{
		breaker:   breaker,
		cache:     cache,
		publisher: publisher,
		audit:     audit,
		logger:    pkglog.NewLogHelper(logger),
	}
}

// ListCircuits returns a stats snapshot of every tracked circuit.
func (s *OpsService) ListCircuits(ctx context.Context) map[string]*model.CircuitStats {
	s.logger.Admin("ListCircuits called")
	return s.breaker.GetAllStats()
}

// GetCircuit returns the stats snapshot for one circuit. A name that has
// never been used is a 404, not an empty record.
func (s *OpsService) GetCircuit(ctx context.Context, name string) (*model.CircuitStats, error) {
	stats, ok := s.breaker.GetStats(name)
	if !ok {
		return nil, errors.New(404, "CIRCUIT_NOT_FOUND",
			fmt.Sprintf("circuit %q has never been used", name))
	}
	return stats, nil
}

// ResetCircuit forces the named circuit back to CLOSED, creating the record
// when needed, and returns the fresh snapshot.
func (s *OpsService) ResetCircuit(ctx context.Context, name string) *model.CircuitStats {
	s.breaker.Reset(name)
	s.audit.LogCircuitReset(ctx, name, pkglog.GetOperator(ctx))
	s.logger.AdminWithContext(ctx, "circuit reset", "circuit", name)

	stats, _ := s.breaker.GetStats(name)
	return stats
}

// ForceOpenCircuit trips the named circuit by hand, creating the record when
// needed, and returns the fresh snapshot.
func (s *OpsService) ForceOpenCircuit(ctx context.Context, name string) *model.CircuitStats {
	s.breaker.ForceOpen(name)
	s.audit.LogCircuitForceOpen(ctx, name, pkglog.GetOperator(ctx))
	s.logger.AdminWithContext(ctx, "circuit forced open", "circuit", name)

	stats, _ := s.breaker.GetStats(name)
	return stats
}

// BreakerHealth aggregates circuit health: unhealthy as soon as one circuit
// is open.
func (s *OpsService) BreakerHealth(ctx context.Context) *model.BreakerHealth {
	return s.breaker.HealthStatus()
}

// CacheStats reports tier-1 occupancy and the TTL policy table.
func (s *OpsService) CacheStats(ctx context.Context) *model.CacheStats {
	stats := s.cache.Stats()
	s.logger.Cache("cache stats requested",
		"size", stats.Size,
		"max_size", stats.MaxSize)
	return stats
}

// PublishingStats reads the event counters and the recent-events buffer.
func (s *OpsService) PublishingStats(ctx context.Context) (*model.PublishingStats, error) {
	stats, err := s.publisher.GetPublishingStats(ctx)
	if err != nil {
		s.logger.Errorw("failed to read publishing stats", "error", err)
		return nil, errors.New(503, "STORE_UNAVAILABLE", "event statistics are unavailable").WithCause(err)
	}
	return stats, nil
}

// RetryFailedEvents runs one retry pass over the failed-event queue and
// records who triggered it.
func (s *OpsService) RetryFailedEvents(ctx context.Context) (*RetryResult, error) {
	retried, remaining, err := s.publisher.RetryFailedEvents(ctx)
	if err != nil {
		s.logger.Errorw("failed-event retry pass failed", "error", err)
		return nil, errors.New(503, "STORE_UNAVAILABLE", "failed-event queue is unavailable").WithCause(err)
	}

	s.audit.LogRetryTriggered(ctx, pkglog.GetOperator(ctx), retried, remaining)
	s.logger.AdminWithContext(ctx, "failed-event retry triggered",
		"retried", retried,
		"remaining", remaining)

	return &RetryResult{Retried: retried, Remaining: remaining}, nil
}

// Health reports overall liveness: the shared store probe plus circuit
// health. The report itself never fails; a broken store shows up as status
// degraded.
func (s *OpsService) Health(ctx context.Context) *HealthStatus {
	health := &HealthStatus{
		Status:  "ok",
		Store:   "up",
		Breaker: s.breaker.HealthStatus(),
	}

	if err := s.publisher.HealthCheck(ctx); err != nil {
		s.logger.Warnw("store health probe failed", "error", err)
		health.Status = "degraded"
		health.Store = "down"
	}
	if !health.Breaker.Healthy {
		health.Status = "degraded"
	}

	return health
}
