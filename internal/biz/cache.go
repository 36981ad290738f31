package biz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"MeshGuard/internal/conf"
	"MeshGuard/internal/data"
	"MeshGuard/internal/model"
	pkgerrors "MeshGuard/pkg/errors"

	"github.com/go-kratos/kratos/v2/log"
)

// CacheStore is the tier-2 backend, shared across all process instances.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)
}

const defaultSweepInterval = 60 * time.Second

// cachePolicies maps each category to its TTL pair (tier 2 / tier 1). The
// table is fixed policy, not configuration.
var cachePolicies = map[string]model.CachePolicy{
	model.CategoryUserProfile:     {RedisTTL: 600 * time.Second, MemoryTTL: 60 * time.Second},
	model.CategoryUserPreferences: {RedisTTL: 1800 * time.Second, MemoryTTL: 300 * time.Second},
	model.CategoryUserBasic:       {RedisTTL: 300 * time.Second, MemoryTTL: 30 * time.Second},
	model.CategoryUserStats:       {RedisTTL: 60 * time.Second, MemoryTTL: 15 * time.Second},
	model.CategoryBatchUsers:      {RedisTTL: 30 * time.Second, MemoryTTL: 10 * time.Second},
	model.CategorySessionData:     {RedisTTL: 900 * time.Second, MemoryTTL: 60 * time.Second},
	model.CategoryUserPermissions: {RedisTTL: 1200 * time.Second, MemoryTTL: 120 * time.Second},
}

// defaultCachePolicy covers categories missing from the table.
var defaultCachePolicy = model.CachePolicy{RedisTTL: 300 * time.Second, MemoryTTL: 30 * time.Second}

// CacheUsecase is the two-tier read-through cache. Tier 1 is the process-local
// MemCache, tier 2 the shared store. Reads fail open: a tier-2 outage degrades
// every lookup to a miss instead of an error. Writes are the exception, since
// reporting success for a write that never happened would pin stale data for
// the full TTL.
type CacheUsecase struct {
	store     CacheStore
	mem       *MemCache
	stopSweep chan struct{}

	logger *log.Helper
}

// NewCacheUsecase creates the cache and starts the expiry sweep. The returned
// cleanup stops the sweep.
func NewCacheUsecase(c *conf.Cache, store CacheStore, logger log.Logger) (*CacheUsecase, func()) {
	maxEntries := 0
	sweepInterval := defaultSweepInterval
	if c != nil {
		maxEntries = c.Tier1MaxEntries
		if c.SweepInterval > 0 {
			sweepInterval = c.SweepInterval
		}
	}

	uc := &CacheUsecase{
		store:     store,
		mem:       NewMemCache(maxEntries),
		stopSweep: make(chan struct{}),
		logger:    log.NewHelper(logger),
	}

	go uc.sweep(sweepInterval)

	cleanup := func() {
		uc.logger.Info("stopping the cache sweep")
		close(uc.stopSweep)
	}
	return uc, cleanup
}

// Get looks key up tier by tier and decodes the cached JSON into dest. It
// reports whether a value was found; lookups never fail, a tier-2 error is
// treated as a miss.
func (uc *CacheUsecase) Get(ctx context.Context, key, category string, dest interface{}) bool {
	policy := policyFor(category)

	if raw, ok := uc.mem.Get(key); ok {
		if err := json.Unmarshal(raw, dest); err != nil {
			uc.logger.Warnw("undecodable tier-1 cache entry", "key", key, "error", err)
		} else {
			uc.logger.Debugw("cache hit", "tier", 1, "key", key)
			return true
		}
	}

	raw, err := uc.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, data.ErrCacheNotFound) {
			uc.logger.Debugw("cache miss", "key", key)
		} else {
			uc.logger.Warnw("tier-2 cache read failed, treating as miss", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		uc.logger.Warnw("undecodable tier-2 cache entry", "key", key, "error", err)
		return false
	}

	uc.mem.Set(key, raw, policy.MemoryTTL)
	uc.logger.Debugw("cache hit", "tier", 2, "key", key)
	return true
}

// Set encodes value once and writes both tiers concurrently, each with its
// category TTL. A tier-2 failure fails the call; the tier-1 write cannot fail.
func (uc *CacheUsecase) Set(ctx context.Context, key string, value interface{}, category string) error {
	policy := policyFor(category)

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value for key %q: %w", key, err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- uc.store.Set(ctx, key, payload, policy.RedisTTL)
	}()

	uc.mem.Set(key, payload, policy.MemoryTTL)

	if err := <-errCh; err != nil {
		return pkgerrors.NewCacheWrite(key, err)
	}
	return nil
}

// Invalidate removes key from both tiers. The tier-2 delete is best-effort.
func (uc *CacheUsecase) Invalidate(ctx context.Context, key string) {
	uc.mem.Delete(key)

	if err := uc.store.Delete(ctx, key); err != nil {
		uc.logger.Warnw("tier-2 cache invalidation failed", "key", key, "error", err)
	}
}

// GetBatch resolves keys against tier 1, fetches the misses from tier 2 in
// one round trip and repopulates tier 1 with what it found. Keys absent from
// both tiers are left out of the result; like Get, the lookup never fails.
func (uc *CacheUsecase) GetBatch(ctx context.Context, keys []string, category string) map[string]json.RawMessage {
	policy := policyFor(category)
	results := make(map[string]json.RawMessage, len(keys))

	var misses []string
	for _, key := range keys {
		if raw, ok := uc.mem.Get(key); ok {
			results[key] = json.RawMessage(raw)
			continue
		}
		misses = append(misses, key)
	}

	if len(misses) == 0 {
		return results
	}

	found, err := uc.store.GetMany(ctx, misses)
	if err != nil {
		uc.logger.Warnw("tier-2 batch read failed, returning tier-1 hits only",
			"keys", len(misses), "error", err)
		return results
	}

	for key, raw := range found {
		uc.mem.Set(key, raw, policy.MemoryTTL)
		results[key] = json.RawMessage(raw)
	}

	return results
}

// SetBatch writes every entry to tier 1 and scatters the tier-2 writes as
// concurrent fire-and-forget operations: individual failures are logged and
// swallowed, so a nil return does not mean every entry is durably cached.
func (uc *CacheUsecase) SetBatch(ctx context.Context, entries map[string]interface{}, category string) error {
	policy := policyFor(category)

	payloads := make(map[string][]byte, len(entries))
	for key, value := range entries {
		payload, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to encode cache value for key %q: %w", key, err)
		}
		payloads[key] = payload
	}

	var wg sync.WaitGroup
	for key, payload := range payloads {
		uc.mem.Set(key, payload, policy.MemoryTTL)

		wg.Add(1)
		go func(key string, payload []byte) {
			defer wg.Done()
			if err := uc.store.Set(ctx, key, payload, policy.RedisTTL); err != nil {
				uc.logger.Warnw("tier-2 batch write failed", "key", key, "error", err)
			}
		}(key, payload)
	}
	wg.Wait()

	return nil
}

// Stats reports tier-1 occupancy and the TTL policy table.
func (uc *CacheUsecase) Stats() *model.CacheStats {
	size := uc.mem.Len()
	capacity := uc.mem.Cap()

	utilization := 0.0
	if capacity > 0 {
		utilization = float64(size) / float64(capacity)
	}

	categories := make(map[string]model.CachePolicy, len(cachePolicies))
	for category, policy := range cachePolicies {
		categories[category] = policy
	}

	return &model.CacheStats{
		Size:        size,
		MaxSize:     capacity,
		Utilization: utilization,
		Categories:  categories,
	}
}

// SweepNow runs one expiry sweep immediately and reports how many tier-1
// entries were removed.
func (uc *CacheUsecase) SweepNow() int {
	return uc.mem.RemoveExpired()
}

func (uc *CacheUsecase) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-uc.stopSweep:
			return
		case <-ticker.C:
			if removed := uc.mem.RemoveExpired(); removed > 0 {
				uc.logger.Debugw("cache sweep removed expired entries", "removed", removed)
			}
		}
	}
}

func policyFor(category string) model.CachePolicy {
	if policy, ok := cachePolicies[category]; ok {
		return policy
	}
	return defaultCachePolicy
}
