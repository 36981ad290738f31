package biz

import (
	"context"
	"sync"
	"time"

	"MeshGuard/internal/conf"
	"MeshGuard/internal/model"
	pkgerrors "MeshGuard/pkg/errors"

	"github.com/go-kratos/kratos/v2/log"
)

// Operation is a call protected by the breaker. Only the returned error
// decides whether the call counts as a success or a failure; the result value
// is passed through untouched.
type Operation func(ctx context.Context) (interface{}, error)

// Fallback runs instead of the operation while the circuit is open, or after
// a failure that left it open.
type Fallback func(ctx context.Context) (interface{}, error)

// circuit is the mutable record for one named dependency.
//
// The mutex guards the record's fields only. It is never held across the
// protected operation or a fallback, so two concurrent calls can both observe
// HALF_OPEN and both probe. That interleaving is accepted behavior, not a
// race to fix; callers that need a single probe serialize their own calls.
type circuit struct {
	mu              sync.Mutex
	name            string
	state           model.CircuitState
	failures        int
	successes       int
	lastFailureTime time.Time // zero = never failed
	nextAttempt     time.Time // zero = none scheduled
}

// CircuitBreakerUsecase tracks one circuit per named dependency. Records are
// created lazily on first use, never deleted, and are process-local: two
// replicas can disagree about the same circuit name at the same time.
type CircuitBreakerUsecase struct {
	mu       sync.Mutex
	circuits map[string]*circuit

	failureThreshold  int
	recoveryTimeout   time.Duration
	monitoringPeriod  time.Duration
	expectedErrorRate float64

	logger *log.Helper
}

// NewCircuitBreakerUsecase creates the breaker with the configured
// thresholds. Zero or missing values fall back to the defaults.
func NewCircuitBreakerUsecase(c *conf.Breaker, logger log.Logger) *CircuitBreakerUsecase {
	uc := &CircuitBreakerUsecase{
		circuits:          make(map[string]*circuit),
		failureThreshold:  5,
		recoveryTimeout:   60 * time.Second,
		monitoringPeriod:  300 * time.Second,
		expectedErrorRate: 0.5,
		logger:            log.NewHelper(logger),
	}

	if c != nil {
		if c.FailureThreshold > 0 {
			uc.failureThreshold = c.FailureThreshold
		}
		if c.RecoveryTimeout > 0 {
			uc.recoveryTimeout = c.RecoveryTimeout
		}
		if c.MonitoringPeriod > 0 {
			uc.monitoringPeriod = c.MonitoringPeriod
		}
		if c.ExpectedErrorRate > 0 {
			uc.expectedErrorRate = c.ExpectedErrorRate
		}
	}

	return uc
}

// Execute runs op under the circuit named name.
//
// While the circuit is open the call is rejected without running op: the
// fallback's result is returned if one was supplied, otherwise a circuit-open
// error carrying the next attempt time. Once the recovery timeout has passed,
// the next call flips the circuit to HALF_OPEN and proceeds as the trial.
//
// Errors from op itself propagate to the caller unchanged unless a fallback
// exists and the circuit is (or just became) open.
func (uc *CircuitBreakerUsecase) Execute(ctx context.Context, name string, op Operation, fallback Fallback) (interface{}, error) {
	c := uc.circuitFor(name)

	c.mu.Lock()
	if c.state == model.CircuitOpen {
		now := time.Now()
		if now.Before(c.nextAttempt) {
			nextAttempt := c.nextAttempt
			c.mu.Unlock()

			uc.logger.Debugw("circuit open, rejecting call",
				"circuit", name,
				"next_attempt", nextAttempt)

			if fallback != nil {
				return fallback(ctx)
			}
			return nil, pkgerrors.NewCircuitOpen(name, nextAttempt)
		}

		// Recovery window reached: this call becomes the trial.
		c.state = model.CircuitHalfOpen
		uc.logger.Infow("circuit half-open, allowing trial call", "circuit", name)
	}
	c.mu.Unlock()

	result, err := op(ctx)
	if err != nil {
		opened := uc.onFailure(c)
		if opened && fallback != nil {
			return fallback(ctx)
		}
		return nil, err
	}

	uc.onSuccess(c)
	return result, nil
}

// GetStats returns a snapshot of the named circuit, or false if the name has
// never been used.
func (uc *CircuitBreakerUsecase) GetStats(name string) (*model.CircuitStats, bool) {
	uc.mu.Lock()
	c, ok := uc.circuits[name]
	uc.mu.Unlock()
	if !ok {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked(), true
}

// GetAllStats snapshots every tracked circuit.
func (uc *CircuitBreakerUsecase) GetAllStats() map[string]*model.CircuitStats {
	uc.mu.Lock()
	circuits := make([]*circuit, 0, len(uc.circuits))
	for _, c := range uc.circuits {
		circuits = append(circuits, c)
	}
	uc.mu.Unlock()

	stats := make(map[string]*model.CircuitStats, len(circuits))
	for _, c := range circuits {
		c.mu.Lock()
		stats[c.name] = c.snapshotLocked()
		c.mu.Unlock()
	}

	return stats
}

// Reset forces the named circuit back to CLOSED with zeroed counters,
// creating the record if it does not exist yet.
func (uc *CircuitBreakerUsecase) Reset(name string) {
	c := uc.circuitFor(name)

	c.mu.Lock()
	c.state = model.CircuitClosed
	c.failures = 0
	c.successes = 0
	c.lastFailureTime = time.Time{}
	c.nextAttempt = time.Time{}
	c.mu.Unlock()

	uc.logger.Infow("circuit reset", "circuit", name)
}

// ForceOpen forces the named circuit OPEN with a fresh recovery deadline,
// creating the record if it does not exist yet.
func (uc *CircuitBreakerUsecase) ForceOpen(name string) {
	c := uc.circuitFor(name)

	c.mu.Lock()
	c.state = model.CircuitOpen
	c.nextAttempt = time.Now().Add(uc.recoveryTimeout)
	c.mu.Unlock()

	uc.logger.Warnw("circuit forced open", "circuit", name)
}

// HealthStatus aggregates every circuit: unhealthy as soon as one is open.
func (uc *CircuitBreakerUsecase) HealthStatus() *model.BreakerHealth {
	uc.mu.Lock()
	circuits := make([]*circuit, 0, len(uc.circuits))
	for _, c := range uc.circuits {
		circuits = append(circuits, c)
	}
	uc.mu.Unlock()

	health := &model.BreakerHealth{
		Healthy:       true,
		TotalCircuits: len(circuits),
		OpenCircuits:  []string{},
	}

	for _, c := range circuits {
		c.mu.Lock()
		open := c.state == model.CircuitOpen
		c.mu.Unlock()
		if open {
			health.Healthy = false
			health.OpenCircuits = append(health.OpenCircuits, c.name)
		}
	}

	return health
}

// circuitFor returns the record for name, creating it CLOSED with zero
// counters on first use.
func (uc *CircuitBreakerUsecase) circuitFor(name string) *circuit {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	c, ok := uc.circuits[name]
	if !ok {
		c = &circuit{name: name, state: model.CircuitClosed}
		uc.circuits[name] = c
	}

	return c
}

// onSuccess records a successful call: opportunistic counter decay first,
// then the HALF_OPEN → CLOSED recovery.
func (uc *CircuitBreakerUsecase) onSuccess(c *circuit) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Stale failure history decays only here, on a success. There is no
	// background sweep.
	if !c.lastFailureTime.IsZero() && time.Since(c.lastFailureTime) > uc.monitoringPeriod {
		c.failures = 0
		c.successes = 0
		c.lastFailureTime = time.Time{}
	}

	c.successes++

	if c.state == model.CircuitHalfOpen {
		c.state = model.CircuitClosed
		c.failures = 0
		uc.logger.Infow("circuit recovered", "circuit", c.name)
	}
}

// onFailure records a failed call and re-evaluates the open transition.
// Reports whether the circuit is open after recording.
func (uc *CircuitBreakerUsecase) onFailure(c *circuit) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failures++
	c.lastFailureTime = time.Now()

	wasHalfOpen := c.state == model.CircuitHalfOpen

	if wasHalfOpen || uc.shouldOpenLocked(c) {
		c.state = model.CircuitOpen
		c.nextAttempt = time.Now().Add(uc.recoveryTimeout)
		uc.logger.Warnw("circuit opened",
			"circuit", c.name,
			"failures", c.failures,
			"successes", c.successes,
			"next_attempt", c.nextAttempt,
			"trial_failed", wasHalfOpen)
	}

	return c.state == model.CircuitOpen
}

// shouldOpenLocked applies the two open conditions: the absolute failure
// threshold, and the error-rate check once enough outcomes accumulated.
// Caller holds c.mu.
func (uc *CircuitBreakerUsecase) shouldOpenLocked(c *circuit) bool {
	if c.failures >= uc.failureThreshold {
		return true
	}

	total := c.failures + c.successes
	if total >= uc.failureThreshold {
		rate := float64(c.failures) / float64(total)
		return rate >= uc.expectedErrorRate
	}

	return false
}

// snapshotLocked copies the record into a stats value. Caller holds c.mu.
func (c *circuit) snapshotLocked() *model.CircuitStats {
	stats := &model.CircuitStats{
		State:     c.state,
		Failures:  c.failures,
		Successes: c.successes,
	}

	if !c.lastFailureTime.IsZero() {
		lastFailure := c.lastFailureTime
		stats.LastFailureTime = &lastFailure
	}
	if !c.nextAttempt.IsZero() {
		nextAttempt := c.nextAttempt
		stats.NextAttempt = &nextAttempt
	}

	return stats
}
