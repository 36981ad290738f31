package log

import (
	"context"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
)

// LogHelper extends the Kratos log.Helper with domain-tagged methods.
// Each method attaches a "type" field to the record, which drives the
// emoji mapping of the EmojiConsoleEncoder in console mode.
type LogHelper struct {
	*log.Helper
}

// NewLogHelper creates an enhanced log helper.
func NewLogHelper(logger log.Logger) *LogHelper {
	return &LogHelper{
		Helper: log.NewHelper(logger),
	}
}

// Startup logs service startup progress (emoji: 🚀)
func (h *LogHelper) Startup(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "startup")
	h.Infow(allKvs...)
}

// Breaker logs circuit breaker state activity (emoji: 🔌)
func (h *LogHelper) Breaker(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "breaker")
	h.Infow(allKvs...)
}

// Cache logs cache tier activity (emoji: 🗃️)
func (h *LogHelper) Cache(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "cache")
	h.Debugw(allKvs...)
}

// Events logs event publishing activity (emoji: 📨)
func (h *LogHelper) Events(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "events")
	h.Infow(allKvs...)
}

// Redis logs shared-store operations (emoji: 📦)
func (h *LogHelper) Redis(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "redis")
	h.Debugw(allKvs...)
}

// Database logs audit database operations (emoji: 💾)
func (h *LogHelper) Database(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "database")
	h.Debugw(allKvs...)
}

// Admin logs administrative actions (emoji: 🛠️)
func (h *LogHelper) Admin(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "admin")
	h.Infow(allKvs...)
}

// Audit logs audit trail activity (emoji: 📋)
func (h *LogHelper) Audit(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "audit")
	h.Infow(allKvs...)
}

// Auth logs admin authentication activity (emoji: 🔓)
func (h *LogHelper) Auth(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "auth")
	h.Infow(allKvs...)
}

// Cron logs scheduled job activity (emoji: 🎯)
func (h *LogHelper) Cron(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "cron")
	h.Infow(allKvs...)
}

// Retry logs failed-event retry activity (emoji: 🔁)
func (h *LogHelper) Retry(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "retry")
	h.Infow(allKvs...)
}

// Success logs a completed operation (emoji: ✅)
func (h *LogHelper) Success(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "success")
	h.Infow(allKvs...)
}

// Request logs an HTTP request summary (emoji follows the status code)
func (h *LogHelper) Request(method, url string, status int, durationMs int64, kvs ...interface{}) {
	msg := fmt.Sprintf("%s %s - %d (%dms)", method, url, status, durationMs)
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs,
		"type", "request",
		"method", method,
		"url", url,
		"status", status,
		"duration_ms", durationMs,
	)
	h.Infow(allKvs...)
}

// ========== Context-aware methods ==========
// These extract tracing information (request ID, correlation ID) injected by
// the server middleware.

// RequestWithContext logs an HTTP request with its request ID and flags slow
// requests (threshold 1000ms).
func (h *LogHelper) RequestWithContext(ctx context.Context, method, url string, status int, durationMs int64, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)

	msg := fmt.Sprintf("%s %s - %d (%dms) | RequestID: %s",
		method, url, status, durationMs, reqCtx.RequestID)

	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs,
		"type", "request",
		"request_id", reqCtx.RequestID,
		"correlation_id", reqCtx.CorrelationID,
		"method", method,
		"url", url,
		"status", status,
		"duration_ms", durationMs,
	)
	h.Infow(allKvs...)

	if durationMs > 1000 {
		h.SlowRequest(ctx, method, url, durationMs, 1000)
	}
}

// SlowRequest logs a slow-request warning (emoji: 🐌).
// threshold is the duration in milliseconds past which the warning fires.
func (h *LogHelper) SlowRequest(ctx context.Context, method, url string, duration, threshold int64, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)

	msg := fmt.Sprintf("[%s] Slow request detected | %s %s | %dms (threshold: %dms)",
		reqCtx.RequestID, method, url, duration, threshold)

	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs,
		"request_id", reqCtx.RequestID,
		"method", method,
		"url", url,
		"duration_ms", duration,
		"threshold_ms", threshold,
		"type", "slow_request",
	)
	h.Warnw(allKvs...)
}

// AdminWithContext logs an administrative action with its request ID.
func (h *LogHelper) AdminWithContext(ctx context.Context, msg string, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)

	fullMsg := fmt.Sprintf("[%s] %s", reqCtx.RequestID, msg)

	allKvs := append([]interface{}{"msg", fullMsg}, kvs...)
	allKvs = append(allKvs,
		"request_id", reqCtx.RequestID,
		"correlation_id", reqCtx.CorrelationID,
		"operator", reqCtx.Operator,
		"type", "admin",
	)
	h.Infow(allKvs...)
}

// CacheStats logs tier-1 cache utilization (emoji: 🧹)
func (h *LogHelper) CacheStats(cacheName string, size, maxSize int, utilization float64, kvs ...interface{}) {
	msg := fmt.Sprintf("Cache stats - %s | Size: %d/%d (%.1f%%)",
		cacheName, size, maxSize, utilization*100)

	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs,
		"cache_name", cacheName,
		"size", size,
		"max_size", maxSize,
		"utilization", fmt.Sprintf("%.3f", utilization),
		"type", "cache_stats",
	)
	h.Infow(allKvs...)
}

// BreakerHealth logs the aggregate circuit health report (emoji: 🔌)
func (h *LogHelper) BreakerHealth(healthy bool, total int, openCircuits []string, kvs ...interface{}) {
	msg := fmt.Sprintf("Breaker health - healthy: %t, circuits: %d, open: %d",
		healthy, total, len(openCircuits))

	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs,
		"healthy", healthy,
		"total_circuits", total,
		"open_circuits", openCircuits,
		"type", "breaker",
	)
	if healthy {
		h.Infow(allKvs...)
	} else {
		h.Warnw(allKvs...)
	}
}
