package log

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// createTestLogger builds a LogHelper writing into an in-memory buffer.
func createTestLogger() (*LogHelper, *bytes.Buffer) {
	buf := &bytes.Buffer{}

	encoderConfig := zapcore.EncoderConfig{
		MessageKey:  "msg",
		LevelKey:    "level",
		TimeKey:     "time",
		EncodeLevel: zapcore.LowercaseLevelEncoder,
		EncodeTime:  zapcore.ISO8601TimeEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(buf),
		zapcore.DebugLevel,
	)

	zapLogger := zap.New(core)
	kratosLogger := NewKratosAdapter(zapLogger)
	helper := NewLogHelper(kratosLogger)

	return helper, buf
}

func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}

func TestNewLogHelper(t *testing.T) {
	zapLogger := zap.NewNop()
	kratosLogger := NewKratosAdapter(zapLogger)
	helper := NewLogHelper(kratosLogger)

	if helper == nil {
		t.Fatal("NewLogHelper returned nil")
	}
}

func TestLogHelper_Breaker(t *testing.T) {
	helper, buf := createTestLogger()

	helper.Breaker("circuit opened", "circuit", "auth-service")

	output := buf.String()
	if output == "" {
		t.Error("Breaker log produced no output")
	}
	if !contains(output, "breaker") {
		t.Error("Breaker log missing 'breaker' type field")
	}
	if !contains(output, "auth-service") {
		t.Error("Breaker log missing circuit name")
	}
}

func TestLogHelper_Cache(t *testing.T) {
	helper, buf := createTestLogger()

	helper.Cache("tier-1 hit", "key", "user:42")

	output := buf.String()
	if !contains(output, "cache") {
		t.Error("Cache log missing 'cache' type field")
	}
}

func TestLogHelper_Events(t *testing.T) {
	helper, buf := createTestLogger()

	helper.Events("event published", "event_type", "USER_CREATED")

	output := buf.String()
	if !contains(output, "events") {
		t.Error("Events log missing 'events' type field")
	}
	if !contains(output, "USER_CREATED") {
		t.Error("Events log missing event type")
	}
}

func TestLogHelper_Request(t *testing.T) {
	helper, buf := createTestLogger()

	helper.Request("GET", "/admin/circuits", 200, 12)

	output := buf.String()
	if !contains(output, "GET /admin/circuits - 200 (12ms)") {
		t.Errorf("Request log missing formatted message, got: %s", output)
	}
	if !contains(output, "request") {
		t.Error("Request log missing 'request' type field")
	}
}

func TestLogHelper_RequestWithContext(t *testing.T) {
	helper, buf := createTestLogger()

	ctx := WithRequestContext(context.Background(), "req1234567", "corr-1", "ops")
	helper.RequestWithContext(ctx, "POST", "/admin/circuits/auth/reset", 200, 8)

	output := buf.String()
	if !contains(output, "req1234567") {
		t.Error("RequestWithContext log missing request ID")
	}
	if !contains(output, "corr-1") {
		t.Error("RequestWithContext log missing correlation ID")
	}
}

func TestLogHelper_RequestWithContext_SlowRequest(t *testing.T) {
	helper, buf := createTestLogger()

	ctx := WithRequestContext(context.Background(), "slowreq001", "", "")
	helper.RequestWithContext(ctx, "GET", "/admin/events/stats", 200, 1500)

	output := buf.String()
	if !contains(output, "Slow request detected") {
		t.Error("slow request past threshold did not produce warning")
	}
	if !contains(output, "slow_request") {
		t.Error("slow request log missing 'slow_request' type field")
	}
}

func TestLogHelper_AdminWithContext(t *testing.T) {
	helper, buf := createTestLogger()

	ctx := WithRequestContext(context.Background(), "adminreq01", "corr-9", "alice")
	helper.AdminWithContext(ctx, "circuit reset", "circuit", "billing")

	output := buf.String()
	if !contains(output, "adminreq01") {
		t.Error("AdminWithContext log missing request ID")
	}
	if !contains(output, "alice") {
		t.Error("AdminWithContext log missing operator")
	}
}

func TestLogHelper_CacheStats(t *testing.T) {
	helper, buf := createTestLogger()

	helper.CacheStats("tier1", 250, 1000, 0.25)

	output := buf.String()
	if !contains(output, "Size: 250/1000") {
		t.Errorf("CacheStats log missing size summary, got: %s", output)
	}
	if !contains(output, "cache_stats") {
		t.Error("CacheStats log missing 'cache_stats' type field")
	}
}

func TestLogHelper_BreakerHealth(t *testing.T) {
	helper, buf := createTestLogger()

	helper.BreakerHealth(false, 3, []string{"auth-service"})

	output := buf.String()
	if !contains(output, "healthy: false") {
		t.Error("BreakerHealth log missing health summary")
	}
	if !contains(output, "warn") {
		t.Error("unhealthy BreakerHealth should log at warn level")
	}
}

func TestGenerateRequestID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateRequestID()
		if len(id) != 10 {
			t.Errorf("GenerateRequestID returned %q, want 10 characters", id)
		}
		if seen[id] {
			t.Errorf("GenerateRequestID produced duplicate %q", id)
		}
		seen[id] = true
	}
}

func TestRequestContext_Roundtrip(t *testing.T) {
	ctx := WithRequestContext(context.Background(), "rid", "cid", "op")

	reqCtx := GetRequestContext(ctx)
	if reqCtx.RequestID != "rid" || reqCtx.CorrelationID != "cid" || reqCtx.Operator != "op" {
		t.Errorf("unexpected RequestContext: %+v", reqCtx)
	}
	if GetRequestID(ctx) != "rid" {
		t.Error("GetRequestID mismatch")
	}
	if GetCorrelationID(ctx) != "cid" {
		t.Error("GetCorrelationID mismatch")
	}
	if GetOperator(ctx) != "op" {
		t.Error("GetOperator mismatch")
	}
}

func TestGetRequestContext_Missing(t *testing.T) {
	reqCtx := GetRequestContext(context.Background())
	if reqCtx.RequestID != "unknown" {
		t.Errorf("missing context should report unknown request ID, got %q", reqCtx.RequestID)
	}

	// nil context must not panic
	reqCtx = GetRequestContext(nil) //nolint:staticcheck
	if reqCtx.RequestID != "unknown" {
		t.Error("nil context should report unknown request ID")
	}
}
