package middleware

import (
	"context"
	"strings"
	"time"

	pkglog "MeshGuard/pkg/log"

	kratoserrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/uuid"
)

// Logging returns a middleware that threads tracing IDs through every
// request and logs its summary. Request IDs come from X-Request-ID or are
// generated; correlation IDs come from X-Correlation-ID or get a fresh UUID;
// the operator comes from X-Operator and feeds the audit trail on mutating
// admin calls. Requests past one second get a separate slow-request warning.
//
// Log output example:
//
//	🟢 POST /admin/circuits/payments-api/reset - 200 (3ms) | RequestID: mgrn0zfqda
func Logging(logger *pkglog.LogHelper) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			startTime := time.Now()

			var (
				method        string
				path          string
				ip            string
				userAgent     string
				requestID     string
				correlationID string
				operator      string
			)

			if tr, ok := transport.FromServerContext(ctx); ok {
				method = tr.Operation()
				path = tr.Operation()

				if ht, ok := tr.(http.Transporter); ok {
					httpReq := ht.Request()
					method = httpReq.Method
					path = httpReq.URL.Path
					if httpReq.URL.RawQuery != "" {
						path = path + "?" + httpReq.URL.RawQuery
					}

					ip = extractClientIP(httpReq)
					userAgent = httpReq.Header.Get("User-Agent")

					requestID = httpReq.Header.Get("X-Request-ID")
					correlationID = httpReq.Header.Get("X-Correlation-ID")
					operator = httpReq.Header.Get("X-Operator")
				}
			}

			if requestID == "" {
				requestID = pkglog.GenerateRequestID()
			}
			if correlationID == "" {
				correlationID = uuid.NewString()
			}
			if operator == "" {
				operator = "unknown"
			}

			// Everything logged or audited below this point carries the IDs.
			ctx = pkglog.WithRequestContext(ctx, requestID, correlationID, operator)

			reply, err := handler(ctx, req)

			duration := time.Since(startTime).Milliseconds()

			status := 200
			if err != nil {
				status = extractHTTPStatus(err)
			}

			logger.RequestWithContext(ctx, method, path, status, duration,
				"ip", ip,
				"user_agent", userAgent,
			)

			return reply, err
		}
	}
}

// extractClientIP picks the client address.
// Priority: X-Real-IP > X-Forwarded-For (first hop) > RemoteAddr
func extractClientIP(req *http.Request) string {
	if ip := req.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	if forwarded := req.Header.Get("X-Forwarded-For"); forwarded != "" {
		ips := strings.Split(forwarded, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	return req.RemoteAddr
}

// extractHTTPStatus maps an error to the HTTP status kratos will encode for
// it. Unclassified errors encode as 500.
func extractHTTPStatus(err error) int {
	if err == nil {
		return 200
	}
	return int(kratoserrors.FromError(err).Code)
}
