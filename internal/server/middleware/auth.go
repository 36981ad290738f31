// Package middleware provides HTTP middleware for authentication, logging, and request processing.
package middleware

import (
	"context"
	"crypto/subtle"
	"strings"

	pkglog "MeshGuard/pkg/log"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// Auth returns a middleware guarding the /admin namespace with a static
// token. An empty configured token leaves the surface open; startup logs a
// warning for that, not this middleware.
//
// The token is accepted as "Authorization: Bearer {token}" or in the
// X-Admin-Token header. Other paths (the health probe) pass through
// untouched.
func Auth(token string, logger *pkglog.LogHelper) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			if token == "" {
				return handler(ctx, req)
			}

			tr, ok := transport.FromServerContext(ctx)
			if !ok {
				return handler(ctx, req)
			}
			ht, ok := tr.(http.Transporter)
			if !ok {
				return handler(ctx, req)
			}

			httpReq := ht.Request()
			if !strings.HasPrefix(httpReq.URL.Path, "/admin") {
				return handler(ctx, req)
			}

			presented := httpReq.Header.Get("X-Admin-Token")
			if presented == "" {
				authHeader := httpReq.Header.Get("Authorization")
				presented = strings.TrimPrefix(authHeader, "Bearer ")
				presented = strings.TrimSpace(presented)
			}

			if presented == "" {
				logger.Auth("Rejected admin request without token", "path", httpReq.URL.Path)
				return nil, errors.New(401, "UNAUTHORIZED", "admin token required")
			}

			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				logger.Auth("Rejected admin request with mismatched token",
					"path", httpReq.URL.Path,
					"token_masked", maskToken(presented))
				return nil, errors.New(401, "UNAUTHORIZED", "admin token mismatch")
			}

			logger.Auth("Authenticated admin request ("+maskToken(presented)+")",
				"token_masked", maskToken(presented),
				"user_agent", httpReq.Header.Get("User-Agent"))

			return handler(ctx, req)
		}
	}
}

// maskToken shows only the first 8 characters of a token.
// Example: "mg-1234567890abcdef" -> "mg-12345***"
func maskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:8] + "***"
}
