package server

import (
	"context"

	"MeshGuard/internal/conf"
	"MeshGuard/internal/server/middleware"
	"MeshGuard/internal/service"
	pkglog "MeshGuard/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *conf.Server, ac *conf.Admin, ops *service.OpsService, logger log.Logger) *http.Server {
	logHelper := pkglog.NewLogHelper(logger)

	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			middleware.Auth(ac.Token, logHelper), // token check for the /admin surface
			middleware.Logging(logHelper),        // request method, path, duration
		),
	}
	if c.Http.Network != "" {
		opts = append(opts, http.Network(c.Http.Network))
	}
	if c.Http.Addr != "" {
		opts = append(opts, http.Address(c.Http.Addr))
	}
	if c.Http.Timeout > 0 {
		opts = append(opts, http.Timeout(c.Http.Timeout))
	}
	srv := http.NewServer(opts...)

	// Register HTTP services
	registerRoutes(srv, ops)

	return srv
}

// registerRoutes wires the health probe and the admin surface onto raw
// kratos routes. Every handler runs through the server middleware chain,
// so auth and request logging apply uniformly.
func registerRoutes(srv *http.Server, ops *service.OpsService) {
	root := srv.Route("/")

	// Liveness probe. Deliberately outside /admin so it stays reachable
	// without a token.
	root.GET("/health", func(ctx http.Context) error {
		return handle(ctx, func(c context.Context) (interface{}, error) {
			return ops.Health(c), nil
		})
	})

	admin := srv.Route("/admin")

	admin.GET("/circuits", func(ctx http.Context) error {
		return handle(ctx, func(c context.Context) (interface{}, error) {
			return ops.ListCircuits(c), nil
		})
	})

	admin.GET("/circuits/{name}", func(ctx http.Context) error {
		name := ctx.Vars().Get("name")
		return handle(ctx, func(c context.Context) (interface{}, error) {
			return ops.GetCircuit(c, name)
		})
	})

	admin.POST("/circuits/{name}/reset", func(ctx http.Context) error {
		name := ctx.Vars().Get("name")
		return handle(ctx, func(c context.Context) (interface{}, error) {
			return ops.ResetCircuit(c, name), nil
		})
	})

	admin.POST("/circuits/{name}/force-open", func(ctx http.Context) error {
		name := ctx.Vars().Get("name")
		return handle(ctx, func(c context.Context) (interface{}, error) {
			return ops.ForceOpenCircuit(c, name), nil
		})
	})

	admin.GET("/breaker/health", func(ctx http.Context) error {
		return handle(ctx, func(c context.Context) (interface{}, error) {
			return ops.BreakerHealth(c), nil
		})
	})

	admin.GET("/cache/stats", func(ctx http.Context) error {
		return handle(ctx, func(c context.Context) (interface{}, error) {
			return ops.CacheStats(c), nil
		})
	})

	admin.GET("/events/stats", func(ctx http.Context) error {
		return handle(ctx, func(c context.Context) (interface{}, error) {
			return ops.PublishingStats(c)
		})
	})

	admin.POST("/events/retry", func(ctx http.Context) error {
		return handle(ctx, func(c context.Context) (interface{}, error) {
			return ops.RetryFailedEvents(c)
		})
	})
}

// handle adapts a service operation to a raw kratos route, threading it
// through ctx.Middleware so the configured middleware chain runs.
func handle(ctx http.Context, op func(context.Context) (interface{}, error)) error {
	h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		return op(c)
	})
	out, err := h(ctx, nil)
	if err != nil {
		return err
	}
	return ctx.Result(200, out)
}
