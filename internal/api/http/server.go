package http

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/logger"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/Alijeyrad/carevisit_backend/config"
	"github.com/Alijeyrad/carevisit_backend/internal/api/http/handler"
	"github.com/Alijeyrad/carevisit_backend/internal/api/http/middleware"
	"github.com/Alijeyrad/carevisit_backend/internal/api/http/router"
	"github.com/Alijeyrad/carevisit_backend/pkg/observability"
)

// Module provides the HTTP Server to the fx graph.
var Module = fx.Module("http", fx.Provide(NewServer))

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Cfg       *config.Config
	Redis     *redis.Client `optional:"true"`
	Router    *router.Router
	OTel      *observability.Provider `optional:"true"`
}

func NewServer(p Params) *fiber.App {
	app := NewApp(p.Cfg, p.Redis, p.OTel != nil && p.Cfg.Observability.Tracing.Enabled)

	p.Router.Register(app)

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			addr := fmt.Sprintf(":%d", p.Cfg.Server.Port)
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}
			slog.Info("HTTP server listening", "addr", addr)
			go func() {
				if err := app.Listener(ln, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
					slog.Error("HTTP server error", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.ShutdownWithContext(ctx)
		},
	})

	return app
}

// NewApp builds the fiber app with the global middleware stack and no routes.
func NewApp(cfg *config.Config, rdb *redis.Client, tracing bool) *fiber.App {
	timeout := time.Duration(cfg.Server.TimeoutSeconds) * time.Second
	app := fiber.New(fiber.Config{
		AppName:      "carevisit",
		ErrorHandler: handler.ErrorHandler,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	if tracing {
		app.Use(observability.FiberMiddleware(observability.FiberOptions{
			SkipPaths: []string{
				healthcheck.LivenessEndpoint,
				healthcheck.ReadinessEndpoint,
				healthcheck.StartupEndpoint,
				router.MetricsPath(cfg),
			},
			LocalAttrs: map[string]string{
				"carevisit.request_id":  middleware.LocalRequestID,
				"carevisit.facility_id": middleware.LocalsFacilityID,
				"carevisit.staff_id":    middleware.LocalsStaffID,
			},
		}))
	}

	configureGlobalMiddleware(app, cfg, rdb)
	return app
}

func configureGlobalMiddleware(app *fiber.App, cfg *config.Config, rdb *redis.Client) {
	app.Use(middleware.RequestID())
	app.Use(recoverer.New())

	if cfg.Server.CORS.Enabled {
		app.Use(cors.New(cors.Config{AllowOrigins: cfg.Server.CORS.AllowOrigins}))
	}

	if cfg.Server.Environment == "production" {
		app.Use(helmet.New())
		app.Use(middleware.NewLimiter(cfg.Server.RateLimit, rdb))
	}

	app.Use(logger.New(logger.Config{
		Format: "${ip} - [${time}] [req_id=${respHeader:X-Request-Id}] ${method} ${url} ${status}\n",
	}))
}
