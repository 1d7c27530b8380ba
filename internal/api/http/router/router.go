package router

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/Alijeyrad/carevisit_backend/config"
	"github.com/Alijeyrad/carevisit_backend/internal/api/http/handler"
	"github.com/Alijeyrad/carevisit_backend/internal/api/http/middleware"
	"github.com/Alijeyrad/carevisit_backend/internal/repo"
	"github.com/Alijeyrad/carevisit_backend/internal/service/schedule"
	"github.com/Alijeyrad/carevisit_backend/pkg/authorize"
)

// Module provides the Router to the fx graph.
var Module = fx.Module("router",
	fx.Provide(NewRouter),
	fx.Provide(func(s *repo.Store) middleware.StaffLookup { return s }),
)

type Params struct {
	fx.In

	Cfg         *config.Config
	Auth        authorize.IAuthorization
	Staff       middleware.StaffLookup
	ScheduleSvc schedule.Service
}

type Router struct {
	p Params
}

func NewRouter(p Params) *Router {
	return &Router{p: p}
}

func (r *Router) Register(app *fiber.App) {
	// 1. Health & Metrics
	r.registerSystemRoutes(app)

	// 2. Initialize Middlewares
	facilityScope := middleware.FacilityScope(r.p.Staff, r.p.Auth)

	// Permission helper
	requirePerm := func(res authorize.Resource, act authorize.Action) fiber.Handler {
		return middleware.RequirePermission(r.p.Auth, res, act)
	}

	// 3. Initialize Handlers
	scheduleH := handler.NewScheduleHandler(r.p.ScheduleSvc)

	api := app.Group("/api/v1", facilityScope)

	// 4. Delegate to sub-files
	r.registerScheduleRoutes(api, scheduleH, requirePerm)
}

func (r *Router) registerSystemRoutes(app *fiber.App) {
	app.Get(healthcheck.LivenessEndpoint, healthcheck.New())
	app.Get(healthcheck.ReadinessEndpoint, healthcheck.New(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool { return authorize.IsPolicyHealthy() },
	}))
	app.Get(healthcheck.StartupEndpoint, healthcheck.New())

	if r.p.Cfg.Observability.Enabled && r.p.Cfg.Observability.Metrics.Enabled {
		app.Get(MetricsPath(r.p.Cfg), adaptor.HTTPHandler(promhttp.Handler()))
	}
}

// MetricsPath is where the Prometheus scrape endpoint is mounted.
func MetricsPath(cfg *config.Config) string {
	if cfg.Observability.Metrics.Path == "" {
		return "/metrics"
	}
	return cfg.Observability.Metrics.Path
}
