package app

import (
	"log/slog"

	"github.com/nats-io/nats.go"
	"go.uber.org/fx"

	"github.com/Alijeyrad/carevisit_backend/config"
	"github.com/Alijeyrad/carevisit_backend/internal/realtime"
	"github.com/Alijeyrad/carevisit_backend/internal/repo"
	"github.com/Alijeyrad/carevisit_backend/internal/service/demo"
	"github.com/Alijeyrad/carevisit_backend/internal/service/schedule"
	"github.com/Alijeyrad/carevisit_backend/pkg/authorize"
	redispkg "github.com/Alijeyrad/carevisit_backend/pkg/redis"
)

// ServiceModule provides all application service dependencies.
var ServiceModule = fx.Module("services",
	fx.Provide(
		ProvideNotifier,
		ProvideScheduleService,
		ProvideDemoService,
	),
)

func ProvideNotifier(nc *nats.Conn) *realtime.Notifier {
	return realtime.NewNotifier(nc, slog.Default())
}

func ProvideScheduleService(
	store *repo.Store,
	cache *redispkg.JSONCache,
	notifier *realtime.Notifier,
	cfg *config.Config,
) schedule.Service {
	opts := schedule.Options{
		CacheTTL: cfg.Cache.RangeTTL(),
		Notifier: notifier,
		Logger:   slog.Default(),
	}
	if cache != nil {
		opts.Cache = cache
	}
	return schedule.New(store, opts)
}

func ProvideDemoService(
	store *repo.Store,
	auth authorize.IAuthorization,
	svc schedule.Service,
	notifier *realtime.Notifier,
	cfg *config.Config,
) demo.Service {
	return demo.New(store, demo.Options{
		FacilityID: cfg.Demo.FacilityID,
		Auth:       auth,
		Cache:      svc,
		Notifier:   notifier,
		Logger:     slog.Default(),
	})
}
