package app

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/Alijeyrad/carevisit_backend/config"
	"github.com/Alijeyrad/carevisit_backend/internal/repo"
	"github.com/Alijeyrad/carevisit_backend/pkg/authorize"
	"github.com/Alijeyrad/carevisit_backend/pkg/database"
	"github.com/Alijeyrad/carevisit_backend/pkg/observability"
	redispkg "github.com/Alijeyrad/carevisit_backend/pkg/redis"
)

// InfraModule provides all infrastructure dependencies.
var InfraModule = fx.Module("infra",
	fx.Provide(ProvideDatabase),
	fx.Provide(ProvideStore),
	fx.Provide(ProvideRedis),
	fx.Provide(ProvideRangeCache),
	fx.Provide(ProvideAuthorization),
	fx.Provide(ProvideOTel),
	fx.Provide(ProvideNatsClient),
)

func ProvideDatabase(lc fx.Lifecycle, cfg *config.Config) (*database.Driver, error) {
	drv, err := database.NewDriver(cfg.Database)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("closing main database connection")
			return drv.Close()
		},
	})
	return drv, nil
}

// ProvideStore wraps the driver and, when configured, creates the tables
// before the server starts taking requests.
func ProvideStore(lc fx.Lifecycle, cfg *config.Config, drv *database.Driver) *repo.Store {
	store := repo.New(drv)
	if cfg.Database.Migrations.AutoMigrate {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				slog.Info("running schema migration")
				return repo.Migrate(ctx, drv)
			},
		})
	}
	return store
}

// ProvideRedis returns nil when no address is configured; the range cache and
// the shared limiter storage are skipped then.
func ProvideRedis(lc fx.Lifecycle, cfg *config.Config) (*redis.Client, error) {
	if cfg.Redis.Addr == "" {
		slog.Warn("redis not configured, range cache disabled")
		return nil, nil
	}
	rdb, err := redispkg.NewRedisFromCentral(cfg.Redis)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("closing Redis connection")
			return rdb.Close()
		},
	})
	return rdb, nil
}

func ProvideRangeCache(rdb *redis.Client) *redispkg.JSONCache {
	if rdb == nil {
		return nil
	}
	return redispkg.NewJSONCache(rdb, "carevisit:range")
}

func ProvideAuthorization(lc fx.Lifecycle, cfg *config.Config) (authorize.IAuthorization, error) {
	dsn := database.NewDSN(cfg.CasbinDatabase)
	enforcer, cleanup, err := authorize.NewEnforcer(authorize.FromCentralConfig(cfg.Authorization), dsn)
	if err != nil {
		return nil, err
	}
	auth, err := authorize.NewAuthorization(enforcer)
	if err != nil {
		cleanup(context.Background())
		return nil, err
	}
	if cfg.Authorization.EnableAudit {
		auth = authorize.NewAuditedAuthorization(auth, slog.Default())
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("cleaning up Casbin enforcer")
			cleanup(ctx)
			return nil
		},
	})
	return auth, nil
}

func ProvideNatsClient(lc fx.Lifecycle, cfg *config.Config) (*nats.Conn, error) {
	opts := []nats.Option{nats.MaxReconnects(-1)}
	if cfg.Nats.Name != "" {
		opts = append(opts, nats.Name(cfg.Nats.Name))
	}
	nc, err := nats.Connect(cfg.Nats.URL, opts...)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("draining NATS connection")
			return nc.Drain()
		},
	})
	return nc, nil
}

func ProvideOTel(lc fx.Lifecycle, cfg *config.Config) (*observability.Provider, error) {
	if !cfg.Observability.Enabled {
		return nil, nil
	}
	provider, err := observability.InitTelemetry(context.Background(), observability.FromCentralConfig(cfg))
	if err != nil {
		return nil, err
	}
	slog.Info("observability initialized",
		"tracing", cfg.Observability.Tracing.Enabled,
		"metrics", cfg.Observability.Metrics.Enabled,
	)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("shutting down observability providers")
			return provider.Shutdown(ctx)
		},
	})
	return provider, nil
}
