package system

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/Alijeyrad/carevisit_backend/config"
	"github.com/Alijeyrad/carevisit_backend/internal/realtime"
	"github.com/Alijeyrad/carevisit_backend/internal/repo"
	"github.com/Alijeyrad/carevisit_backend/internal/service/demo"
	"github.com/Alijeyrad/carevisit_backend/pkg/authorize"
	"github.com/Alijeyrad/carevisit_backend/pkg/database"
	"github.com/Alijeyrad/carevisit_backend/pkg/logs"
)

// NewDemoResetCommand reloads the demo facility once, outside the server's
// scheduled reset.
func NewDemoResetCommand() *cobra.Command {
	var withSignal bool

	cmd := &cobra.Command{
		Use:   "demo-reset",
		Short: "Replace the demo facility with freshly dated visits",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
			if err != nil {
				return fmt.Errorf("failed to get config flag: %w", err)
			}
			cfg, err := config.ReadConfig(filepath.Dir(cfgPath))
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}
			logger, flush := logs.New(cfg)
			defer flush()

			drv, err := database.NewDriver(cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			store := repo.New(drv)
			defer store.Close()

			enforcer, cleanup, err := authorize.NewEnforcer(
				authorize.FromCentralConfig(cfg.Authorization),
				database.NewDSN(cfg.CasbinDatabase),
			)
			if err != nil {
				return fmt.Errorf("failed to create enforcer: %w", err)
			}
			defer cleanup(context.Background())

			auth, err := authorize.NewAuthorization(enforcer)
			if err != nil {
				return fmt.Errorf("failed to create authorization: %w", err)
			}

			opts := demo.Options{
				FacilityID: cfg.Demo.FacilityID,
				Auth:       auth,
				Logger:     logger,
			}
			if withSignal && cfg.Nats.URL != "" {
				nc, err := nats.Connect(cfg.Nats.URL, nats.Name("carevisit-demo-reset"))
				if err != nil {
					return fmt.Errorf("failed to connect to NATS: %w", err)
				}
				defer nc.Drain()
				opts.Notifier = realtime.NewNotifier(nc, logger)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			if err := demo.New(store, opts).Reset(ctx); err != nil {
				return fmt.Errorf("failed to reset demo facility: %w", err)
			}
			fmt.Println("Demo facility reset.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&withSignal, "notify", true, "Signal open calendars of the demo facility to refetch")

	return cmd
}
