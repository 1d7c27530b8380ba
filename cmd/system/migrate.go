package system

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Alijeyrad/carevisit_backend/config"
	"github.com/Alijeyrad/carevisit_backend/internal/repo"
	"github.com/Alijeyrad/carevisit_backend/pkg/authorize"
	"github.com/Alijeyrad/carevisit_backend/pkg/database"
)

func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the schedule tables and seed the default policies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
			if err != nil {
				return fmt.Errorf("failed to get config flag: %w", err)
			}
			cfg, err := config.ReadConfig(filepath.Dir(cfgPath))
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}

			// schedule db
			fmt.Println("Running migrations for the schedule DB.")
			drv, err := database.NewDriver(cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer drv.Close()

			timeout := time.Duration(cfg.Server.TimeoutSeconds) * time.Second
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			if err := repo.Migrate(ctx, drv); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			// casbin db
			fmt.Println("Running migrations for the Casbin DB.")
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

			slog.Info("seeding Casbin policies")
			if err := authorize.SeedDefaultPolicies(ctx, auth); err != nil {
				return fmt.Errorf("failed to seed policies: %w", err)
			}

			fmt.Println("Migrations executed successfully.")
			return nil
		},
	}

	return cmd
}
