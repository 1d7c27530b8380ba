package system

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Alijeyrad/carevisit_backend/config"
	"github.com/Alijeyrad/carevisit_backend/pkg/database"
)

func NewInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the schedule and policy databases",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
			if err != nil {
				return fmt.Errorf("failed to get config flag: %w", err)
			}
			cfg, err := config.ReadConfig(filepath.Dir(cfgPath))
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(cfg.Server.TimeoutSeconds)*time.Second)
			defer cancel()

			fmt.Println("Initializing databases...")
			if err := database.InitializeDatabases(ctx, cfg); err != nil {
				return fmt.Errorf("failed to initialize databases: %w", err)
			}
			fmt.Println("Databases initialized successfully.")
			return nil
		},
	}

	return cmd
}
