package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	calendarcmd "github.com/Alijeyrad/carevisit_backend/cmd/calendar"
	httpcmd "github.com/Alijeyrad/carevisit_backend/cmd/http"
	systemcmd "github.com/Alijeyrad/carevisit_backend/cmd/system"
)

var (
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "carevisit",
	Short: "Care visit scheduling for home care facilities.",
	Long: `CareVisit schedules client visits for the staff of a care facility.
It serves the schedule API and ships a terminal calendar that stays in sync with
other sessions of the same facility.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global config flag, available for all commands.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")

	// Attach top-level command trees.
	rootCmd.AddCommand(systemcmd.NewSystemCommand())
	rootCmd.AddCommand(httpcmd.NewHTTPCommand())
	rootCmd.AddCommand(calendarcmd.NewCalendarCommand())
}
