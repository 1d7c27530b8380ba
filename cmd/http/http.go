package http

import "github.com/spf13/cobra"

// NewHTTPCommand groups the commands of the schedule API server.
func NewHTTPCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "http",
		Short: "Schedule API server commands",
	}

	cmd.AddCommand(NewStartCommand())

	return cmd
}
