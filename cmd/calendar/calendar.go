package calendar

import "github.com/spf13/cobra"

func NewCalendarCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Terminal calendar commands",
	}

	cmd.AddCommand(NewWatchCommand())

	return cmd
}
