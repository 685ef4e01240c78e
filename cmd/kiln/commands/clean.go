package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/kiln/internal/app"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove the local task store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logs, _ := cmd.Flags().GetBool("logs")
			all, _ := cmd.Flags().GetBool("all")
			return c.app.Clean(cmd.Context(), app.CleanOptions{Logs: logs, All: all})
		},
	}
	cmd.Flags().Bool("logs", false, "Also remove task logs")
	cmd.Flags().Bool("all", false, "Remove all kiln state, including the step log and the fingerprint ledger")
	return cmd
}
