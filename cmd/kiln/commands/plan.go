package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan [kinds...]",
		Short: "Print the tasks a run would execute, without running them",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := runOptions(cmd, args)
			if err != nil {
				return err
			}
			return c.app.Plan(cmd.Context(), opts)
		},
	}
	addScopeFlags(cmd)
	return cmd
}
