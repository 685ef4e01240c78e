package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [kinds...]",
		Short: "Run tasks of the given kinds, or every task",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := runOptions(cmd, args)
			if err != nil {
				return err
			}
			return c.app.Run(cmd.Context(), opts)
		},
	}
	addRunFlags(cmd)
	return cmd
}
