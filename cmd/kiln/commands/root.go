// Package commands implements the CLI commands for the kiln build orchestrator.
package commands

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/kiln/internal/app"
	"go.trai.ch/kiln/internal/build"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// jsonSwitcher is implemented by loggers that can emit JSON.
type jsonSwitcher interface {
	SetJSON(enable bool)
}

// CLI represents the command line interface for kiln.
type CLI struct {
	app     *app.App
	logger  ports.Logger
	rootCmd *cobra.Command
}

// New creates a new CLI instance with the given app.
func New(a *app.App, logger ports.Logger) *CLI {
	rootCmd := &cobra.Command{
		Use:           "kiln",
		Short:         "An incremental build orchestrator for monorepos",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	rootCmd.PersistentFlags().String("output-mode", "auto", "Output mode: auto, tui or linear")
	rootCmd.PersistentFlags().Bool("ci", false, "Force linear output for CI logs")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit log messages as JSON")

	c := &CLI{
		app:     a,
		logger:  logger,
		rootCmd: rootCmd,
	}

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		if jsonLogs, _ := cmd.Flags().GetBool("json-logs"); jsonLogs {
			if l, ok := c.logger.(jsonSwitcher); ok {
				l.SetJSON(true)
			}
		}
	}

	rootCmd.AddCommand(c.newRunCmd())
	rootCmd.AddCommand(c.newPlanCmd())
	rootCmd.AddCommand(c.newWatchCmd())
	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOut redirects command output. Used for testing.
func (c *CLI) SetOut(w io.Writer) {
	c.rootCmd.SetOut(w)
}

// addScopeFlags registers the flags that select units.
func addScopeFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayP("unit", "u", nil, "Restrict the run to a unit (repeatable)")
}

// addRunFlags registers the flags shared by run and watch.
func addRunFlags(cmd *cobra.Command) {
	addScopeFlags(cmd)
	cmd.Flags().IntP("concurrency", "j", 0, "Maximum number of tasks running at once (default: workspace setting)")
	cmd.Flags().Bool("no-test-cache", false, "Run test tasks even when their results are cached")
}

// runOptions reads the scope from args and the command flags.
func runOptions(cmd *cobra.Command, args []string) (app.RunOptions, error) {
	var opts app.RunOptions
	for _, arg := range args {
		if arg == "all" {
			opts.Kinds = nil
			break
		}
		opts.Kinds = append(opts.Kinds, domain.TaskKind(arg))
	}

	units, _ := cmd.Flags().GetStringArray("unit")
	for _, u := range units {
		opts.Units = append(opts.Units, domain.UnitID(u))
	}

	if cmd.Flags().Lookup("concurrency") != nil {
		opts.Concurrency, _ = cmd.Flags().GetInt("concurrency")
		opts.NoTestCache, _ = cmd.Flags().GetBool("no-test-cache")
	}
	if opts.Concurrency < 0 {
		return opts, zerr.With(
			zerr.Wrap(domain.ErrInvalidConfig, "concurrency must not be negative"),
			"concurrency", opts.Concurrency,
		)
	}
	opts.OutputMode, _ = cmd.Flags().GetString("output-mode")
	opts.CI, _ = cmd.Flags().GetBool("ci")
	return opts, nil
}
