package terminal

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/de-tools/market-atlas/pkg/runtime/app"
	"github.com/de-tools/market-atlas/pkg/runtime/terminal/commands"
	"github.com/de-tools/market-atlas/pkg/runtime/terminal/export"
	"github.com/de-tools/market-atlas/pkg/services/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// CLI represents the command-line interface
type CLI struct {
	reporter   *export.Reporter
	output     io.Writer
	load       commands.Loader
	configPath string
	rootCmd    *cobra.Command
}

// Options contain configuration for the CLI
type Options struct {
	Output io.Writer
	// Loader replaces the settings-driven runtime, mainly in tests.
	Loader commands.Loader
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	cli := &CLI{
		reporter: export.NewReporter(opts.Output),
		output:   opts.Output,
		load:     opts.Loader,
	}
	if cli.load == nil {
		cli.load = cli.loadRuntime
	}

	cli.rootCmd = cli.newRootCmd()
	return cli
}

func (cli *CLI) Execute(ctx context.Context) error {
	return cli.rootCmd.ExecuteContext(ctx)
}

func (cli *CLI) SetArgs(args []string) {
	cli.rootCmd.SetArgs(args)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "market-atlas",
		Short:         "Moving average strategy backtests with timestamped artifacts",
		Long:          "Run without a command to backtest the moving average strategy with the configured defaults.",
		Args:          cobra.NoArgs,
		RunE:          commands.DefaultRun(cli.load, cli.reporter),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(cli.output)

	cmd.PersistentFlags().StringVarP(&cli.configPath, "config", "c", "",
		"Path to the settings file (default is ./market-atlas.yaml)")

	cmd.AddCommand(commands.NewStrategyCmd(cli.load, cli.reporter))
	cmd.AddCommand(commands.NewAnalyzeCmd(cli.load, cli.reporter))
	cmd.AddCommand(commands.NewInfoCmd(cli.load, cli.reporter))
	cmd.AddCommand(commands.NewRunsCmd(cli.load, cli.reporter))

	return cmd
}

func (cli *CLI) loadRuntime(ctx context.Context) (*commands.Runtime, error) {
	settings, err := config.Load(cli.configPath)
	if err != nil {
		return nil, err
	}
	if level, err := zerolog.ParseLevel(settings.Log.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	a, err := app.Build(ctx, settings, app.Options{Output: cli.output})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}

	rt := &commands.Runtime{Settings: settings, Service: a.Service, Close: a.Close}
	if a.Runs != nil {
		rt.Runs = a.Runs
	}
	return rt, nil
}
