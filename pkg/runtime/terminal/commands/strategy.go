package commands

import (
	"fmt"
	"strings"

	"github.com/de-tools/market-atlas/pkg/runtime/app"
	"github.com/de-tools/market-atlas/pkg/runtime/terminal/export"
	"github.com/de-tools/market-atlas/pkg/services/config"
	"github.com/spf13/cobra"
)

type StrategyCmd struct {
	symbol       string
	period       string
	interval     string
	baseCurrency string
	profile      string
	windows      []int
	chartWindow  int
	load         Loader
	reporter     *export.Reporter
}

func NewStrategyCmd(load Loader, reporter *export.Reporter) *cobra.Command {
	sc := &StrategyCmd{load: load, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "strategy",
		Short: "Backtest the moving average strategy and save its artifacts",
		Args:  cobra.NoArgs,
		RunE:  sc.run,
	}

	cmd.Flags().StringVar(&sc.symbol, "symbol", "", "Ticker symbol (default from settings)")
	cmd.Flags().StringVar(&sc.period, "period", "", "Lookback range, e.g. 1mo, 6mo, 1y")
	cmd.Flags().StringVar(&sc.interval, "interval", "", "Bar interval, e.g. 1h, 1d")
	cmd.Flags().StringVar(&sc.baseCurrency, "base-currency", "", "Currency returns are reported in")
	cmd.Flags().StringVar(&sc.profile, "profile", "", "Named profile from the profiles file")
	cmd.Flags().IntSliceVar(&sc.windows, "windows", nil, "Moving average windows, e.g. 10,20,30")
	cmd.Flags().IntVar(&sc.chartWindow, "chart-window", 0, "Moving average drawn on the chart")

	return cmd
}

// DefaultRun runs the strategy with configured defaults only.
func DefaultRun(load Loader, reporter *export.Reporter) func(*cobra.Command, []string) error {
	sc := &StrategyCmd{load: load, reporter: reporter}
	return sc.run
}

func (sc *StrategyCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	rt, err := sc.load(ctx)
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	if sc.profile != "" {
		registry, err := config.NewRegistry(rt.Settings.Profiles.Path)
		if err != nil {
			return err
		}
		profile, err := registry.GetProfile(ctx, sc.profile)
		if err != nil {
			return err
		}
		rt.Settings.ApplyProfile(profile)
	}

	params := app.Params(rt.Settings)
	if sc.symbol != "" {
		params.Symbol = strings.ToUpper(sc.symbol)
	}
	if sc.period != "" {
		params.Period = sc.period
	}
	if sc.interval != "" {
		params.Interval = sc.interval
	}
	if sc.baseCurrency != "" {
		params.BaseCurrency = strings.ToUpper(sc.baseCurrency)
	}
	if len(sc.windows) > 0 {
		params.Windows = sc.windows
	}
	params.ChartWindow = sc.chartWindow

	fmt.Fprintf(cmd.OutOrStdout(), "Fetching %s data (%s, %s)...\n", params.Symbol, params.Period, params.Interval)
	out, err := rt.Service.RunStrategy(ctx, params)
	if out != nil && out.Report != nil && out.Manifest != nil {
		if rerr := sc.reporter.Handle(out.Report); rerr != nil {
			return rerr
		}
	}
	return err
}
