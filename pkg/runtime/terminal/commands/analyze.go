package commands

import (
	"fmt"
	"strings"

	"github.com/de-tools/market-atlas/pkg/runtime/terminal/export"
	"github.com/de-tools/market-atlas/pkg/services/strategy"
	"github.com/spf13/cobra"
)

type AnalyzeCmd struct {
	symbol   string
	period   string
	interval string
	load     Loader
	reporter *export.Reporter
}

func NewAnalyzeCmd(load Loader, reporter *export.Reporter) *cobra.Command {
	ac := &AnalyzeCmd{load: load, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compute technical indicators and save their artifacts",
		Args:  cobra.NoArgs,
		RunE:  ac.run,
	}

	cmd.Flags().StringVar(&ac.symbol, "symbol", "", "Ticker symbol (default from settings)")
	cmd.Flags().StringVar(&ac.period, "period", "1y", "Lookback range")
	cmd.Flags().StringVar(&ac.interval, "interval", "1d", "Bar interval")

	return cmd
}

func (ac *AnalyzeCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	rt, err := ac.load(ctx)
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	params := strategy.Params{
		Symbol:   rt.Settings.Strategy.Symbol,
		Period:   ac.period,
		Interval: ac.interval,
	}
	if ac.symbol != "" {
		params.Symbol = strings.ToUpper(ac.symbol)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Fetching %s data (%s, %s)...\n", params.Symbol, params.Period, params.Interval)
	out, err := rt.Service.RunAnalysis(ctx, params)
	if out != nil && out.Report != nil && out.Manifest != nil {
		if rerr := ac.reporter.Handle(out.Report); rerr != nil {
			return rerr
		}
	}
	return err
}
