package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/de-tools/market-atlas/pkg/artifacts"
	"github.com/de-tools/market-atlas/pkg/chart"
	"github.com/de-tools/market-atlas/pkg/clock"
	"github.com/de-tools/market-atlas/pkg/marketdata/yahoo"
	"github.com/de-tools/market-atlas/pkg/metrics"
	"github.com/de-tools/market-atlas/pkg/models/domain"
	"github.com/de-tools/market-atlas/pkg/services/config"
	"github.com/de-tools/market-atlas/pkg/services/strategy"
	"github.com/de-tools/market-atlas/pkg/store/duckdb"
	"github.com/de-tools/market-atlas/pkg/store/duckdb/runs"
	"github.com/de-tools/market-atlas/pkg/store/s3"
	"github.com/rs/zerolog"
)

// App holds the components built from Settings.
type App struct {
	Settings *config.Settings
	Service  *strategy.Service
	// Runs is nil when the ledger is disabled.
	Runs    runs.Store
	Metrics *metrics.Registry

	db *sql.DB
}

type Options struct {
	// Output receives the "Saved ..." line of each written artifact.
	Output io.Writer
	Clock  clock.Clock
}

func Build(ctx context.Context, settings *config.Settings, opts Options) (*App, error) {
	logger := zerolog.Ctx(ctx)
	reg := metrics.NewRegistry()

	var renderer artifacts.ChartRenderer
	if settings.Output.Plots {
		renderer = chart.NewRenderer()
	}
	encoders, err := artifacts.DefaultEncoders(renderer, settings.Output.StatsFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to configure encoders: %w", err)
	}
	writer := artifacts.NewWriter(artifacts.Options{
		Clock:    opts.Clock,
		Encoders: encoders,
		Output:   opts.Output,
		Metrics:  reg,
	})

	marketData := yahoo.NewClient(yahoo.Config{
		BaseURL:        settings.Yahoo.BaseURL,
		RequestsPerSec: settings.Yahoo.RequestsPerSec,
		Burst:          settings.Yahoo.Burst,
		Timeout:        settings.Yahoo.Timeout,
	}, reg)

	a := &App{Settings: settings, Metrics: reg}

	svcOpts := strategy.Options{
		MarketData: marketData,
		Writer:     writer,
		Targets:    Targets(settings),
		Metrics:    reg,
		NoCharts:   !settings.Output.Plots,
	}

	if settings.Ledger.Path != "" {
		a.db, err = duckdb.NewDB(duckdb.Settings{DbPath: settings.Ledger.Path})
		if err != nil {
			return nil, fmt.Errorf("failed to create DuckDB instance: %w", err)
		}
		a.Runs, err = runs.NewStore(a.db)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create run store: %w", err)
		}
		svcOpts.Ledger = a.Runs
		logger.Debug().Str("path", settings.Ledger.Path).Msg("run ledger enabled")
	}

	if settings.S3.Bucket != "" {
		publisher, err := s3.NewPublisher(ctx, PublisherSettings(settings))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create publisher: %w", err)
		}
		svcOpts.Publisher = publisher
		logger.Debug().Str("bucket", settings.S3.Bucket).Msg("artifact publishing enabled")
	}

	a.Service, err = strategy.NewService(svcOpts)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Targets maps every artifact kind to its configured directory.
func Targets(settings *config.Settings) artifacts.Targets {
	return artifacts.Targets{
		domain.ArtifactData:  settings.Output.DataDir,
		domain.ArtifactPlot:  settings.Output.PlotDir,
		domain.ArtifactStats: settings.Output.StatsDir,
	}
}

func PublisherSettings(settings *config.Settings) s3.Settings {
	return s3.Settings{
		Bucket:  settings.S3.Bucket,
		Prefix:  settings.S3.Prefix,
		Region:  settings.S3.Region,
		Profile: settings.S3.Profile,
	}
}

// Params builds strategy parameters from the configured defaults.
func Params(settings *config.Settings) strategy.Params {
	return strategy.Params{
		Symbol:       settings.Strategy.Symbol,
		Period:       settings.Strategy.Period,
		Interval:     settings.Strategy.Interval,
		BaseCurrency: settings.Strategy.BaseCurrency,
		Windows:      settings.Strategy.Windows,
	}
}

// Close writes the metrics file when one is configured and closes the ledger.
func (a *App) Close() error {
	var errs []error
	if path := a.Settings.Output.MetricsFile; path != "" {
		errs = append(errs, a.Metrics.WriteToTextfile(path))
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
