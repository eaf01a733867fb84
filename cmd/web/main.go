package main

import (
	"fmt"
	"net"
	"os"

	"github.com/de-tools/market-atlas/pkg/metrics"
	"github.com/de-tools/market-atlas/pkg/server"
	"github.com/de-tools/market-atlas/pkg/services/config"
	"github.com/de-tools/market-atlas/pkg/store/duckdb"
	"github.com/de-tools/market-atlas/pkg/store/duckdb/runs"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var cfgPath string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Serve the Market Atlas run ledger",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "",
		"Path to the settings file (default is ./market-atlas.yaml)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("No .env file loaded: %v\n", err)
	}

	settings, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if level, err := zerolog.ParseLevel(settings.Log.Level); err == nil {
		logger = logger.Level(level)
	}
	ctx := logger.WithContext(cmd.Context())

	if settings.Ledger.Path == "" {
		return fmt.Errorf("ledger.path is required to serve runs")
	}
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: settings.Ledger.Path})
	if err != nil {
		return fmt.Errorf("failed to create DuckDB instance: %w", err)
	}
	defer db.Close()

	runStore, err := runs.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create run store: %w", err)
	}

	recent, err := runStore.List(ctx, 1)
	if err != nil {
		return fmt.Errorf("failed to read run ledger: %w", err)
	}
	logger.Info().Str("ledger", settings.Ledger.Path).Bool("empty", len(recent) == 0).Msg("run ledger opened")

	reg := metrics.NewRegistry()
	if err := reg.RegisterRuntimeCollectors(); err != nil {
		return err
	}

	addr := net.JoinHostPort(settings.Server.Host, settings.Server.Port)
	api := server.NewWebAPI(server.Config{
		Addr: addr,
		Dependencies: server.Dependencies{
			Ledger:  runStore,
			Metrics: reg,
			Logger:  logger,
		},
	})

	return api.Start()
}
