package commands

import (
	"fmt"

	"github.com/de-tools/market-atlas/pkg/adapters"
	"github.com/de-tools/market-atlas/pkg/models/domain"
	"github.com/de-tools/market-atlas/pkg/runtime/terminal/export"
	"github.com/spf13/cobra"
)

func NewRunsCmd(load Loader, reporter *export.Reporter) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs and their artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close(cmd.Context())

			if rt.Runs == nil {
				return fmt.Errorf("run ledger is disabled; set ledger.path")
			}
			records, err := rt.Runs.List(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			runs := make([]*domain.Run, 0, len(records))
			for _, r := range records {
				runs = append(runs, adapters.MapStoreRunToDomain(r))
			}
			return reporter.HandleRuns(runs)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	return cmd
}
