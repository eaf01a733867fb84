package commands

import (
	"strings"

	"github.com/de-tools/market-atlas/pkg/runtime/terminal/export"
	"github.com/spf13/cobra"
)

func NewInfoCmd(load Loader, reporter *export.Reporter) *cobra.Command {
	return &cobra.Command{
		Use:   "info <symbol>",
		Short: "Show ticker information",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close(cmd.Context())

			info, err := rt.Service.TickerInfo(cmd.Context(), strings.ToUpper(args[0]))
			if err != nil {
				return err
			}
			return reporter.HandleTicker(info)
		},
	}
}
