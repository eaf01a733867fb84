package commands

import (
	"context"

	"github.com/de-tools/market-atlas/pkg/models/domain"
	"github.com/de-tools/market-atlas/pkg/models/store"
	"github.com/de-tools/market-atlas/pkg/services/config"
	"github.com/de-tools/market-atlas/pkg/services/strategy"
	"github.com/rs/zerolog"
)

type Service interface {
	RunStrategy(ctx context.Context, p strategy.Params) (*strategy.Outcome, error)
	RunAnalysis(ctx context.Context, p strategy.Params) (*strategy.Outcome, error)
	TickerInfo(ctx context.Context, symbol string) (*domain.TickerInfo, error)
}

type RunLister interface {
	List(ctx context.Context, limit int) ([]*store.Run, error)
}

// Runtime is what a command works with once settings are loaded.
type Runtime struct {
	Settings *config.Settings
	Service  Service
	// Runs is nil when the ledger is disabled.
	Runs  RunLister
	Close func() error
}

func (r *Runtime) close(ctx context.Context) {
	if r == nil || r.Close == nil {
		return
	}
	if err := r.Close(); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to release runtime")
	}
}

// Loader builds the Runtime. It is called after flags are parsed.
type Loader func(ctx context.Context) (*Runtime, error)
