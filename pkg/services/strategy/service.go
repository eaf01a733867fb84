package strategy

import (
	"context"
	"fmt"
	"slices"

	"github.com/de-tools/market-atlas/pkg/adapters"
	"github.com/de-tools/market-atlas/pkg/artifacts"
	"github.com/de-tools/market-atlas/pkg/marketdata/yahoo"
	"github.com/de-tools/market-atlas/pkg/metrics"
	"github.com/de-tools/market-atlas/pkg/models/domain"
	"github.com/de-tools/market-atlas/pkg/models/store"
	"github.com/de-tools/market-atlas/pkg/services/analysis"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultChartWindow is the moving average drawn on the strategy chart.
const DefaultChartWindow = 20

type MarketData interface {
	History(ctx context.Context, symbol string, rng yahoo.Range, interval yahoo.Interval) (*domain.PriceHistory, error)
	Info(ctx context.Context, symbol string) (*domain.TickerInfo, error)
	ExchangeRate(ctx context.Context, from, to string, rng yahoo.Range, interval yahoo.Interval) (*domain.PriceHistory, error)
}

type ArtifactWriter interface {
	Write(ctx context.Context, result *domain.AnalysisResult, targets artifacts.Targets) (*artifacts.Manifest, error)
}

type Recorder interface {
	Record(ctx context.Context, run *store.Run) error
}

type Publisher interface {
	Publish(ctx context.Context, manifest *artifacts.Manifest) ([]string, error)
}

type Options struct {
	MarketData MarketData
	Writer     ArtifactWriter
	Targets    artifacts.Targets
	// Ledger and Publisher are optional.
	Ledger    Recorder
	Publisher Publisher
	Metrics   *metrics.Registry
	// NoCharts skips chart rendering.
	NoCharts bool
	NewID    func() string
}

type Params struct {
	Symbol       string
	Period       string
	Interval     string
	BaseCurrency string
	Windows      []int
	ChartWindow  int
}

// Outcome is what a run produced. It is returned alongside errors raised after artifacts
// were written so callers can still report them.
type Outcome struct {
	Run       *domain.Run
	Manifest  *artifacts.Manifest
	Report    *domain.Report
	Published []string
}

type Service struct {
	marketData MarketData
	writer     ArtifactWriter
	targets    artifacts.Targets
	ledger     Recorder
	publisher  Publisher
	metrics    *metrics.Registry
	noCharts   bool
	newID      func() string
}

func NewService(opts Options) (*Service, error) {
	if opts.MarketData == nil {
		return nil, fmt.Errorf("market data source is required")
	}
	if opts.Writer == nil {
		return nil, fmt.Errorf("artifact writer is required")
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Service{
		marketData: opts.MarketData,
		writer:     opts.Writer,
		targets:    opts.Targets,
		ledger:     opts.Ledger,
		publisher:  opts.Publisher,
		metrics:    opts.Metrics,
		noCharts:   opts.NoCharts,
		newID:      opts.NewID,
	}, nil
}

// RunStrategy backtests the moving average strategy on symbol and writes the table, the
// strategy chart and the performance report of the run.
func (s *Service) RunStrategy(ctx context.Context, p Params) (out *Outcome, err error) {
	defer func() { s.metrics.ObserveRun(string(domain.RunCommandStrategy), err) }()

	if p.Symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	strategy := analysis.MAStrategy{Windows: p.Windows}
	if len(strategy.Windows) == 0 {
		strategy = analysis.DefaultMAStrategy()
	}
	window, err := chartWindow(p.ChartWindow, strategy.Windows)
	if err != nil {
		return nil, err
	}
	logger := zerolog.Ctx(ctx).With().Str("symbol", p.Symbol).Logger()

	logger.Info().Str("period", p.Period).Str("interval", p.Interval).Msg("fetching price history")
	history, err := s.marketData.History(ctx, p.Symbol, yahoo.Range(p.Period), yahoo.Interval(p.Interval))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", p.Symbol, err)
	}

	currency := history.Currency
	if p.BaseCurrency == "" {
		p.BaseCurrency = currency
	}
	fx, err := s.marketData.ExchangeRate(ctx, currency, p.BaseCurrency, yahoo.Range(p.Period), yahoo.Interval(p.Interval))
	if err != nil {
		// returns stay in the quote currency
		logger.Warn().Err(err).Str("from", currency).Str("to", p.BaseCurrency).Msg("could not fetch exchange rate")
		fx = nil
	}

	table, err := strategy.Compute(history, fx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute signals: %w", err)
	}

	returnsCurrency := currency
	switch {
	case table.Has(analysis.ColExchangeRate):
		returnsCurrency = p.BaseCurrency
	case fx != nil:
		logger.Warn().Str("from", currency).Str("to", p.BaseCurrency).
			Msg("exchange rate does not cover the price history, returns stay in the quote currency")
	}

	report := &domain.Report{
		Title:    fmt.Sprintf("%s Moving Average Strategy", p.Symbol),
		Symbol:   p.Symbol,
		Currency: returnsCurrency,
		Period:   period(history),
	}
	strategies := []string{analysis.BuyAndHold}
	for _, w := range strategy.Windows {
		strategies = append(strategies, analysis.MAName(w))
	}
	for _, name := range strategies {
		perf, err := analysis.Evaluate(table, name)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate %s: %w", name, err)
		}
		report.Sections = append(report.Sections, domain.ReportSection{
			Title:   sectionTitle(name, returnsCurrency),
			Details: perf.Details(),
		})
	}

	result := &domain.AnalysisResult{Symbol: p.Symbol, Table: table, Summary: report}
	if !s.noCharts {
		chart, err := analysis.StrategyChart(table, p.Symbol, currency, returnsCurrency, window)
		if err != nil {
			return nil, fmt.Errorf("failed to build chart: %w", err)
		}
		result.Charts = append(result.Charts, chart)
	}

	return s.finish(ctx, domain.RunCommandStrategy, result)
}

// RunAnalysis writes the technical indicator table, chart and basic statistics of symbol.
func (s *Service) RunAnalysis(ctx context.Context, p Params) (out *Outcome, err error) {
	defer func() { s.metrics.ObserveRun(string(domain.RunCommandAnalyze), err) }()

	if p.Symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}

	zerolog.Ctx(ctx).Info().Str("symbol", p.Symbol).Str("period", p.Period).Msg("fetching price history")
	history, err := s.marketData.History(ctx, p.Symbol, yahoo.Range(p.Period), yahoo.Interval(p.Interval))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", p.Symbol, err)
	}

	table, stats, err := analysis.TechnicalIndicators(history)
	if err != nil {
		return nil, fmt.Errorf("failed to compute indicators: %w", err)
	}

	report := &domain.Report{
		Title:    fmt.Sprintf("%s Technical Analysis", p.Symbol),
		Symbol:   p.Symbol,
		Currency: history.Currency,
		Period:   period(history),
		Sections: []domain.ReportSection{{
			Title:   "Basic Statistics",
			Details: stats.Details(history.Currency),
		}},
	}

	result := &domain.AnalysisResult{Symbol: p.Symbol, Table: table, Summary: report}
	if !s.noCharts {
		chart, err := analysis.TechnicalChart(table, p.Symbol)
		if err != nil {
			return nil, fmt.Errorf("failed to build chart: %w", err)
		}
		result.Charts = append(result.Charts, chart)
	}

	return s.finish(ctx, domain.RunCommandAnalyze, result)
}

func (s *Service) TickerInfo(ctx context.Context, symbol string) (*domain.TickerInfo, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	info, err := s.marketData.Info(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ticker info for %s: %w", symbol, err)
	}
	return info, nil
}

// finish writes the result, then records and publishes what was written. Nothing written
// is removed when a later step fails.
func (s *Service) finish(ctx context.Context, command domain.RunCommand, result *domain.AnalysisResult) (*Outcome, error) {
	out := &Outcome{Report: result.Summary}

	manifest, err := s.writer.Write(ctx, result, s.targets)
	out.Manifest = manifest
	if err != nil {
		return out, fmt.Errorf("failed to write artifacts: %w", err)
	}

	out.Run = &domain.Run{
		ID:        s.newID(),
		Symbol:    result.Symbol,
		Command:   command,
		Timestamp: manifest.Timestamp,
		StartedAt: manifest.CreatedAt,
		Artifacts: manifest.Locations,
	}

	logger := zerolog.Ctx(ctx).With().Str("run_id", out.Run.ID).Logger()
	if s.ledger != nil {
		if err := s.ledger.Record(ctx, adapters.MapDomainRunToStore(out.Run)); err != nil {
			return out, fmt.Errorf("failed to record run %s: %w", out.Run.ID, err)
		}
		logger.Debug().Msg("run recorded")
	}

	if s.publisher != nil {
		keys, err := s.publisher.Publish(ctx, manifest)
		out.Published = keys
		if err != nil {
			return out, fmt.Errorf("failed to publish run %s: %w", out.Run.ID, err)
		}
		logger.Info().Int("objects", len(keys)).Msg("run published")
	}

	return out, nil
}

func period(history *domain.PriceHistory) domain.TimePeriod {
	times := history.Times()
	return domain.NewTimePeriod(times[0], times[len(times)-1])
}

func sectionTitle(strategy, currency string) string {
	if strategy == analysis.BuyAndHold {
		return fmt.Sprintf("Buy & Hold Strategy (Never Sells) - Returns in %s", currency)
	}
	return fmt.Sprintf("%s Strategy - Returns in %s", strategy, currency)
}

// chartWindow picks the requested window, which must be one of windows. With no request it
// uses DefaultChartWindow when computed, else the middle window.
func chartWindow(requested int, windows []int) (int, error) {
	if len(windows) == 0 {
		windows = analysis.DefaultMAStrategy().Windows
	}
	if requested != 0 {
		if !slices.Contains(windows, requested) {
			return 0, fmt.Errorf("chart window %d is not one of the computed windows %v", requested, windows)
		}
		return requested, nil
	}
	if slices.Contains(windows, DefaultChartWindow) {
		return DefaultChartWindow, nil
	}
	return windows[len(windows)/2], nil
}
