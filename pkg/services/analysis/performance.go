package analysis

import (
	"fmt"
	"math"
	"time"

	"github.com/de-tools/market-atlas/pkg/frame"
	"github.com/de-tools/market-atlas/pkg/models/domain"
)

const (
	RiskFreeRate = 0.02
	TradingDays  = 252
	DaysPerYear  = 365
)

// Performance summarizes one strategy's return series.
type Performance struct {
	Strategy         string
	TotalReturn      float64
	AnnualizedReturn float64
	MaxDrawdown      float64
	SharpeRatio      float64
	WinRate          float64
}

// Evaluate computes the performance of strategy from the <strategy>_Returns and
// <strategy>_Cumulative_Returns columns of f.
func Evaluate(f *frame.Frame, strategy string) (Performance, error) {
	returns, ok := f.Col(ReturnsCol(strategy))
	if !ok {
		return Performance{}, fmt.Errorf("frame has no %s column", ReturnsCol(strategy))
	}
	cumulative, ok := f.Col(CumulativeCol(strategy))
	if !ok {
		return Performance{}, fmt.Errorf("frame has no %s column", CumulativeCol(strategy))
	}
	if f.Len() == 0 {
		return Performance{}, fmt.Errorf("frame is empty")
	}

	index := f.Index()
	total := lastValid(cumulative) - 1

	return Performance{
		Strategy:         strategy,
		TotalReturn:      total,
		AnnualizedReturn: annualize(total, index[0], index[len(index)-1]),
		MaxDrawdown:      maxDrawdown(cumulative),
		SharpeRatio:      sharpe(returns),
		WinRate:          winRate(returns),
	}, nil
}

// Details renders the metrics as report rows.
func (p Performance) Details() []domain.ReportDetail {
	return []domain.ReportDetail{
		{Name: "Total Return", Value: FormatPercent(p.TotalReturn), Description: "Final cumulative return"},
		{Name: "Annualized Return", Value: FormatPercent(p.AnnualizedReturn), Description: "Total return scaled to 365 days"},
		{Name: "Maximum Drawdown", Value: FormatPercent(p.MaxDrawdown), Description: "Largest drop from a running peak"},
		{Name: "Sharpe Ratio", Value: FormatRatio(p.SharpeRatio), Description: "Annualized, 2% risk-free rate"},
		{Name: "Win Rate", Value: FormatPercent(p.WinRate), Description: "Share of periods with a positive return"},
	}
}

func annualize(total float64, start, end time.Time) float64 {
	days := int(end.Sub(start).Hours() / 24)
	if days <= 0 || math.IsNaN(total) {
		return math.NaN()
	}
	return math.Pow(1+total, float64(DaysPerYear)/float64(days)) - 1
}

func maxDrawdown(cumulative []float64) float64 {
	peak := math.Inf(-1)
	worst := math.NaN()
	for _, v := range cumulative {
		if math.IsNaN(v) {
			continue
		}
		peak = math.Max(peak, v)
		dd := v/peak - 1
		if math.IsNaN(worst) || dd < worst {
			worst = dd
		}
	}
	return worst
}

func sharpe(returns []float64) float64 {
	excess := AddScalar(returns, -RiskFreeRate/TradingDays)
	sd := stdDev(excess)
	if math.IsNaN(sd) || sd == 0 {
		return math.NaN()
	}
	return math.Sqrt(TradingDays) * mean(excess) / sd
}

func winRate(returns []float64) float64 {
	wins, total := 0, 0
	for _, r := range returns {
		if math.IsNaN(r) {
			continue
		}
		total++
		if r > 0 {
			wins++
		}
	}
	if total == 0 {
		return math.NaN()
	}
	return float64(wins) / float64(total)
}

func FormatPercent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

func FormatRatio(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}
