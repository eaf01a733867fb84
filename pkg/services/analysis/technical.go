package analysis

import (
	"fmt"
	"math"

	"github.com/de-tools/market-atlas/pkg/frame"
	"github.com/de-tools/market-atlas/pkg/models/domain"
)

const VolatilityWindow = 20

// BasicStats are the headline numbers of a technical analysis.
type BasicStats struct {
	AverageReturn  float64
	MeanVolatility float64
	CurrentPrice   float64
}

func (s BasicStats) Details(currency string) []domain.ReportDetail {
	return []domain.ReportDetail{
		{Name: "Average Return", Value: FormatPercent(s.AverageReturn), Description: "Mean period return"},
		{Name: "Volatility", Value: FormatPercent(s.MeanVolatility), Description: "Mean 20-period standard deviation of returns"},
		{Name: "Current Price", Value: fmt.Sprintf("%.2f", s.CurrentPrice), Unit: currency, Description: "Last close"},
	}
}

// TechnicalIndicators adds MA20, Returns and Volatility to the price table.
func TechnicalIndicators(history *domain.PriceHistory) (*frame.Frame, BasicStats, error) {
	if history == nil || len(history.Bars) == 0 {
		return nil, BasicStats{}, fmt.Errorf("price history is empty")
	}

	f, err := priceFrame(history)
	if err != nil {
		return nil, BasicStats{}, err
	}
	closes := history.Closes()
	returns := PctChange(closes)
	volatility := RollingStd(returns, VolatilityWindow)

	if err := f.Set(MAName(20), RollingMean(closes, 20)); err != nil {
		return nil, BasicStats{}, err
	}
	if err := f.Set(ColReturns, returns); err != nil {
		return nil, BasicStats{}, err
	}
	if err := f.Set(ColVolatility, volatility); err != nil {
		return nil, BasicStats{}, err
	}

	stats := BasicStats{
		AverageReturn:  mean(returns),
		MeanVolatility: mean(volatility),
		CurrentPrice:   lastValid(closes),
	}
	if math.IsNaN(stats.CurrentPrice) {
		return nil, BasicStats{}, fmt.Errorf("price history has no close")
	}
	return f, stats, nil
}
