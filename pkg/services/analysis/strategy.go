package analysis

import (
	"fmt"
	"math"

	"github.com/de-tools/market-atlas/pkg/frame"
	"github.com/de-tools/market-atlas/pkg/models/domain"
)

const (
	ColOpen         = "Open"
	ColHigh         = "High"
	ColLow          = "Low"
	ColClose        = "Close"
	ColVolume       = "Volume"
	ColReturns      = "Returns"
	ColExchangeRate = "Exchange_Rate"
	ColReturnsBase  = "Returns_Base"
	ColVolatility   = "Volatility"

	BuyAndHold = "BH"
)

func MAName(window int) string {
	return fmt.Sprintf("MA%d", window)
}

func SignalCol(strategy string) string     { return strategy + "_Signal" }
func ReturnsCol(strategy string) string    { return strategy + "_Returns" }
func CumulativeCol(strategy string) string { return strategy + "_Cumulative_Returns" }

// MAStrategy goes long while the close is above a moving average and short while it is below.
type MAStrategy struct {
	Windows []int
}

func DefaultMAStrategy() MAStrategy {
	return MAStrategy{Windows: []int{10, 20, 30}}
}

// Compute builds the strategy table for history. fx, when non-nil, is the exchange rate
// from the history currency into the base currency; returns are converted with it. The
// Exchange_Rate column is only present when fx overlaps the price history, so callers can
// tell converted returns from local ones with Has(ColExchangeRate).
func (s MAStrategy) Compute(history *domain.PriceHistory, fx *domain.PriceHistory) (*frame.Frame, error) {
	if history == nil || len(history.Bars) == 0 {
		return nil, fmt.Errorf("price history is empty")
	}
	if len(s.Windows) == 0 {
		return nil, fmt.Errorf("no moving average windows configured")
	}

	f, err := priceFrame(history)
	if err != nil {
		return nil, err
	}
	closes := history.Closes()

	for _, w := range s.Windows {
		if w <= 0 {
			return nil, fmt.Errorf("invalid moving average window %d", w)
		}
		if err := f.Set(MAName(w), RollingMean(closes, w)); err != nil {
			return nil, err
		}
	}

	returns := PctChange(closes)
	if err := f.Set(ColReturns, returns); err != nil {
		return nil, err
	}

	base := returns
	if fx != nil && len(fx.Bars) > 0 {
		rate := Align(f.Index(), fx.Times(), fx.Closes())
		if Valid(rate) {
			if err := f.Set(ColExchangeRate, rate); err != nil {
				return nil, err
			}
			base = convertReturns(returns, PctChange(rate))
		}
	}
	if err := f.Set(ColReturnsBase, base); err != nil {
		return nil, err
	}

	for _, w := range s.Windows {
		name := MAName(w)
		ma, _ := f.Col(name)
		signal := Signals(closes, ma)
		strategyReturns := multiply(Shift(signal, 1), base)

		if err := f.Set(SignalCol(name), signal); err != nil {
			return nil, err
		}
		if err := f.Set(ReturnsCol(name), strategyReturns); err != nil {
			return nil, err
		}
		if err := f.Set(CumulativeCol(name), CumProd(AddScalar(strategyReturns, 1))); err != nil {
			return nil, err
		}
	}

	if err := f.Set(ReturnsCol(BuyAndHold), base); err != nil {
		return nil, err
	}
	if err := f.Set(CumulativeCol(BuyAndHold), CumProd(AddScalar(base, 1))); err != nil {
		return nil, err
	}

	return f, nil
}

// Signals is +1 where price is above ma, -1 where below and 0 otherwise.
func Signals(price, ma []float64) []float64 {
	out := make([]float64, len(price))
	for i := range price {
		switch {
		case math.IsNaN(ma[i]) || math.IsNaN(price[i]):
		case price[i] > ma[i]:
			out[i] = 1
		case price[i] < ma[i]:
			out[i] = -1
		}
	}
	return out
}

// convertReturns compounds local returns with the exchange-rate change.
func convertReturns(local, fxChange []float64) []float64 {
	out := make([]float64, len(local))
	for i := range local {
		fxc := fxChange[i]
		if math.IsNaN(fxc) && !math.IsNaN(local[i]) && i > 0 {
			fxc = 0
		}
		out[i] = (1+local[i])*(1+fxc) - 1
	}
	return out
}

func multiply(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] * b[i]
	}
	return out
}

func priceFrame(history *domain.PriceHistory) (*frame.Frame, error) {
	n := len(history.Bars)
	open, high, low, closes, volume := make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
	for i, b := range history.Bars {
		open[i], high[i], low[i], closes[i], volume[i] = b.Open, b.High, b.Low, b.Close, b.Volume
	}

	f := frame.New(history.Times())
	for _, col := range []struct {
		name   string
		values []float64
	}{
		{ColOpen, open},
		{ColHigh, high},
		{ColLow, low},
		{ColClose, closes},
		{ColVolume, volume},
	} {
		if err := f.Set(col.name, col.values); err != nil {
			return nil, err
		}
	}
	return f, nil
}
