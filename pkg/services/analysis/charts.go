package analysis

import (
	"fmt"
	"math"

	"github.com/de-tools/market-atlas/pkg/frame"
	"github.com/de-tools/market-atlas/pkg/models/domain"
)

// StrategyChart plots price, the focus moving average and its signals above the
// cumulative returns of the strategy against buy and hold.
func StrategyChart(f *frame.Frame, symbol, currency, baseCurrency string, window int) (domain.Chart, error) {
	ma := MAName(window)
	cols, err := columns(f, ColClose, ma, SignalCol(ma), CumulativeCol(ma), CumulativeCol(BuyAndHold))
	if err != nil {
		return domain.Chart{}, err
	}
	closes, maValues, signal := cols[0], cols[1], cols[2]
	times := f.Index()

	buys, sells := nanSlice(len(closes)), nanSlice(len(closes))
	for i, s := range signal {
		switch s {
		case 1:
			buys[i] = closes[i]
		case -1:
			sells[i] = closes[i]
		}
	}

	price := domain.Panel{
		Title:  fmt.Sprintf("%s Price and %s vs Buy & Hold Comparison", symbol, ma),
		YLabel: fmt.Sprintf("Price (%s)", currency),
		Series: []domain.Series{
			{Label: fmt.Sprintf("Close Price (%s)", currency), Times: times, Values: closes, Color: "black"},
			{Label: fmt.Sprintf("%d-period MA", window), Times: times, Values: maValues, Color: "red", Style: domain.StyleDashed},
			{Label: ma + " Buy", Times: times, Values: buys, Color: "green", Style: domain.StyleBuyMarker},
			{Label: ma + " Sell", Times: times, Values: sells, Color: "red", Style: domain.StyleSellMarker},
		},
	}

	bh, strat := cols[4], cols[3]
	returns := domain.Panel{
		Title:  fmt.Sprintf("Cumulative Returns: Buy & Hold vs %s (in %s)", ma, baseCurrency),
		YLabel: "Cumulative Returns",
		Series: []domain.Series{
			{Label: "Buy & Hold (Never Sells) " + FormatPercent(lastValid(bh)-1), Times: times, Values: bh, Color: "blue"},
			{Label: ma + " Strategy " + FormatPercent(lastValid(strat)-1), Times: times, Values: strat, Color: "red"},
		},
	}

	panels := []domain.Panel{price, returns}
	if rate, ok := f.Col(ColExchangeRate); ok && !allNaN(rate) {
		panels = append(panels, domain.Panel{
			Title:  fmt.Sprintf("Exchange Rate (%s/%s)", currency, baseCurrency),
			YLabel: "Rate",
			Series: []domain.Series{{
				Label:  fmt.Sprintf("%s/%s", currency, baseCurrency),
				Times:  times,
				Values: rate,
				Color:  "purple",
				Style:  domain.StyleDotted,
			}},
		})
	}

	return domain.Chart{Title: symbol, Panels: panels}, nil
}

// TechnicalChart plots price with MA20 above the rolling volatility.
func TechnicalChart(f *frame.Frame, symbol string) (domain.Chart, error) {
	cols, err := columns(f, ColClose, MAName(20), ColVolatility)
	if err != nil {
		return domain.Chart{}, err
	}
	times := f.Index()

	return domain.Chart{
		Title: symbol,
		Panels: []domain.Panel{
			{
				Title:  fmt.Sprintf("%s Stock Price and Technical Indicators", symbol),
				YLabel: "Price",
				Series: []domain.Series{
					{Label: "Close Price", Times: times, Values: cols[0], Color: "blue"},
					{Label: "20-period MA", Times: times, Values: cols[1], Color: "red", Style: domain.StyleDashed},
				},
			},
			{
				YLabel: "Volatility",
				Series: []domain.Series{{Label: "Volatility", Times: times, Values: cols[2], Color: "green"}},
			},
		},
	}, nil
}

func columns(f *frame.Frame, names ...string) ([][]float64, error) {
	out := make([][]float64, len(names))
	for i, name := range names {
		col, ok := f.Col(name)
		if !ok {
			return nil, fmt.Errorf("frame has no %s column", name)
		}
		out[i] = col
	}
	return out, nil
}

func allNaN(values []float64) bool {
	for _, v := range values {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}
