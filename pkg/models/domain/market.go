package domain

import "time"

type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceHistory is the bar series of one symbol, quoted in Currency.
type PriceHistory struct {
	Symbol   string
	Currency string
	Interval string
	Bars     []Bar
}

func (h *PriceHistory) Times() []time.Time {
	out := make([]time.Time, len(h.Bars))
	for i, b := range h.Bars {
		out[i] = b.Time
	}
	return out
}

func (h *PriceHistory) Closes() []float64 {
	out := make([]float64, len(h.Bars))
	for i, b := range h.Bars {
		out[i] = b.Close
	}
	return out
}

type TickerInfo struct {
	Symbol           string
	LongName         string
	ShortName        string
	Exchange         string
	InstrumentType   string
	Currency         string
	Timezone         string
	CurrentPrice     float64
	FiftyTwoWeekHigh float64
	FiftyTwoWeekLow  float64
	// Company profile fields. Empty or zero when the provider does not report them.
	Sector    string
	Industry  string
	MarketCap float64
	Summary   string
}
