package domain

import "time"

type SeriesStyle int

const (
	StyleLine SeriesStyle = iota
	StyleDashed
	StyleDotted
	StyleBuyMarker
	StyleSellMarker
)

// Chart is a backend-independent figure description. Panels are stacked top to bottom.
type Chart struct {
	Title  string
	Panels []Panel
}

type Panel struct {
	Title  string
	YLabel string
	Series []Series
}

// Series is one plotted line or marker set. NaN values are not drawn.
type Series struct {
	Label  string
	Times  []time.Time
	Values []float64
	Color  string
	Style  SeriesStyle
}
