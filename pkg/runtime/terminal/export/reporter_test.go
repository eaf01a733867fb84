package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/de-tools/market-atlas/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporter_Handle(t *testing.T) {
	start := time.Date(2025, 2, 3, 14, 30, 0, 0, time.UTC)
	report := &domain.Report{
		Title:    "AAPL Moving Average Strategy",
		Symbol:   "AAPL",
		Currency: "USD",
		Period:   domain.NewTimePeriod(start, start.AddDate(0, 0, 30)),
		Sections: []domain.ReportSection{{
			Title:   "MA20 Strategy - Returns in USD",
			Summary: map[string]interface{}{"Strategy": "MA20"},
			Details: []domain.ReportDetail{
				{Name: "Total Return", Value: "4.21%", Description: "Final cumulative return"},
				{Name: "Sharpe Ratio", Value: "1.37"},
			},
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, NewReporter(&buf).Handle(report))

	out := buf.String()
	assert.Contains(t, out, "AAPL Moving Average Strategy (30 days)")
	assert.Contains(t, out, "Symbol: AAPL (USD)")
	assert.Contains(t, out, "Active Period: 2025-02-03 14:30 to 2025-03-05 14:30")
	assert.Contains(t, out, "=== MA20 Strategy - Returns in USD ===")
	assert.Contains(t, out, "Strategy: MA20")
	assert.Contains(t, out, "| Total Return           | 4.21%          |")
	assert.Contains(t, out, "| Sharpe Ratio           | 1.37           |")
}

func TestReporter_HandleTicker(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewReporter(&buf).HandleTicker(&domain.TickerInfo{
		Symbol:           "AAPL",
		LongName:         "Apple Inc.",
		Exchange:         "NasdaqGS",
		Currency:         "USD",
		CurrentPrice:     189.5,
		FiftyTwoWeekHigh: 199.62,
	}))

	out := buf.String()
	assert.Contains(t, out, "=== AAPL Ticker Information ===")
	assert.Contains(t, out, "Company Name: Apple Inc.")
	assert.Contains(t, out, "Instrument Type: N/A")
	assert.Contains(t, out, "Current Price: 189.50 USD")
	assert.Contains(t, out, "52 Week High: 199.62 USD")
	assert.Contains(t, out, "Sector: N/A")
	assert.Contains(t, out, "Industry: N/A")
	assert.Contains(t, out, "Market Cap: N/A")
	assert.Contains(t, out, "Business Summary:\nN/A")
}

func TestReporter_HandleTicker_Profile(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewReporter(&buf).HandleTicker(&domain.TickerInfo{
		Symbol:    "AAPL",
		Sector:    "Technology",
		Industry:  "Consumer Electronics",
		MarketCap: 2.9e12,
		Summary:   strings.Repeat("a", 600),
	}))

	out := buf.String()
	assert.Contains(t, out, "Sector: Technology")
	assert.Contains(t, out, "Industry: Consumer Electronics")
	assert.Contains(t, out, "Market Cap: $2900000000000.00")
	assert.Contains(t, out, strings.Repeat("a", 500)+"...")
	assert.NotContains(t, out, strings.Repeat("a", 501))
}

func TestReporter_HandleRuns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewReporter(&buf).HandleRuns([]*domain.Run{{
		ID:        "run-001",
		Symbol:    "AAPL",
		Command:   domain.RunCommandStrategy,
		StartedAt: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
		Artifacts: []domain.OutputLocation{{Kind: domain.ArtifactData, Path: "/data/data_20250314_092653.csv"}},
	}}))

	assert.Equal(t,
		"run-001  strategy  AAPL  2025-03-14 09:26:53\n    data  /data/data_20250314_092653.csv\n",
		buf.String())

	buf.Reset()
	require.NoError(t, NewReporter(&buf).HandleRuns(nil))
	assert.Equal(t, "No runs recorded.\n", buf.String())
}
