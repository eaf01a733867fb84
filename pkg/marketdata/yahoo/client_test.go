package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/de-tools/market-atlas/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const aaplChart = `{
  "chart": {
    "result": [{
      "meta": {
        "currency": "USD",
        "symbol": "AAPL",
        "exchangeName": "NMS",
        "fullExchangeName": "NasdaqGS",
        "instrumentType": "EQUITY",
        "exchangeTimezoneName": "America/New_York",
        "regularMarketPrice": 189.5,
        "fiftyTwoWeekHigh": 199.62,
        "fiftyTwoWeekLow": 164.08,
        "longName": "Apple Inc.",
        "shortName": "Apple Inc."
      },
      "timestamp": [1741944600, 1741948200, 1741951800],
      "indicators": {
        "quote": [{
          "open":   [188.0, 188.5, null],
          "high":   [189.0, 189.9, null],
          "low":    [187.5, 188.1, null],
          "close":  [188.7, 189.5, null],
          "volume": [1200000, 980000, null]
        }]
      }
    }],
    "error": null
  }
}`

const notFound = `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`

type fixture struct {
	server   *httptest.Server
	requests []*http.Request
}

func newFixture(t *testing.T, status int, body string) *fixture {
	t.Helper()
	f := &fixture{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests = append(f.requests, r)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(f.server.Close)
	return f
}

func newTestClient(f *fixture, reg *metrics.Registry) *Client {
	return NewClient(Config{BaseURL: f.server.URL, RequestsPerSec: 100, Burst: 10}, reg)
}

func TestClient_History(t *testing.T) {
	f := newFixture(t, http.StatusOK, aaplChart)
	reg := metrics.NewRegistry()
	client := newTestClient(f, reg)

	history, err := client.History(context.Background(), "AAPL", Range1mo, Interval1h)
	require.NoError(t, err)

	assert.Equal(t, "AAPL", history.Symbol)
	assert.Equal(t, "USD", history.Currency)
	assert.Equal(t, "1h", history.Interval)
	require.Len(t, history.Bars, 2, "bars without a close are skipped")
	assert.Equal(t, time.Unix(1741944600, 0).UTC(), history.Bars[0].Time)
	assert.Equal(t, 188.7, history.Bars[0].Close)
	assert.Equal(t, 980000.0, history.Bars[1].Volume)

	require.Len(t, f.requests, 1)
	req := f.requests[0]
	assert.Equal(t, "/v8/finance/chart/AAPL", req.URL.Path)
	assert.Equal(t, "1mo", req.URL.Query().Get("range"))
	assert.Equal(t, "1h", req.URL.Query().Get("interval"))
	assert.NotEmpty(t, req.Header.Get("User-Agent"))

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.ProviderRequests.WithLabelValues("yahoo", "success")))
}

func TestClient_History_DefaultCurrency(t *testing.T) {
	body := `{"chart":{"result":[{"meta":{"symbol":"X"},"timestamp":[1741944600],
		"indicators":{"quote":[{"close":[1.5]}]}}],"error":null}}`
	client := newTestClient(newFixture(t, http.StatusOK, body), nil)

	history, err := client.History(context.Background(), "X", Range5d, Interval1d)
	require.NoError(t, err)
	assert.Equal(t, "USD", history.Currency)
	require.Len(t, history.Bars, 1)
	assert.True(t, history.Bars[0].Open != history.Bars[0].Open, "missing open is NaN")
}

func TestClient_History_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "provider error", status: http.StatusNotFound, body: notFound, wantErr: ErrProvider},
		{name: "empty result", status: http.StatusOK, body: `{"chart":{"result":[],"error":null}}`, wantErr: ErrNoData},
		{
			name:    "only null closes",
			status:  http.StatusOK,
			body:    `{"chart":{"result":[{"meta":{},"timestamp":[1],"indicators":{"quote":[{"close":[null]}]}}],"error":null}}`,
			wantErr: ErrNoData,
		},
		{
			name:    "no quotes",
			status:  http.StatusOK,
			body:    `{"chart":{"result":[{"meta":{},"timestamp":[1],"indicators":{"quote":[]}}],"error":null}}`,
			wantErr: ErrNoData,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(newFixture(t, tc.status, tc.body), nil)
			_, err := client.History(context.Background(), "ZZZZ", Range1mo, Interval1d)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestClient_History_ServerError(t *testing.T) {
	reg := metrics.NewRegistry()
	client := newTestClient(newFixture(t, http.StatusBadGateway, "upstream unavailable"), reg)

	_, err := client.History(context.Background(), "AAPL", Range1mo, Interval1d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.ProviderRequests.WithLabelValues("yahoo", "error")))
}

func TestClient_History_ResponseTooLarge(t *testing.T) {
	f := newFixture(t, http.StatusOK, aaplChart)
	client := NewClient(Config{BaseURL: f.server.URL, RequestsPerSec: 100, Burst: 10, MaxResponseBytes: 64}, nil)

	_, err := client.History(context.Background(), "AAPL", Range1mo, Interval1h)
	assert.ErrorContains(t, err, "exceeds 64 bytes")
}

func TestClient_BreakerOpensAfterFailures(t *testing.T) {
	f := newFixture(t, http.StatusServiceUnavailable, "down")
	client := NewClient(Config{
		BaseURL:         f.server.URL,
		RequestsPerSec:  100,
		Burst:           10,
		BreakerFailures: 2,
		BreakerTimeout:  time.Minute,
	}, nil)

	for i := 0; i < 2; i++ {
		_, err := client.History(context.Background(), "AAPL", Range1mo, Interval1d)
		require.Error(t, err)
	}

	_, err := client.History(context.Background(), "AAPL", Range1mo, Interval1d)
	assert.Error(t, err)
	assert.Len(t, f.requests, 2, "open breaker must short-circuit the request")
}

func TestClient_Info(t *testing.T) {
	f := newFixture(t, http.StatusOK, aaplChart)
	client := newTestClient(f, nil)

	info, err := client.Info(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc.", info.LongName)
	assert.Equal(t, "NasdaqGS", info.Exchange)
	assert.Equal(t, "EQUITY", info.InstrumentType)
	assert.Equal(t, 189.5, info.CurrentPrice)
	assert.Equal(t, 199.62, info.FiftyTwoWeekHigh)
	assert.Equal(t, "America/New_York", info.Timezone)
}

func TestClient_ExchangeRate(t *testing.T) {
	t.Run("same currency", func(t *testing.T) {
		f := newFixture(t, http.StatusOK, aaplChart)
		client := newTestClient(f, nil)

		rate, err := client.ExchangeRate(context.Background(), "USD", "USD", Range1mo, Interval1h)
		require.NoError(t, err)
		assert.Nil(t, rate)
		assert.Empty(t, f.requests)
	})

	t.Run("currency pair", func(t *testing.T) {
		f := newFixture(t, http.StatusOK, aaplChart)
		client := newTestClient(f, nil)

		rate, err := client.ExchangeRate(context.Background(), "EUR", "USD", Range1mo, Interval1h)
		require.NoError(t, err)
		require.NotNil(t, rate)
		assert.Equal(t, "EURUSD=X", rate.Symbol)
		require.Len(t, f.requests, 1)
		assert.Equal(t, "/v8/finance/chart/EURUSD=X", f.requests[0].URL.Path)
	})
}

func TestClient_RequiresSymbol(t *testing.T) {
	client := newTestClient(newFixture(t, http.StatusOK, aaplChart), nil)
	_, err := client.History(context.Background(), "", Range1mo, Interval1d)
	assert.Error(t, err)
}

func TestClient_CancelledContext(t *testing.T) {
	client := newTestClient(newFixture(t, http.StatusOK, aaplChart), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.History(ctx, "AAPL", Range1mo, Interval1d)
	assert.Error(t, err)
}
