package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/de-tools/market-atlas/pkg/metrics"
	"github.com/de-tools/market-atlas/pkg/models/domain"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL  = "https://query1.finance.yahoo.com"
	providerName    = "yahoo"
	defaultCurrency = "USD"
	userAgent       = "Mozilla/5.0 (compatible; market-atlas/1.0)"
)

var (
	ErrProvider = errors.New("market data provider error")
	ErrNoData   = errors.New("no market data returned")
)

type Config struct {
	BaseURL        string
	RequestsPerSec float64
	Burst          int
	Timeout        time.Duration
	// BreakerFailures is the number of consecutive failures that opens the breaker.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
	// MaxResponseBytes caps the size of one chart response.
	MaxResponseBytes int64
}

func DefaultConfig() Config {
	return Config{
		BaseURL:         DefaultBaseURL,
		RequestsPerSec:  2,
		Burst:           4,
		Timeout:         30 * time.Second,
		BreakerFailures: 3,
		BreakerTimeout:  30 * time.Second,

		MaxResponseBytes: 16 << 20,
	}
}

// Client reads the Yahoo Finance v8 chart endpoint.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Registry
	maxBody int64
}

func NewClient(cfg Config, reg *metrics.Registry) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = def.RequestsPerSec
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = def.BreakerFailures
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = def.BreakerTimeout
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = def.MaxResponseBytes
	}

	failures := cfg.BreakerFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        providerName,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			// a symbol the provider does not know is not an outage
			return err == nil || errors.Is(err, ErrNoData) || errors.Is(err, ErrProvider)
		},
	})

	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.Burst),
		breaker: breaker,
		metrics: reg,
		maxBody: cfg.MaxResponseBytes,
	}
}

// History fetches the bars of symbol. Bars without a close are dropped.
func (c *Client) History(ctx context.Context, symbol string, rng Range, interval Interval) (*domain.PriceHistory, error) {
	res, err := c.chart(ctx, symbol, rng, interval)
	if err != nil {
		return nil, err
	}

	history := &domain.PriceHistory{
		Symbol:   symbol,
		Currency: res.Meta.Currency,
		Interval: string(interval),
	}
	if history.Currency == "" {
		history.Currency = defaultCurrency
	}
	if len(res.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: %s has no quotes", ErrNoData, symbol)
	}

	q := res.Indicators.Quote[0]
	for i, ts := range res.Timestamp {
		closeValue := value(q.Close, i)
		if math.IsNaN(closeValue) {
			continue
		}
		history.Bars = append(history.Bars, domain.Bar{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   value(q.Open, i),
			High:   value(q.High, i),
			Low:    value(q.Low, i),
			Close:  closeValue,
			Volume: value(q.Volume, i),
		})
	}
	if len(history.Bars) == 0 {
		return nil, fmt.Errorf("%w: %s has no bars for %s/%s", ErrNoData, symbol, rng, interval)
	}

	return history, nil
}

// Info returns descriptive data for symbol taken from the chart metadata.
func (c *Client) Info(ctx context.Context, symbol string) (*domain.TickerInfo, error) {
	res, err := c.chart(ctx, symbol, Range5d, Interval1d)
	if err != nil {
		return nil, err
	}

	m := res.Meta
	exchange := m.FullExchangeName
	if exchange == "" {
		exchange = m.ExchangeName
	}
	currency := m.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	return &domain.TickerInfo{
		Symbol:           symbol,
		LongName:         m.LongName,
		ShortName:        m.ShortName,
		Exchange:         exchange,
		InstrumentType:   m.InstrumentType,
		Currency:         currency,
		Timezone:         m.ExchangeTimezone,
		CurrentPrice:     m.RegularMarketPrice,
		FiftyTwoWeekHigh: m.FiftyTwoWeekHigh,
		FiftyTwoWeekLow:  m.FiftyTwoWeekLow,
	}, nil
}

// ExchangeRate fetches the from→to currency pair. It returns nil when no conversion is needed.
func (c *Client) ExchangeRate(ctx context.Context, from, to string, rng Range, interval Interval) (*domain.PriceHistory, error) {
	if from == to {
		return nil, nil
	}
	return c.History(ctx, ForexSymbol(from, to), rng, interval)
}

// ForexSymbol returns the Yahoo ticker of a currency pair, e.g. EURUSD=X.
func ForexSymbol(from, to string) string {
	return fmt.Sprintf("%s%s=X", from, to)
}

func (c *Client) chart(ctx context.Context, symbol string, rng Range, interval Interval) (*chartResult, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}

	logger := zerolog.Ctx(ctx).With().
		Str("provider", providerName).
		Str("symbol", symbol).
		Str("range", string(rng)).
		Str("interval", string(interval)).
		Logger()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for rate limiter: %w", err)
	}

	started := time.Now()
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, symbol, rng, interval)
	})
	c.metrics.ObserveProviderRequest(providerName, started, err)
	if err != nil {
		logger.Error().Err(err).Msg("chart request failed")
		return nil, err
	}

	logger.Debug().Dur("elapsed", time.Since(started)).Msg("chart request completed")
	return out.(*chartResult), nil
}

func (c *Client) fetch(ctx context.Context, symbol string, rng Range, interval Interval) (*chartResult, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), url.Values{
		"range":    []string{string(rng)},
		"interval": []string{string(interval)},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response for %s: %w", symbol, err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("response for %s exceeds %d bytes", symbol, c.maxBody)
	}

	var payload chartResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, symbol)
		}
		return nil, fmt.Errorf("failed to decode response for %s: %w", symbol, err)
	}

	if payload.Chart.Error != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrProvider, payload.Chart.Error.Code, payload.Chart.Error.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, symbol)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}

	return &payload.Chart.Result[0], nil
}

func value(values []*float64, i int) float64 {
	if i >= len(values) || values[i] == nil {
		return math.NaN()
	}
	return *values[i]
}
