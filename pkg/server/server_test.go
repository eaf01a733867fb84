package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/de-tools/market-atlas/pkg/metrics"
	"github.com/de-tools/market-atlas/pkg/models/api"
	"github.com/de-tools/market-atlas/pkg/models/store"
	"github.com/de-tools/market-atlas/pkg/store/duckdb/runs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) List(ctx context.Context, limit int) ([]*store.Run, error) {
	args := m.Called(ctx, limit)
	out, _ := args.Get(0).([]*store.Run)
	return out, args.Error(1)
}

func (m *mockLedger) Get(ctx context.Context, id string) (*store.Run, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(*store.Run)
	return out, args.Error(1)
}

func TestWebAPI_Endpoints(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))

	ledger := new(mockLedger)
	reg := metrics.NewRegistry()
	reg.ObserveArtifact("data", 128)

	startedAt := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	run := &store.Run{
		ID:        "run-001",
		Symbol:    "AAPL",
		Command:   "strategy",
		Timestamp: "20250314_092653",
		StartedAt: startedAt,
		Artifacts: []store.Artifact{},
	}

	router := ConfigureRouter(Config{
		Addr:            ":8080",
		ShutdownTimeout: 10 * time.Second,
		Dependencies: Dependencies{
			Ledger:  ledger,
			Metrics: reg,
			Logger:  logger,
		},
	})
	testServer := httptest.NewServer(router)
	defer testServer.Close()

	tests := []struct {
		name           string
		path           string
		setupMocks     func()
		expectedStatus int
		expected       interface{}
		parseResponse  func([]byte) (interface{}, error)
	}{
		{
			name: "ListRuns",
			path: "/api/v1/runs?limit=5",
			setupMocks: func() {
				ledger.On("List", mock.Anything, 5).Return([]*store.Run{run}, nil)
			},
			expectedStatus: http.StatusOK,
			expected: []api.Run{{
				ID:        "run-001",
				Symbol:    "AAPL",
				Command:   "strategy",
				Timestamp: "20250314_092653",
				StartedAt: startedAt,
				Artifacts: []api.Artifact{},
			}},
			parseResponse: unmarshalResponse[[]api.Run](),
		},
		{
			name: "GetRun",
			path: "/api/v1/runs/run-001",
			setupMocks: func() {
				ledger.On("Get", mock.Anything, "run-001").Return(run, nil)
			},
			expectedStatus: http.StatusOK,
			expected: api.Run{
				ID:        "run-001",
				Symbol:    "AAPL",
				Command:   "strategy",
				Timestamp: "20250314_092653",
				StartedAt: startedAt,
				Artifacts: []api.Artifact{},
			},
			parseResponse: unmarshalResponse[api.Run](),
		},
		{
			name: "GetRun_NotFound",
			path: "/api/v1/runs/run-404",
			setupMocks: func() {
				ledger.On("Get", mock.Anything, "run-404").Return(nil, runs.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expected:       api.Error{Message: "run not found"},
			parseResponse:  unmarshalResponse[api.Error](),
		},
		{
			name:           "UnknownRoute",
			path:           "/api/v1/workspaces",
			setupMocks:     func() {},
			expectedStatus: http.StatusNotFound,
			expected:       "404 page not found\n",
			parseResponse: func(data []byte) (interface{}, error) {
				return string(data), nil
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.setupMocks()
			resp, err := http.Get(testServer.URL + tc.path)
			require.NoError(t, err, "Failed to send request")
			defer resp.Body.Close()

			assert.Equal(t, tc.expectedStatus, resp.StatusCode, "Status code mismatch")

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err, "Failed to read response body")

			actual, err := tc.parseResponse(body)
			require.NoError(t, err, "Failed to parse response")

			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestWebAPI_Metrics(t *testing.T) {
	reg := metrics.NewRegistry()
	reg.ObserveArtifact("plot", 2048)

	router := ConfigureRouter(Config{Dependencies: Dependencies{
		Ledger:  new(mockLedger),
		Metrics: reg,
		Logger:  zerolog.Nop(),
	}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `market_atlas_artifacts_written_total{kind="plot"} 1`)
}

func TestWebAPI_RecoversFromPanics(t *testing.T) {
	ledger := new(mockLedger)
	ledger.On("List", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		panic("boom")
	}).Return(nil, nil)

	router := ConfigureRouter(Config{Dependencies: Dependencies{
		Ledger:  ledger,
		Metrics: metrics.NewRegistry(),
		Logger:  zerolog.Nop(),
	}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func unmarshalResponse[T any]() func([]byte) (interface{}, error) {
	return func(data []byte) (interface{}, error) {
		var response T
		err := json.Unmarshal(data, &response)
		return response, err
	}
}

func TestWebAPI_MetricsExposeRequests(t *testing.T) {
	ledger := new(mockLedger)
	ledger.On("List", mock.Anything, 20).Return([]*store.Run{}, nil)
	reg := metrics.NewRegistry()
	require.NoError(t, reg.RegisterRuntimeCollectors())

	router := ConfigureRouter(Config{Dependencies: Dependencies{
		Ledger:  ledger,
		Metrics: reg,
		Logger:  zerolog.Nop(),
	}})

	for range 3 {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.NotEmpty(t, body)
	assert.Contains(t, body, `market_atlas_http_requests_total{method="GET",route="/api/v1/runs",status="200"} 3`)
	assert.Contains(t, body, "market_atlas_http_request_duration_seconds_bucket")
	assert.Contains(t, body, "go_goroutines")
}
