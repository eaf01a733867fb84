package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the Prometheus collectors of market-atlas. All methods are safe on a nil
// receiver so metrics stay optional for callers.
type Registry struct {
	registry *prometheus.Registry

	ArtifactsWritten *prometheus.CounterVec
	ArtifactBytes    *prometheus.CounterVec
	Runs             *prometheus.CounterVec
	ProviderRequests *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec
	HTTPRequests     *prometheus.CounterVec
	HTTPLatency      *prometheus.HistogramVec
}

func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		ArtifactsWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "market_atlas_artifacts_written_total",
				Help: "Number of artifact files written, by kind",
			},
			[]string{"kind"},
		),
		ArtifactBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "market_atlas_artifact_bytes_total",
				Help: "Bytes written to artifact files, by kind",
			},
			[]string{"kind"},
		),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "market_atlas_runs_total",
				Help: "Completed analysis runs, by command and outcome",
			},
			[]string{"command", "outcome"},
		),
		ProviderRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "market_atlas_provider_requests_total",
				Help: "Market data requests, by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		ProviderLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "market_atlas_provider_request_duration_seconds",
				Help:    "Market data request latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"provider"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "market_atlas_http_requests_total",
				Help: "Web API requests, by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		HTTPLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "market_atlas_http_request_duration_seconds",
				Help:    "Web API request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
	}

	r.registry.MustRegister(
		r.ArtifactsWritten,
		r.ArtifactBytes,
		r.Runs,
		r.ProviderRequests,
		r.ProviderLatency,
		r.HTTPRequests,
		r.HTTPLatency,
	)
	return r
}

// RegisterRuntimeCollectors adds the Go runtime and process collectors. Long-running
// processes register them; one-shot CLI runs do not.
func (r *Registry) RegisterRuntimeCollectors() error {
	if r == nil {
		return nil
	}
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := r.registry.Register(c); err != nil {
			return fmt.Errorf("failed to register runtime collector: %w", err)
		}
	}
	return nil
}

// WriteToTextfile stores the current values in the Prometheus text format at path, for the
// node exporter textfile collector.
func (r *Registry) WriteToTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

// Handler exposes the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Gatherer(), promhttp.HandlerOpts{})
}

func (r *Registry) ObserveArtifact(kind string, bytes int64) {
	if r == nil {
		return
	}
	r.ArtifactsWritten.WithLabelValues(kind).Inc()
	r.ArtifactBytes.WithLabelValues(kind).Add(float64(bytes))
}

func (r *Registry) ObserveRun(command string, err error) {
	if r == nil {
		return
	}
	r.Runs.WithLabelValues(command, outcome(err)).Inc()
}

func (r *Registry) ObserveProviderRequest(provider string, started time.Time, err error) {
	if r == nil {
		return
	}
	r.ProviderRequests.WithLabelValues(provider, outcome(err)).Inc()
	r.ProviderLatency.WithLabelValues(provider).Observe(time.Since(started).Seconds())
}

func (r *Registry) ObserveHTTPRequest(route, method string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.HTTPLatency.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
