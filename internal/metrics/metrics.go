package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
// All methods are no-ops on a nil receiver.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	wfsPagesFetched     prometheus.Counter
	loadRunsTotal       *prometheus.CounterVec
	loadDuration        prometheus.Histogram
	casesLoaded         prometheus.Gauge
}

// New creates a fresh Metrics registry with HTTP and dataset load metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geo311",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed by geo311",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "geo311",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by geo311",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	wfsPagesFetched := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "geo311",
		Name:      "wfs_pages_fetched_total",
		Help:      "WFS GetFeature pages fetched successfully",
	})

	loadRunsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geo311",
		Name:      "load_runs_total",
		Help:      "Dataset load attempts by outcome",
	}, []string{"outcome"})

	loadDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "geo311",
		Name:      "load_duration_seconds",
		Help:      "Duration of full pagination runs",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	})

	casesLoaded := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "geo311",
		Name:      "cases_loaded",
		Help:      "Number of case features in the current dataset",
	})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		wfsPagesFetched,
		loadRunsTotal,
		loadDuration,
		casesLoaded,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		wfsPagesFetched:     wfsPagesFetched,
		loadRunsTotal:       loadRunsTotal,
		loadDuration:        loadDuration,
		casesLoaded:         casesLoaded,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// IncPageFetched counts one successfully decoded WFS page.
func (m *Metrics) IncPageFetched() {
	if m == nil {
		return
	}
	m.wfsPagesFetched.Inc()
}

// ObserveLoad records a pagination run. outcome is "ok" or "error".
func (m *Metrics) ObserveLoad(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.loadRunsTotal.WithLabelValues(outcome).Inc()
	m.loadDuration.Observe(duration.Seconds())
}

// SetCasesLoaded records the size of the current dataset.
func (m *Metrics) SetCasesLoaded(n int) {
	if m == nil {
		return
	}
	m.casesLoaded.Set(float64(n))
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
