package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry is the dedicated Prometheus registry for the service
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// Solves counts solver runs by strategy and outcome
	Solves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cvrp_solves_total", Help: "Solver runs by strategy and outcome."},
		[]string{"strategy", "outcome"},
	)
	// SolveDuration tracks solver latency in milliseconds
	SolveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "cvrp_solve_duration_ms", Help: "Solver run duration in ms.", Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 30000}},
		[]string{"strategy"},
	)
	// RoutedPoints tracks how many points each successful solve routed
	RoutedPoints = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "cvrp_routed_points", Help: "Points routed per successful solve.", Buckets: prometheus.ExponentialBuckets(4, 2, 10)},
	)
	// CacheLookups counts solution cache lookups by result
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cvrp_solution_cache_lookups_total", Help: "Solution cache lookups by result."},
		[]string{"result"},
	)
)

// RegisterDefault registers collectors to the service registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(Solves)
		Registry.MustRegister(SolveDuration)
		Registry.MustRegister(RoutedPoints)
		Registry.MustRegister(CacheLookups)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once

// Handler exposes the service registry in the Prometheus text format
func Handler() http.Handler {
	RegisterDefault()
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveSolve records the outcome of one solver run
func ObserveSolve(strategy, outcome string, elapsed time.Duration, points int) {
	Solves.WithLabelValues(strategy, outcome).Inc()
	SolveDuration.WithLabelValues(strategy).Observe(float64(elapsed.Microseconds()) / 1000)
	if outcome == "ok" {
		RoutedPoints.Observe(float64(points))
	}
}
