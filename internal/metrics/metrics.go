package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "minifeed",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "minifeed",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"service", "method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "minifeed",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"service", "method", "route"},
	)

	postOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "minifeed",
			Subsystem: "posts",
			Name:      "operations_total",
			Help:      "Post service operations by outcome.",
		},
		[]string{"operation", "result"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		postOperations,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// StartRequest marks a request in flight and returns the function that
// records its outcome. An empty route (unmatched request) is reported as
// "unmatched" to keep label cardinality bounded.
func StartRequest(service, method string) func(route string, status int) {
	start := time.Now()
	httpInFlight.Inc()
	return func(route string, status int) {
		httpInFlight.Dec()
		if route == "" {
			route = "unmatched"
		}
		m := strings.ToUpper(method)
		httpRequests.WithLabelValues(service, m, route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(service, m, route).Observe(time.Since(start).Seconds())
	}
}

// RecordPostOperation counts one post service call.
func RecordPostOperation(operation, result string) {
	postOperations.WithLabelValues(operation, result).Inc()
}
