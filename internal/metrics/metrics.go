package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Benchmark record outcomes.
const (
	OutcomeEnqueued = "enqueued"
	OutcomeDropped  = "dropped"
	OutcomeWritten  = "written"
	OutcomeFailed   = "failed"
)

// UnmatchedRoute labels requests that no registered route serves.
const UnmatchedRoute = "unmatched"

var (
	// RequestsTotal counts HTTP requests by route identifier.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchgate",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"route", "method", "status"},
	)

	// RequestDuration observes the request duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "searchgate",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// BenchmarkRecords counts benchmark records by what happened to them.
	BenchmarkRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchgate",
			Subsystem: "benchmark",
			Name:      "records_total",
			Help:      "Benchmark records by outcome (enqueued, dropped, written, failed).",
		},
		[]string{"outcome"},
	)

	// BenchmarkQueueDepth is the number of records waiting to be written.
	BenchmarkQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "searchgate",
			Subsystem: "benchmark",
			Name:      "queue_depth",
			Help:      "Benchmark records waiting in the write queue.",
		},
	)

	// BreakerState tracks circuit breaker state (0 closed, 1 open, 2 half open).
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "searchgate",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 open, 2 half open.",
		},
		[]string{"name"},
	)
)

func init() {
	prometheus.MustRegister(RequestsTotal, RequestDuration, BenchmarkRecords, BenchmarkQueueDepth, BreakerState)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRequest records metrics for a completed HTTP request.
func RecordRequest(route, method string, status int, duration time.Duration) {
	if route == "" {
		route = UnmatchedRoute
	}
	RequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	RequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordBenchmark counts one benchmark record outcome.
func RecordBenchmark(outcome string) {
	BenchmarkRecords.WithLabelValues(outcome).Inc()
}

// SetBenchmarkQueueDepth publishes the current write queue length.
func SetBenchmarkQueueDepth(n int) {
	BenchmarkQueueDepth.Set(float64(n))
}

// SetBreakerState publishes the state of the named circuit breaker.
func SetBreakerState(name string, state int) {
	BreakerState.WithLabelValues(name).Set(float64(state))
}
