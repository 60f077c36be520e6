// Package reqmetrics times selected HTTP routes, persists the measurements in
// the background and serves an aggregated latency summary.
package reqmetrics

import "time"

// BenchmarkRecord is one measured request: the route identifier and the
// elapsed wall-clock time in milliseconds.
type BenchmarkRecord struct {
	Name   string
	WallMS float64
}

// EndpointMetric is the aggregate for one route over a trailing interval.
// AverageResponseTime is nil when the bucket holds no samples.
type EndpointMetric struct {
	Endpoint            string   `json:"endpoint"`
	AverageResponseTime *float64 `json:"average_response_time"`
	Interval            string   `json:"interval"`
	RequestsCount       int64    `json:"requests_count"`
}

// Document is the persisted shape of a BenchmarkRecord.
type Document struct {
	Endpoint  string    `json:"endpoint"`
	WallMS    float64   `json:"wall_ms"`
	Timestamp time.Time `json:"timestamp"`
}

// Interval is a trailing aggregation window.
type Interval string

const (
	Interval1h  Interval = "1h"
	Interval8h  Interval = "8h"
	Interval24h Interval = "24h"

	DefaultInterval = Interval24h
)

// NormalizeInterval maps raw to one of the supported windows. Unknown and
// empty values fall back to DefaultInterval.
func NormalizeInterval(raw string) Interval {
	switch Interval(raw) {
	case Interval1h, Interval8h, Interval24h:
		return Interval(raw)
	default:
		return DefaultInterval
	}
}

// Duration returns the length of the window.
func (i Interval) Duration() time.Duration {
	switch i {
	case Interval1h:
		return time.Hour
	case Interval8h:
		return 8 * time.Hour
	default:
		return 24 * time.Hour
	}
}

func (i Interval) String() string {
	return string(i)
}
