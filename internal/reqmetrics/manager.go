package reqmetrics

import "context"

//go:generate mockgen -destination=mock_manager.go -package=reqmetrics github.com/oriys/searchgate/internal/reqmetrics Manager,Backend

// Manager persists benchmark records and serves aggregated statistics.
//
// Store must return without waiting for persistence; failures are not
// reported to the caller. Retrieve may block for the backing query.
type Manager interface {
	Store(record BenchmarkRecord)
	Retrieve(ctx context.Context, interval string) ([]EndpointMetric, error)
}

// Backend is the durable storage used by BackendManager.
type Backend interface {
	// Setup prepares the schema. It must be safe to call more than once.
	Setup(ctx context.Context) error
	Write(ctx context.Context, doc Document) error
	// Aggregate groups documents newer than now-interval by endpoint.
	Aggregate(ctx context.Context, interval Interval) ([]EndpointMetric, error)
}
