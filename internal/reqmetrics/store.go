package reqmetrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/oriys/searchgate/internal/metrics"
)

var (
	ErrSetup     = errors.New("metrics store setup failed")
	ErrWrite     = errors.New("metrics store write failed")
	ErrAggregate = errors.New("metrics store aggregation failed")
)

// ManagerConfig controls the background write queue of a BackendManager.
// Store never waits for space: records that do not fit are dropped.
type ManagerConfig struct {
	QueueSize    int
	Workers      int
	WriteTimeout time.Duration
}

// DefaultManagerConfig returns the settings used when none are configured.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		QueueSize:    1024,
		Workers:      2,
		WriteTimeout: 5 * time.Second,
	}
}

func (c ManagerConfig) withDefaults() ManagerConfig {
	def := DefaultManagerConfig()
	if c.QueueSize <= 0 {
		c.QueueSize = def.QueueSize
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	return c
}

// BackendManager is the Manager used in production. Store enqueues records
// for background workers; the backend schema is set up lazily on first use.
type BackendManager struct {
	backend      Backend
	setup        initializer
	dispatcher   *dispatcher
	writeTimeout time.Duration
	now          func() time.Time

	logLimiter *rate.Limiter
	suppressed atomic.Uint64
}

// NewManager starts the write workers for backend.
func NewManager(backend Backend, cfg ManagerConfig) *BackendManager {
	cfg = cfg.withDefaults()
	m := &BackendManager{
		backend:      backend,
		writeTimeout: cfg.WriteTimeout,
		now:          time.Now,
		logLimiter:   rate.NewLimiter(rate.Every(10*time.Second), 1),
	}
	m.setup.fn = backend.Setup
	m.dispatcher = newDispatcher(cfg, m.persist)
	return m
}

// Store schedules record for persistence and returns immediately.
func (m *BackendManager) Store(record BenchmarkRecord) {
	if m.dispatcher.enqueue(record) {
		metrics.RecordBenchmark(metrics.OutcomeEnqueued)
		return
	}
	metrics.RecordBenchmark(metrics.OutcomeDropped)
	m.logFailure("benchmark record dropped", record, errors.New("write queue full or closed"))
}

// Retrieve aggregates the samples of the trailing interval. Unsupported
// interval values are treated as 24h; each result carries the window that
// was actually queried.
func (m *BackendManager) Retrieve(ctx context.Context, interval string) ([]EndpointMetric, error) {
	window := NormalizeInterval(interval)

	if err := m.setup.ensure(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSetup, err)
	}

	result, err := m.backend.Aggregate(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAggregate, err)
	}
	for i := range result {
		result[i].Interval = window.String()
	}
	if result == nil {
		result = []EndpointMetric{}
	}
	return result, nil
}

// Dropped returns how many records never reached the queue.
func (m *BackendManager) Dropped() uint64 {
	return m.dispatcher.dropped.Load()
}

// Close stops accepting records and drains the queue until ctx is done.
func (m *BackendManager) Close(ctx context.Context) error {
	return m.dispatcher.close(ctx)
}

func (m *BackendManager) persist(ctx context.Context, record BenchmarkRecord) {
	ctx, cancel := context.WithTimeout(ctx, m.writeTimeout)
	defer cancel()

	if err := m.setup.ensure(ctx); err != nil {
		metrics.RecordBenchmark(metrics.OutcomeFailed)
		m.logFailure("benchmark store setup failed", record, fmt.Errorf("%w: %w", ErrSetup, err))
		return
	}

	doc := Document{
		Endpoint:  record.Name,
		WallMS:    record.WallMS,
		Timestamp: m.now().UTC(),
	}
	if err := m.backend.Write(ctx, doc); err != nil {
		metrics.RecordBenchmark(metrics.OutcomeFailed)
		m.logFailure("benchmark write failed", record, fmt.Errorf("%w: %w", ErrWrite, err))
		return
	}
	metrics.RecordBenchmark(metrics.OutcomeWritten)
}

func (m *BackendManager) logFailure(msg string, record BenchmarkRecord, err error) {
	if !m.logLimiter.Allow() {
		m.suppressed.Add(1)
		return
	}
	slog.Warn(msg,
		slog.String("endpoint", record.Name),
		slog.String("error", err.Error()),
		slog.Uint64("suppressed", m.suppressed.Swap(0)),
	)
}

// initializer runs fn until it succeeds once. Concurrent callers wait for the
// attempt in progress instead of starting their own, or give up when their
// context ends first.
type initializer struct {
	semOnce sync.Once
	sem     chan struct{}
	done    atomic.Bool
	fn      func(context.Context) error
}

func (i *initializer) ensure(ctx context.Context) error {
	if i.done.Load() {
		return nil
	}

	i.semOnce.Do(func() { i.sem = make(chan struct{}, 1) })
	select {
	case i.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-i.sem }()

	if i.done.Load() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := i.fn(ctx); err != nil {
		return err
	}
	i.done.Store(true)
	return nil
}
