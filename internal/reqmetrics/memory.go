package reqmetrics

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryBackend keeps documents in process memory. Data is lost on restart.
type MemoryBackend struct {
	mu     sync.RWMutex
	docs   []Document
	setups int
	now    func() time.Time
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{now: time.Now}
}

func (b *MemoryBackend) Setup(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setups++
	return nil
}

func (b *MemoryBackend) Write(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.docs = append(b.docs, doc)
	return nil
}

func (b *MemoryBackend) Aggregate(ctx context.Context, interval Interval) ([]EndpointMetric, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	since := b.now().Add(-interval.Duration())

	type bucket struct {
		sum   float64
		count int64
	}
	buckets := make(map[string]*bucket)

	b.mu.RLock()
	for _, doc := range b.docs {
		if doc.Timestamp.Before(since) {
			continue
		}
		bk, ok := buckets[doc.Endpoint]
		if !ok {
			bk = &bucket{}
			buckets[doc.Endpoint] = bk
		}
		bk.sum += doc.WallMS
		bk.count++
	}
	b.mu.RUnlock()

	result := make([]EndpointMetric, 0, len(buckets))
	for endpoint, bk := range buckets {
		avg := bk.sum / float64(bk.count)
		result = append(result, EndpointMetric{
			Endpoint:            endpoint,
			AverageResponseTime: &avg,
			Interval:            interval.String(),
			RequestsCount:       bk.count,
		})
	}
	SortMetrics(result)
	return result, nil
}

// Documents returns a copy of everything written so far.
func (b *MemoryBackend) Documents() []Document {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Document, len(b.docs))
	copy(out, b.docs)
	return out
}

// SetupCalls reports how many times Setup ran.
func (b *MemoryBackend) SetupCalls() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.setups
}

// SortMetrics orders metrics by request count (descending), then endpoint.
func SortMetrics(m []EndpointMetric) {
	sort.Slice(m, func(i, j int) bool {
		if m[i].RequestsCount != m[j].RequestsCount {
			return m[i].RequestsCount > m[j].RequestsCount
		}
		return m[i].Endpoint < m[j].Endpoint
	})
}
