package reqmetrics

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func closeManager(t *testing.T, m *BackendManager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Close(ctx))
}

func TestNormalizeInterval(t *testing.T) {
	tests := []struct {
		raw  string
		want Interval
	}{
		{"1h", Interval1h},
		{"8h", Interval8h},
		{"24h", Interval24h},
		{"", Interval24h},
		{"error", Interval24h},
		{"2h", Interval24h},
		{"1H", Interval24h},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeInterval(tt.raw))
		})
	}
	assert.Equal(t, 8*time.Hour, Interval8h.Duration())
}

func TestRetrieveNormalizesInterval(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := NewMockBackend(ctrl)
	backend.EXPECT().Setup(gomock.Any()).Return(nil).Times(1)
	backend.EXPECT().Aggregate(gomock.Any(), Interval24h).Return([]EndpointMetric{
		{Endpoint: "test-endpoint", AverageResponseTime: floatPtr(21), RequestsCount: 777},
	}, nil)
	backend.EXPECT().Aggregate(gomock.Any(), Interval1h).Return(nil, nil)

	m := NewManager(backend, ManagerConfig{})
	defer closeManager(t, m)

	result, err := m.Retrieve(context.Background(), "error")
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "24h", result[0].Interval)
	assert.Equal(t, int64(777), result[0].RequestsCount)

	result, err = m.Retrieve(context.Background(), "1h")
	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.Empty(t, result)
}

func TestRetrieveWrapsBackendErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := NewMockBackend(ctrl)
	backend.EXPECT().Setup(gomock.Any()).Return(nil)
	backend.EXPECT().Aggregate(gomock.Any(), gomock.Any()).Return(nil, errors.New("boom"))

	m := NewManager(backend, ManagerConfig{})
	defer closeManager(t, m)

	_, err := m.Retrieve(context.Background(), "8h")
	assert.ErrorIs(t, err, ErrAggregate)
	assert.Contains(t, err.Error(), "boom")
}

func TestSetupIsRetriedAfterFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := NewMockBackend(ctrl)
	gomock.InOrder(
		backend.EXPECT().Setup(gomock.Any()).Return(errors.New("cluster down")),
		backend.EXPECT().Setup(gomock.Any()).Return(nil),
	)
	backend.EXPECT().Aggregate(gomock.Any(), gomock.Any()).Return(nil, nil).Times(2)

	m := NewManager(backend, ManagerConfig{})
	defer closeManager(t, m)

	_, err := m.Retrieve(context.Background(), "1h")
	assert.ErrorIs(t, err, ErrSetup)

	_, err = m.Retrieve(context.Background(), "1h")
	require.NoError(t, err)
	_, err = m.Retrieve(context.Background(), "1h")
	require.NoError(t, err)
}

func TestSetupRunsOnceUnderConcurrency(t *testing.T) {
	var setups atomic.Int32
	once := initializer{fn: func(context.Context) error {
		setups.Add(1)
		time.Sleep(10 * time.Millisecond)
		return nil
	}}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, once.ensure(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), setups.Load())
}

func TestEnsureGivesUpWhenContextEnds(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	once := initializer{fn: func(context.Context) error {
		close(entered)
		<-release
		return nil
	}}

	go once.ensure(context.Background())
	<-entered

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := once.ensure(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)

	close(release)
	require.Eventually(t, func() bool {
		return once.ensure(context.Background()) == nil && once.done.Load()
	}, time.Second, 10*time.Millisecond)
}

func TestStoreRacingCloseIsAccountedFor(t *testing.T) {
	for i := 0; i < 50; i++ {
		backend := NewMemoryBackend()
		m := NewManager(backend, ManagerConfig{QueueSize: 64, Workers: 2})

		const writers = 4
		const perWriter = 20
		var wg sync.WaitGroup
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < perWriter; j++ {
					m.Store(BenchmarkRecord{Name: "racing", WallMS: 1})
				}
			}()
		}
		closeManager(t, m)
		wg.Wait()

		written := uint64(len(backend.Documents()))
		require.Equal(t, uint64(writers*perWriter), written+m.Dropped())
	}
}

func TestConcurrentStoreLosesNothing(t *testing.T) {
	backend := NewMemoryBackend()
	const writers = 10
	const perWriter = 50
	m := NewManager(backend, ManagerConfig{
		QueueSize: writers * perWriter,
		Workers:   4,
	})

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				m.Store(BenchmarkRecord{Name: "test-endpoint", WallMS: 4})
			}
		}()
	}
	wg.Wait()
	closeManager(t, m)

	assert.Zero(t, m.Dropped())
	assert.Len(t, backend.Documents(), writers*perWriter)
	assert.Equal(t, 1, backend.SetupCalls())

	result, err := m.Retrieve(context.Background(), "1h")
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, int64(writers*perWriter), result[0].RequestsCount)
}

func TestStoreDropsWhenQueueIsFull(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := NewMockBackend(ctrl)

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	backend.EXPECT().Setup(gomock.Any()).Return(nil)
	backend.EXPECT().Write(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, doc Document) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	}).Times(2)

	m := NewManager(backend, ManagerConfig{QueueSize: 1, Workers: 1})

	m.Store(BenchmarkRecord{Name: "first"})
	<-started // the worker holds "first"
	m.Store(BenchmarkRecord{Name: "second"}) // fills the queue
	m.Store(BenchmarkRecord{Name: "third"})  // dropped

	assert.Equal(t, uint64(1), m.Dropped())

	close(release)
	closeManager(t, m)
}

func TestStoreAfterCloseIsDropped(t *testing.T) {
	backend := NewMemoryBackend()
	m := NewManager(backend, ManagerConfig{})
	closeManager(t, m)

	m.Store(BenchmarkRecord{Name: "late"})

	assert.Equal(t, uint64(1), m.Dropped())
	assert.Empty(t, backend.Documents())
	// Close is idempotent.
	assert.NoError(t, m.Close(context.Background()))
}

func TestStoreStampsDocuments(t *testing.T) {
	backend := NewMemoryBackend()
	m := NewManager(backend, ManagerConfig{})
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	m.Store(BenchmarkRecord{Name: "stamped", WallMS: 12.5})
	closeManager(t, m)

	docs := backend.Documents()
	require.Len(t, docs, 1)
	assert.Equal(t, Document{Endpoint: "stamped", WallMS: 12.5, Timestamp: fixed}, docs[0])
}

func TestWriteFailuresDoNotReachCaller(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := NewMockBackend(ctrl)
	backend.EXPECT().Setup(gomock.Any()).Return(nil)
	backend.EXPECT().Write(gomock.Any(), gomock.Any()).Return(errors.New("disk full")).Times(3)

	m := NewManager(backend, ManagerConfig{Workers: 1})
	for i := 0; i < 3; i++ {
		m.Store(BenchmarkRecord{Name: "failing"})
	}
	closeManager(t, m)

	assert.Zero(t, m.Dropped())
}
