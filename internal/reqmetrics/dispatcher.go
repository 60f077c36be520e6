package reqmetrics

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/oriys/searchgate/internal/metrics"
)

// dispatcher hands records to a fixed set of workers through a bounded queue.
// enqueue never blocks: a record that does not fit is dropped and counted.
type dispatcher struct {
	ch        chan BenchmarkRecord
	done      chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	mu        sync.RWMutex // guards closed against in-flight sends
	closed    bool
	closeOnce sync.Once
	write     func(context.Context, BenchmarkRecord)
}

func newDispatcher(cfg ManagerConfig, write func(context.Context, BenchmarkRecord)) *dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &dispatcher{
		ch:     make(chan BenchmarkRecord, cfg.QueueSize),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		write:  write,
	}

	d.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go d.run()
	}

	return d
}

func (d *dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case record := <-d.ch:
			d.handle(record)
		case <-d.done:
			for {
				select {
				case record := <-d.ch:
					d.handle(record)
				default:
					return
				}
			}
		}
	}
}

func (d *dispatcher) handle(record BenchmarkRecord) {
	metrics.SetBenchmarkQueueDepth(len(d.ch))
	d.write(d.ctx, record)
}

// enqueue reports whether the record was accepted. An accepted record is
// always in the queue before done is closed, so the final drain sees it.
func (d *dispatcher) enqueue(record BenchmarkRecord) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.closed {
		select {
		case d.ch <- record:
			metrics.SetBenchmarkQueueDepth(len(d.ch))
			return true
		default:
		}
	}
	d.dropped.Add(1)
	return false
}

// close stops intake and waits for the workers to drain the queue. When ctx
// expires first, in-flight writes are cancelled and the rest is abandoned.
func (d *dispatcher) close(ctx context.Context) error {
	var err error
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.done)
		d.mu.Unlock()

		drained := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(drained)
		}()

		select {
		case <-drained:
		case <-ctx.Done():
			err = ctx.Err()
		}
		d.cancel()
	})
	return err
}
