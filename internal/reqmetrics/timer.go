package reqmetrics

import (
	"sync"
	"time"
)

// RequestMeasured receives the record produced when a Benchmark stops.
type RequestMeasured func(BenchmarkRecord)

// Benchmark times a single scoped operation.
type Benchmark struct {
	name  string
	done  RequestMeasured
	start time.Time
	once  sync.Once
}

// StartBenchmark captures the start instant for name. done is called by Stop.
func StartBenchmark(name string, done RequestMeasured) *Benchmark {
	return &Benchmark{
		name:  name,
		done:  done,
		start: time.Now(),
	}
}

// Stop computes the elapsed time and hands the record to the done callback.
// Only the first call has any effect.
func (b *Benchmark) Stop() {
	b.once.Do(func() {
		record := b.takeRecord()
		if b.done != nil {
			b.done(record)
		}
	})
}

func (b *Benchmark) takeRecord() BenchmarkRecord {
	elapsed := time.Since(b.start)
	if elapsed < 0 {
		elapsed = 0
	}
	return BenchmarkRecord{
		Name:   b.name,
		WallMS: float64(elapsed) / float64(time.Millisecond),
	}
}

// Measure runs fn between StartBenchmark and Stop. Stop runs even if fn
// panics; the panic is not recovered.
func Measure(name string, done RequestMeasured, fn func()) {
	b := StartBenchmark(name, done)
	defer b.Stop()
	fn()
}
