package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/oriys/searchgate/internal/metrics"
)

var errBackend = errors.New("backend failed")

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(name string, failures, successes int) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := New(name, Settings{FailureThreshold: failures, SuccessThreshold: successes, Timeout: time.Minute})
	cb.now = clock.now
	return cb, clock
}

func TestCircuitBreaker_StartsAsClosed(t *testing.T) {
	cb, _ := newTestBreaker("start", 3, 2)
	if cb.State() != StateClosed {
		t.Fatalf("expected StateClosed, got %s", cb.State())
	}
	if got := testutil.ToFloat64(metrics.BreakerState.WithLabelValues("start")); got != 0 {
		t.Fatalf("expected gauge 0, got %v", got)
	}
}

func TestCircuitBreaker_Defaults(t *testing.T) {
	cb := New("defaults", Settings{})
	if cb.settings.FailureThreshold != 5 || cb.settings.SuccessThreshold != 1 || cb.settings.Timeout != 30*time.Second {
		t.Fatalf("unexpected defaults: %+v", cb.settings)
	}
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	cb, _ := newTestBreaker("opens", 3, 2)

	cb.RecordFailure()
	cb.RecordFailure()
	if cb.State() != StateClosed {
		t.Fatalf("expected StateClosed after 2 failures, got %s", cb.State())
	}

	cb.RecordFailure()
	if cb.State() != StateOpen {
		t.Fatalf("expected StateOpen after 3 failures, got %s", cb.State())
	}
	if got := testutil.ToFloat64(metrics.BreakerState.WithLabelValues("opens")); got != float64(StateOpen) {
		t.Fatalf("expected gauge %d, got %v", StateOpen, got)
	}
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb, _ := newTestBreaker("reset", 2, 1)

	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	if cb.State() != StateClosed {
		t.Fatalf("expected StateClosed, got %s", cb.State())
	}
}

func TestCircuitBreaker_ExecuteRejectsWhenOpen(t *testing.T) {
	cb, _ := newTestBreaker("execute", 2, 1)

	for i := 0; i < 2; i++ {
		if err := cb.Execute(func() error { return errBackend }); !errors.Is(err, errBackend) {
			t.Fatalf("expected backend error, got %v", err)
		}
	}

	called := false
	err := cb.Execute(func() error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
	if called {
		t.Fatal("expected fn not to run while open")
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb, clock := newTestBreaker("recover", 2, 2)

	cb.RecordFailure()
	cb.RecordFailure()
	if cb.Allow() {
		t.Fatal("expected Allow() to return false in Open state")
	}

	clock.advance(time.Minute)
	if !cb.Allow() {
		t.Fatal("expected Allow() to return true after timeout")
	}
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected StateHalfOpen, got %s", cb.State())
	}

	cb.RecordSuccess()
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected StateHalfOpen after 1 success, got %s", cb.State())
	}
	cb.RecordSuccess()
	if cb.State() != StateClosed {
		t.Fatalf("expected StateClosed after 2 successes, got %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker("reopen", 2, 2)

	cb.RecordFailure()
	cb.RecordFailure()
	clock.advance(time.Minute)
	cb.Allow()

	cb.RecordFailure()
	if cb.State() != StateOpen {
		t.Fatalf("expected StateOpen, got %s", cb.State())
	}
	if cb.Allow() {
		t.Fatal("expected a fresh cool-down after reopening")
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half_open",
		State(42):     "unknown",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("State(%d).String() = %q, want %q", s, s.String(), want)
		}
	}
}
