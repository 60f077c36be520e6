// Package circuitbreaker guards calls to Elasticsearch so a failing cluster
// is answered with fast 503s instead of piling up timed-out requests.
package circuitbreaker

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/oriys/searchgate/internal/metrics"
)

// ErrOpen is returned by Execute while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Settings tunes a breaker. Zero values fall back to 5 failures, 1 success
// and a 30s cool-down.
type Settings struct {
	FailureThreshold int
	SuccessThreshold int
	Timeout          time.Duration
}

func (s Settings) withDefaults() Settings {
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = 5
	}
	if s.SuccessThreshold <= 0 {
		s.SuccessThreshold = 1
	}
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}
	return s
}

type CircuitBreaker struct {
	mu           sync.Mutex
	name         string
	settings     Settings
	state        State
	failureCount int
	successCount int
	openedAt     time.Time
	now          func() time.Time
}

// New creates a closed breaker and publishes its state gauge.
func New(name string, settings Settings) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:     name,
		settings: settings.withDefaults(),
		state:    StateClosed,
		now:      time.Now,
	}
	metrics.SetBreakerState(name, int(StateClosed))
	return cb
}

// Name returns the breaker's label.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Execute runs fn when the breaker allows it and records the outcome. A nil
// error counts as a success, anything else as a failure. When the breaker is
// open fn is not called and ErrOpen is returned.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.Allow() {
		return ErrOpen
	}
	if err := fn(); err != nil {
		cb.RecordFailure()
		return err
	}
	cb.RecordSuccess()
	return nil
}

// Allow reports whether a call may proceed. An open breaker moves to half
// open once the cool-down has elapsed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if cb.now().Sub(cb.openedAt) >= cb.settings.Timeout {
			cb.transition(StateHalfOpen)
			return true
		}
		return false
	default:
		return false
	}
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.settings.SuccessThreshold {
			cb.transition(StateClosed)
		}
	case StateClosed:
		cb.failureCount = 0
	}
}

// RecordFailure counts a failed call. A failure while half open reopens the
// breaker immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateHalfOpen:
		cb.transition(StateOpen)
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.settings.FailureThreshold {
			cb.transition(StateOpen)
		}
	}
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// transition must be called with mu held.
func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.failureCount = 0
	cb.successCount = 0
	if to == StateOpen {
		cb.openedAt = cb.now()
	}

	metrics.SetBreakerState(cb.name, int(to))
	slog.Warn("circuit breaker state changed",
		slog.String("breaker", cb.name),
		slog.String("from", from.String()),
		slog.String("to", to.String()),
	)
}
