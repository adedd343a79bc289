// Package circuitbreaker stops calling a failing dependency for a while
// after repeated failures, then lets a single probe through before closing.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State of a breaker.
type State int

const (
	StateClosed   State = iota // calls pass through
	StateOpen                  // calls are rejected until the cool-down ends
	StateHalfOpen              // one probe call is in flight
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned without calling the dependency.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ══════════════════════════════════════════════════════════════════════════════
// OPTIONS
// ══════════════════════════════════════════════════════════════════════════════

type settings struct {
	failureThreshold int
	successThreshold int
	coolDown         time.Duration
	onStateChange    func(name string, from, to State)
	isFailure        func(error) bool
	now              func() time.Time
}

// Option configures a breaker.
type Option func(*settings)

// WithFailureThreshold opens the breaker after n consecutive failures.
func WithFailureThreshold(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.failureThreshold = n
		}
	}
}

// WithSuccessThreshold closes a half-open breaker after n successful probes.
func WithSuccessThreshold(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.successThreshold = n
		}
	}
}

// WithTimeout is how long the breaker stays open before probing.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.coolDown = d
		}
	}
}

func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(s *settings) { s.onStateChange = fn }
}

func WithClock(fn func() time.Time) Option {
	return func(s *settings) { s.now = fn }
}

// WithIsFailure decides which errors count against the dependency.
// Errors it rejects are passed back but count as successes.
func WithIsFailure(fn func(error) bool) Option {
	return func(s *settings) { s.isFailure = fn }
}

// ══════════════════════════════════════════════════════════════════════════════
// BREAKER
// ══════════════════════════════════════════════════════════════════════════════

// Stats are lifetime counters.
type Stats struct {
	Successes int
	Failures  int
	Rejected  int
}

// CircuitBreaker guards calls to one dependency.
type CircuitBreaker struct {
	name string
	cfg  settings

	mu       sync.Mutex
	state    State
	failures int // consecutive, while closed
	probes   int // consecutive successes, while half-open
	probing  bool
	openedAt time.Time
	stats    Stats
}

// New creates a closed breaker. Defaults: 5 failures, 1 probe success,
// 30s cool-down.
func New(name string, opts ...Option) *CircuitBreaker {
	cfg := settings{
		failureThreshold: 5,
		successThreshold: 1,
		coolDown:         30 * time.Second,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &CircuitBreaker{name: name, cfg: cfg}
}

// Execute calls fn unless the breaker is open. A call made while another
// probe is in flight is rejected too.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.cfg.now().Sub(cb.openedAt) < cb.cfg.coolDown {
			cb.stats.Rejected++
			return ErrCircuitOpen
		}
		cb.transition(StateHalfOpen)
		fallthrough
	case StateHalfOpen:
		if cb.probing {
			cb.stats.Rejected++
			return ErrCircuitOpen
		}
		cb.probing = true
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	failed := err != nil
	if failed && cb.cfg.isFailure != nil {
		failed = cb.cfg.isFailure(err)
	}
	cb.probing = false

	if failed {
		cb.stats.Failures++
		cb.failures++
		if cb.state == StateHalfOpen || cb.failures >= cb.cfg.failureThreshold {
			cb.openedAt = cb.cfg.now()
			cb.transition(StateOpen)
		}
		return
	}

	cb.stats.Successes++
	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.probes++
		if cb.probes >= cb.cfg.successThreshold {
			cb.transition(StateClosed)
		}
	}
}

// transition resets the per-state counters. Caller holds the lock.
func (cb *CircuitBreaker) transition(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	cb.failures = 0
	cb.probes = 0
	if cb.cfg.onStateChange != nil {
		cb.cfg.onStateChange(cb.name, from, to)
	}
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stats
}

// FeedbackBreaker guards the AI feedback endpoint. A few failures open
// it so responses fall back to the placeholder analysis without waiting
// on timeouts. A caller giving up does not count against the service.
func FeedbackBreaker(threshold int, coolDown time.Duration, onStateChange func(name string, from, to State)) *CircuitBreaker {
	return New(
		"feedback-api",
		WithFailureThreshold(threshold),
		WithTimeout(coolDown),
		WithOnStateChange(onStateChange),
		WithIsFailure(func(err error) bool { return !errors.Is(err, context.Canceled) }),
	)
}
