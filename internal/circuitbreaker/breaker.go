// Package circuitbreaker stops calling a failing backend until it has had
// time to recover.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	Closed   State = iota // calls pass through
	Open                  // calls are rejected
	HalfOpen              // one trial call is in flight
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrCircuitOpen is returned when the circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Breaker implements the circuit breaker pattern. Context cancellation of a
// call does not count as a backend failure.
type Breaker struct {
	mu              sync.Mutex
	state           State
	failures        int
	maxFailures     int
	resetTimeout    time.Duration
	lastFailureTime time.Time
	now             func() time.Time
	onChange        func(from, to State)
}

// New creates a Breaker that opens after maxFailures consecutive errors
// and lets a single trial call through once resetTimeout has passed.
func New(maxFailures int, resetTimeout time.Duration) *Breaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &Breaker{
		state:        Closed,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		now:          time.Now,
	}
}

// OnStateChange registers fn to run, under the breaker lock, on every
// transition. A breaker holds one hook; registering replaces the previous one.
func (b *Breaker) OnStateChange(fn func(from, to State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

// Do runs fn through the circuit breaker. If the circuit is open, or a
// half-open trial call is already running, ErrCircuitOpen is returned without
// calling fn.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}

	err := fn(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil && ctx.Err() == nil {
		b.failures++
		b.lastFailureTime = b.now()
		if b.state == HalfOpen || b.failures >= b.maxFailures {
			b.transition(Open)
		}
		return err
	}
	if err != nil {
		// Cancelled by the caller, not a backend failure.
		if b.state == HalfOpen {
			b.transition(Open)
		}
		return err
	}

	b.failures = 0
	b.transition(Closed)
	return nil
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Open:
		if b.now().Sub(b.lastFailureTime) <= b.resetTimeout {
			return ErrCircuitOpen
		}
		b.transition(HalfOpen)
	case HalfOpen:
		return ErrCircuitOpen
	}
	return nil
}

func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	if b.onChange != nil {
		b.onChange(from, to)
	}
}

// State returns the current state of the breaker.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
