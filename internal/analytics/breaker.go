package analytics

import (
	"sync"
	"time"
)

// BreakerState is the circuit breaker's position.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

// String returns the lowercase state name.
func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Breaker is a circuit breaker guarding a single upstream dependency. One
// instance is shared by every concurrent fetch; all transitions happen under
// the mutex so two requests can never flip Open to HalfOpen at the same time
// and double-probe the upstream.
type Breaker struct {
	mu           sync.Mutex
	state        BreakerState
	failureCount int
	lastFailure  time.Time
	openedAt     time.Time

	threshold    int
	cooldown     time.Duration
	now          func() time.Time // injectable clock for testing
	onTransition func(from, to BreakerState)
}

// NewBreaker creates a closed breaker that opens after threshold consecutive
// failures and stays open for the cooldown duration.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// OnTransition registers a hook invoked (under the breaker lock) on every
// state change. Used for metrics; must not block.
func (b *Breaker) OnTransition(fn func(from, to BreakerState)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onTransition = fn
}

// transition must be called with b.mu held.
func (b *Breaker) transition(to BreakerState) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.onTransition != nil {
		b.onTransition(from, to)
	}
}

// Allow reports whether a call may proceed. While open, it fails fast until
// the cooldown elapses; the first caller after that wins the single
// half-open probe slot and later callers keep failing fast until the probe
// reports back.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if b.now().Sub(b.openedAt) >= b.cooldown {
			b.transition(BreakerHalfOpen)
			return true
		}
		return false
	default: // BreakerHalfOpen: probe already in flight
		return false
	}
}

// Success records a successful call. A half-open probe success closes the
// breaker and resets the failure count.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount = 0
	b.transition(BreakerClosed)
}

// Failure records a failed call. Reaching the threshold of consecutive
// failures opens the breaker; a failed half-open probe re-opens it with a
// fresh cooldown.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = b.now()

	switch b.state {
	case BreakerHalfOpen:
		b.failureCount = 0
		b.openedAt = b.now()
		b.transition(BreakerOpen)
	case BreakerClosed:
		b.failureCount++
		if b.failureCount >= b.threshold {
			b.openedAt = b.now()
			b.transition(BreakerOpen)
		}
	}
}

// Abort releases an in-flight half-open probe whose call ended without an
// upstream verdict, such as the caller cancelling mid-probe. The breaker
// returns to open with its original cooldown intact, so the probe slot is
// immediately available to the next caller instead of being consumed
// forever.
func (b *Breaker) Abort() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerHalfOpen {
		b.transition(BreakerOpen)
	}
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
