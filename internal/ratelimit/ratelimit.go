package ratelimit

import (
	"sync"
	"time"
)

// Limit is a call quota over a fixed period.
type Limit struct {
	Calls  int           `json:"calls"`
	Period time.Duration `json:"-"`
}

// window tracks call counts for a single key within the current period.
type window struct {
	start time.Time
	count int
}

// Limiter implements a fixed-window rate limiter keyed by arbitrary string
// identifiers (e.g. consumer ID). The window resets in place once the period
// has fully elapsed; rejected calls never consume quota, so a consumer
// hammering an exhausted window cannot push its own reset further out.
type Limiter struct {
	mu           sync.Mutex
	windows      map[string]*window
	defaultLimit Limit
	now          func() time.Time // injectable clock for testing
}

// New creates a Limiter that applies defaultLimit to keys without a custom
// limit.
func New(defaultLimit Limit) *Limiter {
	return &Limiter{
		windows:      make(map[string]*window),
		defaultLimit: defaultLimit,
		now:          time.Now,
	}
}

// effectiveLimit returns custom when it is fully specified, otherwise the
// default limit.
func (l *Limiter) effectiveLimit(custom Limit) Limit {
	if custom.Calls > 0 && custom.Period > 0 {
		return custom
	}
	return l.defaultLimit
}

// getWindow returns the window for key, creating or resetting it as needed.
// Must be called with l.mu held.
func (l *Limiter) getWindow(key string, period time.Duration) *window {
	now := l.now()
	w, ok := l.windows[key]
	if !ok {
		w = &window{start: now}
		l.windows[key] = w
		return w
	}
	if now.Sub(w.start) >= period {
		w.start = now
		w.count = 0
	}
	return w
}

// Allow reports whether a call identified by key fits within the limit, and
// consumes one unit of quota when it does. Check and increment happen under
// a single lock acquisition: a consumer's sequential calls always observe
// the counts of its prior calls.
func (l *Limiter) Allow(key string, custom Limit) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	limit := l.effectiveLimit(custom)
	w := l.getWindow(key, limit.Period)

	if w.count >= limit.Calls {
		return false
	}
	w.count++
	return true
}

// Status returns the current quota state for key without consuming any of
// it. resetAt is when the current window expires.
func (l *Limiter) Status(key string, custom Limit) (limit int, remaining int, resetAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim := l.effectiveLimit(custom)
	w := l.getWindow(key, lim.Period)

	limit = lim.Calls
	remaining = lim.Calls - w.count
	if remaining < 0 {
		remaining = 0
	}
	resetAt = w.start.Add(lim.Period)
	return
}
