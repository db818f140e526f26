// Package analytics provides resilient access to the upstream analytics
// API. Instability of that dependency is absorbed here — retry with
// exponential backoff, a shared circuit breaker, and a staleness-tagged
// cache — so callers only ever see a snapshot or ErrUnavailable.
package analytics

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrUnavailable is returned when the upstream cannot be reached and no
// cached snapshot exists to fall back on.
var ErrUnavailable = errors.New("analytics: upstream unavailable")

// RetryPolicy bounds the retry loop around a single fetch.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultRetryPolicy is three attempts with 500ms exponential backoff
// capped at 4s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseBackoff: 500 * time.Millisecond,
		MaxBackoff:  4 * time.Second,
	}
}

// backoff returns the delay before the given zero-based retry attempt.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := p.BaseBackoff << attempt
	if d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	return d
}

// Recorder is the optional metrics hook for cache and fallback outcomes.
type Recorder interface {
	IncCacheHit(fresh bool)
	IncCacheMiss()
	IncStaleServe()
	IncUpstreamFailure(transient bool)
}

// Client is the resilient analytics access layer.
type Client struct {
	source  Source
	breaker *Breaker
	cache   *Cache
	retry   RetryPolicy
	metrics Recorder
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewClient composes the source with a breaker and cache.
func NewClient(source Source, breaker *Breaker, cache *Cache, retry RetryPolicy) *Client {
	return &Client{
		source:  source,
		breaker: breaker,
		cache:   cache,
		retry:   retry,
		sleep:   sleepCtx,
	}
}

// SetMetrics sets the optional metrics recorder.
func (c *Client) SetMetrics(m Recorder) {
	c.metrics = m
}

// Breaker exposes the shared circuit breaker, for health reporting.
func (c *Client) Breaker() *Breaker {
	return c.breaker
}

// Fetch returns an activity snapshot for account. Order of preference:
// fresh cache entry, live fetch, stale cache entry. Only when all three are
// exhausted does it return ErrUnavailable. Non-retryable upstream errors
// (4xx) surface immediately but still fall back to a stale entry if one
// exists.
func (c *Client) Fetch(ctx context.Context, account string) (Snapshot, error) {
	if snap, fresh, ok := c.cache.Get(account); ok && fresh {
		if c.metrics != nil {
			c.metrics.IncCacheHit(true)
		}
		return snap, nil
	}
	if c.metrics != nil {
		c.metrics.IncCacheMiss()
	}

	activity, err := c.fetchWithBreaker(ctx, account)
	if err == nil {
		c.cache.Set(account, *activity)
		snap, _, _ := c.cache.Get(account)
		return snap, nil
	}

	if snap, _, ok := c.cache.Get(account); ok {
		if c.metrics != nil {
			c.metrics.IncStaleServe()
		}
		slog.Warn("serving stale analytics snapshot",
			"account", account,
			"fetched_at", snap.FetchedAt,
			"error", err,
		)
		return snap, nil
	}

	return Snapshot{}, errors.Join(ErrUnavailable, err)
}

// fetchWithBreaker guards one retried fetch with the shared breaker. The
// whole retried call counts as a single breaker event, so a half-open probe
// is exactly one upstream conversation.
func (c *Client) fetchWithBreaker(ctx context.Context, account string) (*AccountActivity, error) {
	if !c.breaker.Allow() {
		return nil, ErrUnavailable
	}

	activity, err := c.fetchWithRetry(ctx, account)
	if err != nil {
		c.resolveBreaker(err)
		if c.metrics != nil {
			c.metrics.IncUpstreamFailure(isTransient(err))
		}
		return nil, err
	}

	c.breaker.Success()
	return activity, nil
}

// resolveBreaker settles the breaker verdict for a failed fetch. Every call
// that won Allow() must land in exactly one of these branches, or a
// half-open probe slot would leak and wedge the breaker. Transient failures
// count against the upstream. A non-transient status response means the
// upstream answered, which reachability-wise is a success. Anything else
// (caller cancellation, local errors) says nothing about the upstream and
// only releases the probe slot.
func (c *Client) resolveBreaker(err error) {
	var se *StatusError
	switch {
	case isTransient(err):
		c.breaker.Failure()
	case errors.As(err, &se):
		c.breaker.Success()
	default:
		c.breaker.Abort()
	}
}

// fetchWithRetry attempts the fetch up to MaxAttempts times, backing off
// exponentially between attempts. Non-transient errors surface immediately.
func (c *Client) fetchWithRetry(ctx context.Context, account string) (*AccountActivity, error) {
	var lastErr error
	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.retry.backoff(attempt-1)); err != nil {
				return nil, err
			}
		}

		activity, err := c.source.FetchActivity(ctx, account)
		if err == nil {
			return activity, nil
		}
		if !isTransient(err) {
			return nil, err
		}

		lastErr = err
		slog.Debug("transient analytics failure",
			"account", account,
			"attempt", attempt+1,
			"error", err,
		)
	}
	return nil, lastErr
}

// sleepCtx waits for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
