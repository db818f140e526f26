package ratelimit

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a controllable time source for deterministic tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// newTestLimiter creates a Limiter wired to the given fake clock.
func newTestLimiter(def Limit, clock *fakeClock) *Limiter {
	l := New(def)
	l.now = clock.Now
	return l
}

func TestAllowBasic(t *testing.T) {
	clock := newFakeClock(time.Now())
	l := newTestLimiter(Limit{Calls: 3, Period: time.Minute}, clock)

	for i := 0; i < 3; i++ {
		if !l.Allow("consumer-1", Limit{}) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("consumer-1", Limit{}) {
		t.Fatal("4th request should be denied")
	}
}

func TestAllowDifferentKeys(t *testing.T) {
	clock := newFakeClock(time.Now())
	l := newTestLimiter(Limit{Calls: 1, Period: time.Minute}, clock)

	if !l.Allow("a", Limit{}) {
		t.Fatal("first request for key 'a' should be allowed")
	}
	if l.Allow("a", Limit{}) {
		t.Fatal("second request for key 'a' should be denied")
	}
	// Different key should have its own window.
	if !l.Allow("b", Limit{}) {
		t.Fatal("first request for key 'b' should be allowed")
	}
}

func TestWindowResetsAfterPeriod(t *testing.T) {
	clock := newFakeClock(time.Now())
	l := newTestLimiter(Limit{Calls: 2, Period: time.Minute}, clock)

	l.Allow("k", Limit{})
	l.Allow("k", Limit{})
	if l.Allow("k", Limit{}) {
		t.Fatal("should be denied with exhausted window")
	}

	// Just shy of the period: still the same window.
	clock.Advance(59 * time.Second)
	if l.Allow("k", Limit{}) {
		t.Fatal("should still be denied before the period elapses")
	}

	// Period fully elapsed: fresh window, full quota again.
	clock.Advance(time.Second)
	for i := 0; i < 2; i++ {
		if !l.Allow("k", Limit{}) {
			t.Fatalf("request %d should be allowed in the new window", i+1)
		}
	}
	if l.Allow("k", Limit{}) {
		t.Fatal("new window should also be bounded")
	}
}

func TestRejectedCallsDoNotConsumeQuota(t *testing.T) {
	clock := newFakeClock(time.Now())
	l := newTestLimiter(Limit{Calls: 1, Period: time.Minute}, clock)

	l.Allow("k", Limit{})

	// A burst of rejected retries must not touch the window counter or
	// push the reset out.
	for i := 0; i < 10; i++ {
		if l.Allow("k", Limit{}) {
			t.Fatal("should be denied")
		}
	}

	_, remaining, resetAt := l.Status("k", Limit{})
	if remaining != 0 {
		t.Fatalf("remaining = %d, want 0", remaining)
	}
	if want := clock.Now().Add(time.Minute); !resetAt.Equal(want) {
		t.Fatalf("resetAt = %v, want %v", resetAt, want)
	}

	clock.Advance(time.Minute)
	if !l.Allow("k", Limit{}) {
		t.Fatal("should be allowed once the original window expires")
	}
}

func TestCustomLimitOverride(t *testing.T) {
	tests := []struct {
		name      string
		def       Limit
		custom    Limit
		wantAllow int
	}{
		{"custom higher than default", Limit{2, time.Minute}, Limit{5, time.Minute}, 5},
		{"custom lower than default", Limit{10, time.Minute}, Limit{3, time.Minute}, 3},
		{"zero custom uses default", Limit{5, time.Minute}, Limit{}, 5},
		{"custom missing period uses default", Limit{5, time.Minute}, Limit{Calls: 99}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock(time.Now())
			l := newTestLimiter(tt.def, clock)

			allowed := 0
			for i := 0; i < tt.wantAllow+2; i++ {
				if l.Allow("key", tt.custom) {
					allowed++
				}
			}
			if allowed != tt.wantAllow {
				t.Fatalf("expected %d allowed, got %d", tt.wantAllow, allowed)
			}
		})
	}
}

func TestConcurrentAccess(t *testing.T) {
	clock := newFakeClock(time.Now())
	l := newTestLimiter(Limit{Calls: 100, Period: time.Minute}, clock)

	var wg sync.WaitGroup
	allowed := make(chan bool, 200)

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- l.Allow("concurrent", Limit{})
		}()
	}

	wg.Wait()
	close(allowed)

	count := 0
	for ok := range allowed {
		if ok {
			count++
		}
	}
	if count != 100 {
		t.Fatalf("expected exactly 100 allowed, got %d", count)
	}
}

func TestStatus(t *testing.T) {
	clock := newFakeClock(time.Now())
	l := newTestLimiter(Limit{Calls: 10, Period: time.Minute}, clock)

	limit, remaining, _ := l.Status("s", Limit{})
	if limit != 10 || remaining != 10 {
		t.Fatalf("fresh window: got (%d, %d), want (10, 10)", limit, remaining)
	}

	l.Allow("s", Limit{})
	l.Allow("s", Limit{})
	l.Allow("s", Limit{})

	limit, remaining, resetAt := l.Status("s", Limit{})
	if limit != 10 || remaining != 7 {
		t.Fatalf("after 3 calls: got (%d, %d), want (10, 7)", limit, remaining)
	}
	if want := clock.Now().Add(time.Minute); !resetAt.Equal(want) {
		t.Fatalf("resetAt = %v, want %v", resetAt, want)
	}
}
