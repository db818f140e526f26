package analytics

import (
	"sync"
	"time"
)

// cacheEntry is immutable once stored; Set replaces the whole entry rather
// than mutating in place so concurrent readers never observe a torn value.
type cacheEntry struct {
	activity  AccountActivity
	fetchedAt time.Time
}

// Cache holds the most recent successful fetch per account. Entries age out
// of freshness after the TTL but are never evicted: a stale entry is the
// degraded-mode fallback when the upstream is down.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
	now     func() time.Time // injectable clock for testing
}

// NewCache creates a cache whose entries stay fresh for ttl.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached snapshot for account. fresh is true while the
// entry is within its TTL; ok is false when the account has never been
// fetched successfully.
func (c *Cache) Get(account string) (snap Snapshot, fresh bool, ok bool) {
	c.mu.RLock()
	e, ok := c.entries[account]
	c.mu.RUnlock()
	if !ok {
		return Snapshot{}, false, false
	}

	fresh = c.now().Sub(e.fetchedAt) < c.ttl
	return Snapshot{
		Activity:  e.activity,
		FetchedAt: e.fetchedAt,
		Stale:     !fresh,
	}, fresh, true
}

// Set stores a freshly fetched activity for account.
func (c *Cache) Set(account string, activity AccountActivity) {
	e := &cacheEntry{activity: activity, fetchedAt: c.now()}
	c.mu.Lock()
	c.entries[account] = e
	c.mu.Unlock()
}

// Len returns the number of cached accounts.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
