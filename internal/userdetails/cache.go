// Package userdetails caches profiles fetched from the external user directory.
package userdetails

import (
	"sync"
	"time"

	"github.com/and161185/annotator/internal/model"
)

// DefaultTTL is the interval between full cache sweeps.
const DefaultTTL = 10 * time.Minute

// Entry is a cached profile.
type Entry struct {
	Details  model.UserDetails
	StoredAt time.Time
}

// Cache is a concurrency-safe login -> profile map with coarse expiry:
// once the next cleanup time passes, the next access clears everything.
type Cache struct {
	mu          sync.Mutex
	entries     map[string]Entry
	ttl         time.Duration
	nextCleanup time.Time // zero disables sweeping
	now         func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New constructs a cache that sweeps every ttl.
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{entries: make(map[string]Entry), ttl: ttl, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	c.nextCleanup = c.now().Add(ttl)
	return c
}

// sweepLocked clears the cache when the cleanup time has passed.
func (c *Cache) sweepLocked() {
	if c.nextCleanup.IsZero() {
		return
	}
	now := c.now()
	if now.Before(c.nextCleanup) {
		return
	}
	clear(c.entries)
	c.nextCleanup = now.Add(c.ttl)
}

// Cache stores or overwrites details for login. Empty logins are ignored.
func (c *Cache) Cache(login string, details model.UserDetails) {
	if login == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()
	c.entries[login] = Entry{Details: details, StoredAt: c.now()}
}

// Get returns cached details for login.
func (c *Cache) Get(login string) (model.UserDetails, bool) {
	if login == "" {
		return model.UserDetails{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()
	e, ok := c.entries[login]
	return e.Details, ok
}

// Size returns the number of cached entries.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry without touching the cleanup schedule.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// SetNextCleanupTime reschedules the sweep. The zero time disables it
// until set again.
func (c *Cache) SetNextCleanupTime(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextCleanup = t
}

// NextCleanupTime returns the scheduled sweep time (zero when disabled).
func (c *Cache) NextCleanupTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextCleanup
}
