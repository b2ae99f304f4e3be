// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package ratecache

import (
	"sync"
	"time"
)

// Snapshot is a vector of cumulative counter values.
type Snapshot []float64

// Entry is a cached snapshot together with the time it was observed at.
type Entry struct {
	Snapshot   Snapshot
	ObservedAt time.Time
}

// Cache maps keys, such as "<container-id>-<pid>-interface-eth0", to the most
// recently observed counter snapshots. A Cache can be used concurrently,
// albeit a read-modify-write sequence on the same key by multiple goroutines
// needs to be serialized by the callers.
type Cache struct {
	now func() time.Time

	mu      sync.Mutex
	entries map[string]Entry
}

// Option configures a Cache when creating it with [New].
type Option func(*Cache)

// WithClock sets the function returning the current time, defaulting to
// [time.Now].
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New returns a new and empty Cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		now:     time.Now,
		entries: map[string]Entry{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the entry for the specified key, if any. A miss returns a zero
// Entry and false.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok
}

// Put stores the snapshot under the specified key, stamped with the current
// time, replacing any previous entry. The snapshot is copied.
func (c *Cache) Put(key string, s Snapshot) {
	c.putAt(key, s, c.now())
}

func (c *Cache) putAt(key string, s Snapshot, at time.Time) {
	e := Entry{
		Snapshot:   append(Snapshot(nil), s...),
		ObservedAt: at,
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = e
}

// Delete removes the entry for the specified key, if present.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Evict removes all entries for which the passed predicate returns true,
// returning the number of entries removed. The predicate must not call back
// into the cache.
func (c *Cache) Evict(pred func(key string, e Entry) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	evicted := 0
	for key, e := range c.entries {
		if pred(key, e) {
			delete(c.entries, key)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Now returns the current time according to the cache's clock.
func (c *Cache) Now() time.Time {
	return c.now()
}
