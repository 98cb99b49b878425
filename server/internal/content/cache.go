package content

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// entry is a chart together with the time it was read from disk.
type entry struct {
	chart    Chart
	loadedAt time.Time
}

// cache is a thread-safe chart cache keyed by asset name. Entries older than
// ttl are treated as missing and removed by evict.
type cache struct {
	mu   sync.RWMutex
	data map[string]*entry
	ttl  time.Duration
	now  func() time.Time // injectable for deterministic tests
}

func newCache(ttl time.Duration) *cache {
	return &cache{
		data: make(map[string]*entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// get returns the cached chart for name if it is still within the TTL.
func (c *cache) get(name string) (Chart, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.data[name]
	if !ok || !e.loadedAt.After(c.now().Add(-c.ttl)) {
		return Chart{}, false
	}
	return e.chart, true
}

func (c *cache) put(ch Chart) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[ch.Name] = &entry{chart: ch, loadedAt: c.now()}
}

func (c *cache) drop(name string) {
	c.mu.Lock()
	delete(c.data, name)
	c.mu.Unlock()
}

func (c *cache) purge() {
	c.mu.Lock()
	c.data = make(map[string]*entry)
	c.mu.Unlock()
}

// count returns the number of entries held, including stale ones.
func (c *cache) count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// evict removes entries loaded at or before now minus TTL and returns how
// many were removed.
func (c *cache) evict(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := now.Add(-c.ttl)
	removed := 0
	for name, e := range c.data {
		if !e.loadedAt.After(cutoff) {
			delete(c.data, name)
			removed++
		}
	}
	return removed
}

// run evicts stale entries every half TTL (minimum 1 second) until ctx is
// cancelled.
func (c *cache) run(ctx context.Context) {
	interval := c.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := c.evict(now); n > 0 {
				slog.Debug("content: evicted cached charts", "count", n)
			}
		}
	}
}
