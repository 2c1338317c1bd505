// Package cache memoizes key resolutions per user, key and website.
//
// Thread Safety:
//
//	Cache is safe for concurrent use. Concurrent misses on the same entry
//	share one load through singleflight. Invalidate bumps a generation so a
//	load that started before the invalidation never repopulates the cache.
package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/sitekit/viewscope/pkg/models"
)

// Key identifies one cached resolution.
type Key struct {
	UID       int64
	Key       string
	WebsiteID models.WebsiteID
}

// LoadFunc resolves a key on a miss.
type LoadFunc func(ctx context.Context) (models.ViewID, error)

// Observer is told about every lookup.
type Observer func(hit bool)

type Option func(*Cache)

// WithObserver registers fn to be called on every lookup.
func WithObserver(fn Observer) Option {
	return func(c *Cache) { c.observer = fn }
}

// Disabled turns the cache into a pass-through to the load function.
func Disabled() Option {
	return func(c *Cache) { c.disabled = true }
}

type Cache struct {
	mu         sync.RWMutex
	entries    map[Key]models.ViewID
	generation uint64
	flight     singleflight.Group
	observer   Observer
	disabled   bool

	hits   int64
	misses int64
}

func New(opts ...Option) *Cache {
	c := &Cache{entries: make(map[Key]models.ViewID)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a cached id without loading.
func (c *Cache) Get(k Key) (models.ViewID, bool) {
	if c.disabled {
		return 0, false
	}
	c.mu.RLock()
	id, ok := c.entries[k]
	c.mu.RUnlock()
	return id, ok
}

// GetOrLoad returns the cached id for k, calling load on a miss. Errors are
// not cached.
func (c *Cache) GetOrLoad(ctx context.Context, k Key, load LoadFunc) (models.ViewID, error) {
	if c.disabled {
		return load(ctx)
	}

	c.mu.RLock()
	id, ok := c.entries[k]
	gen := c.generation
	c.mu.RUnlock()
	if ok {
		c.observe(true)
		return id, nil
	}
	c.observe(false)

	flightKey := fmt.Sprintf("%d|%d|%d|%s", gen, k.UID, k.WebsiteID, k.Key)
	v, err, _ := c.flight.Do(flightKey, func() (interface{}, error) {
		id, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.generation == gen {
			c.entries[k] = id
		}
		c.mu.Unlock()
		return id, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(models.ViewID), nil
}

// Invalidate drops every entry.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[Key]models.ViewID)
	c.generation++
	c.mu.Unlock()
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

type Stats struct {
	Hits   int64
	Misses int64
}

func (c *Cache) Stats() Stats {
	return Stats{
		Hits:   atomic.LoadInt64(&c.hits),
		Misses: atomic.LoadInt64(&c.misses),
	}
}

func (c *Cache) observe(hit bool) {
	if hit {
		atomic.AddInt64(&c.hits, 1)
	} else {
		atomic.AddInt64(&c.misses, 1)
	}
	if c.observer != nil {
		c.observer(hit)
	}
}
