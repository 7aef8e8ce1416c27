// Package cache holds the TTL size cache that spares the exporter repeated
// remote size lookups.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/duke-git/lancet/v2/slice"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTTL matches the remote lookup staleness tolerance.
	DefaultTTL = 300 * time.Second
	// DefaultCapacity is the high-water mark before bulk eviction.
	DefaultCapacity = 100
)

type entry struct {
	key        string
	value      int64
	insertedAt time.Time
}

// SizeCache is a TTL key/value cache with bulk eviction: when the entry count
// exceeds the capacity, the oldest half is dropped in one pass. Amortizing
// cleanup against a rare high-water event is cheaper than evicting per
// insert. Safe under concurrent access.
type SizeCache struct {
	mu       sync.Mutex
	entries  map[string]entry
	ttl      time.Duration
	capacity int
	group    singleflight.Group

	now func() time.Time
}

// New builds a cache with the given TTL and capacity. Non-positive values
// fail construction.
func New(ttl time.Duration, capacity int) (*SizeCache, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %s", ttl)
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", capacity)
	}
	return &SizeCache{
		entries:  make(map[string]entry),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
	}, nil
}

// Get returns the cached value unless its age exceeds the TTL.
func (c *SizeCache) Get(key string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	if c.now().Sub(e.insertedAt) > c.ttl {
		delete(c.entries, key)
		return 0, false
	}
	return e.value, true
}

// Put inserts the value, evicting the oldest half of the cache when the
// entry count overflows the capacity.
func (c *SizeCache) Put(key string, value int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{key: key, value: value, insertedAt: c.now()}
	if len(c.entries) <= c.capacity {
		return
	}

	all := make([]entry, 0, len(c.entries))
	for _, e := range c.entries {
		all = append(all, e)
	}
	slice.SortBy(all, func(a, b entry) bool {
		return a.insertedAt.Before(b.insertedAt)
	})
	for _, e := range all[:c.capacity/2] {
		delete(c.entries, e.key)
	}
}

// Len reports the current entry count.
func (c *SizeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Fetch returns the cached value or performs the remote lookup, deduplicating
// concurrent misses for the same key via singleflight.
func (c *SizeCache) Fetch(ctx context.Context, key string, lookup func(context.Context) (int64, error)) (int64, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		size, err := lookup(ctx)
		if err != nil {
			return int64(0), err
		}
		c.Put(key, size)
		return size, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}
