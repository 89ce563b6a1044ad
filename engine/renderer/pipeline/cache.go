package pipeline

import (
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// LayerStatistics describes one cache layer.
type LayerStatistics struct {
	Size      int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// HitRatio returns hits over lookups, 0 before the first lookup.
func (s LayerStatistics) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// cacheEntry is one cached value with its recency bookkeeping.
type cacheEntry[V any] struct {
	value    V
	lastUsed time.Time
	uses     uint64
}

// cacheLayer is a bounded least-recently-used map. Only capacity evictions reach onEvict;
// explicit removals and purges are silent.
type cacheLayer[K comparable, V any] struct {
	lru      *simplelru.LRU[K, *cacheEntry[V]]
	capacity int
	now      func() time.Time
	onEvict  func(K, V)
	silent   bool

	hits, misses, evictions uint64
}

func newCacheLayer[K comparable, V any](capacity int, now func() time.Time, onEvict func(K, V)) (*cacheLayer[K, V], error) {
	c := &cacheLayer[K, V]{
		capacity: capacity,
		now:      now,
		onEvict:  onEvict,
	}
	lru, err := simplelru.NewLRU[K, *cacheEntry[V]](capacity, c.evicted)
	if err != nil {
		return nil, fmt.Errorf("pipeline: cache of size %d: %w", capacity, err)
	}
	c.lru = lru
	return c, nil
}

func (c *cacheLayer[K, V]) evicted(key K, e *cacheEntry[V]) {
	if c.silent {
		return
	}
	c.evictions++
	if c.onEvict != nil {
		c.onEvict(key, e.value)
	}
}

// get returns the value for key, touching it on a hit.
func (c *cacheLayer[K, V]) get(key K) (V, bool) {
	e, ok := c.lru.Get(key)
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	e.lastUsed = c.now()
	e.uses++
	return e.value, true
}

// touch refreshes the recency of key without counting a lookup.
func (c *cacheLayer[K, V]) touch(key K) bool {
	e, ok := c.lru.Get(key)
	if !ok {
		return false
	}
	e.lastUsed = c.now()
	e.uses++
	return true
}

// peek returns the value for key without touching it or counting a lookup.
func (c *cacheLayer[K, V]) peek(key K) (V, bool) {
	e, ok := c.lru.Peek(key)
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

// add inserts key, evicting the least recently used entry first when the layer is full.
func (c *cacheLayer[K, V]) add(key K, value V) {
	c.lru.Add(key, &cacheEntry[V]{value: value, lastUsed: c.now(), uses: 1})
}

// remove drops key without counting an eviction.
func (c *cacheLayer[K, V]) remove(key K) bool {
	c.silent = true
	defer func() { c.silent = false }()
	return c.lru.Remove(key)
}

// resize changes the capacity, evicting least recently used entries that no longer fit.
func (c *cacheLayer[K, V]) resize(capacity int) int {
	c.capacity = capacity
	return c.lru.Resize(capacity)
}

// purge drops every entry without counting evictions. Counters are kept.
func (c *cacheLayer[K, V]) purge() {
	c.silent = true
	defer func() { c.silent = false }()
	c.lru.Purge()
}

// each calls fn for every entry from oldest to newest.
func (c *cacheLayer[K, V]) each(fn func(K, V)) {
	for _, k := range c.lru.Keys() {
		if e, ok := c.lru.Peek(k); ok {
			fn(k, e.value)
		}
	}
}

// lastUsed returns the last-used time of key.
func (c *cacheLayer[K, V]) lastUsed(key K) (time.Time, bool) {
	e, ok := c.lru.Peek(key)
	if !ok {
		return time.Time{}, false
	}
	return e.lastUsed, true
}

func (c *cacheLayer[K, V]) len() int {
	return c.lru.Len()
}

func (c *cacheLayer[K, V]) statistics() LayerStatistics {
	return LayerStatistics{
		Size:      c.lru.Len(),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}
