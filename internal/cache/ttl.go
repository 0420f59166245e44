package cache

import (
	"sync"
	"time"

	"github.com/smallbiznis/genstudio/internal/clock"
)

// Cache is a keyed store with per-entry expiry.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V, ttl time.Duration)
	Delete(key K)
	Purge() int
	Len() int
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is an in-memory Cache safe for concurrent use. Expired entries are
// dropped lazily on Get and in bulk by Purge. Every Delete advances the cache
// generation so that fills started before it can be discarded.
type TTLCache[K comparable, V any] struct {
	mu         sync.RWMutex
	clock      clock.Clock
	entries    map[K]entry[V]
	generation uint64
}

func NewTTLCache[K comparable, V any](clk clock.Clock) *TTLCache[K, V] {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &TTLCache[K, V]{
		clock:   clk,
		entries: make(map[K]entry[V]),
	}
}

func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if !c.clock.Now().Before(e.expiresAt) {
		c.mu.Lock()
		if current, still := c.entries[key]; still && current.expiresAt.Equal(e.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return zero, false
	}
	return e.value, true
}

func (c *TTLCache[K, V]) Set(key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.clock.Now().Add(ttl)}
	c.mu.Unlock()
}

func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.entries, key)
	c.generation++
	c.mu.Unlock()
}

// Generation reports the current generation. Read it before loading a value
// and pass it to SetIfGeneration.
func (c *TTLCache[K, V]) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// SetIfGeneration stores the value only if no Delete happened since gen was
// read, and reports whether it did.
func (c *TTLCache[K, V]) SetIfGeneration(key K, value V, ttl time.Duration, gen uint64) bool {
	if ttl <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return false
	}
	c.entries[key] = entry[V]{value: value, expiresAt: c.clock.Now().Add(ttl)}
	return true
}

// Purge removes expired entries and reports how many were dropped.
func (c *TTLCache[K, V]) Purge() int {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *TTLCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Purger is implemented by caches the janitor can sweep.
type Purger interface {
	Purge() int
}
