package cache

import (
	"sync"
	"time"

	"github.com/openagora/agora/internal/clock"
)

// Cache is a minimal in-memory cache with per-entry TTL.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V, ttl time.Duration)
	Delete(key K)
	Len() int
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

type ttlCache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]entry[V]
	clk     clock.Clock
}

// NewTTLCache returns a TTL cache backed by the system clock.
func NewTTLCache[K comparable, V any]() Cache[K, V] {
	return NewTTLCacheWithClock[K, V](clock.NewSystem())
}

// NewTTLCacheWithClock returns a TTL cache using the given clock.
func NewTTLCacheWithClock[K comparable, V any](clk clock.Clock) Cache[K, V] {
	return &ttlCache[K, V]{
		entries: make(map[K]entry[V]),
		clk:     clk,
	}
}

func (c *ttlCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	stored, ok := c.entries[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if stored.expiresAt.IsZero() || c.clk.Now().Before(stored.expiresAt) {
		return stored.value, true
	}

	c.mu.Lock()
	// Re-check under the write lock; a concurrent Set may have refreshed the entry.
	if current, still := c.entries[key]; still && current.expiresAt.Equal(stored.expiresAt) {
		delete(c.entries, key)
	}
	c.mu.Unlock()
	return zero, false
}

// Set stores value under key. A non-positive ttl keeps the entry until deleted.
func (c *ttlCache[K, V]) Set(key K, value V, ttl time.Duration) {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.clk.Now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expiresAt: expiresAt}
	c.mu.Unlock()
}

func (c *ttlCache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *ttlCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
