package cache

import (
	"sync"
	"time"
)

// Cache is a process-local map whose entries expire after a fixed TTL.
type Cache[K comparable, V any] struct {
	mu  sync.RWMutex
	ttl time.Duration
	now func() time.Time
	m   map[K]entry[V]

	lastSweep time.Time
}

type entry[V any] struct {
	val V
	exp time.Time
}

func New[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &Cache[K, V]{
		ttl: ttl,
		now: time.Now,
		m:   make(map[K]entry[V]),
	}
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}

	now := c.now()
	if !now.After(e.exp) {
		return e.val, true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// a Set may have refreshed the key since the read lock was released
	cur, ok := c.m[key]
	if !ok {
		return zero, false
	}
	if !now.After(cur.exp) {
		return cur.val, true
	}

	delete(c.m, key)
	return zero, false
}

// Set stores val for one TTL. Writes also drop expired entries, at most once
// per TTL, so keys that are never read again do not pile up.
func (c *Cache[K, V]) Set(key K, val V) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if now.Sub(c.lastSweep) >= c.ttl {
		for k, e := range c.m {
			if now.After(e.exp) {
				delete(c.m, k)
			}
		}
		c.lastSweep = now
	}

	c.m[key] = entry[V]{val: val, exp: now.Add(c.ttl)}
}

func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
}

func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
