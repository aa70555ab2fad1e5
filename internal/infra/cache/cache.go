// Package cache provides a small in-memory TTL cache used for live sessions,
// upload progress and the in-memory key-value store.
package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// InMemory is a thread-safe in-memory cache with TTL. A zero or negative TTL
// means entries never expire.
type InMemory[T any] struct {
	mu    sync.RWMutex
	items map[string]entry[T]
	ttl   time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a new in-memory cache with the given TTL.
func New[T any](ttl time.Duration) *InMemory[T] {
	c := &InMemory[T]{
		items: make(map[string]entry[T]),
		ttl:   ttl,
		done:  make(chan struct{}),
	}
	if ttl > 0 {
		go c.cleanup()
	}
	return c
}

// Get retrieves a value from the cache. Returns false if not found or expired.
func (c *InMemory[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok || c.expired(e, time.Now()) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Set stores a value in the cache with the configured TTL.
func (c *InMemory[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry[T]{value: value, expiresAt: c.deadline()}
}

// Update replaces the value under key with fn's result in one step. fn gets
// the current value and whether it is live; returning false leaves the entry
// untouched. The TTL is renewed on write.
func (c *InMemory[T]) Update(key string, fn func(current T, ok bool) (T, bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var current T
	e, ok := c.items[key]
	if ok && !c.expired(e, time.Now()) {
		current = e.value
	} else {
		ok = false
	}
	if next, write := fn(current, ok); write {
		c.items[key] = entry[T]{value: next, expiresAt: c.deadline()}
	}
}

// Touch extends the life of an existing entry by one TTL.
func (c *InMemory[T]) Touch(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok && !c.expired(e, time.Now()) {
		e.expiresAt = c.deadline()
		c.items[key] = e
	}
}

// Delete removes a value from the cache.
func (c *InMemory[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Len counts live entries.
func (c *InMemory[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	n := 0
	for _, e := range c.items {
		if !c.expired(e, now) {
			n++
		}
	}
	return n
}

// Close stops the background cleanup. The cache stays usable.
func (c *InMemory[T]) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *InMemory[T]) deadline() time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(c.ttl)
}

func (c *InMemory[T]) expired(e entry[T], now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// cleanup periodically removes expired entries.
func (c *InMemory[T]) cleanup() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for k, v := range c.items {
				if c.expired(v, now) {
					delete(c.items, k)
				}
			}
			c.mu.Unlock()
		}
	}
}
