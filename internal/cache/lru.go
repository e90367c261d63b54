// CineLens - Personal Media Taste Engine
// Copyright 2026 CineLens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinelens/cinelens

// Package cache provides a bounded, time-boxed LRU cache used to limit
// calls to the catalog metadata provider.
package cache

import (
	"sync"
	"time"
)

// entry is a node in the LRU's doubly-linked list.
type entry[V any] struct {
	key       string
	value     V
	prev      *entry[V]
	next      *entry[V]
	expiresAt time.Time
}

// LRU implements a thread-safe least-recently-used cache with TTL support.
// It provides O(1) Get, Add, Remove, and eviction.
//
// The implementation uses a doubly-linked list with sentinel head/tail nodes
// for ordering and a map for lookups. head.next is the most recently used
// entry, tail.prev the least recently used.
//
// Reads are safe from multiple goroutines. The cache has a single logical
// writer in the engine design, but writes are still mutex-guarded so that
// misuse degrades to contention rather than corruption.
type LRU[V any] struct {
	mu sync.Mutex

	// capacity is the maximum number of entries.
	capacity int

	// ttl is the time-to-live for entries.
	ttl time.Duration

	// items maps keys to linked list nodes for O(1) lookup.
	items map[string]*entry[V]

	head *entry[V]
	tail *entry[V]

	hits   int64
	misses int64
}

// Stats reports cache hit/miss counters.
type Stats struct {
	Hits   int64
	Misses int64
	Len    int
}

// NewLRU creates a new LRU cache with the specified capacity and TTL.
func NewLRU[V any](capacity int, ttl time.Duration) *LRU[V] {
	if capacity <= 0 {
		capacity = 1000
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	c := &LRU[V]{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*entry[V], capacity),
		head:     &entry[V]{},
		tail:     &entry[V]{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get retrieves an entry from the cache.
// Returns the value and true if found and not expired, false otherwise.
// Found entries are moved to the front (most recently used).
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}
	if time.Now().After(e.expiresAt) {
		c.removeEntry(e)
		c.misses++
		return zero, false
	}

	c.moveToFront(e)
	c.hits++
	return e.value, true
}

// Contains checks if a key exists and is unexpired without updating access order.
func (c *LRU[V]) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		return !time.Now().After(e.expiresAt)
	}
	return false
}

// Add adds or updates an entry in the cache.
// If the cache is at capacity, the least recently used entry is evicted.
func (c *LRU[V]) Add(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(c.ttl)

	if e, ok := c.items[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		c.moveToFront(e)
		return
	}

	e := &entry[V]{key: key, value: value, expiresAt: expiresAt}
	c.addToFront(e)
	c.items[key] = e

	for len(c.items) > c.capacity {
		c.evictOldest()
	}
}

// Remove removes an entry from the cache.
// Returns true if the entry was found and removed.
func (c *LRU[V]) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		c.removeEntry(e)
		return true
	}
	return false
}

// Len returns the current number of entries in the cache.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Clear removes all entries from the cache.
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*entry[V], c.capacity)
	c.head.next = c.tail
	c.tail.prev = c.head
}

// Stats returns a snapshot of hit/miss counters.
func (c *LRU[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Len: len(c.items)}
}

// CleanupExpired removes all expired entries.
// Returns the number of entries removed.
func (c *LRU[V]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0

	// Walk from tail (oldest) to head (newest).
	for e := c.tail.prev; e != c.head; {
		prev := e.prev
		if now.After(e.expiresAt) {
			c.removeEntry(e)
			removed++
		}
		e = prev
	}
	return removed
}

// moveToFront moves an entry to the front of the list (most recently used).
func (c *LRU[V]) moveToFront(e *entry[V]) {
	c.unlink(e)
	c.addToFront(e)
}

// addToFront inserts an entry right after the head sentinel.
func (c *LRU[V]) addToFront(e *entry[V]) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

// unlink detaches an entry from the list.
func (c *LRU[V]) unlink(e *entry[V]) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev = nil
	e.next = nil
}

// removeEntry unlinks an entry and deletes it from the map.
func (c *LRU[V]) removeEntry(e *entry[V]) {
	c.unlink(e)
	delete(c.items, e.key)
}

// evictOldest removes the least recently used entry.
func (c *LRU[V]) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	c.removeEntry(oldest)
}
