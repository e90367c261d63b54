// CineLens - Personal Media Taste Engine
// Copyright 2026 CineLens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinelens/cinelens

package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestLRUBasicOperations(t *testing.T) {
	c := NewLRU[string](10, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("Get on empty cache should miss")
	}

	c.Add("a", "alpha")
	got, ok := c.Get("a")
	if !ok || got != "alpha" {
		t.Errorf("Get(a) = %q, %v, want alpha, true", got, ok)
	}

	c.Add("a", "alpha2")
	got, _ = c.Get("a")
	if got != "alpha2" {
		t.Errorf("Get(a) after update = %q, want alpha2", got)
	}

	if !c.Remove("a") {
		t.Error("Remove(a) = false, want true")
	}
	if c.Remove("a") {
		t.Error("Remove(a) twice = true, want false")
	}
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[int](3, time.Minute)

	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("c", 3)

	// Touch "a" so "b" becomes the least recently used.
	c.Get("a")

	c.Add("d", 4)

	if c.Len() != 3 {
		t.Errorf("Len = %d, want 3", c.Len())
	}
	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted as least recently used")
	}
	for _, key := range []string{"a", "c", "d"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("%s should still be cached", key)
		}
	}
}

func TestLRUExpiration(t *testing.T) {
	c := NewLRU[int](10, 10*time.Millisecond)

	c.Add("a", 1)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Error("expired entry should not be returned")
	}
	if c.Contains("a") {
		t.Error("Contains should report expired entries as absent")
	}
}

func TestLRUCleanupExpired(t *testing.T) {
	c := NewLRU[int](10, 10*time.Millisecond)

	for i := 0; i < 5; i++ {
		c.Add(fmt.Sprintf("k%d", i), i)
	}
	time.Sleep(20 * time.Millisecond)
	c.Add("fresh", 99)

	removed := c.CleanupExpired()
	if removed != 5 {
		t.Errorf("CleanupExpired = %d, want 5", removed)
	}
	if c.Len() != 1 {
		t.Errorf("Len after cleanup = %d, want 1", c.Len())
	}
}

func TestLRUStats(t *testing.T) {
	c := NewLRU[int](10, time.Minute)

	c.Add("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	s := c.Stats()
	if s.Hits != 2 {
		t.Errorf("Hits = %d, want 2", s.Hits)
	}
	if s.Misses != 1 {
		t.Errorf("Misses = %d, want 1", s.Misses)
	}
	if s.Len != 1 {
		t.Errorf("Len = %d, want 1", s.Len)
	}
}

func TestLRUClear(t *testing.T) {
	c := NewLRU[int](10, time.Minute)

	for i := 0; i < 5; i++ {
		c.Add(fmt.Sprintf("k%d", i), i)
	}
	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", c.Len())
	}
	// Cache must remain usable after Clear.
	c.Add("a", 1)
	if _, ok := c.Get("a"); !ok {
		t.Error("cache unusable after Clear")
	}
}

func TestLRUDefaults(t *testing.T) {
	c := NewLRU[int](0, 0)
	if c.capacity <= 0 {
		t.Errorf("capacity = %d, want positive default", c.capacity)
	}
	if c.ttl <= 0 {
		t.Errorf("ttl = %v, want positive default", c.ttl)
	}
}
