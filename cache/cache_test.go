package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestGetReturnsStoredValue(t *testing.T) {
	c := New[string](time.Minute, 10)
	c.Put("a", "alpha")

	got, ok := c.Get("a")
	if !ok {
		t.Fatal("expected hit for freshly stored key")
	}
	if got != "alpha" {
		t.Errorf("expected %q, got %q", "alpha", got)
	}
}

func TestGetMissingKey(t *testing.T) {
	c := New[string](time.Minute, 10)

	if _, ok := c.Get("nope"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestGetEvictsExpiredEntry(t *testing.T) {
	c := New[string](time.Minute, 10)

	current := time.Unix(1000, 0)
	c.now = func() time.Time { return current }

	c.Put("a", "alpha")

	current = current.Add(59 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Error("expected hit inside TTL window")
	}

	current = current.Add(2 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("expected miss once TTL elapsed")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be evicted, have %d entries", c.Len())
	}
}

func TestPutEvictsOldestInserted(t *testing.T) {
	c := New[int](time.Minute, 50)

	for i := 0; i < 51; i++ {
		c.Put(fmt.Sprintf("key-%d", i), i)
	}

	if c.Len() != 50 {
		t.Fatalf("expected 50 entries after overflow, got %d", c.Len())
	}
	if _, ok := c.Get("key-0"); ok {
		t.Error("earliest-inserted entry should have been evicted")
	}
	for i := 1; i < 51; i++ {
		if _, ok := c.Get(fmt.Sprintf("key-%d", i)); !ok {
			t.Errorf("key-%d should still be retrievable", i)
		}
	}
}

func TestPutOverwriteKeepsInsertionPosition(t *testing.T) {
	c := New[int](time.Minute, 2)

	c.Put("first", 1)
	c.Put("second", 2)
	// Overwriting does not refresh recency in the eviction order.
	c.Put("first", 11)
	c.Put("third", 3)

	if _, ok := c.Get("first"); ok {
		t.Error("overwritten entry should still be evicted first (FIFO, not LRU)")
	}
	if v, ok := c.Get("second"); !ok || v != 2 {
		t.Errorf("second = %d, %v; want 2, true", v, ok)
	}
	if v, ok := c.Get("third"); !ok || v != 3 {
		t.Errorf("third = %d, %v; want 3, true", v, ok)
	}
}

func TestClear(t *testing.T) {
	c := New[int](time.Minute, 10)
	c.Put("a", 1)
	c.Put("b", 2)

	c.Clear()

	if c.Len() != 0 {
		t.Errorf("expected empty cache after Clear, got %d entries", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("cleared entry should be absent")
	}

	// The cache stays usable after clearing.
	c.Put("c", 3)
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Errorf("c = %d, %v; want 3, true", v, ok)
	}
}

func TestDefaultsApplied(t *testing.T) {
	c := New[int](0, 0)
	if c.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want %v", c.ttl, DefaultTTL)
	}
	if c.capacity != DefaultCapacity {
		t.Errorf("capacity = %d, want %d", c.capacity, DefaultCapacity)
	}
}
