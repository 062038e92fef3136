package planner

import (
	"fmt"
	"testing"
	"time"
)

func TestCacheSetGetInvalidate(t *testing.T) {
	c := NewCache(10, time.Minute)

	if _, ok := c.Get("u1"); ok {
		t.Fatal("empty cache returned a snapshot")
	}

	snap := NewSnapshot("u1")
	c.Set("u1", snap)

	got, ok := c.Get("u1")
	if !ok || got != snap {
		t.Fatal("cached snapshot not returned")
	}

	c.Invalidate("u1")
	if _, ok := c.Get("u1"); ok {
		t.Fatal("invalidated snapshot still served")
	}
}

func TestCacheEvictsLRU(t *testing.T) {
	c := NewCache(2, time.Minute)
	c.Set("u1", NewSnapshot("u1"))
	c.Set("u2", NewSnapshot("u2"))

	// Touch u1 so u2 becomes the eviction candidate.
	if _, ok := c.Get("u1"); !ok {
		t.Fatal("u1 missing before eviction")
	}
	c.Set("u3", NewSnapshot("u3"))

	if _, ok := c.Get("u2"); ok {
		t.Error("least recently used entry survived eviction")
	}
	if _, ok := c.Get("u1"); !ok {
		t.Error("recently used entry was evicted")
	}
	if c.Size() != 2 {
		t.Errorf("size = %d, want 2", c.Size())
	}
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(10, 10*time.Millisecond)
	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("u%d", i)
		c.Set(id, NewSnapshot(id))
	}

	time.Sleep(25 * time.Millisecond)

	if _, ok := c.Get("u0"); ok {
		t.Error("expired snapshot served")
	}
	if cleaned := c.CleanExpired(); cleaned != 2 {
		// u0 was already dropped by the failed Get.
		t.Errorf("CleanExpired = %d, want 2", cleaned)
	}
	if c.Size() != 0 {
		t.Errorf("size after cleanup = %d, want 0", c.Size())
	}
}
