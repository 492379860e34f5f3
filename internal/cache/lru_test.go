package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	if got := Key("hana", "2025-06"); got != "hana|2025-06" {
		t.Errorf("Key() = %q, want hana|2025-06", got)
	}
}

func TestTTLCacheGetSet(t *testing.T) {
	c := New[string](2, time.Minute)

	c.Set("a", "1")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Errorf("Get(a) = %q, %v, want 1, true", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) should not be found")
	}
}

func TestTTLCacheEvictsOldest(t *testing.T) {
	c := New[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // refresh a
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("recently used entry should survive eviction")
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	c := New[int](10, 10*time.Millisecond)

	c.Set("a", 1)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Error("expired entry should not be returned")
	}
}

func TestTTLCachePurgeExpired(t *testing.T) {
	c := New[int](10, 10*time.Millisecond)

	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	time.Sleep(20 * time.Millisecond)
	c.Set("fresh", 99)

	if purged := c.PurgeExpired(); purged != 3 {
		t.Errorf("PurgeExpired() = %d, want 3", purged)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestJanitorSweeps(t *testing.T) {
	c := New[int](10, 5*time.Millisecond)
	c.Set("a", 1)

	j := NewJanitor(10 * time.Millisecond)
	j.Track(c)
	j.Start()
	defer j.Stop()

	deadline := time.Now().Add(time.Second)
	for c.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after sweep, want 0", c.Len())
	}
}

func TestJanitorStopWithoutStart(t *testing.T) {
	j := NewJanitor(time.Minute)
	j.Stop()
	j.Stop()
}
