// Package cache memoizes derived per-user results, primarily the budget
// coach advice, so repeat requests inside a month do not re-spend model
// tokens. Entries expire on a TTL and the least recently used one is
// evicted when a cache is full; a Janitor sweeps expired entries out in
// the background.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Key builds the per-user, per-month key under which derived results
// are memoized. New records shift the resolved month and therefore the
// key, so a user rolling into a new month never sees stale advice.
func Key(userID, month string) string {
	return userID + "|" + month
}

// TTLCache is a fixed-capacity LRU cache whose entries expire a fixed
// duration after their last Set. Safe for concurrent use.
type TTLCache[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List // front is most recently used
	entries  map[string]*list.Element
}

type entry[V any] struct {
	key      string
	value    V
	deadline time.Time
}

// New returns an empty cache holding at most capacity entries.
func New[V any](capacity int, ttl time.Duration) *TTLCache[V] {
	return &TTLCache[V]{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

// Get returns the cached value and refreshes its recency. An expired
// entry is dropped on sight and reported as a miss.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	e := elem.Value.(*entry[V])
	if time.Now().After(e.deadline) {
		c.drop(elem)
		return zero, false
	}
	c.order.MoveToFront(elem)
	return e.value, true
}

// Set stores the value under key, restarting its TTL. When the cache is
// full the least recently used entry makes room.
func (c *TTLCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry[V]{key: key, value: value, deadline: time.Now().Add(c.ttl)}
	if elem, ok := c.entries[key]; ok {
		elem.Value = e
		c.order.MoveToFront(elem)
		return
	}

	c.entries[key] = c.order.PushFront(e)
	if c.order.Len() > c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.drop(oldest)
		}
	}
}

// Delete removes key from the cache if present.
func (c *TTLCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.drop(elem)
	}
}

// Len counts the entries currently held, expired ones included until a
// Get or sweep drops them.
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// PurgeExpired drops every expired entry and reports how many went.
func (c *TTLCache[V]) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	purged := 0
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if now.After(elem.Value.(*entry[V]).deadline) {
			c.drop(elem)
			purged++
		}
		elem = prev
	}
	return purged
}

func (c *TTLCache[V]) drop(elem *list.Element) {
	delete(c.entries, elem.Value.(*entry[V]).key)
	c.order.Remove(elem)
}
