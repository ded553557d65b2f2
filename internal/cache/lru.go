// internal/cache/lru.go
//
// Small thread-safe LRU with optional per-entry TTL.  The places client
// keeps autocomplete predictions and place details here so repeated
// keystrokes for the same prefix do not reach the upstream API.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRU is a least-recently-used cache keyed by K.
type LRU[K comparable, V any] struct {
	mu   sync.Mutex
	cap  int
	ttl  time.Duration
	now  func() time.Time
	ll   *list.List
	dict map[K]*list.Element
}

type entry[K comparable, V any] struct {
	key     K
	val     V
	expires time.Time
}

// New returns an LRU with the given capacity.  A ttl of zero keeps entries
// until they are evicted by size.  Panics on capacity < 1.
func New[K comparable, V any](capacity int, ttl time.Duration) *LRU[K, V] {
	if capacity < 1 {
		panic("cache: capacity must be ≥1")
	}
	return &LRU[K, V]{
		cap:  capacity,
		ttl:  ttl,
		now:  time.Now,
		ll:   list.New(),
		dict: make(map[K]*list.Element, capacity),
	}
}

// Get retrieves a value and marks it most recently used.  Expired entries
// are dropped and reported as misses.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	ele, hit := c.dict[key]
	if !hit {
		return zero, false
	}
	e := ele.Value.(*entry[K, V])
	if !e.expires.IsZero() && c.now().After(e.expires) {
		c.ll.Remove(ele)
		delete(c.dict, key)
		return zero, false
	}
	c.ll.MoveToFront(ele)
	return e.val, true
}

// Add inserts or updates a value.
func (c *LRU[K, V]) Add(key K, val V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var exp time.Time
	if c.ttl > 0 {
		exp = c.now().Add(c.ttl)
	}
	if ele, hit := c.dict[key]; hit {
		ele.Value = &entry[K, V]{key, val, exp}
		c.ll.MoveToFront(ele)
		return
	}
	c.dict[key] = c.ll.PushFront(&entry[K, V]{key, val, exp})
	if c.ll.Len() > c.cap {
		last := c.ll.Back()
		c.ll.Remove(last)
		delete(c.dict, last.Value.(*entry[K, V]).key)
	}
}

// Len reports current size, expired entries included.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
