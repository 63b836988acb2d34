// ABOUTME: TTL cache recording which event ids were already handled.
// ABOUTME: Drops replayed websocket posts and repeated interactive callbacks.

package dedupe

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type item struct {
	key  string
	seen time.Time
}

// Cache remembers keys for ttl, holding at most maxSize of them. The oldest
// key is evicted first when full.
type Cache struct {
	mu      sync.Mutex
	index   map[string]*list.Element
	order   *list.List // oldest at front
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

// New creates a cache. Call Run to expire entries in the background.
func New(ttl time.Duration, maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Cache{
		index:   make(map[string]*list.Element),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Seen reports whether key was recorded within the TTL. A new or expired
// key is recorded and false is returned, so exactly one caller per key
// gets false.
func (c *Cache) Seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if el, ok := c.index[key]; ok {
		it := el.Value.(*item)
		if now.Sub(it.seen) < c.ttl {
			return true
		}
		c.order.Remove(el)
		delete(c.index, key)
	}

	for len(c.index) >= c.maxSize {
		c.removeFront()
	}
	c.index[key] = c.order.PushBack(&item{key: key, seen: now})
	return false
}

// Forget drops key so the next Seen for it returns false. Used when
// handling an event failed and a redelivery should be processed.
func (c *Cache) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		c.order.Remove(el)
		delete(c.index, key)
	}
}

// Len returns the number of recorded keys, expired ones included until swept.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

// Sweep removes expired keys. Entries are in insertion order, so it stops
// at the first live one.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for front := c.order.Front(); front != nil; front = c.order.Front() {
		if now.Sub(front.Value.(*item).seen) < c.ttl {
			break
		}
		c.removeFront()
		removed++
	}
	return removed
}

func (c *Cache) removeFront() {
	front := c.order.Front()
	if front == nil {
		return
	}
	c.order.Remove(front)
	delete(c.index, front.Value.(*item).key)
}

// Run sweeps every interval until ctx is done.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-ctx.Done():
			return
		}
	}
}
