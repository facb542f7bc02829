package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

// DefaultTTL matches one refresh window: entries older than this are misses.
const DefaultTTL = 60 * time.Second

type entry struct {
	key      string
	payload  any
	storedAt time.Time
}

// Cache memoizes fetch results for a TTL. Capacity is bounded: once full,
// the least recently used key is evicted on insert. Stale entries are
// ignored on read and overwritten on the next Put.
type Cache struct {
	ttl time.Duration
	cap int

	mu    sync.Mutex
	items map[string]*list.Element
	order *list.List // front = most recently used
	now   func() time.Time
}

// New builds a cache with the given TTL and capacity. Non-positive values
// fall back to DefaultTTL and an unbounded capacity respectively.
func New(ttl time.Duration, capacity int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:   ttl,
		cap:   capacity,
		items: make(map[string]*list.Element),
		order: list.New(),
		now:   time.Now,
	}
}

// Get returns the payload for key if present and younger than the TTL.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	if c.now().Sub(e.storedAt) >= c.ttl {
		return nil, false
	}
	c.order.MoveToFront(el)
	return e.payload, true
}

// Put stores payload under key, unconditionally replacing any prior entry.
func (c *Cache) Put(key string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry)
		e.payload = payload
		e.storedAt = c.now()
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&entry{key: key, payload: payload, storedAt: c.now()})
	c.items[key] = el

	if c.cap > 0 && c.order.Len() > c.cap {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).key)
		}
	}
}

// Len reports the number of entries currently held, stale ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Key builds a cache key from the operation name and every parameter that
// affects the result. Distinct requests must never collide.
func Key(op string, parts ...string) string {
	return op + ":" + strings.Join(parts, ":")
}
