package lru

import (
	"time"

	"github.com/3XBAT/lru/internal/list"
)

// LinkedCache is an LRU cache made of a hash index and a doubly linked
// recency list. Get, Put and eviction are O(1).
type LinkedCache[K comparable, V any] struct {
	engine
	list  *list.LruList[K, V]
	items map[K]list.Handle
}

var _ Cache[string, any] = (*LinkedCache[string, any])(nil)

// NewLinked creates a LinkedCache holding at most size entries.
func NewLinked[K comparable, V any](size int, opts ...Option) (*LinkedCache[K, V], error) {
	e, err := newEngine(size, opts)
	if err != nil {
		return nil, err
	}

	return &LinkedCache[K, V]{
		engine: e,
		list:   list.New[K, V](size + 1),
		items:  make(map[K]list.Handle, size+1),
	}, nil
}

func (c *LinkedCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	v, ok, r := c.get(key)
	c.metrics.setLen(len(c.items))
	c.mu.Unlock()

	c.lookup(ok)
	reportRemoval(&c.engine, r)
	return v, ok
}

func (c *LinkedCache[K, V]) Put(key K, value V) {
	c.store(key, value, 0, false)
}

func (c *LinkedCache[K, V]) PutWithTTL(key K, value V, ttl time.Duration) {
	c.store(key, value, ttl, true)
}

func (c *LinkedCache[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e := c.live(key); e != nil {
		return e.Value, true
	}
	var zero V
	return zero, false
}

func (c *LinkedCache[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.live(key) != nil
}

func (c *LinkedCache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	h, ok := c.items[key]
	if !ok {
		return false
	}
	c.list.Remove(h)
	delete(c.items, key)
	c.metrics.setLen(len(c.items))
	return true
}

func (c *LinkedCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.items)
	c.list.Init()
	c.metrics.setLen(0)
}

func (c *LinkedCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}

func (c *LinkedCache[K, V]) Cap() int {
	return c.size
}

func (c *LinkedCache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, len(c.items))
	c.each(func(e *list.Entry[K, V]) {
		keys = append(keys, e.Key)
	})
	return keys
}

func (c *LinkedCache[K, V]) Values() []V {
	c.mu.Lock()
	defer c.mu.Unlock()

	values := make([]V, 0, len(c.items))
	c.each(func(e *list.Entry[K, V]) {
		values = append(values, e.Value)
	})
	return values
}

func (c *LinkedCache[K, V]) Items() []Item[K, V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]Item[K, V], 0, len(c.items))
	c.each(func(e *list.Entry[K, V]) {
		items = append(items, Item[K, V]{Key: e.Key, Value: e.Value})
	})
	return items
}

func (c *LinkedCache[K, V]) store(key K, value V, ttl time.Duration, explicit bool) {
	c.mu.Lock()
	r := c.put(key, value, c.expiresAt(ttl, explicit))
	c.metrics.setLen(len(c.items))
	c.mu.Unlock()

	reportRemoval(&c.engine, r)
}

// get must be called with the lock held.
func (c *LinkedCache[K, V]) get(key K) (V, bool, removal[K, V]) {
	var zero V

	h, ok := c.items[key]
	if !ok {
		return zero, false, removal[K, V]{}
	}

	e := c.list.Entry(h)
	if expired(e.ExpiresAt, c.now()) {
		return zero, false, c.remove(h, reasonExpired)
	}

	c.list.MoveToFront(h)
	return e.Value, true, removal[K, V]{}
}

// put must be called with the lock held. The index may briefly hold size+1
// entries before the least recently used one is evicted.
func (c *LinkedCache[K, V]) put(key K, value V, expiresAt time.Time) removal[K, V] {
	if h, ok := c.items[key]; ok {
		e := c.list.Entry(h)
		e.Value = value
		e.ExpiresAt = expiresAt
		c.list.MoveToFront(h)
		return removal[K, V]{}
	}

	c.items[key] = c.list.PushFront(key, value, expiresAt)

	if len(c.items) > c.size {
		return c.removeOldest()
	}
	return removal[K, V]{}
}

func (c *LinkedCache[K, V]) removeOldest() removal[K, V] {
	h, ok := c.list.Back()
	if !ok {
		return removal[K, V]{}
	}
	return c.remove(h, reasonCapacity)
}

func (c *LinkedCache[K, V]) remove(h list.Handle, reason removalReason) removal[K, V] {
	e, ok := c.list.Remove(h)
	if !ok {
		return removal[K, V]{}
	}
	delete(c.items, e.Key)
	return removal[K, V]{key: e.Key, value: e.Value, reason: reason, ok: true}
}

// live returns the unexpired entry under key without side effects.
func (c *LinkedCache[K, V]) live(key K) *list.Entry[K, V] {
	h, ok := c.items[key]
	if !ok {
		return nil
	}
	e := c.list.Entry(h)
	if expired(e.ExpiresAt, c.now()) {
		return nil
	}
	return e
}

// each walks unexpired entries from most to least recently used.
func (c *LinkedCache[K, V]) each(fn func(e *list.Entry[K, V])) {
	now := c.now()
	c.list.Each(func(e *list.Entry[K, V]) bool {
		if !expired(e.ExpiresAt, now) {
			fn(e)
		}
		return true
	})
}
