package lru

import (
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// OrderedCache is an LRU cache backed by a single insertion-ordered map. The
// oldest pair is the least recently used entry; a hit or an update moves the
// entry to the newest end by deleting and reinserting it.
//
// Unlike LinkedCache it evicts before inserting a new key, so the map never
// holds more than Cap entries. Both engines observe the same contract.
type OrderedCache[K comparable, V any] struct {
	engine
	items *orderedmap.OrderedMap[K, *slot[V]]
}

type slot[V any] struct {
	value     V
	expiresAt time.Time
}

var _ Cache[string, any] = (*OrderedCache[string, any])(nil)

// NewOrdered creates an OrderedCache holding at most size entries.
func NewOrdered[K comparable, V any](size int, opts ...Option) (*OrderedCache[K, V], error) {
	e, err := newEngine(size, opts)
	if err != nil {
		return nil, err
	}

	return &OrderedCache[K, V]{
		engine: e,
		items:  orderedmap.New[K, *slot[V]](),
	}, nil
}

func (c *OrderedCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	v, ok, r := c.get(key)
	c.metrics.setLen(c.items.Len())
	c.mu.Unlock()

	c.lookup(ok)
	reportRemoval(&c.engine, r)
	return v, ok
}

func (c *OrderedCache[K, V]) Put(key K, value V) {
	c.store(key, value, 0, false)
}

func (c *OrderedCache[K, V]) PutWithTTL(key K, value V, ttl time.Duration) {
	c.store(key, value, ttl, true)
}

func (c *OrderedCache[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s := c.live(key); s != nil {
		return s.value, true
	}
	var zero V
	return zero, false
}

func (c *OrderedCache[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.live(key) != nil
}

func (c *OrderedCache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.items.Delete(key)
	if ok {
		c.metrics.setLen(c.items.Len())
	}
	return ok
}

func (c *OrderedCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = orderedmap.New[K, *slot[V]]()
	c.metrics.setLen(0)
}

func (c *OrderedCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.items.Len()
}

func (c *OrderedCache[K, V]) Cap() int {
	return c.size
}

func (c *OrderedCache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, c.items.Len())
	c.each(func(k K, _ *slot[V]) {
		keys = append(keys, k)
	})
	return keys
}

func (c *OrderedCache[K, V]) Values() []V {
	c.mu.Lock()
	defer c.mu.Unlock()

	values := make([]V, 0, c.items.Len())
	c.each(func(_ K, s *slot[V]) {
		values = append(values, s.value)
	})
	return values
}

func (c *OrderedCache[K, V]) Items() []Item[K, V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]Item[K, V], 0, c.items.Len())
	c.each(func(k K, s *slot[V]) {
		items = append(items, Item[K, V]{Key: k, Value: s.value})
	})
	return items
}

func (c *OrderedCache[K, V]) store(key K, value V, ttl time.Duration, explicit bool) {
	c.mu.Lock()
	r := c.put(key, value, c.expiresAt(ttl, explicit))
	c.metrics.setLen(c.items.Len())
	c.mu.Unlock()

	reportRemoval(&c.engine, r)
}

// get must be called with the lock held.
func (c *OrderedCache[K, V]) get(key K) (V, bool, removal[K, V]) {
	var zero V

	s, ok := c.items.Get(key)
	if !ok {
		return zero, false, removal[K, V]{}
	}

	if expired(s.expiresAt, c.now()) {
		c.items.Delete(key)
		return zero, false, removal[K, V]{key: key, value: s.value, reason: reasonExpired, ok: true}
	}

	c.items.Delete(key)
	c.items.Set(key, s)
	return s.value, true, removal[K, V]{}
}

// put must be called with the lock held.
func (c *OrderedCache[K, V]) put(key K, value V, expiresAt time.Time) removal[K, V] {
	if s, ok := c.items.Delete(key); ok {
		s.value = value
		s.expiresAt = expiresAt
		c.items.Set(key, s)
		return removal[K, V]{}
	}

	var r removal[K, V]
	if c.items.Len() >= c.size {
		if oldest := c.items.Oldest(); oldest != nil {
			c.items.Delete(oldest.Key)
			r = removal[K, V]{key: oldest.Key, value: oldest.Value.value, reason: reasonCapacity, ok: true}
		}
	}

	c.items.Set(key, &slot[V]{value: value, expiresAt: expiresAt})
	return r
}

// live returns the unexpired slot under key without side effects.
func (c *OrderedCache[K, V]) live(key K) *slot[V] {
	s, ok := c.items.Get(key)
	if !ok || expired(s.expiresAt, c.now()) {
		return nil
	}
	return s
}

// each walks unexpired pairs from newest to oldest.
func (c *OrderedCache[K, V]) each(fn func(k K, s *slot[V])) {
	now := c.now()
	for pair := c.items.Newest(); pair != nil; pair = pair.Prev() {
		if !expired(pair.Value.expiresAt, now) {
			fn(pair.Key, pair.Value)
		}
	}
}
