// Package list implements the recency list used by the linked cache engine.
//
// Nodes live in a slice (the arena) and link to each other by index, so
// unlinking and relinking are O(1) without holding pointers into the slice.
// Slots 0 and 1 are the head and tail sentinels and are never handed out.
package list

import "time"

const (
	head int32 = 0
	tail int32 = 1

	nilIndex int32 = -1
)

// Handle addresses an entry in the list. A handle is invalidated when its
// entry is removed; the slot generation makes a stale handle detectable even
// after the slot has been reused.
type Handle struct {
	idx int32
	gen uint32
}

// Entry is a node of the list. ExpiresAt is the zero time when the entry never
// expires.
type Entry[K comparable, V any] struct {
	Key       K
	Value     V
	ExpiresAt time.Time

	prev, next int32
	gen        uint32
	used       bool
}

// LruList is a doubly linked list ordered from most recently used (front,
// right after the head sentinel) to least recently used (back, right before
// the tail sentinel).
type LruList[K comparable, V any] struct {
	slots []Entry[K, V]
	free  []int32
	len   int
}

// New returns an empty list with room for hint entries.
func New[K comparable, V any](hint int) *LruList[K, V] {
	l := &LruList[K, V]{slots: make([]Entry[K, V], 2, hint+2)}
	return l.Init()
}

// Init clears the list, dropping every entry and relinking the sentinels.
// Slots are kept for reuse with their generation bumped, so handles taken
// before Init stay stale.
func (l *LruList[K, V]) Init() *LruList[K, V] {
	if len(l.slots) < 2 {
		l.slots = make([]Entry[K, V], 2)
	}
	l.slots[head] = Entry[K, V]{prev: nilIndex, next: tail, used: true}
	l.slots[tail] = Entry[K, V]{prev: head, next: nilIndex, used: true}
	l.free = l.free[:0]
	for idx := int32(len(l.slots)) - 1; idx > tail; idx-- {
		l.slots[idx] = Entry[K, V]{gen: l.slots[idx].gen + 1}
		l.free = append(l.free, idx)
	}
	l.len = 0
	return l
}

func (l *LruList[K, V]) Len() int { return l.len }

// PushFront inserts a new entry at the most recently used position.
func (l *LruList[K, V]) PushFront(k K, v V, expiresAt time.Time) Handle {
	idx := l.alloc()
	e := &l.slots[idx]
	e.Key = k
	e.Value = v
	e.ExpiresAt = expiresAt
	e.used = true
	l.link(idx, head)
	l.len++
	return Handle{idx: idx, gen: e.gen}
}

// Entry returns the entry behind h, or nil if h is stale. The pointer is only
// valid until the next PushFront.
func (l *LruList[K, V]) Entry(h Handle) *Entry[K, V] {
	if !l.valid(h) {
		return nil
	}
	return &l.slots[h.idx]
}

// MoveToFront makes h the most recently used entry.
func (l *LruList[K, V]) MoveToFront(h Handle) {
	if !l.valid(h) || l.slots[head].next == h.idx {
		return
	}
	l.unlink(h.idx)
	l.link(h.idx, head)
}

// Back returns the least recently used entry.
func (l *LruList[K, V]) Back() (Handle, bool) {
	if l.len == 0 {
		return Handle{}, false
	}
	idx := l.slots[tail].prev
	return Handle{idx: idx, gen: l.slots[idx].gen}, true
}

// Remove unlinks h and returns a copy of its entry. The slot is recycled and
// h, along with every copy of it, becomes stale.
func (l *LruList[K, V]) Remove(h Handle) (Entry[K, V], bool) {
	if !l.valid(h) {
		return Entry[K, V]{}, false
	}
	l.unlink(h.idx)
	e := l.slots[h.idx]
	l.slots[h.idx] = Entry[K, V]{gen: e.gen + 1}
	l.free = append(l.free, h.idx)
	l.len--
	return e, true
}

// Each calls fn for every entry from front to back until fn returns false.
// fn must not modify the list.
func (l *LruList[K, V]) Each(fn func(e *Entry[K, V]) bool) {
	for idx := l.slots[head].next; idx != tail; idx = l.slots[idx].next {
		if !fn(&l.slots[idx]) {
			return
		}
	}
}

func (l *LruList[K, V]) valid(h Handle) bool {
	if h.idx <= tail || int(h.idx) >= len(l.slots) {
		return false
	}
	e := &l.slots[h.idx]
	return e.used && e.gen == h.gen
}

func (l *LruList[K, V]) alloc() int32 {
	if n := len(l.free); n > 0 {
		idx := l.free[n-1]
		l.free = l.free[:n-1]
		return idx
	}
	l.slots = append(l.slots, Entry[K, V]{})
	return int32(len(l.slots) - 1)
}

// link inserts idx right after at.
func (l *LruList[K, V]) link(idx, at int32) {
	next := l.slots[at].next
	l.slots[idx].prev = at
	l.slots[idx].next = next
	l.slots[at].next = idx
	l.slots[next].prev = idx
}

func (l *LruList[K, V]) unlink(idx int32) {
	e := &l.slots[idx]
	l.slots[e.prev].next = e.next
	l.slots[e.next].prev = e.prev
	e.prev = nilIndex
	e.next = nilIndex
}
