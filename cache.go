// Package lru provides bounded in-process caches with least-recently-used
// eviction, optional per-entry TTL and optional locking, plus a memoizing
// adapter built on top of them.
//
// Two engines implement the same Cache contract:
//
//   - LinkedCache keeps a hash index and a doubly linked recency list.
//   - OrderedCache keeps a single insertion-ordered map and promotes entries
//     by reinserting them at the newest end.
//
// Expiry is lazy: an expired entry is never returned, but it is only removed
// (and stops counting towards Len) once an operation touches it.
package lru

import (
	"errors"
	"time"
)

// ErrInvalidCapacity is returned when a cache is constructed with a
// non-positive capacity.
var ErrInvalidCapacity = errors.New("lru: capacity must be greater than zero")

// Cache is the contract shared by every engine.
type Cache[K comparable, V any] interface {
	// Get returns the value stored under key and marks it most recently used.
	// The boolean reports a hit; expired entries are misses.
	Get(key K) (value V, ok bool)

	// Put stores value under key using the cache's default TTL.
	Put(key K, value V)

	// PutWithTTL stores value under key, expiring it ttl from now. A ttl <= 0
	// stores an entry that is already expired.
	PutWithTTL(key K, value V, ttl time.Duration)

	// Peek returns the value under key without touching recency or purging.
	Peek(key K) (value V, ok bool)

	// Contains reports whether a live entry exists under key. Recency is not
	// updated.
	Contains(key K) bool

	// Delete removes key and reports whether it was present.
	Delete(key K) bool

	// Clear drops every entry.
	Clear()

	// Len returns the number of tracked entries, including expired entries
	// that have not been purged yet.
	Len() int

	Cap() int

	// Keys, Values and Items list live entries from most to least recently
	// used. They never change recency or purge.
	Keys() []K
	Values() []V
	Items() []Item[K, V]
}

// Item is a key/value pair returned by Items.
type Item[K comparable, V any] struct {
	Key   K
	Value V
}
