package lru

import (
	"fmt"
	"sync"
	"time"
)

type removalReason string

const (
	reasonCapacity removalReason = "capacity"
	reasonExpired  removalReason = "expired"
)

// removal records an entry dropped inside a critical section so that it can
// be reported once the lock is released.
type removal[K comparable, V any] struct {
	key    K
	value  V
	reason removalReason
	ok     bool
}

// noLock is the locker used when thread safety is disabled.
type noLock struct{}

func (noLock) Lock()   {}
func (noLock) Unlock() {}

func newLocker(threadSafe bool) sync.Locker {
	if threadSafe {
		return &sync.Mutex{}
	}
	return noLock{}
}

// engine holds the state and plumbing shared by both cache implementations.
type engine struct {
	size int
	mu   sync.Locker
	options
}

func newEngine(size int, opts []Option) (engine, error) {
	if size <= 0 {
		return engine{}, fmt.Errorf("%w: %d", ErrInvalidCapacity, size)
	}
	o := newOptions(opts)
	return engine{
		size:    size,
		mu:      newLocker(o.threadSafe),
		options: o,
	}, nil
}

// expiresAt converts a TTL into an absolute expiry. The zero time means the
// entry never expires.
func (e *engine) expiresAt(ttl time.Duration, explicit bool) time.Time {
	if !explicit {
		if !e.hasDefaultTTL {
			return time.Time{}
		}
		ttl = e.defaultTTL
	}
	return e.now().Add(ttl)
}

func expired(at, now time.Time) bool {
	return !at.IsZero() && !now.Before(at)
}

func (e *engine) lookup(hit bool) {
	if hit {
		e.metrics.hit()
		return
	}
	e.metrics.miss()
}

func reportRemoval[K comparable, V any](e *engine, r removal[K, V]) {
	if !r.ok {
		return
	}
	e.metrics.removed(r.reason)
	e.logger.Debug().
		Interface("key", r.key).
		Str("reason", string(r.reason)).
		Msg("cache entry removed")
	if e.onEvict != nil {
		e.onEvict(r.key, r.value)
	}
}
