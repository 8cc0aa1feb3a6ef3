package lru

import (
	"time"

	"github.com/rs/zerolog"
)

// EvictCallback is called with the key and value of every entry removed by
// capacity eviction or lazy expiry. It runs after the cache lock has been
// released, so it may call back into the cache.
type EvictCallback func(key, value any)

// Option configures a cache engine.
type Option func(*options)

type options struct {
	defaultTTL    time.Duration
	hasDefaultTTL bool
	threadSafe    bool
	now           func() time.Time
	logger        zerolog.Logger
	metrics       *Metrics
	onEvict       EvictCallback
}

func newOptions(opts []Option) options {
	o := options{
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithDefaultTTL sets the TTL applied by Put. Without it, entries stored
// with Put never expire.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.defaultTTL = ttl
		o.hasDefaultTTL = true
	}
}

// WithThreadSafe guards every operation with a single mutex when enabled.
// A cache built without it must only be used from one goroutine at a time.
func WithThreadSafe(enabled bool) Option {
	return func(o *options) {
		o.threadSafe = enabled
	}
}

// WithClock replaces time.Now as the source of the current time.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger used for eviction and expiry events. Events are
// logged at debug level.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics records hits, misses and removals into m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithOnEvict registers a callback for capacity evictions and expiries.
// Explicit Delete and Clear do not trigger it.
func WithOnEvict(fn EvictCallback) Option {
	return func(o *options) {
		o.onEvict = fn
	}
}

// WithEvictHandler is WithOnEvict for a callback typed to the cache's key and
// value types. K and V must match the cache the option is passed to.
func WithEvictHandler[K comparable, V any](fn func(key K, value V)) Option {
	return WithOnEvict(func(key, value any) {
		k, _ := key.(K)
		v, _ := value.(V)
		fn(k, v)
	})
}
