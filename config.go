package lru

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownEngine is returned for an engine name other than "linked" or
// "ordered".
var ErrUnknownEngine = errors.New("lru: unknown engine")

// Engine selects the cache implementation built by New.
type Engine string

const (
	EngineLinked  Engine = "linked"
	EngineOrdered Engine = "ordered"
)

// ParseEngine maps a case-insensitive engine name to an Engine. The empty
// string selects EngineLinked.
func ParseEngine(name string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", string(EngineLinked):
		return EngineLinked, nil
	case string(EngineOrdered):
		return EngineOrdered, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
}

// Config describes a cache in a form that can be loaded from a settings
// file. A zero DefaultTTL means entries stored with Put never expire.
type Config struct {
	Capacity   int           `mapstructure:"capacity"`
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
	ThreadSafe bool          `mapstructure:"thread_safe"`
	Engine     Engine        `mapstructure:"engine"`
}

// Options converts the configuration into engine options.
func (c Config) Options() []Option {
	opts := []Option{WithThreadSafe(c.ThreadSafe)}
	if c.DefaultTTL > 0 {
		opts = append(opts, WithDefaultTTL(c.DefaultTTL))
	}
	return opts
}

// New builds the engine named by cfg.Engine. Options in opts are applied
// after the ones derived from cfg.
func New[K comparable, V any](cfg Config, opts ...Option) (Cache[K, V], error) {
	kind, err := ParseEngine(string(cfg.Engine))
	if err != nil {
		return nil, err
	}

	all := append(cfg.Options(), opts...)

	if kind == EngineOrdered {
		c, err := NewOrdered[K, V](cfg.Capacity, all...)
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	c, err := NewLinked[K, V](cfg.Capacity, all...)
	if err != nil {
		return nil, err
	}
	return c, nil
}
