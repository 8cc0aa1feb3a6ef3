package lru

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"runtime"
	"slices"
	"strconv"
	"time"

	"github.com/mitchellh/hashstructure/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const tracerName = "github.com/3XBAT/lru"

// errOpaqueArgument marks arguments whose identity the key hash cannot see.
var errOpaqueArgument = errors.New("lru: argument has unexported fields")

var timeType = reflect.TypeFor[time.Time]()

// Args carries positional and named arguments for a memoized function.
// Named arguments are sorted by name before the cache key is derived, so
// the order in which they were assembled never matters.
type Args struct {
	Positional []any
	Named      map[string]any
}

type namedArg struct {
	Name  string
	Value any
}

type canonicalArgs struct {
	Positional []any
	Named      []namedArg
}

func (a Args) canonical() canonicalArgs {
	named := make([]namedArg, 0, len(a.Named))
	for _, name := range slices.Sorted(maps.Keys(a.Named)) {
		named = append(named, namedArg{Name: name, Value: a.Named[name]})
	}
	return canonicalArgs{Positional: a.Positional, Named: named}
}

// memoKey is what gets hashed: the function identity and its arguments.
type memoKey struct {
	Func string
	Args any
}

// MemoOption configures Memoize.
type MemoOption func(*memoOptions)

type memoOptions struct {
	ttl    time.Duration
	hasTTL bool
	name   string
	logger zerolog.Logger
	tp     trace.TracerProvider
}

// WithMemoTTL stores results with ttl instead of the cache's default TTL.
func WithMemoTTL(ttl time.Duration) MemoOption {
	return func(o *memoOptions) {
		o.ttl = ttl
		o.hasTTL = true
	}
}

// WithName overrides the function identity used in cache keys. By default
// the identity is the fully qualified name reported by the runtime.
func WithName(name string) MemoOption {
	return func(o *memoOptions) {
		o.name = name
	}
}

// WithMemoLogger sets the logger for hit, miss and uncacheable events.
func WithMemoLogger(l zerolog.Logger) MemoOption {
	return func(o *memoOptions) {
		o.logger = l
	}
}

// WithTracerProvider sets the provider used to start a span per call. When
// unset the global provider is used.
func WithTracerProvider(tp trace.TracerProvider) MemoOption {
	return func(o *memoOptions) {
		o.tp = tp
	}
}

// Memoize wraps fn so that results are served from c when possible.
//
// The cache key is a hash of fn's identity and the argument value a; use
// Args for positional plus named arguments. A hit is signalled by Get's
// boolean, never by the value itself, so zero results are cached like any
// other. Errors returned by fn are passed through and never cached.
// Concurrent misses on the same key share a single call to fn and the
// context of the first caller.
//
// If a cannot be hashed (it contains a func, a channel or a struct with
// unexported fields, for example) fn is called directly and nothing is cached.
func Memoize[A, R any](c Cache[uint64, R], fn func(context.Context, A) (R, error), opts ...MemoOption) func(context.Context, A) (R, error) {
	o := memoOptions{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.name == "" {
		o.name = funcName(fn)
	}
	if o.tp == nil {
		o.tp = otel.GetTracerProvider()
	}
	tracer := o.tp.Tracer(tracerName)

	var group singleflight.Group

	return func(ctx context.Context, a A) (R, error) {
		ctx, span := tracer.Start(ctx, "lru.Memoize",
			trace.WithAttributes(attribute.String("lru.func", o.name)))
		defer span.End()

		key, err := memoHash(o.name, a)
		if err != nil {
			o.logger.Debug().Err(err).Str("func", o.name).Msg("arguments not hashable, bypassing cache")
			span.SetAttributes(attribute.Bool("lru.cacheable", false))
			r, err := fn(ctx, a)
			recordErr(span, err)
			return r, err
		}

		if v, ok := c.Get(key); ok {
			o.logger.Debug().Str("func", o.name).Uint64("key", key).Msg("memo hit")
			span.SetAttributes(attribute.Bool("lru.hit", true))
			return v, nil
		}

		o.logger.Debug().Str("func", o.name).Uint64("key", key).Msg("memo miss")
		span.SetAttributes(attribute.Bool("lru.hit", false))

		v, err, shared := group.Do(strconv.FormatUint(key, 16), func() (any, error) {
			r, err := fn(ctx, a)
			if err != nil {
				return r, err
			}
			if o.hasTTL {
				c.PutWithTTL(key, r, o.ttl)
			} else {
				c.Put(key, r)
			}
			return r, nil
		})
		span.SetAttributes(attribute.Bool("lru.shared", shared))
		recordErr(span, err)

		r, _ := v.(R)
		return r, err
	}
}

func memoHash(name string, a any) (uint64, error) {
	if args, ok := a.(Args); ok {
		a = args.canonical()
	}
	if err := keyable(reflect.ValueOf(a)); err != nil {
		return 0, err
	}
	return hashstructure.Hash(memoKey{Func: name, Args: a}, hashstructure.FormatV2, nil)
}

// keyable rejects values holding structs with unexported fields. hashstructure
// skips such fields, so two different values would share one key.
func keyable(v reflect.Value) error {
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		return keyable(v.Elem())
	case reflect.Struct:
		if v.Type() == timeType {
			return nil
		}
		t := v.Type()
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() {
				return fmt.Errorf("%w: %s.%s", errOpaqueArgument, t, f.Name)
			}
			if err := keyable(v.Field(i)); err != nil {
				return err
			}
		}
	case reflect.Slice, reflect.Array:
		for i := range v.Len() {
			if err := keyable(v.Index(i)); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if err := keyable(iter.Key()); err != nil {
				return err
			}
			if err := keyable(iter.Value()); err != nil {
				return err
			}
		}
	}
	return nil
}

func funcName(fn any) string {
	if f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()); f != nil {
		return f.Name()
	}
	return "unknown"
}

func recordErr(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
