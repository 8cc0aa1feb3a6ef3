package lru

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newMemoCache[R any](t *testing.T, opts ...Option) *LinkedCache[uint64, R] {
	t.Helper()
	c, err := NewLinked[uint64, R](16, opts...)
	require.NoError(t, err)
	return c
}

func TestMemoize_CallsOnceWithinTTL(t *testing.T) {
	c := newMemoCache[int](t)

	var calls atomic.Int32
	square := Memoize(c, func(_ context.Context, n int) (int, error) {
		calls.Add(1)
		return n * n, nil
	}, WithMemoTTL(time.Minute))

	for range 3 {
		v, err := square(t.Context(), 7)
		require.NoError(t, err)
		assert.Equal(t, 49, v)
	}
	assert.EqualValues(t, 1, calls.Load())

	v, err := square(t.Context(), 8)
	require.NoError(t, err)
	assert.Equal(t, 64, v)
	assert.EqualValues(t, 2, calls.Load())
}

func TestMemoize_NamedArgumentOrder(t *testing.T) {
	c := newMemoCache[string](t)

	var calls atomic.Int32
	join := Memoize(c, func(_ context.Context, a Args) (string, error) {
		calls.Add(1)
		return a.Named["first"].(string) + a.Named["last"].(string), nil
	})

	first := map[string]any{}
	first["first"] = "ada"
	first["last"] = "lovelace"

	second := map[string]any{}
	second["last"] = "lovelace"
	second["first"] = "ada"

	v1, err := join(t.Context(), Args{Named: first})
	require.NoError(t, err)
	v2, err := join(t.Context(), Args{Named: second})
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.EqualValues(t, 1, calls.Load())
}

func TestMemoize_CanonicalArgs(t *testing.T) {
	a := Args{Positional: []any{1, "x"}, Named: map[string]any{"b": 2, "a": 1, "c": 3}}

	got := a.canonical()
	assert.Equal(t, []namedArg{{"a", 1}, {"b", 2}, {"c", 3}}, got.Named)

	h1, err := memoHash("f", a)
	require.NoError(t, err)
	h2, err := memoHash("f", Args{Positional: []any{1, "x"}, Named: map[string]any{"c": 3, "a": 1, "b": 2}})
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	h3, err := memoHash("f", Args{Positional: []any{"x", 1}, Named: a.Named})
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3, "positional order is significant")

	h4, err := memoHash("g", a)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h4, "function identity is part of the key")
}

func TestMemoize_ZeroValueIsAHit(t *testing.T) {
	c := newMemoCache[[]int](t)

	var calls atomic.Int32
	empty := Memoize(c, func(context.Context, string) ([]int, error) {
		calls.Add(1)
		return nil, nil
	})

	for range 2 {
		v, err := empty(t.Context(), "q")
		require.NoError(t, err)
		assert.Empty(t, v)
	}
	assert.EqualValues(t, 1, calls.Load())
}

func TestMemoize_ErrorsAreNotCached(t *testing.T) {
	c := newMemoCache[int](t)
	boom := errors.New("boom")

	var calls atomic.Int32
	flaky := Memoize(c, func(context.Context, int) (int, error) {
		if calls.Add(1) == 1 {
			return 0, boom
		}
		return 42, nil
	})

	_, err := flaky(t.Context(), 1)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len(), "a failed call must leave the cache untouched")

	v, err := flaky(t.Context(), 1)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = flaky(t.Context(), 1)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.EqualValues(t, 2, calls.Load())
}

func TestMemoize_TTLExpiry(t *testing.T) {
	clock := newFakeClock()
	c := newMemoCache[int](t, WithClock(clock.Now))

	var calls atomic.Int32
	f := Memoize(c, func(context.Context, int) (int, error) {
		return int(calls.Add(1)), nil
	}, WithMemoTTL(time.Second))

	v, _ := f(t.Context(), 0)
	assert.Equal(t, 1, v)

	clock.Advance(500 * time.Millisecond)
	v, _ = f(t.Context(), 0)
	assert.Equal(t, 1, v)

	clock.Advance(500 * time.Millisecond)
	v, _ = f(t.Context(), 0)
	assert.Equal(t, 2, v, "result recomputed once the TTL has passed")
}

func TestMemoize_UsesCacheDefaultTTL(t *testing.T) {
	clock := newFakeClock()
	c := newMemoCache[int](t, WithClock(clock.Now), WithDefaultTTL(time.Second))

	var calls atomic.Int32
	f := Memoize(c, func(context.Context, int) (int, error) {
		return int(calls.Add(1)), nil
	})

	f(t.Context(), 0)
	clock.Advance(time.Second)
	v, _ := f(t.Context(), 0)
	assert.Equal(t, 2, v)
}

func TestMemoize_UnhashableArgsBypassCache(t *testing.T) {
	c := newMemoCache[int](t)

	var calls atomic.Int32
	f := Memoize(c, func(context.Context, Args) (int, error) {
		return int(calls.Add(1)), nil
	})

	args := Args{Positional: []any{func() {}}}
	f(t.Context(), args)
	f(t.Context(), args)

	assert.EqualValues(t, 2, calls.Load())
	assert.Equal(t, 0, c.Len())
}

func TestMemoize_DistinctFunctionsDoNotCollide(t *testing.T) {
	c := newMemoCache[int](t)

	double := Memoize(c, func(_ context.Context, n int) (int, error) { return 2 * n, nil })
	triple := Memoize(c, func(_ context.Context, n int) (int, error) { return 3 * n, nil })

	d, _ := double(t.Context(), 5)
	tr, _ := triple(t.Context(), 5)

	assert.Equal(t, 10, d)
	assert.Equal(t, 15, tr)
	assert.Equal(t, 2, c.Len())
}

func TestMemoize_ConcurrentMissesShareOneCall(t *testing.T) {
	c := newMemoCache[int](t, WithThreadSafe(true))

	var calls atomic.Int32
	release := make(chan struct{})
	slow := Memoize(c, func(context.Context, int) (int, error) {
		calls.Add(1)
		<-release
		return 1, nil
	})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := slow(context.Background(), 3)
			assert.NoError(t, err)
			assert.Equal(t, 1, v)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
}

func TestMemoize_Spans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	c := newMemoCache[int](t)
	boom := errors.New("boom")
	f := Memoize(c, func(_ context.Context, n int) (int, error) {
		if n < 0 {
			return 0, boom
		}
		return n, nil
	}, WithName("ident"), WithTracerProvider(tp))

	f(t.Context(), 1)
	f(t.Context(), 1)
	f(t.Context(), -1)

	spans := sr.Ended()
	require.Len(t, spans, 3)

	hit := func(i int) attribute.Value {
		for _, kv := range spans[i].Attributes() {
			if kv.Key == "lru.hit" {
				return kv.Value
			}
		}
		return attribute.Value{}
	}
	assert.False(t, hit(0).AsBool())
	assert.True(t, hit(1).AsBool())
	assert.Equal(t, "lru.Memoize", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("lru.func", "ident"))
	assert.Len(t, spans[2].Events(), 1, "the error is recorded on the span")
}

type point struct{ x, y int }

type window struct {
	From, To time.Time
}

func TestMemoize_UnexportedFieldsBypassCache(t *testing.T) {
	c := newMemoCache[int](t)

	var calls atomic.Int32
	sum := Memoize(c, func(_ context.Context, p point) (int, error) {
		calls.Add(1)
		return p.x + p.y, nil
	})

	v, err := sum(t.Context(), point{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	v, err = sum(t.Context(), point{10, 20})
	require.NoError(t, err)
	assert.Equal(t, 30, v)

	assert.EqualValues(t, 2, calls.Load())
	assert.Equal(t, 0, c.Len())

	_, err = memoHash("f", Args{Named: map[string]any{"p": &point{1, 2}}})
	assert.ErrorIs(t, err, errOpaqueArgument)
	_, err = memoHash("f", Args{Positional: []any{[]point{{1, 2}}}})
	assert.ErrorIs(t, err, errOpaqueArgument)
}

func TestMemoize_ExportedStructsAreKeyed(t *testing.T) {
	c := newMemoCache[time.Duration](t)

	var calls atomic.Int32
	length := Memoize(c, func(_ context.Context, s window) (time.Duration, error) {
		calls.Add(1)
		return s.To.Sub(s.From), nil
	})

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	short := window{From: base, To: base.Add(time.Second)}
	long := window{From: base, To: base.Add(time.Hour)}

	v, err := length(t.Context(), short)
	require.NoError(t, err)
	assert.Equal(t, time.Second, v)

	v, err = length(t.Context(), long)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, v)

	v, err = length(t.Context(), short)
	require.NoError(t, err)
	assert.Equal(t, time.Second, v)

	assert.EqualValues(t, 2, calls.Load())
	assert.Equal(t, 2, c.Len())
}
