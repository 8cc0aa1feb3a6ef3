package cli

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/3XBAT/lru"
	"github.com/3XBAT/lru/internal/logging"
)

var (
	demoCapacity int
	demoTrace    bool

	demoCmd = &cobra.Command{
		Use:   "demo",
		Short: "Walk through eviction, expiry and memoization",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDemo(cmd.Context())
		},
	}
)

func init() {
	demoCmd.Flags().IntVar(&demoCapacity, "capacity", 2, "capacity of the demo cache, 0 uses the configured capacity")
	demoCmd.Flags().BoolVar(&demoTrace, "trace", false, "print memoization spans to stdout")
}

func runDemo(ctx context.Context) error {
	log := logging.WithComponent(app.Logger, "demo")

	cfg := app.Settings.Cache
	if demoCapacity > 0 {
		cfg.Capacity = demoCapacity
	}

	c, err := lru.New[string, string](cfg,
		lru.WithLogger(log),
		lru.WithEvictHandler(func(key, _ string) {
			log.Info().Str("key", key).Msg("evicted")
		}),
	)
	if err != nil {
		return fmt.Errorf("create cache: %w", err)
	}

	log.Info().
		Str("engine", string(cfg.Engine)).
		Int("capacity", cfg.Capacity).
		Bool("thread_safe", cfg.ThreadSafe).
		Msg("cache ready")

	// Recency: touching "a" leaves "b" as the least recently used entry.
	c.Put("a", "A")
	c.Put("b", "B")
	c.Get("a")
	c.Put("c", "C")
	log.Info().Strs("keys", c.Keys()).Msg("keys after eviction (MRU->LRU)")

	// Lazy expiry: the entry keeps counting until a Get discovers it.
	c.PutWithTTL("ttl", "short", 20*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	before := c.Len()
	_, ok := c.Get("ttl")
	log.Info().
		Int("len_before_get", before).
		Bool("found", ok).
		Int("len_after_get", c.Len()).
		Msg("expired entry touched")

	tp, shutdown, err := demoTracerProvider()
	if err != nil {
		return err
	}
	defer shutdown(context.WithoutCancel(ctx))

	return runMemoDemo(ctx, cfg, tp)
}

func runMemoDemo(ctx context.Context, cfg lru.Config, tp trace.TracerProvider) error {
	log := logging.WithComponent(app.Logger, "memoize")

	memo, err := lru.New[uint64, int](cfg, lru.WithLogger(log))
	if err != nil {
		return fmt.Errorf("create memo cache: %w", err)
	}

	var calls atomic.Int32
	square := lru.Memoize(memo, func(_ context.Context, n int) (int, error) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		return n * n, nil
	}, lru.WithName("square"), lru.WithMemoTTL(time.Minute), lru.WithMemoLogger(log), lru.WithTracerProvider(tp))

	for i := range 2 {
		start := time.Now()
		v, err := square(ctx, 12)
		if err != nil {
			return err
		}
		log.Info().
			Int("call", i+1).
			Int("result", v).
			Dur("took", time.Since(start)).
			Int32("computations", calls.Load()).
			Msg("square(12)")
	}
	return nil
}

func demoTracerProvider() (trace.TracerProvider, func(context.Context), error) {
	if !demoTrace {
		return noop.NewTracerProvider(), func(context.Context) {}, nil
	}

	exp, err := stdouttrace.New(stdouttrace.WithWriter(os.Stdout), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, nil, fmt.Errorf("create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	return tp, func(ctx context.Context) {
		if err := tp.Shutdown(ctx); err != nil {
			app.Logger.Warn().Err(err).Msg("tracer shutdown")
		}
	}, nil
}
