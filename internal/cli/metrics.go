package cli

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/3XBAT/lru"
	"github.com/3XBAT/lru/internal/logging"
)

var (
	metricsKeys     int
	metricsInterval time.Duration

	metricsCmd = &cobra.Command{
		Use:   "metrics",
		Short: "Serve Prometheus metrics while running a synthetic workload",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMetrics(cmd.Context())
		},
	}
)

func init() {
	metricsCmd.Flags().IntVar(&metricsKeys, "keys", 512, "size of the key space used by the workload")
	metricsCmd.Flags().DurationVar(&metricsInterval, "interval", time.Millisecond, "pause between workload operations")
}

func runMetrics(ctx context.Context) error {
	log := logging.WithComponent(app.Logger, "metrics")
	cfg := app.Settings.Cache

	m := lru.NewMetrics(string(cfg.Engine))
	reg := prometheus.NewRegistry()
	if err := reg.Register(m); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	c, err := lru.New[string, int](cfg, lru.WithMetrics(m), lru.WithLogger(log))
	if err != nil {
		return fmt.Errorf("create cache: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              app.Settings.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var serveErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info().Str("addr", srv.Addr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
			cancel()
		}
	}()

	runWorkload(ctx, c, log)

	shutdownCtx, stop := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown metrics server: %w", err)
	}

	<-done
	if serveErr != nil {
		return fmt.Errorf("serve metrics: %w", serveErr)
	}
	return nil
}

// runWorkload issues a read-mostly mix of operations until ctx is done.
func runWorkload(ctx context.Context, c lru.Cache[string, int], log zerolog.Logger) {
	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Int("len", c.Len()).Msg("workload stopped")
			return
		case <-ticker.C:
			n := rand.IntN(max(metricsKeys, 1))
			key := "key-" + strconv.Itoa(n)
			switch op := rand.IntN(10); {
			case op < 7:
				c.Get(key)
			case op < 9:
				c.Put(key, n)
			default:
				c.Delete(key)
			}
		}
	}
}
