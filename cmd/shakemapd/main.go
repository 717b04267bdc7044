// Command shakemapd serves the earthquake intensity overlay API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shakemap/shakemapd/api"
	"github.com/shakemap/shakemapd/auth"
	"github.com/shakemap/shakemapd/cache"
	"github.com/shakemap/shakemapd/config"
	"github.com/shakemap/shakemapd/health"
	"github.com/shakemap/shakemapd/observe"
	"github.com/shakemap/shakemapd/overlay"
	"github.com/shakemap/shakemapd/quake"
	"github.com/shakemap/shakemapd/resilience"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "shakemapd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs, err := observe.NewObserver(ctx, observe.Config{
		ServiceName: cfg.Observe.ServiceName,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   cfg.Observe.TracingEnabled,
			Exporter:  cfg.Observe.TracingExporter,
			SamplePct: cfg.Observe.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  cfg.Observe.MetricsEnabled,
			Exporter: cfg.Observe.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: cfg.Observe.LoggingEnabled,
			Level:   cfg.Observe.LogLevel,
		},
	})
	if err != nil {
		return fmt.Errorf("observability setup: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := obs.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "shakemapd: telemetry shutdown: %v\n", err)
		}
	}()

	logger := obs.Logger()

	source := quake.NewFeedSource(quake.FeedConfig{
		URL:     cfg.Feed.URL,
		Region:  cfg.Feed.Region(),
		MinMag:  cfg.Feed.MinMagnitude,
		Timeout: cfg.Feed.Timeout(),
	})

	engine := overlay.NewEngine()

	cacheMetrics, err := cache.NewOTelMetrics(obs.Meter())
	if err != nil {
		return fmt.Errorf("cache metrics setup: %w", err)
	}

	store := cache.NewStore(cache.StoreConfig{
		Source:   source,
		Computer: engine,
		Policy:   cache.Policy{TTL: cfg.Cache.TTL()},
		Metrics:  cacheMetrics,
	})

	middleware, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return fmt.Errorf("middleware setup: %w", err)
	}

	server := api.NewServer(api.ServerConfig{
		Store:          store,
		Simulator:      engine,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Operator: auth.NewOperator(auth.OperatorConfig{
			Secret: cfg.Auth.OperatorSecret,
			Issuer: cfg.Auth.Issuer,
		}),
		RefreshLimiter: resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Rate:  cfg.Server.RefreshRate,
			Burst: cfg.Server.RefreshBurst,
		}),
		Middleware: middleware,
		Logger:     logger,
	})

	mux := http.NewServeMux()
	health.RegisterHandlers(mux, buildHealth(cfg, store))
	mux.Handle("/", server.Handler())

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "server listening",
			observe.Field{Key: "addr", Value: cfg.Server.Addr},
			observe.Field{Key: "ttl_sec", Value: cfg.Cache.TTLSeconds},
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownSeconds)*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}

	return nil
}

// buildHealth registers the process, feed and cache checkers.
func buildHealth(cfg *config.Config, store *cache.Store) *health.Aggregator {
	agg := health.NewAggregator()

	agg.Register("memory", health.NewMemoryChecker(health.MemoryCheckerConfig{}))
	agg.Register("feed", health.NewFeedChecker(health.FeedCheckerConfig{
		URL:     cfg.Feed.URL,
		Timeout: cfg.Feed.Timeout(),
	}))
	agg.Register("cache", health.NewCheckerFunc("cache", func(ctx context.Context) health.Result {
		snap := store.Peek()
		if !snap.HasResult {
			return health.Degraded("no overlay cached yet")
		}
		if snap.TTL > 0 && time.Since(snap.StoredAt) >= snap.TTL {
			return health.Degraded("cached overlay is stale")
		}
		return health.Healthy("overlay cached").WithDetails(map[string]any{
			"event_key": snap.EventKey,
			"stored_at": snap.StoredAt.UTC().Format(time.RFC3339),
		})
	}))

	return agg
}
