// Command fetcher is the market data daemon: it keeps a configured symbol
// universe warm in the cache, refreshing quotes on a schedule through the
// failover chains, and serves health and metrics endpoints.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/caifeng/marketone/internal/datasource"
	"github.com/caifeng/marketone/internal/frame"
	"github.com/caifeng/marketone/internal/platform/cache"
	"github.com/caifeng/marketone/internal/platform/config"
	"github.com/caifeng/marketone/internal/platform/httpx"
	"github.com/caifeng/marketone/internal/platform/observability"
	"github.com/caifeng/marketone/internal/platform/worker"
	"github.com/caifeng/marketone/internal/provider"
	"github.com/caifeng/marketone/internal/provider/realtime"
	"github.com/caifeng/marketone/internal/provider/reference"
	"github.com/caifeng/marketone/internal/router"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg := config.MustLoad(configPath)

	logger := observability.NewLogger(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	metrics, err := observability.NewMetrics("market-fetcher", cfg.Observability.Metrics.Enabled)
	if err != nil {
		log.Fatalf("Failed to create metrics: %v", err)
	}
	defer metrics.Shutdown(ctx)

	collector := observability.NewStatsCollector(logger, metrics)

	// Cache store: in-process by default, layered over Redis when enabled.
	backend := cache.MemoryBackend()
	if cfg.Cache.UseRedis {
		redisCache, err := cache.NewRedisCache(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.KeyPrefix)
		if err != nil {
			logger.LogError("failed to connect to Redis", err)
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisCache.Close()
		backend = cache.LayeredBackend(redisCache)
	}

	classes := make([]cache.ClassConfig, len(cfg.Cache.Classes))
	for i, c := range cfg.Cache.Classes {
		classes[i] = cache.ClassConfig{Name: c.Name, MaxEntries: c.MaxEntries, TTL: c.TTL}
	}
	store, err := cache.NewStore(classes, backend, cache.WithStatsSink(collector))
	if err != nil {
		logger.LogError("failed to create cache store", err)
		log.Fatalf("Failed to create cache store: %v", err)
	}
	defer store.Close()

	client := httpx.New(httpx.Config{
		Timeout:           cfg.HTTPClient.Timeout,
		RequestsPerMinute: cfg.HTTPClient.RequestsPerMinute,
		Burst:             cfg.HTTPClient.Burst,
		MaxRetries:        cfg.HTTPClient.MaxRetries,
	}, logger)

	deps := provider.Deps{Store: store, Client: client, Logger: logger}

	// Pre-populate reference data before the first refresh.
	stockList := reference.NewStockList(store, client)
	warmer := cache.NewWarmer(logger, cache.DefaultWarmupTimeout)
	warmer.Register(stockList)
	warmer.Warmup(ctx)

	go startHTTPServer(cfg.Observability.Metrics.Port, metrics, client, logger)

	pool := worker.NewPool[*frame.Frame](ctx, cfg.Fetcher.Workers, len(cfg.Fetcher.Symbols))
	defer pool.Close()

	// A refresh slower than its schedule must not overlap the next run.
	sched := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger})))
	if len(cfg.Fetcher.Symbols) > 0 {
		_, err = sched.AddFunc(cfg.Fetcher.QuoteRefreshCron, func() {
			refreshQuotes(ctx, deps, cfg, collector, pool, metrics, logger)
		})
		if err != nil {
			log.Fatalf("Invalid quote refresh schedule: %v", err)
		}
	}
	if _, err := sched.AddFunc(cfg.Fetcher.StatsSummaryCron, collector.LogSummary); err != nil {
		log.Fatalf("Invalid stats summary schedule: %v", err)
	}
	sched.Start()

	logger.Info("fetcher started",
		"symbols", len(cfg.Fetcher.Symbols),
		"workers", cfg.Fetcher.Workers,
		"cache_classes", store.Classes(),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutdown signal received, stopping")
	<-sched.Stop().Done()
	collector.LogSummary()
}

// cronLogger adapts the structured logger to the scheduler's interface.
type cronLogger struct {
	l *observability.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Info(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.LogError(msg, err, keysAndValues...)
}

// refreshQuotes fans the symbol universe out over the worker pool, pulling
// each quote through the failover chain so the realtime class stays warm.
func refreshQuotes(
	ctx context.Context,
	deps provider.Deps,
	cfg *config.Config,
	collector *observability.StatsCollector,
	pool *worker.Pool[*frame.Frame],
	metrics *observability.Metrics,
	logger *observability.Logger,
) {
	jobs := make([]worker.Job[*frame.Frame], 0, len(cfg.Fetcher.Symbols))
	for _, sym := range cfg.Fetcher.Symbols {
		sym := sym
		jobs = append(jobs, worker.Job[*frame.Frame]{
			ID: sym,
			Execute: func(ctx context.Context) (*frame.Frame, error) {
				return datasource.GetCurrentData(ctx, deps, realtime.Params{Symbol: sym},
					datasource.WithSources(cfg.Sources.Realtime...),
					datasource.WithMinRows(cfg.Router.MinRows),
					datasource.WithRouterOptions(
						router.WithObserver(collector),
						router.WithLogger(logger),
						router.WithTruncateLimit(cfg.Router.ErrorTruncateLen),
					),
				)
			},
		})
	}

	failed := 0
	for _, res := range pool.SubmitAndWait(jobs) {
		if res.Err == nil {
			continue
		}
		failed++
		var exhausted *router.ExhaustedError
		if errors.As(res.Err, &exhausted) {
			metrics.RecordExhaustion(ctx, realtime.OpCurrentData)
		}
		logger.Warn("quote refresh failed", "symbol", res.JobID, "error", res.Err)
	}

	logger.Debug("quote refresh complete",
		"symbols", len(jobs), "failed", failed)
}

// startHTTPServer serves health, readiness, transport health and metrics.
func startHTTPServer(port int, metrics *observability.Metrics, client *httpx.Client, logger *observability.Logger) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	})

	// Per-source transport health: circuit state, consecutive failures,
	// last error.
	mux.HandleFunc("/sources", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(client.HealthSnapshot()); err != nil {
			logger.LogError("failed to encode source health", err)
		}
	})

	mux.Handle("/metrics", metrics.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info("HTTP server listening", "address", addr)

	server := &http.Server{Addr: addr, Handler: mux}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.LogError("HTTP server error", err)
	}
}
