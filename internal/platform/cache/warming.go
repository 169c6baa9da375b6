package cache

import (
	"context"
	"sync"
	"time"

	"github.com/caifeng/marketone/internal/platform/observability"
)

// WarmupProvider is implemented by providers that can pre-populate the
// store, typically with rarely-changing reference data such as the full
// stock list. Warmup must be idempotent.
type WarmupProvider interface {
	Name() string
	Warmup(ctx context.Context) error
}

// DefaultWarmupTimeout bounds one startup warmup pass.
const DefaultWarmupTimeout = 30 * time.Second

// Warmer runs registered providers concurrently at startup so the first
// requests find the store already populated. A failed provider is logged
// and skipped; warmup never blocks startup on an unreachable upstream.
type Warmer struct {
	providers []WarmupProvider
	logger    *observability.Logger
	timeout   time.Duration
}

// NewWarmer creates a warmer. A zero timeout falls back to the default.
func NewWarmer(logger *observability.Logger, timeout time.Duration) *Warmer {
	if timeout <= 0 {
		timeout = DefaultWarmupTimeout
	}
	return &Warmer{logger: logger, timeout: timeout}
}

// Register adds a provider to the warmup pass.
func (w *Warmer) Register(provider WarmupProvider) {
	w.providers = append(w.providers, provider)
}

// Warmup runs every registered provider and returns how many failed.
func (w *Warmer) Warmup(ctx context.Context) int {
	if len(w.providers) == 0 {
		return 0
	}

	start := time.Now()
	warmupCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := 0

	for _, provider := range w.providers {
		wg.Add(1)
		go func(p WarmupProvider) {
			defer wg.Done()
			if err := p.Warmup(warmupCtx); err != nil {
				w.logger.Warn("cache warmup failed", "provider", p.Name(), "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			w.logger.Debug("cache warmup done", "provider", p.Name())
		}(provider)
	}
	wg.Wait()

	w.logger.Info("cache warmup complete",
		"providers", len(w.providers), "failed", failed, "elapsed", time.Since(start))
	return failed
}
