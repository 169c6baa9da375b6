// Package httpx is the shared HTTP transport for the upstream market data
// endpoints. It combines sane connection defaults with per-source rate
// limiting, retry, circuit breaking and health tracking, so the provider
// adapters stay thin.
package httpx

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/caifeng/marketone/internal/platform/observability"
	"github.com/caifeng/marketone/internal/platform/resilience"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// Config holds the client settings shared by all sources.
type Config struct {
	Timeout           time.Duration
	RequestsPerMinute int
	Burst             int
	MaxRetries        int
	UserAgent         string
}

// DefaultConfig returns conservative scraping defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:           10 * time.Second,
		RequestsPerMinute: 120,
		Burst:             10,
		MaxRetries:        3,
	}
}

// SourceHealth is the transport-level health snapshot for one source.
type SourceHealth struct {
	Source              string
	LastSuccess         time.Time
	LastFailure         time.Time
	LastError           string
	LastDuration        time.Duration
	ConsecutiveFailures int
	CircuitState        string
}

// sourceState holds the per-source limiter, breaker and health counters.
type sourceState struct {
	limiter *resilience.RateLimiter
	breaker *resilience.CircuitBreaker

	mu                  sync.Mutex
	lastSuccess         time.Time
	lastFailure         time.Time
	lastError           string
	lastDuration        time.Duration
	consecutiveFailures int
}

// Client is the shared transport. One instance serves every provider; state
// is tracked per source name.
type Client struct {
	http      *http.Client
	cfg       Config
	userAgent string
	logger    *observability.Logger

	mu      sync.Mutex
	sources map[string]*sourceState
}

// New creates a client.
func New(cfg Config, logger *observability.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   3 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   3 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	return &Client{
		http:      &http.Client{Timeout: cfg.Timeout, Transport: transport},
		cfg:       cfg,
		userAgent: ua,
		logger:    logger,
		sources:   make(map[string]*sourceState),
	}
}

// Get fetches the URL with the given query parameters and returns the raw
// body. The call is rate limited, retried on transient failures and guarded
// by the source's circuit breaker.
func (c *Client) Get(ctx context.Context, source, rawURL string, params url.Values, headers map[string]string) ([]byte, error) {
	st := c.state(source)

	if err := st.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	retryCfg := resilience.DefaultRetryConfig()
	if c.cfg.MaxRetries > 0 {
		retryCfg.MaxAttempts = c.cfg.MaxRetries
	}

	return resilience.RetryIfWithResult(ctx, retryCfg, resilience.IsRetryable, func(ctx context.Context) ([]byte, error) {
		return resilience.ExecuteWithResult(st.breaker, ctx, func(ctx context.Context) ([]byte, error) {
			return c.doOnce(ctx, st, source, rawURL, params, headers)
		})
	})
}

// doOnce performs a single HTTP round trip and records health.
func (c *Client) doOnce(ctx context.Context, st *sourceState, source, rawURL string, params url.Values, headers map[string]string) ([]byte, error) {
	u := rawURL
	if len(params) > 0 {
		u = rawURL + "?" + params.Encode()
	}

	start := time.Now()

	body, err := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, source)
		}

		return io.ReadAll(resp.Body)
	}()

	elapsed := time.Since(start)
	st.record(elapsed, err)

	if err != nil {
		c.logger.Debug("request failed", "source", source, "url", rawURL, "error", err)
		return nil, err
	}
	return body, nil
}

// Health returns the health snapshot for one source.
func (c *Client) Health(source string) (SourceHealth, bool) {
	c.mu.Lock()
	st, ok := c.sources[source]
	c.mu.Unlock()
	if !ok {
		return SourceHealth{}, false
	}
	return st.snapshot(source), true
}

// HealthSnapshot returns the health of every source seen so far.
func (c *Client) HealthSnapshot() []SourceHealth {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]SourceHealth, 0, len(c.sources))
	for name, st := range c.sources {
		out = append(out, st.snapshot(name))
	}
	return out
}

// state returns the per-source state, creating it on first use.
func (c *Client) state(source string) *sourceState {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.sources[source]
	if !ok {
		rpm := c.cfg.RequestsPerMinute
		if rpm <= 0 {
			rpm = 120
		}
		burst := c.cfg.Burst
		if burst <= 0 {
			burst = 10
		}
		st = &sourceState{
			limiter: resilience.NewRateLimiterFromRPM(rpm, burst),
			breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: source}),
		}
		c.sources[source] = st
	}
	return st
}

func (s *sourceState) record(elapsed time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastDuration = elapsed
	if err != nil {
		s.lastFailure = time.Now()
		s.lastError = err.Error()
		s.consecutiveFailures++
	} else {
		s.lastSuccess = time.Now()
		s.lastError = ""
		s.consecutiveFailures = 0
	}
}

func (s *sourceState) snapshot(source string) SourceHealth {
	s.mu.Lock()
	defer s.mu.Unlock()

	return SourceHealth{
		Source:              source,
		LastSuccess:         s.lastSuccess,
		LastFailure:         s.lastFailure,
		LastError:           s.lastError,
		LastDuration:        s.lastDuration,
		ConsecutiveFailures: s.consecutiveFailures,
		CircuitState:        s.breaker.State().String(),
	}
}
