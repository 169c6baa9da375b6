package observability

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// RequestStats tracks request counts, latencies and errors for one source.
type RequestStats struct {
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64
	TotalDuration      time.Duration
	MinDuration        time.Duration
	MaxDuration        time.Duration
	ErrorsByType       map[string]int64
}

// AvgDuration returns the mean request duration.
func (s RequestStats) AvgDuration() time.Duration {
	if s.TotalRequests == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(s.TotalRequests)
}

// SuccessRate returns the success rate in percent.
func (s RequestStats) SuccessRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.SuccessfulRequests) / float64(s.TotalRequests) * 100
}

// CacheClassStats tracks hit/miss counts for one cache class.
type CacheClassStats struct {
	Hits   int64
	Misses int64
}

// HitRate returns the hit rate in percent.
func (s CacheClassStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// StatsCollector aggregates per-source request statistics and per-class
// cache statistics. One instance is constructed at process start and passed
// to the router (attempt observer) and the cache store (stats sink); Reset
// exists for tests.
//
// It optionally forwards every event to a Metrics instance so the counters
// show up on the Prometheus endpoint as well.
type StatsCollector struct {
	mu      sync.Mutex
	sources map[string]*RequestStats
	caches  map[string]*CacheClassStats
	start   time.Time

	logger  *Logger
	metrics *Metrics
}

// NewStatsCollector creates a stats collector. metrics may be nil.
func NewStatsCollector(logger *Logger, metrics *Metrics) *StatsCollector {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &StatsCollector{
		sources: make(map[string]*RequestStats),
		caches:  make(map[string]*CacheClassStats),
		start:   time.Now(),
		logger:  logger,
		metrics: metrics,
	}
}

// RecordRequest records one attempt against a data source.
func (c *StatsCollector) RecordRequest(source string, duration time.Duration, success bool, errorType string) {
	c.mu.Lock()
	s, ok := c.sources[source]
	if !ok {
		s = &RequestStats{ErrorsByType: make(map[string]int64)}
		c.sources[source] = s
	}

	s.TotalRequests++
	s.TotalDuration += duration
	if s.TotalRequests == 1 || duration < s.MinDuration {
		s.MinDuration = duration
	}
	if duration > s.MaxDuration {
		s.MaxDuration = duration
	}

	if success {
		s.SuccessfulRequests++
	} else {
		s.FailedRequests++
		if errorType != "" {
			s.ErrorsByType[errorType]++
		}
	}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordAttempt(context.Background(), source, duration, success, errorType)
	}

	c.logger.Debug("recorded request",
		"source", source,
		"duration_ms", duration.Milliseconds(),
		"success", success,
		"error_type", errorType,
	)
}

// RecordCacheHit records a cache hit. Implements the cache store's sink.
func (c *StatsCollector) RecordCacheHit(class string) {
	c.mu.Lock()
	c.cacheStatsLocked(class).Hits++
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordCacheHit(context.Background(), class)
	}
}

// RecordCacheMiss records a cache miss. Implements the cache store's sink.
func (c *StatsCollector) RecordCacheMiss(class string) {
	c.mu.Lock()
	c.cacheStatsLocked(class).Misses++
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordCacheMiss(context.Background(), class)
	}
}

func (c *StatsCollector) cacheStatsLocked(class string) *CacheClassStats {
	s, ok := c.caches[class]
	if !ok {
		s = &CacheClassStats{}
		c.caches[class] = s
	}
	return s
}

// SourceStats returns a copy of the stats for one source.
func (c *StatsCollector) SourceStats(source string) (RequestStats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sources[source]
	if !ok {
		return RequestStats{}, false
	}
	out := *s
	out.ErrorsByType = make(map[string]int64, len(s.ErrorsByType))
	for k, v := range s.ErrorsByType {
		out.ErrorsByType[k] = v
	}
	return out, true
}

// CacheStats returns a copy of the stats for one cache class.
func (c *StatsCollector) CacheStats(class string) (CacheClassStats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.caches[class]
	if !ok {
		return CacheClassStats{}, false
	}
	return *s, true
}

// Summary renders a human-readable snapshot of everything collected,
// intended for the periodic summary log line.
func (c *StatsCollector) Summary() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "stats since %s\n", c.start.Format(time.RFC3339))

	names := make([]string, 0, len(c.sources))
	for name := range c.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s := c.sources[name]
		fmt.Fprintf(&b, "  source %-18s requests=%d success=%.1f%% avg=%s\n",
			name, s.TotalRequests, s.SuccessRate(), s.AvgDuration().Round(time.Millisecond))
	}

	classes := make([]string, 0, len(c.caches))
	for class := range c.caches {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	for _, class := range classes {
		s := c.caches[class]
		fmt.Fprintf(&b, "  cache  %-18s hits=%d misses=%d hit_rate=%.1f%%\n",
			class, s.Hits, s.Misses, s.HitRate())
	}

	return strings.TrimRight(b.String(), "\n")
}

// LogSummary writes the summary through the collector's logger.
func (c *StatsCollector) LogSummary() {
	c.logger.Info("usage summary", "summary", c.Summary())
}

// Reset discards everything collected. Test hook.
func (c *StatsCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources = make(map[string]*RequestStats)
	c.caches = make(map[string]*CacheClassStats)
	c.start = time.Now()
}
