package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// Metrics holds all application metrics.
type Metrics struct {
	meter metric.Meter

	// Router metrics
	RouterAttempts        metric.Int64Counter
	RouterAttemptDuration metric.Float64Histogram
	RouterExhaustions     metric.Int64Counter

	// Provider metrics
	ProviderErrors metric.Int64Counter

	// Cache metrics
	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter

	enabled  bool
	provider *sdkmetric.MeterProvider
}

// NewMetrics creates a new Metrics instance. When disabled every recording
// method is a no-op.
func NewMetrics(serviceName string, enabled bool) (*Metrics, error) {
	if !enabled {
		return &Metrics{}, nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	meter := provider.Meter(serviceName)

	m := &Metrics{
		meter:    meter,
		enabled:  true,
		provider: provider,
	}

	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return m, nil
}

// initMetrics initializes all metric instruments.
func (m *Metrics) initMetrics() error {
	var err error

	m.RouterAttempts, err = m.meter.Int64Counter(
		"router.attempts",
		metric.WithDescription("Provider attempts made by the failover router"),
	)
	if err != nil {
		return err
	}

	m.RouterAttemptDuration, err = m.meter.Float64Histogram(
		"router.attempt.duration",
		metric.WithDescription("Duration of a single provider attempt in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	m.RouterExhaustions, err = m.meter.Int64Counter(
		"router.exhaustions",
		metric.WithDescription("Requests for which every provider failed"),
	)
	if err != nil {
		return err
	}

	m.ProviderErrors, err = m.meter.Int64Counter(
		"provider.errors",
		metric.WithDescription("Provider errors by source and error type"),
	)
	if err != nil {
		return err
	}

	m.CacheHits, err = m.meter.Int64Counter(
		"cache.hits",
		metric.WithDescription("Cache hits by class"),
	)
	if err != nil {
		return err
	}

	m.CacheMisses, err = m.meter.Int64Counter(
		"cache.misses",
		metric.WithDescription("Cache misses by class"),
	)
	if err != nil {
		return err
	}

	return nil
}

// RecordAttempt records one router attempt against one source.
func (m *Metrics) RecordAttempt(ctx context.Context, source string, duration time.Duration, success bool, errorType string) {
	if !m.enabled {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("source", source),
		attribute.Bool("success", success),
	}
	if errorType != "" {
		attrs = append(attrs, attribute.String("error_type", errorType))
	}

	m.RouterAttempts.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.RouterAttemptDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attribute.String("source", source)))

	if !success {
		m.ProviderErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordExhaustion records a request that ran out of providers.
func (m *Metrics) RecordExhaustion(ctx context.Context, method string) {
	if !m.enabled {
		return
	}
	m.RouterExhaustions.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
}

// RecordCacheHit records a hit for a cache class.
func (m *Metrics) RecordCacheHit(ctx context.Context, class string) {
	if !m.enabled {
		return
	}
	m.CacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("class", class)))
}

// RecordCacheMiss records a miss for a cache class.
func (m *Metrics) RecordCacheMiss(ctx context.Context, class string) {
	if !m.enabled {
		return
	}
	m.CacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("class", class)))
}

// Handler returns the HTTP handler exposing the Prometheus scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// Shutdown flushes and stops the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}
