// Package datasource assembles failover routers from the provider
// registries: each data domain gets a default source priority, a validation
// rule, and convenience calls for its operations.
package datasource

import (
	"context"

	"github.com/caifeng/marketone/internal/frame"
	"github.com/caifeng/marketone/internal/provider"
	"github.com/caifeng/marketone/internal/provider/financial"
	"github.com/caifeng/marketone/internal/provider/historical"
	"github.com/caifeng/marketone/internal/provider/realtime"
	"github.com/caifeng/marketone/internal/router"
)

// Default source priorities per domain. Order is trial order.
var (
	DefaultHistoricalSources = []string{"eastmoney", "sina", "tencent", "netease"}
	DefaultRealtimeSources   = []string{"eastmoney", "xueqiu"}
	DefaultFinancialSources  = []string{"eastmoney", "sina", "cninfo"}
)

// realtimeRequiredColumns is the minimum quote shape every realtime source
// must produce. Historical sources share the full historical.Columns set;
// financial statement shapes vary by source and are only checked for
// presence.
var realtimeRequiredColumns = []string{"symbol", "price", "timestamp"}

type config struct {
	sources    []string
	validation router.Validation
	routerOpts []router.Option
}

// Option customizes router assembly for one call.
type Option func(*config)

// WithSources overrides the domain's default source priority.
func WithSources(names ...string) Option {
	return func(c *config) { c.sources = names }
}

// WithRequiredColumns overrides the domain's required column set.
func WithRequiredColumns(cols ...string) Option {
	return func(c *config) { c.validation.RequiredColumns = cols }
}

// WithMinRows overrides the minimum row count a result must carry.
func WithMinRows(n int) Option {
	return func(c *config) { c.validation.MinRows = n }
}

// WithRouterOptions forwards options to the underlying router (stats
// sharing, observers, loggers, truncation).
func WithRouterOptions(opts ...router.Option) Option {
	return func(c *config) { c.routerOpts = append(c.routerOpts, opts...) }
}

// build constructs the ordered provider entries for one domain. A source
// whose constructor fails is logged and skipped so one bad parameter
// combination never takes down the whole chain.
func build[P any](deps provider.Deps, factory *provider.Registry[P], sources []string, params P) []router.ProviderEntry {
	entries := make([]router.ProviderEntry, 0, len(sources))
	for _, name := range sources {
		handle, err := factory.New(name, deps, params)
		if err != nil {
			if deps.Logger != nil {
				deps.Logger.Warn("skipping source",
					"domain", factory.Domain(), "source", name, "error", err)
			}
			continue
		}
		entries = append(entries, router.ProviderEntry{Name: name, Handle: handle})
	}
	return entries
}

func newRouter[P any](deps provider.Deps, factory *provider.Registry[P], params P, defaults []string, validation router.Validation, opts []Option) *router.Router {
	cfg := config{sources: defaults, validation: validation}
	for _, opt := range opts {
		opt(&cfg)
	}

	entries := build(deps, factory, cfg.sources, params)
	routerOpts := append([]router.Option{router.WithValidation(cfg.validation)}, cfg.routerOpts...)
	return router.New(entries, routerOpts...)
}

// NewHistoricalRouter builds the candlestick history failover chain.
func NewHistoricalRouter(deps provider.Deps, params historical.Params, opts ...Option) *router.Router {
	return newRouter(deps, historical.Factory, params, DefaultHistoricalSources,
		router.Validation{RequiredColumns: historical.Columns, MinRows: 1}, opts)
}

// NewRealtimeRouter builds the live quote failover chain.
func NewRealtimeRouter(deps provider.Deps, params realtime.Params, opts ...Option) *router.Router {
	return newRouter(deps, realtime.Factory, params, DefaultRealtimeSources,
		router.Validation{RequiredColumns: realtimeRequiredColumns, MinRows: 1}, opts)
}

// NewFinancialRouter builds the financial statement failover chain.
func NewFinancialRouter(deps provider.Deps, params financial.Params, opts ...Option) *router.Router {
	return newRouter(deps, financial.Factory, params, DefaultFinancialSources,
		router.Validation{MinRows: 1}, opts)
}

// GetHistData fetches candlestick history through the default chain.
func GetHistData(ctx context.Context, deps provider.Deps, params historical.Params, opts ...Option) (*frame.Frame, error) {
	return NewHistoricalRouter(deps, params, opts...).Execute(ctx, historical.OpHistData)
}

// GetCurrentData fetches a live quote through the default chain.
func GetCurrentData(ctx context.Context, deps provider.Deps, params realtime.Params, opts ...Option) (*frame.Frame, error) {
	return NewRealtimeRouter(deps, params, opts...).Execute(ctx, realtime.OpCurrentData)
}

// GetBalanceSheet fetches the balance sheet, falling back to a source's
// generic periodic report when it lacks the dedicated statement.
func GetBalanceSheet(ctx context.Context, deps provider.Deps, params financial.Params, opts ...Option) (*frame.Frame, error) {
	return NewFinancialRouter(deps, params, opts...).
		ExecuteWithFallback(ctx, financial.OpBalanceSheet, financial.OpFinancialReport)
}

// GetIncomeStatement fetches the income statement with report fallback.
func GetIncomeStatement(ctx context.Context, deps provider.Deps, params financial.Params, opts ...Option) (*frame.Frame, error) {
	return NewFinancialRouter(deps, params, opts...).
		ExecuteWithFallback(ctx, financial.OpIncomeStatement, financial.OpFinancialReport)
}

// GetCashFlow fetches the cash flow statement with report fallback.
func GetCashFlow(ctx context.Context, deps provider.Deps, params financial.Params, opts ...Option) (*frame.Frame, error) {
	return NewFinancialRouter(deps, params, opts...).
		ExecuteWithFallback(ctx, financial.OpCashFlow, financial.OpFinancialReport)
}

// GetFinancialMetrics fetches derived per-share and ratio metrics with
// report fallback.
func GetFinancialMetrics(ctx context.Context, deps provider.Deps, params financial.Params, opts ...Option) (*frame.Frame, error) {
	return NewFinancialRouter(deps, params, opts...).
		ExecuteWithFallback(ctx, financial.OpFinancialMetrics, financial.OpFinancialReport)
}
