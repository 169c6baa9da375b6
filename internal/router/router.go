// Package router implements the multi-source failover router: given a
// priority-ordered list of providers it tries each in turn, validates every
// candidate result against configurable quality rules, short-circuits on the
// first valid one and records per-source outcome statistics.
package router

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/caifeng/marketone/internal/frame"
	"github.com/caifeng/marketone/internal/platform/observability"
)

// DefaultTruncateLimit bounds the length of per-source error diagnostics.
const DefaultTruncateLimit = 100

// OpFunc is a provider operation with its arguments already bound at
// construction time.
type OpFunc func(ctx context.Context) (*frame.Frame, error)

// Handle exposes a provider's named operations. It is the only contract the
// router has with a provider: a string-to-closure table built once when the
// provider is constructed.
type Handle interface {
	Op(name string) (OpFunc, bool)
}

// OpTable is a map-backed Handle for providers assembled inline (tests,
// adapters).
type OpTable map[string]OpFunc

// Op implements Handle.
func (t OpTable) Op(name string) (OpFunc, bool) {
	fn, ok := t[name]
	return fn, ok
}

// ProviderEntry pairs a source name with its handle. Slice order is trial
// order; the router never reorders entries.
type ProviderEntry struct {
	Name   string
	Handle Handle
}

// Validation is the shared result quality rule. A candidate passes iff it is
// non-nil, non-empty, has at least MinRows rows and contains every required
// column.
type Validation struct {
	RequiredColumns []string
	MinRows         int
}

// Check validates a candidate result. A failure is reported as a diagnostic
// string, never an error: invalid results and provider errors take the same
// path through the trial loop.
func (v Validation) Check(result *frame.Frame) (string, bool) {
	if result == nil {
		return "Invalid result (nil)", false
	}
	if result.IsEmpty() {
		return "Invalid result (empty)", false
	}
	if result.NumRows() < v.MinRows {
		return fmt.Sprintf("Invalid result (%d rows, need %d)", result.NumRows(), v.MinRows), false
	}
	if len(v.RequiredColumns) > 0 {
		var missing []string
		for _, col := range v.RequiredColumns {
			if !result.HasColumn(col) {
				missing = append(missing, col)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			return fmt.Sprintf("Invalid result (missing columns: %s)", strings.Join(missing, ", ")), false
		}
	}
	return "", true
}

// SourceError is one per-source diagnostic collected during a trial loop.
type SourceError struct {
	Source  string
	Message string
}

// ExecutionResult is the non-throwing outcome of ExecuteWithResult. Attempts
// is the 1-based index of the provider whose result was accepted, or the
// full provider count when every provider failed.
type ExecutionResult struct {
	Success      bool
	Data         *frame.Frame
	Source       string
	Error        string
	Attempts     int
	ErrorDetails []SourceError
}

// ExhaustedError is returned by Execute when every provider failed or
// produced an invalid result. Its message lists each per-source diagnostic
// in trial order.
type ExhaustedError struct {
	Method   string
	Attempts int
	Details  []SourceError
}

// Error implements error.
func (e *ExhaustedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "all data sources failed for %q:", e.Method)
	for _, d := range e.Details {
		fmt.Fprintf(&b, "\n  %s: %s", d.Source, d.Message)
	}
	return b.String()
}

// Observer receives one event per provider attempt. The router only emits
// events; storage and presentation belong to the observer.
type Observer interface {
	RecordRequest(source string, duration time.Duration, success bool, errorType string)
}

// Router tries providers in order and falls back on failure. Statistics are
// observational only; they never influence trial order.
type Router struct {
	providers     []ProviderEntry
	validation    Validation
	stats         *Stats
	observer      Observer
	logger        *observability.Logger
	truncateLimit int
}

// Option customizes a Router.
type Option func(*Router)

// WithValidation sets the result quality rule.
func WithValidation(v Validation) Option {
	return func(r *Router) { r.validation = v }
}

// WithStats shares an outcome-count registry between routers. Without it the
// router keeps a private one.
func WithStats(s *Stats) Option {
	return func(r *Router) {
		if s != nil {
			r.stats = s
		}
	}
}

// WithObserver routes per-attempt events to an external sink.
func WithObserver(o Observer) Option {
	return func(r *Router) { r.observer = o }
}

// WithLogger sets the router's logger.
func WithLogger(l *observability.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithTruncateLimit bounds per-source error diagnostics to n characters.
func WithTruncateLimit(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.truncateLimit = n
		}
	}
}

// New creates a router over a priority-ordered provider list.
func New(providers []ProviderEntry, opts ...Option) *Router {
	r := &Router{
		providers:     providers,
		stats:         NewStats(),
		logger:        observability.NewNopLogger(),
		truncateLimit: DefaultTruncateLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Providers returns the provider names in trial order.
func (r *Router) Providers() []string {
	names := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		names = append(names, p.Name)
	}
	return names
}

// Stats returns the shared outcome-count registry.
func (r *Router) Stats() *Stats {
	return r.stats
}

// Execute tries the named operation on each provider in order and returns
// the first valid result. On total exhaustion it returns an
// *ExhaustedError aggregating every per-source diagnostic.
func (r *Router) Execute(ctx context.Context, method string) (*frame.Frame, error) {
	res := r.run(ctx, method, "")
	if !res.Success {
		return nil, &ExhaustedError{Method: method, Attempts: res.Attempts, Details: res.ErrorDetails}
	}
	return res.Data, nil
}

// ExecuteWithFallback is Execute with a second operation name: a provider
// lacking primary is tried with fallback instead; a provider with neither is
// recorded as failed and skipped, never a hard error.
func (r *Router) ExecuteWithFallback(ctx context.Context, primary, fallback string) (*frame.Frame, error) {
	res := r.run(ctx, primary, fallback)
	if !res.Success {
		method := fmt.Sprintf("%s (or %s)", primary, fallback)
		return nil, &ExhaustedError{Method: method, Attempts: res.Attempts, Details: res.ErrorDetails}
	}
	return res.Data, nil
}

// ExecuteWithResult is the non-throwing variant of Execute: it always
// returns a structured result and never an error. Callers check Success.
func (r *Router) ExecuteWithResult(ctx context.Context, method string) ExecutionResult {
	return r.run(ctx, method, "")
}

// run is the single linear scan shared by the execute variants.
func (r *Router) run(ctx context.Context, method, fallback string) ExecutionResult {
	details := make([]SourceError, 0)
	attempts := 0

	for _, p := range r.providers {
		attempts++

		op, opName, ok := r.resolve(p, method, fallback)
		if !ok {
			msg := fmt.Sprintf("Provider has neither %q nor %q", method, fallback)
			if fallback == "" {
				msg = fmt.Sprintf("Provider has no operation %q", method)
			}
			details = append(details, SourceError{Source: p.Name, Message: msg})
			r.recordFailure(p.Name, 0, "MissingOperation")
			r.logger.Warn("provider lacks operation", "source", p.Name, "method", method, "fallback", fallback)
			continue
		}

		start := time.Now()
		result, err := op(ctx)
		elapsed := time.Since(start)

		if err != nil {
			msg := fmt.Sprintf("%s: %s", errorTypeName(err), truncate(err.Error(), r.truncateLimit))
			details = append(details, SourceError{Source: p.Name, Message: msg})
			r.recordFailure(p.Name, elapsed, errorTypeName(err))
			r.logger.Warn("provider failed", "source", p.Name, "method", opName, "error", msg)
			continue
		}

		if diag, valid := r.validation.Check(result); !valid {
			details = append(details, SourceError{Source: p.Name, Message: diag})
			r.recordFailure(p.Name, elapsed, "InvalidResult")
			r.logger.Warn("provider returned invalid result", "source", p.Name, "method", opName, "reason", diag)
			continue
		}

		r.recordSuccess(p.Name, elapsed)
		if len(details) > 0 {
			r.logger.Info("fetched data after failover",
				"source", p.Name, "method", opName, "failed_attempts", len(details))
		}
		return ExecutionResult{
			Success:      true,
			Data:         result,
			Source:       p.Name,
			Attempts:     attempts,
			ErrorDetails: details,
		}
	}

	summary := make([]string, 0, len(details))
	for _, d := range details {
		summary = append(summary, fmt.Sprintf("%s: %s", d.Source, d.Message))
	}
	return ExecutionResult{
		Success:      false,
		Attempts:     attempts,
		Error:        strings.Join(summary, "\n"),
		ErrorDetails: details,
	}
}

// resolve picks the operation for a provider: method first, then fallback.
func (r *Router) resolve(p ProviderEntry, method, fallback string) (OpFunc, string, bool) {
	if op, ok := p.Handle.Op(method); ok {
		return op, method, true
	}
	if fallback != "" {
		if op, ok := p.Handle.Op(fallback); ok {
			r.logger.Info("using fallback operation", "source", p.Name, "method", method, "fallback", fallback)
			return op, fallback, true
		}
	}
	return nil, "", false
}

func (r *Router) recordSuccess(source string, elapsed time.Duration) {
	r.stats.record(source, true)
	if r.observer != nil {
		r.observer.RecordRequest(source, elapsed, true, "")
	}
}

func (r *Router) recordFailure(source string, elapsed time.Duration, errorType string) {
	r.stats.record(source, false)
	if r.observer != nil {
		r.observer.RecordRequest(source, elapsed, false, errorType)
	}
}

// errorTypeName reports the concrete error type for diagnostics, without the
// leading pointer marker.
func errorTypeName(err error) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
}

// truncate shortens msg to at most limit characters.
func truncate(msg string, limit int) string {
	if limit <= 0 || len(msg) <= limit {
		return msg
	}
	return msg[:limit]
}
