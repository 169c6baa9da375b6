package cache

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"strings"

	"github.com/caifeng/marketone/internal/frame"
)

// EnabledEnvVar is the environment toggle for the whole caching layer.
// It is read on every wrapped call so tests can flip it at runtime.
const EnabledEnvVar = "CACHE_ENABLED"

// highFrequencyIntervals route to the realtime class in SmartWrap.
var highFrequencyIntervals = map[string]bool{
	"minute": true,
	"hour":   true,
}

// Enabled reports whether caching is switched on. Unset defaults to on;
// anything other than true/1/yes/on disables it.
func Enabled() bool {
	v, ok := os.LookupEnv(EnabledEnvVar)
	if !ok {
		return true
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// KeyFunc produces the cache key for a wrapped operation. Keys must be
// stable across provider instances constructed with the same parameters.
type KeyFunc func() string

// Key builds a KeyFunc joining an operation name and its bound parameters
// with underscores, mirroring how providers name their entries
// (e.g. "tencent_hist_600000_day_1_none").
func Key(op string, parts ...any) KeyFunc {
	b := strings.Builder{}
	b.WriteString(op)
	for _, p := range parts {
		b.WriteByte('_')
		fmt.Fprintf(&b, "%v", p)
	}
	key := b.String()
	return func() string { return key }
}

// HashKey builds a KeyFunc for operations whose parameters are too large or
// irregular to spell out: the op name plus an FNV-64 digest of the formatted
// arguments.
func HashKey(op string, args ...any) KeyFunc {
	h := fnv.New64a()
	for _, a := range args {
		fmt.Fprintf(h, "%v\x00", a)
	}
	key := fmt.Sprintf("%s_%016x", op, h.Sum64())
	return func() string { return key }
}

// Wrap returns fn guarded by the named cache class: a warm entry
// short-circuits the call, a miss computes and stores. With caching disabled
// the wrapper is a pass-through. Cache-layer errors other than a genuine
// miss propagate.
func Wrap(store *Store, class string, keyFn KeyFunc, fn ComputeFunc) ComputeFunc {
	return func(ctx context.Context) (*frame.Frame, error) {
		if !Enabled() {
			return fn(ctx)
		}
		val, _, err := store.GetOrCompute(ctx, class, keyFn(), fn)
		return val, err
	}
}

// SmartWrap is Wrap with class selection deferred to call time: intervalFn
// reports the request granularity and minute/hour data goes to the realtime
// class while anything else (day, week, month, year) goes to the daily one.
// One wrapper thus serves both short-lived intraday and long-lived daily
// calls for the same logical operation.
func SmartWrap(store *Store, realtimeClass, dailyClass string, intervalFn func() string, keyFn KeyFunc, fn ComputeFunc) ComputeFunc {
	return func(ctx context.Context) (*frame.Frame, error) {
		if !Enabled() {
			return fn(ctx)
		}

		class := dailyClass
		if highFrequencyIntervals[strings.ToLower(intervalFn())] {
			class = realtimeClass
		}

		val, _, err := store.GetOrCompute(ctx, class, keyFn(), fn)
		return val, err
	}
}
