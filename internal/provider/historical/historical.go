// Package historical provides candlestick history sources. Every source
// returns frames with the same column set so the router can validate them
// uniformly: timestamp, open, high, low, close, volume.
package historical

import (
	"fmt"

	"github.com/caifeng/marketone/internal/provider"
)

// OpHistData is the logical operation every historical source exposes.
const OpHistData = "get_hist_data"

// Columns is the standard historical column set, in order.
var Columns = []string{"timestamp", "open", "high", "low", "close", "volume"}

// supportedIntervals are accepted request granularities.
var supportedIntervals = map[string]bool{
	"minute": true,
	"hour":   true,
	"day":    true,
	"week":   true,
	"month":  true,
}

// Params are the request parameters bound into a provider handle at
// construction time.
type Params struct {
	Symbol             string
	Interval           string
	IntervalMultiplier int
	StartDate          string // YYYY-MM-DD
	EndDate            string // YYYY-MM-DD
	Adjust             string // none, qfq, hfq
}

// Defaults fills unset fields with the conventional wide-open range.
func (p Params) Defaults() Params {
	if p.Interval == "" {
		p.Interval = "day"
	}
	if p.IntervalMultiplier == 0 {
		p.IntervalMultiplier = 1
	}
	if p.StartDate == "" {
		p.StartDate = "1970-01-01"
	}
	if p.EndDate == "" {
		p.EndDate = "2030-12-31"
	}
	if p.Adjust == "" {
		p.Adjust = "none"
	}
	return p
}

// Validate rejects parameter combinations no source can serve.
func (p Params) Validate() error {
	if p.Symbol == "" {
		return fmt.Errorf("historical: symbol is required")
	}
	if !supportedIntervals[p.Interval] {
		return fmt.Errorf("historical: unsupported interval %q", p.Interval)
	}
	if p.IntervalMultiplier < 1 {
		return fmt.Errorf("historical: interval multiplier must be >= 1")
	}
	switch p.Adjust {
	case "none", "qfq", "hfq":
	default:
		return fmt.Errorf("historical: unsupported adjust %q", p.Adjust)
	}
	return nil
}

// Factory registers the built-in historical sources.
var Factory = provider.NewRegistry[Params]("historical")

func init() {
	Factory.Register("eastmoney", NewEastmoney)
	Factory.Register("sina", NewSina)
	Factory.Register("tencent", NewTencent)
	Factory.Register("netease", NewNetease)
}
