// Package realtime provides live quote sources. Every source returns
// single-row frames with the same column set so the router can validate
// them uniformly.
package realtime

import (
	"fmt"

	"github.com/caifeng/marketone/internal/provider"
)

// OpCurrentData is the logical operation every realtime source exposes.
const OpCurrentData = "get_current_data"

// Columns is the standard quote column set, in order.
var Columns = []string{
	"symbol", "price", "timestamp",
	"change", "pct_change",
	"volume", "amount",
	"open", "high", "low", "prev_close",
}

// Params are the request parameters bound into a provider handle at
// construction time.
type Params struct {
	Symbol string
}

// Validate rejects requests no source can serve.
func (p Params) Validate() error {
	if p.Symbol == "" {
		return fmt.Errorf("realtime: symbol is required")
	}
	return nil
}

// Factory registers the built-in realtime sources.
var Factory = provider.NewRegistry[Params]("realtime")

func init() {
	Factory.Register("eastmoney", NewEastmoney)
	Factory.Register("xueqiu", NewXueqiu)
}
