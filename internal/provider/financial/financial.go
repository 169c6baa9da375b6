// Package financial provides financial statement sources. Column sets vary
// by source since upstream statement formats differ; the router validates
// only that a result is present and non-empty.
package financial

import (
	"fmt"

	"github.com/caifeng/marketone/internal/provider"
)

// Logical operations exposed by financial statement sources. Not every
// source implements every operation; CNInfo exposes only the generic
// report, which the router reaches through its fallback operation.
const (
	OpBalanceSheet     = "get_balance_sheet"
	OpIncomeStatement  = "get_income_statement"
	OpCashFlow         = "get_cash_flow"
	OpFinancialMetrics = "get_financial_metrics"
	OpFinancialReport  = "get_financial_report"
)

// Params are the request parameters bound into a provider handle at
// construction time.
type Params struct {
	Symbol string
}

// Validate rejects requests no source can serve.
func (p Params) Validate() error {
	if p.Symbol == "" {
		return fmt.Errorf("financial: symbol is required")
	}
	return nil
}

// Factory registers the built-in financial sources.
var Factory = provider.NewRegistry[Params]("financial")

func init() {
	Factory.Register("eastmoney", NewEastmoney)
	Factory.Register("sina", NewSina)
	Factory.Register("cninfo", NewCNInfo)
}
