package financial

import (
	"context"
	"fmt"
	"net/url"

	"github.com/caifeng/marketone/internal/frame"
	"github.com/caifeng/marketone/internal/platform/cache"
	"github.com/caifeng/marketone/internal/provider"
	"github.com/caifeng/marketone/internal/provider/symbol"
	"github.com/caifeng/marketone/internal/router"
)

const eastmoneyDataCenterURL = "https://datacenter-web.eastmoney.com/api/data/v1/get"

// eastmoneyReport describes one datacenter report: its upstream name and
// the fields pulled into the result frame, keyed by output column.
type eastmoneyReport struct {
	name    string
	columns []string // output column order, first is always timestamp
	fields  map[string]string
}

var eastmoneyReports = map[string]eastmoneyReport{
	OpBalanceSheet: {
		name:    "RPT_DMSK_FN_BALANCE",
		columns: []string{"timestamp", "total_assets", "total_liabilities", "total_equity"},
		fields: map[string]string{
			"timestamp":         "REPORT_DATE",
			"total_assets":      "TOTAL_ASSETS",
			"total_liabilities": "TOTAL_LIABILITIES",
			"total_equity":      "TOTAL_EQUITY",
		},
	},
	OpIncomeStatement: {
		name:    "RPT_DMSK_FN_INCOME",
		columns: []string{"timestamp", "revenue", "operating_profit", "net_income"},
		fields: map[string]string{
			"timestamp":        "REPORT_DATE",
			"revenue":          "TOTAL_OPERATE_INCOME",
			"operating_profit": "OPERATE_PROFIT",
			"net_income":       "PARENT_NETPROFIT",
		},
	},
	OpCashFlow: {
		name:    "RPT_DMSK_FN_CASHFLOW",
		columns: []string{"timestamp", "operating_cash_flow", "investing_cash_flow", "financing_cash_flow"},
		fields: map[string]string{
			"timestamp":           "REPORT_DATE",
			"operating_cash_flow": "NETCASH_OPERATE",
			"investing_cash_flow": "NETCASH_INVEST",
			"financing_cash_flow": "NETCASH_FINANCE",
		},
	},
	OpFinancialMetrics: {
		name:    "RPT_DMSK_FN_MAIN",
		columns: []string{"timestamp", "eps", "bvps", "roe", "gross_margin"},
		fields: map[string]string{
			"timestamp":    "REPORT_DATE",
			"eps":          "EPSJB",
			"bvps":         "BPS",
			"roe":          "ROEJQ",
			"gross_margin": "XSMLL",
		},
	},
}

// Eastmoney fetches financial statements from the EastMoney data center.
// It serves every statement operation.
type Eastmoney struct {
	deps   provider.Deps
	params Params
	ops    router.OpTable
}

// NewEastmoney constructs the EastMoney financial handle.
func NewEastmoney(deps provider.Deps, params Params) (router.Handle, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	e := &Eastmoney{deps: deps, params: params}

	e.ops = make(router.OpTable, len(eastmoneyReports))
	for op, report := range eastmoneyReports {
		report := report
		fetch := cache.Wrap(deps.Store, cache.ClassDaily,
			cache.Key("eastmoney_fin", op, params.Symbol),
			func(ctx context.Context) (*frame.Frame, error) {
				return e.fetchReport(ctx, report)
			},
		)
		e.ops[op] = router.OpFunc(fetch)
	}

	return e, nil
}

// Op implements router.Handle.
func (e *Eastmoney) Op(name string) (router.OpFunc, bool) {
	return e.ops.Op(name)
}

type eastmoneyDataResp struct {
	Result *struct {
		Data []map[string]any `json:"data"`
	} `json:"result"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (e *Eastmoney) fetchReport(ctx context.Context, report eastmoneyReport) (*frame.Frame, error) {
	q := url.Values{}
	q.Set("reportName", report.name)
	q.Set("columns", "ALL")
	q.Set("filter", fmt.Sprintf(`(SECURITY_CODE="%s")`, symbol.Normalize(e.params.Symbol)))
	q.Set("sortColumns", "REPORT_DATE")
	q.Set("sortTypes", "-1")
	q.Set("pageSize", "500")

	var resp eastmoneyDataResp
	if err := e.deps.Client.GetJSON(ctx, "eastmoney", eastmoneyDataCenterURL, q, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Result == nil {
		return nil, fmt.Errorf("eastmoney: %s: %s", report.name, resp.Message)
	}

	out := frame.MustNew(report.columns...)
	for _, record := range resp.Result.Data {
		row := make([]any, len(report.columns))
		for i, col := range report.columns {
			row[i] = record[report.fields[col]]
		}
		if err := out.AppendRow(row...); err != nil {
			return nil, fmt.Errorf("eastmoney: %w", err)
		}
	}
	return out, nil
}
