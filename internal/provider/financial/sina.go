package financial

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/caifeng/marketone/internal/frame"
	"github.com/caifeng/marketone/internal/platform/cache"
	"github.com/caifeng/marketone/internal/provider"
	"github.com/caifeng/marketone/internal/provider/symbol"
	"github.com/caifeng/marketone/internal/router"
)

const sinaFinanceURL = "https://quotes.sina.cn/cn/api/openapi.php/CompanyFinanceService.getFinanceReport2022"

// sina statement codes per operation
var sinaSource = map[string]string{
	OpBalanceSheet:    "zcfzb",
	OpIncomeStatement: "lrb",
	OpCashFlow:        "xjllb",
}

// Sina fetches financial statements from the Sina Finance company API.
// Statements come back in long form, one metric per row, since the item
// list varies by company and period. Derived metrics are not served.
type Sina struct {
	deps   provider.Deps
	params Params
	ops    router.OpTable
}

// SinaColumns is the long-form statement column set.
var SinaColumns = []string{"timestamp", "item", "value"}

// NewSina constructs the Sina financial handle.
func NewSina(deps provider.Deps, params Params) (router.Handle, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	s := &Sina{deps: deps, params: params}

	s.ops = make(router.OpTable, len(sinaSource))
	for op, source := range sinaSource {
		source := source
		fetch := cache.Wrap(deps.Store, cache.ClassDaily,
			cache.Key("sina_fin", op, params.Symbol),
			func(ctx context.Context) (*frame.Frame, error) {
				return s.fetchStatement(ctx, source)
			},
		)
		s.ops[op] = router.OpFunc(fetch)
	}

	return s, nil
}

// Op implements router.Handle.
func (s *Sina) Op(name string) (router.OpFunc, bool) {
	return s.ops.Op(name)
}

type sinaFinanceResp struct {
	Result struct {
		Status struct {
			Code int `json:"code"`
		} `json:"status"`
		Data struct {
			ReportList map[string]struct {
				ReportDate string `json:"report_date"`
				Data       []struct {
					ItemTitle string `json:"item_title"`
					ItemValue string `json:"item_value"`
				} `json:"data"`
			} `json:"report_list"`
		} `json:"data"`
	} `json:"result"`
}

func (s *Sina) fetchStatement(ctx context.Context, source string) (*frame.Frame, error) {
	q := url.Values{}
	q.Set("paperCode", symbol.Market(s.params.Symbol)+symbol.Normalize(s.params.Symbol))
	q.Set("source", source)
	q.Set("type", "0")
	q.Set("page", "1")
	q.Set("num", "40")

	var resp sinaFinanceResp
	if err := s.deps.Client.GetJSON(ctx, "sina", sinaFinanceURL, q, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Result.Status.Code != 0 {
		return nil, fmt.Errorf("sina: finance api status %d", resp.Result.Status.Code)
	}

	// report_list is keyed by period; sort the keys so output order is
	// stable across calls.
	periods := make([]string, 0, len(resp.Result.Data.ReportList))
	for period := range resp.Result.Data.ReportList {
		periods = append(periods, period)
	}
	sort.Strings(periods)

	out := frame.MustNew(SinaColumns...)
	for _, period := range periods {
		report := resp.Result.Data.ReportList[period]
		date := report.ReportDate
		if date == "" {
			date = period
		}
		for _, item := range report.Data {
			if err := out.AppendRow(date, item.ItemTitle, item.ItemValue); err != nil {
				return nil, fmt.Errorf("sina: %w", err)
			}
		}
	}
	return out, nil
}
