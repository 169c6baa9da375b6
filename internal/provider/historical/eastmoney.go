package historical

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/caifeng/marketone/internal/frame"
	"github.com/caifeng/marketone/internal/platform/cache"
	"github.com/caifeng/marketone/internal/provider"
	"github.com/caifeng/marketone/internal/provider/symbol"
	"github.com/caifeng/marketone/internal/router"
)

const eastmoneyKlineURL = "https://push2his.eastmoney.com/api/qt/stock/kline/get"

// eastmoney kline type codes per interval
var eastmoneyKlt = map[string]string{
	"minute": "1",
	"hour":   "60",
	"day":    "101",
	"week":   "102",
	"month":  "103",
}

// eastmoney adjust codes
var eastmoneyFqt = map[string]string{
	"none": "0",
	"qfq":  "1",
	"hfq":  "2",
}

// Eastmoney fetches candlestick history from the EastMoney quote API.
type Eastmoney struct {
	deps   provider.Deps
	params Params
	ops    router.OpTable
}

// NewEastmoney constructs the EastMoney historical handle. Intraday
// requests land in the hourly cache class, daily and coarser in the daily
// one.
func NewEastmoney(deps provider.Deps, params Params) (router.Handle, error) {
	params = params.Defaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	e := &Eastmoney{deps: deps, params: params}

	fetch := cache.SmartWrap(deps.Store, cache.ClassHourly, cache.ClassDaily,
		func() string { return params.Interval },
		cache.Key("eastmoney_hist", params.Symbol, params.Interval, params.IntervalMultiplier, params.Adjust),
		e.fetch,
	)
	e.ops = router.OpTable{OpHistData: router.OpFunc(fetch)}

	return e, nil
}

// Op implements router.Handle.
func (e *Eastmoney) Op(name string) (router.OpFunc, bool) {
	return e.ops.Op(name)
}

type eastmoneyKlineResp struct {
	Data struct {
		Code   string   `json:"code"`
		Klines []string `json:"klines"`
	} `json:"data"`
}

func (e *Eastmoney) fetch(ctx context.Context) (*frame.Frame, error) {
	q := url.Values{}
	q.Set("secid", symbol.EastmoneySecID(e.params.Symbol))
	q.Set("klt", eastmoneyKlt[e.params.Interval])
	q.Set("fqt", eastmoneyFqt[e.params.Adjust])
	q.Set("beg", strings.ReplaceAll(e.params.StartDate, "-", ""))
	q.Set("end", strings.ReplaceAll(e.params.EndDate, "-", ""))
	q.Set("fields1", "f1,f2,f3,f4,f5,f6")
	q.Set("fields2", "f51,f52,f53,f54,f55,f56")

	var resp eastmoneyKlineResp
	if err := e.deps.Client.GetJSON(ctx, "eastmoney", eastmoneyKlineURL, q, nil, &resp); err != nil {
		return nil, err
	}

	out := frame.MustNew(Columns...)
	for _, line := range resp.Data.Klines {
		// f51..f56: date, open, close, high, low, volume
		parts := strings.Split(line, ",")
		if len(parts) < 6 {
			continue
		}
		open, err1 := strconv.ParseFloat(parts[1], 64)
		closep, err2 := strconv.ParseFloat(parts[2], 64)
		high, err3 := strconv.ParseFloat(parts[3], 64)
		low, err4 := strconv.ParseFloat(parts[4], 64)
		vol, err5 := strconv.ParseFloat(parts[5], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			continue
		}
		if err := out.AppendRow(parts[0], open, high, low, closep, vol); err != nil {
			return nil, fmt.Errorf("eastmoney: %w", err)
		}
	}

	return out, nil
}
