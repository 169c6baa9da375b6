package historical

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/caifeng/marketone/internal/frame"
	"github.com/caifeng/marketone/internal/platform/cache"
	"github.com/caifeng/marketone/internal/provider"
	"github.com/caifeng/marketone/internal/provider/symbol"
	"github.com/caifeng/marketone/internal/router"
)

const tencentKlineURL = "https://web.ifzq.gtimg.cn/appstock/app/fqkline/get"

// Tencent fetches candlestick history from the Tencent Finance kline API.
// Only day and coarser granularities are served.
type Tencent struct {
	deps   provider.Deps
	params Params
	ops    router.OpTable
}

// NewTencent constructs the Tencent historical handle.
func NewTencent(deps provider.Deps, params Params) (router.Handle, error) {
	params = params.Defaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	switch params.Interval {
	case "day", "week", "month":
	default:
		return nil, fmt.Errorf("tencent: unsupported interval %q", params.Interval)
	}

	t := &Tencent{deps: deps, params: params}

	fetch := cache.Wrap(deps.Store, cache.ClassHourly,
		cache.Key("tencent_hist", params.Symbol, params.Interval, params.IntervalMultiplier, params.Adjust),
		t.fetch,
	)
	t.ops = router.OpTable{OpHistData: router.OpFunc(fetch)}

	return t, nil
}

// Op implements router.Handle.
func (t *Tencent) Op(name string) (router.OpFunc, bool) {
	return t.ops.Op(name)
}

func (t *Tencent) fetch(ctx context.Context) (*frame.Frame, error) {
	code := symbol.Market(t.params.Symbol) + symbol.Normalize(t.params.Symbol)

	kind := t.params.Interval
	if t.params.Adjust == "qfq" || t.params.Adjust == "hfq" {
		kind = t.params.Adjust + t.params.Interval
	}

	// The unadjusted series is requested with an empty adjust field.
	adjust := ""
	if t.params.Adjust != "none" {
		adjust = t.params.Adjust
	}
	q := url.Values{}
	q.Set("param", fmt.Sprintf("%s,%s,%s,%s,640,%s",
		code, t.params.Interval, t.params.StartDate, t.params.EndDate, adjust))

	body, err := t.deps.Client.Get(ctx, "tencent", tencentKlineURL, q, nil)
	if err != nil {
		return nil, err
	}

	// Response shape: data.<code>.<kind> = [[date, open, close, high, low, volume], ...]
	var resp struct {
		Data map[string]map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode tencent response: %w", err)
	}

	series, ok := resp.Data[code]
	if !ok {
		return frame.MustNew(Columns...), nil
	}
	raw, ok := series[kind]
	if !ok {
		// Unadjusted key is used when the adjusted one is absent
		raw, ok = series[t.params.Interval]
		if !ok {
			return frame.MustNew(Columns...), nil
		}
	}

	var rows [][]any
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode tencent klines: %w", err)
	}

	out := frame.MustNew(Columns...)
	for _, row := range rows {
		// date, open, close, high, low, volume
		if len(row) < 6 {
			continue
		}
		date, _ := row[0].(string)
		open, err1 := tencentNumber(row[1])
		closep, err2 := tencentNumber(row[2])
		high, err3 := tencentNumber(row[3])
		low, err4 := tencentNumber(row[4])
		vol, err5 := tencentNumber(row[5])
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			continue
		}
		if err := out.AppendRow(date, open, high, low, closep, vol); err != nil {
			return nil, fmt.Errorf("tencent: %w", err)
		}
	}

	return out, nil
}

// tencentNumber copes with the API mixing quoted and bare numbers.
func tencentNumber(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case string:
		return strconv.ParseFloat(x, 64)
	default:
		return 0, fmt.Errorf("unexpected number %T", v)
	}
}
