package realtime

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

const xueqiuQuoteURL = "https://stock.xueqiu.com/v5/stock/quote.json"

// Xueqiu fetches live quotes from the XueQiu quote API.
type Xueqiu struct {
	deps   provider.Deps
	params Params
	ops    router.OpTable
}

// NewXueqiu constructs the XueQiu realtime handle.
func NewXueqiu(deps provider.Deps, params Params) (router.Handle, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	x := &Xueqiu{deps: deps, params: params}

	fetch := cache.Wrap(deps.Store, cache.ClassRealtime,
		cache.Key("xueqiu_quote", params.Symbol),
		x.fetch,
	)
	x.ops = router.OpTable{OpCurrentData: router.OpFunc(fetch)}

	return x, nil
}

// Op implements router.Handle.
func (x *Xueqiu) Op(name string) (router.OpFunc, bool) {
	return x.ops.Op(name)
}

type xueqiuQuoteResp struct {
	Data struct {
		Quote *struct {
			Current   float64 `json:"current"`
			Chg       float64 `json:"chg"`
			Percent   float64 `json:"percent"`
			Volume    float64 `json:"volume"`
			Amount    float64 `json:"amount"`
			Open      float64 `json:"open"`
			High      float64 `json:"high"`
			Low       float64 `json:"low"`
			LastClose float64 `json:"last_close"`
			Timestamp int64   `json:"timestamp"` // milliseconds
		} `json:"quote"`
	} `json:"data"`
	ErrorCode        int    `json:"error_code"`
	ErrorDescription string `json:"error_description"`
}

func (x *Xueqiu) fetch(ctx context.Context) (*frame.Frame, error) {
	q := url.Values{}
	q.Set("symbol", symbol.Xueqiu(x.params.Symbol))
	q.Set("extend", "detail")

	// Bare requests get blocked; a browser-style referer is enough for the
	// public quote endpoint.
	headers := map[string]string{
		"Referer": "https://xueqiu.com/",
	}

	var resp xueqiuQuoteResp
	if err := x.deps.Client.GetJSON(ctx, "xueqiu", xueqiuQuoteURL, q, headers, &resp); err != nil {
		return nil, err
	}
	if resp.ErrorCode != 0 {
		return nil, fmt.Errorf("xueqiu: error %d: %s", resp.ErrorCode, resp.ErrorDescription)
	}
	quote := resp.Data.Quote
	if quote == nil {
		return nil, fmt.Errorf("xueqiu: no quote for %s", x.params.Symbol)
	}

	out := frame.MustNew(Columns...)
	if err := out.AppendRow(
		symbol.Normalize(x.params.Symbol),
		quote.Current,
		quote.Timestamp/1000,
		quote.Chg,
		quote.Percent,
		quote.Volume,
		quote.Amount,
		quote.Open,
		quote.High,
		quote.Low,
		quote.LastClose,
	); err != nil {
		return nil, fmt.Errorf("xueqiu: %w", err)
	}
	return out, nil
}
