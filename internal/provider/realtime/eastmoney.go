package realtime

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/caifeng/marketone/internal/frame"
	"github.com/caifeng/marketone/internal/platform/cache"
	"github.com/caifeng/marketone/internal/provider"
	"github.com/caifeng/marketone/internal/provider/symbol"
	"github.com/caifeng/marketone/internal/router"
)

const eastmoneyQuoteURL = "https://push2.eastmoney.com/api/qt/stock/get"

// Eastmoney fetches live quotes from the EastMoney push API.
type Eastmoney struct {
	deps   provider.Deps
	params Params
	ops    router.OpTable
}

// NewEastmoney constructs the EastMoney realtime handle.
func NewEastmoney(deps provider.Deps, params Params) (router.Handle, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	e := &Eastmoney{deps: deps, params: params}

	fetch := cache.Wrap(deps.Store, cache.ClassRealtime,
		cache.Key("eastmoney_quote", params.Symbol),
		e.fetch,
	)
	e.ops = router.OpTable{OpCurrentData: router.OpFunc(fetch)}

	return e, nil
}

// Op implements router.Handle.
func (e *Eastmoney) Op(name string) (router.OpFunc, bool) {
	return e.ops.Op(name)
}

// Prices come back as integers scaled by 100, volume in lots.
type eastmoneyQuoteResp struct {
	Data *struct {
		Price     float64 `json:"f43"`
		High      float64 `json:"f44"`
		Low       float64 `json:"f45"`
		Open      float64 `json:"f46"`
		Volume    float64 `json:"f47"`
		Amount    float64 `json:"f48"`
		PrevClose float64 `json:"f60"`
		Change    float64 `json:"f169"`
		PctChange float64 `json:"f170"`
	} `json:"data"`
}

func (e *Eastmoney) fetch(ctx context.Context) (*frame.Frame, error) {
	q := url.Values{}
	q.Set("secid", symbol.EastmoneySecID(e.params.Symbol))
	q.Set("fields", "f43,f44,f45,f46,f47,f48,f60,f169,f170")
	q.Set("invt", "2")
	q.Set("fltt", "2")

	var resp eastmoneyQuoteResp
	if err := e.deps.Client.GetJSON(ctx, "eastmoney", eastmoneyQuoteURL, q, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("eastmoney: no quote for %s", e.params.Symbol)
	}
	d := resp.Data

	out := frame.MustNew(Columns...)
	if err := out.AppendRow(
		symbol.Normalize(e.params.Symbol),
		d.Price,
		time.Now().Unix(),
		d.Change,
		d.PctChange,
		d.Volume,
		d.Amount,
		d.Open,
		d.High,
		d.Low,
		d.PrevClose,
	); err != nil {
		return nil, fmt.Errorf("eastmoney: %w", err)
	}
	return out, nil
}
