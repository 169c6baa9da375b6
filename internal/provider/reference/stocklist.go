// Package reference provides slow-moving reference data, currently the full
// A-share listing. Reference data lives in the weekly cache class and is a
// natural warmup target at startup.
package reference

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/caifeng/marketone/internal/frame"
	"github.com/caifeng/marketone/internal/platform/cache"
	"github.com/caifeng/marketone/internal/platform/httpx"
	"github.com/caifeng/marketone/internal/router"
)

// OpStockList is the logical operation the stock list source exposes.
const OpStockList = "get_stock_list"

// Columns is the stock list column set, in order.
var Columns = []string{"symbol", "name", "market"}

const eastmoneyListURL = "https://push2.eastmoney.com/api/qt/clist/get"

// eastmoney exchange filters per market
var eastmoneyMarkets = []struct {
	market string
	fs     string
}{
	{"sh", "m:1+t:2,m:1+t:23"},
	{"sz", "m:0+t:6,m:0+t:80"},
	{"bj", "m:0+t:81+s:2048"},
}

// StockList serves the full A-share listing from the EastMoney screener API
// and pre-populates the weekly cache class at startup.
type StockList struct {
	store  *cache.Store
	client *httpx.Client
	ops    router.OpTable
}

// NewStockList constructs the stock list handle.
func NewStockList(store *cache.Store, client *httpx.Client) *StockList {
	s := &StockList{store: store, client: client}

	fetch := cache.Wrap(store, cache.ClassWeekly,
		cache.Key("stock_list"),
		s.fetch,
	)
	s.ops = router.OpTable{OpStockList: router.OpFunc(fetch)}

	return s
}

// Op implements router.Handle.
func (s *StockList) Op(name string) (router.OpFunc, bool) {
	return s.ops.Op(name)
}

// Name implements cache.WarmupProvider.
func (s *StockList) Name() string {
	return "stock_list"
}

// Warmup implements cache.WarmupProvider by forcing one fetch through the
// cached path.
func (s *StockList) Warmup(ctx context.Context) error {
	op, _ := s.Op(OpStockList)
	_, err := op(ctx)
	return err
}

type eastmoneyListResp struct {
	Data *struct {
		Total int `json:"total"`
		Diff  []struct {
			Code string `json:"f12"`
			Name string `json:"f14"`
		} `json:"diff"`
	} `json:"data"`
}

func (s *StockList) fetch(ctx context.Context) (*frame.Frame, error) {
	out := frame.MustNew(Columns...)

	for _, m := range eastmoneyMarkets {
		page := 1
		fetched := 0
		for {
			q := url.Values{}
			q.Set("fs", m.fs)
			q.Set("fields", "f12,f14")
			q.Set("pn", strconv.Itoa(page))
			q.Set("pz", "5000")
			q.Set("po", "0")
			q.Set("fid", "f12")

			var resp eastmoneyListResp
			if err := s.client.GetJSON(ctx, "eastmoney", eastmoneyListURL, q, nil, &resp); err != nil {
				return nil, err
			}
			if resp.Data == nil || len(resp.Data.Diff) == 0 {
				break
			}

			for _, row := range resp.Data.Diff {
				if err := out.AppendRow(row.Code, row.Name, m.market); err != nil {
					return nil, fmt.Errorf("stock list: %w", err)
				}
			}
			fetched += len(resp.Data.Diff)

			if fetched >= resp.Data.Total || len(resp.Data.Diff) < 5000 {
				break
			}
			page++
		}
	}

	return out, nil
}
