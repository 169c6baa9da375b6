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

const sinaKlineURL = "https://money.finance.sina.com.cn/quotes_service/api/json_v2.php/CN_MarketDataService.getKLineData"

// sina scale codes in minutes; 240 is one trading day.
var sinaScale = map[string]string{
	"minute": "5",
	"hour":   "60",
	"day":    "240",
}

// Sina fetches candlestick history from the Sina Finance kline service.
// Unadjusted prices only; week and month granularities are not served.
type Sina struct {
	deps   provider.Deps
	params Params
	ops    router.OpTable
}

// NewSina constructs the Sina historical handle.
func NewSina(deps provider.Deps, params Params) (router.Handle, error) {
	params = params.Defaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if _, ok := sinaScale[params.Interval]; !ok {
		return nil, fmt.Errorf("sina: unsupported interval %q", params.Interval)
	}
	if params.Adjust != "none" {
		return nil, fmt.Errorf("sina: adjusted prices not available")
	}

	s := &Sina{deps: deps, params: params}

	fetch := cache.SmartWrap(deps.Store, cache.ClassHourly, cache.ClassDaily,
		func() string { return params.Interval },
		cache.Key("sina_hist", params.Symbol, params.Interval, params.IntervalMultiplier),
		s.fetch,
	)
	s.ops = router.OpTable{OpHistData: router.OpFunc(fetch)}

	return s, nil
}

// Op implements router.Handle.
func (s *Sina) Op(name string) (router.OpFunc, bool) {
	return s.ops.Op(name)
}

type sinaKline struct {
	Day    string `json:"day"`
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Close  string `json:"close"`
	Volume string `json:"volume"`
}

func (s *Sina) fetch(ctx context.Context) (*frame.Frame, error) {
	code := symbol.Market(s.params.Symbol) + symbol.Normalize(s.params.Symbol)

	q := url.Values{}
	q.Set("symbol", code)
	q.Set("scale", sinaScale[s.params.Interval])
	q.Set("ma", "no")
	q.Set("datalen", "1023")

	body, err := s.deps.Client.Get(ctx, "sina", sinaKlineURL, q, nil)
	if err != nil {
		return nil, err
	}

	var lines []sinaKline
	if err := json.Unmarshal(body, &lines); err != nil {
		return nil, fmt.Errorf("decode sina response: %w", err)
	}

	out := frame.MustNew(Columns...)
	for _, k := range lines {
		if k.Day < s.params.StartDate || k.Day > s.params.EndDate {
			continue
		}
		open, err1 := strconv.ParseFloat(k.Open, 64)
		high, err2 := strconv.ParseFloat(k.High, 64)
		low, err3 := strconv.ParseFloat(k.Low, 64)
		closep, err4 := strconv.ParseFloat(k.Close, 64)
		vol, err5 := strconv.ParseFloat(k.Volume, 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			continue
		}
		if err := out.AppendRow(k.Day, open, high, low, closep, vol); err != nil {
			return nil, fmt.Errorf("sina: %w", err)
		}
	}

	return out, nil
}
