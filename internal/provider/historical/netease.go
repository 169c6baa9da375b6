package historical

import (
	"bytes"
	"context"
	"encoding/csv"
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

const neteaseChdataURL = "https://quotes.money.163.com/service/chddata.html"

// Netease fetches daily candlestick history from the 163 chddata CSV export.
// Daily granularity only, unadjusted.
type Netease struct {
	deps   provider.Deps
	params Params
	ops    router.OpTable
}

// NewNetease constructs the NetEase historical handle.
func NewNetease(deps provider.Deps, params Params) (router.Handle, error) {
	params = params.Defaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.Interval != "day" {
		return nil, fmt.Errorf("netease: unsupported interval %q", params.Interval)
	}
	if params.Adjust != "none" {
		return nil, fmt.Errorf("netease: adjusted prices not available")
	}

	n := &Netease{deps: deps, params: params}

	fetch := cache.Wrap(deps.Store, cache.ClassHourly,
		cache.Key("netease_hist", params.Symbol, params.StartDate, params.EndDate),
		n.fetch,
	)
	n.ops = router.OpTable{OpHistData: router.OpFunc(fetch)}

	return n, nil
}

// Op implements router.Handle.
func (n *Netease) Op(name string) (router.OpFunc, bool) {
	return n.ops.Op(name)
}

// neteaseCode prefixes the bare code with the 163 market flag:
// 0 for Shanghai, 1 for everything else.
func neteaseCode(sym string) string {
	clean := symbol.Normalize(sym)
	if symbol.Market(clean) == "sh" {
		return "0" + clean
	}
	return "1" + clean
}

func (n *Netease) fetch(ctx context.Context) (*frame.Frame, error) {
	q := url.Values{}
	q.Set("code", neteaseCode(n.params.Symbol))
	q.Set("start", strings.ReplaceAll(n.params.StartDate, "-", ""))
	q.Set("end", strings.ReplaceAll(n.params.EndDate, "-", ""))
	q.Set("fields", "TOPEN;HIGH;LOW;TCLOSE;VOTURNOVER")

	body, err := n.deps.Client.Get(ctx, "netease", neteaseChdataURL, q, nil)
	if err != nil {
		return nil, err
	}

	// CSV with a header row, newest day first. The name column is GBK but
	// every field we read is plain ASCII, so no transcoding is needed.
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decode netease csv: %w", err)
	}
	if len(records) <= 1 {
		return frame.MustNew(Columns...), nil
	}

	out := frame.MustNew(Columns...)
	// Skip the header and walk backwards so rows come out chronological.
	for i := len(records) - 1; i >= 1; i-- {
		rec := records[i]
		// date, code, name, TOPEN, HIGH, LOW, TCLOSE, VOTURNOVER
		if len(rec) < 8 {
			continue
		}
		open, err1 := strconv.ParseFloat(rec[3], 64)
		high, err2 := strconv.ParseFloat(rec[4], 64)
		low, err3 := strconv.ParseFloat(rec[5], 64)
		closep, err4 := strconv.ParseFloat(rec[6], 64)
		vol, err5 := strconv.ParseFloat(rec[7], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			// Suspended days export "None" prices
			continue
		}
		if err := out.AppendRow(rec[0], open, high, low, closep, vol); err != nil {
			return nil, fmt.Errorf("netease: %w", err)
		}
	}

	return out, nil
}
