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

const cninfoReportURL = "https://webapi.cninfo.com.cn/api/stock/p_stock2300"

// CNInfo fetches the combined periodic report from the CNInfo open API.
// It exposes only the generic report operation; routers reach it through
// their fallback operation when a source lacks the specific statement.
type CNInfo struct {
	deps   provider.Deps
	params Params
	ops    router.OpTable
}

// NewCNInfo constructs the CNInfo financial handle.
func NewCNInfo(deps provider.Deps, params Params) (router.Handle, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	c := &CNInfo{deps: deps, params: params}

	fetch := cache.Wrap(deps.Store, cache.ClassDaily,
		cache.Key("cninfo_report", params.Symbol),
		c.fetch,
	)
	c.ops = router.OpTable{OpFinancialReport: router.OpFunc(fetch)}

	return c, nil
}

// Op implements router.Handle.
func (c *CNInfo) Op(name string) (router.OpFunc, bool) {
	return c.ops.Op(name)
}

type cninfoResp struct {
	ResultCode int              `json:"resultcode"`
	ResultMsg  string           `json:"resultmsg"`
	Records    []map[string]any `json:"records"`
}

func (c *CNInfo) fetch(ctx context.Context) (*frame.Frame, error) {
	q := url.Values{}
	q.Set("scode", symbol.Normalize(c.params.Symbol))

	var resp cninfoResp
	if err := c.deps.Client.GetJSON(ctx, "cninfo", cninfoReportURL, q, nil, &resp); err != nil {
		return nil, err
	}
	if resp.ResultCode != 200 {
		return nil, fmt.Errorf("cninfo: result %d: %s", resp.ResultCode, resp.ResultMsg)
	}
	if len(resp.Records) == 0 {
		return frame.MustNew(), nil
	}

	// The record shape follows the upstream field codes, so derive the
	// column set from the first record and keep it sorted for stability.
	columns := make([]string, 0, len(resp.Records[0]))
	for field := range resp.Records[0] {
		columns = append(columns, field)
	}
	sort.Strings(columns)

	out, err := frame.New(columns...)
	if err != nil {
		return nil, fmt.Errorf("cninfo: %w", err)
	}
	for _, record := range resp.Records {
		row := make([]any, len(columns))
		for i, col := range columns {
			row[i] = record[col]
		}
		if err := out.AppendRow(row...); err != nil {
			return nil, fmt.Errorf("cninfo: %w", err)
		}
	}
	return out, nil
}
