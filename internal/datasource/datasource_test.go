package datasource

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caifeng/marketone/internal/frame"
	"github.com/caifeng/marketone/internal/platform/cache"
	"github.com/caifeng/marketone/internal/provider"
	"github.com/caifeng/marketone/internal/provider/financial"
	"github.com/caifeng/marketone/internal/provider/historical"
	"github.com/caifeng/marketone/internal/provider/realtime"
	"github.com/caifeng/marketone/internal/router"
)

func testDeps(t *testing.T) provider.Deps {
	t.Helper()
	store, err := cache.NewStore(cache.DefaultClasses(), cache.MemoryBackend())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return provider.Deps{Store: store}
}

func histFrame(t *testing.T) *frame.Frame {
	t.Helper()
	f := frame.MustNew(historical.Columns...)
	require.NoError(t, f.AppendRow("2024-01-02", 10.0, 11.0, 9.5, 10.5, 100000.0))
	return f
}

// fakeHistorical registers a canned historical source and returns its name.
func fakeHistorical(t *testing.T, name string, f *frame.Frame, ctorErr error) string {
	t.Helper()
	historical.Factory.Register(name, func(deps provider.Deps, params historical.Params) (router.Handle, error) {
		if ctorErr != nil {
			return nil, ctorErr
		}
		return router.OpTable{
			historical.OpHistData: func(ctx context.Context) (*frame.Frame, error) {
				return f, nil
			},
		}, nil
	})
	return name
}

func TestNewHistoricalRouter_DefaultSources(t *testing.T) {
	deps := testDeps(t)

	r := NewHistoricalRouter(deps, historical.Params{Symbol: "600000"})
	assert.Equal(t, DefaultHistoricalSources, r.Providers())
}

func TestNewHistoricalRouter_SkipsFailedConstruction(t *testing.T) {
	deps := testDeps(t)

	good := fakeHistorical(t, "fake_good", histFrame(t), nil)
	bad := fakeHistorical(t, "fake_bad", nil, errors.New("bad params"))

	r := NewHistoricalRouter(deps, historical.Params{Symbol: "600000"},
		WithSources(bad, good))
	assert.Equal(t, []string{good}, r.Providers(),
		"a failed constructor is skipped, not fatal")

	data, err := r.Execute(context.Background(), historical.OpHistData)
	require.NoError(t, err)
	assert.Equal(t, 1, data.NumRows())
}

func TestNewHistoricalRouter_UnknownSourceSkipped(t *testing.T) {
	deps := testDeps(t)

	good := fakeHistorical(t, "fake_known", histFrame(t), nil)
	r := NewHistoricalRouter(deps, historical.Params{Symbol: "600000"},
		WithSources("no_such_source", good))
	assert.Equal(t, []string{good}, r.Providers())
}

func TestNewHistoricalRouter_AllConstructionFailed(t *testing.T) {
	deps := testDeps(t)

	r := NewHistoricalRouter(deps, historical.Params{Symbol: ""},
		WithSources("eastmoney", "sina"))
	assert.Empty(t, r.Providers(), "empty symbol fails every constructor")

	_, err := r.Execute(context.Background(), historical.OpHistData)
	var exhausted *router.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 0, exhausted.Attempts)
}

func TestGetHistData_ValidationRejectsShortFrame(t *testing.T) {
	deps := testDeps(t)

	// Frame lacks the volume column required of historical sources.
	bad := frame.MustNew("timestamp", "open", "high", "low", "close")
	require.NoError(t, bad.AppendRow("2024-01-02", 1.0, 2.0, 0.5, 1.5))
	name := fakeHistorical(t, "fake_partial", bad, nil)

	_, err := GetHistData(context.Background(), deps, historical.Params{Symbol: "600000"},
		WithSources(name))
	var exhausted *router.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Contains(t, exhausted.Error(), "missing columns: volume")
}

func TestGetCurrentData_FakeSource(t *testing.T) {
	deps := testDeps(t)

	quote := frame.MustNew(realtime.Columns...)
	require.NoError(t, quote.AppendRow("600000", 10.5, int64(1700000000),
		0.1, 0.96, 1000.0, 10500.0, 10.4, 10.6, 10.3, 10.4))

	realtime.Factory.Register("fake_quote", func(deps provider.Deps, params realtime.Params) (router.Handle, error) {
		return router.OpTable{
			realtime.OpCurrentData: func(ctx context.Context) (*frame.Frame, error) {
				return quote, nil
			},
		}, nil
	})

	data, err := GetCurrentData(context.Background(), deps, realtime.Params{Symbol: "600000"},
		WithSources("fake_quote"))
	require.NoError(t, err)
	assert.Equal(t, 1, data.NumRows())
	assert.True(t, data.HasColumn("price"))
}

func TestGetBalanceSheet_FallsBackToGenericReport(t *testing.T) {
	deps := testDeps(t)

	report := frame.MustNew("F001D", "F002N")
	require.NoError(t, report.AppendRow("2023-12-31", 1.0e9))

	// Serves only the generic report op, like CNInfo does.
	financial.Factory.Register("fake_report_only", func(deps provider.Deps, params financial.Params) (router.Handle, error) {
		return router.OpTable{
			financial.OpFinancialReport: func(ctx context.Context) (*frame.Frame, error) {
				return report, nil
			},
		}, nil
	})

	data, err := GetBalanceSheet(context.Background(), deps, financial.Params{Symbol: "600000"},
		WithSources("fake_report_only"))
	require.NoError(t, err)
	assert.Equal(t, 1, data.NumRows())
}

func TestOptions_OverrideValidation(t *testing.T) {
	deps := testDeps(t)

	two := frame.MustNew(historical.Columns...)
	require.NoError(t, two.AppendRow("2024-01-02", 1.0, 2.0, 0.5, 1.5, 10.0))
	require.NoError(t, two.AppendRow("2024-01-03", 1.5, 2.5, 1.0, 2.0, 20.0))
	name := fakeHistorical(t, "fake_two_rows", two, nil)

	_, err := GetHistData(context.Background(), deps, historical.Params{Symbol: "600000"},
		WithSources(name), WithMinRows(3))
	var exhausted *router.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Contains(t, exhausted.Error(), "2 rows, need 3")

	data, err := GetHistData(context.Background(), deps, historical.Params{Symbol: "600000"},
		WithSources(name), WithMinRows(2))
	require.NoError(t, err)
	assert.Equal(t, 2, data.NumRows())
}
