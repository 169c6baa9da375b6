package cache

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caifeng/marketone/internal/frame"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "hist_600000_day_1", Key("hist", "600000", "day", 1)())
	assert.Equal(t, "stock_list", Key("stock_list")())
}

func TestHashKey_StableAndDistinct(t *testing.T) {
	a := HashKey("op", "600000", "day")()
	b := HashKey("op", "600000", "day")()
	c := HashKey("op", "600000", "week")()

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "op_")
}

func TestEnabled(t *testing.T) {
	cases := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"1", true},
		{"yes", true},
		{"on", true},
		{"TRUE", true},
		{"false", false},
		{"0", false},
		{"off", false},
		{"garbage", false},
	}
	for _, tc := range cases {
		t.Run(tc.value, func(t *testing.T) {
			t.Setenv(EnabledEnvVar, tc.value)
			assert.Equal(t, tc.want, Enabled())
		})
	}
}

func TestEnabled_DefaultsOn(t *testing.T) {
	// t.Setenv registers the restore, then unset to cover the default.
	t.Setenv(EnabledEnvVar, "1")
	require.NoError(t, os.Unsetenv(EnabledEnvVar))
	assert.True(t, Enabled())
}

func TestWrap_CachesWithinTTL(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	calls := 0
	fn := Wrap(store, ClassDaily, Key("op", "600000"), func(ctx context.Context) (*frame.Frame, error) {
		calls++
		return constFrame(1)(ctx)
	})

	for i := 0; i < 3; i++ {
		_, err := fn(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, calls, "warm calls must not reach the compute")
}

func TestWrap_DisabledIsPassThrough(t *testing.T) {
	t.Setenv(EnabledEnvVar, "false")

	ctx := context.Background()
	store := newTestStore(t)

	calls := 0
	fn := Wrap(store, ClassDaily, Key("op", "600000"), func(ctx context.Context) (*frame.Frame, error) {
		calls++
		return constFrame(1)(ctx)
	})

	for i := 0; i < 3; i++ {
		_, err := fn(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calls, "disabled cache must invoke the compute every time")
}

func TestWrap_ToggleIsPerCall(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	calls := 0
	fn := Wrap(store, ClassDaily, Key("op", "600000"), func(ctx context.Context) (*frame.Frame, error) {
		calls++
		return constFrame(1)(ctx)
	})

	t.Setenv(EnabledEnvVar, "true")
	_, err := fn(ctx)
	require.NoError(t, err)

	// Flipping the toggle takes effect on the next call of the same wrapper.
	t.Setenv(EnabledEnvVar, "false")
	_, err = fn(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestSmartWrap_RoutesByInterval(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		interval  string
		wantClass string
	}{
		{"minute", ClassHourly},
		{"hour", ClassHourly},
		{"day", ClassDaily},
		{"week", ClassDaily},
		{"month", ClassDaily},
	}

	for _, tc := range cases {
		t.Run(tc.interval, func(t *testing.T) {
			sink := newRecordingSink()
			store := newTestStore(t, WithStatsSink(sink))

			fn := SmartWrap(store, ClassHourly, ClassDaily,
				func() string { return tc.interval },
				Key("op", tc.interval),
				constFrame(1),
			)

			_, err := fn(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, sink.misses[tc.wantClass],
				"interval %s should land in class %s", tc.interval, tc.wantClass)
		})
	}
}

func TestWrap_UnknownClassFails(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	fn := Wrap(store, "monthly", Key("op"), constFrame(1))
	_, err := fn(ctx)
	assert.ErrorIs(t, err, ErrUnknownClass)
}
