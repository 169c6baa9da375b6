package frame

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsDuplicateColumns(t *testing.T) {
	_, err := New("open", "close", "open")
	require.Error(t, err)
}

func TestColumnOrderPreserved(t *testing.T) {
	f := MustNew("timestamp", "open", "high", "low", "close", "volume")
	assert.Equal(t, []string{"timestamp", "open", "high", "low", "close", "volume"}, f.Columns())
}

func TestAppendRowArityMismatch(t *testing.T) {
	f := MustNew("symbol", "price")
	err := f.AppendRow("600000")
	require.Error(t, err)
	assert.Equal(t, 0, f.NumRows())
}

func TestEmptyAndRowCount(t *testing.T) {
	f := MustNew("symbol", "price")
	assert.True(t, f.IsEmpty())

	require.NoError(t, f.AppendRow("600000", 12.34))
	require.NoError(t, f.AppendRow("000001", 9.87))

	assert.False(t, f.IsEmpty())
	assert.Equal(t, 2, f.NumRows())
}

func TestHasColumnAndColumn(t *testing.T) {
	f := MustNew("symbol", "price")
	require.NoError(t, f.AppendRow("600000", 12.34))

	assert.True(t, f.HasColumn("price"))
	assert.False(t, f.HasColumn("volume"))

	vals, ok := f.Column("symbol")
	require.True(t, ok)
	assert.Equal(t, []any{"600000"}, vals)

	_, ok = f.Column("missing")
	assert.False(t, ok)
}

func TestNilFrameIsEmpty(t *testing.T) {
	var f *Frame
	assert.True(t, f.IsEmpty())
	assert.Equal(t, 0, f.NumRows())
	assert.False(t, f.HasColumn("anything"))
}

func TestJSONRoundTripKeepsColumnOrder(t *testing.T) {
	f := MustNew("timestamp", "close", "open")
	require.NoError(t, f.AppendRow("2024-01-02", 10.5, 10.1))

	data, err := json.Marshal(f)
	require.NoError(t, err)

	var back Frame
	require.NoError(t, json.Unmarshal(data, &back))

	assert.Equal(t, f.Columns(), back.Columns())
	assert.Equal(t, 1, back.NumRows())
	v, ok := back.Cell(0, "close")
	require.True(t, ok)
	assert.Equal(t, 10.5, v)
}
