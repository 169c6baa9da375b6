package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caifeng/marketone/internal/platform/cache"
)

func TestStockList_OpTable(t *testing.T) {
	store, err := cache.NewStore(cache.DefaultClasses(), cache.MemoryBackend())
	require.NoError(t, err)
	defer store.Close()

	s := NewStockList(store, nil)

	_, ok := s.Op(OpStockList)
	assert.True(t, ok)
	_, ok = s.Op("get_hist_data")
	assert.False(t, ok)

	assert.Equal(t, "stock_list", s.Name())
}
