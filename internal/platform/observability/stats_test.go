package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsCollector_RecordRequest(t *testing.T) {
	c := NewStatsCollector(nil, nil)

	c.RecordRequest("eastmoney", 20*time.Millisecond, true, "")
	c.RecordRequest("eastmoney", 40*time.Millisecond, false, "net.OpError")
	c.RecordRequest("eastmoney", 10*time.Millisecond, false, "net.OpError")
	c.RecordRequest("eastmoney", 30*time.Millisecond, false, "InvalidResult")

	s, ok := c.SourceStats("eastmoney")
	require.True(t, ok)
	assert.Equal(t, int64(4), s.TotalRequests)
	assert.Equal(t, int64(1), s.SuccessfulRequests)
	assert.Equal(t, int64(3), s.FailedRequests)
	assert.Equal(t, 10*time.Millisecond, s.MinDuration)
	assert.Equal(t, 40*time.Millisecond, s.MaxDuration)
	assert.Equal(t, 25*time.Millisecond, s.AvgDuration())
	assert.InDelta(t, 25.0, s.SuccessRate(), 0.01)
	assert.Equal(t, int64(2), s.ErrorsByType["net.OpError"])
	assert.Equal(t, int64(1), s.ErrorsByType["InvalidResult"])
}

func TestStatsCollector_UnknownSource(t *testing.T) {
	c := NewStatsCollector(nil, nil)
	_, ok := c.SourceStats("never-seen")
	assert.False(t, ok)
}

func TestStatsCollector_CacheEvents(t *testing.T) {
	c := NewStatsCollector(nil, nil)

	c.RecordCacheHit("realtime")
	c.RecordCacheHit("realtime")
	c.RecordCacheMiss("realtime")
	c.RecordCacheMiss("daily")

	rt, ok := c.CacheStats("realtime")
	require.True(t, ok)
	assert.Equal(t, int64(2), rt.Hits)
	assert.Equal(t, int64(1), rt.Misses)
	assert.InDelta(t, 66.67, rt.HitRate(), 0.01)

	daily, ok := c.CacheStats("daily")
	require.True(t, ok)
	assert.InDelta(t, 0.0, daily.HitRate(), 0.01)
}

func TestStatsCollector_CopiesAreDetached(t *testing.T) {
	c := NewStatsCollector(nil, nil)
	c.RecordRequest("sina", time.Millisecond, false, "Timeout")

	s, _ := c.SourceStats("sina")
	s.ErrorsByType["Timeout"] = 99

	again, _ := c.SourceStats("sina")
	assert.Equal(t, int64(1), again.ErrorsByType["Timeout"],
		"returned stats must be a copy")
}

func TestStatsCollector_Summary(t *testing.T) {
	c := NewStatsCollector(nil, nil)
	c.RecordRequest("eastmoney", 10*time.Millisecond, true, "")
	c.RecordCacheHit("realtime")
	c.RecordCacheMiss("realtime")

	summary := c.Summary()
	assert.Contains(t, summary, "eastmoney")
	assert.Contains(t, summary, "requests=1")
	assert.Contains(t, summary, "realtime")
	assert.Contains(t, summary, "hit_rate=50.0%")
}

func TestStatsCollector_Reset(t *testing.T) {
	c := NewStatsCollector(nil, nil)
	c.RecordRequest("eastmoney", time.Millisecond, true, "")
	c.RecordCacheHit("daily")

	c.Reset()

	_, ok := c.SourceStats("eastmoney")
	assert.False(t, ok)
	_, ok = c.CacheStats("daily")
	assert.False(t, ok)
}

func TestRequestStats_ZeroValues(t *testing.T) {
	var s RequestStats
	assert.Equal(t, time.Duration(0), s.AvgDuration())
	assert.Equal(t, 0.0, s.SuccessRate())
}
