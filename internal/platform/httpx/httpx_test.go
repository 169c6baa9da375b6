package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(maxRetries int) *Client {
	cfg := DefaultConfig()
	cfg.Timeout = 2 * time.Second
	cfg.RequestsPerMinute = 100000
	cfg.Burst = 1000
	cfg.MaxRetries = maxRetries
	return New(cfg, nil)
}

func TestGet_Success(t *testing.T) {
	var gotQuery url.Values
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := newTestClient(1)
	q := url.Values{}
	q.Set("symbol", "600000")

	body, err := c.Get(context.Background(), "testsrc", srv.URL, q, map[string]string{"Referer": "https://example.com/"})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(body))
	assert.Equal(t, "600000", gotQuery.Get("symbol"))
	assert.NotEmpty(t, gotUA, "a browser user agent is always sent")
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"code":"600000"}}`))
	}))
	defer srv.Close()

	c := newTestClient(1)

	var out struct {
		Data struct {
			Code string `json:"code"`
		} `json:"data"`
	}
	err := c.GetJSON(context.Background(), "testsrc", srv.URL, nil, nil, &out)
	require.NoError(t, err)
	assert.Equal(t, "600000", out.Data.Code)
}

func TestGetJSON_DecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := newTestClient(1)
	var out map[string]any
	err := c.GetJSON(context.Background(), "testsrc", srv.URL, nil, nil, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode testsrc response")
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&hits, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := newTestClient(3)
	body, err := c.Get(context.Background(), "flaky", srv.URL, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int64(3), atomic.LoadInt64(&hits))
}

func TestGet_NoRetryOnClientError(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(3)
	_, err := c.Get(context.Background(), "notfound", srv.URL, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
	assert.Equal(t, int64(1), atomic.LoadInt64(&hits), "4xx responses are not retried")
}

func TestHealth_TracksOutcomes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := newTestClient(1)

	_, ok := c.Health("fresh")
	assert.False(t, ok, "unseen sources have no health entry")

	_, err := c.Get(context.Background(), "fresh", srv.URL, nil, nil)
	require.NoError(t, err)

	h, ok := c.Health("fresh")
	require.True(t, ok)
	assert.Equal(t, "fresh", h.Source)
	assert.False(t, h.LastSuccess.IsZero())
	assert.Zero(t, h.ConsecutiveFailures)
	assert.Equal(t, "closed", h.CircuitState)

	assert.Len(t, c.HealthSnapshot(), 1)
}

func TestHealth_CountsConsecutiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(1)
	for i := 0; i < 2; i++ {
		_, err := c.Get(context.Background(), "dying", srv.URL, nil, nil)
		require.Error(t, err)
	}

	h, ok := c.Health("dying")
	require.True(t, ok)
	assert.Equal(t, 2, h.ConsecutiveFailures)
	assert.Contains(t, h.LastError, "unexpected status 404")
}
