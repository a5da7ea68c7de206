package epss

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulnwatch/vulnwatch/internal/cache"
	"github.com/vulnwatch/vulnwatch/internal/config"
	"github.com/vulnwatch/vulnwatch/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(config.LoggerConfig{Level: "error", Format: "json"})
	require.NoError(t, err)
	return log
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store := cache.NewStore(cache.NewMemoryBackend(), testLogger(t))
	memoizer := cache.NewMemoizer(store, testLogger(t))
	return NewClient(config.EPSSConfig{BaseURL: server.URL, Timeout: 5 * time.Second}, memoizer, testLogger(t))
}

func TestLookupParsesStringNumbers(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "CVE-2021-44228", r.URL.Query().Get("cve"))
		w.Write([]byte(`{"data": [{"cve": "CVE-2021-44228", "epss": "0.97565", "percentile": "0.99988"}]}`))
	})

	score := client.Lookup(context.Background(), "CVE-2021-44228")
	assert.InDelta(t, 0.97565, score.Score, 1e-9)
	assert.InDelta(t, 0.99988, score.Percentile, 1e-9)
}

func TestLookupUnknownIdentifierIsZero(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": []}`))
	})

	score := client.Lookup(context.Background(), "CVE-2099-0001")
	assert.Zero(t, score.Score)
	assert.Zero(t, score.Percentile)
}

func TestLookupSwallowsUpstreamErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	score := client.Lookup(context.Background(), "CVE-2021-44228")
	assert.Zero(t, score.Score, "a failing probability source degrades to zero, never an error")
}

func TestLookupMemoized(t *testing.T) {
	var requests atomic.Int64
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte(`{"data": [{"epss": "0.5", "percentile": "0.9"}]}`))
	})

	for i := 0; i < 3; i++ {
		score := client.Lookup(context.Background(), "CVE-2024-0001")
		assert.InDelta(t, 0.5, score.Score, 1e-9)
	}
	assert.Equal(t, int64(1), requests.Load())
}
