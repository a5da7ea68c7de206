package enrich

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulnwatch/vulnwatch/internal/cache"
	"github.com/vulnwatch/vulnwatch/internal/catalog"
	"github.com/vulnwatch/vulnwatch/internal/config"
	"github.com/vulnwatch/vulnwatch/internal/epss"
	"github.com/vulnwatch/vulnwatch/internal/evidence"
	"github.com/vulnwatch/vulnwatch/internal/logger"
	"github.com/vulnwatch/vulnwatch/internal/nvd"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(config.LoggerConfig{Level: "error", Format: "json"})
	require.NoError(t, err)
	return log
}

type enricherFixture struct {
	enricher        *Enricher
	catalogRequests *atomic.Int64
}

// newEnricherFixture wires an enricher against fake upstreams: a KEV feed
// listing CVE-2021-44228 and an EPSS source with per-CVE scores. Evidence
// sources are absent, so only catalog membership and reference tags feed
// exploit detection.
func newEnricherFixture(t *testing.T, workers int) *enricherFixture {
	t.Helper()

	var catalogRequests atomic.Int64
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		catalogRequests.Add(1)
		w.Write([]byte(`{
			"catalogVersion": "2024.02.15",
			"vulnerabilities": [
				{"cveID": "CVE-2021-44228", "vendorProject": "Apache", "product": "Log4j",
				 "vulnerabilityName": "Apache Log4j2 Remote Code Execution Vulnerability",
				 "dateAdded": "2021-12-10", "dueDate": "2021-12-24",
				 "requiredAction": "Apply updates per vendor instructions.",
				 "knownRansomwareCampaignUse": "Known"}
			]
		}`))
	}))
	t.Cleanup(feed.Close)

	epssServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cve") == "CVE-2021-44228" {
			w.Write([]byte(`{"data": [{"epss": "0.97565", "percentile": "0.99988"}]}`))
			return
		}
		w.Write([]byte(`{"data": []}`))
	}))
	t.Cleanup(epssServer.Close)

	store := cache.NewStore(cache.NewMemoryBackend(), testLogger(t))
	memoizer := cache.NewMemoizer(store, testLogger(t))

	cat := catalog.NewManager(config.CatalogConfig{FeedURL: feed.URL, Timeout: 5 * time.Second}, store, testLogger(t))
	epssClient := epss.NewClient(config.EPSSConfig{BaseURL: epssServer.URL, Timeout: 5 * time.Second}, memoizer, testLogger(t))
	agg := evidence.NewAggregator(nil, nil, nil, config.RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 1000}, testLogger(t))

	return &enricherFixture{
		enricher:        NewEnricher(cat, epssClient, agg, workers, testLogger(t)),
		catalogRequests: &catalogRequests,
	}
}

func TestEnrichMergesCatalogAndScores(t *testing.T) {
	fixture := newEnricherFixture(t, 2)

	record := &nvd.VulnerabilityRecord{
		ID:       "CVE-2021-44228",
		Severity: &nvd.Severity{Scheme: "CVSSv3.1", Score: 10, Label: "CRITICAL"},
	}

	result, err := fixture.enricher.Enrich(context.Background(), record, nil)
	require.NoError(t, err)

	assert.True(t, result.IsExploited)
	assert.Equal(t, "Apache", result.VendorProject)
	assert.Equal(t, "Log4j", result.Product)
	assert.Equal(t, "2021-12-10", result.ExploitAdded)
	assert.Equal(t, "Known", result.KnownRansomwareCampaignUse)
	assert.InDelta(t, 0.97565, result.EPSSScore, 1e-9)
	assert.InDelta(t, 0.99988, result.EPSSPercentile, 1e-9)

	assert.Equal(t, ConfidenceHigh, result.ConfidenceLevel)
	assert.True(t, result.ActivelyExploited)
	assert.Equal(t, "Critical KEV-Listed Vulnerability, Actively Exploited", result.Profile.Title)
	assert.Equal(t, 100, result.Profile.SynthScore)
}

func TestEnrichUnlistedRecord(t *testing.T) {
	fixture := newEnricherFixture(t, 2)

	record := &nvd.VulnerabilityRecord{
		ID:       "CVE-2024-0001",
		Severity: &nvd.Severity{Scheme: "CVSSv3.1", Score: 5.4, Label: "MEDIUM"},
	}

	result, err := fixture.enricher.Enrich(context.Background(), record, nil)
	require.NoError(t, err)

	assert.False(t, result.IsExploited)
	assert.False(t, result.ActivelyExploited)
	assert.Zero(t, result.EPSSScore)
	assert.Equal(t, ConfidenceUnknown, result.ConfidenceLevel)
	assert.Equal(t, "Medium Severity Vulnerability", result.Profile.Title)
}

func TestEnrichBatchFetchesCatalogOnce(t *testing.T) {
	fixture := newEnricherFixture(t, 4)

	records := make([]*nvd.VulnerabilityRecord, 10)
	for i := range records {
		records[i] = &nvd.VulnerabilityRecord{ID: fmt.Sprintf("CVE-2024-%04d", i+1)}
	}

	results, err := fixture.enricher.EnrichBatch(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, results, 10)

	assert.Equal(t, int64(1), fixture.catalogRequests.Load(),
		"one catalog fetch must serve the whole batch")

	// Output order matches input order regardless of worker scheduling.
	for i, result := range results {
		require.NotNil(t, result)
		assert.Equal(t, records[i].ID, result.ID)
	}
}

func TestEnrichBatchEmpty(t *testing.T) {
	fixture := newEnricherFixture(t, 4)

	results, err := fixture.enricher.EnrichBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, fixture.catalogRequests.Load())
}
