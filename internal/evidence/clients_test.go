package evidence

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
)

func testMemoizer(t *testing.T) *cache.Memoizer {
	t.Helper()
	store := cache.NewStore(cache.NewMemoryBackend(), testLogger(t))
	return cache.NewMemoizer(store, testLogger(t))
}

func TestExploitDBProbeFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2021-44228", r.URL.Query().Get("cve"))
		w.Write([]byte(`<html><td>Apache Log4j2 2021-44228 RCE</td></html>`))
	}))
	defer server.Close()

	prober := NewExploitDBProber(config.ExploitDBConfig{SearchURL: server.URL, Timeout: 5 * time.Second}, testLogger(t))

	found, probeURL, err := prober.Probe(context.Background(), "CVE-2021-44228")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Contains(t, probeURL, "cve=2021-44228")
}

func TestExploitDBProbeNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>no results</html>`))
	}))
	defer server.Close()

	prober := NewExploitDBProber(config.ExploitDBConfig{SearchURL: server.URL, Timeout: 5 * time.Second}, testLogger(t))

	found, _, err := prober.Probe(context.Background(), "CVE-2021-44228")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestExploitDBProbeErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	prober := NewExploitDBProber(config.ExploitDBConfig{SearchURL: server.URL, Timeout: 5 * time.Second}, testLogger(t))

	_, _, err := prober.Probe(context.Background(), "CVE-2021-44228")
	assert.Error(t, err)
}

func TestGitHubSearchPoCs(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		switch r.URL.Path {
		case "/search/repositories":
			w.Write([]byte(`{"items": [
				{"html_url": "https://github.example/a/poc", "full_name": "a/poc", "stargazers_count": 42, "created_at": "2024-01-01T00:00:00Z"},
				{"html_url": "https://github.example/b/poc", "full_name": "b/poc", "stargazers_count": 7, "created_at": "2024-01-02T00:00:00Z"},
				{"html_url": "https://github.example/c/poc", "full_name": "c/poc", "stargazers_count": 1, "created_at": "2024-01-03T00:00:00Z"}
			]}`))
		case "/search/issues":
			w.Write([]byte(`{"items": [
				{"html_url": "https://github.example/a/poc/issues/1", "title": "PoC for CVE-2024-0001", "created_at": "2024-01-04T00:00:00Z"}
			]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewGitHubClient(config.GitHubConfig{
		BaseURL:    server.URL,
		MaxResults: 2,
		Timeout:    5 * time.Second,
	}, testMemoizer(t), testLogger(t))

	items, err := client.SearchPoCs(context.Background(), "CVE-2024-0001")
	require.NoError(t, err)
	require.Len(t, items, 3, "repos capped at max results plus one issue")

	assert.Equal(t, "repo", items[0].Type)
	assert.Equal(t, "a/poc", items[0].Name)
	require.NotNil(t, items[0].Stars)
	assert.Equal(t, 42, *items[0].Stars)
	assert.Equal(t, "issue", items[2].Type)
	assert.Equal(t, "PoC for CVE-2024-0001", items[2].Title)

	// Second lookup is served from the cache.
	before := requests.Load()
	_, err = client.SearchPoCs(context.Background(), "CVE-2024-0001")
	require.NoError(t, err)
	assert.Equal(t, before, requests.Load())
}

func TestGitHubPartialFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/search/repositories" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		w.Write([]byte(`{"items": [{"html_url": "https://github.example/i/1", "title": "exploit writeup", "created_at": "2024-01-01T00:00:00Z"}]}`))
	}))
	defer server.Close()

	client := NewGitHubClient(config.GitHubConfig{
		BaseURL:    server.URL,
		MaxResults: 5,
		Timeout:    5 * time.Second,
	}, testMemoizer(t), testLogger(t))

	items, err := client.SearchPoCs(context.Background(), "CVE-2024-0001")
	require.NoError(t, err, "one failing search must not abort the other")
	require.Len(t, items, 1)
	assert.Equal(t, "issue", items[0].Type)
}

func TestForumSearchPosts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/r/netsec/search.json", r.URL.Path)
		assert.Equal(t, "CVE-2024-0001", r.URL.Query().Get("q"))
		assert.Equal(t, "1", r.URL.Query().Get("restrict_sr"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Write([]byte(`{"data": {"children": [
			{"data": {"title": "New RCE dropped", "url": "https://blog.example/rce", "score": 128, "num_comments": 34, "permalink": "/r/netsec/comments/abc/new_rce", "created_utc": 1704067200}}
		]}}`))
	}))
	defer server.Close()

	client := NewForumClient(config.ForumConfig{
		BaseURL:    server.URL,
		Community:  "netsec",
		UserAgent:  "vulnwatch-test/1.0",
		MaxResults: 5,
		Timeout:    5 * time.Second,
	}, testMemoizer(t), testLogger(t))

	items, err := client.SearchPosts(context.Background(), "cve-2024-0001")
	require.NoError(t, err)
	require.Len(t, items, 1)

	post := items[0]
	assert.Equal(t, SourceForum, post.Source)
	assert.Equal(t, "New RCE dropped", post.Title)
	assert.Equal(t, "https://blog.example/rce", post.URL)
	require.NotNil(t, post.Score)
	assert.Equal(t, 128, *post.Score)
	require.NotNil(t, post.Comments)
	assert.Equal(t, 34, *post.Comments)
	assert.Equal(t, server.URL+"/r/netsec/comments/abc/new_rce", post.Permalink)
}

func TestForumErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewForumClient(config.ForumConfig{
		BaseURL:    server.URL,
		Community:  "netsec",
		UserAgent:  "vulnwatch-test/1.0",
		MaxResults: 5,
		Timeout:    5 * time.Second,
	}, testMemoizer(t), testLogger(t))

	_, err := client.SearchPosts(context.Background(), "CVE-2024-0001")
	assert.Error(t, err)
}
