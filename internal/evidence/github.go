package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/vulnwatch/vulnwatch/internal/cache"
	"github.com/vulnwatch/vulnwatch/internal/config"
	"github.com/vulnwatch/vulnwatch/internal/httpclient"
	"github.com/vulnwatch/vulnwatch/internal/logger"
)

// GitHubClient searches a code-hosting service for proof-of-concept
// repositories and issues mentioning a CVE. Results are memoized for 30
// minutes.
type GitHubClient struct {
	baseURL    string
	token      string
	maxResults int
	http       *http.Client
	log        *logger.Logger
	search     func(ctx context.Context, cveID string) ([]Item, error)
}

func NewGitHubClient(cfg config.GitHubConfig, memoizer *cache.Memoizer, log *logger.Logger) *GitHubClient {
	c := &GitHubClient{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		maxResults: cfg.MaxResults,
		http:       httpclient.NewWithTimeout(cfg.Timeout),
		log:        log.WithComponent("github"),
	}
	c.search = cache.Wrap(memoizer, cache.NamespaceGitHub, c.fetch)
	return c
}

// SearchPoCs returns repository and issue evidence for cveID, deduplicated
// by URL.
func (c *GitHubClient) SearchPoCs(ctx context.Context, cveID string) ([]Item, error) {
	return c.search(ctx, cveID)
}

func (c *GitHubClient) fetch(ctx context.Context, cveID string) ([]Item, error) {
	items := make([]Item, 0, 2*c.maxResults)

	// Two independent searches; one failing does not abort the other.
	repos, err := c.searchRepositories(ctx, cveID)
	if err != nil {
		c.log.Debugw("Repository search failed", "cve_id", cveID, "error", err.Error())
	}
	items = append(items, repos...)

	issues, err := c.searchIssues(ctx, cveID)
	if err != nil {
		c.log.Debugw("Issue search failed", "cve_id", cveID, "error", err.Error())
	}
	items = append(items, issues...)

	return Dedupe(items), nil
}

func (c *GitHubClient) searchRepositories(ctx context.Context, cveID string) ([]Item, error) {
	query := fmt.Sprintf("%s in:name,description", cveID)

	var body struct {
		Items []struct {
			HTMLURL         string `json:"html_url"`
			FullName        string `json:"full_name"`
			StargazersCount int    `json:"stargazers_count"`
			CreatedAt       string `json:"created_at"`
		} `json:"items"`
	}
	if err := c.get(ctx, "/search/repositories", query, &body); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(body.Items))
	for i, repo := range body.Items {
		if i >= c.maxResults {
			break
		}
		stars := repo.StargazersCount
		items = append(items, Item{
			Source:    SourceGitHub,
			URL:       repo.HTMLURL,
			Type:      "repo",
			Name:      repo.FullName,
			Stars:     &stars,
			CreatedAt: repo.CreatedAt,
		})
	}
	return items, nil
}

func (c *GitHubClient) searchIssues(ctx context.Context, cveID string) ([]Item, error) {
	query := fmt.Sprintf("%s in:title,body", cveID)

	var body struct {
		Items []struct {
			HTMLURL   string `json:"html_url"`
			Title     string `json:"title"`
			CreatedAt string `json:"created_at"`
		} `json:"items"`
	}
	if err := c.get(ctx, "/search/issues", query, &body); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(body.Items))
	for i, issue := range body.Items {
		if i >= c.maxResults {
			break
		}
		items = append(items, Item{
			Source:    SourceGitHub,
			URL:       issue.HTMLURL,
			Type:      "issue",
			Title:     issue.Title,
			CreatedAt: issue.CreatedAt,
		})
	}
	return items, nil
}

func (c *GitHubClient) get(ctx context.Context, path, query string, dest interface{}) error {
	params := url.Values{}
	params.Set("q", query)
	params.Set("per_page", strconv.Itoa(c.maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github.v3.star+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("code-hosting search returned %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(dest)
}
