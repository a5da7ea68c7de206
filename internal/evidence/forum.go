package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/vulnwatch/vulnwatch/internal/cache"
	"github.com/vulnwatch/vulnwatch/internal/config"
	"github.com/vulnwatch/vulnwatch/internal/httpclient"
	"github.com/vulnwatch/vulnwatch/internal/logger"
)

// ForumClient searches one named discussion community for posts mentioning
// a CVE. Results are memoized for 30 minutes.
type ForumClient struct {
	baseURL    string
	community  string
	userAgent  string
	token      string
	maxResults int
	http       *http.Client
	log        *logger.Logger
	search     func(ctx context.Context, cveID string) ([]Item, error)
}

func NewForumClient(cfg config.ForumConfig, memoizer *cache.Memoizer, log *logger.Logger) *ForumClient {
	c := &ForumClient{
		baseURL:    cfg.BaseURL,
		community:  cfg.Community,
		userAgent:  cfg.UserAgent,
		token:      cfg.Token,
		maxResults: cfg.MaxResults,
		http:       httpclient.NewWithTimeout(cfg.Timeout),
		log:        log.WithComponent("forum"),
	}
	c.search = cache.Wrap(memoizer, cache.NamespaceForum, c.fetch)
	return c
}

// SearchPosts returns forum submissions mentioning cveID.
func (c *ForumClient) SearchPosts(ctx context.Context, cveID string) ([]Item, error) {
	return c.search(ctx, cveID)
}

func (c *ForumClient) fetch(ctx context.Context, cveID string) ([]Item, error) {
	params := url.Values{}
	params.Set("q", strings.ToUpper(cveID))
	params.Set("restrict_sr", "1")
	params.Set("limit", strconv.Itoa(c.maxResults))

	endpoint := fmt.Sprintf("%s/r/%s/search.json?%s", c.baseURL, c.community, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forum search returned %d", resp.StatusCode)
	}

	var body struct {
		Data struct {
			Children []struct {
				Data struct {
					Title       string  `json:"title"`
					URL         string  `json:"url"`
					Score       int     `json:"score"`
					NumComments int     `json:"num_comments"`
					Permalink   string  `json:"permalink"`
					CreatedUTC  float64 `json:"created_utc"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(body.Data.Children))
	for i, child := range body.Data.Children {
		if i >= c.maxResults {
			break
		}
		post := child.Data
		score := post.Score
		comments := post.NumComments
		items = append(items, Item{
			Source:     SourceForum,
			URL:        post.URL,
			Title:      post.Title,
			Score:      &score,
			Comments:   &comments,
			Permalink:  c.baseURL + post.Permalink,
			CreatedUTC: post.CreatedUTC,
		})
	}
	return items, nil
}
