// Package epss looks up exploit-probability scores for CVE identifiers.
package epss

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

// Score is an exploit-probability estimate. Score and Percentile are both
// in [0,1]. A zero value means "unavailable or truly zero": the upstream
// returns nothing for unknown identifiers and this layer does not
// distinguish the two. Known limitation, kept deliberately.
type Score struct {
	Score      float64 `json:"epss_score"`
	Percentile float64 `json:"epss_percentile"`
}

// Client fetches probability scores, memoized with a one-hour lifetime.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
	lookup  func(ctx context.Context, cveID string) (Score, error)
}

func NewClient(cfg config.EPSSConfig, memoizer *cache.Memoizer, log *logger.Logger) *Client {
	c := &Client{
		baseURL: cfg.BaseURL,
		http:    httpclient.NewWithTimeout(cfg.Timeout),
		log:     log.WithComponent("epss"),
	}
	c.lookup = cache.Wrap(memoizer, cache.NamespaceEPSS, c.fetch)
	return c
}

// Lookup returns the probability score for cveID, zero-valued when the
// source has no data or cannot be reached.
func (c *Client) Lookup(ctx context.Context, cveID string) Score {
	score, err := c.lookup(ctx, cveID)
	if err != nil {
		// fetch swallows upstream failures, so this is a cache decode error.
		c.log.Warnw("EPSS lookup failed", "cve_id", cveID, "error", err.Error())
		return Score{}
	}
	return score
}

func (c *Client) fetch(ctx context.Context, cveID string) (Score, error) {
	endpoint := fmt.Sprintf("%s?cve=%s", c.baseURL, url.QueryEscape(cveID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Score{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warnw("EPSS source unreachable", "cve_id", cveID, "error", err.Error())
		return Score{}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warnw("EPSS source returned error", "cve_id", cveID, "status", resp.StatusCode)
		return Score{}, nil
	}

	var body struct {
		Data []struct {
			EPSS       string `json:"epss"`
			Percentile string `json:"percentile"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.log.Warnw("EPSS response decode failed", "cve_id", cveID, "error", err.Error())
		return Score{}, nil
	}
	if len(body.Data) == 0 {
		return Score{}, nil
	}

	// Upstream reports numbers as strings.
	score, _ := strconv.ParseFloat(body.Data[0].EPSS, 64)
	percentile, _ := strconv.ParseFloat(body.Data[0].Percentile, 64)
	return Score{Score: score, Percentile: percentile}, nil
}
