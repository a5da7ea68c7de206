package nvd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/vulnwatch/vulnwatch/internal/config"
	"github.com/vulnwatch/vulnwatch/internal/core"
	"github.com/vulnwatch/vulnwatch/internal/httpclient"
	"github.com/vulnwatch/vulnwatch/internal/logger"
)

const (
	// maxDateRangeDays is the widest publication window one search may
	// cover, matching the upstream API restriction.
	maxDateRangeDays = 120

	// pageSize caps results per request.
	pageSize = 2000

	timeLayout = "2006-01-02T15:04:05.000"
)

var cveIDPattern = regexp.MustCompile(`^CVE-\d{4}-\d{4,}$`)

// ValidateCVEID reports whether id is a well-formed CVE identifier.
func ValidateCVEID(id string) error {
	if !cveIDPattern.MatchString(id) {
		return fmt.Errorf("%w: malformed CVE identifier %q", core.ErrInvalidInput, id)
	}
	return nil
}

// SearchFilters narrows a record search. Zero values are omitted from the
// query.
type SearchFilters struct {
	CVEID            string
	PubStartDate     time.Time
	PubEndDate       time.Time
	Keyword          string
	SourceIdentifier string
	Limit            int
}

// Client queries the NVD-style source-of-record REST API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logger.Logger
}

func NewClient(cfg config.NVDConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    httpclient.NewWithTimeout(cfg.Timeout),
		log:     log.WithComponent("nvd"),
	}
}

func (f SearchFilters) validate() error {
	if f.CVEID != "" {
		if err := ValidateCVEID(f.CVEID); err != nil {
			return err
		}
	}
	if !f.PubStartDate.IsZero() && !f.PubEndDate.IsZero() {
		if f.PubStartDate.After(f.PubEndDate) {
			return fmt.Errorf("%w: start date after end date", core.ErrInvalidInput)
		}
		if f.PubEndDate.Sub(f.PubStartDate) > maxDateRangeDays*24*time.Hour {
			return fmt.Errorf("%w: date range exceeds %d days", core.ErrInvalidInput, maxDateRangeDays)
		}
	}
	return nil
}

// Search returns records matching the filters, newest-first as supplied by
// the upstream.
func (c *Client) Search(ctx context.Context, filters SearchFilters) ([]VulnerabilityRecord, error) {
	if err := filters.validate(); err != nil {
		return nil, err
	}

	params := url.Values{}
	if filters.CVEID != "" {
		params.Set("cveId", filters.CVEID)
	}
	if !filters.PubStartDate.IsZero() {
		params.Set("pubStartDate", filters.PubStartDate.UTC().Format(timeLayout))
	}
	if !filters.PubEndDate.IsZero() {
		params.Set("pubEndDate", filters.PubEndDate.UTC().Format(timeLayout))
	}
	if filters.Keyword != "" {
		params.Set("keywordSearch", filters.Keyword)
	}
	if filters.SourceIdentifier != "" {
		params.Set("sourceIdentifier", filters.SourceIdentifier)
	}

	limit := filters.Limit
	if limit <= 0 || limit > pageSize {
		limit = pageSize
	}
	params.Set("resultsPerPage", strconv.Itoa(limit))

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	records := make([]VulnerabilityRecord, 0, len(body.Vulnerabilities))
	for _, wrapper := range body.Vulnerabilities {
		records = append(records, wrapper.CVE.toRecord())
	}
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// SearchByID fetches one record by identifier. A missing record returns
// (nil, nil).
func (c *Client) SearchByID(ctx context.Context, cveID string) (*VulnerabilityRecord, error) {
	records, err := c.Search(ctx, SearchFilters{CVEID: cveID})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// SearchRecent returns records published in the trailing window.
func (c *Client) SearchRecent(ctx context.Context, days, limit int) ([]VulnerabilityRecord, error) {
	if days <= 0 {
		return nil, fmt.Errorf("%w: days must be positive", core.ErrInvalidInput)
	}
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)
	return c.Search(ctx, SearchFilters{PubStartDate: start, PubEndDate: end, Limit: limit})
}

// Count returns the total number of records known to the source. Used for
// aggregate statistics only; a single-result probe read is enough to get
// the total.
func (c *Client) Count(ctx context.Context) (int, error) {
	params := url.Values{}
	params.Set("resultsPerPage", "1")
	params.Set("startIndex", "0")

	body, err := c.get(ctx, params)
	if err != nil {
		return 0, err
	}
	return body.TotalResults, nil
}

func (c *Client) get(ctx context.Context, params url.Values) (*searchResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("apiKey", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: source of record", core.ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: source of record returned %d", core.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", core.ErrUpstreamUnavailable, err)
	}
	return &body, nil
}

// Wire types for the upstream JSON shape, condensed to the fields the
// pipeline consumes.

type searchResponse struct {
	TotalResults    int          `json:"totalResults"`
	Vulnerabilities []cveWrapper `json:"vulnerabilities"`
}

type cveWrapper struct {
	CVE cveItem `json:"cve"`
}

type cveItem struct {
	ID               string        `json:"id"`
	SourceIdentifier string        `json:"sourceIdentifier"`
	Published        string        `json:"published"`
	LastModified     string        `json:"lastModified"`
	VulnStatus       string        `json:"vulnStatus"`
	Descriptions     []Description `json:"descriptions"`
	References       []Reference   `json:"references"`
	Weaknesses       []weakness    `json:"weaknesses"`
	Configurations   []configNode  `json:"configurations"`
	Metrics          metrics       `json:"metrics"`
}

type weakness struct {
	Description []Description `json:"description"`
}

type configNode struct {
	Nodes []struct {
		CPEMatch []struct {
			Criteria string `json:"criteria"`
		} `json:"cpeMatch"`
	} `json:"nodes"`
}

type metrics struct {
	CVSSMetricV31 []cvssMetric   `json:"cvssMetricV31"`
	CVSSMetricV30 []cvssMetric   `json:"cvssMetricV30"`
	CVSSMetricV2  []cvssMetricV2 `json:"cvssMetricV2"`
}

type cvssMetric struct {
	CVSSData struct {
		BaseScore    float64 `json:"baseScore"`
		BaseSeverity string  `json:"baseSeverity"`
	} `json:"cvssData"`
}

type cvssMetricV2 struct {
	CVSSData struct {
		BaseScore float64 `json:"baseScore"`
	} `json:"cvssData"`
	BaseSeverity string `json:"baseSeverity"`
}

func (item cveItem) toRecord() VulnerabilityRecord {
	rec := VulnerabilityRecord{
		ID:               item.ID,
		SourceIdentifier: item.SourceIdentifier,
		Published:        item.Published,
		LastModified:     item.LastModified,
		VulnStatus:       item.VulnStatus,
		Descriptions:     item.Descriptions,
		References:       item.References,
	}

	for _, w := range item.Weaknesses {
		for _, d := range w.Description {
			rec.Weaknesses = append(rec.Weaknesses, d.Value)
		}
	}
	for _, cfg := range item.Configurations {
		for _, node := range cfg.Nodes {
			for _, match := range node.CPEMatch {
				rec.Platforms = append(rec.Platforms, match.Criteria)
			}
		}
	}

	// Prefer the newest scheme that reported a score.
	switch {
	case len(item.Metrics.CVSSMetricV31) > 0:
		data := item.Metrics.CVSSMetricV31[0].CVSSData
		rec.Severity = &Severity{Scheme: "CVSSv3.1", Score: data.BaseScore, Label: data.BaseSeverity}
	case len(item.Metrics.CVSSMetricV30) > 0:
		data := item.Metrics.CVSSMetricV30[0].CVSSData
		rec.Severity = &Severity{Scheme: "CVSSv3.0", Score: data.BaseScore, Label: data.BaseSeverity}
	case len(item.Metrics.CVSSMetricV2) > 0:
		m := item.Metrics.CVSSMetricV2[0]
		rec.Severity = &Severity{Scheme: "CVSSv2", Score: m.CVSSData.BaseScore, Label: m.BaseSeverity}
	}

	return rec
}
