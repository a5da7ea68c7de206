package evidence

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/vulnwatch/vulnwatch/internal/config"
	"github.com/vulnwatch/vulnwatch/internal/httpclient"
	"github.com/vulnwatch/vulnwatch/internal/logger"
)

// maxProbeBody bounds how much of the search page the probe reads.
const maxProbeBody = 1 << 20

// ExploitDBProber checks an external exploit index for a CVE. Presence is
// inferred by a substring match of the scheme-stripped identifier in the
// response body. This is a heuristic, not a structured API result, and can
// produce false positives and negatives; callers treat it as advisory
// evidence only.
type ExploitDBProber struct {
	searchURL string
	http      *http.Client
	log       *logger.Logger
}

func NewExploitDBProber(cfg config.ExploitDBConfig, log *logger.Logger) *ExploitDBProber {
	return &ExploitDBProber{
		searchURL: cfg.SearchURL,
		http:      httpclient.NewWithTimeout(cfg.Timeout),
		log:       log.WithComponent("exploitdb"),
	}
}

// Probe reports whether the index appears to know the identifier, along
// with the search URL used as the evidence link.
func (p *ExploitDBProber) Probe(ctx context.Context, cveID string) (bool, string, error) {
	query := strings.Replace(strings.ToUpper(cveID), "CVE-", "", 1)
	probeURL := fmt.Sprintf("%s?cve=%s", p.searchURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		return false, "", err
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return false, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, "", fmt.Errorf("exploit index returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	if err != nil {
		return false, "", err
	}

	return strings.Contains(string(body), query), probeURL, nil
}
