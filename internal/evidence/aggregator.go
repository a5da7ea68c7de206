package evidence

import (
	"context"
	"strings"

	"golang.org/x/time/rate"

	"github.com/vulnwatch/vulnwatch/internal/catalog"
	"github.com/vulnwatch/vulnwatch/internal/config"
	"github.com/vulnwatch/vulnwatch/internal/logger"
	"github.com/vulnwatch/vulnwatch/internal/nvd"
)

// referenceTagWhitelist selects which reference classifications count as
// exploit evidence.
var referenceTagWhitelist = map[string]bool{
	"exploit":        true,
	"patch":          true,
	"issue tracking": true,
	"issue-tracking": true,
	"issue":          true,
}

type exploitProber interface {
	Probe(ctx context.Context, cveID string) (bool, string, error)
}

type pocSearcher interface {
	SearchPoCs(ctx context.Context, cveID string) ([]Item, error)
}

type postSearcher interface {
	SearchPosts(ctx context.Context, cveID string) ([]Item, error)
}

// Aggregator queries every evidence source for one vulnerability. Each
// source is independently fault-tolerant: a failing source contributes no
// evidence and never aborts the others. Per-source rate limiters keep the
// aggregate request rate within upstream limits regardless of batch
// concurrency.
type Aggregator struct {
	exploitDB exploitProber
	github    pocSearcher
	forum     postSearcher

	exploitDBLimit *rate.Limiter
	githubLimit    *rate.Limiter
	forumLimit     *rate.Limiter

	log *logger.Logger
}

func NewAggregator(exploitDB exploitProber, github pocSearcher, forum postSearcher, cfg config.RateLimitConfig, log *logger.Logger) *Aggregator {
	return &Aggregator{
		exploitDB:      exploitDB,
		github:         github,
		forum:          forum,
		exploitDBLimit: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		githubLimit:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		forumLimit:     rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		log:            log.WithComponent("evidence"),
	}
}

// Detect gathers exploit evidence for record. The boolean reports whether
// a public exploit was observed: catalog membership, an exploit-index
// match, or any code-hosting or forum evidence.
func (a *Aggregator) Detect(ctx context.Context, record *nvd.VulnerabilityRecord, index catalog.Index) (bool, []Item) {
	items := scanReferences(record)

	exploitDBFound := false
	githubFound := false
	forumFound := false

	if record.ID != "" {
		if a.exploitDB != nil && a.exploitDBLimit.Wait(ctx) == nil {
			found, probeURL, err := a.exploitDB.Probe(ctx, record.ID)
			if err != nil {
				a.log.Debugw("Exploit index probe failed", "cve_id", record.ID, "error", err.Error())
			} else if found {
				exploitDBFound = true
				items = append(items, Item{Source: SourceExploitDB, URL: probeURL})
			}
		}

		if a.github != nil && a.githubLimit.Wait(ctx) == nil {
			pocs, err := a.github.SearchPoCs(ctx, record.ID)
			if err != nil {
				a.log.Debugw("Code-hosting search failed", "cve_id", record.ID, "error", err.Error())
			} else if len(pocs) > 0 {
				githubFound = true
				items = append(items, pocs...)
			}
		}

		if a.forum != nil && a.forumLimit.Wait(ctx) == nil {
			posts, err := a.forum.SearchPosts(ctx, record.ID)
			if err != nil {
				a.log.Debugw("Forum search failed", "cve_id", record.ID, "error", err.Error())
			} else if len(posts) > 0 {
				forumFound = true
				items = append(items, posts...)
			}
		}
	}

	_, inCatalog := index[record.ID]
	observed := inCatalog || exploitDBFound || githubFound || forumFound

	return observed, Dedupe(items)
}

// scanReferences filters the record's own references to those whose
// classification tags intersect the whitelist. The matching tag becomes
// the item's source.
func scanReferences(record *nvd.VulnerabilityRecord) []Item {
	items := make([]Item, 0)
	for _, ref := range record.References {
		for _, tag := range ref.Tags {
			if referenceTagWhitelist[strings.ToLower(strings.TrimSpace(tag))] {
				if ref.URL != "" {
					items = append(items, Item{Source: tag, URL: ref.URL})
				}
				break
			}
		}
	}
	return items
}
