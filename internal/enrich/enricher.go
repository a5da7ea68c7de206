// Package enrich composes catalog membership, exploit probability,
// evidence aggregation and risk scoring into one merged record per input
// vulnerability.
package enrich

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/vulnwatch/vulnwatch/internal/catalog"
	"github.com/vulnwatch/vulnwatch/internal/epss"
	"github.com/vulnwatch/vulnwatch/internal/evidence"
	"github.com/vulnwatch/vulnwatch/internal/logger"
	"github.com/vulnwatch/vulnwatch/internal/nvd"
)

// Result is a fully enriched vulnerability record. Created once per input
// and never mutated after construction.
type Result struct {
	nvd.VulnerabilityRecord

	IsExploited                bool   `json:"isExploited"`
	VendorProject              string `json:"vendorProject,omitempty"`
	Product                    string `json:"product,omitempty"`
	VulnerabilityName          string `json:"vulnerabilityName,omitempty"`
	ExploitAdded               string `json:"exploitAdd,omitempty"`
	ActionDue                  string `json:"actionDue,omitempty"`
	RequiredAction             string `json:"requiredAction,omitempty"`
	KEVShortDescription        string `json:"kevShortDescription,omitempty"`
	KnownRansomwareCampaignUse string `json:"knownRansomwareCampaignUse,omitempty"`

	EPSSScore      float64 `json:"epss_score"`
	EPSSPercentile float64 `json:"epss_percentile"`

	ExploitPublic bool            `json:"exploit_public"`
	Evidence      []evidence.Item `json:"evidence"`

	ConfidenceLevel   string  `json:"confidenceLevel"`
	ActivelyExploited bool    `json:"activelyExploited"`
	Profile           Profile `json:"profile"`
}

// Enricher orchestrates the enrichment pipeline.
type Enricher struct {
	catalog  *catalog.Manager
	epss     *epss.Client
	evidence *evidence.Aggregator
	workers  int
	log      *logger.Logger
}

func NewEnricher(cat *catalog.Manager, epssClient *epss.Client, agg *evidence.Aggregator, workers int, log *logger.Logger) *Enricher {
	if workers < 1 {
		workers = 1
	}
	return &Enricher{
		catalog:  cat,
		epss:     epssClient,
		evidence: agg,
		workers:  workers,
		log:      log.WithComponent("enrich"),
	}
}

// Enrich produces the merged record for one vulnerability. A nil index is
// the single-item convenience path: the current snapshot is fetched and
// indexed on the spot. Batch callers must build one index per batch and
// pass it in.
func (e *Enricher) Enrich(ctx context.Context, record *nvd.VulnerabilityRecord, index catalog.Index) (*Result, error) {
	if index == nil {
		snapshot, err := e.catalog.Fetch(ctx, false)
		if err != nil {
			return nil, err
		}
		index = catalog.BuildIndex(snapshot)
	}

	result := &Result{VulnerabilityRecord: *record}

	if entry, ok := index[record.ID]; ok {
		result.IsExploited = true
		result.VendorProject = entry.VendorProject
		result.Product = entry.Product
		result.VulnerabilityName = entry.VulnerabilityName
		result.ExploitAdded = entry.DateAdded
		result.ActionDue = entry.DueDate
		result.RequiredAction = entry.RequiredAction
		result.KEVShortDescription = entry.ShortDescription
		result.KnownRansomwareCampaignUse = entry.KnownRansomwareCampaignUse
	}

	score := e.epss.Lookup(ctx, record.ID)
	result.EPSSScore = score.Score
	result.EPSSPercentile = score.Percentile

	result.ExploitPublic, result.Evidence = e.evidence.Detect(ctx, record, index)

	signals := Signals{
		CatalogListed:  result.IsExploited,
		EPSSScore:      result.EPSSScore,
		EPSSPercentile: result.EPSSPercentile,
		ExploitPublic:  result.ExploitPublic,
		Score:          record.Score(),
		SeverityLabel:  record.SeverityLabel(),
		Product:        result.Product,
	}
	result.ConfidenceLevel = ConfidenceLevel(signals)
	result.ActivelyExploited = ActivelyExploited(signals)
	result.Profile = BuildProfile(signals)

	return result, nil
}

// EnrichBatch enriches a batch of records through a bounded worker pool.
// The catalog snapshot is fetched and indexed exactly once and shared
// read-only across all workers. Cancelling ctx stops scheduling further
// items; completed per-key cache writes are atomic so cancellation leaves
// no partial state.
func (e *Enricher) EnrichBatch(ctx context.Context, records []*nvd.VulnerabilityRecord) ([]*Result, error) {
	if len(records) == 0 {
		return []*Result{}, nil
	}

	snapshot, err := e.catalog.Fetch(ctx, false)
	if err != nil {
		return nil, err
	}
	index := catalog.BuildIndex(snapshot)

	results := make([]*Result, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, record := range records {
		i, record := i, record
		g.Go(func() error {
			result, err := e.Enrich(gctx, record, index)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
