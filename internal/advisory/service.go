// Package advisory is the request-facing service tying the source of
// record and the enrichment pipeline together: recent-CVE listings with
// preload, advanced search, description lookup and aggregate statistics.
package advisory

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/vulnwatch/vulnwatch/internal/cache"
	"github.com/vulnwatch/vulnwatch/internal/catalog"
	"github.com/vulnwatch/vulnwatch/internal/core"
	"github.com/vulnwatch/vulnwatch/internal/enrich"
	"github.com/vulnwatch/vulnwatch/internal/logger"
	"github.com/vulnwatch/vulnwatch/internal/nvd"
)

const (
	// DefaultDays and DefaultLimit define the preloaded recent window.
	DefaultDays  = 30
	DefaultLimit = 2000

	maxSearchRangeDays = 120
	dateLayout         = "2006-01-02"
)

// RecentResult is a windowed listing of enriched records.
type RecentResult struct {
	Total     int              `json:"total"`
	StartDate string           `json:"startDate"`
	EndDate   string           `json:"endDate"`
	CVEs      []*enrich.Result `json:"cves"`
}

// SearchParams narrows an advanced search. Filters apply after
// enrichment; dates are YYYY-MM-DD.
type SearchParams struct {
	Page       int
	Limit      int
	StartDate  string
	EndDate    string
	Keyword    string
	Severity   string
	Source     string
	HasCatalog *bool
	HasExploit *bool
}

// SearchResult is one page of filtered search output.
type SearchResult struct {
	Page    int              `json:"page"`
	Limit   int              `json:"limit"`
	Total   int              `json:"total"`
	Count   int              `json:"count"`
	Results []*enrich.Result `json:"results"`
}

// GlobalStats aggregates source-of-record and catalog totals.
type GlobalStats struct {
	TotalCVEs int `json:"total_cves"`
	TotalKEV  int `json:"total_kev"`
}

// WindowStats summarizes a trailing publication window.
type WindowStats struct {
	StartDate              string `json:"startDate"`
	EndDate                string `json:"endDate"`
	TotalCVE               int    `json:"totalCVE"`
	TotalKEV               int    `json:"totalKEV"`
	TotalCritical          int    `json:"totalCritical"`
	TotalActivelyExploited int    `json:"totalActivelyExploited"`
}

// Service serves advisory queries on top of the enrichment orchestrator.
type Service struct {
	nvd      *nvd.Client
	enricher *enrich.Enricher
	catalog  *catalog.Manager
	memoizer *cache.Memoizer
	log      *logger.Logger

	describe func(ctx context.Context, cveID string) (string, error)
}

func NewService(nvdClient *nvd.Client, enricher *enrich.Enricher, cat *catalog.Manager, memoizer *cache.Memoizer, log *logger.Logger) *Service {
	s := &Service{
		nvd:      nvdClient,
		enricher: enricher,
		catalog:  cat,
		memoizer: memoizer,
		log:      log.WithComponent("advisory"),
	}
	s.describe = cache.Wrap(memoizer, cache.NamespaceDescription, s.fetchDescription)
	return s
}

// Recent returns the enriched records published within the trailing
// window. Results are cached for an hour; when the source of record fails
// the last good listing for the same window is served instead.
func (s *Service) Recent(ctx context.Context, days, limit int) (*RecentResult, error) {
	if days <= 0 || limit <= 0 {
		return nil, fmt.Errorf("%w: days and limit must be positive", core.ErrInvalidInput)
	}

	args := []string{strconv.Itoa(days), strconv.Itoa(limit)}
	return cache.CachedStale(ctx, s.memoizer, cache.NamespaceRecentCVEs, args, nil,
		func(ctx context.Context) (*RecentResult, error) {
			return s.fetchRecent(ctx, days, limit)
		})
}

// Preload warms the default recent window and the catalog snapshot at
// process start. Failures are logged, never fatal; startup does not block
// on upstream availability.
func (s *Service) Preload(ctx context.Context) {
	snapshot := s.catalog.Preload(ctx)
	s.log.Infow("Catalog preloaded", "entries", len(snapshot.Vulnerabilities))

	if _, err := s.Recent(ctx, DefaultDays, DefaultLimit); err != nil {
		s.log.Warnw("Recent-CVE preload failed", "error", err.Error())
		return
	}
	s.log.Infow("Recent CVEs preloaded", "days", DefaultDays, "limit", DefaultLimit)
}

func (s *Service) fetchRecent(ctx context.Context, days, limit int) (*RecentResult, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	records, err := s.nvd.Search(ctx, nvd.SearchFilters{
		PubStartDate: start,
		PubEndDate:   end,
		Limit:        limit,
	})
	if err != nil {
		return nil, err
	}

	results, err := s.enrichAll(ctx, records)
	if err != nil {
		return nil, err
	}

	return &RecentResult{
		Total:     len(results),
		StartDate: start.Format(time.RFC3339),
		EndDate:   end.Format(time.RFC3339),
		CVEs:      results,
	}, nil
}

// ByID fetches and enriches one record. A nil result means the source of
// record does not know the identifier.
func (s *Service) ByID(ctx context.Context, cveID string) (*enrich.Result, error) {
	if err := nvd.ValidateCVEID(cveID); err != nil {
		return nil, err
	}

	return cache.Cached(ctx, s.memoizer, cache.NamespaceCVEDetail, []string{cveID}, nil,
		func(ctx context.Context) (*enrich.Result, error) {
			record, err := s.nvd.SearchByID(ctx, cveID)
			if err != nil {
				return nil, err
			}
			if record == nil {
				return nil, nil
			}
			return s.enricher.Enrich(ctx, record, nil)
		})
}

// Description returns the primary description text for a CVE, memoized
// for an hour.
func (s *Service) Description(ctx context.Context, cveID string) (string, error) {
	if err := nvd.ValidateCVEID(cveID); err != nil {
		return "", err
	}
	return s.describe(ctx, cveID)
}

func (s *Service) fetchDescription(ctx context.Context, cveID string) (string, error) {
	record, err := s.nvd.SearchByID(ctx, cveID)
	if err != nil {
		return "", err
	}
	if record == nil {
		return fmt.Sprintf("No description found for %s", cveID), nil
	}
	if desc := record.PrimaryDescription(); desc != "" {
		return desc, nil
	}
	return cveID, nil
}

// Search performs an advanced search with post-enrichment filters and
// in-memory pagination.
func (s *Service) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = 50
	}

	filters := nvd.SearchFilters{
		Keyword:          params.Keyword,
		SourceIdentifier: params.Source,
		Limit:            params.Limit * params.Page,
	}

	if params.StartDate != "" {
		start, err := parseDate(params.StartDate)
		if err != nil {
			return nil, err
		}
		filters.PubStartDate = start
	}
	if params.EndDate != "" {
		end, err := parseDate(params.EndDate)
		if err != nil {
			return nil, err
		}
		// The upstream window is inclusive of the end day.
		filters.PubEndDate = end.AddDate(0, 0, 1)
	}
	if !filters.PubStartDate.IsZero() && !filters.PubEndDate.IsZero() {
		if filters.PubStartDate.After(filters.PubEndDate) {
			return nil, fmt.Errorf("%w: start date after end date", core.ErrInvalidInput)
		}
		if filters.PubEndDate.Sub(filters.PubStartDate) > maxSearchRangeDays*24*time.Hour {
			return nil, fmt.Errorf("%w: date range exceeds %d days", core.ErrInvalidInput, maxSearchRangeDays)
		}
	}

	records, err := s.nvd.Search(ctx, filters)
	if err != nil {
		return nil, err
	}

	results, err := s.enrichAll(ctx, records)
	if err != nil {
		return nil, err
	}

	filtered := enrich.Filters{
		Severity:      params.Severity,
		CatalogListed: params.HasCatalog,
		HasExploit:    params.HasExploit,
	}.Apply(results)

	page, total := enrich.Paginate(filtered, params.Page, params.Limit)

	return &SearchResult{
		Page:    params.Page,
		Limit:   params.Limit,
		Total:   total,
		Count:   len(page),
		Results: page,
	}, nil
}

// Global returns source-of-record and catalog totals, cached for a day.
func (s *Service) Global(ctx context.Context) (*GlobalStats, error) {
	return cache.Cached(ctx, s.memoizer, cache.NamespaceStats, []string{"global"}, nil,
		func(ctx context.Context) (*GlobalStats, error) {
			total, err := s.nvd.Count(ctx)
			if err != nil {
				return nil, err
			}

			stats := &GlobalStats{TotalCVEs: total}
			snapshot, err := s.catalog.Fetch(ctx, false)
			if err != nil {
				s.log.Warnw("Catalog unavailable for stats", "error", err.Error())
				return stats, nil
			}
			stats.TotalKEV = len(snapshot.Vulnerabilities)
			return stats, nil
		})
}

// Window summarizes the records published in the trailing window.
func (s *Service) Window(ctx context.Context, days int) (*WindowStats, error) {
	if days <= 0 {
		return nil, fmt.Errorf("%w: days must be positive", core.ErrInvalidInput)
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	records, err := s.nvd.Search(ctx, nvd.SearchFilters{PubStartDate: start, PubEndDate: end})
	if err != nil {
		return nil, err
	}

	results, err := s.enrichAll(ctx, records)
	if err != nil {
		return nil, err
	}

	stats := &WindowStats{
		StartDate: start.Format(time.RFC3339),
		EndDate:   end.Format(time.RFC3339),
		TotalCVE:  len(results),
	}
	for _, result := range results {
		if result.IsExploited {
			stats.TotalKEV++
		}
		if result.ActivelyExploited {
			stats.TotalActivelyExploited++
		}
		if score := result.Score(); score != nil && *score >= 9 {
			stats.TotalCritical++
		}
	}
	return stats, nil
}

func (s *Service) enrichAll(ctx context.Context, records []nvd.VulnerabilityRecord) ([]*enrich.Result, error) {
	refs := make([]*nvd.VulnerabilityRecord, len(records))
	for i := range records {
		refs[i] = &records[i]
	}
	return s.enricher.EnrichBatch(ctx, refs)
}

func parseDate(value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, want YYYY-MM-DD", core.ErrInvalidInput, value)
	}
	return t.UTC(), nil
}
