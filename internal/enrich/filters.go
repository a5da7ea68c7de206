package enrich

import "strings"

// MatchesSeverity reports whether a result's categorical severity matches
// the target, inclusively: filtering for MEDIUM also returns HIGH and
// CRITICAL results.
func MatchesSeverity(result *Result, target string) bool {
	label := strings.ToUpper(result.SeverityLabel())
	if label == "" {
		return false
	}

	switch strings.ToUpper(target) {
	case "CRITICAL":
		return label == "CRITICAL"
	case "HIGH":
		return label == "HIGH" || label == "CRITICAL"
	case "MEDIUM":
		return label == "MEDIUM" || label == "HIGH" || label == "CRITICAL"
	case "LOW":
		return label == "LOW" || label == "MEDIUM" || label == "HIGH" || label == "CRITICAL"
	default:
		return label == strings.ToUpper(target)
	}
}

// Filters are the post-enrichment result filters. Nil booleans mean
// "don't filter on this field".
type Filters struct {
	Severity   string
	CatalogListed *bool
	HasExploit *bool
}

// Apply returns the results passing every set filter.
func (f Filters) Apply(results []*Result) []*Result {
	filtered := make([]*Result, 0, len(results))
	for _, result := range results {
		if f.Severity != "" && !MatchesSeverity(result, f.Severity) {
			continue
		}
		if f.CatalogListed != nil && result.IsExploited != *f.CatalogListed {
			continue
		}
		if f.HasExploit != nil && result.ExploitPublic != *f.HasExploit {
			continue
		}
		filtered = append(filtered, result)
	}
	return filtered
}

// Paginate slices results for one 1-based page, returning the page and the
// pre-pagination total.
func Paginate(results []*Result, page, limit int) ([]*Result, int) {
	total := len(results)
	start := (page - 1) * limit
	if start >= total {
		return []*Result{}, total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return results[start:end], total
}
