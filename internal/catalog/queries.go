package catalog

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vulnwatch/vulnwatch/internal/core"
)

const dateLayout = "2006-01-02"

// ParseDate parses a catalog date (YYYY-MM-DD). Malformed input maps to
// the invalid-input class.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, want YYYY-MM-DD", core.ErrInvalidInput, value)
	}
	return t.UTC(), nil
}

// Recent returns entries added within the trailing window. Entries with
// unparseable dates are skipped.
func Recent(snapshot *Snapshot, days int) []Entry {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	recent := make([]Entry, 0)
	for _, entry := range snapshot.Vulnerabilities {
		added, err := ParseDate(entry.DateAdded)
		if err != nil {
			continue
		}
		if !added.Before(cutoff) {
			recent = append(recent, entry)
		}
	}
	return recent
}

// InRange returns entries added between start and end inclusive.
func InRange(snapshot *Snapshot, start, end time.Time) ([]Entry, error) {
	if start.After(end) {
		return nil, fmt.Errorf("%w: start date after end date", core.ErrInvalidInput)
	}

	matched := make([]Entry, 0)
	for _, entry := range snapshot.Vulnerabilities {
		added, err := ParseDate(entry.DateAdded)
		if err != nil {
			continue
		}
		if !added.Before(start) && !added.After(end) {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

// SearchFilters narrows a catalog search. String filters are
// case-insensitive substring matches.
type SearchFilters struct {
	Start  string
	End    string
	CVEID  string
	Vendor string
	Product string
}

// Search filters and sorts a snapshot's entries, newest additions first.
func Search(snapshot *Snapshot, filters SearchFilters) ([]Entry, error) {
	entries := append([]Entry(nil), snapshot.Vulnerabilities...)

	if filters.Start != "" {
		start, err := ParseDate(filters.Start)
		if err != nil {
			return nil, err
		}
		entries = filterEntries(entries, func(e Entry) bool {
			added, err := ParseDate(e.DateAdded)
			return err == nil && !added.Before(start)
		})
	}
	if filters.End != "" {
		end, err := ParseDate(filters.End)
		if err != nil {
			return nil, err
		}
		entries = filterEntries(entries, func(e Entry) bool {
			added, err := ParseDate(e.DateAdded)
			return err == nil && !added.After(end)
		})
	}
	if filters.CVEID != "" {
		needle := strings.ToUpper(filters.CVEID)
		entries = filterEntries(entries, func(e Entry) bool {
			return strings.Contains(strings.ToUpper(e.CVEID), needle)
		})
	}
	if filters.Vendor != "" {
		needle := strings.ToUpper(filters.Vendor)
		entries = filterEntries(entries, func(e Entry) bool {
			return strings.Contains(strings.ToUpper(e.VendorProject), needle)
		})
	}
	if filters.Product != "" {
		needle := strings.ToUpper(filters.Product)
		entries = filterEntries(entries, func(e Entry) bool {
			return strings.Contains(strings.ToUpper(e.Product), needle)
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].DateAdded > entries[j].DateAdded
	})

	return entries, nil
}

// Lookup finds entries whose identifier equals cveID, case-insensitively.
func Lookup(snapshot *Snapshot, cveID string) []Entry {
	needle := strings.ToUpper(strings.TrimSpace(cveID))
	matches := make([]Entry, 0, 1)
	for _, entry := range snapshot.Vulnerabilities {
		if strings.ToUpper(entry.CVEID) == needle {
			matches = append(matches, entry)
		}
	}
	return matches
}

// Paginate slices entries for one page. Pages are 1-based.
func Paginate(entries []Entry, page, limit int) ([]Entry, int) {
	total := len(entries)
	start := (page - 1) * limit
	if start >= total {
		return []Entry{}, total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return entries[start:end], total
}

func filterEntries(entries []Entry, keep func(Entry) bool) []Entry {
	out := entries[:0]
	for _, entry := range entries {
		if keep(entry) {
			out = append(out, entry)
		}
	}
	return out
}
