// Package evidence discovers public exploit activity for a vulnerability
// across independent sources and merges the findings.
package evidence

// Source tags for evidence items. Reference-tag items carry the matching
// classification tag itself as their source.
const (
	SourceExploitDB = "Exploit-DB"
	SourceGitHub    = "GitHub-POC"
	SourceForum     = "Reddit"
)

// Item is one discovered artifact suggesting public exploit activity.
// Identity for deduplication is (Source, URL); items without a URL are
// never deduplicated against others.
type Item struct {
	Source    string  `json:"source"`
	URL       string  `json:"url,omitempty"`
	Type      string  `json:"type,omitempty"`
	Name      string  `json:"name,omitempty"`
	Title     string  `json:"title,omitempty"`
	Stars     *int    `json:"stars,omitempty"`
	CreatedAt string  `json:"created_at,omitempty"`
	Score     *int    `json:"score,omitempty"`
	Comments  *int    `json:"nbr_comment,omitempty"`
	Permalink string  `json:"permalink,omitempty"`
	CreatedUTC float64 `json:"created_utc,omitempty"`
}

// Dedupe removes items sharing both source and non-empty URL, preserving
// first-seen order.
func Dedupe(items []Item) []Item {
	type identity struct {
		source string
		url    string
	}

	seen := make(map[identity]bool, len(items))
	deduped := make([]Item, 0, len(items))
	for _, item := range items {
		if item.URL != "" {
			id := identity{source: item.Source, url: item.URL}
			if seen[id] {
				continue
			}
			seen[id] = true
		}
		deduped = append(deduped, item)
	}
	return deduped
}
