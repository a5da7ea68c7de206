// Package catalog maintains the exploited-vulnerability catalog as a
// cached, periodically refreshed snapshot with degraded-mode fallback.
package catalog

// Entry is one catalog record. At most one entry exists per CVE identifier
// within a snapshot.
type Entry struct {
	CVEID                      string `json:"cveID"`
	VendorProject              string `json:"vendorProject"`
	Product                    string `json:"product"`
	VulnerabilityName          string `json:"vulnerabilityName"`
	DateAdded                  string `json:"dateAdded"`
	DueDate                    string `json:"dueDate"`
	RequiredAction             string `json:"requiredAction"`
	ShortDescription           string `json:"shortDescription"`
	KnownRansomwareCampaignUse string `json:"knownRansomwareCampaignUse"`
}

// Snapshot is one full catalog release. Replaced wholesale on refresh,
// never mutated in place.
type Snapshot struct {
	CatalogVersion  string  `json:"catalogVersion"`
	DateReleased    string  `json:"dateReleased"`
	Count           int     `json:"count"`
	Vulnerabilities []Entry `json:"vulnerabilities"`
}

// Index maps identifiers to entries for O(1) membership checks. Derived
// once per snapshot and shared read-only across a batch.
type Index map[string]*Entry

// BuildIndex derives the lookup index from a snapshot. O(n); callers build
// it once per batch, not per record.
func BuildIndex(snapshot *Snapshot) Index {
	if snapshot == nil {
		return Index{}
	}
	index := make(Index, len(snapshot.Vulnerabilities))
	for i := range snapshot.Vulnerabilities {
		entry := &snapshot.Vulnerabilities[i]
		index[entry.CVEID] = entry
	}
	return index
}
