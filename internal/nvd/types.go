// Package nvd models vulnerability records and implements the
// source-of-record client that supplies them.
package nvd

// Reference is a structured link attached to a vulnerability record.
type Reference struct {
	URL  string   `json:"url"`
	Tags []string `json:"tags,omitempty"`
}

// Description is a localized free-text description.
type Description struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

// Severity carries one scoring scheme's numeric score and categorical
// label, e.g. {"CVSSv3.1", 9.8, "CRITICAL"}.
type Severity struct {
	Scheme string  `json:"scheme"`
	Score  float64 `json:"score"`
	Label  string  `json:"label"`
}

// VulnerabilityRecord is one raw record from the source of record.
// Immutable once fetched; the enrichment orchestrator owns it for the
// duration of one enrichment call.
type VulnerabilityRecord struct {
	ID               string        `json:"id"`
	SourceIdentifier string        `json:"sourceIdentifier,omitempty"`
	Published        string        `json:"published,omitempty"`
	LastModified     string        `json:"lastModified,omitempty"`
	VulnStatus       string        `json:"vulnStatus,omitempty"`
	Descriptions     []Description `json:"descriptions,omitempty"`
	References       []Reference   `json:"references,omitempty"`
	Weaknesses       []string      `json:"cwe,omitempty"`
	Platforms        []string      `json:"cpe,omitempty"`
	Severity         *Severity     `json:"severity,omitempty"`
}

// PrimaryDescription returns the first description text, preferring
// English.
func (r *VulnerabilityRecord) PrimaryDescription() string {
	for _, d := range r.Descriptions {
		if d.Lang == "en" {
			return d.Value
		}
	}
	if len(r.Descriptions) > 0 {
		return r.Descriptions[0].Value
	}
	return ""
}

// Score returns the primary numeric severity score, or nil when no scheme
// reported one.
func (r *VulnerabilityRecord) Score() *float64 {
	if r.Severity == nil {
		return nil
	}
	score := r.Severity.Score
	return &score
}

// SeverityLabel returns the categorical severity label, empty when unscored.
func (r *VulnerabilityRecord) SeverityLabel() string {
	if r.Severity == nil {
		return ""
	}
	return r.Severity.Label
}
