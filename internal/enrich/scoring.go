package enrich

import (
	"fmt"
	"math"
	"strings"
)

// Confidence labels for exploitation likelihood.
const (
	ConfidenceHigh    = "High"
	ConfidenceMedium  = "Medium"
	ConfidenceLow     = "Low"
	ConfidenceUnknown = "Unknown"
)

// Signals are the already-known fields risk scoring is computed from. All
// functions in this file are pure; no I/O happens past this point.
type Signals struct {
	CatalogListed  bool
	EPSSScore      float64
	EPSSPercentile float64
	ExploitPublic  bool
	Score          *float64
	SeverityLabel  string
	Product        string
}

// Profile is the human-readable risk summary attached to an enriched
// record.
type Profile struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	SynthScore  int      `json:"synth_score"`
}

// ConfidenceLevel grades how certain exploitation is, from catalog
// membership, public evidence and the probability score.
func ConfidenceLevel(s Signals) string {
	switch {
	case s.CatalogListed || (s.ExploitPublic && s.EPSSScore > 0.6):
		return ConfidenceHigh
	case s.EPSSScore > 0.3:
		return ConfidenceMedium
	case s.EPSSScore > 0.1:
		return ConfidenceLow
	default:
		return ConfidenceUnknown
	}
}

// ActivelyExploited is true only for catalog-listed vulnerabilities whose
// probability score exceeds 0.6. It can never hold without catalog
// membership.
func ActivelyExploited(s Signals) bool {
	return s.CatalogListed && s.EPSSScore > 0.6
}

func isCritical(s Signals) bool {
	if s.Score != nil && *s.Score >= 9 {
		return true
	}
	return strings.EqualFold(s.SeverityLabel, "critical")
}

func severityTitle(s Signals) string {
	if s.Score == nil {
		return "Vulnerability (no CVSS score)"
	}
	switch {
	case *s.Score >= 9:
		return "Critical Vulnerability"
	case *s.Score >= 7:
		return "High Severity Vulnerability"
	case *s.Score >= 4:
		return "Medium Severity Vulnerability"
	default:
		return "Low Severity Vulnerability"
	}
}

func severityTag(score float64) string {
	switch {
	case score >= 9:
		return "Critical Severity"
	case score >= 7:
		return "High Severity"
	case score >= 4:
		return "Medium Severity"
	default:
		return "Low Severity"
	}
}

// BuildProfile derives the title, description, tags and synthetic score
// for a record's signals.
func BuildProfile(s Signals) Profile {
	actively := ActivelyExploited(s)

	var title string
	switch {
	case s.CatalogListed && isCritical(s):
		title = "Critical KEV-Listed Vulnerability, Actively Exploited"
	case s.CatalogListed:
		title = "KEV Listed Vulnerability"
	case actively && s.Score != nil && *s.Score >= 9:
		title = "Actively Exploited Critical Vulnerability"
	case actively:
		title = "Actively Exploited Vulnerability"
	default:
		title = severityTitle(s)
	}

	parts := []string{title + "."}
	if s.Score != nil {
		label := "N/A"
		if s.SeverityLabel != "" {
			label = capitalize(s.SeverityLabel)
		}
		parts = append(parts, fmt.Sprintf("CVSS score: %.1f (%s).", *s.Score, label))
	} else {
		parts = append(parts, "CVSS score: N/A.")
	}
	if s.EPSSScore > 0 {
		parts = append(parts, fmt.Sprintf("EPSS: %.3f (percentile: %.3f).", s.EPSSScore, s.EPSSPercentile))
	} else {
		parts = append(parts, "EPSS: N/A.")
	}
	if s.CatalogListed {
		parts = append(parts, "Listed in the CISA KEV catalog (confirmed exploitation).")
	}
	if s.ExploitPublic {
		parts = append(parts, "Public exploit available.")
	}
	if actively && !s.CatalogListed {
		parts = append(parts, "Indicators suggest active exploitation in the wild.")
	}
	if s.Product != "" {
		parts = append(parts, fmt.Sprintf("Affected product: %s.", s.Product))
	}

	tags := make([]string, 0, 6)
	if s.Product != "" {
		tags = append(tags, "Critical Infrastructure")
	}
	if s.CatalogListed {
		tags = append(tags, "CISA KEV Listed")
	}
	if actively {
		tags = append(tags, "Active Exploitation")
	}
	if s.ExploitPublic {
		tags = append(tags, "Public Exploit Available")
	}
	if s.CatalogListed && s.Score != nil && *s.Score >= 9 {
		tags = append(tags, "Significant Media Coverage")
	}
	if s.Score != nil {
		tags = append(tags, severityTag(*s.Score))
	}

	return Profile{
		Title:       title,
		Description: strings.Join(parts, " "),
		Tags:        tags,
		SynthScore:  SynthScore(s),
	}
}

// SynthScore combines severity, exploitation probability, catalog
// membership and public-exploit availability into a bounded composite.
// Monotonic in every contributing signal, always within [0,100].
func SynthScore(s Signals) int {
	synth := 0.0
	if s.Score != nil {
		synth += math.Min(10, *s.Score) * 7
	}
	synth += math.Min(1, s.EPSSScore) * 20
	if s.CatalogListed {
		synth += 20
	}
	if s.ExploitPublic {
		synth += 10
	}

	rounded := int(math.Round(math.Min(100, synth)))
	if rounded < 0 {
		rounded = 0
	}
	return rounded
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
