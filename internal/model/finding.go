package model

// Category classifies a finding by the kind of advice it carries.
type Category string

const (
	CategoryIndexSuggestion Category = "index_suggestion"
	CategoryScanWarning     Category = "scan_warning"
	CategoryJoinWarning     Category = "join_warning"
	CategoryGeneral         Category = "general"
)

// Severity expresses the urgency of a finding.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Finding is one unit of advice produced by the advisor.
type Finding struct {
	Category   Category `json:"category"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Details    []string `json:"details,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// Report is the ordered result of one analysis call. Findings appear in
// rule-evaluation order.
type Report struct {
	Findings  []Finding `json:"findings"`
	NodeCount int       `json:"node_count"`
}

// Empty reports whether the analysis produced no findings.
func (r *Report) Empty() bool {
	return r == nil || len(r.Findings) == 0
}

// CountByCategory returns the number of findings with the given category.
func (r *Report) CountByCategory(c Category) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, f := range r.Findings {
		if f.Category == c {
			n++
		}
	}
	return n
}

// CountBySeverity returns the number of findings with the given severity.
func (r *Report) CountBySeverity(s Severity) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, f := range r.Findings {
		if f.Severity == s {
			n++
		}
	}
	return n
}
