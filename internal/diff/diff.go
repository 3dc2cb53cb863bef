// Package diff compares two advisor reports, typically a plan before and
// after a schema change, and summarises which findings were resolved and
// which appeared.
package diff

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pgadvise/pgadvise/internal/model"
)

// Report summarises the delta between a base and a target analysis.
type Report struct {
	Resolved   []model.Finding `json:"resolved"`
	Introduced []model.Finding `json:"introduced"`
	Persisting []model.Finding `json:"persisting"`
}

// Compare matches findings between two reports. Findings are keyed by
// category and message; details and suggestions do not affect identity.
func Compare(base, target *model.Report) (*Report, error) {
	if base == nil {
		return nil, fmt.Errorf("diff: base report missing")
	}
	if target == nil {
		return nil, fmt.Errorf("diff: target report missing")
	}

	baseKeys := keySet(base)
	targetKeys := keySet(target)

	report := &Report{}
	for _, f := range base.Findings {
		if _, ok := targetKeys[key(f)]; ok {
			report.Persisting = append(report.Persisting, f)
		} else {
			report.Resolved = append(report.Resolved, f)
		}
	}
	for _, f := range target.Findings {
		if _, ok := baseKeys[key(f)]; !ok {
			report.Introduced = append(report.Introduced, f)
		}
	}
	return report, nil
}

// Markdown renders the report as a Markdown document.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# pgadvise diff\n\n")
	_, _ = fmt.Fprintf(&b, "Resolved %d · Introduced %d · Persisting %d\n\n",
		len(r.Resolved), len(r.Introduced), len(r.Persisting))

	writeSection(&b, "Resolved", r.Resolved, "None")
	writeSection(&b, "Introduced", r.Introduced, "None")
	writeSection(&b, "Persisting", r.Persisting, "None")
	return b.String()
}

// JSON marshals the diff report into an indented JSON document.
func (r *Report) JSON() ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("nil report")
	}
	return json.MarshalIndent(r, "", "  ")
}

func writeSection(b *strings.Builder, title string, findings []model.Finding, empty string) {
	_, _ = fmt.Fprintf(b, "## %s\n", title)
	if len(findings) == 0 {
		_, _ = fmt.Fprintf(b, "- %s\n\n", empty)
		return
	}
	for _, f := range findings {
		_, _ = fmt.Fprintf(b, "- [%s/%s] %s\n", f.Category, f.Severity, f.Message)
	}
	b.WriteString("\n")
}

func key(f model.Finding) string {
	return string(f.Category) + "\x00" + f.Message
}

func keySet(r *model.Report) map[string]struct{} {
	out := make(map[string]struct{}, len(r.Findings))
	for _, f := range r.Findings {
		out[key(f)] = struct{}{}
	}
	return out
}
