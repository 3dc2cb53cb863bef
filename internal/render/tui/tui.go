package tui

import (
	"errors"
	"fmt"
	"io"

	"github.com/pgadvise/pgadvise/internal/model"
)

// Options controls how the terminal renderer behaves.
type Options struct {
	EnableColor bool
	ShowDetails bool
}

// Render prints the findings of a report as a terminal-friendly list.
func Render(w io.Writer, report *model.Report, opts Options) error {
	if w == nil {
		return errors.New("tui: writer is nil")
	}
	if report == nil {
		return errors.New("tui: nil report")
	}

	_, _ = fmt.Fprintf(w, "Findings %d | warnings %d | critical %d | plan nodes %d\n\n",
		len(report.Findings),
		report.CountBySeverity(model.SeverityWarning),
		report.CountBySeverity(model.SeverityCritical),
		report.NodeCount)

	if report.Empty() {
		_, _ = fmt.Fprintln(w, "No issues detected.")
		return nil
	}

	for _, f := range report.Findings {
		message := f.Message
		if opts.EnableColor {
			message = applyColor(message, severityColor(f.Severity))
		}
		_, _ = fmt.Fprintf(w, "%s [%s] %s\n", severityIcon(f.Severity), categoryLabel(f.Category), message)
		if opts.ShowDetails {
			for _, detail := range f.Details {
				_, _ = fmt.Fprintf(w, "    - %s\n", detail)
			}
			if f.Suggestion != "" {
				_, _ = fmt.Fprintf(w, "    $ %s\n", f.Suggestion)
			}
		}
	}
	return nil
}

func categoryLabel(c model.Category) string {
	switch c {
	case model.CategoryIndexSuggestion:
		return "index"
	case model.CategoryScanWarning:
		return "scan"
	case model.CategoryJoinWarning:
		return "join"
	default:
		return "general"
	}
}

func severityColor(sev model.Severity) string {
	switch sev {
	case model.SeverityCritical:
		return "red"
	case model.SeverityWarning:
		return "yellow"
	default:
		return ""
	}
}

func applyColor(text, color string) string {
	code := ""
	switch color {
	case "red":
		code = "\033[31m"
	case "yellow":
		code = "\033[33m"
	case "cyan":
		code = "\033[36m"
	default:
		return text
	}
	return code + text + "\033[0m"
}

func severityIcon(sev model.Severity) string {
	switch sev {
	case model.SeverityCritical:
		return "🔥"
	case model.SeverityWarning:
		return "⚠️"
	default:
		return "ℹ️"
	}
}
