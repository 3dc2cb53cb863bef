package html

import (
	"fmt"
	"html/template"
	"io"

	"github.com/pgadvise/pgadvise/internal/model"
)

// Options configures the HTML renderer.
type Options struct {
	Title         string
	IncludeStyles bool
	// ShowForm renders the paste form above the findings (web mode).
	ShowForm bool
	// Analyzed distinguishes "no issues detected" from "nothing submitted yet".
	Analyzed bool
	PlanText string
	SQLText  string
}

// Render writes a standalone HTML page with the paste form and the findings
// list for the given report. A nil report renders the form alone.
func Render(w io.Writer, report *model.Report, opts Options) error {
	if w == nil {
		return fmt.Errorf("html render: writer is nil")
	}
	if opts.Title == "" {
		opts.Title = "pgadvise report"
	}
	tpl, err := template.New("report").Parse(reportTemplate)
	if err != nil {
		return fmt.Errorf("html render: compile template: %w", err)
	}
	if err := tpl.Execute(w, buildTemplateData(report, opts)); err != nil {
		return fmt.Errorf("html render: execute template: %w", err)
	}
	return nil
}

type templateData struct {
	Title         string
	IncludeStyles bool
	ShowForm      bool
	Analyzed      bool
	PlanText      string
	SQLText       string
	Findings      []findingView
	Summary       summaryView
}

type summaryView struct {
	Total     int
	Warnings  int
	Criticals int
	Indexes   int
}

type findingView struct {
	Icon       string
	Severity   string
	Category   string
	Message    string
	Details    []string
	Suggestion string
}

func buildTemplateData(report *model.Report, opts Options) templateData {
	data := templateData{
		Title:         opts.Title,
		IncludeStyles: opts.IncludeStyles,
		ShowForm:      opts.ShowForm,
		Analyzed:      opts.Analyzed,
		PlanText:      opts.PlanText,
		SQLText:       opts.SQLText,
	}
	if report == nil {
		return data
	}
	data.Summary = summaryView{
		Total:     len(report.Findings),
		Warnings:  report.CountBySeverity(model.SeverityWarning),
		Criticals: report.CountBySeverity(model.SeverityCritical),
		Indexes:   report.CountByCategory(model.CategoryIndexSuggestion),
	}
	for _, f := range report.Findings {
		data.Findings = append(data.Findings, findingView{
			Icon:       severityIcon(f.Severity),
			Severity:   string(f.Severity),
			Category:   categoryLabel(f.Category),
			Message:    f.Message,
			Details:    f.Details,
			Suggestion: f.Suggestion,
		})
	}
	return data
}

func categoryLabel(c model.Category) string {
	switch c {
	case model.CategoryIndexSuggestion:
		return "Index suggestion"
	case model.CategoryScanWarning:
		return "Scan warning"
	case model.CategoryJoinWarning:
		return "Join warning"
	default:
		return "General"
	}
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

const reportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>{{.Title}}</title>
	{{- if .IncludeStyles }}
	<style>
		body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Helvetica, Arial, sans-serif; margin: 0; padding: 0; background: #f7f7f8; color: #202124; }
		main { max-width: 960px; margin: 0 auto; padding: 32px 24px 48px; }
		header { background: #212a3b; color: #f7f7f8; padding: 32px 24px; }
		header h1 { margin: 0 0 8px; font-size: 28px; }
		header p { margin: 4px 0; opacity: 0.8; }
		section { margin-top: 32px; }
		section h2 { margin-bottom: 12px; font-size: 20px; }
		textarea { width: 100%; min-height: 180px; margin-bottom: 12px; border: 1px solid rgba(33,42,59,0.25); border-radius: 8px; padding: 10px; font-family: ui-monospace, SFMono-Regular, Menlo, monospace; font-size: 13px; box-sizing: border-box; }
		button { background: #212a3b; color: #f7f7f8; padding: 10px 22px; border: none; border-radius: 8px; cursor: pointer; font-size: 15px; }
		button:hover { background: #2e3a52; }
		.summary-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(160px, 1fr)); gap: 12px; }
		.summary-tile { background: #fff; border-radius: 10px; padding: 16px; box-shadow: 0 6px 18px rgba(13,28,39,0.12); }
		.summary-tile strong { display: block; font-size: 13px; text-transform: uppercase; letter-spacing: 0.04em; color: #5b7083; margin-bottom: 6px; }
		.summary-tile span { font-size: 18px; font-weight: 600; }
		.finding-list { list-style: none; margin: 0; padding: 0; display: flex; flex-direction: column; gap: 12px; }
		.finding-list li { background: #fff; border-radius: 12px; padding: 14px 16px; box-shadow: 0 4px 12px rgba(13,28,39,0.10); font-size: 14px; }
		.finding-list li.severity-critical { border-left: 4px solid #f44747; }
		.finding-list li.severity-warning { border-left: 4px solid #faae32; }
		.finding-list li.severity-info { border-left: 4px solid rgba(33,42,59,0.15); }
		.finding-head { display: flex; gap: 10px; align-items: baseline; }
		.finding-head .category { font-size: 12px; text-transform: uppercase; letter-spacing: 0.04em; color: #5b7083; }
		.finding-head .message { font-weight: 600; color: #253043; }
		.finding-details { margin: 8px 0 0 28px; padding: 0; color: #555f6e; }
		.finding-details li { background: none; box-shadow: none; border: none; padding: 2px 0; }
		.suggestion { margin: 8px 0 0 28px; font-family: ui-monospace, SFMono-Regular, Menlo, monospace; font-size: 13px; background: #f0f2f5; border-radius: 6px; padding: 8px 10px; display: inline-block; }
		.empty { background: #fff; border-radius: 12px; padding: 18px; box-shadow: 0 4px 12px rgba(13,28,39,0.10); color: #2d7a3a; font-weight: 600; }
	</style>
	{{- end }}
</head>
<body>
	<header>
		<h1>{{.Title}}</h1>
		<p>Paste a PostgreSQL query plan and get heuristic tuning advice.</p>
	</header>
	<main>
		{{- if .ShowForm }}
		<section>
			<h2>Analyze a plan</h2>
			<form method="post" action="/">
				<textarea name="query_plan" placeholder="Paste your query plan here...">{{.PlanText}}</textarea>
				<textarea name="query" placeholder="Paste the SQL statement here (optional)...">{{.SQLText}}</textarea>
				<br>
				<button type="submit">Analyze</button>
			</form>
		</section>
		{{- end }}

		{{- if .Analyzed }}
		<section>
			<h2>Recommendations</h2>
			{{- if .Findings }}
			<div class="summary-grid">
				<div class="summary-tile"><strong>Findings</strong><span>{{.Summary.Total}}</span></div>
				<div class="summary-tile"><strong>Warnings</strong><span>{{.Summary.Warnings}}</span></div>
				<div class="summary-tile"><strong>Critical</strong><span>{{.Summary.Criticals}}</span></div>
				<div class="summary-tile"><strong>Index suggestions</strong><span>{{.Summary.Indexes}}</span></div>
			</div>
			<ul class="finding-list" style="margin-top: 16px;">
				{{- range .Findings }}
				<li class="severity-{{.Severity}}">
					<div class="finding-head"><span>{{.Icon}}</span><span class="category">{{.Category}}</span><span class="message">{{.Message}}</span></div>
					{{- if .Details }}
					<ul class="finding-details">
						{{- range .Details }}
						<li>{{.}}</li>
						{{- end }}
					</ul>
					{{- end }}
					{{- if .Suggestion }}
					<div class="suggestion">{{.Suggestion}}</div>
					{{- end }}
				</li>
				{{- end }}
			</ul>
			{{- else }}
			<div class="empty">No issues detected.</div>
			{{- end }}
		</section>
		{{- end }}
	</main>
</body>
</html>
`
