package advisor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pgadvise/pgadvise/internal/model"
)

var (
	whereClauseRe = regexp.MustCompile(`(?is)\bwhere\b(.*?)(?:\bgroup\s+by\b|\border\s+by\b|\blimit\b|;|$)`)
	comparisonRe  = regexp.MustCompile(`(?i)\b([a-z_][a-z0-9_]*)\s*(?:<=|>=|<>|!=|=|<|>)`)
	predicateRe   = regexp.MustCompile(`(?i)\b([a-z_][a-z0-9_]*)\s+(?:like|ilike|in|between)\b`)
	fromTableRe   = regexp.MustCompile(`(?i)\bfrom\s+(\w+)`)
	joinRe        = regexp.MustCompile(`(?i)\bjoin\b`)
	onRe          = regexp.MustCompile(`(?i)\bon\b`)
	usingRe       = regexp.MustCompile(`(?i)\busing\b`)
	selectStarRe  = regexp.MustCompile(`(?i)\bselect\s+(?:distinct\s+)?\*`)
	groupByRe     = regexp.MustCompile(`(?i)\bgroup\s+by\b`)
	orderByRe     = regexp.MustCompile(`(?i)\border\s+by\b`)
	distinctRe    = regexp.MustCompile(`(?i)\bdistinct\b`)
	limitRe       = regexp.MustCompile(`(?i)\blimit\b`)
)

// sqlKeywords are tokens the WHERE-column extraction must never treat as
// column names.
var sqlKeywords = map[string]bool{
	"and": true, "or": true, "not": true, "in": true, "like": true,
	"ilike": true, "between": true, "is": true, "null": true, "true": true,
	"false": true, "exists": true, "select": true, "from": true,
	"where": true, "case": true, "when": true, "then": true, "else": true,
	"end": true, "any": true, "all": true,
}

// missingIndexFindings emits one IndexSuggestion per WHERE-clause column that
// has no visible index use in the plan. A column counts as indexed when any
// plan line mentioning an index also mentions the column.
func missingIndexFindings(in *ruleInput) []model.Finding {
	m := whereClauseRe.FindStringSubmatch(in.sqlText)
	if m == nil {
		return nil
	}
	clause := m[1]

	var columns []string
	seen := map[string]bool{}
	collect := func(matches [][]string) {
		for _, match := range matches {
			col := strings.ToLower(match[1])
			if sqlKeywords[col] || seen[col] {
				continue
			}
			seen[col] = true
			columns = append(columns, col)
		}
	}
	collect(comparisonRe.FindAllStringSubmatch(clause, -1))
	collect(predicateRe.FindAllStringSubmatch(clause, -1))

	table := ""
	if tm := fromTableRe.FindStringSubmatch(in.sqlText); tm != nil {
		table = tm[1]
	}

	var out []model.Finding
	for _, col := range columns {
		if columnIndexedInPlan(in.planText, col) {
			continue
		}
		f := model.Finding{
			Category: model.CategoryIndexSuggestion,
			Severity: model.SeverityWarning,
			Message:  fmt.Sprintf("Column %q is filtered in the WHERE clause but the plan shows no index using it", col),
			Details: []string{
				"An index on this column lets the planner avoid scanning rows that the filter discards",
			},
		}
		if table != "" {
			f.Suggestion = fmt.Sprintf("CREATE INDEX idx_%s_%s ON %s (%s);", table, col, table, col)
		}
		out = append(out, f)
	}
	return out
}

func columnIndexedInPlan(planText, column string) bool {
	column = strings.ToLower(column)
	for _, line := range strings.Split(strings.ToLower(planText), "\n") {
		if strings.Contains(line, "index") && strings.Contains(line, column) {
			return true
		}
	}
	return false
}

func selectStarFinding(in *ruleInput) []model.Finding {
	if !selectStarRe.MatchString(in.sqlText) {
		return nil
	}
	return []model.Finding{{
		Category: model.CategoryGeneral,
		Severity: model.SeverityInfo,
		Message:  "Avoid SELECT * - name only the columns you need",
		Details: []string{
			"Narrow column lists reduce data transfer and can enable index-only scans",
		},
	}}
}

func joinFindings(in *ruleInput) []model.Finding {
	if !joinRe.MatchString(in.sqlText) {
		return nil
	}
	out := []model.Finding{{
		Category: model.CategoryGeneral,
		Severity: model.SeverityInfo,
		Message:  "JOIN detected - make sure the join columns are indexed",
	}}
	if !onRe.MatchString(in.sqlText) && !usingRe.MatchString(in.sqlText) {
		out = append(out, model.Finding{
			Category: model.CategoryJoinWarning,
			Severity: model.SeverityWarning,
			Message:  "JOIN without an ON or USING condition - this produces a Cartesian product",
		})
	}
	return out
}

func groupByFinding(in *ruleInput) []model.Finding {
	if !groupByRe.MatchString(in.sqlText) {
		return nil
	}
	return []model.Finding{{
		Category: model.CategoryGeneral,
		Severity: model.SeverityInfo,
		Message:  "GROUP BY detected - indexing the grouped columns can speed up aggregation",
	}}
}

func orderByFinding(in *ruleInput) []model.Finding {
	if !orderByRe.MatchString(in.sqlText) {
		return nil
	}
	return []model.Finding{{
		Category: model.CategoryGeneral,
		Severity: model.SeverityInfo,
		Message:  "ORDER BY detected - an index matching the sort order avoids an explicit sort",
	}}
}

func distinctFinding(in *ruleInput) []model.Finding {
	if !distinctRe.MatchString(in.sqlText) {
		return nil
	}
	return []model.Finding{{
		Category: model.CategoryGeneral,
		Severity: model.SeverityInfo,
		Message:  "DISTINCT can be costly - check whether the duplicates can be avoided upstream",
	}}
}

func limitFinding(in *ruleInput) []model.Finding {
	if !limitRe.MatchString(in.sqlText) {
		return nil
	}
	return []model.Finding{{
		Category: model.CategoryGeneral,
		Severity: model.SeverityInfo,
		Message:  "LIMIT detected - pairs well with an index on the ORDER BY columns to stop early",
	}}
}
