// Package advisor maps raw EXPLAIN text (and optionally the originating SQL)
// to an ordered list of heuristic performance findings. Analysis is pure,
// deterministic and total: any string input yields a finite report.
package advisor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pgadvise/pgadvise/internal/config"
	"github.com/pgadvise/pgadvise/internal/model"
	"github.com/pgadvise/pgadvise/internal/parser"
)

// ruleInput carries everything a rule may look at. Rules never mutate it.
type ruleInput struct {
	planText  string
	planLower string
	sqlText   string
	plan      *model.Plan
	cfg       config.AdvisorConfig
}

type rule func(in *ruleInput) []model.Finding

// Rules run unconditionally and independently, in declaration order. One rule
// matching never suppresses another.
var planRules = []rule{
	seqScanFindings,
	indexScanFinding,
	indexOnlyScanFinding,
	bitmapHeapScanFinding,
	nestedLoopFindings,
	hashJoinFindings,
	mergeJoinFinding,
	sortFindings,
	materializeFinding,
	rowsRemovedFindings,
	parallelFinding,
}

var sqlRules = []rule{
	missingIndexFindings,
	selectStarFinding,
	joinFindings,
	groupByFinding,
	orderByFinding,
	distinctFinding,
	limitFinding,
}

// Analyze applies the rule set to the provided plan text and optional SQL
// statement. Blank plan text skips the plan rules, blank SQL skips the SQL
// rules, so empty input produces an empty report rather than noise.
func Analyze(planText, sqlText string) *model.Report {
	in := &ruleInput{
		planText:  planText,
		planLower: strings.ToLower(planText),
		sqlText:   sqlText,
		plan:      parser.ParseText(planText),
		cfg:       config.Active().Advisor,
	}

	report := &model.Report{NodeCount: in.plan.NodeCount()}

	if strings.TrimSpace(planText) != "" {
		for _, r := range planRules {
			report.Findings = append(report.Findings, r(in)...)
		}
	}
	if strings.TrimSpace(sqlText) != "" {
		for _, r := range sqlRules {
			report.Findings = append(report.Findings, r(in)...)
		}
	}

	return report
}

var (
	seqScanRe     = regexp.MustCompile(`(?i)\bseq scan on (\w+)`)
	rowsRe        = regexp.MustCompile(`\brows=(\d+)`)
	bucketsRe     = regexp.MustCompile(`(?i)\bbuckets[:=]\s*(\d+)`)
	rowsRemovedRe = regexp.MustCompile(`(?i)rows removed by filter: (\d+)`)
)

func seqScanFindings(in *ruleInput) []model.Finding {
	if !strings.Contains(in.planLower, "seq scan") {
		return nil
	}

	var tables []string
	seen := map[string]bool{}
	for _, m := range seqScanRe.FindAllStringSubmatch(in.planText, -1) {
		table := m[1]
		if !seen[table] {
			seen[table] = true
			tables = append(tables, table)
		}
	}

	if len(tables) == 0 {
		return []model.Finding{{
			Category: model.CategoryScanWarning,
			Severity: model.SeverityWarning,
			Message:  "Sequential scan detected - consider adding an index to avoid reading the whole table",
		}}
	}

	out := make([]model.Finding, 0, len(tables))
	for _, table := range tables {
		out = append(out, model.Finding{
			Category: model.CategoryScanWarning,
			Severity: model.SeverityWarning,
			Message:  fmt.Sprintf("Sequential scan on %q - consider adding an index to avoid reading every row", table),
			Details: []string{
				"Sequential scans read the entire table, which is inefficient for large datasets",
				"They are fine when most of the table is needed or the table is small",
			},
			Suggestion: fmt.Sprintf("CREATE INDEX idx_%s_column ON %s (column_name);", table, table),
		})
	}
	return out
}

func indexScanFinding(in *ruleInput) []model.Finding {
	if !strings.Contains(in.planText, "Index Scan") {
		return nil
	}
	return []model.Finding{{
		Category: model.CategoryGeneral,
		Severity: model.SeverityInfo,
		Message:  "Index Scan detected - generally efficient",
		Details: []string{
			"Ensure the index is selective enough to avoid scanning too many rows",
			"Check index usage statistics to confirm it is being used effectively",
		},
	}}
}

func indexOnlyScanFinding(in *ruleInput) []model.Finding {
	if !strings.Contains(in.planText, "Index Only Scan") {
		return nil
	}
	return []model.Finding{{
		Category: model.CategoryGeneral,
		Severity: model.SeverityInfo,
		Message:  "Index Only Scan detected - optimal, the heap is not touched",
		Details: []string{
			"Keep the index covering all columns the query needs",
			"Run ANALYZE regularly so the visibility map stays effective",
		},
	}}
}

func bitmapHeapScanFinding(in *ruleInput) []model.Finding {
	if !strings.Contains(in.planText, "Bitmap Heap Scan") {
		return nil
	}
	return []model.Finding{{
		Category: model.CategoryGeneral,
		Severity: model.SeverityInfo,
		Message:  "Bitmap Heap Scan detected - better than a sequential scan, but worth a look",
		Details: []string{
			"A covering index could enable an Index Only Scan instead",
			"Review whether the query can use a plain Index Scan",
		},
	}}
}

func nestedLoopFindings(in *ruleInput) []model.Finding {
	count := strings.Count(in.planText, "Nested Loop")
	if count == 0 {
		return nil
	}

	var out []model.Finding

	maxRows := maxMatchedInt(rowsRe, in.planText)
	if maxRows > in.cfg.NestedLoopRowThreshold {
		severity := model.SeverityWarning
		if maxRows >= in.cfg.NestedLoopRowThreshold*10 {
			severity = model.SeverityCritical
		}
		out = append(out, model.Finding{
			Category: model.CategoryJoinWarning,
			Severity: severity,
			Message:  fmt.Sprintf("Nested loop join over roughly %d rows - a hash or merge join is usually cheaper at this size", maxRows),
			Details: []string{
				"Ensure the join keys are indexed so the planner can pick a better strategy",
				"If row estimates look wrong, run ANALYZE on the involved tables",
			},
		})
	}

	if count > in.cfg.NestedLoopCountThreshold {
		out = append(out, model.Finding{
			Category: model.CategoryJoinWarning,
			Severity: model.SeverityWarning,
			Message:  fmt.Sprintf("%d nested loops detected - deeply nested joins are hard to optimize", count),
			Details: []string{
				"Use JOIN clauses instead of correlated subqueries where possible",
				"Ensure join columns are indexed",
				"Consider rewriting the query to reduce nesting",
			},
		})
	}

	return out
}

func hashJoinFindings(in *ruleInput) []model.Finding {
	if !strings.Contains(in.planText, "Hash Join") {
		return nil
	}
	maxBuckets := maxMatchedInt(bucketsRe, in.planText)
	if maxBuckets <= in.cfg.HashBucketThreshold {
		return nil
	}
	return []model.Finding{{
		Category: model.CategoryJoinWarning,
		Severity: model.SeverityWarning,
		Message:  fmt.Sprintf("Large hash join (%d buckets) - the hash table may spill to disk", maxBuckets),
		Details: []string{
			"Increase work_mem so the hash fits in a single batch",
			"Review the join conditions to shrink the hashed input",
		},
	}}
}

func mergeJoinFinding(in *ruleInput) []model.Finding {
	if !strings.Contains(in.planText, "Merge Join") {
		return nil
	}
	return []model.Finding{{
		Category: model.CategoryGeneral,
		Severity: model.SeverityInfo,
		Message:  "Merge Join detected - efficient when both inputs are already sorted",
		Details: []string{
			"Check that the inputs arrive sorted, otherwise extra Sort nodes appear above the join",
		},
	}}
}

func sortFindings(in *ruleInput) []model.Finding {
	if strings.Contains(in.planLower, "sort method: external") {
		return []model.Finding{{
			Category: model.CategoryGeneral,
			Severity: model.SeverityWarning,
			Message:  "Sort spilled to disk - consider increasing work_mem",
			Details: []string{
				"An external sort writes temporary files and is much slower than an in-memory quicksort",
				"An index matching the sort order would avoid the sort entirely",
			},
		}}
	}
	if strings.Contains(in.planLower, "sort key:") {
		return []model.Finding{{
			Category: model.CategoryGeneral,
			Severity: model.SeverityInfo,
			Message:  "Sort operation detected",
			Details: []string{
				"An index matching the sort order avoids sorting at execution time",
			},
		}}
	}
	return nil
}

func materializeFinding(in *ruleInput) []model.Finding {
	if !strings.Contains(in.planText, "Materialize") {
		return nil
	}
	return []model.Finding{{
		Category: model.CategoryGeneral,
		Severity: model.SeverityInfo,
		Message:  "Materialize node detected",
		Details: []string{
			"Review subqueries that force materialization - they can often be simplified",
			"Increasing work_mem lets larger intermediate results stay in memory",
		},
	}}
}

func rowsRemovedFindings(in *ruleInput) []model.Finding {
	maxRemoved := maxMatchedInt(rowsRemovedRe, in.planText)
	if maxRemoved <= in.cfg.FilterRemovedThreshold {
		return nil
	}
	severity := model.SeverityWarning
	if maxRemoved >= in.cfg.FilterRemovedThreshold*10 {
		severity = model.SeverityCritical
	}
	return []model.Finding{{
		Category: model.CategoryScanWarning,
		Severity: severity,
		Message:  fmt.Sprintf("Filter discarded %d rows after they were read - the access path is not selective", maxRemoved),
		Details: []string{
			"An index supporting the filter condition would avoid reading discarded rows",
			"Update statistics so the planner can pick a more selective path",
		},
	}}
}

func parallelFinding(in *ruleInput) []model.Finding {
	if strings.Contains(in.planText, "Parallel") || strings.Contains(in.planText, "Workers") {
		return nil
	}
	return []model.Finding{{
		Category: model.CategoryGeneral,
		Severity: model.SeverityInfo,
		Message:  "No parallel operations in this plan",
		Details: []string{
			"Large scans and aggregates may benefit from raising max_parallel_workers_per_gather",
			"Small tables will not be parallelized regardless of settings",
		},
	}}
}

func maxMatchedInt(re *regexp.Regexp, text string) int64 {
	var max int64
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		if v > max {
			max = v
		}
	}
	return max
}
