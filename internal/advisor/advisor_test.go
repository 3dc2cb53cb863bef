package advisor_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/pgadvise/pgadvise/internal/advisor"
	"github.com/pgadvise/pgadvise/internal/config"
	"github.com/pgadvise/pgadvise/internal/model"
	"github.com/pgadvise/pgadvise/test"
)

func TestAnalyzeEmptyInput(t *testing.T) {
	report := advisor.Analyze("", "")
	if !report.Empty() {
		t.Fatalf("expected empty report, got %d findings", len(report.Findings))
	}
}

func TestAnalyzeArbitraryText(t *testing.T) {
	inputs := []string{
		"   \n\t\n",
		"not a plan at all",
		"cost=..rows=width=(((",
		strings.Repeat("x", 1<<20),
		string([]byte{0x00, 0xff, 0xfe, 0x01}),
	}
	for i, in := range inputs {
		report := advisor.Analyze(in, "")
		if report == nil {
			t.Fatalf("expected a report for input #%d (len %d)", i, len(in))
		}
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	plan := test.LoadSamplePlan(t, "nested_loop.txt")
	sql := "SELECT * FROM orders o JOIN customers c ON c.id = o.customer_id WHERE o.status = 'open'"

	first := advisor.Analyze(plan, sql)
	second := advisor.Analyze(plan, sql)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical reports for identical input")
	}
	if first.Empty() {
		t.Fatalf("expected findings for nested loop sample")
	}
}

func TestSeqScanEmitsSingleScanWarning(t *testing.T) {
	report := advisor.Analyze("Seq Scan on orders (cost=0.00..100.00 rows=500)", "")
	if got := report.CountByCategory(model.CategoryScanWarning); got != 1 {
		t.Fatalf("expected exactly one scan warning, got %d", got)
	}
	warning := findByCategory(report, model.CategoryScanWarning)
	if !strings.Contains(warning.Message, "orders") {
		t.Fatalf("expected scan warning to name the table, got %q", warning.Message)
	}
	if !strings.Contains(warning.Suggestion, "CREATE INDEX") {
		t.Fatalf("expected a suggested index statement, got %q", warning.Suggestion)
	}
}

func TestIndexScanHasNoScanWarning(t *testing.T) {
	report := advisor.Analyze("Index Scan using orders_pkey on orders", "")
	if got := report.CountByCategory(model.CategoryScanWarning); got != 0 {
		t.Fatalf("expected no scan warnings for an index scan, got %d", got)
	}
}

func TestNestedLoopRowThreshold(t *testing.T) {
	report := advisor.Analyze("Nested Loop (cost=...) rows=5000", "")
	if got := report.CountByCategory(model.CategoryJoinWarning); got == 0 {
		t.Fatalf("expected a join warning for a nested loop over 5000 rows")
	}

	report = advisor.Analyze("Nested Loop (cost=...) rows=50", "")
	if got := report.CountByCategory(model.CategoryJoinWarning); got != 0 {
		t.Fatalf("expected no join warning below the row threshold, got %d", got)
	}
}

func TestNestedLoopCount(t *testing.T) {
	plan := strings.Repeat("Nested Loop (cost=0.00..1.00 rows=10)\n", 3)
	report := advisor.Analyze(plan, "")
	found := false
	for _, f := range report.Findings {
		if f.Category == model.CategoryJoinWarning && strings.Contains(f.Message, "nested loops") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a warning about deeply nested loops")
	}
}

func TestMissingIndexSuggestion(t *testing.T) {
	report := advisor.Analyze(
		"Seq Scan on orders (cost=0.00..100.00 rows=500)",
		"SELECT * FROM orders WHERE customer_id = 5",
	)
	suggestion := findByCategory(report, model.CategoryIndexSuggestion)
	if suggestion == nil {
		t.Fatalf("expected an index suggestion for customer_id")
	}
	if !strings.Contains(suggestion.Message, "customer_id") {
		t.Fatalf("expected the suggestion to name customer_id, got %q", suggestion.Message)
	}
	if !strings.Contains(suggestion.Suggestion, "idx_orders_customer_id") {
		t.Fatalf("expected a concrete index statement, got %q", suggestion.Suggestion)
	}
}

func TestIndexedColumnSuppressesSuggestion(t *testing.T) {
	plan := test.LoadSamplePlan(t, "index_scan.txt")
	report := advisor.Analyze(plan, "SELECT * FROM orders WHERE customer_id = 5")
	if got := report.CountByCategory(model.CategoryIndexSuggestion); got != 0 {
		t.Fatalf("expected no index suggestion when the plan already uses one, got %d", got)
	}
}

func TestExternalSortSuggestsWorkMem(t *testing.T) {
	report := test.LoadSampleReport(t, "external_sort.txt")
	found := false
	for _, f := range report.Findings {
		if f.Category == model.CategoryGeneral && strings.Contains(f.Message, "work_mem") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a work_mem finding for an external sort")
	}
}

func TestRowsRemovedByFilter(t *testing.T) {
	report := test.LoadSampleReport(t, "seq_scan.txt")
	// Sample discards 197685 rows, well past ten times the default cutoff.
	found := false
	for _, f := range report.Findings {
		if f.Category == model.CategoryScanWarning && f.Severity == model.SeverityCritical {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a critical scan warning for rows removed by filter")
	}
}

func TestThresholdsComeFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Advisor.NestedLoopRowThreshold = 10000
	config.Use(cfg)
	t.Cleanup(func() { config.Use(config.Default()) })

	report := advisor.Analyze("Nested Loop (cost=...) rows=5000", "")
	if got := report.CountByCategory(model.CategoryJoinWarning); got != 0 {
		t.Fatalf("expected the raised threshold to suppress the join warning, got %d", got)
	}
}

func TestSQLOnlyRules(t *testing.T) {
	report := advisor.Analyze("", "SELECT DISTINCT * FROM orders o JOIN customers c GROUP BY o.id ORDER BY o.id LIMIT 10")

	var messages []string
	for _, f := range report.Findings {
		messages = append(messages, f.Message)
	}
	joined := strings.Join(messages, "\n")

	for _, want := range []string{"SELECT *", "Cartesian", "GROUP BY", "ORDER BY", "DISTINCT", "LIMIT"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected a finding mentioning %q, got:\n%s", want, joined)
		}
	}
}

func findByCategory(r *model.Report, c model.Category) *model.Finding {
	for i := range r.Findings {
		if r.Findings[i].Category == c {
			return &r.Findings[i]
		}
	}
	return nil
}
