package parser_test

import (
	"testing"

	"github.com/pgadvise/pgadvise/internal/parser"
	"github.com/pgadvise/pgadvise/test"
)

func TestParseNestedLoopSample(t *testing.T) {
	plan := parser.ParseText(test.LoadSamplePlan(t, "nested_loop.txt"))

	if plan.Root == nil {
		t.Fatalf("expected a root node")
	}
	if plan.Root.Operation != "Nested Loop" {
		t.Fatalf("expected Nested Loop root, got %q", plan.Root.Operation)
	}
	if len(plan.Root.Children) != 2 {
		t.Fatalf("expected two children, got %d", len(plan.Root.Children))
	}

	seq := plan.Root.Children[0]
	if seq.Operation != "Seq Scan" || seq.RelationName != "orders" || seq.Alias != "o" {
		t.Fatalf("unexpected first child: %+v", seq)
	}
	if seq.TotalCost != 3724.00 {
		t.Fatalf("expected total cost 3724.00, got %v", seq.TotalCost)
	}
	if seq.PlanRows != 5210 {
		t.Fatalf("expected 5210 plan rows, got %d", seq.PlanRows)
	}
	if seq.ActualRows != 5210 {
		t.Fatalf("expected 5210 actual rows, got %d", seq.ActualRows)
	}

	idx := plan.Root.Children[1]
	if idx.Operation != "Index Only Scan" {
		t.Fatalf("expected Index Only Scan, got %q", idx.Operation)
	}
	if idx.IndexName != "customers_pkey" || idx.RelationName != "customers" || idx.Alias != "c" {
		t.Fatalf("unexpected index child: %+v", idx)
	}
	if idx.ActualLoops != 5210 {
		t.Fatalf("expected 5210 loops, got %d", idx.ActualLoops)
	}
	if len(idx.Details) == 0 {
		t.Fatalf("expected Index Cond detail to be attached")
	}

	if got := plan.NodeCount(); got != 3 {
		t.Fatalf("expected 3 nodes, got %d", got)
	}
}

func TestParseDetailLines(t *testing.T) {
	plan := parser.ParseText(test.LoadSamplePlan(t, "seq_scan.txt"))
	if plan.Root == nil {
		t.Fatalf("expected a root node")
	}
	if plan.Root.RelationName != "orders" {
		t.Fatalf("expected orders relation, got %q", plan.Root.RelationName)
	}

	var hasFilter, hasRemoved bool
	for _, d := range plan.Root.Details {
		switch {
		case d == "Filter: (customer_id = 5)":
			hasFilter = true
		case d == "Rows Removed by Filter: 197685":
			hasRemoved = true
		}
	}
	if !hasFilter || !hasRemoved {
		t.Fatalf("expected filter details attached to root, got %v", plan.Root.Details)
	}
}

func TestParseArbitraryText(t *testing.T) {
	for _, in := range []string{
		"",
		"   \n\n\t",
		"this is not a plan",
		"rows=abc cost=nope",
	} {
		plan := parser.ParseText(in)
		if plan == nil {
			t.Fatalf("expected a plan for input %q", in)
		}
		if plan.NodeCount() != 0 {
			t.Fatalf("expected no nodes for input %q, got %d", in, plan.NodeCount())
		}
	}
}

func TestParseSingleLinePlan(t *testing.T) {
	plan := parser.ParseText("Seq Scan on orders (cost=0.00..100.00 rows=500)")
	if plan.Root == nil {
		t.Fatalf("expected a root node")
	}
	if plan.Root.Operation != "Seq Scan" || plan.Root.RelationName != "orders" {
		t.Fatalf("unexpected root: %+v", plan.Root)
	}
	if plan.Root.PlanRows != 500 {
		t.Fatalf("expected 500 plan rows, got %d", plan.Root.PlanRows)
	}
}
