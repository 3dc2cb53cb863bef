package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pgadvise/pgadvise/internal/model"
)

var (
	costRe   = regexp.MustCompile(`\(cost=(\d+(?:\.\d+)?)\.\.(\d+(?:\.\d+)?)(?:\s+rows=(\d+))?(?:\s+width=(\d+))?\)`)
	actualRe = regexp.MustCompile(`\(actual time=(\d+(?:\.\d+)?)\.\.(\d+(?:\.\d+)?)(?:\s+rows=(\d+))?(?:\s+loops=(\d+))?\)`)
	usingRe  = regexp.MustCompile(`^(.+?) using (\S+) on (\S+)(?: (\w+))?$`)
	onRe     = regexp.MustCompile(`^(.+?) on (\S+)(?: (\w+))?$`)
)

// ParseText builds a plan tree from textual EXPLAIN output. It is total over
// arbitrary strings: anything that does not look like an operator line is
// either attached to the nearest operator as a detail or skipped, and input
// with no operator lines yields a plan with a nil root.
func ParseText(text string) *model.Plan {
	plan := &model.Plan{Raw: text}

	type frame struct {
		indent int
		node   *model.Node
	}
	var stack []frame

	for _, raw := range strings.Split(text, "\n") {
		if strings.TrimSpace(raw) == "" {
			continue
		}

		indent := len(raw) - len(strings.TrimLeft(raw, " \t"))
		line := strings.TrimSpace(raw)

		if !isOperatorLine(line) {
			// Attribute line such as "Filter: ..." or "Sort Method: ...".
			if len(stack) > 0 {
				node := stack[len(stack)-1].node
				node.Details = append(node.Details, line)
			}
			continue
		}

		node := parseOperatorLine(line)
		node.Line = line

		for len(stack) > 0 && stack[len(stack)-1].indent >= indent {
			stack = stack[:len(stack)-1]
		}

		switch {
		case len(stack) > 0:
			parent := stack[len(stack)-1].node
			parent.Children = append(parent.Children, node)
		case plan.Root == nil:
			plan.Root = node
		default:
			// A second top-level operator (InitPlan, CTE) hangs off the root.
			plan.Root.Children = append(plan.Root.Children, node)
		}

		stack = append(stack, frame{indent: indent, node: node})
	}

	return plan
}

func isOperatorLine(line string) bool {
	return strings.Contains(line, "(cost=") || strings.HasPrefix(line, "->")
}

func parseOperatorLine(line string) *model.Node {
	node := &model.Node{}

	head := strings.TrimSpace(strings.TrimPrefix(line, "->"))

	if m := costRe.FindStringSubmatch(head); m != nil {
		node.StartupCost = parseFloat(m[1])
		node.TotalCost = parseFloat(m[2])
		node.PlanRows = parseInt(m[3])
		node.PlanWidth = parseInt(m[4])
	}
	if m := actualRe.FindStringSubmatch(head); m != nil {
		node.ActualTimeMs = parseFloat(m[2])
		node.ActualRows = parseInt(m[3])
		node.ActualLoops = parseInt(m[4])
	}

	if idx := strings.Index(head, "  ("); idx >= 0 {
		head = head[:idx]
	} else if idx := strings.Index(head, " (cost="); idx >= 0 {
		head = head[:idx]
	}
	head = strings.TrimSpace(head)

	if m := usingRe.FindStringSubmatch(head); m != nil {
		node.Operation = m[1]
		node.IndexName = m[2]
		node.RelationName = m[3]
		node.Alias = m[4]
		return node
	}
	if m := onRe.FindStringSubmatch(head); m != nil {
		node.Operation = m[1]
		node.RelationName = m[2]
		node.Alias = m[3]
		return node
	}

	node.Operation = head
	return node
}

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseInt(s string) int64 {
	if s == "" {
		return 0
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return i
}
