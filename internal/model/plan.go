package model

// Plan represents a parsed textual EXPLAIN document.
type Plan struct {
	Root *Node
	// Raw keeps the original text so rules can fall back to substring checks
	// for anything the parser did not recognise.
	Raw string
}

// Node captures one operator line of a textual plan tree.
type Node struct {
	// Operation is the operator name, e.g. "Seq Scan" or "Nested Loop".
	Operation    string
	RelationName string
	Alias        string
	IndexName    string

	StartupCost float64
	TotalCost   float64
	PlanRows    int64
	PlanWidth   int64

	ActualTimeMs float64
	ActualRows   int64
	ActualLoops  int64

	// Details holds indented attribute lines attached to the operator,
	// e.g. "Sort Method: external merge  Disk: 9200kB".
	Details []string

	Line     string
	Children []*Node
}

// NodeCount returns the number of operator nodes in the plan.
func (p *Plan) NodeCount() int {
	if p == nil || p.Root == nil {
		return 0
	}
	count := 0
	p.Walk(func(*Node) { count++ })
	return count
}

// Walk visits every node depth-first in document order.
func (p *Plan) Walk(fn func(*Node)) {
	if p == nil || p.Root == nil {
		return
	}
	var walk func(*Node)
	walk = func(n *Node) {
		fn(n)
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(p.Root)
}
