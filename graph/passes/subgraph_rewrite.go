package passes

import "github.com/hidet-go/hidet/graph"

// SubgraphMatcher recognizes a multi-operator subgraph rooted at op
// (e.g. the conv-bias-relu triple an inference frontend commonly
// produces as three separate operators) and rewrites it into a single
// fused operator with its own hand-tuned Task, ahead of the generic
// prologue/epilogue fusion passes. Registered the same way as
// PatternRule (spec.md §4.4, §9).
type SubgraphMatcher struct {
	Name    string
	Match   func(g *graph.FlowGraph, op *graph.Operator) []*graph.Operator
	Rewrite func(g *graph.FlowGraph, matched []*graph.Operator) *graph.Operator
}

var registeredSubgraphs []SubgraphMatcher

// RegisterSubgraphRewrite adds a matcher consulted by SubgraphRewritePass.
func RegisterSubgraphRewrite(m SubgraphMatcher) {
	registeredSubgraphs = append(registeredSubgraphs, m)
}

// SubgraphRewritePass applies every registered SubgraphMatcher once per
// fixed-point round. Unlike the generic fusion passes, a subgraph
// rewrite replaces several operators with one hand-authored Task, so it
// is not expressed as a prologue/epilogue of anything.
func SubgraphRewritePass(g *graph.FlowGraph, pc *PassContext) (*graph.FlowGraph, error) {
	if len(registeredSubgraphs) == 0 {
		return g, nil
	}
	g = graph.Clone(g)

	changed := true
	for changed {
		changed = false
		for _, op := range g.Nodes {
			if graph.IsBarrier(op) || pc.ShouldSkip(op) {
				continue
			}
			for _, m := range registeredSubgraphs {
				matched := m.Match(g, op)
				if matched == nil {
					continue
				}
				fused := m.Rewrite(g, matched)
				for _, old := range matched {
					removeNode(g, old)
				}
				g.Nodes = append(g.Nodes, fused)
				changed = true
				break
			}
			if changed {
				break
			}
		}
		if changed {
			g.UpdateNodes()
		}
	}
	return g, nil
}
