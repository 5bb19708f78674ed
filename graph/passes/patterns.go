package passes

import "github.com/hidet-go/hidet/graph"

// PatternRule matches a small fixed operator shape and rewrites it to
// an equivalent, cheaper one (e.g. reshape-of-reshape collapsing to a
// single reshape, add-of-zero elision). Match receives the candidate
// operator and the graph it belongs to (for inspecting producers of its
// inputs); Rewrite returns the replacement output tensors.
type PatternRule struct {
	Name    string
	Match   func(g *graph.FlowGraph, op *graph.Operator) bool
	Rewrite func(g *graph.FlowGraph, op *graph.Operator) []*graph.Tensor
}

var registeredPatterns []PatternRule

// RegisterPattern adds a rule consulted by GraphPatternsPass. Intended
// to be called from operator-defining packages' init functions (spec.md
// §9's "open set of pattern rules" note), mirroring how kernel
// implementations register themselves rather than being hardcoded here.
func RegisterPattern(rule PatternRule) {
	registeredPatterns = append(registeredPatterns, rule)
}

// GraphPatternsPass applies every registered PatternRule to a fixed
// point. It runs before fusion so that fusion sees the graph in its
// simplest equivalent form (spec.md §4.4).
func GraphPatternsPass(g *graph.FlowGraph, pc *PassContext) (*graph.FlowGraph, error) {
	if len(registeredPatterns) == 0 {
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
			for _, rule := range registeredPatterns {
				if !rule.Match(g, op) {
					continue
				}
				replacements := rule.Rewrite(g, op)
				for i, out := range op.Outputs {
					replacements[i].Producer = nil
					replacements[i].OutputIndex = 0
					replaceTensorUses(g, out, replacements[i])
				}
				removeNode(g, op)
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
