package passes

import "github.com/hidet-go/hidet/graph"

// EliminateBarriersPass clears every operator's Barrier flag once the
// fusion passes that needed to respect it have already run (spec.md
// §4.4): barriers exist to stop fusion mid-pipeline, not to survive
// into codegen, where they carry no meaning.
func EliminateBarriersPass(g *graph.FlowGraph, pc *PassContext) (*graph.FlowGraph, error) {
	g = graph.Clone(g)
	for _, op := range g.Nodes {
		op.Barrier = false
	}
	return g, nil
}
