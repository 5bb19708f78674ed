package passes

import "github.com/hidet-go/hidet/graph"

// Pass is a pure function FlowGraph -> FlowGraph (spec.md §4.4).
type Pass func(g *graph.FlowGraph, pc *PassContext) (*graph.FlowGraph, error)

// Pipeline composes passes in the given fixed order, threading the
// PassContext through all of them.
func Pipeline(passList ...Pass) Pass {
	return func(g *graph.FlowGraph, pc *PassContext) (*graph.FlowGraph, error) {
		var err error
		for _, p := range passList {
			g, err = p(g, pc)
			if err != nil {
				return nil, err
			}
		}
		return g, nil
	}
}

// DefaultPipeline is the fixed pass order spec.md §2/§4.4 describes:
// pattern-directed and subgraph rewrites and constant folding first
// (they can only improve fusion opportunities), then variant
// resolution, then the fixed-point fusion passes, then barrier
// elimination once no further fusion pass will consult it.
func DefaultPipeline() Pass {
	return Pipeline(
		FoldConstPass,
		GraphPatternsPass,
		SubgraphRewritePass,
		ResolveVariantPass,
		FuseProloguePass,
		FuseEpiloguePass,
		EliminateBarriersPass,
	)
}
