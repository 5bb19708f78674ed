package passes

import (
	"fmt"

	"github.com/hidet-go/hidet/graph"
	"github.com/hidet-go/hidet/task"
)

// variantKey matches how an operator tags its precomputed alternative
// Tasks: one per (Precision, MMAKind) combination it supports. An
// operator that only ever has one Task (the common case) carries no
// "__variants__" attribute and is left untouched.
func variantKey(p Precision, m MMAKind) string {
	return fmt.Sprintf("%d:%d", p, m)
}

// ResolveVariantPass picks the Task variant matching the PassContext's
// Precision and MMA selection, replacing op.Task in place (spec.md §6:
// precision/mma are schedule-space choices resolved once up front,
// before fusion runs, so every later pass sees one concrete Task per
// operator).
func ResolveVariantPass(g *graph.FlowGraph, pc *PassContext) (*graph.FlowGraph, error) {
	g = graph.Clone(g)
	for _, op := range g.Nodes {
		variants, ok := op.Attrs["__variants__"].(map[string]*task.Task)
		if !ok {
			continue
		}
		if t, ok := variants[variantKey(pc.Precision, pc.MMA)]; ok {
			op.Task = t
			continue
		}
		if t, ok := variants[variantKey(pc.Precision, MMASimt)]; ok {
			op.Task = t
		}
	}
	return g, nil
}
