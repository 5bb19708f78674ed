package passes

import (
	"github.com/hidet-go/hidet/graph"
)

// FoldConstPass replaces an operator whose every input is a constant
// tensor with a single precomputed constant output, provided the
// operator carries a folder (spec.md §4.4: constant folding only
// applies at trace depth, before any fusion has a chance to obscure the
// original per-operator semantics). Operators without a registered
// folder are left untouched; this pass never attempts to interpret an
// arbitrary Task's compute expression itself.
func FoldConstPass(g *graph.FlowGraph, pc *PassContext) (*graph.FlowGraph, error) {
	g = graph.Clone(g)

	changed := true
	for changed {
		changed = false
		for _, op := range g.Nodes {
			if graph.IsBarrier(op) || pc.ShouldSkip(op) {
				continue
			}
			folder, ok := op.Attrs["__fold_const__"].(func([]*graph.Tensor) ([]*graph.Tensor, bool))
			if !ok || !allConstant(op.Inputs) {
				continue
			}
			folded, ok := folder(op.Inputs)
			if !ok {
				continue
			}
			for i, out := range op.Outputs {
				folded[i].Producer = nil
				folded[i].OutputIndex = 0
				replaceTensorUses(g, out, folded[i])
			}
			removeNode(g, op)
			changed = true
			break
		}
		if changed {
			g.UpdateNodes()
		}
	}
	return g, nil
}

func allConstant(ts []*graph.Tensor) bool {
	for _, t := range ts {
		if !t.IsConstant() {
			return false
		}
	}
	return true
}

// replaceTensorUses rewrites every operator input (and graph output)
// pointing at old to point at replacement instead.
func replaceTensorUses(g *graph.FlowGraph, old, replacement *graph.Tensor) {
	for _, op := range g.Nodes {
		for i, in := range op.Inputs {
			if in == old {
				op.Inputs[i] = replacement
			}
		}
	}
	for i, out := range g.Outputs {
		if out == old {
			g.Outputs[i] = replacement
		}
	}
}
