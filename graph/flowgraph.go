package graph

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/hidet-go/hidet/herrors"
)

// FlowGraph owns the declared graph inputs/outputs and a topologically
// ordered sequence of Operators covering exactly the producers
// reachable from Outputs (spec.md §3).
type FlowGraph struct {
	Inputs  []*Tensor
	Outputs []*Tensor
	Nodes   []*Operator
}

// New builds a FlowGraph from declared inputs/outputs and immediately
// computes Nodes via UpdateNodes.
func New(inputs, outputs []*Tensor) *FlowGraph {
	g := &FlowGraph{Inputs: inputs, Outputs: outputs}
	g.UpdateNodes()
	return g
}

// UpdateNodes recomputes Nodes as the reverse-postorder of producers
// reachable from g.Outputs (spec.md §4.1). The traversal order is
// deterministic: operators are visited depth-first in input order, so
// re-running UpdateNodes on an unchanged graph yields an identical
// node list (spec.md §8 "re-running node-update yields the same node
// list").
func (g *FlowGraph) UpdateNodes() {
	visited := make(map[*Operator]bool)
	var order []*Operator

	var visit func(op *Operator)
	visit = func(op *Operator) {
		if op == nil || visited[op] {
			return
		}
		visited[op] = true
		for _, in := range op.Inputs {
			visit(in.Producer)
		}
		order = append(order, op)
	}

	for _, out := range g.Outputs {
		visit(out.Producer)
	}
	g.Nodes = order
}

// Use is one (consumer Operator, input position) occurrence of a
// Tensor, or a virtual use standing for a graph output.
type Use struct {
	Consumer  *Operator // nil for a graph-output virtual use
	InputPos  int
	OutputPos int // valid when Consumer == nil: position in FlowGraph.Outputs
}

// AnalyzeUsage returns, for every Tensor reachable in g, its list of
// uses: one entry per (consumer, input position) that reads it, plus
// one virtual use per graph output it appears as (spec.md §4.1).
func AnalyzeUsage(g *FlowGraph) map[*Tensor][]Use {
	usage := make(map[*Tensor][]Use)
	for _, op := range g.Nodes {
		for i, in := range op.Inputs {
			usage[in] = append(usage[in], Use{Consumer: op, InputPos: i})
		}
	}
	for i, out := range g.Outputs {
		usage[out] = append(usage[out], Use{Consumer: nil, OutputPos: i})
	}
	return usage
}

// Validate checks the FlowGraph invariants from spec.md §3: acyclicity
// (implied by UpdateNodes's DFS, checked explicitly here so a caller
// gets a clear error instead of infinite recursion), every
// non-constant/non-input Tensor referenced has its producer present in
// Nodes, and every intermediate Tensor has at least one use.
func (g *FlowGraph) Validate() error {
	inNodes := make(map[*Operator]bool, len(g.Nodes))
	for _, op := range g.Nodes {
		inNodes[op] = true
	}
	if err := checkAcyclic(g.Nodes); err != nil {
		return herrors.New(herrors.KindValidation, "graph.Validate", err)
	}
	for _, op := range g.Nodes {
		for _, in := range op.Inputs {
			if in.IsIntermediate() && !inNodes[in.Producer] {
				return herrors.New(herrors.KindValidation, "graph.Validate",
					errors.Errorf("tensor produced by %q is referenced but its producer is not in Nodes", in.Producer.Name))
			}
		}
	}
	usage := AnalyzeUsage(g)
	for _, op := range g.Nodes {
		for _, out := range op.Outputs {
			if len(usage[out]) == 0 {
				return herrors.New(herrors.KindValidation, "graph.Validate",
					errors.Errorf("intermediate tensor produced by %q (output) has no uses", op.Name))
			}
		}
	}
	return nil
}

func checkAcyclic(nodes []*Operator) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[*Operator]int, len(nodes))
	var visit func(op *Operator) error
	visit = func(op *Operator) error {
		if op == nil {
			return nil
		}
		switch color[op] {
		case black:
			return nil
		case gray:
			return fmt.Errorf("flowgraph: cycle detected at operator %q", op.Name)
		}
		color[op] = gray
		for _, in := range op.Inputs {
			if err := visit(in.Producer); err != nil {
				return err
			}
		}
		color[op] = black
		return nil
	}
	for _, op := range nodes {
		if err := visit(op); err != nil {
			return err
		}
	}
	return nil
}
