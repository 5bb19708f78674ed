package onnxfront

import (
	"fmt"

	"github.com/hidet-go/hidet/graph"
)

// OperatorBuilder constructs the FlowGraph operator(s) a Node
// describes given its already-resolved input Tensors, returning the
// Tensors corresponding to node.Outputs in order.
type OperatorBuilder func(node *Node, inputs []*graph.Tensor) ([]*graph.Tensor, error)

// Builder dispatches a Node to the OperatorBuilder registered for its
// OpType, the Go shape of the original importer's per-opset dispatch
// table. OpsetVersion is carried for builders that branch on it (the
// original importer dispatches `run_v{opset}`); the builtin builders in
// package frontend do not currently branch on it.
type Builder struct {
	OpsetVersion int
	builders     map[string]OperatorBuilder
}

// NewBuilder returns an empty Builder for the given opset.
func NewBuilder(opsetVersion int) *Builder {
	return &Builder{OpsetVersion: opsetVersion, builders: map[string]OperatorBuilder{}}
}

// Register adds or replaces the OperatorBuilder for opType.
func (b *Builder) Register(opType string, fn OperatorBuilder) {
	b.builders[opType] = fn
}

// Build dispatches node to its registered OperatorBuilder.
func (b *Builder) Build(node *Node, inputs []*graph.Tensor) ([]*graph.Tensor, error) {
	fn, ok := b.builders[node.OpType]
	if !ok {
		return nil, fmt.Errorf("onnxfront: operator %q (opset %d) has no registered builder", node.OpType, b.OpsetVersion)
	}
	return fn(node, inputs)
}
