package graph

import (
	"github.com/hidet-go/hidet/herrors"
	"github.com/hidet-go/hidet/task"
)

// Operator is a node in the FlowGraph: ordered input/output Tensors, an
// attribute bag, and the Task describing its semantics. Invariant
// (spec.md §3): task.Parameters is exactly len(Inputs)+len(Outputs)
// TensorNodes in that order, and each output Tensor's Producer is this
// Operator.
type Operator struct {
	Name    string
	OpType  string
	Inputs  []*Tensor
	Outputs []*Tensor
	Attrs   map[string]any
	Task    *task.Task
	// Barrier opts this operator out of fusion (spec.md glossary:
	// "Barrier").
	Barrier bool
}

// NewOperator builds an Operator, wiring each output Tensor's Producer
// back-reference and OutputIndex, and validating the Task's parameter
// arity against len(inputs)+len(outputs).
func NewOperator(name, opType string, inputs, outputs []*Tensor, attrs map[string]any, t *task.Task) (*Operator, error) {
	if attrs == nil {
		attrs = map[string]any{}
	}
	op := &Operator{
		Name:    name,
		OpType:  opType,
		Inputs:  inputs,
		Outputs: outputs,
		Attrs:   attrs,
		Task:    t,
	}
	if err := t.Validate(len(inputs), len(outputs)); err != nil {
		return nil, herrors.New(herrors.KindValidation, "graph.NewOperator", err)
	}
	for i, out := range outputs {
		out.Producer = op
		out.OutputIndex = i
	}
	return op, nil
}
