package graph

// Clone deep-copies g's Tensor/Operator structure (Task objects are
// copied via task.Task.Copy by the caller when a pass actually mutates
// one; Clone itself only needs fresh Tensor/Operator identities so that
// passes doing in-place graph surgery — e.g. fuse_prologue's `op.Task =
// task` — never mutate the caller's original graph). Constant storage
// is shared, not copied, since it is immutable after tracing.
func Clone(g *FlowGraph) *FlowGraph {
	tensors := map[*Tensor]*Tensor{}
	ops := map[*Operator]*Operator{}

	var cloneTensor func(t *Tensor) *Tensor
	var cloneOp func(op *Operator) *Operator

	cloneTensor = func(t *Tensor) *Tensor {
		if t == nil {
			return nil
		}
		if c, ok := tensors[t]; ok {
			return c
		}
		c := &Tensor{
			Scalar:      t.Scalar,
			Shape:       append([]int(nil), t.Shape...),
			Device:      t.Device,
			OutputIndex: t.OutputIndex,
			Storage:     t.Storage,
		}
		tensors[t] = c
		if t.Producer != nil {
			c.Producer = cloneOp(t.Producer)
		}
		return c
	}

	cloneOp = func(op *Operator) *Operator {
		if op == nil {
			return nil
		}
		if c, ok := ops[op]; ok {
			return c
		}
		c := &Operator{
			Name:    op.Name,
			OpType:  op.OpType,
			Attrs:   op.Attrs,
			Task:    op.Task,
			Barrier: op.Barrier,
		}
		ops[op] = c
		c.Inputs = make([]*Tensor, len(op.Inputs))
		for i, in := range op.Inputs {
			c.Inputs[i] = cloneTensor(in)
		}
		c.Outputs = make([]*Tensor, len(op.Outputs))
		for i, out := range op.Outputs {
			co := cloneTensor(out)
			co.Producer = c
			co.OutputIndex = i
			c.Outputs[i] = co
		}
		return c
	}

	newOutputs := make([]*Tensor, len(g.Outputs))
	for i, out := range g.Outputs {
		newOutputs[i] = cloneTensor(out)
	}
	newInputs := make([]*Tensor, len(g.Inputs))
	for i, in := range g.Inputs {
		if c, ok := tensors[in]; ok {
			newInputs[i] = c
		} else {
			newInputs[i] = cloneTensor(in)
		}
	}

	clone := &FlowGraph{Inputs: newInputs, Outputs: newOutputs}
	clone.UpdateNodes()
	return clone
}
