package graph

// Trace recovers a FlowGraph from a set of symbolic inputs and the
// outputs computed from them: a reverse-reachability walk over each
// output Tensor's producer chain, topologically sorted (spec.md §4.1).
// It is the graph-layer half of the frontend package's tracing API; New
// does the identical work but Trace's signature documents the intended
// call site (a model-building function that returns output Tensors
// after building operators against symbolic inputs).
func Trace(inputs, outputs []*Tensor) *FlowGraph {
	return New(inputs, outputs)
}
