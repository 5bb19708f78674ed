package frontend

import (
	"fmt"

	"github.com/hidet-go/hidet/graph"
	"github.com/hidet-go/hidet/onnxfront"
)

// Import threads a name -> Tensor table through nodes in order, the way
// the original importer's OnnxModule.forward threads name2tensor:
// inputNames/inputs seed the table (in declared order, so the resulting
// FlowGraph.Inputs order is deterministic), each node's inputs are
// looked up by name and its outputs bound back into the table, and
// outputNames selects the final graph.FlowGraph outputs.
func Import(b *onnxfront.Builder, nodes []onnxfront.Node, inputNames []string, inputs map[string]*graph.Tensor, outputNames []string) (*graph.FlowGraph, error) {
	table := make(map[string]*graph.Tensor, len(inputs)+len(nodes))
	inputList := make([]*graph.Tensor, 0, len(inputNames))
	for _, name := range inputNames {
		t, ok := inputs[name]
		if !ok {
			return nil, fmt.Errorf("frontend: declared input %q has no bound Tensor", name)
		}
		table[name] = t
		inputList = append(inputList, t)
	}

	for _, node := range nodes {
		nodeInputs := make([]*graph.Tensor, len(node.Inputs))
		for i, name := range node.Inputs {
			t, ok := table[name]
			if !ok {
				return nil, fmt.Errorf("frontend: node %q (%s) references undefined value %q", node.Name, node.OpType, name)
			}
			nodeInputs[i] = t
		}
		outs, err := b.Build(&node, nodeInputs)
		if err != nil {
			return nil, fmt.Errorf("frontend: building node %q: %w", node.Name, err)
		}
		if len(outs) != len(node.Outputs) {
			return nil, fmt.Errorf("frontend: node %q (%s) declares %d output(s) but its builder produced %d", node.Name, node.OpType, len(node.Outputs), len(outs))
		}
		for i, name := range node.Outputs {
			table[name] = outs[i]
		}
	}

	outputs := make([]*graph.Tensor, len(outputNames))
	for i, name := range outputNames {
		t, ok := table[name]
		if !ok {
			return nil, fmt.Errorf("frontend: requested output %q was never produced", name)
		}
		outputs[i] = t
	}

	return graph.New(inputList, outputs), nil
}
