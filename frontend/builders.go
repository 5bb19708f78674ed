package frontend

import (
	"fmt"

	"github.com/hidet-go/hidet/graph"
	"github.com/hidet-go/hidet/onnxfront"
)

// RegisterBuiltins wires the constructors in ops.go into b under the
// op-type names the original importer's dispatch table uses (Add, Mul,
// Relu, MatMul, Gemm), covering the four operator families this module
// implements end to end. Unregistered op types still surface through
// onnxfront.Builder.Build's error rather than silently no-op'ing.
func RegisterBuiltins(b *onnxfront.Builder) {
	b.Register("Add", buildAdd)
	b.Register("Mul", buildMul)
	b.Register("Relu", buildRelu)
	b.Register("MatMul", buildMatMul)
	b.Register("Gemm", buildGemm)
}

func requireInputs(node *onnxfront.Node, n int) error {
	if len(node.Inputs) < n {
		return fmt.Errorf("frontend: %s node %q requires %d input(s), got %d", node.OpType, node.Name, n, len(node.Inputs))
	}
	return nil
}

func buildAdd(node *onnxfront.Node, inputs []*graph.Tensor) ([]*graph.Tensor, error) {
	if err := requireInputs(node, 2); err != nil {
		return nil, err
	}
	out, err := Add(inputs[0], inputs[1])
	if err != nil {
		return nil, err
	}
	return []*graph.Tensor{out}, nil
}

func buildMul(node *onnxfront.Node, inputs []*graph.Tensor) ([]*graph.Tensor, error) {
	if err := requireInputs(node, 2); err != nil {
		return nil, err
	}
	out, err := Mul(inputs[0], inputs[1])
	if err != nil {
		return nil, err
	}
	return []*graph.Tensor{out}, nil
}

func buildRelu(node *onnxfront.Node, inputs []*graph.Tensor) ([]*graph.Tensor, error) {
	if err := requireInputs(node, 1); err != nil {
		return nil, err
	}
	out, err := Relu(inputs[0])
	if err != nil {
		return nil, err
	}
	return []*graph.Tensor{out}, nil
}

func buildMatMul(node *onnxfront.Node, inputs []*graph.Tensor) ([]*graph.Tensor, error) {
	if err := requireInputs(node, 2); err != nil {
		return nil, err
	}
	out, err := MatMul(inputs[0], inputs[1])
	if err != nil {
		return nil, err
	}
	return []*graph.Tensor{out}, nil
}

func buildGemm(node *onnxfront.Node, inputs []*graph.Tensor) ([]*graph.Tensor, error) {
	if err := requireInputs(node, 2); err != nil {
		return nil, err
	}
	var attrs GemmAttrs
	attrs.Alpha, attrs.Beta = 1.0, 1.0
	if err := onnxfront.Decode(node.Attrs, &attrs); err != nil {
		return nil, fmt.Errorf("frontend: gemm node %q: %w", node.Name, err)
	}
	var c *graph.Tensor
	if len(inputs) >= 3 {
		c = inputs[2]
	}
	out, err := Gemm(inputs[0], inputs[1], c, attrs)
	if err != nil {
		return nil, err
	}
	return []*graph.Tensor{out}, nil
}
