// Package frontend is the tracing API: callers build a FlowGraph by
// calling operator constructors on symbolic Tensors. It ties together
// compute (the algebraic Task body), task (the Task/Parameters
// wiring), and graph (Tensor/Operator/FlowGraph), the way the original
// importer's per-op-type run() methods and hidet's tos/jit.py tracing
// layer do together.
package frontend

import (
	"fmt"
	"sync/atomic"

	"github.com/hidet-go/hidet/compute"
	"github.com/hidet-go/hidet/graph"
	"github.com/hidet-go/hidet/task"
)

var opCounter int64

func nextName(opType string) string {
	n := atomic.AddInt64(&opCounter, 1)
	return fmt.Sprintf("%s_%d", opType, n)
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func gridAxes(shape []int) []*compute.Axis {
	axes := make([]*compute.Axis, len(shape))
	for i := range shape {
		axes[i] = &compute.Axis{Name: fmt.Sprintf("i%d", i)}
	}
	return axes
}

func axesToIndices(axes []*compute.Axis) []compute.Value {
	idx := make([]compute.Value, len(axes))
	for i, a := range axes {
		idx[i] = a
	}
	return idx
}

// identityInverse is the InverseMap.Forward for every shape-preserving
// elementwise operator this package builds: the output element at a
// given index tuple depends on the input at that same index tuple, so
// the map is its own identity in both directions.
func identityInverse(indices []compute.Value) []compute.Value { return indices }

// elementwiseBinary builds a single-op Task computing Binary{op, a, b}
// over a and b's (identical) shape, and wires it into a graph.Operator.
func elementwiseBinary(opType string, op compute.BinOp, a, b *graph.Tensor) (*graph.Tensor, error) {
	if a.Scalar != b.Scalar {
		return nil, fmt.Errorf("frontend: %s requires matching dtypes, got %s and %s", opType, a.Scalar, b.Scalar)
	}
	if !sameShape(a.Shape, b.Shape) {
		return nil, fmt.Errorf("frontend: %s requires matching shapes (broadcasting not supported), got %v and %v", opType, a.Shape, b.Shape)
	}
	axes := gridAxes(a.Shape)
	indices := axesToIndices(axes)
	aNode := &compute.TensorNode{Name: "a", Scalar: a.Scalar, Shape: a.Shape}
	bNode := &compute.TensorNode{Name: "b", Scalar: b.Scalar, Shape: b.Shape}
	outNode := &compute.TensorNode{Name: "out", Scalar: a.Scalar, Shape: a.Shape, Compute: &compute.GridCompute{
		Shape: a.Shape,
		Axes:  axes,
		Value: &compute.Binary{Op: op, A: &compute.Read{Node: aNode, Indices: indices}, B: &compute.Read{Node: bNode, Indices: indices}},
	}}
	name := nextName(opType)
	t := task.NewTask(name, []*compute.TensorNode{aNode, bNode}, []*compute.TensorNode{outNode})
	t.Inverse[outNode] = &task.InverseMap{Forward: identityInverse}
	out := &graph.Tensor{Scalar: a.Scalar, Shape: a.Shape, Device: a.Device}
	if _, err := graph.NewOperator(name, opType, []*graph.Tensor{a, b}, []*graph.Tensor{out}, nil, t); err != nil {
		return nil, err
	}
	return out, nil
}

// Add builds an elementwise sum operator (injective, a fusion test-bed
// per §4.10).
func Add(a, b *graph.Tensor) (*graph.Tensor, error) {
	return elementwiseBinary("add", compute.OpAdd, a, b)
}

// Mul builds an elementwise product operator.
func Mul(a, b *graph.Tensor) (*graph.Tensor, error) {
	return elementwiseBinary("mul", compute.OpMul, a, b)
}

// ScaleConst builds an elementwise multiply-by-constant operator (the
// alpha/beta scaling Gemm composes from).
func ScaleConst(x *graph.Tensor, alpha float64) (*graph.Tensor, error) {
	axes := gridAxes(x.Shape)
	indices := axesToIndices(axes)
	xNode := &compute.TensorNode{Name: "x", Scalar: x.Scalar, Shape: x.Shape}
	outNode := &compute.TensorNode{Name: "out", Scalar: x.Scalar, Shape: x.Shape, Compute: &compute.GridCompute{
		Shape: x.Shape,
		Axes:  axes,
		Value: &compute.Binary{Op: compute.OpMul, A: &compute.Read{Node: xNode, Indices: indices}, B: &compute.Const{Scalar: x.Scalar, Value: alpha}},
	}}
	name := nextName("scale")
	t := task.NewTask(name, []*compute.TensorNode{xNode}, []*compute.TensorNode{outNode})
	t.Inverse[outNode] = &task.InverseMap{Forward: identityInverse}
	out := &graph.Tensor{Scalar: x.Scalar, Shape: x.Shape, Device: x.Device}
	if _, err := graph.NewOperator(name, "scale", []*graph.Tensor{x}, []*graph.Tensor{out}, nil, t); err != nil {
		return nil, err
	}
	return out, nil
}

// Relu builds a single-input injective clamp operator, lowered via
// compute.UnaryRelu in kernel.computeToIR.
func Relu(x *graph.Tensor) (*graph.Tensor, error) {
	axes := gridAxes(x.Shape)
	indices := axesToIndices(axes)
	xNode := &compute.TensorNode{Name: "x", Scalar: x.Scalar, Shape: x.Shape}
	outNode := &compute.TensorNode{Name: "out", Scalar: x.Scalar, Shape: x.Shape, Compute: &compute.GridCompute{
		Shape: x.Shape,
		Axes:  axes,
		Value: &compute.Unary{Op: compute.UnaryRelu, Value: &compute.Read{Node: xNode, Indices: indices}},
	}}
	name := nextName("relu")
	t := task.NewTask(name, []*compute.TensorNode{xNode}, []*compute.TensorNode{outNode})
	t.Inverse[outNode] = &task.InverseMap{Forward: identityInverse}
	out := &graph.Tensor{Scalar: x.Scalar, Shape: x.Shape, Device: x.Device}
	if _, err := graph.NewOperator(name, "relu", []*graph.Tensor{x}, []*graph.Tensor{out}, nil, t); err != nil {
		return nil, err
	}
	return out, nil
}

// MatMul builds a 2-D matrix multiply operator: a is [M, K], b is
// [K, N], the output is [M, N]. The reduction over K is a
// compute.ReduceCompute/ScalarNode, exercised by kernel.MatmulScheduler.
func MatMul(a, b *graph.Tensor) (*graph.Tensor, error) {
	if len(a.Shape) != 2 || len(b.Shape) != 2 {
		return nil, fmt.Errorf("frontend: matmul requires 2-D operands, got shapes %v and %v", a.Shape, b.Shape)
	}
	if a.Shape[1] != b.Shape[0] {
		return nil, fmt.Errorf("frontend: matmul shape mismatch: a is [%d, %d], b is [%d, %d]", a.Shape[0], a.Shape[1], b.Shape[0], b.Shape[1])
	}
	if a.Scalar != b.Scalar {
		return nil, fmt.Errorf("frontend: matmul requires matching dtypes, got %s and %s", a.Scalar, b.Scalar)
	}
	m, k, n := a.Shape[0], a.Shape[1], b.Shape[1]
	outShape := []int{m, n}
	mAxis, nAxis := &compute.Axis{Name: "m"}, &compute.Axis{Name: "n"}
	kAxis := &compute.Axis{Name: "k"}

	aNode := &compute.TensorNode{Name: "a", Scalar: a.Scalar, Shape: a.Shape}
	bNode := &compute.TensorNode{Name: "b", Scalar: b.Scalar, Shape: b.Shape}

	product := &compute.Binary{
		Op: compute.OpMul,
		A:  &compute.Read{Node: aNode, Indices: []compute.Value{mAxis, kAxis}},
		B:  &compute.Read{Node: bNode, Indices: []compute.Value{kAxis, nAxis}},
	}
	accNode := &compute.ScalarNode{Name: "acc", Scalar: a.Scalar, Compute: &compute.ReduceCompute{
		Shape: []int{k},
		Axes:  []*compute.Axis{kAxis},
		Value: product,
		Kind:  compute.ReduceSum,
	}}
	outNode := &compute.TensorNode{Name: "out", Scalar: a.Scalar, Shape: outShape, Compute: &compute.GridCompute{
		Shape: outShape,
		Axes:  []*compute.Axis{mAxis, nAxis},
		Value: &compute.Read{Node: accNode},
	}}

	name := nextName("matmul")
	t := task.NewTask(name, []*compute.TensorNode{aNode, bNode}, []*compute.TensorNode{outNode})
	out := &graph.Tensor{Scalar: a.Scalar, Shape: outShape, Device: a.Device}
	if _, err := graph.NewOperator(name, "matmul", []*graph.Tensor{a, b}, []*graph.Tensor{out}, nil, t); err != nil {
		return nil, err
	}
	return out, nil
}

// GemmAttrs is the subset of the original importer's Gemm attribute
// set (alpha, beta) this builder supports; transA/transB are rejected
// rather than silently ignored, since no transpose operator is
// implemented here.
type GemmAttrs struct {
	Alpha  float64 `mapstructure:"alpha"`
	Beta   float64 `mapstructure:"beta"`
	TransA int64   `mapstructure:"transA"`
	TransB int64   `mapstructure:"transB"`
}

// Gemm composes MatMul/ScaleConst/Add to build `alpha * (a @ b) + beta
// * c` (c optional), decoding alpha/beta/transA/transB the way
// OnnxGemm.__init__ does in the original importer.
func Gemm(a, b, c *graph.Tensor, attrs GemmAttrs) (*graph.Tensor, error) {
	if attrs.TransA != 0 || attrs.TransB != 0 {
		return nil, fmt.Errorf("frontend: gemm transA/transB are not supported")
	}
	d, err := MatMul(a, b)
	if err != nil {
		return nil, err
	}
	if attrs.Alpha != 1.0 {
		d, err = ScaleConst(d, attrs.Alpha)
		if err != nil {
			return nil, err
		}
	}
	if c != nil && attrs.Beta != 0 {
		scaledC, err := ScaleConst(c, attrs.Beta)
		if err != nil {
			return nil, err
		}
		d, err = Add(d, scaledC)
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}
