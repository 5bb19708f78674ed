package passes_test

import (
	"testing"

	"github.com/hidet-go/hidet/compute"
	"github.com/hidet-go/hidet/dtype"
	"github.com/hidet-go/hidet/frontend"
	"github.com/hidet-go/hidet/graph"
	"github.com/hidet-go/hidet/graph/passes"
	"github.com/hidet-go/hidet/task"
	"github.com/stretchr/testify/require"
)

// TestFuseEpiloguePass covers the same-shape case: relu's output feeds
// a single consumer (add, via ScaleConst+Add inside Gemm-style chains),
// here a direct relu -> relu chain so both sides are unary injective.
func TestFuseEpiloguePass(t *testing.T) {
	a := graph.NewInput(dtype.Float32, []int{8})
	relu1, err := frontend.Relu(a)
	require.NoError(t, err)
	relu2, err := frontend.Relu(relu1)
	require.NoError(t, err)

	g := graph.New([]*graph.Tensor{a}, []*graph.Tensor{relu2})
	require.Len(t, g.Nodes, 2)

	pc := passes.NewContext()
	fused, err := passes.FuseEpiloguePass(g, pc)
	require.NoError(t, err)
	require.Len(t, fused.Nodes, 1, "relu -> relu should fuse into a single operator via an epilogue")
	require.NoError(t, fused.Validate())

	again, err := passes.FuseEpiloguePass(fused, pc)
	require.NoError(t, err)
	require.Len(t, again.Nodes, 1, "fusion must be a fixed point")
}

// TestFuseEpiloguePassSkipsBarrier mirrors the prologue-side barrier
// test: a barrier consumer must never be folded into its producer.
func TestFuseEpiloguePassSkipsBarrier(t *testing.T) {
	a := graph.NewInput(dtype.Float32, []int{8})
	relu1, err := frontend.Relu(a)
	require.NoError(t, err)
	relu2, err := frontend.Relu(relu1)
	require.NoError(t, err)

	relu2.Producer.Barrier = true

	g := graph.New([]*graph.Tensor{a}, []*graph.Tensor{relu2})
	pc := passes.NewContext()
	fused, err := passes.FuseEpiloguePass(g, pc)
	require.NoError(t, err)
	require.Len(t, fused.Nodes, 2, "a barrier consumer must not be fused into")
}

// buildTransposeGraph hand-builds a two-operator graph whose second
// operator is a genuine shape-changing consumer (a 2x3 -> 3x2
// transpose), exercising the branch of tryFuseEpilogue that must
// derive OutIndices from the consumer's InverseMap rather than assume
// a same-shape producer/consumer.
func buildTransposeGraph(t *testing.T) (g *graph.FlowGraph, vOutNode, uOutNode *compute.TensorNode) {
	t.Helper()

	xIn := graph.NewInput(dtype.Float32, []int{2, 3})
	xNode := &compute.TensorNode{Name: "x", Scalar: dtype.Float32, Shape: []int{2, 3}}

	m, n := &compute.Axis{Name: "m"}, &compute.Axis{Name: "n"}
	vOutNode = &compute.TensorNode{Name: "v_out", Scalar: dtype.Float32, Shape: []int{2, 3}, Compute: &compute.GridCompute{
		Shape: []int{2, 3},
		Axes:  []*compute.Axis{m, n},
		Value: &compute.Unary{Op: compute.UnaryRelu, Value: &compute.Read{Node: xNode, Indices: []compute.Value{m, n}}},
	}}
	vTask := task.NewTask("relu2d", []*compute.TensorNode{xNode}, []*compute.TensorNode{vOutNode})
	vTask.Inverse[vOutNode] = &task.InverseMap{Forward: func(indices []compute.Value) []compute.Value { return indices }}
	vOut := &graph.Tensor{Scalar: dtype.Float32, Shape: []int{2, 3}, Device: graph.DeviceCUDA}
	_, err := graph.NewOperator("v", "relu2d", []*graph.Tensor{xIn}, []*graph.Tensor{vOut}, nil, vTask)
	require.NoError(t, err)

	p, q := &compute.Axis{Name: "p"}, &compute.Axis{Name: "q"}
	uOutNode = &compute.TensorNode{Name: "u_out", Scalar: dtype.Float32, Shape: []int{3, 2}, Compute: &compute.GridCompute{
		Shape: []int{3, 2},
		Axes:  []*compute.Axis{p, q},
		// u_out[p, q] = v_out[q, p]: a transpose, so u_out's output
		// shape ([3, 2]) differs from v_out's ([2, 3]).
		Value: &compute.Read{Node: vOutNode, Indices: []compute.Value{q, p}},
	}}
	uTask := task.NewTask("transpose", []*compute.TensorNode{vOutNode}, []*compute.TensorNode{uOutNode})
	// Forward is given the producer's own axis values [m, n] (the
	// position the producer writes, and thus the position the folded
	// consumer reads its input at) and must return the consumer's own
	// output index tuple at that same position: u_out[n, m] = v_out[m, n].
	uTask.Inverse[uOutNode] = &task.InverseMap{Forward: func(indices []compute.Value) []compute.Value {
		return []compute.Value{indices[1], indices[0]}
	}}
	uOut := &graph.Tensor{Scalar: dtype.Float32, Shape: []int{3, 2}, Device: graph.DeviceCUDA}
	_, err = graph.NewOperator("u", "transpose", []*graph.Tensor{vOut}, []*graph.Tensor{uOut}, nil, uTask)
	require.NoError(t, err)

	g = graph.New([]*graph.Tensor{xIn}, []*graph.Tensor{uOut})
	return g, vOutNode, uOutNode
}

// TestFuseEpiloguePassShapeChangingEpilogue verifies OutIndices/OutTensor
// are derived from the consumer's InverseMap (not hardcoded to the
// producer's own axes) when the fused consumer's output has a
// different shape than the producer's.
func TestFuseEpiloguePassShapeChangingEpilogue(t *testing.T) {
	g, _, uOutNode := buildTransposeGraph(t)
	require.Len(t, g.Nodes, 2)

	pc := passes.NewContext()
	fused, err := passes.FuseEpiloguePass(g, pc)
	require.NoError(t, err)
	require.Len(t, fused.Nodes, 1, "transpose should fold into its producer as an epilogue")
	require.NoError(t, fused.Validate())

	op := fused.Nodes[0]
	require.Len(t, op.Task.Epilogues, 1)
	var epilogue *task.Epilogue
	for _, e := range op.Task.Epilogues {
		epilogue = e
	}
	require.NotNil(t, epilogue)
	require.Same(t, uOutNode, epilogue.OutTensor, "OutTensor must be the consumer's own output, not the producer's")
	require.Equal(t, []int{3, 2}, epilogue.OutTensor.Shape)

	require.Len(t, epilogue.OutIndices, 2)
	// OutIndices must be the producer's axes in swapped order (m, n) -> (n, m).
	mAxis, ok := epilogue.OutIndices[1].(*compute.Axis)
	require.True(t, ok)
	require.Equal(t, "m", mAxis.Name)
	nAxis, ok := epilogue.OutIndices[0].(*compute.Axis)
	require.True(t, ok)
	require.Equal(t, "n", nAxis.Name)

	require.Equal(t, []int{3, 2}, fused.Outputs[0].Shape, "the fused op's output tensor keeps the consumer's shape")
}
