package passes_test

import (
	"testing"

	"github.com/hidet-go/hidet/dtype"
	"github.com/hidet-go/hidet/frontend"
	"github.com/hidet-go/hidet/graph"
	"github.com/hidet-go/hidet/graph/passes"
	"github.com/stretchr/testify/require"
)

// TestFuseProloguePass covers scenario 1 (add -> relu fuses to one
// operator) and doubles as the fixed-point test: a second pass over
// the already-fused graph must be a no-op.
func TestFuseProloguePass(t *testing.T) {
	a := graph.NewInput(dtype.Float32, []int{8})
	b := graph.NewInput(dtype.Float32, []int{8})
	sum, err := frontend.Add(a, b)
	require.NoError(t, err)
	out, err := frontend.Relu(sum)
	require.NoError(t, err)

	g := graph.New([]*graph.Tensor{a, b}, []*graph.Tensor{out})
	require.Len(t, g.Nodes, 2)

	pc := passes.NewContext()
	fused, err := passes.FuseProloguePass(g, pc)
	require.NoError(t, err)
	require.Len(t, fused.Nodes, 1, "add+relu should fuse into a single operator")
	require.NoError(t, fused.Validate())

	again, err := passes.FuseProloguePass(fused, pc)
	require.NoError(t, err)
	require.Len(t, again.Nodes, 1, "fusion must be a fixed point")
}

// TestFuseProloguePassChain covers scenario 6: a 3-op chain (add ->
// relu -> add with a third input) collapses to a single fused consumer.
func TestFuseProloguePassChain(t *testing.T) {
	a := graph.NewInput(dtype.Float32, []int{8})
	b := graph.NewInput(dtype.Float32, []int{8})
	c := graph.NewInput(dtype.Float32, []int{8})

	sum, err := frontend.Add(a, b)
	require.NoError(t, err)
	relu, err := frontend.Relu(sum)
	require.NoError(t, err)
	out, err := frontend.Add(relu, c)
	require.NoError(t, err)

	g := graph.New([]*graph.Tensor{a, b, c}, []*graph.Tensor{out})
	require.Len(t, g.Nodes, 3)

	pc := passes.NewContext()
	fused, err := passes.FuseProloguePass(g, pc)
	require.NoError(t, err)
	require.Len(t, fused.Nodes, 1)
	require.NoError(t, fused.Validate())
}

// TestFuseProloguePassSkipsBarrier verifies that a consumer marked
// Barrier opts out of fusion entirely.
func TestFuseProloguePassSkipsBarrier(t *testing.T) {
	a := graph.NewInput(dtype.Float32, []int{8})
	b := graph.NewInput(dtype.Float32, []int{8})
	sum, err := frontend.Add(a, b)
	require.NoError(t, err)
	out, err := frontend.Relu(sum)
	require.NoError(t, err)

	out.Producer.Barrier = true

	g := graph.New([]*graph.Tensor{a, b}, []*graph.Tensor{out})
	pc := passes.NewContext()
	fused, err := passes.FuseProloguePass(g, pc)
	require.NoError(t, err)
	require.Len(t, fused.Nodes, 2, "a barrier consumer must not be fused into")
}
