package kernel_test

import (
	"testing"

	"github.com/hidet-go/hidet/dtype"
	"github.com/hidet-go/hidet/frontend"
	"github.com/hidet-go/hidet/graph"
	"github.com/hidet-go/hidet/graph/passes"
	"github.com/hidet-go/hidet/ir"
	"github.com/hidet-go/hidet/kernel"
	"github.com/stretchr/testify/require"
)

func TestMatmulSchedulerProducesReductionKernel(t *testing.T) {
	a := graph.NewInput(dtype.Float32, []int{16, 32})
	b := graph.NewInput(dtype.Float32, []int{32, 8})
	out, err := frontend.MatMul(a, b)
	require.NoError(t, err)

	target := kernel.Target{Arch: "80"}
	m, err := kernel.MatmulScheduler(out.Producer.Task, target)
	require.NoError(t, err)

	fn := m.EntryFunction()
	require.NotNil(t, fn)
	require.Len(t, fn.Params, 3)
	require.Nil(t, fn.Attrs["requires_zero_output"], "plain-sum reduction must not request split-K's zero-output contract")
}

// TestMatmulSchedulerSplitK covers the split-K path (Open Question iii:
// parallel_k="search" takes the same split-K path as the fixed default).
func TestMatmulSchedulerSplitK(t *testing.T) {
	a := graph.NewInput(dtype.Float32, []int{16, 256})
	b := graph.NewInput(dtype.Float32, []int{256, 8})
	out, err := frontend.MatMul(a, b)
	require.NoError(t, err)

	target := kernel.Target{Arch: "80", ParallelK: passes.ParallelK{Mode: passes.ParallelKSearch}}
	m, err := kernel.MatmulScheduler(out.Producer.Task, target)
	require.NoError(t, err)

	fn := m.EntryFunction()
	require.NotNil(t, fn)
	require.Equal(t, true, fn.Attrs["requires_zero_output"])
	require.NotEqual(t, int64(1), fn.Launch.Grid[2].(*ir.Constant).Value, "grid.z should encode the split-K factor, not the default 1")
}
