package kernel_test

import (
	"testing"

	"github.com/hidet-go/hidet/dtype"
	"github.com/hidet-go/hidet/frontend"
	"github.com/hidet-go/hidet/graph"
	"github.com/hidet-go/hidet/kernel"
	"github.com/stretchr/testify/require"
)

func TestAddSchedulerProducesGridStrideKernel(t *testing.T) {
	a := graph.NewInput(dtype.Float32, []int{4, 8})
	b := graph.NewInput(dtype.Float32, []int{4, 8})
	sum, err := frontend.Add(a, b)
	require.NoError(t, err)

	target := kernel.Target{Arch: "80"}
	m, err := kernel.AddScheduler(sum.Producer.Task, target)
	require.NoError(t, err)

	fn := m.EntryFunction()
	require.NotNil(t, fn)
	require.Equal(t, "hidet_"+sum.Producer.Task.Name, fn.Name)
	require.Len(t, fn.Params, 3, "two inputs plus the output tensor")
	require.NotNil(t, fn.Launch)
}

func TestReluSchedulerViaRegistry(t *testing.T) {
	x := graph.NewInput(dtype.Float32, []int{16})
	out, err := frontend.Relu(x)
	require.NoError(t, err)

	m, err := kernel.Default().Implement("relu", out.Producer.Task, kernel.Target{Arch: "80"})
	require.NoError(t, err)
	require.NotNil(t, m.EntryFunction())
}

func TestRegistryRejectsUnknownOperator(t *testing.T) {
	_, err := kernel.Default().Implement("not_a_real_op", nil, kernel.Target{})
	require.Error(t, err)
}
