package task_test

import (
	"testing"

	"github.com/hidet-go/hidet/compute"
	"github.com/hidet-go/hidet/dtype"
	"github.com/hidet-go/hidet/task"
	"github.com/stretchr/testify/require"
)

func newTensorNode(name string, shape []int) *compute.TensorNode {
	return &compute.TensorNode{Name: name, Scalar: dtype.Float32, Shape: shape}
}

func TestValidateParameterArity(t *testing.T) {
	in := newTensorNode("x", []int{4})
	out := newTensorNode("y", []int{4})
	tk := task.NewTask("identity", []*compute.TensorNode{in}, []*compute.TensorNode{out})

	require.NoError(t, tk.Validate(1, 1))
	require.Error(t, tk.Validate(2, 1))
	require.Error(t, tk.Validate(1, 2))
}

func TestValidateRejectsSimultaneousPrologueAndEpilogue(t *testing.T) {
	in := newTensorNode("x", []int{4})
	out := newTensorNode("y", []int{4})
	tk := task.NewTask("identity", []*compute.TensorNode{in}, []*compute.TensorNode{out})

	val := &compute.Const{Scalar: dtype.Float32, Value: 0.0}
	tk.Prologues[in] = &task.Prologue{Value: val}
	tk.Epilogues[in] = &task.Epilogue{Value: val}

	require.Error(t, tk.Validate(1, 1))
}

func TestCopyIsIndependent(t *testing.T) {
	in := newTensorNode("x", []int{4})
	out := newTensorNode("y", []int{4})
	tk := task.NewTask("identity", []*compute.TensorNode{in}, []*compute.TensorNode{out})

	c := tk.Copy()
	c.Prologues[in] = &task.Prologue{Value: &compute.Const{Scalar: dtype.Float32, Value: 0.0}}

	require.Empty(t, tk.Prologues)
	require.NotEmpty(t, c.Prologues)
}

func TestIsInjective(t *testing.T) {
	in := newTensorNode("x", []int{4})
	axis := &compute.Axis{Name: "i"}
	out := &compute.TensorNode{Name: "y", Scalar: dtype.Float32, Shape: []int{4}, Compute: &compute.GridCompute{
		Shape: []int{4},
		Axes:  []*compute.Axis{axis},
		Value: &compute.Unary{Op: compute.UnaryRelu, Value: &compute.Read{Node: in, Indices: []compute.Value{axis}}},
	}}
	tk := task.NewTask("relu", []*compute.TensorNode{in}, []*compute.TensorNode{out})

	require.True(t, task.IsInjective(tk))
	require.True(t, task.IsUnaryInjective(tk))
}
