package codegen_test

import (
	"strings"
	"testing"

	"github.com/hidet-go/hidet/codegen"
	"github.com/hidet-go/hidet/dtype"
	"github.com/hidet-go/hidet/ir"
	"github.com/stretchr/testify/require"
)

// TestCUDAKernelRendersHostLauncher verifies spec.md:117's two
// requirements: the function named "hidet_add" (the symbol
// build.loadNamedFunc dlsym's) is a plain extern "C" host function that
// performs a <<<grid, block, shared>>> launch, while the real
// __global__ kernel body is emitted under a distinct name.
func TestCUDAKernelRendersHostLauncher(t *testing.T) {
	out := &ir.Var{Name: "out", Type: ir.TensorType{Scalar: dtype.Float32, Shape: []int{8}, Scope: ir.ScopeGlobal}}
	fn := &ir.Function{
		Name:       "hidet_add",
		Kind:       ir.CUDAKernel,
		Params:     []*ir.Var{out},
		ReturnType: ir.VoidType{},
		Body:       &ir.ReturnStmt{},
		Launch: &ir.LaunchConfig{
			Grid:           [3]ir.Expr{ir.IntConst(2, dtype.Int32), ir.IntConst(1, dtype.Int32), ir.IntConst(1, dtype.Int32)},
			Block:          [3]ir.Expr{ir.IntConst(256, dtype.Int32), ir.IntConst(1, dtype.Int32), ir.IntConst(1, dtype.Int32)},
			MinBlocksPerSM: 4,
		},
	}
	m := ir.NewIRModule(nil)
	m.AddFunction(fn)

	src := codegen.Module(m)

	require.Contains(t, src, `extern "C" __global__ __launch_bounds__(4) void hidet_add_kernel(`,
		"the real device kernel must be emitted under a name distinct from the dlsym'd entry point")
	require.Contains(t, src, `extern "C" void hidet_add(`,
		"the dlsym'd symbol must be a plain host function, not __global__")
	require.Contains(t, src, "hidet_add_kernel<<<dim3(2, 1, 1), dim3(256, 1, 1), 0>>>(out);",
		"the host wrapper must launch the device kernel with the computed LaunchConfig")

	// The wrapper's own signature must never carry __global__: a launch
	// wrapper is an ordinary host function called through PackedFunc's
	// SyscallN, not a kernel entry itself.
	idx := strings.Index(src, `extern "C" void hidet_add(`)
	require.True(t, idx >= 0)
	end := min(idx+200, len(src))
	require.NotContains(t, src[idx:end], "__global__")
}

// TestNonKernelFunctionUnaffected verifies plain host/device functions
// (no Launch) still render as a single definition, the existing path
// for non-kernel functions.
func TestNonKernelFunctionUnaffected(t *testing.T) {
	fn := &ir.Function{
		Name:       "hidet_host_fn",
		Kind:       ir.Host,
		ReturnType: ir.VoidType{},
		Body:       &ir.ReturnStmt{},
	}
	m := ir.NewIRModule(nil)
	m.AddFunction(fn)

	src := codegen.Module(m)
	require.Equal(t, 1, strings.Count(src, "hidet_host_fn"))
	require.Contains(t, src, `extern "C" void hidet_host_fn()`)
}
