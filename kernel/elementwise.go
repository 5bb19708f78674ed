package kernel

import (
	"fmt"

	"github.com/hidet-go/hidet/compute"
	"github.com/hidet-go/hidet/dtype"
	"github.com/hidet-go/hidet/ir"
	"github.com/hidet-go/hidet/task"
)

const blockSize = 256

// buildElementwiseIRModule lowers an injective, single-output Task
// (after any prologue/epilogue fusion) into a single grid-stride CUDA
// kernel: one thread computes one flattened output element. This is
// the shared body §4.5 assigns to `kernel.Implement` for the
// elementwise-shaped built-in schedulers (add, relu); matmul has its
// own lowering since it is reduce-shaped.
func buildElementwiseIRModule(t *task.Task, target Target) (*ir.IRModule, error) {
	if len(t.Outputs) != 1 {
		return nil, fmt.Errorf("kernel: elementwise lowering requires exactly one output, task %q has %d", t.Name, len(t.Outputs))
	}
	baseValue, axes, shape, outIndices, outShape, err := resolvedOutputValue(t)
	if err != nil {
		return nil, err
	}

	paramVars := make(map[*compute.TensorNode]*ir.Var, len(t.Parameters))
	params := make([]*ir.Var, len(t.Parameters))
	for i, tn := range t.Parameters {
		v := &ir.Var{Name: tn.Name, Type: ir.TensorType{Scalar: tn.Scalar, Shape: tn.Shape, Scope: ir.ScopeGlobal}}
		params[i] = v
		paramVars[tn] = v
	}
	outputVar := paramVars[t.Outputs[0]]
	if outputVar == nil {
		return nil, fmt.Errorf("kernel: output tensor node %q is not a bound kernel parameter", t.Outputs[0].Name)
	}

	idxVar := &ir.Var{Name: "flat_idx", Type: ir.ScalarTypeNode{Scalar: dtype.Int64}}
	numel := shapeProduct(shape)

	ctx := &lowerCtx{axisVars: map[*compute.Axis]ir.Expr{}, paramVars: paramVars}
	axisBindings, err := bindAxes(ctx, axes, shape, idxVar)
	if err != nil {
		return nil, err
	}

	resultExpr, err := computeToIR(baseValue, ctx)
	if err != nil {
		return nil, err
	}

	outIdxExprs := make([]ir.Expr, len(outIndices))
	for i, idx := range outIndices {
		e, err := computeToIR(idx, ctx)
		if err != nil {
			return nil, err
		}
		outIdxExprs[i] = e
	}
	outOffset := flatOffsetExpr(outIdxExprs, outShape)

	var body ir.Stmt = &ir.BufferStoreStmt{Buf: outputVar, Indices: []ir.Expr{outOffset}, Value: resultExpr}
	for i := len(axisBindings) - 1; i >= 0; i-- {
		b := axisBindings[i]
		body = &ir.LetStmt{Var: b.v, Value: b.expr, Body: body}
	}
	body = ir.Seq(
		&ir.IfStmt{
			Cond: &ir.Binary{Op: ir.LessEqual, A: ir.IntConst(int64(numel), dtype.Int64), B: idxVar},
			Then: &ir.ReturnStmt{},
		},
		body,
	)
	body = &ir.LetStmt{Var: idxVar, Value: flatIdxExpr(), Body: body}

	fn := &ir.Function{
		Name:       "hidet_" + t.Name,
		Kind:       ir.CUDAKernel,
		Params:     params,
		Body:       body,
		ReturnType: ir.VoidType{},
		Launch: &ir.LaunchConfig{
			Grid:  [3]ir.Expr{ir.IntConst(int64((numel+blockSize-1)/blockSize), dtype.Int32), ir.IntConst(1, dtype.Int32), ir.IntConst(1, dtype.Int32)},
			Block: [3]ir.Expr{ir.IntConst(blockSize, dtype.Int32), ir.IntConst(1, dtype.Int32), ir.IntConst(1, dtype.Int32)},
		},
	}

	m := ir.NewIRModule(t)
	m.AddFunction(fn)
	return m, nil
}

// resolvedOutputValue returns the fully prologue/epilogue-resolved Value
// computing t's output, the bound Axes/Shape the iteration domain (one
// thread per element of shape) is defined over, and the index tuple and
// shape of the actual destination buffer to write to. For a task with
// no epilogue, or one whose fused consumer has an identity InverseMap,
// outIndices/outShape coincide with axes/shape; when the consumer's
// output has a different shape (e.g. an epilogue that reshapes), they
// describe that different destination instead (spec.md §4.3).
func resolvedOutputValue(t *task.Task) (value compute.Value, axes []*compute.Axis, shape []int, outIndices []compute.Value, outShape []int, err error) {
	output := t.Outputs[0]
	for key, epilogue := range t.Epilogues {
		gc := key.Compute
		if gc == nil {
			return nil, nil, nil, nil, nil, fmt.Errorf("kernel: epilogue base tensor %q has no GridCompute", key.Name)
		}
		base := resolvePrologues(gc.Value, t)
		withPlaceholder := compute.Substitute(epilogue.Value, map[compute.Value]compute.Value{epilogue.OrigValue: base})
		final := resolvePrologues(withPlaceholder, t)
		return final, epilogue.Indices, gc.Shape, epilogue.OutIndices, epilogue.OutTensor.Shape, nil
	}
	gc := output.Compute
	if gc == nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("kernel: task %q output has no GridCompute", t.Name)
	}
	return resolvePrologues(gc.Value, t), gc.Axes, gc.Shape, axesToValues(gc.Axes), gc.Shape, nil
}

// axesToValues converts bound GridCompute axes into the Value slice
// resolvedOutputValue's non-epilogue branch uses as its identity
// outIndices, mirroring graph/passes' axisValues.
func axesToValues(axes []*compute.Axis) []compute.Value {
	vals := make([]compute.Value, len(axes))
	for i, ax := range axes {
		vals[i] = ax
	}
	return vals
}

// flatOffsetExpr computes the row-major flattened offset of outIndices
// into a buffer shaped outShape, the encode-side mirror of bindAxes's
// div/mod decode.
func flatOffsetExpr(outIndices []ir.Expr, outShape []int) ir.Expr {
	strides := make([]int, len(outShape))
	acc := 1
	for i := len(outShape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= outShape[i]
	}
	var offset ir.Expr = ir.IntConst(0, dtype.Int64)
	for i, idx := range outIndices {
		term := idx
		if strides[i] != 1 {
			term = &ir.Binary{Op: ir.Multiply, A: idx, B: ir.IntConst(int64(strides[i]), dtype.Int64)}
		}
		offset = &ir.Binary{Op: ir.Add, A: offset, B: term}
	}
	return offset
}

func shapeProduct(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// axisBinding is one row-major decoded axis: the local ir.Var the
// kernel body sees and the ir.Expr (in terms of idxVar) that computes
// it, in axis order.
type axisBinding struct {
	v    *ir.Var
	expr ir.Expr
}

// bindAxes computes, for each axis, the expression decoding it out of
// the flattened idxVar (row-major div/mod), and records the resulting
// Var in ctx so computeToIR can resolve Reads indexed by that axis.
// The caller nests the returned bindings into LetStmts around the
// kernel body, outermost-axis first.
func bindAxes(ctx *lowerCtx, axes []*compute.Axis, shape []int, idxVar *ir.Var) ([]axisBinding, error) {
	if len(axes) != len(shape) {
		return nil, fmt.Errorf("kernel: %d axes but shape has %d dims", len(axes), len(shape))
	}
	strides := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= shape[i]
	}
	bindings := make([]axisBinding, len(axes))
	for i, axis := range axes {
		v := &ir.Var{Name: "ax_" + axis.Name, Type: ir.ScalarTypeNode{Scalar: dtype.Int64}}
		var expr ir.Expr = idxVar
		if strides[i] != 1 {
			expr = &ir.Binary{Op: ir.FloorDiv, A: idxVar, B: ir.IntConst(int64(strides[i]), dtype.Int64)}
		}
		expr = &ir.Binary{Op: ir.Mod, A: expr, B: ir.IntConst(int64(shape[i]), dtype.Int64)}
		bindings[i] = axisBinding{v: v, expr: expr}
		ctx.axisVars[axis] = v
	}
	return bindings, nil
}

// flatIdxExpr builds the standard one-thread-per-element grid-stride
// index out of CUDA's builtin blockIdx/blockDim/threadIdx identifiers,
// represented as opaque ir.Vars so the generic Var renderer emits their
// dotted names literally.
func flatIdxExpr() ir.Expr {
	blockIdx := &ir.Var{Name: "blockIdx.x", Type: ir.ScalarTypeNode{Scalar: dtype.Int64}}
	blockDim := &ir.Var{Name: "blockDim.x", Type: ir.ScalarTypeNode{Scalar: dtype.Int64}}
	threadIdx := &ir.Var{Name: "threadIdx.x", Type: ir.ScalarTypeNode{Scalar: dtype.Int64}}
	return &ir.Binary{
		Op: ir.Add,
		A:  &ir.Binary{Op: ir.Multiply, A: blockIdx, B: blockDim},
		B:  threadIdx,
	}
}

// AddScheduler implements the "add" operator: a purely elementwise
// binary sum, injective by construction, used as a fusion test-bed.
func AddScheduler(t *task.Task, target Target) (*ir.IRModule, error) {
	return buildElementwiseIRModule(t, target)
}

// ReluScheduler implements "relu": a single-input injective clamp,
// lowered via compute.UnaryRelu's max(x, 0) translation in computeToIR.
func ReluScheduler(t *task.Task, target Target) (*ir.IRModule, error) {
	return buildElementwiseIRModule(t, target)
}
