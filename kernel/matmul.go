package kernel

import (
	"fmt"

	"github.com/hidet-go/hidet/compute"
	"github.com/hidet-go/hidet/dtype"
	"github.com/hidet-go/hidet/graph/passes"
	"github.com/hidet-go/hidet/ir"
	"github.com/hidet-go/hidet/task"
)

// MatmulScheduler implements "matmul": the one reduce-shaped built-in
// schedule (§4.10), exercising ScalarNode/ReduceCompute lowering.
// FuseEpiloguePass only folds into injective producers, so a matmul
// task never carries an epilogue. One thread computes one flattened
// output element, same row-major decode as the elementwise schedulers,
// but the element itself is a serial (or, for a plain sum that is not
// wrapped in a further expression, split-K) loop over the reduction
// axis rather than a single expression.
//
// parallel_k="search" (Open Question iii) is treated as an opaque
// token: the scheduler never runs a search, it just takes the same
// split-K path as ParallelKDefault.
func MatmulScheduler(t *task.Task, target Target) (*ir.IRModule, error) {
	if len(t.Outputs) != 1 {
		return nil, fmt.Errorf("kernel: matmul lowering requires exactly one output, task %q has %d", t.Name, len(t.Outputs))
	}
	baseValue, axes, shape, _, _, err := resolvedOutputValue(t)
	if err != nil {
		return nil, err
	}
	reduceRead, ok := findReduction(baseValue)
	if !ok {
		return nil, fmt.Errorf("kernel: matmul task %q has no reduction in its output expression", t.Name)
	}
	sn := reduceRead.Node.(*compute.ScalarNode)
	rc := sn.Compute
	if len(rc.Axes) != 1 || len(rc.Shape) != 1 {
		return nil, fmt.Errorf("kernel: matmul scheduler only supports a single reduction axis, task %q has %d", t.Name, len(rc.Axes))
	}
	wrapped := baseValue != compute.Value(reduceRead)

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

	ctx := &lowerCtx{axisVars: map[*compute.Axis]ir.Expr{}, paramVars: paramVars, scalarVars: map[*compute.ScalarNode]ir.Expr{}}
	axisBindings, err := bindAxes(ctx, axes, shape, idxVar)
	if err != nil {
		return nil, err
	}

	kExtent := rc.Shape[0]
	kAxis := rc.Axes[0]
	resolvedReduceValue := resolvePrologues(rc.Value, t)

	accVar := &ir.Var{Name: "acc_" + sn.Name, Type: ir.ScalarTypeNode{Scalar: sn.Scalar}}
	splitK := !wrapped && rc.Kind == compute.ReduceSum && splitKEnabled(target.ParallelK)

	kVar := &ir.Var{Name: "k", Type: ir.ScalarTypeNode{Scalar: dtype.Int32}}
	ctx.axisVars[kAxis] = kVar
	elemExpr, err := computeToIR(resolvedReduceValue, ctx)
	if err != nil {
		return nil, err
	}

	var accInit ir.Expr
	var loop ir.Stmt
	var storeStmt ir.Stmt
	if splitK {
		factor := splitKFactor(target.ParallelK, kExtent)
		chunk := (kExtent + factor - 1) / factor
		kkVar := &ir.Var{Name: "kk", Type: ir.ScalarTypeNode{Scalar: dtype.Int32}}
		blockIdxZ := &ir.Var{Name: "blockIdx.z", Type: ir.ScalarTypeNode{Scalar: dtype.Int32}}
		kStart := &ir.Binary{Op: ir.Multiply, A: blockIdxZ, B: ir.IntConst(int64(chunk), dtype.Int32)}
		innerBody := &ir.LetStmt{
			Var:   kVar,
			Value: &ir.Binary{Op: ir.Add, A: kStart, B: kkVar},
			Body: &ir.IfStmt{
				Cond: &ir.Binary{Op: ir.Less, A: kVar, B: ir.IntConst(int64(kExtent), dtype.Int32)},
				Then: &ir.AssignStmt{Var: accVar, Value: &ir.Binary{Op: ir.Add, A: accVar, B: elemExpr}},
			},
		}
		accInit = zeroConst(sn.Scalar)
		loop = &ir.ForStmt{Var: kkVar, Extent: ir.IntConst(int64(chunk), dtype.Int32), Body: innerBody}
		ctx.scalarVars[sn] = accVar
		storeStmt = &ir.EvaluateStmt{Expr: &ir.Call{FuncName: "atomicAdd", Args: []ir.Expr{&ir.Address{Expr: &ir.TensorElement{Base: outputVar, Indices: []ir.Expr{idxVar}}}, ir.Expr(accVar)}}}
	} else {
		accInit = reduceInit(rc.Kind, sn.Scalar)
		combine := reduceCombine(rc.Kind, accVar, elemExpr)
		plainLoop := &ir.ForStmt{Var: kVar, Extent: ir.IntConst(int64(kExtent), dtype.Int32), Body: &ir.AssignStmt{Var: accVar, Value: combine}}
		if rc.Kind == compute.ReduceAvg {
			loop = ir.Seq(plainLoop, &ir.AssignStmt{Var: accVar, Value: &ir.Binary{Op: ir.Div, A: accVar, B: ir.IntConst(int64(kExtent), sn.Scalar)}})
		} else {
			loop = plainLoop
		}
		ctx.scalarVars[sn] = accVar
		outerExpr, err := computeToIR(baseValue, ctx)
		if err != nil {
			return nil, err
		}
		storeStmt = &ir.BufferStoreStmt{Buf: outputVar, Indices: []ir.Expr{idxVar}, Value: outerExpr}
	}

	body := ir.Stmt(&ir.LetStmt{Var: accVar, Value: accInit, Body: ir.Seq(loop, storeStmt)})

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

	grid := [3]ir.Expr{ir.IntConst(int64((numel+blockSize-1)/blockSize), dtype.Int32), ir.IntConst(1, dtype.Int32), ir.IntConst(1, dtype.Int32)}
	if splitK {
		grid[2] = ir.IntConst(int64(splitKFactor(target.ParallelK, kExtent)), dtype.Int32)
	}

	fn := &ir.Function{
		Name:       "hidet_" + t.Name,
		Kind:       ir.CUDAKernel,
		Params:     params,
		Body:       body,
		ReturnType: ir.VoidType{},
		Launch: &ir.LaunchConfig{
			Grid:  grid,
			Block: [3]ir.Expr{ir.IntConst(blockSize, dtype.Int32), ir.IntConst(1, dtype.Int32), ir.IntConst(1, dtype.Int32)},
		},
	}
	if splitK {
		fn.Attrs = map[string]any{"requires_zero_output": true}
	}

	m := ir.NewIRModule(t)
	m.AddFunction(fn)
	return m, nil
}

// findReduction searches v for a Read of a ScalarNode carrying a
// ReduceCompute, returning it and true on a match.
func findReduction(v compute.Value) (*compute.Read, bool) {
	switch n := v.(type) {
	case *compute.Read:
		if sn, ok := n.Node.(*compute.ScalarNode); ok && sn.Compute != nil {
			return n, true
		}
		return nil, false
	case *compute.Binary:
		if r, ok := findReduction(n.A); ok {
			return r, true
		}
		return findReduction(n.B)
	case *compute.Unary:
		return findReduction(n.Value)
	default:
		return nil, false
	}
}

func splitKEnabled(pk passes.ParallelK) bool {
	switch pk.Mode {
	case passes.ParallelKDefault, passes.ParallelKFixed, passes.ParallelKSearch:
		return true
	default:
		return false
	}
}

func splitKFactor(pk passes.ParallelK, kExtent int) int {
	factor := 4
	if pk.Mode == passes.ParallelKFixed && pk.Value > 0 {
		factor = pk.Value
	}
	if factor > kExtent {
		factor = kExtent
	}
	if factor < 1 {
		factor = 1
	}
	return factor
}

func reduceCombine(kind compute.ReduceKind, acc *ir.Var, elem ir.Expr) ir.Expr {
	switch kind {
	case compute.ReduceMax:
		return &ir.Call{FuncName: "max", Args: []ir.Expr{acc, elem}}
	case compute.ReduceMin:
		return &ir.Call{FuncName: "min", Args: []ir.Expr{acc, elem}}
	default: // Sum, Avg: accumulate, Avg divides by the extent afterward
		return &ir.Binary{Op: ir.Add, A: acc, B: elem}
	}
}

func reduceInit(kind compute.ReduceKind, scalar dtype.ScalarType) ir.Expr {
	switch kind {
	case compute.ReduceMax:
		return negInfConst(scalar)
	case compute.ReduceMin:
		return posInfConst(scalar)
	default:
		return zeroConst(scalar)
	}
}

func isFloatScalar(s dtype.ScalarType) bool {
	return s == dtype.Float16 || s == dtype.BFloat16 || s == dtype.Float32 || s == dtype.Float64
}

func zeroConst(s dtype.ScalarType) ir.Expr {
	if isFloatScalar(s) {
		return ir.FloatConst(0, s)
	}
	return ir.IntConst(0, s)
}

func negInfConst(s dtype.ScalarType) ir.Expr {
	if isFloatScalar(s) {
		return ir.FloatConst(-3.0e38, s)
	}
	return ir.IntConst(-1<<62, s)
}

func posInfConst(s dtype.ScalarType) ir.Expr {
	if isFloatScalar(s) {
		return ir.FloatConst(3.0e38, s)
	}
	return ir.IntConst(1<<62, s)
}
