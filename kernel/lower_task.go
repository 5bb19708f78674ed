package kernel

import (
	"fmt"

	"github.com/hidet-go/hidet/compute"
	"github.com/hidet-go/hidet/dtype"
	"github.com/hidet-go/hidet/ir"
	"github.com/hidet-go/hidet/task"
)

// resolvePrologues rewrites v so that every compute.Read of a
// TensorNode carrying a Prologue is replaced by that prologue's inlined
// expression, repeating until no such Read remains. This is the
// compute-level half of §4.5's Task -> IRModule lowering: by the time
// codegen sees a value tree, every TensorNode it reads is a genuine
// kernel parameter, never a fused-away producer.
func resolvePrologues(v compute.Value, t *task.Task) compute.Value {
	for {
		reads := collectProloguedReads(v, t)
		if len(reads) == 0 {
			return v
		}
		rmap := make(map[compute.Value]compute.Value, len(reads))
		for _, r := range reads {
			tn := r.Node.(*compute.TensorNode)
			prologue := t.Prologues[tn]
			gc := &compute.GridCompute{Axes: prologue.Indices, Value: prologue.Value}
			rmap[r] = compute.InlineAt(gc, r.Indices)
		}
		v = compute.Substitute(v, rmap)
	}
}

func collectProloguedReads(v compute.Value, t *task.Task) []*compute.Read {
	var out []*compute.Read
	var walk func(v compute.Value)
	walk = func(v compute.Value) {
		switch n := v.(type) {
		case *compute.Read:
			if tn, ok := n.Node.(*compute.TensorNode); ok && t.Prologues[tn] != nil {
				out = append(out, n)
			}
			for _, idx := range n.Indices {
				walk(idx)
			}
		case *compute.Binary:
			walk(n.A)
			walk(n.B)
		case *compute.Unary:
			walk(n.Value)
		}
	}
	walk(v)
	return out
}

// lowerCtx carries the bindings computeToIR needs: each bound Axis maps
// to the concrete ir.Expr computing its value (a decoded thread index
// component), and each genuine (non-fused) parameter TensorNode maps to
// the ir.Var kernel parameter backing it.
// scalarVars binds a ScalarNode carrying a reduction to the ir.Expr
// holding its already-accumulated value. Only the matmul-style
// reduce-shaped scheduler populates it; elementwise lowering never
// reads a ScalarNode and leaves the map empty.
type lowerCtx struct {
	axisVars   map[*compute.Axis]ir.Expr
	paramVars  map[*compute.TensorNode]*ir.Var
	scalarVars map[*compute.ScalarNode]ir.Expr
}

// computeToIR lowers a fully-resolved compute.Value (no remaining
// prologued reads) into an ir.Expr.
func computeToIR(v compute.Value, ctx *lowerCtx) (ir.Expr, error) {
	switch n := v.(type) {
	case *compute.Axis:
		e, ok := ctx.axisVars[n]
		if !ok {
			return nil, fmt.Errorf("kernel: axis %q has no bound index expression", n.Name)
		}
		return e, nil
	case *compute.Const:
		return constToIR(n), nil
	case *compute.Read:
		if sn, ok := n.Node.(*compute.ScalarNode); ok {
			e, ok := ctx.scalarVars[sn]
			if !ok {
				return nil, fmt.Errorf("kernel: scalar node %q read without a resolved reduction binding", sn.Name)
			}
			return e, nil
		}
		tn, ok := n.Node.(*compute.TensorNode)
		if !ok {
			return nil, fmt.Errorf("kernel: cannot lower a read of node type %T", n.Node)
		}
		param, ok := ctx.paramVars[tn]
		if !ok {
			return nil, fmt.Errorf("kernel: tensor node %q is not a bound kernel parameter", tn.Name)
		}
		indices := make([]ir.Expr, len(n.Indices))
		for i, idx := range n.Indices {
			e, err := computeToIR(idx, ctx)
			if err != nil {
				return nil, err
			}
			indices[i] = e
		}
		return &ir.TensorElement{Base: param, Indices: indices}, nil
	case *compute.Binary:
		a, err := computeToIR(n.A, ctx)
		if err != nil {
			return nil, err
		}
		b, err := computeToIR(n.B, ctx)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case compute.OpMax:
			return &ir.Call{FuncName: "max", Args: []ir.Expr{a, b}}, nil
		case compute.OpMin:
			return &ir.Call{FuncName: "min", Args: []ir.Expr{a, b}}, nil
		default:
			return &ir.Binary{Op: binOpToIR(n.Op), A: a, B: b}, nil
		}
	case *compute.Unary:
		e, err := computeToIR(n.Value, ctx)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case compute.UnaryNeg:
			return &ir.Unary{Op: ir.Neg, Expr: e}, nil
		case compute.UnaryRelu:
			zero := ir.FloatConst(0, dtype.Float32)
			return &ir.IfThenElse{
				Cond: &ir.Binary{Op: ir.Less, A: e, B: zero},
				Then: zero,
				Else: e,
			}, nil
		default:
			return nil, fmt.Errorf("kernel: unknown unary op %d", n.Op)
		}
	default:
		return nil, fmt.Errorf("kernel: cannot lower compute value of type %T", v)
	}
}

func constToIR(c *compute.Const) ir.Expr {
	switch v := c.Value.(type) {
	case int64:
		return ir.IntConst(v, c.Scalar)
	case float64:
		return ir.FloatConst(v, c.Scalar)
	default:
		return ir.FloatConst(0, c.Scalar)
	}
}

func binOpToIR(op compute.BinOp) ir.BinaryOp {
	switch op {
	case compute.OpAdd:
		return ir.Add
	case compute.OpSub:
		return ir.Sub
	case compute.OpMul:
		return ir.Multiply
	case compute.OpDiv:
		return ir.Div
	case compute.OpLess:
		return ir.Less
	case compute.OpLessEqual:
		return ir.LessEqual
	case compute.OpEqual:
		return ir.Equal
	default:
		return ir.Add
	}
}
