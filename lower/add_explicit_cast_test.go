package lower_test

import (
	"testing"

	"github.com/hidet-go/hidet/dtype"
	"github.com/hidet-go/hidet/ir"
	"github.com/hidet-go/hidet/lower"
	"github.com/stretchr/testify/require"
)

func scalarVar(name string, s dtype.ScalarType) *ir.Var {
	return &ir.Var{Name: name, Type: ir.ScalarTypeNode{Scalar: s}}
}

// TestAddExplicitCastRanking checks that mixed-rank binary operands get
// the lower-rank side cast up, never the reverse.
func TestAddExplicitCastRanking(t *testing.T) {
	a := scalarVar("a", dtype.Int32)
	b := scalarVar("b", dtype.Float32)
	fn := &ir.Function{
		Name:   "f",
		Params: []*ir.Var{a, b},
		Body:   &ir.AssignStmt{Var: scalarVar("r", dtype.Float32), Value: &ir.Binary{Op: ir.Add, A: a, B: b}},
	}

	out := lower.AddExplicitCastPass(fn)
	assign := out.Body.(*ir.AssignStmt)
	bin := assign.Value.(*ir.Binary)

	cast, ok := bin.A.(*ir.Cast)
	require.True(t, ok, "the lower-rank operand (int32) must be cast up")
	require.Equal(t, ir.ScalarTypeNode{Scalar: dtype.Float32}, cast.Target)
	require.Equal(t, a, cast.Expr)
	require.Equal(t, b, bin.B, "the higher-rank operand must pass through unchanged")
}

// TestAddExplicitCastBridgesFloat16Family checks Open Question (ii)'s
// resolution: float16<->bfloat16 always bridges through float32.
func TestAddExplicitCastBridgesFloat16Family(t *testing.T) {
	src := scalarVar("x", dtype.Float16)
	target := &ir.Var{Name: "y", Type: ir.ScalarTypeNode{Scalar: dtype.BFloat16}}
	fn := &ir.Function{
		Name: "f",
		Body: &ir.AssignStmt{Var: target, Value: src},
	}

	out := lower.AddExplicitCastPass(fn)
	assign := out.Body.(*ir.AssignStmt)
	outer, ok := assign.Value.(*ir.Cast)
	require.True(t, ok)
	require.Equal(t, ir.ScalarTypeNode{Scalar: dtype.BFloat16}, outer.Target)

	inner, ok := outer.Expr.(*ir.Cast)
	require.True(t, ok, "float16->bfloat16 must bridge through an intermediate cast")
	require.Equal(t, ir.ScalarTypeNode{Scalar: dtype.Float32}, inner.Target)
}

// TestAddExplicitCastIdempotent: running the pass twice must not add a
// second layer of casts on top of an already-cast expression.
func TestAddExplicitCastIdempotent(t *testing.T) {
	a := scalarVar("a", dtype.Int32)
	target := scalarVar("r", dtype.Float32)
	fn := &ir.Function{
		Name: "f",
		Body: &ir.AssignStmt{Var: target, Value: a},
	}

	once := lower.AddExplicitCastPass(fn)
	onceStr := exprDepth(once.Body.(*ir.AssignStmt).Value)

	twice := lower.AddExplicitCastPass(once)
	twiceStr := exprDepth(twice.Body.(*ir.AssignStmt).Value)

	require.Equal(t, onceStr, twiceStr, "re-running the pass must be a fixed point")
}

func exprDepth(e ir.Expr) int {
	c, ok := e.(*ir.Cast)
	if !ok {
		return 0
	}
	return 1 + exprDepth(c.Expr)
}
