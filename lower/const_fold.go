package lower

import "github.com/hidet-go/hidet/ir"

// constFoldRewriter evaluates a Binary/Unary whose operands are all
// ir.Constant, replacing it with a single folded Constant; a Cast of a
// constant is left as is. Lower runs it before AddExplicitCastPass.
type constFoldRewriter struct {
	ir.BaseExprRewriter
}

func newConstFoldRewriter() *constFoldRewriter {
	r := &constFoldRewriter{}
	r.Self = r
	return r
}

func (r *constFoldRewriter) RewriteExpr(e ir.Expr) ir.Expr {
	base := ir.BaseExprRewriter{Self: r}
	rewritten := base.RewriteExpr(e)
	switch v := rewritten.(type) {
	case *ir.Binary:
		a, aok := v.A.(*ir.Constant)
		b, bok := v.B.(*ir.Constant)
		if aok && bok {
			if folded, ok := foldBinary(v.Op, a, b); ok {
				return folded
			}
		}
	case *ir.Unary:
		if c, ok := v.Expr.(*ir.Constant); ok {
			if folded, ok := foldUnary(v.Op, c); ok {
				return folded
			}
		}
	}
	return rewritten
}

func foldBinary(op ir.BinaryOp, a, b *ir.Constant) (*ir.Constant, bool) {
	af, aok := constFloat(a)
	bf, bok := constFloat(b)
	if !aok || !bok {
		return nil, false
	}
	var result float64
	switch op {
	case ir.Add:
		result = af + bf
	case ir.Sub:
		result = af - bf
	case ir.Multiply:
		result = af * bf
	case ir.Div:
		if bf == 0 {
			return nil, false
		}
		result = af / bf
	default:
		return nil, false
	}
	if isIntConstant(a) && isIntConstant(b) && op != ir.Div {
		return ir.IntConst(int64(result), a.Type.(ir.ScalarTypeNode).Scalar), true
	}
	return ir.FloatConst(result, a.Type.(ir.ScalarTypeNode).Scalar), true
}

func foldUnary(op ir.UnaryOp, c *ir.Constant) (*ir.Constant, bool) {
	f, ok := constFloat(c)
	if !ok {
		return nil, false
	}
	switch op {
	case ir.Neg:
		if isIntConstant(c) {
			return ir.IntConst(-int64(f), c.Type.(ir.ScalarTypeNode).Scalar), true
		}
		return ir.FloatConst(-f, c.Type.(ir.ScalarTypeNode).Scalar), true
	default:
		return nil, false
	}
}

func constFloat(c *ir.Constant) (float64, bool) {
	switch v := c.Value.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

func isIntConstant(c *ir.Constant) bool {
	_, ok := c.Value.(int64)
	return ok
}

// ConstFoldFunction applies constFoldRewriter to fn's body.
func ConstFoldFunction(fn *ir.Function) *ir.Function {
	rewriter := newConstFoldRewriter()
	fn.Body = rewriteStmtWith(rewriter, fn.Body)
	return fn
}

// rewriteStmtWith threads an ExprRewriter-only pass (constFoldRewriter
// has no statement-level override) through a Stmt via the base
// statement rewriter, whose expression hook is the given rewriter.
func rewriteStmtWith(er ir.ExprRewriter, s ir.Stmt) ir.Stmt {
	t := &statementThreader{expr: er}
	t.StmtSelf = t
	return t.RewriteStmt(s)
}

type statementThreader struct {
	ir.BaseStmtExprRewriter
	expr ir.ExprRewriter
}

func (t *statementThreader) RewriteExpr(e ir.Expr) ir.Expr {
	return t.expr.RewriteExpr(e)
}
