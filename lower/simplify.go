package lower

import "github.com/hidet-go/hidet/ir"

// simplifyRewriter folds trivial arithmetic identities (x+0, x*1, x*0,
// 1*x, x-0) that earlier passes — particularly fusion's index
// substitution — routinely introduce.
type simplifyRewriter struct {
	ir.BaseStmtExprRewriter
}

func newSimplifyRewriter() *simplifyRewriter {
	r := &simplifyRewriter{}
	r.StmtSelf = r
	return r
}

func (r *simplifyRewriter) RewriteExpr(e ir.Expr) ir.Expr {
	base := ir.BaseExprRewriter{Self: r}
	rewritten := base.RewriteExpr(e)
	bin, ok := rewritten.(*ir.Binary)
	if !ok {
		return rewritten
	}
	switch bin.Op {
	case ir.Add:
		if isZeroConst(bin.B) {
			return bin.A
		}
		if isZeroConst(bin.A) {
			return bin.B
		}
	case ir.Multiply:
		if isOneConst(bin.B) {
			return bin.A
		}
		if isOneConst(bin.A) {
			return bin.B
		}
		if isZeroConst(bin.A) {
			return bin.A
		}
		if isZeroConst(bin.B) {
			return bin.B
		}
	case ir.Sub:
		if isZeroConst(bin.B) {
			return bin.A
		}
	}
	return bin
}

func isZeroConst(e ir.Expr) bool {
	c, ok := e.(*ir.Constant)
	if !ok {
		return false
	}
	switch v := c.Value.(type) {
	case int64:
		return v == 0
	case float64:
		return v == 0
	default:
		return false
	}
}

func isOneConst(e ir.Expr) bool {
	c, ok := e.(*ir.Constant)
	if !ok {
		return false
	}
	switch v := c.Value.(type) {
	case int64:
		return v == 1
	case float64:
		return v == 1
	default:
		return false
	}
}

// SimplifyFunction applies simplifyRewriter to fn's body in place.
func SimplifyFunction(fn *ir.Function) *ir.Function {
	rewriter := newSimplifyRewriter()
	fn.Body = rewriter.RewriteStmt(fn.Body)
	return fn
}

// SimplifyModule applies SimplifyFunction to every function in m.
func SimplifyModule(m *ir.IRModule) *ir.IRModule {
	for _, fn := range m.Functions {
		SimplifyFunction(fn)
	}
	return m
}
