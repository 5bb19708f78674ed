package ir

// ExprRewriter rewrites an expression tree bottom-up. Embed
// BaseExprRewriter and override only the cases a concrete pass cares
// about; RewriteExpr dispatches through the closed variant set via a
// type switch rather than double-dispatch, per SPEC_FULL.md §9.
type ExprRewriter interface {
	RewriteExpr(e Expr) Expr
}

// BaseExprRewriter recursively rewrites every child of a node and
// reconstructs the node, forming the identity rewrite. A subclass
// (in Go: a wrapper type holding a *BaseExprRewriter) overrides
// individual visit methods to change behavior for specific node kinds.
type BaseExprRewriter struct {
	// Self lets embedding rewriters participate in recursive calls from
	// the base methods below (e.g. visit_Binary calling self(e.A)).
	// When nil, the base methods recurse into themselves.
	Self ExprRewriter
}

func (r *BaseExprRewriter) self() ExprRewriter {
	if r.Self != nil {
		return r.Self
	}
	return r
}

// RewriteExpr implements the default (identity) rewrite for every Expr
// variant by recursing into children through r.self().
func (r *BaseExprRewriter) RewriteExpr(e Expr) Expr {
	rec := r.self().RewriteExpr
	switch v := e.(type) {
	case *Var:
		return v
	case *Constant:
		return v
	case *Cast:
		return &Cast{Expr: rec(v.Expr), Target: v.Target}
	case *Unary:
		return &Unary{Op: v.Op, Expr: rec(v.Expr)}
	case *Binary:
		return &Binary{Op: v.Op, A: rec(v.A), B: rec(v.B)}
	case *Call:
		args := make([]Expr, len(v.Args))
		for i, a := range v.Args {
			args[i] = rec(a)
		}
		return &Call{FuncName: v.FuncName, Args: args}
	case *TensorElement:
		idx := make([]Expr, len(v.Indices))
		for i, a := range v.Indices {
			idx[i] = rec(a)
		}
		return &TensorElement{Base: rec(v.Base), Indices: idx}
	case *TensorSlice:
		return &TensorSlice{
			Base:   rec(v.Base),
			Starts: rewriteAll(rec, v.Starts),
			Ends:   rewriteAll(rec, v.Ends),
			Steps:  rewriteAll(rec, v.Steps),
		}
	case *IfThenElse:
		return &IfThenElse{Cond: rec(v.Cond), Then: rec(v.Then), Else: rec(v.Else)}
	case *Let:
		return &Let{Var: v.Var, Value: rec(v.Value), Body: rec(v.Body)}
	case *Address:
		return &Address{Expr: rec(v.Expr)}
	case *Dereference:
		return &Dereference{Expr: rec(v.Expr)}
	case *Reference:
		return &Reference{Expr: rec(v.Expr)}
	default:
		return e
	}
}

func rewriteAll(rec func(Expr) Expr, exprs []Expr) []Expr {
	if exprs == nil {
		return nil
	}
	out := make([]Expr, len(exprs))
	for i, e := range exprs {
		if e == nil {
			continue
		}
		out[i] = rec(e)
	}
	return out
}

// StmtExprRewriter rewrites both statements and expressions bottom-up.
type StmtExprRewriter interface {
	ExprRewriter
	RewriteStmt(s Stmt) Stmt
}

// BaseStmtExprRewriter is the identity rewrite for statements, deferring
// to an embedded expression rewriter for the Exprs inside each Stmt.
type BaseStmtExprRewriter struct {
	BaseExprRewriter
	StmtSelf StmtExprRewriter
}

func (r *BaseStmtExprRewriter) self() StmtExprRewriter {
	if r.StmtSelf != nil {
		return r.StmtSelf
	}
	return r
}

// RewriteExpr dispatches to the base expr rewriter using the combined
// self so expression overrides on the embedding type are honored from
// within the statement recursion too.
func (r *BaseStmtExprRewriter) RewriteExpr(e Expr) Expr {
	base := BaseExprRewriter{Self: r.self()}
	return base.RewriteExpr(e)
}

// RewriteStmt implements the default (identity) rewrite for every Stmt
// variant, recursing through r.self() for nested statements/expressions.
func (r *BaseStmtExprRewriter) RewriteStmt(s Stmt) Stmt {
	self := r.self()
	rs := self.RewriteStmt
	re := self.RewriteExpr
	switch v := s.(type) {
	case *AssignStmt:
		return &AssignStmt{Var: v.Var, Value: re(v.Value)}
	case *BufferStoreStmt:
		idx := make([]Expr, len(v.Indices))
		for i, e := range v.Indices {
			idx[i] = re(e)
		}
		return &BufferStoreStmt{Buf: re(v.Buf), Indices: idx, Value: re(v.Value)}
	case *EvaluateStmt:
		return &EvaluateStmt{Expr: re(v.Expr)}
	case *SeqStmt:
		stmts := make([]Stmt, len(v.Stmts))
		for i, st := range v.Stmts {
			stmts[i] = rs(st)
		}
		return &SeqStmt{Stmts: stmts}
	case *IfStmt:
		var elseStmt Stmt
		if v.Else != nil {
			elseStmt = rs(v.Else)
		}
		return &IfStmt{Cond: re(v.Cond), Then: rs(v.Then), Else: elseStmt}
	case *ForStmt:
		return &ForStmt{Var: v.Var, Extent: re(v.Extent), Body: rs(v.Body), Unroll: v.Unroll}
	case *LetStmt:
		return &LetStmt{Var: v.Var, Value: re(v.Value), Body: rs(v.Body)}
	case *ReturnStmt:
		var val Expr
		if v.Value != nil {
			val = re(v.Value)
		}
		return &ReturnStmt{Value: val}
	case *AssertStmt:
		return &AssertStmt{Cond: re(v.Cond), Msg: v.Msg}
	case *AsmStmt:
		return &AsmStmt{Template: v.Template, Outputs: rewriteAll(re, v.Outputs), Inputs: rewriteAll(re, v.Inputs), Volatile: v.Volatile}
	case *BlackBoxStmt:
		return &BlackBoxStmt{Template: v.Template, Holes: rewriteAll(re, v.Holes)}
	default:
		return s
	}
}

// Collect walks e and every descendant, appending to out each node for
// which match returns true.
func Collect(e Expr, match func(Expr) bool, out *[]Expr) {
	if e == nil {
		return
	}
	if match(e) {
		*out = append(*out, e)
	}
	switch v := e.(type) {
	case *Cast:
		Collect(v.Expr, match, out)
	case *Unary:
		Collect(v.Expr, match, out)
	case *Binary:
		Collect(v.A, match, out)
		Collect(v.B, match, out)
	case *Call:
		for _, a := range v.Args {
			Collect(a, match, out)
		}
	case *TensorElement:
		Collect(v.Base, match, out)
		for _, a := range v.Indices {
			Collect(a, match, out)
		}
	case *TensorSlice:
		Collect(v.Base, match, out)
		for _, a := range v.Starts {
			Collect(a, match, out)
		}
		for _, a := range v.Ends {
			Collect(a, match, out)
		}
		for _, a := range v.Steps {
			Collect(a, match, out)
		}
	case *IfThenElse:
		Collect(v.Cond, match, out)
		Collect(v.Then, match, out)
		Collect(v.Else, match, out)
	case *Let:
		Collect(v.Value, match, out)
		Collect(v.Body, match, out)
	case *Address:
		Collect(v.Expr, match, out)
	case *Dereference:
		Collect(v.Expr, match, out)
	case *Reference:
		Collect(v.Expr, match, out)
	}
}

// SubstituteExpr performs a capture-avoiding-enough substitution of
// every Expr key in rmap found (by pointer identity) within e. Used to
// splice one compute node's body into another during fusion.
func SubstituteExpr(e Expr, rmap map[Expr]Expr) Expr {
	if repl, ok := rmap[e]; ok {
		return repl
	}
	rewriter := &exprSubstituter{rmap: rmap}
	return rewriter.RewriteExpr(e)
}

type exprSubstituter struct {
	BaseExprRewriter
	rmap map[Expr]Expr
}

func (s *exprSubstituter) RewriteExpr(e Expr) Expr {
	if repl, ok := s.rmap[e]; ok {
		return repl
	}
	base := BaseExprRewriter{Self: s}
	return base.RewriteExpr(e)
}
