package lower

import (
	"github.com/hidet-go/hidet/dtype"
	"github.com/hidet-go/hidet/ir"
)

// flattenIndexRewriter lowers a multi-dimensional ir.TensorElement read
// or a BufferStoreStmt's multi-index write into a single linear offset
// computed from the tensor's layout strides (row-major if Layout is
// nil), the representation codegen actually emits as a pointer
// dereference.
type flattenIndexRewriter struct {
	ir.BaseStmtExprRewriter
}

func newFlattenIndexRewriter() *flattenIndexRewriter {
	r := &flattenIndexRewriter{}
	r.StmtSelf = r
	return r
}

func (r *flattenIndexRewriter) RewriteExpr(e ir.Expr) ir.Expr {
	base := ir.BaseExprRewriter{Self: r}
	rewritten := base.RewriteExpr(e)
	te, ok := rewritten.(*ir.TensorElement)
	if !ok {
		return rewritten
	}
	tt, ok := ir.InferType(te.Base).(ir.TensorType)
	if !ok || len(te.Indices) <= 1 {
		return te
	}
	offset := linearOffset(tt, te.Indices)
	return &ir.TensorElement{Base: te.Base, Indices: []ir.Expr{offset}}
}

func (r *flattenIndexRewriter) RewriteStmt(s ir.Stmt) ir.Stmt {
	store, ok := s.(*ir.BufferStoreStmt)
	if !ok {
		base := ir.BaseStmtExprRewriter{BaseExprRewriter: ir.BaseExprRewriter{Self: r}, StmtSelf: r}
		return base.RewriteStmt(s)
	}
	buf := r.RewriteExpr(store.Buf)
	value := r.RewriteExpr(store.Value)
	indices := make([]ir.Expr, len(store.Indices))
	for i, idx := range store.Indices {
		indices[i] = r.RewriteExpr(idx)
	}
	tt, ok := ir.InferType(buf).(ir.TensorType)
	if !ok || len(indices) <= 1 {
		return &ir.BufferStoreStmt{Buf: buf, Indices: indices, Value: value}
	}
	return &ir.BufferStoreStmt{Buf: buf, Indices: []ir.Expr{linearOffset(tt, indices)}, Value: value}
}

// linearOffset builds sum(indices[i] * stride(i)) for tt's layout,
// using row-major strides when tt.Layout is nil.
func linearOffset(tt ir.TensorType, indices []ir.Expr) ir.Expr {
	strides := tt.Layout
	if strides == nil {
		strides = rowMajorStrides(tt.Shape)
	}
	var offset ir.Expr = ir.IntConst(0, dtype.Int32)
	for i, idx := range indices {
		term := ir.Expr(idx)
		if strides[i] != 1 {
			term = &ir.Binary{Op: ir.Multiply, A: idx, B: ir.IntConst(int64(strides[i]), dtype.Int32)}
		}
		offset = &ir.Binary{Op: ir.Add, A: offset, B: term}
	}
	return offset
}

func rowMajorStrides(shape []int) []int {
	strides := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= shape[i]
	}
	return strides
}

// FlattenIndexFunction applies flattenIndexRewriter to fn's body.
func FlattenIndexFunction(fn *ir.Function) *ir.Function {
	rewriter := newFlattenIndexRewriter()
	fn.Body = rewriter.RewriteStmt(fn.Body)
	return fn
}
