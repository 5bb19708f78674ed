package ir

import "github.com/hidet-go/hidet/dtype"

// InferType computes the type of e without mutating it. Kept minimal:
// only the node kinds add_explicit_cast and the lowering pipeline
// actually need types for (arithmetic operands, cast sources, store
// destinations) are covered precisely; anything else falls back to
// VoidType rather than guessing.
func InferType(e Expr) Type {
	switch v := e.(type) {
	case *Var:
		return v.Type
	case *Constant:
		return v.Type
	case *Cast:
		return v.Target
	case *Unary:
		return InferType(v.Expr)
	case *Binary:
		switch v.Op {
		case Less, LessEqual, Equal, And, Or:
			return ScalarTypeNode{Scalar: dtype.Bool}
		default:
			return higherType(InferType(v.A), InferType(v.B))
		}
	case *TensorElement:
		return ScalarTypeNode{Scalar: ScalarOf(InferType(v.Base))}
	case *TensorSlice:
		return InferType(v.Base)
	case *IfThenElse:
		return InferType(v.Then)
	case *Let:
		return InferType(v.Body)
	case *Address:
		return PointerType{Base: InferType(v.Expr)}
	case *Dereference:
		if p, ok := InferType(v.Expr).(PointerType); ok {
			return p.Base
		}
		return VoidType{}
	case *Reference:
		return ReferenceType{Base: InferType(v.Expr)}
	case *Call:
		return VoidType{}
	default:
		return VoidType{}
	}
}

func higherType(a, b Type) Type {
	as, aok := a.(ScalarTypeNode)
	bs, bok := b.(ScalarTypeNode)
	if aok && bok {
		if bs.Scalar.Rank() > as.Scalar.Rank() {
			return bs
		}
		return as
	}
	return a
}
