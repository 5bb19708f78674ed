package ir

import "github.com/hidet-go/hidet/dtype"

// Expr is the closed sum of low-level IR expressions.
type Expr interface {
	isExpr()
}

// Var is a named, typed program variable.
type Var struct {
	Name string
	Type Type
}

// Constant is a literal scalar or tensor value.
type Constant struct {
	Type  Type
	Value any // int64, float64, bool, or []byte for tensor constants
}

// Cast converts Expr's value to Target.
type Cast struct {
	Expr   Expr
	Target Type
}

// UnaryOp is the closed set of unary operators.
type UnaryOp int

const (
	Neg UnaryOp = iota
	Not
	BitwiseNot
)

// Unary applies a UnaryOp to Expr.
type Unary struct {
	Op   UnaryOp
	Expr Expr
}

// BinaryOp is the closed set of binary operators.
type BinaryOp int

const (
	Add BinaryOp = iota
	Sub
	Multiply
	Div
	FloorDiv
	Mod
	And
	Or
	Less
	LessEqual
	Equal
	BitwiseAnd
	BitwiseOr
	LeftShift
	RightShift
)

// IsArithmetic reports whether op is one of {Add, Sub, Multiply, Div},
// the set add-explicit-cast applies implicit-conversion ranking to.
func (op BinaryOp) IsArithmetic() bool {
	switch op {
	case Add, Sub, Multiply, Div:
		return true
	default:
		return false
	}
}

// Binary applies a BinaryOp to two operands.
type Binary struct {
	Op   BinaryOp
	A, B Expr
}

// Call invokes a named function with Args.
type Call struct {
	FuncName string
	Args     []Expr
}

// TensorElement reads a single element of Base at Indices.
type TensorElement struct {
	Base    Expr
	Indices []Expr
}

// TensorSlice reads a sub-tensor of Base. Starts/Ends/Steps are
// parallel slices, one entry per dimension of Base; nil entries mean
// "whole dimension".
type TensorSlice struct {
	Base   Expr
	Starts []Expr
	Ends   []Expr
	Steps  []Expr
}

// IfThenElse is a ternary conditional expression.
type IfThenElse struct {
	Cond, Then, Else Expr
}

// Let binds Var to Value within Body.
type Let struct {
	Var   *Var
	Value Expr
	Body  Expr
}

// Address takes the address of Expr.
type Address struct {
	Expr Expr
}

// Dereference dereferences a pointer Expr.
type Dereference struct {
	Expr Expr
}

// Reference takes a reference to Expr (for call-by-reference args).
type Reference struct {
	Expr Expr
}

func (*Var) isExpr()           {}
func (*Constant) isExpr()      {}
func (*Cast) isExpr()          {}
func (*Unary) isExpr()         {}
func (*Binary) isExpr()        {}
func (*Call) isExpr()          {}
func (*TensorElement) isExpr() {}
func (*TensorSlice) isExpr()   {}
func (*IfThenElse) isExpr()    {}
func (*Let) isExpr()           {}
func (*Address) isExpr()       {}
func (*Dereference) isExpr()   {}
func (*Reference) isExpr()     {}

// CastTo wraps value in a Cast to target, unless value already has
// that type (checked by the caller via TypeInfer — CastTo itself always
// inserts the node; callers that want the "no-op if same type" behavior
// use AddExplicitCastPass's convert helper in package lower).
func CastTo(value Expr, target Type) Expr {
	return &Cast{Expr: value, Target: target}
}

// IntConst builds an integer Constant of the given scalar type.
func IntConst(v int64, t dtype.ScalarType) *Constant {
	return &Constant{Type: ScalarTypeNode{Scalar: t}, Value: v}
}

// FloatConst builds a floating-point Constant of the given scalar type.
func FloatConst(v float64, t dtype.ScalarType) *Constant {
	return &Constant{Type: ScalarTypeNode{Scalar: t}, Value: v}
}
