// Package ir defines the low-level imperative IR: types, expressions,
// statements, and the Function/IRModule top-level containers. The
// variant sets are closed; code that needs to handle every case should
// type-switch exhaustively rather than rely on a visitor-plus-dispatch
// double-dispatch pattern (see SPEC_FULL.md §9).
package ir

import (
	"fmt"

	"github.com/hidet-go/hidet/dtype"
)

// Type is the closed sum of low-level IR types.
type Type interface {
	isType()
}

// ScalarTypeNode wraps a dtype.ScalarType as a Type.
type ScalarTypeNode struct {
	Scalar dtype.ScalarType
}

// TensorScope describes where a TensorType's backing storage lives.
type TensorScope int

const (
	ScopeGlobal TensorScope = iota
	ScopeShared
	ScopeRegister
)

func (s TensorScope) String() string {
	switch s {
	case ScopeGlobal:
		return "global"
	case ScopeShared:
		return "shared"
	case ScopeRegister:
		return "register"
	default:
		return "unknown"
	}
}

// TensorType is a tensor value: an element type, a shape, the storage
// scope it lives in, and a layout describing strides (nil means
// row-major contiguous).
type TensorType struct {
	Scalar dtype.ScalarType
	Shape  []int
	Scope  TensorScope
	Layout []int // strides; nil means contiguous row-major of Shape
}

// PointerType is a raw pointer to a Base type.
type PointerType struct {
	Base Type
}

// TensorPointerType is a pointer specifically typed to a TensorType,
// carrying shape/layout information for indexing.
type TensorPointerType struct {
	Tensor TensorType
}

// ReferenceType is a reference (alias) to a Base type, used for
// call-by-reference parameters.
type ReferenceType struct {
	Base Type
}

// VoidType is the empty type, used as a function's return type when it
// returns nothing.
type VoidType struct{}

func (ScalarTypeNode) isType()    {}
func (TensorType) isType()        {}
func (PointerType) isType()       {}
func (TensorPointerType) isType() {}
func (ReferenceType) isType()     {}
func (VoidType) isType()          {}

// ScalarOf extracts the scalar element type that a store/assign site
// targets, unwrapping TensorType, TensorPointerType and PointerType as
// specified in spec.md §4.6. Panics on VoidType/ReferenceType, which are
// never valid store destinations.
func ScalarOf(t Type) dtype.ScalarType {
	switch v := t.(type) {
	case ScalarTypeNode:
		return v.Scalar
	case TensorType:
		return v.Scalar
	case TensorPointerType:
		return v.Tensor.Scalar
	case PointerType:
		return ScalarOf(v.Base)
	default:
		panic(fmt.Sprintf("ir: cannot recognize the buffer type: %T", t))
	}
}

// TypeString renders t for diagnostics and codegen.
func TypeString(t Type) string {
	switch v := t.(type) {
	case ScalarTypeNode:
		return v.Scalar.String()
	case TensorType:
		return fmt.Sprintf("tensor(%s, %v, %s)", v.Scalar, v.Shape, v.Scope)
	case PointerType:
		return fmt.Sprintf("*%s", TypeString(v.Base))
	case TensorPointerType:
		return fmt.Sprintf("*tensor(%s, %v)", v.Tensor.Scalar, v.Tensor.Shape)
	case ReferenceType:
		return fmt.Sprintf("&%s", TypeString(v.Base))
	case VoidType:
		return "void"
	default:
		return "?"
	}
}

// SameType reports structural type equality, following the same
// unwrapping hierarchy as hidet's TypeChecker in add_explicit_cast.py.
func SameType(a, b Type) bool {
	switch av := a.(type) {
	case ScalarTypeNode:
		bv, ok := b.(ScalarTypeNode)
		return ok && av.Scalar == bv.Scalar
	case TensorType:
		bv, ok := b.(TensorType)
		return ok && av.Scalar == bv.Scalar
	case PointerType:
		bv, ok := b.(PointerType)
		return ok && SameType(av.Base, bv.Base)
	case TensorPointerType:
		bv, ok := b.(TensorPointerType)
		return ok && av.Tensor.Scalar == bv.Tensor.Scalar
	case ReferenceType:
		bv, ok := b.(ReferenceType)
		return ok && SameType(av.Base, bv.Base)
	case VoidType:
		_, ok := b.(VoidType)
		return ok
	default:
		return false
	}
}
