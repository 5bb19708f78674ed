// Package compute implements the algebraic compute IR that sits inside
// a Task: TensorNode/ScalarNode expression trees whose GridCompute and
// ReduceCompute definitions describe *what* a tensor's elements are,
// not how to compute them imperatively. See spec.md §3.
package compute

import (
	"fmt"

	"github.com/hidet-go/hidet/dtype"
)

// ReduceKind is the closed set of reduction operators a ReduceCompute
// may use.
type ReduceKind int

const (
	ReduceSum ReduceKind = iota
	ReduceAvg
	ReduceMax
	ReduceMin
)

func (k ReduceKind) String() string {
	switch k {
	case ReduceSum:
		return "sum"
	case ReduceAvg:
		return "avg"
	case ReduceMax:
		return "max"
	case ReduceMin:
		return "min"
	default:
		return "unknown"
	}
}

// Value is the closed sum of algebraic compute expression nodes:
// either a reference to a bound axis Var, a TensorNode (read at
// indices), a ScalarNode (itself, as a scalar), or a Scalar arithmetic
// combinator over other Values.
type Value interface {
	isValue()
}

// Axis is a bound axis variable, scoped to the GridCompute or
// ReduceCompute that declares it.
type Axis struct {
	Name string
}

func (*Axis) isValue() {}

// Read indexes a TensorNode (or ScalarNode, with no indices) at the
// given per-axis index expressions.
type Read struct {
	Node    Node
	Indices []Value
}

func (*Read) isValue() {}

// Const is a literal scalar value appearing inside a compute expression.
type Const struct {
	Scalar dtype.ScalarType
	Value  any
}

func (*Const) isValue() {}

// BinOp is the closed set of arithmetic/comparison operators usable
// inside a compute expression.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpMax
	OpMin
	OpLess
	OpLessEqual
	OpEqual
)

// Binary combines two compute Values.
type Binary struct {
	Op   BinOp
	A, B Value
}

func (*Binary) isValue() {}

// Unary negates or otherwise transforms a single compute Value.
type UnaryKind int

const (
	UnaryNeg UnaryKind = iota
	UnaryRelu
)

type Unary struct {
	Op    UnaryKind
	Value Value
}

func (*Unary) isValue() {}

// Node is the closed sum of TensorNode and ScalarNode.
type Node interface {
	isNode()
	NodeName() string
}

// TensorNode either is an opaque named input (GridCompute == nil) or
// carries a GridCompute defining its elements. Task parameters are
// always TensorNodes, in input-then-output order (spec.md §3).
type TensorNode struct {
	Name    string
	Scalar  dtype.ScalarType
	Shape   []int // declared shape, used even for opaque inputs
	Compute *GridCompute
}

func (*TensorNode) isNode()          {}
func (t *TensorNode) NodeName() string { return t.Name }

// GridCompute defines a TensorNode's elements: a shape, one bound Axis
// per dimension (len(Axes) == len(Shape)), and a Value computed in
// those axes.
type GridCompute struct {
	Shape []int
	Axes  []*Axis
	Value Value
}

// ScalarNode either is an opaque named scalar input (Compute == nil) or
// carries a ReduceCompute.
type ScalarNode struct {
	Name    string
	Scalar  dtype.ScalarType
	Compute *ReduceCompute
}

func (*ScalarNode) isNode()          {}
func (s *ScalarNode) NodeName() string { return s.Name }

// ReduceCompute defines a ScalarNode as a reduction: a Shape/Axes pair
// over which Value is evaluated and combined with Kind.
type ReduceCompute struct {
	Shape []int
	Axes  []*Axis
	Value Value
	Kind  ReduceKind
}

// IsInjective reports whether a TensorNode's computation reads each
// input element through a bounded, statically-indexed pattern — i.e.
// it carries no reduction anywhere in its value tree. Per spec.md's
// glossary: "every output element is defined by a bounded,
// statically-indexed read pattern of inputs (e.g. elementwise, reshape,
// broadcast)". A node with no GridCompute (an opaque input) is
// trivially injective.
func (t *TensorNode) IsInjective() bool {
	if t.Compute == nil {
		return true
	}
	return valueIsInjective(t.Compute.Value)
}

func valueIsInjective(v Value) bool {
	switch n := v.(type) {
	case *Axis, *Const:
		return true
	case *Read:
		if sn, ok := n.Node.(*ScalarNode); ok && sn.Compute != nil {
			// reading a reduce-compute scalar makes the whole
			// expression non-injective: the read depends on an
			// unbounded (shape-sized) span of its inputs.
			return false
		}
		if tn, ok := n.Node.(*TensorNode); ok && tn.Compute != nil {
			return valueIsInjective(tn.Compute.Value)
		}
		for _, idx := range n.Indices {
			if !valueIsInjective(idx) {
				return false
			}
		}
		return true
	case *Binary:
		return valueIsInjective(n.A) && valueIsInjective(n.B)
	case *Unary:
		return valueIsInjective(n.Value)
	default:
		return false
	}
}

// ValueString renders a Value for diagnostics.
func ValueString(v Value) string { return valueString(v) }

func valueString(v Value) string {
	switch n := v.(type) {
	case *Axis:
		return n.Name
	case *Const:
		return fmt.Sprintf("%v", n.Value)
	case *Read:
		return fmt.Sprintf("%s%v", n.Node.NodeName(), indicesString(n.Indices))
	case *Binary:
		return fmt.Sprintf("(%s %s %s)", valueString(n.A), binOpSymbol(n.Op), valueString(n.B))
	case *Unary:
		return fmt.Sprintf("%s(%s)", unaryOpName(n.Op), valueString(n.Value))
	default:
		return "?"
	}
}

func indicesString(idx []Value) string {
	s := "["
	for i, v := range idx {
		if i != 0 {
			s += ", "
		}
		s += valueString(v)
	}
	return s + "]"
}

func binOpSymbol(op BinOp) string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMax:
		return "max"
	case OpMin:
		return "min"
	case OpLess:
		return "<"
	case OpLessEqual:
		return "<="
	case OpEqual:
		return "=="
	default:
		return "?"
	}
}

func unaryOpName(op UnaryKind) string {
	switch op {
	case UnaryNeg:
		return "neg"
	case UnaryRelu:
		return "relu"
	default:
		return "?"
	}
}
