// Package onnxfront is the graph-exchange-format node layer: a neutral
// node schema (op_type, ordered input/output names, typed attributes)
// and a per-op-type operator builder registry. It consumes only that
// node schema — no graph-exchange-format file reader is implemented
// (scoped down per spec.md §6); a caller (e.g. a real format parser)
// constructs Nodes directly.
package onnxfront

import "github.com/hidet-go/hidet/dtype"

// AttrKind is the closed set of attribute value shapes a Node carries,
// mirroring the handful of attribute.AttributeProto type tags a
// graph-exchange format actually uses (float, int, string, tensor, and
// their repeated forms).
type AttrKind int

const (
	AttrFloat AttrKind = iota
	AttrInt
	AttrString
	AttrTensor
	AttrFloats
	AttrInts
	AttrStrings
)

// TensorProto is the minimal constant-tensor payload an AttrTensor
// attribute carries.
type TensorProto struct {
	Scalar dtype.ScalarType
	Shape  []int
	Data   []byte
}

// Attribute is one node attribute; exactly one of the typed fields is
// meaningful, selected by Kind.
type Attribute struct {
	Kind    AttrKind
	Float   float64
	Int     int64
	Str     string
	Tensor  *TensorProto
	Floats  []float64
	Ints    []int64
	Strings []string
}

// Node is one graph-exchange-format operator occurrence: an op type
// name, ordered input/output value names (resolved against a name ->
// Tensor table by the caller), and a typed attribute bag.
type Node struct {
	Name    string
	OpType  string
	Inputs  []string
	Outputs []string
	Attrs   map[string]Attribute
}

// plain returns the attribute's value as the bare Go type mapstructure
// should decode from: float64, int64, string, []float64, []int64,
// []string, or *TensorProto.
func (a Attribute) plain() any {
	switch a.Kind {
	case AttrFloat:
		return a.Float
	case AttrInt:
		return a.Int
	case AttrString:
		return a.Str
	case AttrTensor:
		return a.Tensor
	case AttrFloats:
		return a.Floats
	case AttrInts:
		return a.Ints
	case AttrStrings:
		return a.Strings
	default:
		return nil
	}
}
