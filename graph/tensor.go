// Package graph implements the FlowGraph layer: Tensor, Operator, and
// the graph itself, plus tracing and usage analysis (spec.md §3-4.1).
package graph

import "github.com/hidet-go/hidet/dtype"

// Device tags where a Tensor's data lives.
type Device int

const (
	DeviceCUDA Device = iota
	DeviceCPU
)

func (d Device) String() string {
	if d == DeviceCPU {
		return "cpu"
	}
	return "cuda"
}

// Tensor is a logical n-dimensional array value in the FlowGraph. A
// Tensor is exactly one of: a graph input (Producer == nil, Storage ==
// nil), a constant (Producer == nil, Storage != nil), or an
// intermediate/output (Producer != nil). Shape entries may be negative
// to denote a symbolic dimension captured during tracing (e.g. a
// dynamic batch size), per spec.md §3.
type Tensor struct {
	Scalar      dtype.ScalarType
	Shape       []int
	Device      Device
	Producer    *Operator
	OutputIndex int
	Storage     []byte // non-nil only for constants
}

// IsInput reports whether t is a graph input (no producer, no storage).
func (t *Tensor) IsInput() bool { return t.Producer == nil && t.Storage == nil }

// IsConstant reports whether t is a constant (no producer, has storage).
func (t *Tensor) IsConstant() bool { return t.Producer == nil && t.Storage != nil }

// IsIntermediate reports whether t is produced by an Operator.
func (t *Tensor) IsIntermediate() bool { return t.Producer != nil }

// NewInput creates a graph-input Tensor with the given shape/dtype.
func NewInput(scalar dtype.ScalarType, shape []int) *Tensor {
	return &Tensor{Scalar: scalar, Shape: shape, Device: DeviceCUDA}
}

// NewConstant creates a constant Tensor that owns data.
func NewConstant(scalar dtype.ScalarType, shape []int, data []byte) *Tensor {
	return &Tensor{Scalar: scalar, Shape: shape, Device: DeviceCUDA, Storage: data}
}
