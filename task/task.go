// Package task implements the per-operator algebraic specification
// (Task) and its fusion carriers (Prologue, Epilogue), per spec.md §3-4.
package task

import (
	"fmt"

	"github.com/hidet-go/hidet/compute"
	"github.com/hidet-go/hidet/ir"
)

// InverseMap drives epilogue fusion's out_indices computation
// (spec.md §4.3): when a consumer task is folded into a producer as an
// Epilogue, the producer writes at its own GridCompute axis values, and
// those same values are the position at which the (now-fused) consumer
// read its input. Forward maps that shared index tuple onto the
// consumer's own output index tuple, so the fused write lands at the
// right position even when the consumer's output has a different shape
// than the producer's (e.g. a reshape). For the shape-preserving
// elementwise tasks this module builds, Forward is the identity
// function. It is nil for tasks with no well-defined inverse (e.g.
// reductions), in which case epilogue fusion cannot apply.
type InverseMap struct {
	Forward func(indices []compute.Value) []compute.Value
}

// Prologue is an inlineable producer view of a task input: wherever the
// task's original input is read at Indices, substitute Value. See
// spec.md §3 "Prologue".
type Prologue struct {
	ExtraInputs []*compute.TensorNode
	Indices     []*compute.Axis
	Value       compute.Value
}

// Epilogue is the write-side analogue of Prologue: rewrites what gets
// written to a task output. OrigValue is the placeholder standing for
// the pre-fusion value being written; Value is the post-fusion
// expression (which may reference OrigValue). OutIndices/OutTensor
// describe the actual destination buffer, which may have a different
// shape than the original output (e.g. after an epilogue reshape).
type Epilogue struct {
	ExtraInputs []*compute.TensorNode
	Indices     []*compute.Axis
	OrigValue   *compute.Axis // placeholder value node, not a real axis; see NewEpiloguePlaceholder
	Value       compute.Value
	OutIndices  []compute.Value
	OutTensor   *compute.TensorNode
}

// NewEpiloguePlaceholder mints a fresh placeholder node for an
// Epilogue's OrigValue slot. It is never bound by any GridCompute; it
// exists purely as an identity to substitute at codegen/lowering time.
func NewEpiloguePlaceholder(name string) *compute.Axis {
	return &compute.Axis{Name: name}
}

// Task is a self-contained algebraic specification of one operator's
// computation, independent of schedule.
type Task struct {
	Name       string
	Parameters []*compute.TensorNode // inputs then outputs, exactly len(op.Inputs)+len(op.Outputs)
	Inputs     []*compute.TensorNode // original (pre-fusion) input TensorNodes
	Outputs    []*compute.TensorNode
	Inverse    map[*compute.TensorNode]*InverseMap // keyed by output
	Prologues  map[*compute.TensorNode]*Prologue   // keyed by a TensorNode in Parameters
	Epilogues  map[*compute.TensorNode]*Epilogue   // keyed by a TensorNode in Parameters
	Attrs      map[string]any
}

// NewTask constructs a Task whose Parameters is Inputs followed by
// Outputs, satisfying the len(Parameters) == len(Inputs)+len(Outputs)
// invariant at construction time.
func NewTask(name string, inputs, outputs []*compute.TensorNode) *Task {
	params := make([]*compute.TensorNode, 0, len(inputs)+len(outputs))
	params = append(params, inputs...)
	params = append(params, outputs...)
	return &Task{
		Name:       name,
		Parameters: params,
		Inputs:     inputs,
		Outputs:    outputs,
		Inverse:    map[*compute.TensorNode]*InverseMap{},
		Prologues:  map[*compute.TensorNode]*Prologue{},
		Epilogues:  map[*compute.TensorNode]*Epilogue{},
		Attrs:      map[string]any{},
	}
}

// Copy returns a shallow copy of t suitable for a fusion pass to mutate
// without disturbing the original (spec.md §4.2's `task = u_task.copy()`).
// Parameters/Inputs/Outputs slices are copied (not their elements);
// Prologues/Epilogues maps are copied one level deep.
func (t *Task) Copy() *Task {
	c := &Task{
		Name:       t.Name,
		Parameters: append([]*compute.TensorNode(nil), t.Parameters...),
		Inputs:     append([]*compute.TensorNode(nil), t.Inputs...),
		Outputs:    append([]*compute.TensorNode(nil), t.Outputs...),
		Inverse:    make(map[*compute.TensorNode]*InverseMap, len(t.Inverse)),
		Prologues:  make(map[*compute.TensorNode]*Prologue, len(t.Prologues)),
		Epilogues:  make(map[*compute.TensorNode]*Epilogue, len(t.Epilogues)),
		Attrs:      make(map[string]any, len(t.Attrs)),
	}
	for k, v := range t.Inverse {
		c.Inverse[k] = v
	}
	for k, v := range t.Prologues {
		c.Prologues[k] = v
	}
	for k, v := range t.Epilogues {
		c.Epilogues[k] = v
	}
	for k, v := range t.Attrs {
		c.Attrs[k] = v
	}
	return c
}

// TaskName satisfies ir.TaskRef.
func (t *Task) TaskName() string { return t.Name }

// ParamTypes satisfies ir.TaskRef: the low-level tensor type of each
// parameter, in order.
func (t *Task) ParamTypes() []ir.Type {
	types := make([]ir.Type, len(t.Parameters))
	for i, p := range t.Parameters {
		types[i] = ir.TensorType{Scalar: p.Scalar, Shape: p.Shape, Scope: ir.ScopeGlobal}
	}
	return types
}

// Validate checks the invariants spec.md §3 states for Task: parameter
// arity and the no-simultaneous-prologue-and-epilogue rule.
func (t *Task) Validate(numOpInputs, numOpOutputs int) error {
	if len(t.Parameters) != numOpInputs+numOpOutputs {
		return fmt.Errorf("task %q: len(parameters)=%d, want %d (inputs)+%d (outputs)",
			t.Name, len(t.Parameters), numOpInputs, numOpOutputs)
	}
	for _, p := range t.Parameters[:numOpInputs] {
		if t.Prologues[p] != nil && t.Epilogues[p] != nil {
			return fmt.Errorf("task %q: parameter %q carries both a prologue and an epilogue", t.Name, p.Name)
		}
	}
	for key := range t.Prologues {
		if !containsNode(t.Parameters, key) {
			return fmt.Errorf("task %q: prologue key not found in parameters", t.Name)
		}
	}
	for key := range t.Epilogues {
		if !containsNode(t.Parameters, key) {
			return fmt.Errorf("task %q: epilogue key not found in parameters", t.Name)
		}
	}
	return nil
}

func containsNode(params []*compute.TensorNode, key *compute.TensorNode) bool {
	for _, p := range params {
		if p == key {
			return true
		}
	}
	return false
}

// IsInjective reports whether every output of t is defined as a pure
// GridCompute with no reduction anywhere in its value tree — the
// condition spec.md's fusion passes require of a fusion producer.
func IsInjective(t *Task) bool {
	for _, out := range t.Outputs {
		if out.Compute == nil {
			return false
		}
		if !out.IsInjective() {
			return false
		}
	}
	return true
}

// IsUnaryInjective reports IsInjective(t) && len(t.Inputs) == 1, the
// stricter condition some schedule-selection heuristics use (kept for
// parity with hidet's is_unary_injective_task; unused by the fusion
// passes themselves, which only require IsInjective plus a single
// output per spec.md §4.2).
func IsUnaryInjective(t *Task) bool {
	return IsInjective(t) && len(t.Inputs) == 1
}
