package graph

// IsBarrier reports whether op has opted out of fusion (spec.md
// glossary: "Barrier"). A nil operator (should not occur in a valid
// graph) is conservatively treated as a barrier.
func IsBarrier(op *Operator) bool {
	return op == nil || op.Barrier
}
