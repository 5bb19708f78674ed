package compute

// Substitute replaces every occurrence of the Values in rmap (compared
// by pointer/interface identity — Axis pointers, in practice) within v,
// rebuilding the tree bottom-up.
func Substitute(v Value, rmap map[Value]Value) Value {
	if repl, ok := rmap[v]; ok {
		return repl
	}
	switch n := v.(type) {
	case *Axis, *Const:
		return n
	case *Read:
		indices := make([]Value, len(n.Indices))
		for i, idx := range n.Indices {
			indices[i] = Substitute(idx, rmap)
		}
		return &Read{Node: n.Node, Indices: indices}
	case *Binary:
		return &Binary{Op: n.Op, A: Substitute(n.A, rmap), B: Substitute(n.B, rmap)}
	case *Unary:
		return &Unary{Op: n.Op, Value: Substitute(n.Value, rmap)}
	default:
		return v
	}
}

// CollectReads appends to out every *Read node in v whose Node is base
// (by pointer identity).
func CollectReads(v Value, base Node, out *[]*Read) {
	switch n := v.(type) {
	case *Read:
		if n.Node == base {
			*out = append(*out, n)
		}
		for _, idx := range n.Indices {
			CollectReads(idx, base, out)
		}
	case *Binary:
		CollectReads(n.A, base, out)
		CollectReads(n.B, base, out)
	case *Unary:
		CollectReads(n.Value, base, out)
	}
}

// InlineAt substitutes every bound axis of gc with the corresponding
// index expression from indices (len(indices) == len(gc.Axes)) and
// returns the resulting Value — i.e. "gc evaluated at indices".
func InlineAt(gc *GridCompute, indices []Value) Value {
	rmap := make(map[Value]Value, len(gc.Axes))
	for i, axis := range gc.Axes {
		rmap[axis] = indices[i]
	}
	return Substitute(gc.Value, rmap)
}
