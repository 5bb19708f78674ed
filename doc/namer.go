package doc

import "fmt"

// Namer mints deterministic, unique names for anonymous IR nodes (Vars,
// TensorNodes, Functions). Each distinct pointer identity registered
// gets one stable name for the lifetime of the Namer; repeated lookups
// of the same identity return the same name.
type Namer struct {
	prefix  string
	counter map[string]int
	assigned map[any]string
}

// NewNamer creates a Namer whose default base name is prefix ("v" if
// empty). The first name minted from a base is the base itself; later
// ones are "<base>1", "<base>2", and so on.
func NewNamer(prefix string) *Namer {
	if prefix == "" {
		prefix = "v"
	}
	return &Namer{
		prefix:   prefix,
		counter:  map[string]int{},
		assigned: map[any]string{},
	}
}

// Get returns the name assigned to key, minting one derived from hint
// (or the namer's prefix, if hint is empty) on first use.
func (n *Namer) Get(key any, hint string) string {
	if name, ok := n.assigned[key]; ok {
		return name
	}
	base := hint
	if base == "" {
		base = n.prefix
	}
	idx := n.counter[base]
	n.counter[base] = idx + 1
	name := base
	if idx > 0 {
		name = fmt.Sprintf("%s%d", base, idx)
	}
	n.assigned[key] = name
	return name
}

// Reset clears all assignments, starting fresh numbering.
func (n *Namer) Reset() {
	n.counter = map[string]int{}
	n.assigned = map[any]string{}
}
