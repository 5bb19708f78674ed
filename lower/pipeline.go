package lower

import "github.com/hidet-go/hidet/ir"

// Lower runs the full lowering pipeline over m in the order a closed
// IR needs: flatten multi-dimensional tensor indices into linear
// offsets first (so later passes only ever see scalar-indexed
// TensorElements), fold constants, simplify identities the folder
// exposes, then insert explicit casts last so they see the final
// expression shapes rather than pre-simplification ones.
func Lower(m *ir.IRModule) *ir.IRModule {
	for _, fn := range m.Functions {
		FlattenIndexFunction(fn)
		ConstFoldFunction(fn)
		SimplifyFunction(fn)
	}
	return AddExplicitCastModule(m)
}
