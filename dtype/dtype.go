// Package dtype defines the scalar-type tag shared by the algebraic
// compute IR and the low-level IR, along with the implicit-conversion
// rank table used by the cast-insertion pass.
package dtype

// ScalarType is a closed tag for the element type of a Tensor or a
// low-level scalar value.
type ScalarType int

const (
	Bool ScalarType = iota
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float16
	BFloat16
	Float32
	Float64
)

// names is indexed by ScalarType; keep in sync with the const block.
var names = [...]string{
	Bool:     "bool",
	Int8:     "int8",
	Int16:    "int16",
	Int32:    "int32",
	Int64:    "int64",
	Uint8:    "uint8",
	Uint16:   "uint16",
	Uint32:   "uint32",
	Uint64:   "uint64",
	Float16:  "float16",
	BFloat16: "bfloat16",
	Float32:  "float32",
	Float64:  "float64",
}

func (s ScalarType) String() string {
	if int(s) < 0 || int(s) >= len(names) {
		return "unknown"
	}
	return names[s]
}

// rank orders types for implicit-conversion ranking: bool < int8 <
// int16 < int32 < int64 < float16 ~= bfloat16 < float32 < float64.
// float16 and bfloat16 share a rank: neither implicitly wins over the
// other, which is exactly why the bridge rule in the cast pass exists.
var rank = [...]int{
	Bool:     0,
	Int8:     1,
	Int16:    2,
	Int32:    3,
	Int64:    4,
	Uint8:    1,
	Uint16:   2,
	Uint32:   3,
	Uint64:   4,
	Float16:  5,
	BFloat16: 5,
	Float32:  6,
	Float64:  7,
}

// Rank returns the implicit-conversion rank of s. A lower rank converts
// to a higher one in mixed binary operations.
func (s ScalarType) Rank() int {
	return rank[s]
}

// IsFloat16Family reports whether s is float16 or bfloat16, the pair
// that must bridge through float32 when cast to one another.
func (s ScalarType) IsFloat16Family() bool {
	return s == Float16 || s == BFloat16
}

// Higher returns the type with the higher conversion rank between a
// and b. Ties (e.g. float16 vs bfloat16) return a.
func Higher(a, b ScalarType) ScalarType {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}
