package onnxfront

import "github.com/mitchellh/mapstructure"

// Decode fills out (a pointer to a struct tagged with `mapstructure`
// keys matching attribute names) from a Node's loosely-typed Attrs bag,
// the Go analogue of a Python operator's repeated `self.attrs.get(...)`
// calls in the original importer.
func Decode(attrs map[string]Attribute, out any) error {
	plain := make(map[string]any, len(attrs))
	for name, a := range attrs {
		plain[name] = a.plain()
	}
	return mapstructure.Decode(plain, out)
}
