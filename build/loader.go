package build

import (
	"fmt"

	"github.com/ebitengine/purego"
	"github.com/hidet-go/hidet/herrors"
	"github.com/hidet-go/hidet/ir"
	"github.com/hidet-go/hidet/task"
)

// PackedFunc is a dynamically-typed callable bound to a resolved
// library symbol, the Go analogue of the original importer's
// PackedFunc(param_types, c_func_pointer): argument count is checked
// against ParamTypes, but argument marshalling stays untyped (raw
// device pointers / scalars as uintptr) since this package has no
// compile-time knowledge of what a caller's tensor storage looks like.
type PackedFunc struct {
	symbol     uintptr
	paramTypes []ir.Type
}

// Call invokes the packed function with args (one per ParamTypes
// entry, typically device pointers for tensor parameters), returning
// the raw result of the underlying symbol.
func (f *PackedFunc) Call(args ...uintptr) (uintptr, error) {
	if len(args) != len(f.paramTypes) {
		return 0, herrors.New(herrors.KindLoad, "build.PackedFunc.Call", fmt.Errorf("packed func expects %d argument(s), got %d", len(f.paramTypes), len(args)))
	}
	r1, _, errno := purego.SyscallN(f.symbol, args...)
	if errno != 0 {
		return 0, herrors.New(herrors.KindLoad, "build.PackedFunc.Call", fmt.Errorf("packed func call failed: errno %d", errno))
	}
	return r1, nil
}

// ParamTypes returns the parameter types this function was loaded
// against.
func (f *PackedFunc) ParamTypes() []ir.Type { return f.paramTypes }

// CompiledFunction is a named, loaded kernel entry point plus the
// library handle that owns it; Close releases the library reference
// once the caller is done invoking it.
type CompiledFunction struct {
	Name string
	Func *PackedFunc
	lib  *LoadedSharedLibrary
}

// Close releases the underlying library reference.
func (c *CompiledFunction) Close() error { return c.lib.Close() }

// LoadTaskFunc loads t's entry function ("hidet_<task.Name>") from the
// shared library at libPath, grounded on the original importer's
// load_task_func.
func LoadTaskFunc(cache *LibraryCache, libPath string, t *task.Task) (*CompiledFunction, error) {
	return loadNamedFunc(cache, libPath, t.Name, t.ParamTypes())
}

// LoadLibFunc loads the entry point "hidet_" + funcName from libPath,
// grounded on the original importer's load_lib_func (used for
// functions not tied to a single Task, e.g. a shared init routine).
func LoadLibFunc(cache *LibraryCache, libPath, funcName string, paramTypes []ir.Type) (*CompiledFunction, error) {
	return loadNamedFunc(cache, libPath, funcName, paramTypes)
}

func loadNamedFunc(cache *LibraryCache, libPath, name string, paramTypes []ir.Type) (*CompiledFunction, error) {
	lib, err := cache.Load(libPath)
	if err != nil {
		return nil, err
	}
	symbol, err := lib.Symbol("hidet_" + name)
	if err != nil {
		_ = lib.Close()
		return nil, err
	}
	return &CompiledFunction{
		Name: name,
		Func: &PackedFunc{symbol: symbol, paramTypes: paramTypes},
		lib:  lib,
	}, nil
}
