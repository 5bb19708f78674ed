// Package build drives the external native toolchain: scheduling a
// batch of IRModules to compile in parallel, invoking the compiler
// driver as a subprocess, loading the resulting shared libraries, and
// exposing their entry points as callable functions. Device/driver
// probing is explicitly out of scope (spec.md §4.12) — Target is
// supplied by the caller.
package build

// Target names the architecture the external toolchain should compile
// for (e.g. "sm_80"). No NVML/driver probing is implemented; a caller
// that wants automatic detection supplies its own device-query
// collaborator and constructs Target from its result.
type Target struct {
	Arch string
}
