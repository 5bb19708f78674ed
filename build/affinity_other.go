//go:build !linux

package build

// ResetAffinity is a no-op outside Linux: CPU affinity is not a
// portable concept, and Go's scheduler does not narrow affinity the
// way the numeric libraries the original build step worked around did.
func ResetAffinity() error { return nil }
