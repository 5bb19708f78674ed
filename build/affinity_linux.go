//go:build linux

package build

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// ResetAffinity clears any CPU affinity mask a dependency (numerical
// libraries are a common culprit) narrowed on the current process, the
// Go analogue of the original's os.sched_setaffinity(0, range(cpu_count))
// call before spawning the build worker pool.
func ResetAffinity() error {
	var set unix.CPUSet
	set.Zero()
	for i := 0; i < runtime.NumCPU(); i++ {
		set.Set(i)
	}
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("build: resetting CPU affinity: %w", err)
	}
	return nil
}
