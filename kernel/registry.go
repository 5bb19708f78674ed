// Package kernel is the operator kernel registry: the uniform plug-in
// point Tasks use to produce a low-level ir.IRModule, mirroring the
// teacher's ml.RegisterBackend / backends map shape (ml/backend.go),
// retargeted from inference backends to compile-time kernel schedulers.
package kernel

import (
	"fmt"
	"sync"

	"github.com/hidet-go/hidet/graph/passes"
	"github.com/hidet-go/hidet/ir"
	"github.com/hidet-go/hidet/task"
)

// Target carries the information a Scheduler needs to choose a
// concrete schedule: the architecture string the build toolchain will
// compile for, and the resolved precision/mma/parallel-k choices a
// PassContext has already settled (§4.12, §6).
type Target struct {
	Arch       string
	Precision  passes.Precision
	MMA        passes.MMAKind
	ParallelK  passes.ParallelK
	SpaceLevel int
}

// Scheduler implements a Task by emitting an IRModule for the given
// Target. Each operator name registers at most one Scheduler; schedule
// search (space_level, parallel_k="search") stays an opaque token a
// Scheduler may consult but never expands into a search loop (Open
// Question iii).
type Scheduler func(t *task.Task, target Target) (*ir.IRModule, error)

// Registry maps an operator's canonical name to the Scheduler
// responsible for implementing its Task.
type Registry struct {
	mu         sync.RWMutex
	schedulers map[string]Scheduler
}

// NewRegistry returns an empty Registry. Use Default to get the
// process-wide instance pre-populated with the built-in schedulers.
func NewRegistry() *Registry {
	return &Registry{schedulers: map[string]Scheduler{}}
}

// Register adds or replaces the Scheduler for opType.
func (r *Registry) Register(opType string, s Scheduler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schedulers[opType] = s
}

// Lookup returns the Scheduler registered for opType, or nil, ok=false
// if none is registered (§7 Unsupported-schedule).
func (r *Registry) Lookup(opType string) (Scheduler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schedulers[opType]
	return s, ok
}

// Implement resolves and invokes the Scheduler for opType, wrapping an
// unregistered operator in a clear error rather than a nil-pointer
// panic at the call site.
func (r *Registry) Implement(opType string, t *task.Task, target Target) (*ir.IRModule, error) {
	scheduler, ok := r.Lookup(opType)
	if !ok {
		return nil, fmt.Errorf("kernel: no scheduler registered for operator %q", opType)
	}
	return scheduler(t, target)
}

var defaultRegistry = newDefaultRegistry()

// Default returns the process-wide Registry pre-populated with the
// built-in schedulers (elementwise add, relu, naive-tile matmul).
func Default() *Registry { return defaultRegistry }

func newDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("add", AddScheduler)
	r.Register("relu", ReluScheduler)
	r.Register("matmul", MatmulScheduler)
	return r
}
