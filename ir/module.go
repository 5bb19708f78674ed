package ir

// FuncKind classifies a Function's execution context.
type FuncKind int

const (
	Host FuncKind = iota
	CUDAKernel
	CUDADevice
)

func (k FuncKind) String() string {
	switch k {
	case Host:
		return "host"
	case CUDAKernel:
		return "cuda_kernel"
	case CUDADevice:
		return "cuda_device"
	default:
		return "unknown"
	}
}

// LaunchConfig carries the grid/block dimensions and dynamic shared
// memory a CUDAKernel function is launched with. Dims may be constant
// Exprs or reference other Function params (e.g. a batch size).
type LaunchConfig struct {
	Grid          [3]Expr
	Block         [3]Expr
	SharedMemory  Expr // bytes of dynamic shared memory; nil means 0
	MinBlocksPerSM int  // 0 means unset
}

// Function is one callable unit of the low-level IR.
type Function struct {
	Name       string
	Kind       FuncKind
	Params     []*Var
	Body       Stmt
	ReturnType Type
	LocalVars  []*Var
	ExternVars []*Var // e.g. blockIdx.x, threadIdx.y on a kernel
	Attrs      map[string]any
	Launch     *LaunchConfig // only meaningful when Kind == CUDAKernel
}

// TaskRef is the minimal view of an originating Task an IRModule needs
// to retain: its name (for the hidet_<name> entry symbol) and ordered
// parameters (for PackedFunc argument typing). The concrete task.Task
// type satisfies this via its TaskName and ParamTypes methods.
type TaskRef interface {
	TaskName() string
	ParamTypes() []Type
}

// IRModule bundles a set of Functions that are compiled into one
// translation unit, optionally tagged with the Task that produced them.
type IRModule struct {
	Task      TaskRef // nil for a module with no originating task
	Functions map[string]*Function
}

// NewIRModule creates an empty module, optionally tied to task.
func NewIRModule(task TaskRef) *IRModule {
	return &IRModule{Task: task, Functions: map[string]*Function{}}
}

// AddFunction registers fn in the module, keyed by its name.
func (m *IRModule) AddFunction(fn *Function) {
	m.Functions[fn.Name] = fn
}

// EntryFunction returns the module's externally-visible entry point,
// named "hidet_<task.Name>", or nil if the module has no Task or no
// matching function.
func (m *IRModule) EntryFunction() *Function {
	if m.Task == nil {
		return nil
	}
	return m.Functions["hidet_"+m.Task.TaskName()]
}
