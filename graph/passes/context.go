// Package passes implements the graph-level pass pipeline: PassContext
// configuration and the individual passes, dominated by prologue and
// epilogue fusion (spec.md §4.2-4.4).
package passes

import (
	"os"
	"strconv"
	"strings"

	"github.com/hidet-go/hidet/graph"
)

// Precision is the element type used for compute (spec.md §6).
type Precision int

const (
	PrecisionF16 Precision = iota
	PrecisionBF16
	PrecisionF32
)

// ReducePrecision is the accumulator type used for reductions.
type ReducePrecision int

const (
	ReducePrecisionF16 ReducePrecision = iota
	ReducePrecisionF32
)

// MMAKind selects the matrix-multiplication kernel family.
type MMAKind int

const (
	MMASimt MMAKind = iota
	MMAWmma
	MMAMma
)

// ParallelK is the split-K strategy for reductions along the K axis.
// ParallelKSearch is deliberately opaque (spec.md §9 Open Question iii):
// schedule plug-ins may interpret it however they like; this package
// never inspects it beyond passing it through.
type ParallelK struct {
	Mode  ParallelKMode
	Value int // meaningful only when Mode == ParallelKFixed
}

type ParallelKMode int

const (
	ParallelKDisabled ParallelKMode = iota
	ParallelKDefault
	ParallelKSearch
	ParallelKFixed
)

// PassContext carries the options spec.md §6 recognizes, plus the
// per-case skip predicate resolving Open Question (i): rather than a
// hardcoded skip-list, callers register their own predicate.
type PassContext struct {
	Precision       Precision
	ReducePrecision ReducePrecision
	MMA             MMAKind
	ParallelK       ParallelK
	SpaceLevel      int
	Verbose         bool

	skip func(*graph.Operator) bool
}

// Option configures a PassContext.
type Option func(*PassContext)

// NewContext builds a PassContext with hidet's own defaults (f16
// compute, f32 reduce accumulation, simt mma, split-k disabled, minimal
// search) overridden by opts.
func NewContext(opts ...Option) *PassContext {
	pc := &PassContext{
		Precision:       PrecisionF16,
		ReducePrecision: ReducePrecisionF32,
		MMA:             MMASimt,
		ParallelK:       ParallelK{Mode: ParallelKDisabled},
		SpaceLevel:      0,
	}
	for _, opt := range opts {
		opt(pc)
	}
	return pc
}

func WithPrecision(p Precision) Option       { return func(pc *PassContext) { pc.Precision = p } }
func WithReducePrecision(p ReducePrecision) Option {
	return func(pc *PassContext) { pc.ReducePrecision = p }
}
func WithMMA(m MMAKind) Option          { return func(pc *PassContext) { pc.MMA = m } }
func WithParallelK(k ParallelK) Option  { return func(pc *PassContext) { pc.ParallelK = k } }
func WithSpaceLevel(level int) Option   { return func(pc *PassContext) { pc.SpaceLevel = level } }
func WithVerbose(v bool) Option         { return func(pc *PassContext) { pc.Verbose = v } }

// Skip registers predicate as the per-case skip predicate (Open
// Question (i) resolution): a pass pipeline may call pc.ShouldSkip(op)
// before processing an operator to let the caller opt specific
// operators out without the compiler guessing benchmark-matrix intent.
func Skip(predicate func(*graph.Operator) bool) Option {
	return func(pc *PassContext) { pc.skip = predicate }
}

// ShouldSkip reports whether op should be excluded from pass
// processing, per the registered skip predicate (false if none set).
func (pc *PassContext) ShouldSkip(op *graph.Operator) bool {
	if pc.skip == nil {
		return false
	}
	return pc.skip(op)
}

// ContextFromEnv builds a PassContext from HIDET_* environment
// variables, the CLI-equivalent configuration surface described in
// spec.md §6, mirroring the teacher's envconfig idiom (see config/).
func ContextFromEnv() *PassContext {
	pc := NewContext()
	switch strings.ToLower(envVar("HIDET_PRECISION")) {
	case "bf16":
		pc.Precision = PrecisionBF16
	case "f32":
		pc.Precision = PrecisionF32
	case "f16", "":
	}
	switch strings.ToLower(envVar("HIDET_REDUCE_PRECISION")) {
	case "f16":
		pc.ReducePrecision = ReducePrecisionF16
	case "f32", "":
	}
	switch strings.ToLower(envVar("HIDET_MMA")) {
	case "wmma":
		pc.MMA = MMAWmma
	case "mma":
		pc.MMA = MMAMma
	case "simt", "":
	}
	pc.ParallelK = parseParallelK(envVar("HIDET_PARALLEL_K"))
	if s := envVar("HIDET_SPACE_LEVEL"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 && n <= 2 {
			pc.SpaceLevel = n
		}
	}
	if s := envVar("HIDET_VERBOSE"); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			pc.Verbose = b
		}
	}
	return pc
}

func parseParallelK(s string) ParallelK {
	switch strings.ToLower(s) {
	case "", "disabled":
		return ParallelK{Mode: ParallelKDisabled}
	case "default":
		return ParallelK{Mode: ParallelKDefault}
	case "search":
		return ParallelK{Mode: ParallelKSearch}
	default:
		if n, err := strconv.Atoi(s); err == nil && n >= 1 {
			return ParallelK{Mode: ParallelKFixed, Value: n}
		}
		return ParallelK{Mode: ParallelKDefault}
	}
}

func envVar(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}
