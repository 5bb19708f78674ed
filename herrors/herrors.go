// Package herrors defines the error types shared across the compiler
// pipeline, following the {Op, Err} wrapping idiom the rest of this
// codebase uses for subsystem errors.
package herrors

import "github.com/pkg/errors"

// Kind classifies an Error for callers that want to branch on failure
// category (e.g. a CLI reporting a build failure differently from a
// validation failure) without string-matching messages.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindFusion
	KindLowering
	KindCodegen
	KindBuild
	KindCache
	KindLoad
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindFusion:
		return "fusion"
	case KindLowering:
		return "lowering"
	case KindCodegen:
		return "codegen"
	case KindBuild:
		return "build"
	case KindCache:
		return "cache"
	case KindLoad:
		return "load"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with the subsystem operation and
// Kind that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error, capturing a stack trace for fatal kinds (build,
// load) via pkg/errors so a batch build failure's log line points at
// the scheduler call site, not just the subprocess that failed.
func New(kind Kind, op string, err error) *Error {
	switch kind {
	case KindBuild, KindLoad:
		return &Error{Kind: kind, Op: op, Err: errors.WithStack(err)}
	default:
		return &Error{Kind: kind, Op: op, Err: err}
	}
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
