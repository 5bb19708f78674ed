package herrors_test

import (
	"errors"
	"fmt"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/hidet-go/hidet/herrors"
)

func TestNewWrapsOpAndErr(t *testing.T) {
	base := fmt.Errorf("disk full")
	err := herrors.New(herrors.KindCache, "graphcache.Save", base)

	require.Equal(t, "graphcache.Save: disk full", err.Error())
	require.Same(t, base, errors.Unwrap(err))
}

func TestIsMatchesKindAndUnwraps(t *testing.T) {
	base := fmt.Errorf("bad shape")
	wrapped := fmt.Errorf("fusing op: %w", herrors.New(herrors.KindFusion, "fuse_epilogue", base))

	require.True(t, herrors.Is(wrapped, herrors.KindFusion))
	require.False(t, herrors.Is(wrapped, herrors.KindValidation))
	require.Same(t, base, errors.Unwrap(errors.Unwrap(wrapped)))
}

// TestNewCapturesStackForFatalKinds checks that Build/Load kinds are
// wrapped with pkg/errors.WithStack (so a batch build failure's log
// points at the call site), while a plain kind like Validation is not.
func TestNewCapturesStackForFatalKinds(t *testing.T) {
	base := fmt.Errorf("nvcc exited 1")
	buildErr := herrors.New(herrors.KindBuild, "build.CompileSource", base)

	var tracer interface{ StackTrace() pkgerrors.StackTrace }
	require.True(t, errors.As(error(buildErr), &tracer), "KindBuild must carry a stack trace")

	validationErr := herrors.New(herrors.KindValidation, "graph.Validate", base)
	require.False(t, errors.As(error(validationErr), &tracer), "KindValidation must not carry a stack trace")
}

func TestKindString(t *testing.T) {
	require.Equal(t, "build", herrors.KindBuild.String())
	require.Equal(t, "load", herrors.KindLoad.String())
	require.Equal(t, "unknown", herrors.Kind(999).String())
}
