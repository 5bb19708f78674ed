package build_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/hidet-go/hidet/build"
	"github.com/hidet-go/hidet/ir"
	"github.com/stretchr/testify/require"
)

// fakeModule returns a minimal, lowering/codegen-safe IRModule: a
// single void host function that returns immediately.
func fakeModule(name string) *ir.IRModule {
	m := ir.NewIRModule(nil)
	m.AddFunction(&ir.Function{
		Name:       name,
		Kind:       ir.Host,
		ReturnType: ir.VoidType{},
		Body:       &ir.ReturnStmt{},
	})
	return m
}

// writeFakeNVCC writes a shell script standing in for nvcc: it always
// writes some bytes to the path following "-o", unless any argument
// contains "fail" (the failing jobs use a "fail" output directory), in
// which case it exits non-zero without creating the output.
func writeFakeNVCC(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake nvcc script requires a POSIX shell")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "fake-nvcc.sh")
	const body = `#!/bin/sh
out=""
prev=""
fail=0
for arg in "$@"; do
  case "$prev" in
    -o) out="$arg" ;;
  esac
  case "$arg" in
    *fail*) fail=1 ;;
  esac
  prev="$arg"
done
if [ "$fail" = "1" ]; then
  echo "simulated nvcc failure" >&2
  exit 1
fi
echo "fake shared library" > "$out"
exit 0
`
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))
	return script
}

func TestBatchBuildPartialFailureDoesNotAbortBatch(t *testing.T) {
	nvcc := writeFakeNVCC(t)
	t.Setenv("HIDET_NVCC_PATH", nvcc)

	root := t.TempDir()
	instances := []build.BuildInstance{
		{Module: fakeModule("hidet_ok_one"), OutputDir: filepath.Join(root, "ok_one"), Target: build.Target{Arch: "80"}},
		{Module: fakeModule("hidet_fail"), OutputDir: filepath.Join(root, "fail"), Target: build.Target{Arch: "80"}},
		{Module: fakeModule("hidet_ok_two"), OutputDir: filepath.Join(root, "ok_two"), Target: build.Target{Arch: "80"}},
	}

	results := build.BatchBuild(context.Background(), instances)
	require.Len(t, results, 3)

	require.NoError(t, results[0].Err)
	require.NotEmpty(t, results[0].LibPath)
	require.FileExists(t, results[0].LibPath)

	require.Error(t, results[1].Err, "the instance whose output dir contains \"fail\" must report an error")

	require.NoError(t, results[2].Err, "a failure in one instance must not affect the others")
	require.NotEmpty(t, results[2].LibPath)
	require.FileExists(t, results[2].LibPath)
}

func TestBuildOneWritesSourceAndLibrary(t *testing.T) {
	nvcc := writeFakeNVCC(t)
	t.Setenv("HIDET_NVCC_PATH", nvcc)

	root := t.TempDir()
	instance := build.BuildInstance{
		Module:    fakeModule("hidet_single"),
		OutputDir: root,
		Target:    build.Target{Arch: "sm_80"},
	}

	libPath, err := build.BuildOne(context.Background(), instance)
	require.NoError(t, err)
	require.FileExists(t, libPath)
	require.FileExists(t, filepath.Join(root, "source.cu"))
}

// TestBuildOneWritesNVCCLog verifies nvcc's captured stdout/stderr always
// lands at <output_dir>/nvcc_log.txt, success or failure.
func TestBuildOneWritesNVCCLog(t *testing.T) {
	nvcc := writeFakeNVCC(t)
	t.Setenv("HIDET_NVCC_PATH", nvcc)

	root := t.TempDir()
	instance := build.BuildInstance{
		Module:    fakeModule("hidet_logged"),
		OutputDir: root,
		Target:    build.Target{Arch: "sm_80"},
	}

	_, err := build.BuildOne(context.Background(), instance)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(root, "nvcc_log.txt"))
}

// TestBuildOneWritesNVCCLogOnFailure checks the log is written even when
// the underlying nvcc invocation fails.
func TestBuildOneWritesNVCCLogOnFailure(t *testing.T) {
	nvcc := writeFakeNVCC(t)
	t.Setenv("HIDET_NVCC_PATH", nvcc)

	root := t.TempDir()
	outDir := filepath.Join(root, "fail")
	instance := build.BuildInstance{
		Module:    fakeModule("hidet_broken"),
		OutputDir: outDir,
		Target:    build.Target{Arch: "sm_80"},
	}

	_, err := build.BuildOne(context.Background(), instance)
	require.Error(t, err)
	logPath := filepath.Join(outDir, "nvcc_log.txt")
	require.FileExists(t, logPath)
	data, readErr := os.ReadFile(logPath)
	require.NoError(t, readErr)
	require.Contains(t, string(data), "simulated nvcc failure")
}

// TestBuildOneKeepIRWritesDumps verifies KeepIR produces pre/post lowering
// CUDA source dumps under OutputDir/ir/.
func TestBuildOneKeepIRWritesDumps(t *testing.T) {
	nvcc := writeFakeNVCC(t)
	t.Setenv("HIDET_NVCC_PATH", nvcc)

	root := t.TempDir()
	instance := build.BuildInstance{
		Module:    fakeModule("hidet_keepir"),
		OutputDir: root,
		Target:    build.Target{Arch: "sm_80"},
		KeepIR:    true,
	}

	_, err := build.BuildOne(context.Background(), instance)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(root, "ir", "pre_lowering.cu"))
	require.FileExists(t, filepath.Join(root, "ir", "post_lowering.cu"))
}
