package build

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/hidet-go/hidet/config"
	"github.com/hidet-go/hidet/herrors"
)

// CompileOptions controls side effects of a CompileSource invocation
// beyond producing the shared library itself.
type CompileOptions struct {
	// KeepPTX additionally asks nvcc for the intermediate .ptx (-ptx)
	// alongside the shared library, written as "<outLibPath minus ext>.ptx".
	KeepPTX bool
	// Verbose passes nvcc's own -v flag through, the original
	// compile_source's "print the nvcc command" knob.
	Verbose bool
}

// CompileSource invokes the external toolchain (nvcc-equivalent, per
// spec.md's external-collaborator boundary) to compile srcPath into a
// shared library at outLibPath, grounded on the original importer's
// compile_source: the same arch and -shared/-fPIC flags, but no include
// or library search paths and no runtime library link are passed, and
// argv is built as a []string handed directly to exec.Command, never
// through a shell. nvcc's combined stdout/stderr is
// always written to nvcc_log.txt next to outLibPath, successful or not.
func CompileSource(ctx context.Context, srcPath, outLibPath string, target Target, opts CompileOptions) error {
	srcPath, err := filepath.Abs(srcPath)
	if err != nil {
		return herrors.New(herrors.KindBuild, "build.CompileSource", fmt.Errorf("resolving source path: %w", err))
	}
	outLibPath, err = filepath.Abs(outLibPath)
	if err != nil {
		return herrors.New(herrors.KindBuild, "build.CompileSource", fmt.Errorf("resolving output path: %w", err))
	}
	outDir := filepath.Dir(outLibPath)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return herrors.New(herrors.KindBuild, "build.CompileSource", fmt.Errorf("creating output directory: %w", err))
	}

	args := []string{
		"-gencode", fmt.Sprintf("arch=compute_%s,code=sm_%s", target.arch(), target.arch()),
		"--compiler-options", "-fPIC",
		"--shared",
		srcPath,
		"-o", outLibPath,
	}
	if opts.Verbose {
		args = append(args, "-v")
	}

	cmd := exec.CommandContext(ctx, config.NVCCPath(), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	runErr := cmd.Run()

	logPath := filepath.Join(outDir, "nvcc_log.txt")
	_ = os.WriteFile(logPath, append(stdout.Bytes(), stderr.Bytes()...), 0o644)

	if runErr != nil {
		return herrors.New(herrors.KindBuild, "build.CompileSource",
			fmt.Errorf("nvcc failed for %q: %w\n%s%s", srcPath, runErr, stdout.String(), stderr.String()))
	}

	if opts.KeepPTX {
		ptxPath := outLibPath[:len(outLibPath)-len(filepath.Ext(outLibPath))] + ".ptx"
		ptxArgs := []string{
			"-gencode", fmt.Sprintf("arch=compute_%s,code=sm_%s", target.arch(), target.arch()),
			"--compiler-options", "-fPIC",
			"-ptx",
			srcPath,
			"-o", ptxPath,
		}
		ptxCmd := exec.CommandContext(ctx, config.NVCCPath(), ptxArgs...)
		var ptxOut bytes.Buffer
		ptxCmd.Stdout, ptxCmd.Stderr = &ptxOut, &ptxOut
		if err := ptxCmd.Run(); err != nil {
			return herrors.New(herrors.KindBuild, "build.CompileSource", fmt.Errorf("nvcc -ptx failed for %q: %w\n%s", srcPath, err, ptxOut.String()))
		}
	}
	return nil
}

// arch strips the conventional "sm_" prefix (e.g. "sm_80" -> "80") so
// it can feed both compute_ and sm_ gencode tokens; an already-bare
// arch string (e.g. "80") passes through unchanged.
func (t Target) arch() string {
	const prefix = "sm_"
	if len(t.Arch) > len(prefix) && t.Arch[:len(prefix)] == prefix {
		return t.Arch[len(prefix):]
	}
	return t.Arch
}
