package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/hidet-go/hidet/codegen"
	"github.com/hidet-go/hidet/herrors"
	"github.com/hidet-go/hidet/ir"
	"github.com/hidet-go/hidet/lower"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"golang.org/x/sync/errgroup"
)

// memPerWorker bounds how many concurrent nvcc processes run at once;
// each is assumed to need roughly this much headroom, the same
// 1.5GiB-per-worker budget the original batch_build_ir_modules used.
const memPerWorker = int64(1.5 * 1024 * 1024 * 1024)

// BuildInstance is one unit of work for the scheduler: a lowered-ready
// IRModule and the directory its generated source/library are written
// to, grounded on the original importer's BuildInstance.
type BuildInstance struct {
	Module    *ir.IRModule
	OutputDir string
	Target    Target

	// KeepIR writes the pre- and post-lowering IR as generated CUDA
	// source under OutputDir/ir/, the same artifact the original's
	// keep_ir build flag preserves for inspecting what a lowering pass
	// changed.
	KeepIR bool
	// KeepPTX additionally asks nvcc to emit the intermediate .ptx
	// alongside lib.so.
	KeepPTX bool
	// Verbose passes through to nvcc's own -v flag.
	Verbose bool
}

// BuildResult is the outcome of building one BuildInstance: either a
// library path, or a non-nil Err recording why compilation failed —
// batch builds never abort on one failure, mirroring the original's
// per-job None-on-failure contract (scenario: partial build failure).
type BuildResult struct {
	LibPath string
	Err     error
}

// BuildOne lowers, renders, and compiles a single BuildInstance,
// writing source.cu and lib.so under instance.OutputDir.
func BuildOne(ctx context.Context, instance BuildInstance) (string, error) {
	if err := os.MkdirAll(instance.OutputDir, 0o755); err != nil {
		return "", herrors.New(herrors.KindBuild, "build.BuildOne", fmt.Errorf("creating output dir: %w", err))
	}

	if instance.KeepIR {
		if err := writeIRDumps(instance); err != nil {
			return "", err
		}
	}

	lowered := lower.Lower(instance.Module)
	src := codegen.Module(lowered)

	srcPath := filepath.Join(instance.OutputDir, "source.cu")
	if err := os.WriteFile(srcPath, []byte(src), 0o644); err != nil {
		return "", herrors.New(herrors.KindBuild, "build.BuildOne", fmt.Errorf("writing generated source: %w", err))
	}

	libPath := filepath.Join(instance.OutputDir, "lib.so")
	opts := CompileOptions{KeepPTX: instance.KeepPTX, Verbose: instance.Verbose}
	if err := CompileSource(ctx, srcPath, libPath, instance.Target, opts); err != nil {
		return "", err
	}
	return libPath, nil
}

// writeIRDumps renders instance.Module before and after lowering under
// OutputDir/ir/, letting a caller diff what a lowering pass changed.
func writeIRDumps(instance BuildInstance) error {
	irDir := filepath.Join(instance.OutputDir, "ir")
	if err := os.MkdirAll(irDir, 0o755); err != nil {
		return herrors.New(herrors.KindBuild, "build.BuildOne", fmt.Errorf("creating ir dump dir: %w", err))
	}
	preSrc := codegen.Module(instance.Module)
	if err := os.WriteFile(filepath.Join(irDir, "pre_lowering.cu"), []byte(preSrc), 0o644); err != nil {
		return herrors.New(herrors.KindBuild, "build.BuildOne", fmt.Errorf("writing pre_lowering.cu: %w", err))
	}
	postSrc := codegen.Module(lower.Lower(instance.Module))
	if err := os.WriteFile(filepath.Join(irDir, "post_lowering.cu"), []byte(postSrc), 0o644); err != nil {
		return herrors.New(herrors.KindBuild, "build.BuildOne", fmt.Errorf("writing post_lowering.cu: %w", err))
	}
	return nil
}

// BatchBuild compiles instances concurrently, sized by
// min(available_memory/1.5GiB, cpu_count) the way the original
// batch_build_ir_modules derives its multiprocessing.Pool size from
// psutil. A failed instance yields a BuildResult with Err set rather
// than aborting the batch; results are returned in the same order as
// instances.
func BatchBuild(ctx context.Context, instances []BuildInstance) []BuildResult {
	_ = ResetAffinity()
	results := make([]BuildResult, len(instances))
	workers := workerCount()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, instance := range instances {
		i, instance := i, instance
		g.Go(func() error {
			libPath, err := BuildOne(gctx, instance)
			results[i] = BuildResult{LibPath: libPath, Err: err}
			return nil // a single instance's failure never cancels the batch
		})
	}
	_ = g.Wait()
	return results
}

// workerCount derives the worker pool size from available memory and
// logical CPU count, falling back to runtime.NumCPU on a query error.
func workerCount() int {
	numCPU := runtime.NumCPU()
	vm, err := mem.VirtualMemory()
	if err != nil {
		return max(numCPU, 1)
	}
	counts, err := cpu.Counts(true)
	if err != nil || counts == 0 {
		counts = numCPU
	}
	byMem := int(int64(vm.Available) / memPerWorker)
	workers := min(max(byMem, 1), counts)
	return max(workers, 1)
}
