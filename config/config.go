// Package config reads the HIDET_* environment variables that control
// compiler behavior outside of any single FlowGraph (cache directory,
// toolchain path, logging, build parallelism), following the teacher's
// Var(key)-getter idiom.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Var reads and trims an environment variable, also stripping a
// surrounding pair of quotes a user may have left in a shell export.
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}

// CacheDir is the configured root directory for persisted compiled
// artifacts (HIDET_CACHE_DIR, default "~/.cache/hidet"). graphcache and
// build take their root directories from their callers and do not call
// it.
func CacheDir() string {
	if v := Var("HIDET_CACHE_DIR"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".cache", "hidet")
}

// NVCCPath is the path to the CUDA compiler driver invoked by the build
// scheduler (HIDET_NVCC_PATH, default "nvcc" resolved via PATH).
func NVCCPath() string {
	if v := Var("HIDET_NVCC_PATH"); v != "" {
		return v
	}
	return "nvcc"
}

// CCPath reports the configured host C++ compiler (HIDET_CC_PATH,
// default "g++"). CompileSource does not pass it to nvcc, so nvcc uses
// its own default host compiler.
func CCPath() string {
	if v := Var("HIDET_CC_PATH"); v != "" {
		return v
	}
	return "g++"
}

// BuildWorkers reports the HIDET_NUM_WORKERS setting (0 when unset or
// invalid). The build scheduler does not read it: its worker count is
// always derived from available memory and CPU count.
func BuildWorkers() int {
	if v := Var("HIDET_NUM_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		slog.Warn("invalid HIDET_NUM_WORKERS, deriving worker count automatically", "value", v)
	}
	return 0
}

// CompileTimeout reports the HIDET_COMPILE_TIMEOUT setting (seconds,
// default 120). CompileSource does not apply it; an nvcc invocation is
// bounded only by the context its caller passes.
func CompileTimeout() int {
	if v := Var("HIDET_COMPILE_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		slog.Warn("invalid HIDET_COMPILE_TIMEOUT, using default", "value", v, "default", 120)
	}
	return 120
}

// Verbose reports the HIDET_VERBOSE setting. No other package calls it;
// passes.ContextFromEnv reads the same variable itself.
func Verbose() bool {
	if v := Var("HIDET_VERBOSE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return false
}

// KeepIntermediates reports the HIDET_KEEP_INTERMEDIATES setting. The
// build package never deletes a build's source or object directory and
// does not read this value.
func KeepIntermediates() bool {
	if v := Var("HIDET_KEEP_INTERMEDIATES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return false
}

// EnvVar mirrors an environment variable's current value alongside a
// human-readable description, for diagnostics/CLI reporting.
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap returns every HIDET_* setting this package recognizes, for a
// CLI "print config" command.
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"HIDET_CACHE_DIR":          {"HIDET_CACHE_DIR", CacheDir(), "Directory used to persist compiled kernel libraries and cached graphs"},
		"HIDET_NVCC_PATH":          {"HIDET_NVCC_PATH", NVCCPath(), "Path to the CUDA compiler driver"},
		"HIDET_CC_PATH":            {"HIDET_CC_PATH", CCPath(), "Path to the host C++ compiler"},
		"HIDET_NUM_WORKERS":        {"HIDET_NUM_WORKERS", BuildWorkers(), "Concurrent compile jobs (0 = auto)"},
		"HIDET_COMPILE_TIMEOUT":    {"HIDET_COMPILE_TIMEOUT", CompileTimeout(), "Per-job compile timeout in seconds"},
		"HIDET_VERBOSE":            {"HIDET_VERBOSE", Verbose(), "Enable verbose pass/build logging"},
		"HIDET_KEEP_INTERMEDIATES": {"HIDET_KEEP_INTERMEDIATES", KeepIntermediates(), "Keep per-build source/object directories after success"},
	}
}

// Values renders AsMap as a string map, for environments that only want
// to print configuration rather than branch on it.
func Values() map[string]string {
	vals := make(map[string]string, len(AsMap()))
	for k, v := range AsMap() {
		vals[k] = toString(v.Value)
	}
	return vals
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	default:
		return ""
	}
}
