package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"ripsergo/internal/config"
	"ripsergo/internal/deps"
	"ripsergo/internal/matrixfile"
	"ripsergo/internal/ripser"
)

// smokeTimeout bounds the doctor run against a two point matrix.
const smokeTimeout = 10 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external executables for the given config.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries([]deps.Requirement{
		{
			Name:        "ripser",
			Command:     cfg.Ripser.Binary,
			Description: "Required to compute persistence diagrams",
		},
	})
}

// CheckBinary reports whether the configured ripser executable resolves and
// is executable.
func CheckBinary(cfg *config.Config) Result {
	const name = "ripser executable"

	status := CheckSystemDeps(cfg)[0]
	if !status.Available {
		return Result{Name: name, Detail: status.Detail}
	}
	if err := unix.Access(status.Path, unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not executable: %v)", status.Path, err)}
	}
	return Result{Name: name, Passed: true, Detail: status.Path}
}

// CheckRipser runs the full pipeline on two points at distance one and
// verifies the reported header.
func CheckRipser(ctx context.Context, spec ripser.Spec, workDir string) Result {
	const name = "ripser smoke run"

	spec.MaxDim = 0
	spec.Format = ripser.FormatDistance
	spec.Verbose = false
	spec.CheckPointCount = true
	if spec.Timeout <= 0 || spec.Timeout > smokeTimeout {
		spec.Timeout = smokeTimeout
	}

	runner := ripser.New(ripser.WithWorkDir(workDir))
	report, err := runner.Compute(ctx, matrixfile.Matrix{{0, 1}, {1, 0}}, spec)
	if err != nil {
		return Result{Name: name, Detail: summarizeRipserError(err)}
	}
	if report.Max != 1 {
		return Result{Name: name, Detail: fmt.Sprintf("unexpected value range [%g,%g]", report.Min, report.Max)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d intervals in dim 0", len(report.Diagram[0]))}
}

func summarizeRipserError(err error) string {
	var rerr *ripser.Error
	if !errors.As(err, &rerr) {
		return err.Error()
	}
	switch rerr.Kind {
	case ripser.KindTimeout:
		return "timed out"
	case ripser.KindExternalTool:
		if rerr.Stderr != "" {
			return fmt.Sprintf("ripser reported an error: %s", firstLine(rerr.Stderr))
		}
		return fmt.Sprintf("failed to run: %v", rerr.Err)
	case ripser.KindParse:
		return fmt.Sprintf("unrecognized output at line %d (incompatible ripser build?)", rerr.Line)
	default:
		return err.Error()
	}
}

func firstLine(text string) string {
	for i, r := range text {
		if r == '\n' {
			return text[:i]
		}
	}
	return text
}
