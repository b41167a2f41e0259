package preflight

import (
	"context"
	"os"
	"path/filepath"

	"ripsergo/internal/config"
	"ripsergo/internal/ripser"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config. The
// ripser smoke run is skipped when the executable cannot be resolved.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	workDir := cfg.Paths.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	results = append(results, CheckDirectoryAccess("Work directory", workDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	if cfg.Cache.Enabled {
		results = append(results, CheckDirectoryAccess("Cache directory", filepath.Dir(cfg.Cache.Path)))
	}

	binary := CheckBinary(cfg)
	results = append(results, binary)
	if binary.Passed {
		results = append(results, CheckRipser(ctx, SpecFromConfig(cfg), workDir))
	}
	return results
}

// SpecFromConfig builds the ripser invocation described by cfg.
func SpecFromConfig(cfg *config.Config) ripser.Spec {
	return ripser.Spec{
		Binary:          cfg.Ripser.Binary,
		MaxDim:          cfg.Ripser.MaxDim,
		Format:          cfg.Ripser.Format,
		Verbose:         cfg.Ripser.Verbose,
		Timeout:         cfg.Ripser.Timeout(),
		CheckPointCount: cfg.Ripser.CheckPointCount,
	}
}
