package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ripsergo/internal/diagcache"
	"ripsergo/internal/logging"
	"ripsergo/internal/matrixfile"
	"ripsergo/internal/preflight"
	"ripsergo/internal/ripser"
	"ripsergo/internal/services"
)

type computeOptions struct {
	dim       int
	format    string
	binary    string
	verbose   bool
	timeout   time.Duration
	direct    bool
	jsonOut   bool
	jobs      int
	noCache   bool
	intervals bool
}

type computeResult struct {
	Path    string
	RunID   string
	Report  ripser.Report
	Err     error
	Elapsed time.Duration
}

func newComputeCommand(ctx *commandContext) *cobra.Command {
	var opts computeOptions

	cmd := &cobra.Command{
		Use:   "compute <matrix-file>...",
		Short: "Compute persistence diagrams for distance matrix files",
		Long: "Reads each matrix file (comma, space or tab separated), runs ripser on it and\n" +
			"prints the persistence diagram. With --direct the file is handed to ripser\n" +
			"unchanged, which allows non-distance input formats.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			spec := preflight.SpecFromConfig(cfg)
			flags := cmd.Flags()
			if flags.Changed("dim") {
				spec.MaxDim = opts.dim
			}
			if flags.Changed("format") {
				spec.Format = strings.ToLower(strings.TrimSpace(opts.format))
			}
			if flags.Changed("binary") {
				spec.Binary = strings.TrimSpace(opts.binary)
			}
			if flags.Changed("verbose") {
				spec.Verbose = opts.verbose
			}
			if flags.Changed("timeout") {
				spec.Timeout = opts.timeout
			}
			if err := spec.Validate(); err != nil {
				return err
			}
			if !opts.direct && spec.Format != ripser.FormatDistance {
				return fmt.Errorf("format %q requires --direct; matrix files are always serialized as %q", spec.Format, ripser.FormatDistance)
			}

			runnerOpts := []ripser.Option{
				ripser.WithLogger(logger),
				ripser.WithWorkDir(cfg.Paths.WorkDir),
				ripser.WithEcho(cmd.ErrOrStderr()),
			}
			if cfg.Cache.Enabled && !opts.noCache && !opts.direct {
				cache, err := diagcache.Open(cmd.Context(), cfg.Cache.Path)
				switch {
				case errors.Is(err, diagcache.ErrInUse):
					logging.WarnWithContext(logger, "diagram cache locked; continuing without it", "cache_unavailable",
						logging.String("path", cfg.Cache.Path),
						logging.String(logging.FieldErrorHint, "wait for `ripsergo cache clear` to finish"),
						logging.String(logging.FieldImpact, "results will not be cached"),
					)
				case err != nil:
					return fmt.Errorf("open diagram cache: %w", err)
				default:
					defer cache.Close()
					runnerOpts = append(runnerOpts, ripser.WithCache(cache))
				}
			}

			runner := ripser.New(runnerOpts...)
			results := computeAll(cmd.Context(), runner, logger, spec, args, opts.direct, opts.jobs)

			if opts.jsonOut {
				if err := writeJSON(cmd, resultsJSON(results)); err != nil {
					return err
				}
			} else {
				renderComputeResults(cmd, results, opts.intervals)
			}

			failed := 0
			for _, result := range results {
				if result.Err != nil {
					failed++
				}
			}
			if failed > 0 {
				if len(results) == 1 {
					return results[0].Err
				}
				return fmt.Errorf("%d of %d computations failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&opts.dim, "dim", "d", 1, "Maximum homology dimension (overrides ripser.max_dim)")
	cmd.Flags().StringVar(&opts.format, "format", ripser.FormatDistance, "ripser input format (overrides ripser.format)")
	cmd.Flags().StringVar(&opts.binary, "binary", "", "ripser executable (overrides ripser.binary)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Echo ripser output to stderr while it runs")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Kill ripser after this long (0 waits indefinitely)")
	cmd.Flags().BoolVar(&opts.direct, "direct", false, "Pass the files to ripser unchanged instead of re-serializing them")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Emit results as JSON")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", 1, "Number of matrices computed in parallel")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "Bypass the diagram cache")
	cmd.Flags().BoolVar(&opts.intervals, "intervals", false, "List every interval, not just the per-dimension summary")
	return cmd
}

// computeAll runs one computation per path with at most jobs in flight and
// returns results in input order.
func computeAll(ctx context.Context, runner *ripser.Runner, logger *slog.Logger, spec ripser.Spec, paths []string, direct bool, jobs int) []computeResult {
	if jobs < 1 {
		jobs = 1
	}
	results := make([]computeResult, len(paths))
	sem := make(chan struct{}, jobs)
	var wg sync.WaitGroup

	for i, path := range paths {
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[i] = computeResult{Path: path, Err: ctx.Err()}
				return
			}
			defer func() { <-sem }()
			results[i] = computeOne(ctx, runner, logger, spec, path, direct)
		}()
	}
	wg.Wait()
	return results
}

func computeOne(ctx context.Context, runner *ripser.Runner, logger *slog.Logger, spec ripser.Spec, path string, direct bool) computeResult {
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	ctx = services.WithMatrix(ctx, filepath.Base(path))
	result := computeResult{Path: path, RunID: runID}
	started := time.Now()

	if direct {
		result.Report, result.Err = runner.ExecuteAndParse(ctx, path, spec)
	} else {
		m, err := matrixfile.ReadFile(path)
		if err != nil {
			result.Err = err
		} else {
			result.Report, result.Err = runner.Compute(ctx, m, spec)
		}
	}
	result.Elapsed = time.Since(started)

	if result.Err != nil {
		logging.ErrorWithContext(logging.WithContext(ctx, logger), "computation failed", "compute_failed",
			logging.String("path", path),
			logging.Error(result.Err),
		)
	}
	return result
}

func renderComputeResults(cmd *cobra.Command, results []computeResult, showIntervals bool) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	counts := newCountFormatter(localeTag())
	for i, result := range results {
		if i > 0 {
			fmt.Fprintln(out)
		}
		if result.Err != nil {
			for _, line := range renderSectionHeader(result.Path, colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine(failureLabel(result.Err), statusError, result.Err.Error(), colorize))
			continue
		}
		renderReport(out, filepath.Base(result.Path), result.Report, showIntervals, counts)
	}
}

func failureLabel(err error) string {
	var rerr *ripser.Error
	if errors.As(err, &rerr) {
		return kindTitle(rerr.Kind)
	}
	return "Error"
}
