package ripser

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ripsergo/internal/logging"
	"ripsergo/internal/matrixfile"
	"ripsergo/internal/services"
)

// Cache stores reports keyed by CacheKey. Lookup and Store failures are
// logged and otherwise ignored.
type Cache interface {
	Lookup(ctx context.Context, key string) (Report, bool, error)
	Store(ctx context.Context, key string, report Report) error
}

// Option configures the runner.
type Option func(*Runner)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(r *Runner) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithLogger sets the base logger; a component attribute is added.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logging.NewComponentLogger(logger, "ripser")
		}
	}
}

// WithEcho sets where verbose runs mirror ripser's stdout. Defaults to stderr.
func WithEcho(w io.Writer) Option {
	return func(r *Runner) {
		if w != nil {
			r.echo = w
		}
	}
}

// WithWorkDir sets the directory for temporary matrix files. Empty means the
// OS temp directory.
func WithWorkDir(dir string) Option {
	return func(r *Runner) {
		r.workDir = strings.TrimSpace(dir)
	}
}

// WithCache enables report caching in Compute.
func WithCache(cache Cache) Option {
	return func(r *Runner) {
		r.cache = cache
	}
}

// Runner drives ripser. It is safe for concurrent use; every call uses its
// own temporary file and process.
type Runner struct {
	exec    Executor
	logger  *slog.Logger
	echo    io.Writer
	echoMu  sync.Mutex
	workDir string
	cache   Cache
}

// New constructs a runner that spawns real processes unless an executor is
// injected.
func New(opts ...Option) *Runner {
	r := &Runner{
		exec:   commandExecutor{},
		logger: logging.NewComponentLogger(nil, "ripser"),
		echo:   os.Stderr,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes ripser against an existing matrix file and returns its raw
// output. Any stderr output fails the run with an external tool error, even
// when ripser exits zero. A non-zero exit with empty stderr is logged and
// left to the parser.
func (r *Runner) Run(ctx context.Context, path string, spec Spec) (Output, error) {
	if err := spec.Validate(); err != nil {
		return Output{}, invalidSpec(err)
	}
	if strings.TrimSpace(path) == "" {
		return Output{}, invalidSpec(fmt.Errorf("%w: matrix path required", ErrInvalidSpec))
	}

	command := spec.CommandLine(path)
	logger := logging.WithContext(ctx, r.logger)

	runCtx := ctx
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	var onStdout func(string)
	if spec.Verbose {
		onStdout = func(line string) {
			r.echoLine(line)
			logger.Debug("ripser output", logging.String("line", line))
		}
	}

	logger.Debug("executing ripser", logging.String(logging.FieldCommand, command))
	started := time.Now()
	out, err := r.exec.Run(runCtx, spec.Binary, spec.Args(path), onStdout)
	elapsed := time.Since(started)

	if err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		cause := fmt.Errorf("deadline exceeded after %s: %w", elapsed.Round(time.Millisecond), context.DeadlineExceeded)
		if spec.Timeout > 0 {
			cause = fmt.Errorf("no result within %s: %w", spec.Timeout, context.DeadlineExceeded)
		}
		return out, &Error{
			Kind:     KindTimeout,
			Op:       "execute",
			Command:  command,
			Stderr:   string(out.Stderr),
			ExitCode: out.ExitCode,
			Err:      cause,
		}
	}
	if err != nil {
		return out, &Error{
			Kind:     KindExternalTool,
			Op:       "execute",
			Command:  command,
			Stderr:   string(out.Stderr),
			ExitCode: out.ExitCode,
			Err:      err,
		}
	}
	if len(out.Stderr) > 0 {
		return out, &Error{
			Kind:     KindExternalTool,
			Op:       "execute",
			Command:  command,
			Stderr:   string(out.Stderr),
			ExitCode: out.ExitCode,
			Err:      fmt.Errorf("ripser wrote to stderr (exit status %d)", out.ExitCode),
		}
	}
	if out.ExitCode != 0 {
		logging.WarnWithContext(logger, "ripser exited non-zero without diagnostics", "ripser_exit_status",
			logging.Int("exit_code", out.ExitCode),
			logging.String(logging.FieldCommand, command),
			logging.String(logging.FieldErrorHint, "output will still be parsed; check the ripser build if parsing fails"),
			logging.String(logging.FieldImpact, "result may be incomplete"),
		)
	}
	logger.Debug("ripser exited",
		logging.Int("exit_code", out.ExitCode),
		logging.Duration("elapsed", elapsed),
		logging.Int("stdout_bytes", len(out.Stdout)),
	)
	return out, nil
}

// ExecuteAndParse runs ripser on an existing matrix file and parses the
// report. The file is left in place.
func (r *Runner) ExecuteAndParse(ctx context.Context, path string, spec Spec) (Report, error) {
	report, _, err := r.executeAndParse(ctx, path, spec)
	return report, err
}

func (r *Runner) executeAndParse(ctx context.Context, path string, spec Spec) (Report, string, error) {
	out, err := r.Run(ctx, path, spec)
	if err != nil {
		return Report{}, "", err
	}
	raw := string(out.Stdout)
	report, err := ParseReport(raw)
	if err != nil {
		var perr *Error
		if errors.As(err, &perr) {
			perr.Command = spec.CommandLine(path)
		}
		return Report{}, "", err
	}
	header, _, _ := strings.Cut(raw, "\n")
	return report, strings.TrimSuffix(header, "\r"), nil
}

// Compute serializes m to a temporary file, runs ripser on it and parses the
// result. The temporary file is removed on every exit path. When the runner
// has a cache, identical inputs are answered without spawning ripser.
func (r *Runner) Compute(ctx context.Context, m matrixfile.Matrix, spec Spec) (report Report, err error) {
	if err := spec.Validate(); err != nil {
		return Report{}, invalidSpec(err)
	}
	if _, ok := services.RunIDFromContext(ctx); !ok {
		ctx = services.WithRunID(ctx, uuid.NewString())
	}
	logger := logging.WithContext(ctx, r.logger)

	if err := matrixfile.Validate(m); err != nil {
		return Report{}, &Error{Kind: KindSerialization, Op: "serialize", Err: err}
	}

	var key string
	if r.cache != nil {
		key = CacheKey(m, spec)
		cached, ok, lookupErr := r.cache.Lookup(ctx, key)
		switch {
		case lookupErr != nil:
			logging.WarnWithContext(logger, "diagram cache lookup failed", "cache_lookup_failed",
				logging.Error(lookupErr),
				logging.String(logging.FieldImpact, "ripser will be run without the cache"),
			)
		case ok && spec.CheckPointCount && cached.Points != m.Size():
			logging.WarnWithContext(logger, "cached diagram has the wrong point count", "cache_point_mismatch",
				logging.String("cache_key", shortKey(key)),
				logging.Int("cached_points", cached.Points),
				logging.Int("rows", m.Size()),
				logging.String(logging.FieldImpact, "ripser will be run again"),
			)
		case ok:
			logger.Info("diagram served from cache",
				logging.String("cache_key", shortKey(key)),
				logging.Int("points", cached.Points),
				logging.Int("intervals", cached.Diagram.Count()),
			)
			if spec.Verbose {
				r.echoLine(fmt.Sprintf("ripser skipped: diagram for %d points served from cache (%s)", cached.Points, shortKey(key)))
			}
			return cached, nil
		}
	}

	path, err := matrixfile.Write(r.workDir, m)
	if err != nil {
		return Report{}, &Error{Kind: KindSerialization, Op: "serialize", Err: err}
	}
	defer func() {
		relErr := matrixfile.Release(path)
		if relErr == nil {
			return
		}
		logging.WarnWithContext(logger, "temporary matrix file not removed", "matrix_release_failed",
			logging.String("path", path),
			logging.Error(relErr),
		)
		if err == nil {
			report = Report{}
			err = &Error{Kind: KindSerialization, Op: "release", Err: relErr}
			return
		}
		err = errors.Join(err, relErr)
	}()

	started := time.Now()
	report, header, err := r.executeAndParse(ctx, path, spec)
	if err != nil {
		return Report{}, err
	}
	countMatches := report.Points == m.Size()
	if spec.CheckPointCount && !countMatches {
		return Report{}, &Error{
			Kind:    KindParse,
			Op:      "parse",
			Command: spec.CommandLine(path),
			Line:    1,
			Content: header,
			Err:     fmt.Errorf("%w: ripser reported %d points, matrix has %d rows", ErrPointCountMismatch, report.Points, m.Size()),
		}
	}

	logger.Info("ripser finished",
		logging.Int("points", report.Points),
		logging.Int("dimensions", len(report.Diagram)),
		logging.Int("intervals", report.Diagram.Count()),
		logging.Duration("elapsed", time.Since(started)),
	)

	// reports that disagree with the matrix size are never cached
	if r.cache != nil && countMatches {
		if storeErr := r.cache.Store(ctx, key, report); storeErr != nil {
			logging.WarnWithContext(logger, "diagram cache store failed", "cache_store_failed",
				logging.Error(storeErr),
				logging.String(logging.FieldImpact, "the next identical run will call ripser again"),
			)
		}
	}
	return report, nil
}

func (r *Runner) echoLine(line string) {
	r.echoMu.Lock()
	defer r.echoMu.Unlock()
	_, _ = io.WriteString(r.echo, line+"\n")
}

// CacheKey identifies a computation by the serialized matrix and the
// arguments that influence ripser's output.
func CacheKey(m matrixfile.Matrix, spec Spec) string {
	h := sha256.New()
	_ = matrixfile.Encode(h, m)
	for _, part := range []string{spec.Binary, spec.Format, strconv.Itoa(spec.MaxDim)} {
		h.Write([]byte{0})
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
