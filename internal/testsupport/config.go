package testsupport

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"ripsergo/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The directories exist and the cache is disabled unless WithCache is given.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Cache.Path = filepath.Join(base, "cache", "diagrams.db")
	cfgVal.Cache.Enabled = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithCache enables the diagram cache under the test's temp directory.
func WithCache() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Enabled = true
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ripser is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ripser"}
		}
		binDir := b.binDir()
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// WithRipserStub points the config at a script that prints stdout, writes
// stderr when non-empty and exits with code.
func WithRipserStub(stdout, stderr string, code int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ripser.Binary = WriteRipserStub(b.t, b.binDir(), stdout, stderr, code)
	}
}

// WriteRipserStub writes an executable named ripser into dir and returns its
// path.
func WriteRipserStub(t testing.TB, dir, stdout, stderr string, code int) string {
	t.Helper()

	var script strings.Builder
	script.WriteString("#!/bin/sh\n")
	if stdout != "" {
		script.WriteString("cat <<'RIPSER_STDOUT'\n")
		script.WriteString(stdout)
		if !strings.HasSuffix(stdout, "\n") {
			script.WriteString("\n")
		}
		script.WriteString("RIPSER_STDOUT\n")
	}
	if stderr != "" {
		script.WriteString("cat >&2 <<'RIPSER_STDERR'\n")
		script.WriteString(strings.TrimSuffix(stderr, "\n"))
		script.WriteString("\nRIPSER_STDERR\n")
	}
	script.WriteString("exit " + strconv.Itoa(code) + "\n")

	path := filepath.Join(dir, "ripser")
	if err := os.WriteFile(path, []byte(script.String()), 0o755); err != nil {
		t.Fatalf("write ripser stub: %v", err)
	}
	return path
}

func (b *configBuilder) binDir() string {
	binDir := filepath.Join(b.baseDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		b.t.Fatalf("mkdir bin dir: %v", err)
	}
	return binDir
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
