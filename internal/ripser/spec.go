package ripser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
)

// FormatDistance is ripser's full distance matrix input format, the layout
// produced by matrixfile.Write.
const FormatDistance = "distance"

var knownFormats = map[string]struct{}{
	FormatDistance:   {},
	"lower-distance": {},
	"upper-distance": {},
	"point-cloud":    {},
	"dipha":          {},
	"sparse":         {},
	"binary":         {},
}

// Spec describes one ripser invocation. The zero value is not usable: Binary
// and Format have no package-level defaults.
type Spec struct {
	Binary  string
	MaxDim  int
	Format  string
	Verbose bool
	// Timeout kills ripser when exceeded; zero waits indefinitely.
	Timeout time.Duration
	// CheckPointCount makes Compute fail when the reported point count
	// differs from the matrix size.
	CheckPointCount bool
}

// Validate reports whether the spec can be turned into a command line.
func (s Spec) Validate() error {
	if strings.TrimSpace(s.Binary) == "" {
		return fmt.Errorf("%w: executable path required", ErrInvalidSpec)
	}
	if s.MaxDim < 0 {
		return fmt.Errorf("%w: dimension must be non-negative, got %d", ErrInvalidSpec, s.MaxDim)
	}
	if _, ok := knownFormats[s.Format]; !ok {
		return fmt.Errorf("%w: unsupported input format %q", ErrInvalidSpec, s.Format)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout %s", ErrInvalidSpec, s.Timeout)
	}
	return nil
}

// Args returns the arguments passed to ripser for the matrix at path. The
// order is fixed: --dim D --format F path.
func (s Spec) Args(path string) []string {
	return []string{"--dim", strconv.Itoa(s.MaxDim), "--format", s.Format, path}
}

// Argv returns the full argument vector including the executable.
func (s Spec) Argv(path string) []string {
	return append([]string{s.Binary}, s.Args(path)...)
}

// CommandLine renders Argv as a shell-quoted string for logs and errors.
func (s Spec) CommandLine(path string) string {
	return shellquote.Join(s.Argv(path)...)
}
