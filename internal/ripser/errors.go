package ripser

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies pipeline failures.
type Kind int

const (
	KindSerialization Kind = iota + 1
	KindExternalTool
	KindParse
	KindTimeout
)

var (
	ErrSerialization = errors.New("serialization error")
	ErrExternalTool  = errors.New("external tool error")
	ErrParse         = errors.New("parse error")
	ErrTimeout       = errors.New("timeout")

	// ErrInvalidSpec rejects an invocation before anything is spawned.
	ErrInvalidSpec = errors.New("invalid invocation")
	// ErrDuplicateDimension reports a second section header for a dimension
	// that already has one.
	ErrDuplicateDimension = errors.New("duplicate dimension section")
	// ErrPointCountMismatch reports a header point count that differs from
	// the number of matrix rows.
	ErrPointCountMismatch = errors.New("point count mismatch")
)

func (k Kind) String() string {
	return k.sentinel().Error()
}

func (k Kind) sentinel() error {
	switch k {
	case KindSerialization:
		return ErrSerialization
	case KindExternalTool:
		return ErrExternalTool
	case KindParse:
		return ErrParse
	case KindTimeout:
		return ErrTimeout
	default:
		return errors.New("unknown error")
	}
}

// Error is the single error type returned by the pipeline. Which fields are
// populated depends on Kind: Command and Stderr for external tool failures and
// timeouts, Line and Content for parse failures.
type Error struct {
	Kind     Kind
	Op       string
	Command  string
	Stderr   string
	ExitCode int
	Line     int
	Content  string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("ripser ")
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Line > 0 {
		fmt.Fprintf(&b, ": line %d %q", e.Line, e.Content)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Command != "" {
		b.WriteString(" (command: ")
		b.WriteString(e.Command)
		b.WriteByte(')')
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		b.WriteString("; stderr: ")
		b.WriteString(stderr)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// invalidSpec tags a rejected invocation. Nothing has been spawned, so the
// kind is external tool; errors.Is(err, ErrInvalidSpec) still matches.
func invalidSpec(err error) *Error {
	return &Error{Kind: KindExternalTool, Op: "validate", Err: err}
}

func parseError(line int, content string, err error) *Error {
	return &Error{Kind: KindParse, Op: "parse", Line: line, Content: content, Err: err}
}
