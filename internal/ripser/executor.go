package ripser

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// waitDelay bounds how long Wait blocks on inherited pipes after ripser has
// been killed.
const waitDelay = 2 * time.Second

// Output is everything captured from one ripser process.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Executor abstracts command execution for testability. A non-zero exit
// status is reported through Output.ExitCode, not as an error; errors are
// reserved for spawn failures, read failures and context expiry.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) (Output, error)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) (Output, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		// negative pid signals the whole process group
		if err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
			return cmd.Process.Kill()
		}
		return nil
	}
	cmd.WaitDelay = waitDelay

	out := Output{ExitCode: -1}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return out, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return out, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return out, fmt.Errorf("start command: %w", err)
	}

	var (
		wg                   sync.WaitGroup
		stdoutBuf, stderrBuf bytes.Buffer
		stdoutErr, stderrErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		stdoutErr = drainLines(stdout, &stdoutBuf, onStdout)
	}()
	go func() {
		defer wg.Done()
		_, stderrErr = io.Copy(&stderrBuf, stderr)
	}()
	wg.Wait()

	waitErr := cmd.Wait()
	out.Stdout = stdoutBuf.Bytes()
	out.Stderr = stderrBuf.Bytes()
	if cmd.ProcessState != nil {
		out.ExitCode = cmd.ProcessState.ExitCode()
	}

	var exitErr *exec.ExitError
	isExitErr := errors.As(waitErr, &exitErr)
	// a process that exited on its own finished before any deadline fired
	if waitErr != nil && !(isExitErr && exitErr.Exited()) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, fmt.Errorf("wait command: %w", ctxErr)
		}
	}
	if readErr := errors.Join(stdoutErr, stderrErr); readErr != nil {
		return out, fmt.Errorf("read output: %w", readErr)
	}
	if waitErr != nil && !isExitErr {
		return out, fmt.Errorf("wait command: %w", waitErr)
	}
	return out, nil
}

// drainLines copies r into buf unchanged and hands each complete or trailing
// line, without its terminator, to onLine.
func drainLines(r io.Reader, buf *bytes.Buffer, onLine func(string)) error {
	reader := bufio.NewReader(r)
	for {
		chunk, err := reader.ReadString('\n')
		if chunk != "" {
			buf.WriteString(chunk)
			if onLine != nil {
				onLine(strings.TrimRight(chunk, "\r\n"))
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
