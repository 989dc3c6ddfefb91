package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

const (
	// DefaultTimeout bounds every local command unless Exec.Timeout is set.
	DefaultTimeout = 2 * time.Minute

	// maxErrorOutput caps the amount of command output embedded in errors.
	maxErrorOutput = 200
)

// Exec runs commands on the local machine.
type Exec struct {
	// Timeout is the per-command deadline. Zero means DefaultTimeout.
	Timeout time.Duration
}

// NewExec returns a local runner with the default timeout.
func NewExec() *Exec {
	return &Exec{Timeout: DefaultTimeout}
}

// Run implements Runner.
func (e *Exec) Run(ctx context.Context, name string, args ...string) (Result, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = context.DeadlineExceeded
		}
		return res, handleExitError(Quote(append([]string{name}, args...)...), err, res.Combined(), timeout)
	}
	return res, nil
}

// LookPath implements Runner.
func (e *Exec) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// handleExitError wraps an exec error with the command line and a bounded
// excerpt of its output.
func handleExitError(cmdLine string, err error, output string, timeout time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s timed out after %s", cmdLine, timeout)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{
			Cmd:    cmdLine,
			Code:   exitErr.ExitCode(),
			Output: truncateOutput(output, maxErrorOutput),
		}
	}

	return fmt.Errorf("runner: %s: %w", cmdLine, err)
}
