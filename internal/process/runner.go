// Package process runs external commands with captured output and
// process-group cancellation.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ErrStart reports that the command could not be started at all
// (executable missing, not executable, bad working directory).
var ErrStart = errors.New("process: failed to start")

// waitDelay bounds how long Wait blocks for output pipes after a kill.
const waitDelay = 5 * time.Second

// Result is the outcome of a command that ran to exit.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner abstracts command execution to enable testing without real subprocesses.
type Runner interface {
	// Run executes name with args in dir and waits for it to exit.
	// A non-zero exit is reported in Result, not as an error. An error
	// is returned when the command cannot start or ctx ends first; in the
	// latter case the partial Result is returned alongside ctx.Err().
	Run(ctx context.Context, dir, name string, args ...string) (*Result, error)
}

// ExecRunner implements Runner using os/exec.
type ExecRunner struct {
	// Env replaces the child environment when non-nil.
	Env []string
}

// Compile-time interface implementation check.
var _ Runner = (*ExecRunner)(nil)

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (*Result, error) {
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 -- command comes from explicit compiler configuration
	cmd.Dir = dir
	cmd.Env = r.Env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		KillProcessGroup(cmd.Process.Pid)
		return cmd.Process.Kill()
	}
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	res := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err == nil {
		return res, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		return res, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}

	return nil, fmt.Errorf("%w: %s: %w", ErrStart, name, err)
}
