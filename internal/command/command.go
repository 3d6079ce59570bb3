// Package command is the narrow process-execution collaborator used for
// external packaging tools. Callers only observe pass/fail, exit code and
// output; they never depend on a tool's semantics.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Result is the outcome of one command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Name     string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Name, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + truncate(s, 200)
	}
	return msg
}

// Runner runs external commands.
type Runner interface {
	// Run executes name with args. A non-zero exit returns both the Result
	// and an *ExitError.
	Run(ctx context.Context, name string, args ...string) (*Result, error)
	// LookPath reports where name is found on PATH.
	LookPath(name string) (string, error)
}

// ExecRunner implements Runner with os/exec.
type ExecRunner struct {
	// Dir is the working directory; empty means the current one.
	Dir string
	// Env replaces the environment when non-nil. By default only PATH, HOME
	// and LANG are passed through.
	Env []string
}

// NewExecRunner creates an ExecRunner with a scrubbed environment.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		Env: []string{
			"HOME=" + os.Getenv("HOME"),
			"PATH=" + os.Getenv("PATH"),
			"LANG=" + os.Getenv("LANG"),
		},
	}
}

// Run executes the command and captures its output.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	// Create command with context for cancellation/timeout support
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	if r.Env != nil {
		cmd.Env = r.Env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return result, nil
	}

	// Check for context cancellation/timeout first
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%s: %w", name, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, &ExitError{Name: name, ExitCode: result.ExitCode, Stderr: result.Stderr}
	}
	return nil, fmt.Errorf("run %s: %w", name, err)
}

// LookPath wraps exec.LookPath.
func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Available reports whether name is on PATH.
func Available(r Runner, name string) bool {
	_, err := r.LookPath(name)
	return err == nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
