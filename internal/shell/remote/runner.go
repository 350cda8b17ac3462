// Package remote executes commands on the proxy host. The orchestrator
// issues proxy operations through the Runner interface, which may be backed
// by the local shell or by an SSH connection to a remote host.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// =============================================================================
// Runner Interface
// =============================================================================

// Runner executes a shell command and returns its stdout.
// A non-zero exit status is reported as an error.
type Runner interface {
	Run(ctx context.Context, command string, stdin io.Reader) ([]byte, error)
	Close() error
}

// =============================================================================
// Local Runner
// =============================================================================

// LocalRunner executes commands via the local shell.
type LocalRunner struct{}

// NewLocalRunner creates a runner that executes commands locally.
func NewLocalRunner() *LocalRunner {
	return &LocalRunner{}
}

// Run executes the command with /bin/sh -c.
func (r *LocalRunner) Run(ctx context.Context, command string, stdin io.Reader) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	if stdin != nil {
		cmd.Stdin = stdin
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), &RunError{Command: command, Stderr: stderr.String(), Err: err}
	}
	return stdout.Bytes(), nil
}

// Close is a no-op for the local runner.
func (r *LocalRunner) Close() error {
	return nil
}

// =============================================================================
// Run Error
// =============================================================================

// RunError reports a command that exited non-zero or failed to start.
type RunError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *RunError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("run %q: %v: %s", e.Command, e.Err, strings.TrimSpace(e.Stderr))
	}
	return fmt.Sprintf("run %q: %v", e.Command, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// =============================================================================
// File Helpers
// =============================================================================

// ReadFile reads a file through the runner. A missing file yields empty
// content rather than an error, so a not-yet-written proxy config reads as
// the zero state.
func ReadFile(ctx context.Context, r Runner, path string) ([]byte, error) {
	cmd := fmt.Sprintf("cat %s 2>/dev/null || true", shellQuote(path))
	return r.Run(ctx, cmd, nil)
}

// WriteFile writes content to a file through the runner. The write goes to a
// temporary file first and is moved into place so readers never observe a
// partial file.
func WriteFile(ctx context.Context, r Runner, path string, content []byte) error {
	quoted := shellQuote(path)
	tmp := shellQuote(path + ".tmp")
	cmd := fmt.Sprintf("cat > %s && mv %s %s", tmp, tmp, quoted)
	_, err := r.Run(ctx, cmd, bytes.NewReader(content))
	return err
}

// shellQuote single-quotes a string for safe interpolation into a shell
// command line.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
