// Package execx wraps external command execution behind an interface so the
// installer and service manager can be tested without running pkg-config or
// systemctl.
package execx

import (
	"context"
	"os/exec"
)

// Runner is an interface for executing commands.
// This allows mocking in tests without actually executing binaries.
type Runner interface {
	// LookPath finds the executable in PATH.
	LookPath(file string) (string, error)
	// Output runs the command and returns its standard output.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
	// Run runs the command and waits for it to complete.
	Run(ctx context.Context, name string, args ...string) error
}

// realRunner is the real implementation using os/exec.
type realRunner struct{}

// New creates a new real command runner.
func New() Runner {
	return &realRunner{}
}

func (r *realRunner) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (r *realRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

func (r *realRunner) Run(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}
