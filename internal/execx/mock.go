package execx

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockRunner is an in-memory Runner implementation for testing. Responses
// are keyed by the full command line ("name arg1 arg2 ...").
type MockRunner struct {
	mu      sync.Mutex
	outputs map[string][]byte
	errs    map[string]error
	calls   []string
}

// NewMockRunner creates a new mock runner.
func NewMockRunner() *MockRunner {
	return &MockRunner{
		outputs: make(map[string][]byte),
		errs:    make(map[string]error),
	}
}

// SetOutput registers the stdout for a command line.
func (m *MockRunner) SetOutput(cmdline string, out []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outputs[cmdline] = out
}

// SetError makes a command line fail.
func (m *MockRunner) SetError(cmdline string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[cmdline] = err
}

// Calls returns the command lines executed so far.
func (m *MockRunner) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func cmdline(name string, args []string) string {
	return strings.Join(append([]string{name}, args...), " ")
}

// LookPath implements Runner. Every binary is found.
func (m *MockRunner) LookPath(file string) (string, error) {
	return "/usr/bin/" + file, nil
}

// Output implements Runner.
func (m *MockRunner) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cl := cmdline(name, args)
	m.calls = append(m.calls, cl)

	if err, ok := m.errs[cl]; ok {
		return nil, err
	}
	if out, ok := m.outputs[cl]; ok {
		return out, nil
	}
	return nil, fmt.Errorf("mock runner: no response for %q", cl)
}

// Run implements Runner. Unregistered command lines succeed.
func (m *MockRunner) Run(_ context.Context, name string, args ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cl := cmdline(name, args)
	m.calls = append(m.calls, cl)
	return m.errs[cl]
}
