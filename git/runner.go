package git

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// CommandRunner executes external commands. It exists so git operations can
// be mocked in tests without touching a real repository.
type CommandRunner interface {
	// Run executes the command in dir and returns trimmed stdout.
	Run(dir, name string, args ...string) (string, error)
}

// ExecRunner runs commands using os/exec.
type ExecRunner struct{}

// NewExecRunner returns a runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the command and returns trimmed stdout. On failure the error
// includes stderr output when available.
func (r *ExecRunner) Run(dir, name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := strings.TrimSpace(stdout.String())
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%s: %s", err, msg)
		}
		return out, err
	}
	return out, nil
}

// mockResult is a single queued response for SequentialMockRunner.
type mockResult struct {
	stdout string
	stderr string
	err    error
}

// SequentialMockRunner returns queued outputs in order, one per Run call.
// Tests queue an output for each git command the code under test will issue.
type SequentialMockRunner struct {
	mu      sync.Mutex
	results []mockResult

	// Calls records every command that was run, formatted as "name args...".
	Calls []string
}

// NewSequentialMockRunner creates an empty mock runner.
func NewSequentialMockRunner() *SequentialMockRunner {
	return &SequentialMockRunner{}
}

// AddOutput queues a response with the given stdout and error.
func (r *SequentialMockRunner) AddOutput(output string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, mockResult{stdout: output, err: err})
}

// AddOutputError queues a response with separate stdout and stderr. A
// non-empty stderr produces a failing call even when err is nil.
func (r *SequentialMockRunner) AddOutputError(stdout, stderr string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, mockResult{stdout: stdout, stderr: stderr, err: err})
}

// Run returns the next queued response.
func (r *SequentialMockRunner) Run(dir, name string, args ...string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Calls = append(r.Calls, name+" "+strings.Join(args, " "))

	if len(r.results) == 0 {
		return "", errors.New("mock runner: no more queued outputs")
	}

	next := r.results[0]
	r.results = r.results[1:]

	if next.err != nil {
		return next.stdout, next.err
	}
	if next.stderr != "" {
		return next.stdout, errors.New(next.stderr)
	}
	return next.stdout, nil
}
