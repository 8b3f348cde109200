package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// ---------------------------------------------------------------------------
// Executor - testable FFmpeg execution with dependency injection
// ---------------------------------------------------------------------------

// runFn runs a command and returns its combined stdout+stderr.
type runFn func(ctx context.Context, path string, args []string) ([]byte, error)

// outputFn runs a command and returns stdout only.
type outputFn func(ctx context.Context, path string, args []string) ([]byte, error)

// Executor runs FFmpeg-family commands with injectable dependencies.
// It is safe for concurrent use; the extraction worker pool shares one.
type Executor struct {
	run    runFn
	output outputFn
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithRun sets a custom combined-output function (for testing).
func WithRun(fn runFn) ExecutorOption {
	return func(e *Executor) { e.run = fn }
}

// WithOutput sets a custom stdout-only function (for testing).
func WithOutput(fn outputFn) ExecutorOption {
	return func(e *Executor) { e.output = fn }
}

// NewExecutor creates an Executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		run:    defaultRun,
		output: defaultOutput,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CombinedOutput executes path with args and returns stdout and stderr merged.
// FFmpeg writes diagnostics (including silencedetect events) to stderr, so
// callers parse this even when err is non-nil.
func (e *Executor) CombinedOutput(ctx context.Context, path string, args []string) ([]byte, error) {
	return e.run(ctx, path, args)
}

// Output executes path with args and returns stdout only.
// On failure the error carries stderr for diagnosis.
func (e *Executor) Output(ctx context.Context, path string, args []string) ([]byte, error) {
	return e.output(ctx, path, args)
}

// RunOutput executes path and returns its combined output as a string.
func (e *Executor) RunOutput(ctx context.Context, path string, args []string) (string, error) {
	out, err := e.run(ctx, path, args)
	return string(out), err
}

// defaultRun is the production implementation.
func defaultRun(ctx context.Context, path string, args []string) ([]byte, error) {
	// #nosec G204 -- path is a resolved ffmpeg/ffprobe binary, args come from typed builders
	cmd := exec.CommandContext(ctx, path, args...)
	return cmd.CombinedOutput()
}

// defaultOutput is the production implementation.
func defaultOutput(ctx context.Context, path string, args []string) ([]byte, error) {
	// #nosec G204 -- path is a resolved ffprobe binary, args come from typed builders
	cmd := exec.CommandContext(ctx, path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return out, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// CommandLine renders path and args as a shell-like string for echoing.
// Arguments containing whitespace or quotes are single-quoted.
func CommandLine(path string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, quoteArg(path))
	for _, a := range args {
		parts = append(parts, quoteArg(a))
	}
	return strings.Join(parts, " ")
}

// LastLine returns the final non-empty line of ffmpeg's output, which
// usually states why it gave up.
func LastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}

func quoteArg(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"[]") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// ---------------------------------------------------------------------------
// Package-level functions - shared default executor
// ---------------------------------------------------------------------------

var (
	defaultExecutor     *Executor
	defaultExecutorOnce sync.Once
)

// DefaultExecutor returns the lazily-initialized process-wide executor.
func DefaultExecutor() *Executor {
	defaultExecutorOnce.Do(func() {
		defaultExecutor = NewExecutor()
	})
	return defaultExecutor
}
