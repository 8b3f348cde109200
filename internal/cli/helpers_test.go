package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alnah/silencecut/internal/config"
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Compile-time check that syncBuffer implements io.Writer.
var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// testMocks - convenience struct for grouping all mocks
// ---------------------------------------------------------------------------

type testMocks struct {
	ffmpegResolver *mockFFmpegResolver
	configLoader   *mockConfigLoader
	pipelines      *mockPipelineFactory
	stderr         *syncBuffer
}

// testEnv creates a test Env with all dependencies mocked.
// Returns the Env and the mocks for assertions.
func testEnv() (*Env, *testMocks) {
	mocks := &testMocks{
		ffmpegResolver: &mockFFmpegResolver{},
		configLoader:   &mockConfigLoader{},
		pipelines:      &mockPipelineFactory{mockPipeline: &mockPipeline{}},
		stderr:         &syncBuffer{},
	}

	env := &Env{
		Stderr:          mocks.stderr,
		Getenv:          func(string) string { return "" },
		Now:             fixedTime(time.Date(2026, 1, 26, 14, 30, 52, 0, time.UTC)),
		IsTerminal:      func() bool { return false },
		NewRunID:        func() string { return "test-run" },
		FFmpegResolver:  mocks.ffmpegResolver,
		ConfigLoader:    mocks.configLoader,
		PipelineFactory: mocks.pipelines,
	}

	return env, mocks
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// fixedTime returns a function that always returns the given time.
func fixedTime(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// staticEnv returns a getenv function that returns values from the given map.
func staticEnv(env map[string]string) func(string) string {
	return func(key string) string {
		return env[key]
	}
}

// createTestInput creates a fake media file and returns its path.
func createTestInput(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("fake media content"), 0o644))
	return path
}

// configIn returns a loader whose workspace and manifest live under dir.
func configIn(dir string, mutate ...func(*config.Config)) *mockConfigLoader {
	return &mockConfigLoader{
		LoadFunc: func() (config.Config, error) {
			cfg := config.Default()
			cfg.Workspace = filepath.Join(dir, "vtemp")
			cfg.Manifest = filepath.Join(dir, "segmentlist.txt")
			for _, m := range mutate {
				m(&cfg)
			}
			return cfg, nil
		},
	}
}

// execRoot runs the root command with args.
func execRoot(env *Env, args ...string) error {
	cmd := RootCmd(env, "test")
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.ExecuteContext(context.Background())
}
