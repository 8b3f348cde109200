package extract_test

// Notes:
// - The command runner is a concurrency-safe fake; no ffmpeg process is started
// - Per-job delays make completion order differ from ordinal order
// - The output path is always the last ffmpeg argument; jobs write to the
//   partial path and the fake file system records the rename

import (
	"context"
	"errors"
	"iter"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alnah/silencecut/internal/extract"
	"github.com/alnah/silencecut/internal/segment"
)

// ---------------------------------------------------------------------------
// Test doubles
// ---------------------------------------------------------------------------

type fakeRunner struct {
	mu       sync.Mutex
	fn       func(ctx context.Context, out string) ([]byte, error)
	outputs  []string
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeRunner) CombinedOutput(ctx context.Context, _ string, args []string) ([]byte, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	out := args[len(args)-1]
	f.mu.Lock()
	f.outputs = append(f.outputs, out)
	f.mu.Unlock()

	if f.fn != nil {
		return f.fn(ctx, out)
	}
	return nil, nil
}

var _ extract.CommandRunner = (*fakeRunner)(nil)

type fakeFS struct {
	mu      sync.Mutex
	sizes   map[string]int64
	renames map[string]string
}

func (f *fakeFS) Stat(name string) (os.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	size, ok := f.sizes[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return fakeInfo{size: size}, nil
}

func (f *fakeFS) Rename(oldpath, newpath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.renames == nil {
		f.renames = make(map[string]string)
	}
	f.renames[oldpath] = newpath
	return nil
}

var _ extract.FileSystem = (*fakeFS)(nil)

type fakeInfo struct {
	os.FileInfo
	size int64
}

func (f fakeInfo) Size() int64 { return f.size }

func descriptors(n int) iter.Seq[segment.Descriptor] {
	namer := segment.Namer{Dir: "vtemp", Ext: "mkv"}
	return func(yield func(segment.Descriptor) bool) {
		for i := 1; i <= n; i++ {
			d := segment.Descriptor{
				Ordinal:  uint(i),
				Start:    time.Duration(i) * time.Second,
				Duration: time.Second,
				Path:     namer.Path(uint(i)),
			}
			if !yield(d) {
				return
			}
		}
	}
}

func partial(ordinal uint) string {
	return extract.PartialPath(segment.Namer{Dir: "vtemp", Ext: "mkv"}.Path(ordinal))
}

func ordinals(results []extract.Result) []uint {
	out := make([]uint, len(results))
	for i, r := range results {
		out[i] = r.Ordinal
	}
	return out
}

// ---------------------------------------------------------------------------
// Scheduler.Run
// ---------------------------------------------------------------------------

func TestScheduler_ResultsSortedRegardlessOfCompletion(t *testing.T) {
	t.Parallel()

	// Earlier ordinals sleep longer, so they finish last.
	delays := map[string]time.Duration{
		partial(1): 40 * time.Millisecond,
		partial(2): 20 * time.Millisecond,
	}
	runner := &fakeRunner{
		fn: func(_ context.Context, out string) ([]byte, error) {
			time.Sleep(delays[out])
			return nil, nil
		},
	}

	s := extract.NewScheduler("ffmpeg",
		extract.WithCommandRunner(runner),
		extract.WithFileSystem(&fakeFS{}),
		extract.WithWorkers(3),
	)
	results, err := s.Run(context.Background(), "in.mp4", descriptors(3))
	require.NoError(t, err)

	assert.Equal(t, []uint{1, 2, 3}, ordinals(results))
	for _, r := range results {
		assert.True(t, r.Success)
		assert.NotEmpty(t, r.Command)
	}
}

func TestScheduler_FailureDoesNotStopSiblings(t *testing.T) {
	t.Parallel()

	failing := partial(2)
	runner := &fakeRunner{
		fn: func(_ context.Context, out string) ([]byte, error) {
			if out == failing {
				return []byte("Conversion failed!\n"), errors.New("exit status 1")
			}
			return nil, nil
		},
	}

	var progressed []uint
	s := extract.NewScheduler("ffmpeg",
		extract.WithCommandRunner(runner),
		extract.WithFileSystem(&fakeFS{}),
		extract.WithWorkers(2),
		extract.WithProgress(func(r extract.Result) { progressed = append(progressed, r.Ordinal) }),
	)
	results, err := s.Run(context.Background(), "in.mp4", descriptors(3))
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Error(t, results[1].Err)
	assert.Equal(t, "Conversion failed!", results[1].Output)
	assert.True(t, results[2].Success)

	// No retry: exactly one invocation per descriptor.
	assert.Len(t, runner.outputs, 3)
	slices.Sort(progressed)
	assert.Equal(t, []uint{1, 2, 3}, progressed)
}

func TestScheduler_NoSegments(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	s := extract.NewScheduler("ffmpeg", extract.WithCommandRunner(runner), extract.WithWorkers(2))

	results, err := s.Run(context.Background(), "in.mp4", descriptors(0))
	require.ErrorIs(t, err, extract.ErrNoSegments)
	assert.Nil(t, results)
	assert.Empty(t, runner.outputs)
}

func TestScheduler_BoundedConcurrency(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{
		fn: func(context.Context, string) ([]byte, error) {
			time.Sleep(5 * time.Millisecond)
			return nil, nil
		},
	}
	s := extract.NewScheduler("ffmpeg",
		extract.WithCommandRunner(runner),
		extract.WithFileSystem(&fakeFS{}),
		extract.WithWorkers(2),
	)

	results, err := s.Run(context.Background(), "in.mp4", descriptors(10))
	require.NoError(t, err)
	assert.Len(t, results, 10)
	assert.LessOrEqual(t, runner.peak.Load(), int32(2))
}

func TestScheduler_ReuseExistingArtifacts(t *testing.T) {
	t.Parallel()

	namer := segment.Namer{Dir: "vtemp", Ext: "mkv"}
	fs := &fakeFS{sizes: map[string]int64{
		namer.Path(1): 2048,
		namer.Path(2): 0, // empty leftovers are extracted again
	}}
	runner := &fakeRunner{}

	s := extract.NewScheduler("ffmpeg",
		extract.WithCommandRunner(runner),
		extract.WithFileSystem(fs),
		extract.WithWorkers(1),
		extract.WithReuse(true),
	)
	results, err := s.Run(context.Background(), "in.mp4", descriptors(3))
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].Reused)
	assert.Equal(t, int64(2048), results[0].Size)
	assert.Empty(t, results[0].Command)
	assert.False(t, results[1].Reused)
	assert.False(t, results[2].Reused)
	assert.Equal(t, []string{partial(2), partial(3)}, runner.outputs)
}

func TestScheduler_WithoutReuseAlwaysExtracts(t *testing.T) {
	t.Parallel()

	namer := segment.Namer{Dir: "vtemp", Ext: "mkv"}
	runner := &fakeRunner{}
	s := extract.NewScheduler("ffmpeg",
		extract.WithCommandRunner(runner),
		extract.WithFileSystem(&fakeFS{sizes: map[string]int64{namer.Path(1): 2048}}),
		extract.WithWorkers(1),
	)

	results, err := s.Run(context.Background(), "in.mp4", descriptors(1))
	require.NoError(t, err)
	assert.False(t, results[0].Reused)
	assert.Len(t, runner.outputs, 1)
}

func TestScheduler_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := extract.NewScheduler("ffmpeg",
		extract.WithCommandRunner(&fakeRunner{}),
		extract.WithFileSystem(&fakeFS{}),
		extract.WithWorkers(1),
	)
	_, err := s.Run(ctx, "in.mp4", descriptors(5))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScheduler_WritesPartialThenRenames(t *testing.T) {
	t.Parallel()

	namer := segment.Namer{Dir: "vtemp", Ext: "mkv"}
	failing := partial(2)
	runner := &fakeRunner{
		fn: func(_ context.Context, out string) ([]byte, error) {
			if out == failing {
				return []byte("Conversion failed!\n"), errors.New("exit status 1")
			}
			return nil, nil
		},
	}
	fs := &fakeFS{}

	s := extract.NewScheduler("ffmpeg",
		extract.WithCommandRunner(runner),
		extract.WithFileSystem(fs),
		extract.WithWorkers(1),
	)
	_, err := s.Run(context.Background(), "in.mp4", descriptors(3))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		partial(1): namer.Path(1),
		partial(3): namer.Path(3),
	}, fs.renames)
}

func TestScheduler_ResumeReextractsLeftoverPartial(t *testing.T) {
	t.Parallel()

	// An interrupted run: 00001 finished, 00002 was cut off mid-write.
	dir := t.TempDir()
	namer := segment.Namer{Dir: dir, Ext: "mkv"}
	require.NoError(t, os.WriteFile(namer.Path(1), []byte("complete"), 0o644))
	require.NoError(t, os.WriteFile(extract.PartialPath(namer.Path(2)), []byte("trunc"), 0o644))

	runner := &fakeRunner{
		fn: func(_ context.Context, out string) ([]byte, error) {
			return nil, os.WriteFile(out, []byte("fresh"), 0o644)
		},
	}
	seq := func(yield func(segment.Descriptor) bool) {
		for i := uint(1); i <= 2; i++ {
			if !yield(segment.Descriptor{Ordinal: i, Start: time.Second, Duration: time.Second, Path: namer.Path(i)}) {
				return
			}
		}
	}

	s := extract.NewScheduler("ffmpeg",
		extract.WithCommandRunner(runner),
		extract.WithWorkers(1),
		extract.WithReuse(true),
	)
	results, err := s.Run(context.Background(), "in.mp4", seq)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0].Reused)
	assert.False(t, results[1].Reused)
	assert.True(t, results[1].Success)
	assert.Equal(t, []string{extract.PartialPath(namer.Path(2))}, runner.outputs)

	data, err := os.ReadFile(namer.Path(2))
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(data))
	assert.NoFileExists(t, extract.PartialPath(namer.Path(2)))
}

func TestScheduler_CanceledJobLeavesNoArtifact(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	namer := segment.Namer{Dir: dir, Ext: "mkv"}
	runner := &fakeRunner{
		fn: func(_ context.Context, out string) ([]byte, error) {
			// Killed after writing part of the file.
			if err := os.WriteFile(out, []byte("trunc"), 0o644); err != nil {
				return nil, err
			}
			return nil, errors.New("signal: killed")
		},
	}
	seq := func(yield func(segment.Descriptor) bool) {
		yield(segment.Descriptor{Ordinal: 1, Start: time.Second, Duration: time.Second, Path: namer.Path(1)})
	}

	s := extract.NewScheduler("ffmpeg", extract.WithCommandRunner(runner), extract.WithWorkers(1))
	results, err := s.Run(context.Background(), "in.mp4", seq)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.False(t, results[0].Success)
	assert.NoFileExists(t, namer.Path(1))
}

func TestPartialPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "vtemp/00003.part.mkv", extract.PartialPath("vtemp/00003.mkv"))
}

func TestDefaultWorkers(t *testing.T) {
	t.Parallel()

	assert.GreaterOrEqual(t, extract.DefaultWorkers(context.Background()), 1)
}
