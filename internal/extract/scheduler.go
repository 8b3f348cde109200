// Package extract cuts every kept segment out of the input with a bounded
// pool of concurrent ffmpeg processes.
package extract

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/shirou/gopsutil/v4/cpu"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/silencecut/internal/ffmpeg"
	"github.com/alnah/silencecut/internal/preset"
	"github.com/alnah/silencecut/internal/segment"
)

// Result is the outcome of one extraction job.
type Result struct {
	segment.Descriptor
	Success bool
	Reused  bool   // artifact from a previous run was kept as is
	Command string // rendered command line, empty when reused
	Output  string // ffmpeg diagnostics, trimmed
	Size    int64  // artifact size in bytes when known
	Err     error
}

// ProgressFunc is called once per finished job. Calls are serialized.
type ProgressFunc func(Result)

// Scheduler runs extraction jobs on a fixed pool of workers.
type Scheduler struct {
	ffmpegPath string
	workers    int
	preset     preset.Preset
	decoder    string
	reuse      bool
	progress   ProgressFunc
	logger     hclog.Logger
	cmd        commandRunner
	fs         fileSystem
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithWorkers sets the pool size. Values below 1 select the CPU count.
func WithWorkers(n int) Option {
	return func(s *Scheduler) { s.workers = n }
}

// WithPreset sets the x264 preset used for extracted segments.
func WithPreset(p preset.Preset) Option {
	return func(s *Scheduler) { s.preset = p }
}

// WithDecoder sets an input video decoder, e.g. h264_cuvid.
func WithDecoder(name string) Option {
	return func(s *Scheduler) { s.decoder = name }
}

// WithReuse keeps non-empty artifacts left by a previous run instead of
// extracting them again.
func WithReuse(reuse bool) Option {
	return func(s *Scheduler) { s.reuse = reuse }
}

// WithProgress registers a callback invoked as jobs finish.
func WithProgress(fn ProgressFunc) Option {
	return func(s *Scheduler) { s.progress = fn }
}

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithCommandRunner sets the command runner (for testing).
func WithCommandRunner(r commandRunner) Option {
	return func(s *Scheduler) { s.cmd = r }
}

// WithFileSystem sets the file system (for testing).
func WithFileSystem(fs fileSystem) Option {
	return func(s *Scheduler) { s.fs = fs }
}

// NewScheduler creates a Scheduler driving the ffmpeg binary at ffmpegPath.
func NewScheduler(ffmpegPath string, opts ...Option) *Scheduler {
	s := &Scheduler{
		ffmpegPath: ffmpegPath,
		preset:     preset.Default,
		logger:     hclog.NewNullLogger(),
		cmd:        ffmpeg.DefaultExecutor(),
		fs:         osFileSystem{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultWorkers returns the number of logical CPUs.
func DefaultWorkers(ctx context.Context) int {
	if n, err := cpu.CountsWithContext(ctx, true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// Run extracts every descriptor from input and waits for all jobs.
//
// Descriptors are pulled lazily into a queue holding at most one job per
// worker. A failed job is recorded and never retried; it does not stop the
// others. Results come back sorted by ordinal. An empty sequence returns
// ErrNoSegments. If ctx is canceled the results gathered so far are
// returned with ctx's error.
func (s *Scheduler) Run(ctx context.Context, input string, segments iter.Seq[segment.Descriptor]) ([]Result, error) {
	workers := s.workers
	if workers < 1 {
		workers = DefaultWorkers(ctx)
	}

	jobs := make(chan segment.Descriptor, workers)

	var (
		mu      sync.Mutex
		results []Result
	)
	record := func(r Result) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, r)
		if s.progress != nil {
			s.progress(r)
		}
	}

	var g errgroup.Group
	for range workers {
		g.Go(func() error {
			for d := range jobs {
				record(s.extract(ctx, input, d))
			}
			return nil
		})
	}

	queued := 0
produce:
	for d := range segments {
		select {
		case jobs <- d:
			queued++
		case <-ctx.Done():
			break produce
		}
	}
	close(jobs)
	_ = g.Wait() // workers never return errors; failures live in Result

	slices.SortFunc(results, func(a, b Result) int {
		return cmp.Compare(a.Ordinal, b.Ordinal)
	})

	if err := ctx.Err(); err != nil {
		return results, err
	}
	if queued == 0 {
		return nil, ErrNoSegments
	}

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	s.logger.Info("extraction finished", "segments", queued, "failed", failed, "workers", workers)
	return results, nil
}

// extract runs one job. It never returns an error; the outcome is in Result.
func (s *Scheduler) extract(ctx context.Context, input string, d segment.Descriptor) Result {
	res := Result{Descriptor: d}

	if s.reuse {
		if info, err := s.fs.Stat(d.Path); err == nil && info.Size() > 0 {
			s.logger.Debug("reusing artifact", "segment", d.Ordinal, "path", d.Path)
			res.Success = true
			res.Reused = true
			res.Size = info.Size()
			return res
		}
	}

	args, err := ffmpeg.ExtractCommand{
		Input:    input,
		Output:   PartialPath(d.Path),
		Start:    d.Start,
		Duration: d.Duration,
		ToEnd:    d.ToEnd,
		Preset:   s.preset,
		Decoder:  s.decoder,
	}.Args()
	if err != nil {
		res.Err = err
		s.logger.Warn("extraction skipped", "segment", d.Ordinal, "error", err)
		return res
	}

	res.Command = ffmpeg.CommandLine(s.ffmpegPath, args)
	s.logger.Info("extracting", "segment", d.String(), "command", res.Command)

	out, err := s.cmd.CombinedOutput(ctx, s.ffmpegPath, args)
	res.Output = strings.TrimSpace(string(out))
	if err != nil {
		res.Err = fmt.Errorf("segment %d: %w", d.Ordinal, err)
		s.logger.Warn("extraction failed", "segment", d.Ordinal, "error", err, "output", res.Output)
		return res
	}

	if err := s.fs.Rename(PartialPath(d.Path), d.Path); err != nil {
		res.Err = fmt.Errorf("segment %d: %w", d.Ordinal, err)
		s.logger.Warn("extraction not finalized", "segment", d.Ordinal, "error", err)
		return res
	}

	res.Success = true
	if info, err := s.fs.Stat(d.Path); err == nil {
		res.Size = info.Size()
	}
	return res
}

// PartialPath returns where a job writes before its artifact is complete:
// 00003.mkv becomes 00003.part.mkv. The extension stays last so ffmpeg
// still picks the muxer from it, and the name never matches an artifact.
func PartialPath(path string) string {
	ext := filepath.Ext(path)
	return path[:len(path)-len(ext)] + ".part" + ext
}
