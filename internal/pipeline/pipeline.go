// Package pipeline wires detection, extraction, verification and
// reassembly into one run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/alnah/silencecut/internal/config"
	"github.com/alnah/silencecut/internal/extract"
	"github.com/alnah/silencecut/internal/ffmpeg"
	"github.com/alnah/silencecut/internal/manifest"
	"github.com/alnah/silencecut/internal/reassemble"
	"github.com/alnah/silencecut/internal/segment"
	"github.com/alnah/silencecut/internal/workspace"
)

// Mode names the processing path of a run.
type Mode string

// Processing paths.
const (
	ModeVideo Mode = "video"
	ModeAudio Mode = "audio"
)

// Tools holds the resolved external binaries.
type Tools struct {
	FFmpeg  string
	FFprobe string
}

// Report summarizes a finished run.
type Report struct {
	Mode       Mode
	Input      string
	Output     string
	Planned    int           // segments found by the parser
	Extracted  int           // segments written this run
	Reused     int           // segments kept from an earlier run
	Failed     int           // extraction failures
	Verified   int           // segments that passed ffprobe
	Kept       time.Duration // summed duration of verified segments
	OutputSize int64
	Elapsed    time.Duration
	Results    []extract.Result
}

// Runner executes runs with one immutable configuration.
type Runner struct {
	cfg          config.Config
	tools        Tools
	dropTrailing bool
	reuse        bool
	progress     extract.ProgressFunc
	logger       hclog.Logger
	cmd          commandRunner
	stat         fileStatter
	now          func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithDropTrailing discards a final span that runs to end of media.
func WithDropTrailing(drop bool) Option {
	return func(r *Runner) { r.dropTrailing = drop }
}

// WithReuse accepts artifacts left in the workspace by an earlier run.
func WithReuse(reuse bool) Option {
	return func(r *Runner) { r.reuse = reuse }
}

// WithProgress registers a per-segment extraction callback.
func WithProgress(fn extract.ProgressFunc) Option {
	return func(r *Runner) { r.progress = fn }
}

// WithLogger sets the root logger; components get named sub-loggers.
func WithLogger(l hclog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithCommandRunner sets the command runner (for testing).
func WithCommandRunner(c commandRunner) Option {
	return func(r *Runner) { r.cmd = c }
}

// WithFileStatter sets the file statter (for testing).
func WithFileStatter(s fileStatter) Option {
	return func(r *Runner) { r.stat = s }
}

// WithClock sets the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// New creates a Runner.
func New(cfg config.Config, tools Tools, opts ...Option) *Runner {
	r := &Runner{
		cfg:    cfg,
		tools:  tools,
		logger: hclog.NewNullLogger(),
		cmd:    ffmpeg.DefaultExecutor(),
		stat:   osFileStatter{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run trims the silence out of input into output using ws for the
// intermediate segments. Phases run one after another: detect, extract,
// verify, concatenate. On success ws is torn down (unless configured to
// keep it); on failure its contents are left in place and only the lock
// is released.
func (r *Runner) Run(ctx context.Context, ws *workspace.Workspace, input, output string) (rep Report, err error) {
	started := r.now()
	rep = Report{Mode: ModeVideo, Input: input, Output: output}
	defer func() {
		rep.Elapsed = r.now().Sub(started)
		if err != nil {
			_ = ws.Release()
			r.logger.Debug("workspace preserved", "dir", ws.Dir)
		}
	}()

	detector := segment.NewDetector(r.tools.FFmpeg,
		segment.WithCommandRunner(r.cmd),
		segment.WithLogger(r.logger.Named("detect")),
	)
	log, err := detector.Detect(ctx, input, r.cfg.Threshold, r.cfg.GapDuration())
	if err != nil {
		return rep, err
	}

	var parseOpts []segment.ParseOption
	if r.dropTrailing {
		parseOpts = append(parseOpts, segment.WithDropTrailing())
	}
	segments := segment.Parse(log, ws.Namer(r.cfg.Extension), parseOpts...)

	scheduler := extract.NewScheduler(r.tools.FFmpeg,
		extract.WithWorkers(r.cfg.Jobs),
		extract.WithPreset(r.cfg.PresetValue()),
		extract.WithDecoder(r.cfg.Decoder),
		extract.WithReuse(r.reuse),
		extract.WithProgress(r.progress),
		extract.WithLogger(r.logger.Named("extract")),
		extract.WithCommandRunner(r.cmd),
	)
	results, err := scheduler.Run(ctx, input, segments)
	rep.Results = results
	tally(&rep, results)
	if err != nil {
		return rep, err
	}

	ordinals := make([]uint, 0, len(results))
	for _, res := range results {
		if res.Success {
			ordinals = append(ordinals, res.Ordinal)
		}
	}
	builder := manifest.NewBuilder(ws.ManifestPath,
		ffmpeg.NewProber(r.tools.FFprobe, ffmpeg.WithProbeRunner(r.cmd)),
		manifest.WithExtension(r.cfg.Extension),
		manifest.WithOrdinals(ordinals),
		manifest.WithLogger(r.logger.Named("manifest")),
	)
	m, err := builder.Build(ctx, ws.Dir)
	if err != nil {
		return rep, err
	}
	rep.Verified = m.Len()
	rep.Kept = m.Duration()
	r.logger.Info("manifest written", "path", m.Path, "entries", m.Len())

	driver := reassemble.NewDriver(r.tools.FFmpeg,
		reassemble.WithReencode(r.cfg.Reencode),
		reassemble.WithPreset(r.cfg.PresetValue()),
		reassemble.WithCommandRunner(r.cmd),
		reassemble.WithLogger(r.logger.Named("concat")),
	)
	if err := driver.Concat(ctx, m, output); err != nil {
		return rep, err
	}

	if info, statErr := r.stat.Stat(output); statErr == nil {
		rep.OutputSize = info.Size()
	}

	if err := ws.Teardown(r.cfg.Keep); err != nil {
		// The output is complete; a leftover workspace is only worth a warning.
		r.logger.Warn("workspace cleanup incomplete", "error", err)
	}
	return rep, nil
}

// RunAudio removes silence from an audio-only input in a single ffmpeg
// pass. No workspace, manifest or worker pool is involved.
func (r *Runner) RunAudio(ctx context.Context, input, output string) (Report, error) {
	started := r.now()
	rep := Report{Mode: ModeAudio, Input: input, Output: output}

	args, err := ffmpeg.SilenceRemoveCommand{
		Input:     input,
		Output:    output,
		Threshold: r.cfg.Threshold,
		Gap:       r.cfg.GapDuration(),
	}.Args()
	if err != nil {
		return rep, err
	}

	r.logger.Named("audio").Info("removing silence", "command", ffmpeg.CommandLine(r.tools.FFmpeg, args))
	out, err := r.cmd.CombinedOutput(ctx, r.tools.FFmpeg, args)
	rep.Elapsed = r.now().Sub(started)
	if err != nil {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		return rep, fmt.Errorf("%w: %w: %s", ErrAudioFailed, err, ffmpeg.LastLine(string(out)))
	}

	if info, statErr := r.stat.Stat(output); statErr == nil {
		rep.OutputSize = info.Size()
	}
	return rep, nil
}

func tally(rep *Report, results []extract.Result) {
	rep.Planned = len(results)
	for _, res := range results {
		switch {
		case res.Reused:
			rep.Reused++
		case res.Success:
			rep.Extracted++
		default:
			rep.Failed++
		}
	}
}
