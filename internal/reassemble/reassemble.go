// Package reassemble joins verified segments into the final output with
// ffmpeg's concat demuxer.
package reassemble

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/alnah/silencecut/internal/ffmpeg"
	"github.com/alnah/silencecut/internal/manifest"
	"github.com/alnah/silencecut/internal/preset"
)

// commandRunner executes external commands and returns their combined output.
type commandRunner interface {
	CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error)
}

// Driver runs the final concatenation.
type Driver struct {
	ffmpegPath string
	reencode   bool
	preset     preset.Preset
	cmd        commandRunner
	logger     hclog.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithReencode re-encodes video and audio instead of copying streams.
func WithReencode(reencode bool) Option {
	return func(d *Driver) { d.reencode = reencode }
}

// WithPreset sets the x264 preset used when re-encoding.
func WithPreset(p preset.Preset) Option {
	return func(d *Driver) { d.preset = p }
}

// WithCommandRunner sets the command runner (for testing).
func WithCommandRunner(r commandRunner) Option {
	return func(d *Driver) { d.cmd = r }
}

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// NewDriver creates a Driver for the ffmpeg binary at ffmpegPath.
func NewDriver(ffmpegPath string, opts ...Option) *Driver {
	d := &Driver{
		ffmpegPath: ffmpegPath,
		preset:     preset.Default,
		cmd:        ffmpeg.DefaultExecutor(),
		logger:     hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Concat writes output from the entries of m. An empty manifest returns
// manifest.ErrEmptyManifest without starting ffmpeg. ffmpeg refuses to
// overwrite an existing output.
func (d *Driver) Concat(ctx context.Context, m manifest.Manifest, output string) error {
	if m.Len() == 0 {
		return manifest.ErrEmptyManifest
	}

	args, err := ffmpeg.ConcatCommand{
		Manifest: m.Path,
		Output:   output,
		Reencode: d.reencode,
		Preset:   d.preset,
	}.Args()
	if err != nil {
		return err
	}

	mode := "copy"
	if d.reencode {
		mode = "reencode"
	}
	d.logger.Info("concatenating", "segments", m.Len(), "mode", mode,
		"command", ffmpeg.CommandLine(d.ffmpegPath, args))

	out, err := d.cmd.CombinedOutput(ctx, d.ffmpegPath, args)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w: %s", ErrConcatFailed, err, ffmpeg.LastLine(string(out)))
	}
	return nil
}
