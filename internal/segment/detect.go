package segment

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/alnah/silencecut/internal/ffmpeg"
)

// Detector runs ffmpeg's silencedetect filter over an input.
type Detector struct {
	ffmpegPath string
	cmd        commandRunner
	logger     hclog.Logger
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithCommandRunner sets the command runner (for testing).
func WithCommandRunner(r commandRunner) DetectorOption {
	return func(d *Detector) { d.cmd = r }
}

// WithLogger sets the logger used to echo the detector invocation.
func WithLogger(l hclog.Logger) DetectorOption {
	return func(d *Detector) { d.logger = l }
}

// NewDetector creates a Detector for the ffmpeg binary at ffmpegPath.
func NewDetector(ffmpegPath string, opts ...DetectorOption) *Detector {
	d := &Detector{
		ffmpegPath: ffmpegPath,
		cmd:        ffmpeg.DefaultExecutor(),
		logger:     hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect returns the detector's diagnostic output for input. Any non-zero
// exit is ErrDetectFailed; partial event logs are never parsed.
func (d *Detector) Detect(ctx context.Context, input string, threshold float64, gap time.Duration) (string, error) {
	args, err := ffmpeg.DetectCommand{Input: input, Threshold: threshold, Gap: gap}.Args()
	if err != nil {
		return "", err
	}
	d.logger.Info("detecting silence", "command", ffmpeg.CommandLine(d.ffmpegPath, args))

	out, err := d.cmd.CombinedOutput(ctx, d.ffmpegPath, args)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %w: %s", ErrDetectFailed, err, ffmpeg.LastLine(string(out)))
	}
	return string(out), nil
}
