package ffmpeg

import (
	"fmt"
	"strconv"
	"time"

	"github.com/alnah/silencecut/internal/format"
	"github.com/alnah/silencecut/internal/preset"
)

// Typed argument builders, one per external operation. Each validates its own
// fields and returns ErrInvalidCommand rather than producing a command line
// ffmpeg would reject halfway through a run.

// Codec choices for extraction and re-encoded concatenation.
const (
	videoCodec = "libx264"
	audioCodec = "aac"
)

// DetectCommand runs the silencedetect filter over the input's audio.
type DetectCommand struct {
	Input     string
	Threshold float64       // noise tolerance as an amplitude ratio, e.g. 0.02
	Gap       time.Duration // minimum silence length that counts as a span
}

// Args returns the ffmpeg arguments for silence detection.
func (c DetectCommand) Args() ([]string, error) {
	if c.Input == "" {
		return nil, fmt.Errorf("%w: detect: empty input", ErrInvalidCommand)
	}
	if c.Threshold <= 0 {
		return nil, fmt.Errorf("%w: detect: threshold %v must be positive", ErrInvalidCommand, c.Threshold)
	}
	if c.Gap <= 0 {
		return nil, fmt.Errorf("%w: detect: gap %v must be positive", ErrInvalidCommand, c.Gap)
	}

	filter := fmt.Sprintf("[0:a]silencedetect=n=%s:d=%s[outa]", formatRatio(c.Threshold), format.Seconds(c.Gap))
	return []string{
		"-nostdin",
		"-hide_banner",
		"-i", c.Input,
		"-filter_complex", filter,
		"-map", "[outa]",
		"-f", "null",
		"-",
	}, nil
}

// ExtractCommand cuts one segment out of the input and re-encodes its video.
type ExtractCommand struct {
	Input    string
	Output   string
	Start    time.Duration
	Duration time.Duration
	ToEnd    bool // ignore Duration and read until end of media
	Preset   preset.Preset
	Decoder  string // optional input video decoder, e.g. h264_cuvid
}

// Args returns the ffmpeg arguments for segment extraction.
func (c ExtractCommand) Args() ([]string, error) {
	if c.Input == "" || c.Output == "" {
		return nil, fmt.Errorf("%w: extract: input and output are required", ErrInvalidCommand)
	}
	if c.Start < 0 {
		return nil, fmt.Errorf("%w: extract: negative start %v", ErrInvalidCommand, c.Start)
	}
	if !c.ToEnd && c.Duration <= 0 {
		return nil, fmt.Errorf("%w: extract: duration %v must be positive", ErrInvalidCommand, c.Duration)
	}
	p := c.Preset
	if p == "" {
		p = preset.Default
	}
	if p.Rank() < 0 {
		return nil, fmt.Errorf("%w: extract: %w", ErrInvalidCommand, preset.ErrInvalid)
	}

	args := []string{"-nostdin", "-y"}
	if c.Decoder != "" {
		args = append(args, "-c:v", c.Decoder)
	}
	args = append(args, "-i", c.Input, "-ss", format.Timestamp(c.Start))
	if !c.ToEnd {
		args = append(args, "-t", format.Timestamp(c.Duration))
	}
	args = append(args,
		"-v", "warning",
		"-c:a", "copy",
		"-c:v", videoCodec,
		"-preset", p.String(),
		c.Output,
	)
	return args, nil
}

// ProbeCommand inspects a file's container and streams as JSON.
type ProbeCommand struct {
	Path string
}

// Args returns the ffprobe arguments.
func (c ProbeCommand) Args() ([]string, error) {
	if c.Path == "" {
		return nil, fmt.Errorf("%w: probe: empty path", ErrInvalidCommand)
	}
	return []string{
		"-v", "error",
		"-hide_banner",
		"-show_format",
		"-show_streams",
		"-of", "json",
		"--", c.Path,
	}, nil
}

// ConcatCommand joins the files listed in a concat-demuxer manifest.
type ConcatCommand struct {
	Manifest string
	Output   string
	Reencode bool
	Preset   preset.Preset // used only when Reencode is set
}

// Args returns the ffmpeg arguments for concatenation.
// The output is never overwritten (-n).
func (c ConcatCommand) Args() ([]string, error) {
	if c.Manifest == "" || c.Output == "" {
		return nil, fmt.Errorf("%w: concat: manifest and output are required", ErrInvalidCommand)
	}

	args := []string{
		"-nostdin",
		"-n",
		"-f", "concat",
		"-safe", "0",
		"-i", c.Manifest,
	}
	if !c.Reencode {
		return append(args, "-c", "copy", c.Output), nil
	}

	p := c.Preset
	if p == "" {
		p = preset.Default
	}
	if p.Rank() < 0 {
		return nil, fmt.Errorf("%w: concat: %w", ErrInvalidCommand, preset.ErrInvalid)
	}
	return append(args,
		"-c:v", videoCodec,
		"-preset", p.String(),
		"-c:a", audioCodec,
		c.Output,
	), nil
}

// SilenceRemoveCommand strips silence from an audio stream in one pass.
type SilenceRemoveCommand struct {
	Input     string
	Output    string
	Threshold float64
	Gap       time.Duration
}

// Args returns the ffmpeg arguments for the audio-only path.
func (c SilenceRemoveCommand) Args() ([]string, error) {
	if c.Input == "" || c.Output == "" {
		return nil, fmt.Errorf("%w: silenceremove: input and output are required", ErrInvalidCommand)
	}
	if c.Threshold <= 0 {
		return nil, fmt.Errorf("%w: silenceremove: threshold %v must be positive", ErrInvalidCommand, c.Threshold)
	}
	if c.Gap <= 0 {
		return nil, fmt.Errorf("%w: silenceremove: gap %v must be positive", ErrInvalidCommand, c.Gap)
	}

	filter := fmt.Sprintf("silenceremove=stop_periods=-1:stop_duration=%s:stop_threshold=%s",
		format.Seconds(c.Gap), formatRatio(c.Threshold))
	return []string{
		"-nostdin",
		"-n",
		"-i", c.Input,
		"-af", filter,
		c.Output,
	}, nil
}

func formatRatio(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
