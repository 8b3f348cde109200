package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Prober - ffprobe integrity checks
// ---------------------------------------------------------------------------

// ProbeResult is the decoded ffprobe report for one file.
// Only the fields the pipeline reads are mapped.
type ProbeResult struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes one stream of a probed container.
type Stream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Duration  string `json:"duration"`
}

// Format carries container-level metadata.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	FormatName string `json:"format_name"`
}

// Duration returns the container duration, or 0 when ffprobe did not report one.
func (r ProbeResult) Duration() time.Duration {
	v, err := strconv.ParseFloat(strings.TrimSpace(r.Format.Duration), 64)
	if err != nil || v <= 0 || math.IsNaN(v) {
		return 0
	}
	return time.Duration(math.Round(v * float64(time.Second)))
}

// Prober runs ffprobe against media files.
type Prober struct {
	path   string
	runner outputRunner
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithProbeRunner sets the command runner (for testing).
func WithProbeRunner(r outputRunner) ProberOption {
	return func(p *Prober) { p.runner = r }
}

// NewProber creates a Prober for the ffprobe binary at ffprobePath.
func NewProber(ffprobePath string, opts ...ProberOption) *Prober {
	p := &Prober{
		path:   ffprobePath,
		runner: DefaultExecutor(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe inspects path. A non-zero ffprobe exit means the file is not a
// readable media file and returns ErrProbeFailed. When ffprobe succeeds but
// its JSON cannot be decoded the file still counts as valid and an empty
// result is returned.
func (p *Prober) Probe(ctx context.Context, path string) (ProbeResult, error) {
	args, err := ProbeCommand{Path: path}.Args()
	if err != nil {
		return ProbeResult{}, err
	}

	out, err := p.runner.Output(ctx, p.path, args)
	if err != nil {
		if ctx.Err() != nil {
			return ProbeResult{}, ctx.Err()
		}
		return ProbeResult{}, fmt.Errorf("%w: %s: %w", ErrProbeFailed, path, err)
	}

	var res ProbeResult
	if jsonErr := json.Unmarshal(out, &res); jsonErr != nil {
		return ProbeResult{}, nil
	}
	return res, nil
}
