package cli

// Notes:
// - The summary table is asserted by content, not layout; go-pretty owns
//   the borders.
// - Logger level checks go through hclog's Is* helpers.

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alnah/silencecut/internal/config"
	"github.com/alnah/silencecut/internal/extract"
	"github.com/alnah/silencecut/internal/pipeline"
)

// ---------------------------------------------------------------------------
// newLogger
// ---------------------------------------------------------------------------

func TestNewLogger_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		level     string
		quiet     bool
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{name: "default info", level: "info", wantInfo: true, wantWarn: true},
		{name: "debug", level: "debug", wantDebug: true, wantInfo: true, wantWarn: true},
		{name: "quiet raises info to warn", level: "info", quiet: true, wantWarn: true},
		{name: "quiet keeps error", level: "error", quiet: true},
		{name: "unknown falls back to info", level: "chatty", wantInfo: true, wantWarn: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Default()
			cfg.LogLevel = tt.level
			cfg.Quiet = tt.quiet

			logger := NewLogger(&bytes.Buffer{}, cfg, "")
			assert.Equal(t, tt.wantDebug, logger.IsDebug())
			assert.Equal(t, tt.wantInfo, logger.IsInfo())
			assert.Equal(t, tt.wantWarn, logger.IsWarn())
		})
	}
}

func TestNewLogger_TagsRunID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewLogger(&buf, config.Default(), "abc-123")
	logger.Named("extract").Info("segment extracted", "ordinal", 1)

	out := buf.String()
	assert.Contains(t, out, "silencecut.extract")
	assert.Contains(t, out, "run=abc-123")
	assert.Contains(t, out, "ordinal=1")
}

// ---------------------------------------------------------------------------
// writeSummary
// ---------------------------------------------------------------------------

func TestWriteSummary_Video(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	WriteSummary(&buf, pipeline.Report{
		Mode:       pipeline.ModeVideo,
		Output:     "/tmp/out.mp4",
		Planned:    5,
		Extracted:  3,
		Reused:     1,
		Failed:     1,
		Verified:   4,
		Kept:       90 * time.Second,
		OutputSize: 12_000_000,
		Elapsed:    2 * time.Minute,
	})

	out := buf.String()
	for _, want := range []string{"Segments planned", "Reused", "Failed", "01:30", "/tmp/out.mp4", "12 MB", "02:00"} {
		assert.Contains(t, out, want)
	}
}

func TestWriteSummary_AudioOmitsSegmentRows(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	WriteSummary(&buf, pipeline.Report{Mode: pipeline.ModeAudio, Output: "out.wav", OutputSize: 1000})

	out := buf.String()
	assert.NotContains(t, out, "Segments planned")
	assert.Contains(t, out, "out.wav")
	assert.Contains(t, out, "1.0 kB")
}

// ---------------------------------------------------------------------------
// progress
// ---------------------------------------------------------------------------

func TestProgress_CountsFailures(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := newProgress(&buf)
	p.Update(extract.Result{Success: true})
	p.Update(extract.Result{Err: errors.New("exit status 1")})
	p.Update(extract.Result{Err: errors.New("exit status 1")})
	p.Finish()

	assert.Equal(t, 2, p.failed)
}
