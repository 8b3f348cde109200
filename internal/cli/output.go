package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/hashicorp/go-hclog"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/schollz/progressbar/v3"

	"github.com/alnah/silencecut/internal/config"
	"github.com/alnah/silencecut/internal/extract"
	"github.com/alnah/silencecut/internal/format"
	"github.com/alnah/silencecut/internal/pipeline"
)

// newLogger creates the root logger of a run. Quiet mode raises the level to
// warn so command echoes disappear while extraction failures still show.
func newLogger(w io.Writer, cfg config.Config, runID string) hclog.Logger {
	level := hclog.LevelFromString(cfg.LogLevel)
	if level == hclog.NoLevel {
		level = hclog.Info
	}
	if cfg.Quiet && level < hclog.Warn {
		level = hclog.Warn
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "silencecut",
		Level:  level,
		Output: w,
		Color:  hclog.AutoColor,
	})
	if runID != "" {
		logger = logger.With("run", runID)
	}
	return logger
}

// progress tracks extraction on an interactive terminal.
// The segment count is unknown until the parser finishes, so the bar
// renders as a spinner with a running count.
type progress struct {
	bar    *progressbar.ProgressBar
	failed int
}

func newProgress(w io.Writer) *progress {
	return &progress{
		bar: progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription("Extracting segments"),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionShowCount(),
			progressbar.OptionSetElapsedTime(true),
			progressbar.OptionClearOnFinish(),
		),
	}
}

// Update is an extract.ProgressFunc.
func (p *progress) Update(res extract.Result) {
	if !res.Success {
		p.failed++
		p.bar.Describe(fmt.Sprintf("Extracting segments (%d failed)", p.failed))
	}
	_ = p.bar.Add(1)
}

func (p *progress) Finish() {
	_ = p.bar.Finish()
}

// writeSummary renders the end-of-run table.
func writeSummary(w io.Writer, rep pipeline.Report) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Summary", ""})

	if rep.Mode == pipeline.ModeVideo {
		tw.AppendRows([]table.Row{
			{"Segments planned", strconv.Itoa(rep.Planned)},
			{"Extracted", strconv.Itoa(rep.Extracted)},
			{"Reused", strconv.Itoa(rep.Reused)},
			{"Failed", strconv.Itoa(rep.Failed)},
			{"Verified", strconv.Itoa(rep.Verified)},
			{"Kept duration", format.Duration(rep.Kept)},
		})
		tw.AppendSeparator()
	}
	tw.AppendRows([]table.Row{
		{"Output", rep.Output},
		{"Output size", format.Size(rep.OutputSize)},
		{"Elapsed", format.Duration(rep.Elapsed)},
	})

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignRight},
	})
	tw.Render()
}
