package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alnah/silencecut/internal/config"
	"github.com/alnah/silencecut/internal/extract"
	"github.com/alnah/silencecut/internal/pipeline"
	"github.com/alnah/silencecut/internal/preset"
	"github.com/alnah/silencecut/internal/workspace"
)

// trimOptions holds the flag values of the root command.
type trimOptions struct {
	audio        bool
	threshold    float64
	gap          float64
	ignoreTemp   bool
	preset       preset.Preset
	quiet        bool
	keep         bool
	reencode     bool
	jobs         int
	dropTrailing bool
	decoder      string
}

// RootCmd creates the silencecut root command. It trims silence itself and
// carries the config subcommand.
// The env parameter provides injectable dependencies for testing.
func RootCmd(env *Env, version string) *cobra.Command {
	def := config.Default()
	opts := trimOptions{preset: def.PresetValue()}

	cmd := &cobra.Command{
		Use:   "silencecut [flags] <input> <output>",
		Short: "Remove silent passages from a video or audio file",
		Long: `Remove silent passages from a video or audio file.

Silence is detected with ffmpeg's silencedetect filter. Every non-silent
span is cut into its own file in a workspace directory, in parallel, then
each file is checked with ffprobe and the survivors are joined into the
output with ffmpeg's concat demuxer.

With --audio the whole job is one ffmpeg silenceremove pass.

Settings come from built-in defaults, then the config file, then
SILENCECUT_* environment variables, then flags.`,
		Example: `  silencecut lecture.mp4 lecture-trimmed.mp4
  silencecut -t 0.05 -g 0.5 --preset fast talk.mkv talk-short.mkv
  silencecut --audio podcast.wav podcast-trimmed.wav
  silencecut --ignore-temp lecture.mp4 lecture-trimmed.mp4  # resume after an interrupted run`,
		Version:       version,
		Args:          cobra.ExactArgs(2),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrim(cmd, env, args[0], args[1], opts)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.audio, "audio", false, "Audio-only input: remove silence in a single ffmpeg pass")
	flags.Float64VarP(&opts.threshold, "threshold", "t", def.Threshold, "Silence threshold as linear amplitude (0-1]")
	flags.Float64VarP(&opts.gap, "gap", "g", def.Gap, "Minimum silence duration in seconds")
	flags.BoolVar(&opts.ignoreTemp, "ignore-temp", false, "Accept a non-empty workspace and reuse its segments")
	flags.Var(&opts.preset, "preset", "Encoder preset: "+preset.Names())
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress command echo, progress and summary")
	flags.BoolVar(&opts.keep, "keep", false, "Keep the workspace and manifest after success")
	flags.BoolVar(&opts.reencode, "reencode", false, "Re-encode while joining instead of stream copy")
	flags.IntVarP(&opts.jobs, "jobs", "j", 0, "Parallel extractions (0 = number of CPUs)")
	flags.BoolVar(&opts.dropTrailing, "drop-trailing", false, "Discard a final span that runs to end of media")
	flags.StringVar(&opts.decoder, "decoder", "", "Input video decoder, e.g. h264_cuvid")

	cmd.AddCommand(ConfigCmd(env))
	return cmd
}

// applyFlags overrides cfg with the flags the user set explicitly.
func applyFlags(cmd *cobra.Command, cfg config.Config, opts trimOptions) config.Config {
	changed := cmd.Flags().Changed
	if changed("threshold") {
		cfg.Threshold = opts.threshold
	}
	if changed("gap") {
		cfg.Gap = opts.gap
	}
	if changed("preset") {
		cfg.Preset = opts.preset.String()
	}
	if changed("quiet") {
		cfg.Quiet = opts.quiet
	}
	if changed("keep") {
		cfg.Keep = opts.keep
	}
	if changed("reencode") {
		cfg.Reencode = opts.reencode
	}
	if changed("jobs") {
		cfg.Jobs = opts.jobs
	}
	if changed("decoder") {
		cfg.Decoder = opts.decoder
	}
	return cfg
}

// runTrim executes a trimming run.
// Validation order: config -> input -> output -> workspace -> ffmpeg -> ffprobe.
// Nothing external runs until every local precondition holds.
func runTrim(cmd *cobra.Command, env *Env, input, output string, opts trimOptions) error {
	ctx := cmd.Context()

	// === VALIDATION (fail-fast) ===

	// 1. Effective configuration
	cfg, err := env.ConfigLoader.Load(ctx)
	if err != nil {
		return err
	}
	cfg = applyFlags(cmd, cfg, opts)
	if err := cfg.Validate(); err != nil {
		return err
	}

	// 2. Input is a regular file
	info, err := os.Stat(input)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, input)
		}
		return fmt.Errorf("cannot access input file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrFileNotFound, input)
	}

	// 3. Output (resolve with output_dir, never overwrite)
	if cfg.OutputDir != "" && !filepath.IsAbs(output) {
		if err := config.EnsureOutputDir(cfg.OutputDir); err != nil {
			return fmt.Errorf("invalid output_dir: %w", err)
		}
	}
	output = config.ResolveOutputPath(output, cfg.OutputDir)
	if _, err := os.Stat(output); err == nil {
		return fmt.Errorf("%w: %s", ErrOutputExists, output)
	}

	logger := newLogger(env.Stderr, cfg, env.NewRunID())
	progressOn := !cfg.Quiet && env.IsTerminal()

	// 4. Workspace (video mode only)
	var ws *workspace.Workspace
	if !opts.audio {
		ws, err = workspace.Open(cfg.Workspace, cfg.Manifest,
			workspace.WithReuse(opts.ignoreTemp),
			workspace.WithLogger(logger.Named("workspace")),
		)
		if err != nil {
			return err
		}
		defer func() { _ = ws.Release() }()
		if ws.Resumed {
			fmt.Fprintf(env.Stderr, "Resuming from workspace %s\n", ws.Dir)
		}
	}

	// === SETUP ===

	ffmpegPath, err := env.FFmpegResolver.Resolve(ctx)
	if err != nil {
		return err
	}
	env.FFmpegResolver.CheckVersion(ctx, ffmpegPath, env.Stderr)
	tools := pipeline.Tools{FFmpeg: ffmpegPath}

	pipeOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithDropTrailing(opts.dropTrailing),
		pipeline.WithReuse(opts.ignoreTemp),
		pipeline.WithClock(env.Now),
	}

	// === RUN ===

	var rep pipeline.Report
	if opts.audio {
		if !cfg.Quiet {
			fmt.Fprintln(env.Stderr, "Removing silence (audio)...")
		}
		rep, err = env.PipelineFactory.NewPipeline(cfg, tools, pipeOpts...).RunAudio(ctx, input, output)
	} else {
		tools.FFprobe, err = env.FFmpegResolver.ResolveProbe(ctx, ffmpegPath)
		if err != nil {
			return err
		}

		var bar *progress
		if progressOn {
			bar = newProgress(env.Stderr)
			pipeOpts = append(pipeOpts, pipeline.WithProgress(bar.Update))
		}
		if !cfg.Quiet {
			fmt.Fprintln(env.Stderr, "Detecting silences...")
		}
		rep, err = env.PipelineFactory.NewPipeline(cfg, tools, pipeOpts...).Run(ctx, ws, input, output)
		if bar != nil {
			bar.Finish()
		}
	}
	if err != nil {
		if ws != nil && !errors.Is(err, extract.ErrNoSegments) {
			fmt.Fprintf(env.Stderr, "Workspace kept for inspection: %s\n", ws.Dir)
		}
		return err
	}

	if !cfg.Quiet {
		writeSummary(env.Stderr, rep)
		fmt.Fprintf(env.Stderr, "Done: %s\n", output)
	}
	return nil
}
