package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"github.com/alnah/silencecut/internal/config"
	"github.com/alnah/silencecut/internal/ffmpeg"
	"github.com/alnah/silencecut/internal/pipeline"
	"github.com/alnah/silencecut/internal/workspace"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have sensible defaults via DefaultEnv(). Tests can override
// specific fields using the With* options or by creating a custom Env.
//
// Env must not be nil when passed to command functions. Use DefaultEnv()
// or NewEnv() to create a valid instance.
type Env struct {
	// I/O and environment
	Stderr     io.Writer
	Getenv     func(string) string
	Now        func() time.Time
	IsTerminal func() bool   // reports whether Stderr is an interactive terminal
	NewRunID   func() string // tags every log line of a run

	// Factories for domain objects
	FFmpegResolver  FFmpegResolver
	ConfigLoader    ConfigLoader
	PipelineFactory PipelineFactory
}

// FFmpegResolver resolves the paths to the ffmpeg and ffprobe binaries.
type FFmpegResolver interface {
	Resolve(ctx context.Context) (string, error)
	ResolveProbe(ctx context.Context, ffmpegPath string) (string, error)
	CheckVersion(ctx context.Context, ffmpegPath string, w io.Writer)
}

// ConfigLoader loads the effective configuration.
type ConfigLoader interface {
	Load(ctx context.Context) (config.Config, error)
}

// Pipeline runs one silence-trimming job.
type Pipeline interface {
	Run(ctx context.Context, ws *workspace.Workspace, input, output string) (pipeline.Report, error)
	RunAudio(ctx context.Context, input, output string) (pipeline.Report, error)
}

// PipelineFactory creates pipelines.
type PipelineFactory interface {
	NewPipeline(cfg config.Config, tools pipeline.Tools, opts ...pipeline.Option) Pipeline
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stderr = w
	}
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) {
		e.Getenv = fn
	}
}

// WithNow sets the time provider.
func WithNow(fn func() time.Time) EnvOption {
	return func(e *Env) {
		e.Now = fn
	}
}

// WithIsTerminal sets the terminal detector.
func WithIsTerminal(fn func() bool) EnvOption {
	return func(e *Env) {
		e.IsTerminal = fn
	}
}

// WithRunID sets the run ID generator.
func WithRunID(fn func() string) EnvOption {
	return func(e *Env) {
		e.NewRunID = fn
	}
}

// WithFFmpegResolver sets the FFmpeg resolver.
func WithFFmpegResolver(r FFmpegResolver) EnvOption {
	return func(e *Env) {
		e.FFmpegResolver = r
	}
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) {
		e.ConfigLoader = l
	}
}

// WithPipelineFactory sets the pipeline factory.
func WithPipelineFactory(f PipelineFactory) EnvOption {
	return func(e *Env) {
		e.PipelineFactory = f
	}
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stderr:          os.Stderr,
		Getenv:          os.Getenv,
		Now:             time.Now,
		IsTerminal:      stderrIsTerminal,
		NewRunID:        uuid.NewString,
		FFmpegResolver:  &defaultFFmpegResolver{},
		ConfigLoader:    &defaultConfigLoader{},
		PipelineFactory: &defaultPipelineFactory{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

func stderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

// defaultFFmpegResolver implements FFmpegResolver using the ffmpeg package.
type defaultFFmpegResolver struct{}

func (defaultFFmpegResolver) Resolve(ctx context.Context) (string, error) {
	return ffmpeg.Resolve(ctx)
}

func (defaultFFmpegResolver) ResolveProbe(ctx context.Context, ffmpegPath string) (string, error) {
	return ffmpeg.ResolveProbe(ctx, ffmpegPath)
}

func (defaultFFmpegResolver) CheckVersion(ctx context.Context, ffmpegPath string, w io.Writer) {
	ffmpeg.CheckVersion(ctx, ffmpegPath, w)
}

// defaultConfigLoader implements ConfigLoader using the config package.
type defaultConfigLoader struct{}

func (defaultConfigLoader) Load(ctx context.Context) (config.Config, error) {
	return config.Load(ctx)
}

// defaultPipelineFactory implements PipelineFactory using the pipeline package.
type defaultPipelineFactory struct{}

func (defaultPipelineFactory) NewPipeline(cfg config.Config, tools pipeline.Tools, opts ...pipeline.Option) Pipeline {
	return pipeline.New(cfg, tools, opts...)
}

// Compile-time interface verification.
var (
	_ FFmpegResolver  = (*defaultFFmpegResolver)(nil)
	_ ConfigLoader    = (*defaultConfigLoader)(nil)
	_ PipelineFactory = (*defaultPipelineFactory)(nil)
	_ Pipeline        = (*pipeline.Runner)(nil)
)
