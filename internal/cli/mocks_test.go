package cli

import (
	"context"
	"io"
	"sync"

	"github.com/alnah/silencecut/internal/config"
	"github.com/alnah/silencecut/internal/pipeline"
	"github.com/alnah/silencecut/internal/workspace"
)

// ---------------------------------------------------------------------------
// Mock FFmpegResolver
// ---------------------------------------------------------------------------

type mockFFmpegResolver struct {
	ResolveFunc      func(ctx context.Context) (string, error)
	ResolveProbeFunc func(ctx context.Context, ffmpegPath string) (string, error)

	mu                sync.Mutex
	resolveCalls      int
	resolveProbeCalls int
	checkVersionCalls int
}

func (m *mockFFmpegResolver) Resolve(ctx context.Context) (string, error) {
	m.mu.Lock()
	m.resolveCalls++
	m.mu.Unlock()

	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx)
	}
	return "/usr/bin/ffmpeg", nil
}

func (m *mockFFmpegResolver) ResolveProbe(ctx context.Context, ffmpegPath string) (string, error) {
	m.mu.Lock()
	m.resolveProbeCalls++
	m.mu.Unlock()

	if m.ResolveProbeFunc != nil {
		return m.ResolveProbeFunc(ctx, ffmpegPath)
	}
	return "/usr/bin/ffprobe", nil
}

func (m *mockFFmpegResolver) CheckVersion(_ context.Context, _ string, _ io.Writer) {
	m.mu.Lock()
	m.checkVersionCalls++
	m.mu.Unlock()
}

func (m *mockFFmpegResolver) ResolveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveCalls
}

func (m *mockFFmpegResolver) ResolveProbeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveProbeCalls
}

// ---------------------------------------------------------------------------
// Mock ConfigLoader
// ---------------------------------------------------------------------------

type mockConfigLoader struct {
	LoadFunc func() (config.Config, error)

	mu        sync.Mutex
	loadCalls int
}

func (m *mockConfigLoader) Load(_ context.Context) (config.Config, error) {
	m.mu.Lock()
	m.loadCalls++
	m.mu.Unlock()

	if m.LoadFunc != nil {
		return m.LoadFunc()
	}
	return config.Default(), nil
}

func (m *mockConfigLoader) LoadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadCalls
}

// ---------------------------------------------------------------------------
// Mock PipelineFactory + Pipeline
// ---------------------------------------------------------------------------

type mockPipelineFactory struct {
	mockPipeline *mockPipeline

	mu    sync.Mutex
	calls []pipelineCall
}

type pipelineCall struct {
	Config config.Config
	Tools  pipeline.Tools
	Opts   int
}

func (m *mockPipelineFactory) NewPipeline(cfg config.Config, tools pipeline.Tools, opts ...pipeline.Option) Pipeline {
	m.mu.Lock()
	m.calls = append(m.calls, pipelineCall{Config: cfg, Tools: tools, Opts: len(opts)})
	m.mu.Unlock()

	if m.mockPipeline == nil {
		m.mockPipeline = &mockPipeline{}
	}
	return m.mockPipeline
}

func (m *mockPipelineFactory) Calls() []pipelineCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]pipelineCall(nil), m.calls...)
}

type mockPipeline struct {
	RunFunc      func(ctx context.Context, ws *workspace.Workspace, input, output string) (pipeline.Report, error)
	RunAudioFunc func(ctx context.Context, input, output string) (pipeline.Report, error)

	mu         sync.Mutex
	runCalls   []runCall
	audioCalls []runCall
}

type runCall struct {
	Workspace *workspace.Workspace
	Input     string
	Output    string
}

func (m *mockPipeline) Run(ctx context.Context, ws *workspace.Workspace, input, output string) (pipeline.Report, error) {
	m.mu.Lock()
	m.runCalls = append(m.runCalls, runCall{Workspace: ws, Input: input, Output: output})
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx, ws, input, output)
	}
	return pipeline.Report{Mode: pipeline.ModeVideo, Input: input, Output: output, Planned: 3, Verified: 3}, nil
}

func (m *mockPipeline) RunAudio(ctx context.Context, input, output string) (pipeline.Report, error) {
	m.mu.Lock()
	m.audioCalls = append(m.audioCalls, runCall{Input: input, Output: output})
	m.mu.Unlock()

	if m.RunAudioFunc != nil {
		return m.RunAudioFunc(ctx, input, output)
	}
	return pipeline.Report{Mode: pipeline.ModeAudio, Input: input, Output: output}, nil
}

func (m *mockPipeline) RunCalls() []runCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]runCall(nil), m.runCalls...)
}

func (m *mockPipeline) AudioCalls() []runCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]runCall(nil), m.audioCalls...)
}

// Compile-time interface verification.
var (
	_ FFmpegResolver  = (*mockFFmpegResolver)(nil)
	_ ConfigLoader    = (*mockConfigLoader)(nil)
	_ PipelineFactory = (*mockPipelineFactory)(nil)
	_ Pipeline        = (*mockPipeline)(nil)
)
