package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

const (
	// minFFmpegMajorVersion is the minimum supported ffmpeg version.
	// Older builds lack the concat demuxer -safe option and silencedetect fixes.
	minFFmpegMajorVersion = 4

	// binaryExtWindows is the file extension for Windows executables.
	binaryExtWindows = ".exe"

	// installDirName is the per-user directory searched before $PATH.
	installDirName = ".silencecut"
)

// Environment variables overriding binary lookup.
const (
	EnvFFmpegPath  = "FFMPEG_PATH"
	EnvFFprobePath = "FFPROBE_PATH"
)

// tool describes one external binary the pipeline drives.
type tool struct {
	name   string
	envVar string
	err    error
}

var (
	ffmpegTool  = tool{name: "ffmpeg", envVar: EnvFFmpegPath, err: ErrNotFound}
	ffprobeTool = tool{name: "ffprobe", envVar: EnvFFprobePath, err: ErrProbeNotFound}
)

// ---------------------------------------------------------------------------
// Resolver - testable binary resolution with dependency injection
// ---------------------------------------------------------------------------

// Resolver finds the ffmpeg and ffprobe binaries.
type Resolver struct {
	stat fileStatter
	env  envProvider
	goos string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithFileStatter sets the file statter implementation.
func WithFileStatter(s fileStatter) ResolverOption {
	return func(r *Resolver) { r.stat = s }
}

// WithEnvProvider sets the environment provider implementation.
func WithEnvProvider(e envProvider) ResolverOption {
	return func(r *Resolver) { r.env = e }
}

// WithPlatform sets the target OS (for testing cross-platform behavior).
func WithPlatform(goos string) ResolverOption {
	return func(r *Resolver) { r.goos = goos }
}

// NewResolver creates a Resolver with the given options.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		stat: osFileStatter{},
		env:  osEnvProvider{},
		goos: runtime.GOOS,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds ffmpeg using the following precedence:
//  1. FFMPEG_PATH environment variable (error if set but invalid)
//  2. ~/.silencecut/bin/ffmpeg
//  3. System PATH
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	return r.resolve(ctx, ffmpegTool, "")
}

// ResolveProbe finds ffprobe. Same precedence as Resolve, except that the
// directory holding ffmpegPath is searched before the system PATH, since the
// two binaries ship together.
func (r *Resolver) ResolveProbe(ctx context.Context, ffmpegPath string) (string, error) {
	hint := ""
	if ffmpegPath != "" {
		hint = filepath.Dir(ffmpegPath)
	}
	return r.resolve(ctx, ffprobeTool, hint)
}

func (r *Resolver) resolve(_ context.Context, t tool, siblingDir string) (string, error) {
	if envPath := r.env.Getenv(t.envVar); envPath != "" {
		if _, err := r.stat.Stat(envPath); err != nil {
			return "", fmt.Errorf("%w: %s is set to %q but binary not found", t.err, t.envVar, envPath)
		}
		return envPath, nil
	}

	name := r.binaryName(t)

	if home, err := r.env.UserHomeDir(); err == nil {
		candidate := filepath.Join(home, installDirName, "bin", name)
		if r.isFile(candidate) {
			return candidate, nil
		}
	}

	if siblingDir != "" {
		candidate := filepath.Join(siblingDir, name)
		if r.isFile(candidate) {
			return candidate, nil
		}
	}

	if path, err := r.env.LookPath(t.name); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("%w\n\n%s", t.err, r.manualInstallInstructions(t))
}

func (r *Resolver) binaryName(t tool) string {
	if r.goos == "windows" {
		return t.name + binaryExtWindows
	}
	return t.name
}

func (r *Resolver) isFile(path string) bool {
	info, err := r.stat.Stat(path)
	return err == nil && !info.IsDir()
}

// manualInstallInstructions returns platform-specific instructions.
func (r *Resolver) manualInstallInstructions(t tool) string {
	switch r.goos {
	case "darwin":
		return fmt.Sprintf(`To install FFmpeg (includes ffprobe):
  brew install ffmpeg

Or set %s to your %s binary.`, t.envVar, t.name)
	case "linux":
		return fmt.Sprintf(`To install FFmpeg (includes ffprobe):
  Ubuntu/Debian: sudo apt install ffmpeg
  Fedora:        sudo dnf install ffmpeg
  Arch:          sudo pacman -S ffmpeg

Or set %s to your %s binary.`, t.envVar, t.name)
	case "windows":
		return fmt.Sprintf(`To install FFmpeg (includes ffprobe):
  winget install ffmpeg

Or set %s to your %s.exe.`, t.envVar, t.name)
	default:
		return fmt.Sprintf(`Download FFmpeg from https://ffmpeg.org/download.html
Or set %s to your %s binary.`, t.envVar, t.name)
	}
}

// ---------------------------------------------------------------------------
// Package-level functions - default resolver facade
// ---------------------------------------------------------------------------

var (
	defaultResolver     *Resolver
	defaultResolverOnce sync.Once
)

func getDefaultResolver() *Resolver {
	defaultResolverOnce.Do(func() {
		defaultResolver = NewResolver()
	})
	return defaultResolver
}

// Resolve finds ffmpeg using the default resolver.
func Resolve(ctx context.Context) (string, error) {
	return getDefaultResolver().Resolve(ctx)
}

// ResolveProbe finds ffprobe using the default resolver.
func ResolveProbe(ctx context.Context, ffmpegPath string) (string, error) {
	return getDefaultResolver().ResolveProbe(ctx, ffmpegPath)
}

// ---------------------------------------------------------------------------
// VersionChecker
// ---------------------------------------------------------------------------

// VersionChecker verifies FFmpeg version requirements.
type VersionChecker struct {
	executor *Executor
	stderr   io.Writer
}

// VersionCheckerOption configures a VersionChecker.
type VersionCheckerOption func(*VersionChecker)

// WithVersionExecutor sets the executor for running FFmpeg.
func WithVersionExecutor(e *Executor) VersionCheckerOption {
	return func(vc *VersionChecker) { vc.executor = e }
}

// WithVersionStderr sets the writer for warning messages.
func WithVersionStderr(w io.Writer) VersionCheckerOption {
	return func(vc *VersionChecker) { vc.stderr = w }
}

// NewVersionChecker creates a VersionChecker with the given options.
func NewVersionChecker(opts ...VersionCheckerOption) *VersionChecker {
	vc := &VersionChecker{
		executor: DefaultExecutor(),
		stderr:   os.Stderr,
	}
	for _, opt := range opts {
		opt(vc)
	}
	return vc
}

// Check verifies that ffmpeg meets minimum version requirements.
// Prints a warning if the version is below minimum but doesn't fail.
// Returns true if the version was successfully parsed.
func (vc *VersionChecker) Check(ctx context.Context, ffmpegPath string) bool {
	output, err := vc.executor.RunOutput(ctx, ffmpegPath, []string{"-version"})
	if err != nil && output == "" {
		return false
	}

	first, _, _ := strings.Cut(output, "\n")
	if first == "" {
		return false
	}

	var major int
	if _, err := fmt.Sscanf(first, "ffmpeg version %d", &major); err != nil {
		// Git builds print "ffmpeg version n6.1.1-...".
		if _, err := fmt.Sscanf(first, "ffmpeg version n%d", &major); err != nil {
			return false
		}
	}

	if major < minFFmpegMajorVersion {
		fmt.Fprintf(vc.stderr, "Warning: ffmpeg version %d detected, version %d+ recommended\n",
			major, minFFmpegMajorVersion)
	}
	return true
}

// CheckVersion verifies ffmpeg's version with a default VersionChecker.
func CheckVersion(ctx context.Context, ffmpegPath string, stderr io.Writer) {
	NewVersionChecker(WithVersionStderr(stderr)).Check(ctx, ffmpegPath)
}
