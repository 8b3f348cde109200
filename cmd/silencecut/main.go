package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/alnah/silencecut/internal/cli"
	"github.com/alnah/silencecut/internal/config"
	"github.com/alnah/silencecut/internal/extract"
	"github.com/alnah/silencecut/internal/ffmpeg"
	"github.com/alnah/silencecut/internal/manifest"
	"github.com/alnah/silencecut/internal/pipeline"
	"github.com/alnah/silencecut/internal/reassemble"
	"github.com/alnah/silencecut/internal/segment"
	"github.com/alnah/silencecut/internal/workspace"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Process exit codes.
const (
	ExitOK         = 0
	ExitGeneral    = 1
	ExitUsage      = 2
	ExitSetup      = 3
	ExitValidation = 4
	ExitProcessing = 5
	ExitInterrupt  = 130
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// Context with signal cancellation; running ffmpeg processes are killed
	// through exec.CommandContext.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	env := cli.DefaultEnv()
	rootCmd := cli.RootCmd(env, fmt.Sprintf("%s (commit: %s)", version, commit))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors to process exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	// Check for context cancellation (interrupt).
	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	// Usage errors (ExitUsage = 2): Cobra flag/arg parsing errors.
	// Cobra doesn't expose typed errors, so we check for known error message patterns.
	if isCobraUsageError(err) {
		return ExitUsage
	}

	// Setup errors (ExitSetup = 3).
	if errors.Is(err, ffmpeg.ErrNotFound) || errors.Is(err, ffmpeg.ErrProbeNotFound) {
		return ExitSetup
	}

	// Validation and precondition errors (ExitValidation = 4).
	if errors.Is(err, cli.ErrFileNotFound) || errors.Is(err, cli.ErrOutputExists) ||
		errors.Is(err, workspace.ErrFileConflict) || errors.Is(err, workspace.ErrWorkspaceNotEmpty) ||
		errors.Is(err, workspace.ErrWorkspaceLocked) || errors.Is(err, config.ErrInvalid) ||
		errors.Is(err, config.ErrUnknownKey) || errors.Is(err, config.ErrNotDirectory) ||
		errors.Is(err, config.ErrNotWritable) || errors.Is(err, ffmpeg.ErrInvalidCommand) {
		return ExitValidation
	}

	// Processing errors (ExitProcessing = 5).
	if errors.Is(err, segment.ErrDetectFailed) || errors.Is(err, extract.ErrNoSegments) ||
		errors.Is(err, manifest.ErrEmptyManifest) || errors.Is(err, reassemble.ErrConcatFailed) ||
		errors.Is(err, pipeline.ErrAudioFailed) {
		return ExitProcessing
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate Cobra usage errors.
// Cobra doesn't expose typed errors, so string matching is the only reliable approach.
var cobraUsageErrorPatterns = []string{
	"required flag",             // Missing required flag
	"unknown flag",              // Flag doesn't exist
	"unknown shorthand",         // Short flag doesn't exist
	"unknown command",           // Subcommand doesn't exist
	"flag needs an argument",    // Flag provided without value
	"invalid argument",          // Invalid flag value type
	"if any flags in the group", // Mutually exclusive flag violation
	"accepts ",                  // Wrong number of arguments (e.g., "accepts 2 arg(s)")
	"requires at least",         // Too few arguments
	"requires at most",          // Too many arguments
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
