package pipeline

import (
	"context"
	"os"

	"github.com/alnah/silencecut/internal/ffmpeg"
)

// commandRunner runs ffmpeg-family commands. CombinedOutput serves ffmpeg,
// Output serves ffprobe.
type commandRunner interface {
	CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error)
	Output(ctx context.Context, name string, args []string) ([]byte, error)
}

// fileStatter retrieves file information.
type fileStatter interface {
	Stat(name string) (os.FileInfo, error)
}

var (
	_ commandRunner = (*ffmpeg.Executor)(nil)
	_ fileStatter   = osFileStatter{}
)

type osFileStatter struct{}

func (osFileStatter) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}
