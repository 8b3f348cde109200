package manifest

import (
	"context"
	"os"

	"github.com/alnah/silencecut/internal/ffmpeg"
)

// prober checks that a file is readable media.
type prober interface {
	Probe(ctx context.Context, path string) (ffmpeg.ProbeResult, error)
}

// fileSystem is the subset of filesystem operations the builder needs.
type fileSystem interface {
	ReadDir(name string) ([]os.DirEntry, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
}

var (
	_ prober     = (*ffmpeg.Prober)(nil)
	_ fileSystem = osFileSystem{}
)

// osFileSystem implements fileSystem using the os package.
type osFileSystem struct{}

func (osFileSystem) ReadDir(name string) ([]os.DirEntry, error) {
	return os.ReadDir(name)
}

func (osFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}
