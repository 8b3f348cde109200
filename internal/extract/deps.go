package extract

import (
	"context"
	"os"
)

// commandRunner executes external commands and returns their combined output.
type commandRunner interface {
	CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error)
}

// fileSystem covers the artifact file operations a job needs.
type fileSystem interface {
	Stat(name string) (os.FileInfo, error)
	Rename(oldpath, newpath string) error
}

// osFileSystem implements fileSystem using the os package.
type osFileSystem struct{}

func (osFileSystem) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

func (osFileSystem) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}
