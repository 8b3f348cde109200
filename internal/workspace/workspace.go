// Package workspace owns the transient directory holding extracted segments
// and the manifest path next to it.
package workspace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/hashicorp/go-hclog"

	"github.com/alnah/silencecut/internal/segment"
)

// Default locations, relative to the working directory.
const (
	DefaultDir      = "vtemp"
	DefaultManifest = "segmentlist.txt"
)

// Workspace is an opened, locked workspace directory.
type Workspace struct {
	Dir          string
	ManifestPath string
	Resumed      bool // the directory already held files and reuse was allowed

	lock   *flock.Flock
	logger hclog.Logger
}

type openConfig struct {
	reuse  bool
	logger hclog.Logger
}

// Option configures Open.
type Option func(*openConfig)

// WithReuse accepts a non-empty workspace, typically one kept by a previous run.
func WithReuse(reuse bool) Option {
	return func(c *openConfig) { c.reuse = reuse }
}

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(c *openConfig) { c.logger = l }
}

// LockPath returns the default lock file for dir.
func LockPath(dir string) string {
	return strings.TrimRight(filepath.Clean(dir), string(filepath.Separator)) + ".lock"
}

// Open checks the workspace preconditions, takes the lock and creates dir.
// It touches nothing outside dir, manifestPath and the lock file, and runs
// before any external tool so a bad setup fails fast.
func Open(dir, manifestPath string, opts ...Option) (*Workspace, error) {
	cfg := openConfig{logger: hclog.NewNullLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}
	lockPath := LockPath(dir)

	if _, err := os.Stat(manifestPath); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrFileConflict, manifestPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("check manifest: %w", err)
	}

	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire workspace lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkspaceLocked, lockPath)
	}

	ws := &Workspace{
		Dir:          dir,
		ManifestPath: manifestPath,
		lock:         lock,
		logger:       cfg.logger,
	}

	empty, err := isEmptyDir(dir)
	if err != nil {
		_ = ws.Release()
		return nil, err
	}
	if !empty {
		if !cfg.reuse {
			_ = ws.Release()
			return nil, fmt.Errorf("%w: %s (use --ignore-temp to reuse it)", ErrWorkspaceNotEmpty, dir)
		}
		ws.Resumed = true
		ws.logger.Info("reusing non-empty workspace", "dir", dir)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		_ = ws.Release()
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return ws, nil
}

// Namer returns the artifact namer for this workspace.
func (w *Workspace) Namer(ext string) segment.Namer {
	return segment.Namer{Dir: w.Dir, Ext: ext}
}

// Teardown ends a successful run. Unless keep is set it removes the
// manifest and the workspace directory. The lock is always released.
func (w *Workspace) Teardown(keep bool) error {
	var errs []error
	if !keep {
		if err := os.Remove(w.ManifestPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove manifest: %w", err))
		}
		if err := os.RemoveAll(w.Dir); err != nil {
			errs = append(errs, fmt.Errorf("remove workspace: %w", err))
		}
		w.logger.Debug("workspace removed", "dir", w.Dir)
	}
	if err := w.Release(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Release drops the lock and its file, leaving workspace contents intact.
// Safe to call more than once.
func (w *Workspace) Release() error {
	if w.lock == nil {
		return nil
	}
	path := w.lock.Path()
	err := w.lock.Unlock()
	w.lock = nil
	if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
		err = rmErr
	}
	if err != nil {
		return fmt.Errorf("release workspace lock: %w", err)
	}
	return nil
}

// isEmptyDir reports whether dir is missing or has no entries.
func isEmptyDir(dir string) (bool, error) {
	f, err := os.Open(dir)
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("open workspace: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("stat workspace: %w", err)
	}
	if !info.IsDir() {
		return false, fmt.Errorf("workspace %s is not a directory", dir)
	}

	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read workspace: %w", err)
	}
	return false, nil
}
