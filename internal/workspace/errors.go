package workspace

import "errors"

// Sentinel errors for workspace preconditions.
var (
	// ErrFileConflict indicates the manifest path already exists.
	ErrFileConflict = errors.New("manifest file already exists")

	// ErrWorkspaceNotEmpty indicates the workspace holds files from another run.
	ErrWorkspaceNotEmpty = errors.New("workspace is not empty")

	// ErrWorkspaceLocked indicates another run holds the workspace lock.
	ErrWorkspaceLocked = errors.New("workspace is in use by another run")
)
