package ffmpeg

import "errors"

// ErrNotFound indicates the FFmpeg binary could not be located.
var ErrNotFound = errors.New("ffmpeg not found")

// ErrProbeNotFound indicates the ffprobe binary could not be located.
var ErrProbeNotFound = errors.New("ffprobe not found")

// ErrInvalidCommand indicates a command builder was given an unusable argument set.
var ErrInvalidCommand = errors.New("invalid ffmpeg command")

// ErrProbeFailed indicates ffprobe rejected a file (non-zero exit).
var ErrProbeFailed = errors.New("ffprobe rejected file")
