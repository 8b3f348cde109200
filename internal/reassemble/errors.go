package reassemble

import "errors"

// ErrConcatFailed indicates ffmpeg could not join the segments.
var ErrConcatFailed = errors.New("concatenation failed")
