package pipeline

import "errors"

// ErrAudioFailed indicates the single-pass silenceremove run failed.
var ErrAudioFailed = errors.New("audio silence removal failed")
