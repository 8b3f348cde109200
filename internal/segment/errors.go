package segment

import "errors"

// ErrDetectFailed indicates the silence detector exited non-zero without output.
var ErrDetectFailed = errors.New("silence detection failed")
