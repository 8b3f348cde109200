package manifest

import "errors"

// ErrEmptyManifest indicates no artifact survived verification.
var ErrEmptyManifest = errors.New("no valid segments to concatenate")
