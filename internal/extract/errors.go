package extract

import "errors"

// ErrNoSegments indicates the descriptor sequence was empty: nothing to keep.
var ErrNoSegments = errors.New("no non-silent segments to extract")
