package preset

import "errors"

// ErrInvalid indicates an unknown encoder preset name was specified.
var ErrInvalid = errors.New("invalid encoder preset")
