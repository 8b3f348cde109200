package segment

import "time"

// Export internal functions for testing.
// This file is only compiled during tests (suffix _test.go).

// ParseSeconds exports parseSeconds for testing.
var ParseSeconds = parseSeconds

// ParseTimeComponents exports parseTimeComponents for testing.
var ParseTimeComponents = parseTimeComponents

// MediaDuration exports mediaDuration for testing.
func MediaDuration(log string) (time.Duration, bool) {
	return mediaDuration(log)
}

// CommandRunner exports commandRunner interface for testing.
type CommandRunner = commandRunner
