package cli

// Export internal functions for testing.

// RunConfigSet exports runConfigSet for testing.
var RunConfigSet = runConfigSet

// RunConfigGet exports runConfigGet for testing.
var RunConfigGet = runConfigGet

// RunConfigList exports runConfigList for testing.
var RunConfigList = runConfigList

// NewLogger exports newLogger for testing.
var NewLogger = newLogger

// WriteSummary exports writeSummary for testing.
var WriteSummary = writeSummary
