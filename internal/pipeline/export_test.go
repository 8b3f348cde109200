package pipeline

// CommandRunner exports commandRunner interface for testing.
type CommandRunner = commandRunner
