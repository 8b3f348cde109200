package extract

// CommandRunner exports commandRunner interface for testing.
type CommandRunner = commandRunner

// FileSystem exports fileSystem interface for testing.
type FileSystem = fileSystem
