package config

import "errors"

// Sentinel errors for configuration handling.
var (
	// ErrUnknownKey indicates a config key that silencecut does not support.
	ErrUnknownKey = errors.New("unknown config key")

	// ErrInvalid indicates a configuration value failed validation.
	ErrInvalid = errors.New("invalid configuration")

	// ErrNotDirectory indicates output_dir points to a file.
	ErrNotDirectory = errors.New("path is not a directory")

	// ErrNotWritable indicates output_dir cannot be written to.
	ErrNotWritable = errors.New("directory is not writable")
)
