package domain

import "errors"

// Structural failures abort a run. Per-file read failures are never returned
// as errors; they surface as FileFailure entries and inline placeholders.
var (
	ErrRootNotFound     = errors.New("root directory does not exist")
	ErrRootNotDir       = errors.New("root is not a directory")
	ErrRootUnreadable   = errors.New("root directory is not readable")
	ErrOutputUnwritable = errors.New("output file is not writable")
	ErrOutputLocked     = errors.New("output file is locked by another run")
	ErrInvalidPattern   = errors.New("invalid exclude pattern")
	ErrNoManifest       = errors.New("no manifest recorded")
)
