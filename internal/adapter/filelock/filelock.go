// Package filelock guards an output artifact against concurrent codeflat runs.
package filelock

import (
	"fmt"

	"github.com/gofrs/flock"

	"codeflat/internal/domain"
)

// LockSuffix is appended to the guarded path to name its lock file.
const LockSuffix = ".lock"

// FileLock wraps a flock lock held next to the file it guards.
type FileLock struct {
	flock *flock.Flock
	path  string
}

// ForOutput creates an unacquired lock for the given output path.
func ForOutput(output string) *FileLock {
	path := output + LockSuffix
	return &FileLock{
		flock: flock.New(path),
		path:  path,
	}
}

// Path returns the lock file path.
func (fl *FileLock) Path() string {
	return fl.path
}

// TryLock acquires the lock without blocking. It fails with
// domain.ErrOutputLocked when another process holds it.
func (fl *FileLock) TryLock() error {
	acquired, err := fl.flock.TryLock()
	if err != nil {
		return fmt.Errorf("%w: failed to lock %s: %v", domain.ErrOutputUnwritable, fl.path, err)
	}
	if !acquired {
		return fmt.Errorf("%w: %s", domain.ErrOutputLocked, fl.path)
	}
	return nil
}

// Unlock releases the lock. The lock file stays on disk so every run contends
// on the same inode.
func (fl *FileLock) Unlock() error {
	if err := fl.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", fl.path, err)
	}
	return nil
}
