//go:build !windows

package filerepo

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// lockFile blocks until it holds an exclusive advisory lock on path.
func lockFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, filePermissions)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to acquire file lock: %w", err)
	}
	return f, nil
}

// unlockFile releases the lock. The lock file stays on disk so that waiters
// keep locking the same inode.
func unlockFile(f *os.File) error {
	// Flock on unix doesn't return an error for LOCK_UN
	_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
	return f.Close()
}
