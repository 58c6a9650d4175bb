// Package lockfile provides non-blocking advisory file locks keyed by
// name. Two processes driving the same backup configuration would race
// over the same mount points and device mappings, so the engine takes a
// lock for the configuration's duration and a second invocation fails
// fast instead of corrupting state.
package lockfile

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// Lock is a held advisory lock. Release it when the guarded work is done.
type Lock struct {
	f *os.File
}

// Acquire takes the advisory lock for name under dir, creating the
// directory and lock file as needed. It does not block: a lock held
// elsewhere is an immediate error.
func Acquire(dir, name string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating lock directory")
	}
	path := filepath.Join(dir, name+".lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "opening lock file")
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "locking %s", path)
	}
	return &Lock{f: f}, nil
}

// Release drops the lock. The lock file itself stays in place: unlinking
// it would let a later acquirer lock a fresh inode while another process
// still holds the old one.
func (l *Lock) Release() error {
	if err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN); err != nil {
		l.f.Close()
		return errors.Wrap(err, "unlocking")
	}
	return errors.Wrap(l.f.Close(), "closing lock file")
}
