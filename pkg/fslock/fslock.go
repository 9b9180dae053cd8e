// Package fslock provides non-blocking exclusive file locks and an
// exclusive-open probe.
//
// On unix systems locks are flock(2) advisory locks, held per open file, so
// two handles in the same process conflict as well. On Windows the lock is
// LockFileEx and the probe opens the file with a zero share mode, which
// fails while any other handle (such as a print driver still writing) is
// open.
package fslock

import "errors"

// ErrLocked is returned when another handle holds the file.
var ErrLocked = errors.New("fslock: file is locked")

// Probe reports whether path can be opened exclusively right now. It
// returns nil on success, ErrLocked when another handle holds the file, and
// the open error otherwise. The handle is released before returning.
func Probe(path string) error {
	return probe(path)
}

// TryLock takes an exclusive lock on an existing file without blocking.
func TryLock(path string) (*Lock, error) {
	return tryLock(path)
}
