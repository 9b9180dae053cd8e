//go:build windows

package fslock

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
)

// Lock is a held exclusive lock.
type Lock struct {
	h windows.Handle
}

func open(path string, share uint32) (windows.Handle, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return windows.InvalidHandle, err
	}
	return windows.CreateFile(p, windows.GENERIC_READ, share, nil,
		windows.OPEN_EXISTING, windows.FILE_ATTRIBUTE_NORMAL, 0)
}

func tryLock(path string) (*Lock, error) {
	h, err := open(path, windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE)
	if err != nil {
		if errors.Is(err, windows.ERROR_SHARING_VIOLATION) {
			return nil, ErrLocked
		}
		return nil, err
	}
	ol := new(windows.Overlapped)
	flags := uint32(windows.LOCKFILE_EXCLUSIVE_LOCK | windows.LOCKFILE_FAIL_IMMEDIATELY)
	if err := windows.LockFileEx(h, flags, 0, 1, 0, ol); err != nil {
		windows.CloseHandle(h)
		if errors.Is(err, windows.ERROR_LOCK_VIOLATION) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	return &Lock{h: h}, nil
}

// Unlock releases the lock and closes the handle.
func (l *Lock) Unlock() error {
	if l == nil || l.h == 0 {
		return nil
	}
	err := windows.UnlockFileEx(l.h, 0, 1, 0, new(windows.Overlapped))
	if cerr := windows.CloseHandle(l.h); err == nil {
		err = cerr
	}
	l.h = 0
	return err
}

func probe(path string) error {
	h, err := open(path, 0)
	if err != nil {
		if errors.Is(err, windows.ERROR_SHARING_VIOLATION) || errors.Is(err, windows.ERROR_LOCK_VIOLATION) {
			return ErrLocked
		}
		return err
	}
	return windows.CloseHandle(h)
}
