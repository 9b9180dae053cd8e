//go:build !unix && !windows

package fslock

import "os"

// Lock is a held lock. On this platform it only keeps the file open.
type Lock struct {
	f *os.File
}

func tryLock(path string) (*Lock, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Lock{f: f}, nil
}

// Unlock closes the handle.
func (l *Lock) Unlock() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

func probe(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}
