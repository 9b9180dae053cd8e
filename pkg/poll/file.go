package poll

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/matzehuels/titleplot/pkg/fslock"
)

// Reasons a file is not ready yet.
var (
	ErrFileMissing = errors.New("file does not exist")
	ErrFileEmpty   = errors.New("file is empty")
	ErrFileBusy    = errors.New("file is still open by its writer")
)

// FileReady returns a probe that succeeds once path exists, has non-zero
// size and can be opened exclusively. The last condition proves that the
// writer released its handle.
func FileReady(path string) Probe {
	return func(ctx context.Context) (bool, error) {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return false, ErrFileMissing
			}
			return false, err
		}
		if info.IsDir() {
			return false, Permanent(fmt.Errorf("%s is a directory", path))
		}
		if info.Size() == 0 {
			return false, ErrFileEmpty
		}
		if err := fslock.Probe(path); err != nil {
			if errors.Is(err, fslock.ErrLocked) {
				return false, ErrFileBusy
			}
			return false, err
		}
		return true, nil
	}
}
