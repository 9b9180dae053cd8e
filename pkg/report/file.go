package report

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/titleplot/pkg/batch"
	"github.com/matzehuels/titleplot/pkg/fingerprint"
)

// FileSink writes <outDir>/.titleplot/runs/<runID>.json.
type FileSink struct {
	dir string
}

// NewFileSink creates a sink for the given output directory.
func NewFileSink(outDir string) *FileSink {
	return &FileSink{dir: filepath.Join(outDir, fingerprint.StateDir, "runs")}
}

// Dir returns the directory holding the run files.
func (s *FileSink) Dir() string { return s.dir }

func (s *FileSink) path(id string) string { return filepath.Join(s.dir, id+".json") }

// Write stores sum as indented JSON.
func (s *FileSink) Write(ctx context.Context, sum *batch.Summary) error {
	if err := validateRunID(sum.RunID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path(sum.RunID), data, 0o644)
}

// Close does nothing for the file sink.
func (s *FileSink) Close(ctx context.Context) error { return nil }

// Get loads one run.
func (s *FileSink) Get(ctx context.Context, id string) (*batch.Summary, error) {
	if err := validateRunID(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var sum batch.Summary
	if err := json.Unmarshal(data, &sum); err != nil {
		return nil, err
	}
	return &sum, nil
}

// List returns all runs, newest first. Unreadable files are skipped.
func (s *FileSink) List(ctx context.Context) ([]Entry, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []Entry
	for _, e := range entries {
		id, ok := strings.CutSuffix(e.Name(), ".json")
		if e.IsDir() || !ok {
			continue
		}
		sum, err := s.Get(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, EntryOf(sum))
	}
	slices.SortFunc(out, func(a, b Entry) int { return cmp.Compare(b.Started.UnixNano(), a.Started.UnixNano()) })
	return out, nil
}

var (
	_ Sink    = (*FileSink)(nil)
	_ Archive = (*FileSink)(nil)
	_ Sink    = NopSink{}
)
