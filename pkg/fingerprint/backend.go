package fingerprint

import (
	"bufio"
	"context"
	"errors"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// Backend persists the records of one output directory.
type Backend interface {
	// Load returns all records for dir. A directory without records yields
	// an empty map, not an error.
	Load(ctx context.Context, dir string) (map[string]Record, error)
	// Save replaces all records for dir.
	Save(ctx context.Context, dir string, recs map[string]Record) error
	// Location describes where the records of dir live.
	Location(dir string) string
}

// =============================================================================
// File Backend
// =============================================================================

// StateDir is the per-output-directory folder for titleplot state.
const StateDir = ".titleplot"

// DBName is the file name of the record database inside StateDir.
const DBName = "fingerprints.db"

// FileBackend stores records in <dir>/.titleplot/fingerprints.db, one line
// per artifact. The file is rewritten atomically on every save.
type FileBackend struct {
	Logger *log.Logger
}

// NewFileBackend creates a file backend. A nil logger uses log.Default().
func NewFileBackend(logger *log.Logger) *FileBackend {
	if logger == nil {
		logger = log.Default()
	}
	return &FileBackend{Logger: logger}
}

// Location returns the database path for dir.
func (b *FileBackend) Location(dir string) string {
	return filepath.Join(dir, StateDir, DBName)
}

// Load reads the database. Malformed lines are skipped with a warning.
func (b *FileBackend) Load(ctx context.Context, dir string) (map[string]Record, error) {
	recs := map[string]Record{}
	f, err := os.Open(b.Location(dir))
	if errors.Is(err, os.ErrNotExist) {
		return recs, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		name, r, err := decodeLine(line)
		if err != nil {
			b.Logger.Warn("skipping malformed fingerprint line", "file", f.Name(), "line", n, "err", err)
			continue
		}
		recs[name] = r
	}
	return recs, sc.Err()
}

// Save writes all records sorted by name.
func (b *FileBackend) Save(ctx context.Context, dir string, recs map[string]Record) error {
	var sb strings.Builder
	for _, name := range slices.Sorted(maps.Keys(recs)) {
		line, err := encodeLine(name, recs[name])
		if err != nil {
			return err
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return writeFileAtomic(b.Location(dir), []byte(sb.String()))
}

// writeFileAtomic replaces path with data so readers never observe a
// partially written file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		d.Close()
	}
	return nil
}

// =============================================================================
// Memory Backend
// =============================================================================

// MemoryBackend keeps records in process memory.
type MemoryBackend struct {
	mu    sync.Mutex
	dirs  map[string]map[string]Record
	saves int
}

// NewMemoryBackend creates an empty memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{dirs: map[string]map[string]Record{}}
}

func (b *MemoryBackend) Location(dir string) string { return "memory:" + dir }

func (b *MemoryBackend) Load(ctx context.Context, dir string) (map[string]Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	recs := maps.Clone(b.dirs[dir])
	if recs == nil {
		recs = map[string]Record{}
	}
	return recs, nil
}

func (b *MemoryBackend) Save(ctx context.Context, dir string, recs map[string]Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dirs[dir] = maps.Clone(recs)
	b.saves++
	return nil
}

// Saves returns how many times Save was called.
func (b *MemoryBackend) Saves() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}

var (
	_ Backend = (*FileBackend)(nil)
	_ Backend = (*MemoryBackend)(nil)
)
