package fingerprint

import (
	"context"
	"maps"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	perrors "github.com/matzehuels/titleplot/pkg/errors"
	"github.com/matzehuels/titleplot/pkg/observability"
)

// Stale reasons reported to the cache hooks.
const (
	ReasonMissing     = "missing"
	ReasonMerged      = "merged"
	ReasonSource      = "source"
	ReasonFingerprint = "fingerprint"
)

// Store holds the records of one output directory. Records are loaded on
// first use and the whole mapping is saved after every mutation. A Store is
// safe for concurrent use.
type Store struct {
	dir     string
	backend Backend
	logger  *log.Logger

	mu     sync.Mutex
	loaded bool
	recs   map[string]Record
}

// NewStore creates a store for dir. A nil backend uses a FileBackend; a nil
// logger uses log.Default().
func NewStore(dir string, backend Backend, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	if backend == nil {
		backend = NewFileBackend(logger)
	}
	return &Store{dir: dir, backend: backend, logger: logger}
}

// Dir returns the output directory.
func (s *Store) Dir() string { return s.dir }

// Location describes where the records are persisted.
func (s *Store) Location() string { return s.backend.Location(s.dir) }

// ensureLoaded must be called with s.mu held.
func (s *Store) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	recs, err := s.backend.Load(ctx, s.dir)
	if err != nil {
		return perrors.Wrap(perrors.ErrCodeStorage, err, "load fingerprints from %s", s.Location())
	}
	s.recs = recs
	s.loaded = true
	s.logger.Debug("fingerprints loaded", "location", s.Location(), "records", len(recs))
	return nil
}

// edit returns a copy of the records to mutate and pass to commit. It must
// be called with s.mu held.
func (s *Store) edit() map[string]Record {
	next := make(map[string]Record, len(s.recs)+1)
	maps.Copy(next, s.recs)
	return next
}

// commit saves next and makes it the current mapping. When the save fails
// the store keeps its previous records. It must be called with s.mu held.
func (s *Store) commit(ctx context.Context, next map[string]Record) error {
	if err := s.backend.Save(ctx, s.dir, next); err != nil {
		return perrors.Wrap(perrors.ErrCodeStorage, err, "save fingerprints to %s", s.Location())
	}
	s.recs = next
	s.loaded = true
	return nil
}

// Get returns the record for name or ErrNotFound.
func (s *Store) Get(ctx context.Context, name string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return Record{}, err
	}
	r, ok := s.recs[name]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

// Put records that artifact name was produced from source in the given
// state.
func (s *Store) Put(ctx context.Context, name, source, fp string, ts time.Time) error {
	return s.put(ctx, name, Record{Source: source, Fingerprint: fp, Timestamp: ts})
}

// PutMerged records that artifact name concatenates the given sources.
func (s *Store) PutMerged(ctx context.Context, name string, sources []string) error {
	return s.put(ctx, name, Record{Sources: slices.Clone(sources)})
}

func (s *Store) put(ctx context.Context, name string, r Record) error {
	if err := perrors.ValidateArtifactName(name); err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		return perrors.Wrap(perrors.ErrCodeInvalidInput, err, "record for %q", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	next := s.edit()
	next[name] = r
	return s.commit(ctx, next)
}

// Delete removes the record for name. Deleting a missing record is not an
// error and does not write.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	if _, ok := s.recs[name]; !ok {
		return nil
	}
	next := s.edit()
	delete(next, name)
	return s.commit(ctx, next)
}

// Clear removes every record.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(ctx, map[string]Record{})
}

// Records returns a copy of all records.
func (s *Store) Records(ctx context.Context) (map[string]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return maps.Clone(s.recs), nil
}

// ArtifactsFor returns the sorted names of single-source artifacts produced
// from source.
func (s *Store) ArtifactsFor(ctx context.Context, source string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	var names []string
	for name, r := range s.recs {
		if !r.Merged() && r.Source == source {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// IsStale reports whether artifact name must be replotted from source,
// whose current modification time is ts. fp computes the current source
// fingerprint and is only called when the timestamps differ.
//
// When the timestamps differ but the fingerprints match, the stored
// timestamp is updated to ts and persisted. A failing fp counts as stale.
func (s *Store) IsStale(ctx context.Context, name, source string, ts time.Time, fp func() (string, error)) (bool, error) {
	hooks := observability.Cache()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return true, err
	}

	r, ok := s.recs[name]
	switch {
	case !ok:
		hooks.OnStale(ctx, name, ReasonMissing)
		return true, nil
	case r.Merged():
		hooks.OnStale(ctx, name, ReasonMerged)
		return true, nil
	case r.Source != source:
		hooks.OnStale(ctx, name, ReasonSource)
		return true, nil
	case r.Timestamp.Equal(ts):
		hooks.OnFresh(ctx, name)
		return false, nil
	}

	current, err := fp()
	if err != nil {
		s.logger.Warn("fingerprint unavailable, treating as stale", "artifact", name, "source", source, "err", err)
		hooks.OnStale(ctx, name, ReasonFingerprint)
		return true, nil
	}
	if current != r.Fingerprint {
		hooks.OnStale(ctx, name, ReasonFingerprint)
		return true, nil
	}

	r.Timestamp = ts
	next := s.edit()
	next[name] = r
	if err := s.commit(ctx, next); err != nil {
		return false, err
	}
	hooks.OnHeal(ctx, name)
	hooks.OnFresh(ctx, name)
	s.logger.Debug("fingerprint unchanged, timestamp healed", "artifact", name)
	return false, nil
}

// =============================================================================
// Registry
// =============================================================================

// Registry hands out one Store per output directory.
type Registry struct {
	backend Backend
	logger  *log.Logger

	mu     sync.Mutex
	stores map[string]*Store
}

// NewRegistry creates a registry whose stores share backend.
func NewRegistry(backend Backend, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	if backend == nil {
		backend = NewFileBackend(logger)
	}
	return &Registry{backend: backend, logger: logger, stores: map[string]*Store{}}
}

// Store returns the store for dir, creating it on first use.
func (r *Registry) Store(dir string) *Store {
	key := filepath.Clean(dir)
	if abs, err := filepath.Abs(key); err == nil {
		key = abs
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[key]
	if !ok {
		s = NewStore(key, r.backend, r.logger)
		r.stores[key] = s
	}
	return s
}

// Dirs returns the directories with a store, sorted.
func (r *Registry) Dirs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Sorted(maps.Keys(r.stores))
}
