package fingerprint

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	perrors "github.com/matzehuels/titleplot/pkg/errors"
	"github.com/matzehuels/titleplot/pkg/observability"
)

var (
	t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
)

func fixed(fp string) func() (string, error) {
	return func() (string, error) { return fp, nil }
}

func TestIsStale(t *testing.T) {
	tests := []struct {
		name    string
		record  *Record
		source  string
		ts      time.Time
		fp      func() (string, error)
		want    bool
		healed  bool
		fpCalls int
	}{
		{"no record", nil, "a.json", t0, fixed("x"), true, false, 0},
		{"merged", &Record{Sources: []string{"a.json", "b.json"}}, "a.json", t0, fixed("x"), true, false, 0},
		{"other source", &Record{Source: "b.json", Fingerprint: "x", Timestamp: t0}, "a.json", t0, fixed("x"), true, false, 0},
		{"same timestamp", &Record{Source: "a.json", Fingerprint: "x", Timestamp: t0}, "a.json", t0, fixed("changed"), false, false, 0},
		{"touched but unchanged", &Record{Source: "a.json", Fingerprint: "x", Timestamp: t0}, "a.json", t1, fixed("x"), false, true, 1},
		{"changed", &Record{Source: "a.json", Fingerprint: "x", Timestamp: t0}, "a.json", t1, fixed("y"), true, false, 1},
		{"fingerprint error", &Record{Source: "a.json", Fingerprint: "x", Timestamp: t0}, "a.json", t1,
			func() (string, error) { return "", errors.New("locked") }, true, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			backend := NewMemoryBackend()
			if tt.record != nil {
				backend.Save(ctx, "out", map[string]Record{"a_01.pdf": *tt.record})
			}
			s := NewStore("out", backend, nil)

			calls := 0
			fp := func() (string, error) { calls++; return tt.fp() }
			got, err := s.IsStale(ctx, "a_01.pdf", tt.source, tt.ts, fp)
			if err != nil {
				t.Fatalf("IsStale: %v", err)
			}
			if got != tt.want {
				t.Errorf("IsStale = %v, want %v", got, tt.want)
			}
			if calls != tt.fpCalls {
				t.Errorf("fingerprint computed %d times, want %d", calls, tt.fpCalls)
			}

			// A fresh store over the same backend sees the healed timestamp.
			r, err := NewStore("out", backend, nil).Get(ctx, "a_01.pdf")
			if tt.record == nil {
				if !errors.Is(err, ErrNotFound) {
					t.Errorf("Get err = %v, want ErrNotFound", err)
				}
				return
			}
			if healed := r.Timestamp.Equal(tt.ts) && !tt.record.Timestamp.Equal(tt.ts); healed != tt.healed {
				t.Errorf("stored timestamp = %v, healed = %v, want %v", r.Timestamp, healed, tt.healed)
			}
		})
	}
}

func TestIsStaleAfterHealIsCheap(t *testing.T) {
	ctx := context.Background()
	s := NewStore("out", NewMemoryBackend(), nil)
	if err := s.Put(ctx, "a_01.pdf", "a.json", "x", t0); err != nil {
		t.Fatal(err)
	}
	if stale, _ := s.IsStale(ctx, "a_01.pdf", "a.json", t1, fixed("x")); stale {
		t.Fatal("expected fresh after heal")
	}
	fail := func() (string, error) {
		t.Error("fingerprint recomputed after heal")
		return "", nil
	}
	if stale, _ := s.IsStale(ctx, "a_01.pdf", "a.json", t1, fail); stale {
		t.Error("expected fresh")
	}
}

func TestStoreFlushesEveryMutation(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	s := NewStore("out", backend, nil)

	steps := []func() error{
		func() error { return s.Put(ctx, "a_01.pdf", "a.json", "x", t0) },
		func() error { return s.Put(ctx, "a_02.pdf", "a.json", "x", t0) },
		func() error { return s.PutMerged(ctx, "all.pdf", []string{"a_01.pdf", "a_02.pdf"}) },
		func() error { return s.Delete(ctx, "a_02.pdf") },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if backend.Saves() != i+1 {
			t.Fatalf("after step %d saves = %d", i, backend.Saves())
		}
	}

	if err := s.Delete(ctx, "missing.pdf"); err != nil {
		t.Errorf("Delete missing: %v", err)
	}
	if backend.Saves() != len(steps) {
		t.Error("deleting a missing record should not write")
	}

	recs, _ := NewStore("out", backend, nil).Records(ctx)
	if len(recs) != 2 || !recs["all.pdf"].Merged() {
		t.Errorf("persisted records = %v", recs)
	}
}

func TestStoreArtifactsFor(t *testing.T) {
	ctx := context.Background()
	s := NewStore("out", NewMemoryBackend(), nil)
	for _, name := range []string{"a_02.pdf", "a_01.pdf"} {
		s.Put(ctx, name, "a.json", "x", t0)
	}
	s.Put(ctx, "b_01.pdf", "b.json", "y", t0)
	s.PutMerged(ctx, "all.pdf", []string{"a.json"})

	got, err := s.ArtifactsFor(ctx, "a.json")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"a_01.pdf", "a_02.pdf"}; !slices.Equal(got, want) {
		t.Errorf("ArtifactsFor = %v, want %v", got, want)
	}
}

func TestStoreRejectsInvalidRecords(t *testing.T) {
	ctx := context.Background()
	s := NewStore("out", NewMemoryBackend(), nil)

	if err := s.Put(ctx, "a|||b.pdf", "a.json", "x", t0); !perrors.Is(err, perrors.ErrCodeInvalidName) {
		t.Errorf("separator in name: err = %v", err)
	}
	if err := s.Put(ctx, "a.pdf", "", "x", t0); !perrors.Is(err, perrors.ErrCodeInvalidInput) {
		t.Errorf("empty source: err = %v", err)
	}
	if err := s.PutMerged(ctx, "all.pdf", nil); !perrors.Is(err, perrors.ErrCodeInvalidInput) {
		t.Errorf("merged without sources: err = %v", err)
	}
}

func TestStoreClear(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	s := NewStore("out", backend, nil)
	s.Put(ctx, "a_01.pdf", "a.json", "x", t0)

	if err := s.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	recs, _ := NewStore("out", backend, nil).Records(ctx)
	if len(recs) != 0 {
		t.Errorf("records after clear = %v", recs)
	}
}

func TestRecordValidate(t *testing.T) {
	tests := []struct {
		name string
		r    Record
		ok   bool
	}{
		{"single", Record{Source: "a.json", Fingerprint: "x", Timestamp: t0}, true},
		{"merged", Record{Sources: []string{"a.json"}}, true},
		{"both", Record{Source: "a.json", Sources: []string{"b.json"}}, false},
		{"neither", Record{Fingerprint: "x"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(NewMemoryBackend(), nil)
	a := r.Store("out")
	if r.Store("out/") != a || r.Store("./out") != a {
		t.Error("equivalent paths should share a store")
	}
	if r.Store("other") == a {
		t.Error("different directories should not share a store")
	}
	if len(r.Dirs()) != 2 {
		t.Errorf("Dirs = %v", r.Dirs())
	}
}

type recordingHooks struct {
	observability.NoopCacheHooks
	mu     sync.Mutex
	events []string
}

func (h *recordingHooks) OnFresh(_ context.Context, a string) { h.add("fresh " + a) }
func (h *recordingHooks) OnStale(_ context.Context, a, reason string) {
	h.add("stale " + a + " " + reason)
}
func (h *recordingHooks) OnHeal(_ context.Context, a string) { h.add("heal " + a) }

func (h *recordingHooks) add(e string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func TestIsStaleEmitsCacheHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetCacheHooks(hooks)
	defer observability.Reset()

	ctx := context.Background()
	s := NewStore("out", NewMemoryBackend(), nil)
	s.Put(ctx, "a_01.pdf", "a.json", "x", t0)
	s.IsStale(ctx, "a_01.pdf", "a.json", t1, fixed("x"))
	s.IsStale(ctx, "a_02.pdf", "a.json", t1, fixed("x"))

	want := []string{"heal a_01.pdf", "fresh a_01.pdf", "stale a_02.pdf missing"}
	if !slices.Equal(hooks.events, want) {
		t.Errorf("events = %v, want %v", hooks.events, want)
	}
}

// flakyBackend fails every Save while full is set.
type flakyBackend struct {
	*MemoryBackend
	full bool
}

func (b *flakyBackend) Save(ctx context.Context, dir string, recs map[string]Record) error {
	if b.full {
		return errors.New("disk full")
	}
	return b.MemoryBackend.Save(ctx, dir, recs)
}

func TestFailedSaveKeepsPreviousRecords(t *testing.T) {
	ctx := context.Background()
	backend := &flakyBackend{MemoryBackend: NewMemoryBackend()}
	s := NewStore("out", backend, nil)
	if err := s.Put(ctx, "a_01.pdf", "a.json", "x", t0); err != nil {
		t.Fatal(err)
	}
	backend.full = true

	if err := s.Put(ctx, "b_01.pdf", "b.json", "y", t0); !perrors.Is(err, perrors.ErrCodeStorage) {
		t.Fatalf("Put err = %v, want STORAGE_ERROR", err)
	}
	if stale, _ := s.IsStale(ctx, "b_01.pdf", "b.json", t0, fixed("y")); !stale {
		t.Error("unsaved record reported fresh")
	}

	if err := s.Delete(ctx, "a_01.pdf"); !perrors.Is(err, perrors.ErrCodeStorage) {
		t.Fatalf("Delete err = %v, want STORAGE_ERROR", err)
	}
	if _, err := s.Get(ctx, "a_01.pdf"); err != nil {
		t.Errorf("record gone after failed delete: %v", err)
	}

	if _, err := s.IsStale(ctx, "a_01.pdf", "a.json", t1, fixed("x")); !perrors.Is(err, perrors.ErrCodeStorage) {
		t.Fatalf("heal err = %v, want STORAGE_ERROR", err)
	}
	if r, _ := s.Get(ctx, "a_01.pdf"); !r.Timestamp.Equal(t0) {
		t.Errorf("timestamp healed in memory only: %v", r.Timestamp)
	}

	if err := s.Clear(ctx); err == nil {
		t.Fatal("Clear succeeded with a failing backend")
	}
	if recs, _ := s.Records(ctx); len(recs) != 1 {
		t.Errorf("records after failed clear = %v", recs)
	}
}
