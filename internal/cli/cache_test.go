package cli

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/titleplot/pkg/fingerprint"
)

func TestCacheClear(t *testing.T) {
	ctx := context.Background()
	dir := isolate(t)
	out := filepath.Join(dir, "out")

	store := fingerprint.NewStore(out, fingerprint.NewFileBackend(nil), nil)
	if err := store.Put(ctx, "plan_01.pdf", "plan.json", "r1", time.Now()); err != nil {
		t.Fatal(err)
	}

	if err := execute(t, "cache", "clear", "-o", out); err != nil {
		t.Fatalf("cache clear: %v", err)
	}

	recs, err := fingerprint.NewStore(out, fingerprint.NewFileBackend(nil), nil).Records(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Errorf("records after clear = %v", recs)
	}

	// Clearing an empty cache is not an error.
	if err := execute(t, "cache", "clear", "-o", out); err != nil {
		t.Errorf("second clear: %v", err)
	}
}

func TestRuntimeStoreLocation(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		check   func(loc string) bool
	}{
		{"file", "", func(loc string) bool {
			return strings.HasSuffix(loc, filepath.Join(fingerprint.StateDir, fingerprint.DBName))
		}},
		{"memory", "memory", func(loc string) bool { return strings.HasPrefix(loc, "memory:") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			if tt.backend != "" {
				t.Setenv("TITLEPLOT_CACHE_BACKEND", tt.backend)
			}
			c := New(io.Discard, LogInfo)
			rt, err := c.newRuntime(context.Background(), runtimeOptions{})
			if err != nil {
				t.Fatal(err)
			}
			defer rt.Close()

			if loc := rt.stores.Store(dir).Location(); !tt.check(loc) {
				t.Errorf("location = %q", loc)
			}
		})
	}
}

func TestRuntimeRejectsInvalidSettings(t *testing.T) {
	isolate(t)
	t.Setenv("TITLEPLOT_CACHE_BACKEND", "s3")
	c := New(io.Discard, LogInfo)
	if _, err := c.newRuntime(context.Background(), runtimeOptions{}); err == nil {
		t.Error("expected an error for an unknown cache backend")
	}
}
