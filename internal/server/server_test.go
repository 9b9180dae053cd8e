package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/titleplot/pkg/batch"
	"github.com/matzehuels/titleplot/pkg/drawing/jsondoc"
	perrors "github.com/matzehuels/titleplot/pkg/errors"
	"github.com/matzehuels/titleplot/pkg/fingerprint"
	"github.com/matzehuels/titleplot/pkg/observability"
	"github.com/matzehuels/titleplot/pkg/report"
)

type fixture struct {
	in, out string
	store   *fingerprint.Store
	sink    *report.FileSink
	srv     *Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{in: t.TempDir(), out: t.TempDir()}
	f.store = fingerprint.NewStore(f.out, fingerprint.NewMemoryBackend(), nil)
	f.sink = report.NewFileSink(f.out)
	f.srv = New(Config{
		Store:    f.store,
		Archive:  f.sink,
		Backend:  jsondoc.NewBackend(nil, nil, nil),
		InputDir: f.in,
	})
	return f
}

func (f *fixture) get(t *testing.T, path string, v any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("%s: content type %q", path, ct)
	}
	if v != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
			t.Fatalf("%s: decode %q: %v", path, rec.Body.String(), err)
		}
	}
	return rec.Code
}

type apiError struct {
	Error struct {
		Code perrors.Code `json:"code"`
	} `json:"error"`
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	var body map[string]string
	if code := f.get(t, "/healthz", &body); code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("healthz = %d %v", code, body)
	}
}

func TestRecords(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ts := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	f.store.Put(ctx, "plan_02.pdf", "plan.json", "r1", ts)
	f.store.Put(ctx, "plan_01.pdf", "plan.json", "r1", ts)
	f.store.PutMerged(ctx, "plan.pdf", []string{"plan_01.pdf", "plan_02.pdf"})

	var list struct {
		Dir     string       `json:"dir"`
		Records []RecordView `json:"records"`
	}
	if code := f.get(t, "/api/v1/records", &list); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(list.Records) != 3 || list.Records[0].Name != "plan.pdf" || !list.Records[0].Merged {
		t.Errorf("records = %+v", list.Records)
	}
	if list.Records[1].Source != "plan.json" || list.Records[1].Fingerprint != "r1" {
		t.Errorf("record fields not flattened: %+v", list.Records[1])
	}

	var one RecordView
	if code := f.get(t, "/api/v1/records/plan_01.pdf", &one); code != http.StatusOK || one.Name != "plan_01.pdf" || one.Stale != nil {
		t.Errorf("record = %d %+v", code, one)
	}

	var e apiError
	if code := f.get(t, "/api/v1/records/missing.pdf", &e); code != http.StatusNotFound || e.Error.Code != perrors.ErrCodeNotFound {
		t.Errorf("missing record = %d %+v", code, e)
	}
}

func TestRecordStaleness(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	path := filepath.Join(f.in, "plan.json")
	if err := os.WriteFile(path, []byte(`{"revision": "r2", "layouts": [{"name": "A"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	info, _ := os.Stat(path)

	f.store.Put(ctx, "plan_01.pdf", "plan.json", "r2", info.ModTime())
	f.store.Put(ctx, "plan_02.pdf", "plan.json", "r1", info.ModTime().Add(-time.Hour))

	var fresh, stale RecordView
	f.get(t, "/api/v1/records/plan_01.pdf?source=plan.json", &fresh)
	f.get(t, "/api/v1/records/plan_02.pdf?source=plan.json", &stale)
	if fresh.Stale == nil || *fresh.Stale {
		t.Errorf("plan_01 stale = %v, want false", fresh.Stale)
	}
	if stale.Stale == nil || !*stale.Stale {
		t.Errorf("plan_02 stale = %v, want true", stale.Stale)
	}

	tests := []struct {
		query  string
		status int
		code   perrors.Code
	}{
		{"?source=../etc/passwd", http.StatusBadRequest, perrors.ErrCodeInvalidPath},
		{"?source=/abs/plan.json", http.StatusBadRequest, perrors.ErrCodeInvalidPath},
		{"?source=gone.json", http.StatusNotFound, perrors.ErrCodeFileNotFound},
	}
	for _, tt := range tests {
		var e apiError
		if code := f.get(t, "/api/v1/records/plan_01.pdf"+tt.query, &e); code != tt.status || e.Error.Code != tt.code {
			t.Errorf("%s = %d %s, want %d %s", tt.query, code, e.Error.Code, tt.status, tt.code)
		}
	}
}

func TestRuns(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sum := &batch.Summary{RunID: uuid.NewString(), OutDir: f.out, Started: time.Now(), Processed: 1, Pages: 2}
	if err := f.sink.Write(ctx, sum); err != nil {
		t.Fatal(err)
	}

	var list struct {
		Runs []report.Entry `json:"runs"`
	}
	if code := f.get(t, "/api/v1/runs", &list); code != http.StatusOK || len(list.Runs) != 1 || list.Runs[0].Pages != 2 {
		t.Errorf("runs = %d %+v", code, list)
	}

	var got batch.Summary
	if code := f.get(t, "/api/v1/runs/"+sum.RunID, &got); code != http.StatusOK || got.RunID != sum.RunID {
		t.Errorf("run = %d %+v", code, got)
	}

	var e apiError
	if code := f.get(t, "/api/v1/runs/"+uuid.NewString(), &e); code != http.StatusNotFound {
		t.Errorf("unknown run = %d", code)
	}
	if code := f.get(t, "/api/v1/runs/not-a-uuid", &e); code != http.StatusBadRequest || e.Error.Code != perrors.ErrCodeInvalidInput {
		t.Errorf("bad run id = %d %+v", code, e)
	}
}

func TestRunsDisabled(t *testing.T) {
	srv := New(Config{Store: fingerprint.NewStore(t.TempDir(), fingerprint.NewMemoryBackend(), nil)})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", rec.Code)
	}
}

type recordingHooks struct {
	mu     sync.Mutex
	routes []string
}

func (h *recordingHooks) OnRequest(_ context.Context, method, route string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.routes = append(h.routes, method+" "+route)
}

func TestServerHooks(t *testing.T) {
	h := &recordingHooks{}
	observability.SetServerHooks(h)
	defer observability.Reset()

	f := newFixture(t)
	f.get(t, "/api/v1/records/plan_01.pdf", nil)

	if len(h.routes) != 1 || h.routes[0] != "GET /api/v1/records/{name}" {
		t.Errorf("routes = %v", h.routes)
	}
}
