package jsondoc

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/titleplot/pkg/batch"
	"github.com/matzehuels/titleplot/pkg/drawing"
	"github.com/matzehuels/titleplot/pkg/fingerprint"
	"github.com/matzehuels/titleplot/pkg/fslock"
	"github.com/matzehuels/titleplot/pkg/geom"
	"github.com/matzehuels/titleplot/pkg/plot"
	"github.com/matzehuels/titleplot/pkg/plotconfig"
	"github.com/matzehuels/titleplot/pkg/region"
)

const sheet = `{
  "revision": "r7",
  "activeLayout": "Sheets",
  "layouts": [
    {"name": "Model", "model": true, "entities": []},
    {"name": "Sheets", "entities": [
      {"type": "insert", "handle": "10", "name": "A3_TITLE", "min": [0, 0, 0], "max": [420, 297, 0]},
      {"type": "insert", "handle": "11", "name": "*U4", "effectiveName": "A3_TITLE", "min": [500, 0, 0], "max": [920, 297, 0]},
      {"type": "insert", "handle": "12", "name": "LOGO", "min": [10, 10, 0], "max": [40, 30, 0]},
      {"type": "line", "points": [[20, 20], [400, 277]], "color": "red"}
    ]}
  ]
}`

func writeDrawing(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func fakePDF(ctx context.Context, svg []byte, page PageSpec) ([]byte, error) {
	return append([]byte("%PDF-1.4\n%"), svg...), nil
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid json", `{`, "decode drawing"},
		{"no layouts", `{"layouts": []}`, "no layouts"},
		{"unnamed layout", `{"layouts": [{"name": ""}]}`, "has no name"},
		{"duplicate layout", `{"layouts": [{"name": "A"}, {"name": "A"}]}`, "duplicate layout"},
		{"unknown active layout", `{"activeLayout": "B", "layouts": [{"name": "A"}]}`, "does not exist"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse() error = %v, want %q", err, tt.want)
			}
		})
	}

	f, err := Parse([]byte(`{"layouts": [{"name": "A", "entities": [{"type": "line"}, {"type": "line"}]}]}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.ActiveLayout != "A" {
		t.Errorf("active layout = %q, want first layout", f.ActiveLayout)
	}
	h := f.Layouts[0].Entities
	if h[0].Handle == "" || h[0].Handle == h[1].Handle {
		t.Errorf("generated handles = %q, %q", h[0].Handle, h[1].Handle)
	}
}

func TestEntityBlockNameAndExtents(t *testing.T) {
	pt := func(x, y float64) *[3]float64 { return &[3]float64{x, y, 0} }
	tests := []struct {
		name    string
		e       Entity
		block   string
		nameErr bool
		extErr  bool
	}{
		{"plain", Entity{Name: "TB", Min: pt(0, 0), Max: pt(10, 5)}, "TB", false, false},
		{"dynamic variant", Entity{Name: "*U2", EffectiveName: "TB", Min: pt(10, 5), Max: pt(0, 0)}, "TB", false, false},
		{"anonymous", Entity{Name: "*U2", Min: pt(0, 0), Max: pt(10, 5)}, "", true, false},
		{"no extents", Entity{Name: "TB"}, "TB", false, true},
		{"flat", Entity{Name: "TB", Min: pt(0, 0), Max: pt(10, 0)}, "TB", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.e.BlockName()
			if (err != nil) != tt.nameErr || got != tt.block {
				t.Errorf("BlockName() = %q, %v", got, err)
			}
			ext, err := tt.e.Extents()
			if (err != nil) != tt.extErr {
				t.Errorf("Extents() error = %v, want error %v", err, tt.extErr)
			}
			if err == nil && (ext.Width() != 10 || ext.Height() != 5 || ext.Min.X != 0) {
				t.Errorf("Extents() = %+v", ext)
			}
		})
	}
}

func TestDocument(t *testing.T) {
	ctx := context.Background()
	path := writeDrawing(t, t.TempDir(), "plan.json", sheet)
	doc, err := NewBackend(nil, nil, nil).Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer doc.Close()

	if fp, _ := doc.Fingerprint(ctx); fp != "r7" {
		t.Errorf("Fingerprint = %q, want revision", fp)
	}
	if _, err := doc.CurrentView(ctx); err == nil {
		t.Error("CurrentView without a saved view should fail")
	}
	if _, err := doc.NewPlotSettings("Nope"); err == nil {
		t.Error("NewPlotSettings for unknown layout should fail")
	}

	scan, err := region.NewScanner(nil).Scan(ctx, doc, []string{"A3_TITLE"})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if scan.Space != "Sheets" || scan.Model || len(scan.Regions) != 2 {
		t.Fatalf("scan = %+v", scan)
	}
	if scan.Regions[1].Handle != "11" {
		t.Errorf("dynamic block variant not matched: %+v", scan.Regions)
	}
}

func TestFingerprintFallsBackToContentHash(t *testing.T) {
	ctx := context.Background()
	body := `{"layouts": [{"name": "A"}]}`
	path := writeDrawing(t, t.TempDir(), "a.json", body)
	doc, err := NewBackend(nil, nil, nil).Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if fp, _ := doc.Fingerprint(ctx); fp != fingerprint.Hash([]byte(body)) {
		t.Errorf("Fingerprint = %q, want content hash", fp)
	}
}

func TestDocumentLock(t *testing.T) {
	ctx := context.Background()
	path := writeDrawing(t, t.TempDir(), "plan.json", sheet)
	doc, _ := NewBackend(nil, nil, nil).Open(ctx, path)

	release, err := doc.Lock(ctx)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if _, err := doc.Lock(ctx); err == nil {
		t.Error("second Lock on the same document should fail")
	}
	if err := fslock.Probe(path); !errors.Is(err, fslock.ErrLocked) {
		t.Errorf("Probe while locked = %v", err)
	}
	if err := release(); err != nil {
		t.Errorf("release: %v", err)
	}
	if err := release(); err != nil {
		t.Errorf("second release: %v", err)
	}
	if err := fslock.Probe(path); err != nil {
		t.Errorf("Probe after release = %v", err)
	}
}

func TestSettingsOrder(t *testing.T) {
	cat := DefaultCatalog()
	s := newSettings(cat, nil, &Layout{Name: "L"})

	if err := s.SetMedia("ISO_A4_(210.00_x_297.00_MM)"); err == nil {
		t.Error("SetMedia before SetDevice should fail")
	}
	if err := s.SetPlotType(drawing.PlotWindow); err == nil {
		t.Error("window plot type before SetWindow should fail")
	}
	if err := s.SetRotation(drawing.Rotate90); err == nil {
		t.Error("SetRotation before SetMedia should fail")
	}
	if err := s.SetDevice("Plotter9000"); err == nil {
		t.Error("unknown device should fail")
	}
	if err := s.SetStyleSheet("missing.ctb"); err == nil {
		t.Error("unknown style sheet should fail")
	}
	if err := s.SetCustomScale(0, 1); err == nil {
		t.Error("zero scale should fail")
	}

	if err := s.SetDevice(DefaultDevice); err != nil {
		t.Fatal(err)
	}
	if err := s.SetMedia("ISO_A4_(210.00_x_297.00_MM)"); err != nil {
		t.Fatalf("SetMedia: %v", err)
	}
	if m, _ := s.Media(); m.Width != 210 || m.Height != 297 {
		t.Errorf("Media = %+v", m)
	}
	if err := s.SetWindow(geom.Window{Max: geom.Point2{X: 10, Y: 10}}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetPlotType(drawing.PlotWindow); err != nil {
		t.Errorf("SetPlotType: %v", err)
	}
	if err := s.SetRotation(drawing.Rotate90); err != nil {
		t.Errorf("SetRotation: %v", err)
	}
}

func TestDefaultCatalog(t *testing.T) {
	ctx := context.Background()
	cat := DefaultCatalog()
	media, err := cat.Media(ctx, DefaultDevice)
	if err != nil {
		t.Fatal(err)
	}
	if len(media) != 18 {
		t.Fatalf("media count = %d, want 18", len(media))
	}
	found := map[string]bool{}
	for _, m := range media {
		found[m.Name] = true
	}
	for _, name := range []string{
		"ISO_A3_(297.00_x_420.00_MM)",
		"ISO_expand_A3_(420.00_x_297.00_MM)",
		"ANSI_expand_D_(34.00_x_22.00_Inches)",
	} {
		if !found[name] {
			t.Errorf("missing media %s", name)
		}
	}
	if _, err := cat.Media(ctx, "nope"); err == nil {
		t.Error("unknown device should fail")
	}
}

func a3Settings(t *testing.T, doc *Document, layout string, w geom.Window, media string, rot drawing.Rotation) *Settings {
	t.Helper()
	ps, err := doc.NewPlotSettings(layout)
	if err != nil {
		t.Fatal(err)
	}
	s := ps.(*Settings)
	for _, err := range []error{
		s.SetDevice(DefaultDevice),
		s.SetMedia(media),
		s.SetWindow(w),
		s.SetPlotType(drawing.PlotWindow),
		s.SetRotation(rot),
		s.SetScaleToFit(),
		s.SetCentered(true),
	} {
		if err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func TestRenderSVG(t *testing.T) {
	path := writeDrawing(t, t.TempDir(), "plan.json", sheet)
	d, _ := NewBackend(nil, nil, nil).Open(context.Background(), path)
	doc := d.(*Document)

	w := geom.Window{Max: geom.Point2{X: 420, Y: 297}}
	svg, err := RenderSVG(a3Settings(t, doc, "Sheets", w, "ISO_expand_A3_(420.00_x_297.00_MM)", drawing.Rotate0))
	if err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	out := string(svg)
	for _, want := range []string{
		`width="420mm" height="297mm"`,
		`points="0,297 420,297 420,0 0,0"`,
		`<polyline stroke="red" points="20,277 400,20"/>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("svg missing %s\n%s", want, out)
		}
	}

	// A portrait window on landscape paper is turned a quarter.
	w = geom.Window{Max: geom.Point2{X: 297, Y: 420}}
	svg, err = RenderSVG(a3Settings(t, doc, "Sheets", w, "ISO_expand_A3_(420.00_x_297.00_MM)", drawing.Rotate90))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(svg), `points="420,297 `) {
		t.Errorf("rotated origin not at lower right:\n%s", svg)
	}
}

func TestRenderSVGMonochrome(t *testing.T) {
	path := writeDrawing(t, t.TempDir(), "plan.json", sheet)
	d, _ := NewBackend(nil, nil, nil).Open(context.Background(), path)
	s := a3Settings(t, d.(*Document), "Sheets", geom.Window{Max: geom.Point2{X: 420, Y: 297}},
		"ISO_expand_A3_(420.00_x_297.00_MM)", drawing.Rotate0)
	if err := s.SetStyleSheet("monochrome.ctb"); err != nil {
		t.Fatal(err)
	}
	s.SetRenderFlags(drawing.RenderFlags{PlotStyles: true})
	svg, err := RenderSVG(s)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(svg), `stroke="red"`) {
		t.Error("monochrome plot kept entity colour")
	}
}

func TestEngineLifecycle(t *testing.T) {
	ctx := context.Background()
	eng := NewEngine(PrinterFunc(fakePDF), nil)

	job, err := eng.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !eng.Busy() {
		t.Error("engine should be busy while a job is held")
	}
	if _, err := eng.Acquire(ctx); err == nil {
		t.Error("second Acquire should fail")
	}
	if err := job.BeginPage(ctx, &Settings{}); err == nil {
		t.Error("BeginPage before BeginDocument should fail")
	}
	job.Close()
	job.Close()
	if eng.Busy() {
		t.Error("engine still busy after Close")
	}

	if _, err := NewEngine(nil, nil).Acquire(ctx); err == nil {
		t.Error("engine without printer should refuse jobs")
	}
}

func runBatch(t *testing.T, eng *Engine) (string, *batch.Summary) {
	t.Helper()
	in, out := t.TempDir(), t.TempDir()
	path := writeDrawing(t, in, "plan.json", sheet)

	store := fingerprint.NewStore(out, fingerprint.NewMemoryBackend(), nil)
	opts := plot.Options{PollInterval: 5 * time.Millisecond, PollTimeout: 2 * time.Second}
	orch := batch.NewOrchestrator(NewBackend(nil, eng, nil), store, opts, nil)

	cfg := plotconfig.Defaults()
	cfg.BlockNames = "A3_TITLE"
	sum, err := orch.Run(context.Background(), batch.NewCandidates(path), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out, sum
}

func TestBatchEndToEnd(t *testing.T) {
	var mu sync.Mutex
	var pages []PageSpec
	eng := NewEngine(PrinterFunc(func(ctx context.Context, svg []byte, page PageSpec) ([]byte, error) {
		mu.Lock()
		pages = append(pages, page)
		mu.Unlock()
		return fakePDF(ctx, svg, page)
	}), nil)

	out, sum := runBatch(t, eng)
	if sum.Pages != 2 || sum.Failed() != 0 {
		t.Fatalf("summary = %+v", sum.Results)
	}
	for _, name := range []string{"plan_01.pdf", "plan_02.pdf"} {
		data, err := os.ReadFile(filepath.Join(out, name))
		if err != nil || !bytes.HasPrefix(data, []byte("%PDF")) {
			t.Errorf("%s: %v", name, err)
		}
	}
	// The first A3 media in either orientation is the portrait one, so the
	// landscape blocks are turned onto it.
	if len(pages) != 2 || pages[0].Width != 297 || pages[0].Height != 420 {
		t.Errorf("printed pages = %+v, want A3", pages)
	}
}

func TestBatchEndToEndAsync(t *testing.T) {
	eng := NewEngine(PrinterFunc(func(ctx context.Context, svg []byte, page PageSpec) ([]byte, error) {
		time.Sleep(20 * time.Millisecond)
		return fakePDF(ctx, svg, page)
	}), nil)
	eng.Async = true
	defer eng.Wait()

	out, sum := runBatch(t, eng)
	if sum.Pages != 2 || sum.Failed() != 0 {
		t.Fatalf("summary = %+v", sum.Results)
	}
	if info, err := os.Stat(filepath.Join(out, "plan_02.pdf")); err != nil || info.Size() == 0 {
		t.Errorf("plan_02.pdf not complete: %v", err)
	}
}
