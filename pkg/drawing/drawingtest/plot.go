package drawingtest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/matzehuels/titleplot/pkg/drawing"
	"github.com/matzehuels/titleplot/pkg/fslock"
	"github.com/matzehuels/titleplot/pkg/geom"
)

// Settings records every setter call.
type Settings struct {
	Catalog *Catalog
	Fail    map[string]error // setter name -> error to return

	Calls        []string
	Device       string
	Units        drawing.Units
	StyleSheet   string
	Current      drawing.Media
	Window       geom.Window
	Type         drawing.PlotType
	Rotation     drawing.Rotation
	Fit          bool
	ScalePaper   float64
	ScaleDrawing float64
	Centered     bool
	OriginX      float64
	OriginY      float64
	Flags        drawing.RenderFlags
	Shade        drawing.ShadeMode
	Resolution   drawing.Resolution
	Refreshed    int
}

// NewSettings returns a clean settings object bound to c.
func NewSettings(c *Catalog) *Settings {
	return &Settings{Catalog: c, Fail: map[string]error{}}
}

func (s *Settings) call(name string) error {
	s.Calls = append(s.Calls, name)
	return s.Fail[name]
}

func (s *Settings) SetDevice(name string) error {
	if err := s.call("SetDevice"); err != nil {
		return err
	}
	if _, ok := s.Catalog.DeviceMedia[name]; !ok {
		return fmt.Errorf("device %q not found", name)
	}
	s.Device = name
	if m := s.Catalog.DeviceMedia[name]; len(m) > 0 {
		s.Current = m[0]
	}
	return nil
}

func (s *Settings) SetUnits(u drawing.Units) error {
	if err := s.call("SetUnits"); err != nil {
		return err
	}
	s.Units = u
	return nil
}

func (s *Settings) SetStyleSheet(name string) error {
	if err := s.call("SetStyleSheet"); err != nil {
		return err
	}
	if !slices.Contains(s.Catalog.Styles, name) {
		return fmt.Errorf("style sheet %q not found", name)
	}
	s.StyleSheet = name
	return nil
}

func (s *Settings) SetMedia(name string) error {
	if err := s.call("SetMedia"); err != nil {
		return err
	}
	for _, m := range s.Catalog.DeviceMedia[s.Device] {
		if m.Name == name {
			s.Current = m
			return nil
		}
	}
	return fmt.Errorf("media %q not available on %q", name, s.Device)
}

func (s *Settings) Media() (drawing.Media, error) {
	if err := s.call("Media"); err != nil {
		return drawing.Media{}, err
	}
	return s.Current, nil
}

func (s *Settings) MediaList() ([]drawing.Media, error) {
	if err := s.call("MediaList"); err != nil {
		return nil, err
	}
	return s.Catalog.DeviceMedia[s.Device], nil
}

func (s *Settings) SetWindow(w geom.Window) error {
	if err := s.call("SetWindow"); err != nil {
		return err
	}
	s.Window = w
	return nil
}

func (s *Settings) SetPlotType(t drawing.PlotType) error {
	if err := s.call("SetPlotType"); err != nil {
		return err
	}
	if t == drawing.PlotWindow && s.Window == (geom.Window{}) {
		return errors.New("window plot type requires a window")
	}
	s.Type = t
	return nil
}

func (s *Settings) SetRotation(r drawing.Rotation) error {
	if err := s.call("SetRotation"); err != nil {
		return err
	}
	s.Rotation = r
	return nil
}

func (s *Settings) SetScaleToFit() error {
	if err := s.call("SetScaleToFit"); err != nil {
		return err
	}
	s.Fit = true
	return nil
}

func (s *Settings) SetCustomScale(paper, drawingUnits float64) error {
	if err := s.call("SetCustomScale"); err != nil {
		return err
	}
	s.Fit = false
	s.ScalePaper, s.ScaleDrawing = paper, drawingUnits
	return nil
}

func (s *Settings) SetCentered(on bool) error {
	if err := s.call("SetCentered"); err != nil {
		return err
	}
	s.Centered = on
	return nil
}

func (s *Settings) SetOrigin(x, y float64) error {
	if err := s.call("SetOrigin"); err != nil {
		return err
	}
	s.OriginX, s.OriginY = x, y
	return nil
}

func (s *Settings) SetRenderFlags(f drawing.RenderFlags) error {
	if err := s.call("SetRenderFlags"); err != nil {
		return err
	}
	s.Flags = f
	return nil
}

func (s *Settings) SetShade(mode drawing.ShadeMode, res drawing.Resolution) error {
	if err := s.call("SetShade"); err != nil {
		return err
	}
	s.Shade, s.Resolution = mode, res
	return nil
}

func (s *Settings) Refresh() error {
	if err := s.call("Refresh"); err != nil {
		return err
	}
	s.Refreshed++
	return nil
}

// ArtifactMode controls what a fake job leaves on disk.
type ArtifactMode int

const (
	// ArtifactWrite writes Content and closes the file.
	ArtifactWrite ArtifactMode = iota
	// ArtifactEmpty leaves a zero-byte placeholder.
	ArtifactEmpty
	// ArtifactHeld writes Content but keeps an exclusive lock on the file
	// until Engine.Release is called.
	ArtifactHeld
	// ArtifactNone writes nothing.
	ArtifactNone
)

// Engine is a fake plot engine. Documents are numbered from 1 in the order
// BeginDocument is called.
type Engine struct {
	IsBusy   bool
	FailStep string               // lifecycle step that returns an error
	FailDoc  int                  // restrict FailStep to this document number, 0 = all
	Modes    map[int]ArtifactMode // per document number, default ArtifactWrite
	Content  []byte               // defaults to a minimal PDF header

	// OnEndDocument, when set, runs before the artifact of document n is
	// written.
	OnEndDocument func(n int)

	mu     sync.Mutex
	active bool
	docs   int
	Steps  []string
	Paths  []string
	held   []*fslock.Lock
}

func (e *Engine) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.IsBusy || e.active
}

func (e *Engine) Acquire(ctx context.Context) (drawing.Job, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active {
		return nil, errors.New("engine already acquired")
	}
	e.active = true
	return &job{e: e}, nil
}

// SetBusy changes the busy flag reported to callers.
func (e *Engine) SetBusy(b bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.IsBusy = b
}

// Release drops all held artifact locks.
func (e *Engine) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, l := range e.held {
		l.Unlock()
	}
	e.held = nil
}

// Documents returns how many documents were begun.
func (e *Engine) Documents() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.docs
}

type job struct {
	e    *Engine
	doc  int
	path string
}

func (j *job) step(name string) error {
	j.e.mu.Lock()
	defer j.e.mu.Unlock()
	j.e.Steps = append(j.e.Steps, name)
	if name == j.e.FailStep && (j.e.FailDoc == 0 || j.e.FailDoc == j.doc) {
		return fmt.Errorf("%s failed", name)
	}
	return nil
}

func (j *job) BeginPlot(ctx context.Context) error { return j.step("BeginPlot") }

func (j *job) BeginDocument(ctx context.Context, path string) error {
	j.e.mu.Lock()
	j.e.docs++
	j.doc = j.e.docs
	j.path = path
	j.e.Paths = append(j.e.Paths, path)
	j.e.mu.Unlock()
	return j.step("BeginDocument")
}

func (j *job) BeginPage(ctx context.Context, s drawing.PlotSettings) error {
	return j.step("BeginPage")
}

func (j *job) BeginGenerateGraphics(ctx context.Context) error {
	return j.step("BeginGenerateGraphics")
}

func (j *job) EndGenerateGraphics(ctx context.Context) error {
	return j.step("EndGenerateGraphics")
}

func (j *job) EndPage(ctx context.Context) error { return j.step("EndPage") }

func (j *job) EndDocument(ctx context.Context) error {
	if err := j.step("EndDocument"); err != nil {
		return err
	}
	if j.e.OnEndDocument != nil {
		j.e.OnEndDocument(j.doc)
	}
	return j.writeArtifact()
}

func (j *job) EndPlot(ctx context.Context) error { return j.step("EndPlot") }

func (j *job) Close() error {
	j.e.mu.Lock()
	defer j.e.mu.Unlock()
	j.e.active = false
	return nil
}

func (j *job) writeArtifact() error {
	j.e.mu.Lock()
	mode := j.e.Modes[j.doc]
	content := j.e.Content
	j.e.mu.Unlock()
	if content == nil {
		content = []byte("%PDF-1.7\n%%EOF\n")
	}

	switch mode {
	case ArtifactNone:
		return nil
	case ArtifactEmpty:
		return os.WriteFile(j.path, nil, 0o644)
	}
	if err := os.WriteFile(j.path, content, 0o644); err != nil {
		return err
	}
	if mode == ArtifactHeld {
		l, err := fslock.TryLock(j.path)
		if err != nil {
			return err
		}
		j.e.mu.Lock()
		j.e.held = append(j.e.held, l)
		j.e.mu.Unlock()
	}
	return nil
}
