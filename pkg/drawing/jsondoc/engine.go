package jsondoc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/titleplot/pkg/drawing"
	perrors "github.com/matzehuels/titleplot/pkg/errors"
)

// PageSpec describes the paper of one printed page, in millimetres.
type PageSpec struct {
	Media  string
	Width  float64
	Height float64
}

// Printer turns one SVG page into PDF bytes.
type Printer interface {
	Print(ctx context.Context, svg []byte, page PageSpec) ([]byte, error)
}

// PrinterFunc adapts a function to Printer.
type PrinterFunc func(ctx context.Context, svg []byte, page PageSpec) ([]byte, error)

func (f PrinterFunc) Print(ctx context.Context, svg []byte, page PageSpec) ([]byte, error) {
	return f(ctx, svg, page)
}

// Engine renders pages and sends them to a Printer. Only one job runs at a
// time. With Async set, EndDocument returns before the artifact is written,
// the way spooling print drivers behave.
type Engine struct {
	printer Printer
	logger  *log.Logger

	// Async writes artifacts in the background.
	Async bool

	mu   sync.Mutex
	busy bool
	wg   sync.WaitGroup
}

// NewEngine creates an engine printing through p.
func NewEngine(p Printer, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{printer: p, logger: logger}
}

func (e *Engine) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy
}

func (e *Engine) Acquire(ctx context.Context) (drawing.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return nil, perrors.New(perrors.ErrCodeEngineBusy, "a plot is already in progress")
	}
	if e.printer == nil {
		return nil, errors.New("no printer configured")
	}
	e.busy = true
	return &job{e: e}, nil
}

// Wait blocks until background writes have finished.
func (e *Engine) Wait() { e.wg.Wait() }

func (e *Engine) release() {
	e.mu.Lock()
	e.busy = false
	e.mu.Unlock()
}

type jobState int

const (
	stateIdle jobState = iota
	statePlot
	stateDocument
	statePage
	stateGraphics
	stateGraphicsDone
	statePageDone
	stateDocumentDone
	statePlotDone
)

type job struct {
	e      *Engine
	state  jobState
	path   string
	page   *Settings
	svg    []byte
	closed bool
}

func (j *job) advance(from, to jobState, step string) error {
	if j.closed {
		return fmt.Errorf("%s: job is closed", step)
	}
	if j.state != from {
		return fmt.Errorf("%s called out of order", step)
	}
	j.state = to
	return nil
}

func (j *job) BeginPlot(ctx context.Context) error {
	return j.advance(stateIdle, statePlot, "begin plot")
}

// BeginDocument creates an empty placeholder at path.
func (j *job) BeginDocument(ctx context.Context, path string) error {
	if err := j.advance(statePlot, stateDocument, "begin document"); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return err
	}
	j.path = path
	return nil
}

func (j *job) BeginPage(ctx context.Context, settings drawing.PlotSettings) error {
	s, ok := settings.(*Settings)
	if !ok {
		return fmt.Errorf("begin page: unsupported settings %T", settings)
	}
	if err := j.advance(stateDocument, statePage, "begin page"); err != nil {
		return err
	}
	j.page = s
	return nil
}

func (j *job) BeginGenerateGraphics(ctx context.Context) error {
	if err := j.advance(statePage, stateGraphics, "begin generate graphics"); err != nil {
		return err
	}
	svg, err := RenderSVG(j.page)
	if err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	j.svg = svg
	return nil
}

func (j *job) EndGenerateGraphics(ctx context.Context) error {
	return j.advance(stateGraphics, stateGraphicsDone, "end generate graphics")
}

func (j *job) EndPage(ctx context.Context) error {
	return j.advance(stateGraphicsDone, statePageDone, "end page")
}

// EndDocument prints the rendered page and writes the artifact.
func (j *job) EndDocument(ctx context.Context) error {
	if err := j.advance(statePageDone, stateDocumentDone, "end document"); err != nil {
		return err
	}
	spec, err := j.page.PageSpec()
	if err != nil {
		return err
	}
	path, svg := j.path, j.svg
	write := func(ctx context.Context) error {
		pdf, err := j.e.printer.Print(ctx, svg, spec)
		if err != nil {
			return fmt.Errorf("print %s: %w", filepath.Base(path), err)
		}
		return replaceFile(path, pdf)
	}
	if !j.e.Async {
		return write(ctx)
	}

	j.e.wg.Add(1)
	go func() {
		defer j.e.wg.Done()
		if err := write(context.WithoutCancel(ctx)); err != nil {
			j.e.logger.Error("background plot failed", "path", path, "err", err)
		}
	}()
	return nil
}

// replaceFile swaps the placeholder for the finished file in one rename, so
// a reader never sees a partial artifact.
func replaceFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (j *job) EndPlot(ctx context.Context) error {
	return j.advance(stateDocumentDone, statePlotDone, "end plot")
}

// Close releases the engine. It is safe to call more than once.
func (j *job) Close() error {
	if j.closed {
		return nil
	}
	j.closed = true
	j.e.release()
	return nil
}

var (
	_ drawing.Engine = (*Engine)(nil)
	_ drawing.Job    = (*job)(nil)
)
