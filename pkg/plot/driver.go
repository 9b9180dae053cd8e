// Package plot drives a drawing.Engine through the plot lifecycle for one
// page and waits for the artifact to land on disk.
//
// # Lifecycle
//
// A page is plotted inside one engine acquisition:
//
//	BeginPlot -> BeginDocument(path) -> BeginPage -> BeginGenerateGraphics
//	-> EndGenerateGraphics -> EndPage -> EndDocument -> EndPlot
//
// The acquisition is released on every exit path. Engines may return before
// the file is complete (some create a zero-byte placeholder first), so the
// driver then polls until the file exists, is non-empty and can be opened
// exclusively.
//
// # Results
//
// PlotPage never returns an error. Every outcome is a Result: Plotted,
// Skipped (engine busy) or Failed with a *StepError naming the step.
package plot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/titleplot/pkg/drawing"
	perrors "github.com/matzehuels/titleplot/pkg/errors"
	"github.com/matzehuels/titleplot/pkg/pagesetup"
	"github.com/matzehuels/titleplot/pkg/poll"
)

// Step names a stage of PlotPage.
type Step string

const (
	StepEngineCheck           Step = "engine check"
	StepPrepare               Step = "prepare output"
	StepAcquire               Step = "acquire engine"
	StepBeginPlot             Step = "begin plot"
	StepBeginDocument         Step = "begin document"
	StepBeginPage             Step = "begin page"
	StepBeginGenerateGraphics Step = "begin generate graphics"
	StepEndGenerateGraphics   Step = "end generate graphics"
	StepEndPage               Step = "end page"
	StepEndDocument           Step = "end document"
	StepEndPlot               Step = "end plot"
	StepArtifact              Step = "wait for artifact"
)

// Lifecycle reports whether s is one of the engine lifecycle steps.
func (s Step) Lifecycle() bool {
	switch s {
	case StepAcquire, StepBeginPlot, StepBeginDocument, StepBeginPage,
		StepBeginGenerateGraphics, StepEndGenerateGraphics, StepEndPage,
		StepEndDocument, StepEndPlot:
		return true
	}
	return false
}

// StepError is a page failure with the step that failed.
type StepError struct {
	Step Step
	Path string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Step, filepath.Base(e.Path), e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Status is the outcome kind of a page.
type Status int

const (
	Plotted Status = iota
	Skipped
	Failed
)

func (s Status) String() string {
	switch s {
	case Plotted:
		return "plotted"
	case Skipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Result is the outcome of one page.
type Result struct {
	Path     string
	Status   Status
	Err      error
	Duration time.Duration
}

// OK reports whether the artifact was produced.
func (r Result) OK() bool { return r.Status == Plotted }

// AbortsDrawing reports whether the failure happened inside the engine
// lifecycle. Such failures leave the engine in an unknown state for this
// drawing, so the remaining pages of the drawing are not attempted.
func (r Result) AbortsDrawing() bool {
	var se *StepError
	return r.Status == Failed && errors.As(r.Err, &se) && se.Step.Lifecycle()
}

// Options tunes waiting.
type Options struct {
	// PollInterval is the artifact and busy poll interval.
	PollInterval time.Duration
	// PollTimeout bounds the wait for a stable artifact.
	PollTimeout time.Duration
	// BusyTimeout bounds the wait for a busy engine. Zero skips the page
	// immediately.
	BusyTimeout time.Duration
}

// SetDefaults fills zero poll timings.
func (o *Options) SetDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = poll.DefaultInterval
	}
	if o.PollTimeout <= 0 {
		o.PollTimeout = poll.DefaultTimeout
	}
}

// ValidateAndSetDefaults applies defaults and rejects negative timings.
func (o *Options) ValidateAndSetDefaults() error {
	if o.PollInterval < 0 || o.PollTimeout < 0 || o.BusyTimeout < 0 {
		return perrors.New(perrors.ErrCodeInvalidConfig, "plot timings cannot be negative")
	}
	o.SetDefaults()
	if o.PollInterval > o.PollTimeout {
		return perrors.New(perrors.ErrCodeInvalidConfig, "poll interval %s exceeds timeout %s", o.PollInterval, o.PollTimeout)
	}
	return nil
}

// Driver plots single pages.
type Driver struct {
	opts   Options
	logger *log.Logger
	ready  func(path string) poll.Probe
}

// NewDriver creates a driver. Zero option fields take defaults; a nil
// logger uses log.Default().
func NewDriver(opts Options, logger *log.Logger) *Driver {
	opts.SetDefaults()
	if logger == nil {
		logger = log.Default()
	}
	return &Driver{opts: opts, logger: logger, ready: poll.FileReady}
}

// PlotPage plots page to path with engine.
func (d *Driver) PlotPage(ctx context.Context, engine drawing.Engine, page *pagesetup.Page, path string) Result {
	start := time.Now()
	res := Result{Path: path}
	fail := func(step Step, code perrors.Code, err error) Result {
		res.Status = Failed
		res.Err = &StepError{Step: step, Path: path, Err: perrors.Wrap(code, err, "%s", step)}
		res.Duration = time.Since(start)
		d.logger.Error("page failed", "path", path, "step", step, "err", err)
		return res
	}

	if engine.Busy() && !d.waitIdle(ctx, engine) {
		res.Status = Skipped
		res.Err = &StepError{Step: StepEngineCheck, Path: path,
			Err: perrors.New(perrors.ErrCodeEngineBusy, "another plot is in progress")}
		res.Duration = time.Since(start)
		d.logger.Warn("engine busy, page skipped", "path", path)
		return res
	}

	if err := prepare(path); err != nil {
		return fail(StepPrepare, perrors.ErrCodePlotFailed, err)
	}

	if step, err := d.lifecycle(ctx, engine, page, path); err != nil {
		return fail(step, perrors.ErrCodePlotFailed, err)
	}

	popts := poll.Options{Interval: d.opts.PollInterval, Timeout: d.opts.PollTimeout}
	if err := poll.Until(ctx, popts, d.ready(path)); err != nil {
		return fail(StepArtifact, perrors.ErrCodeArtifactTimeout, err)
	}

	res.Status = Plotted
	res.Duration = time.Since(start)
	d.logger.Debug("page plotted", "path", path, "duration", res.Duration.Round(time.Millisecond))
	return res
}

// lifecycle runs the engine steps inside one acquisition and returns the
// failing step.
func (d *Driver) lifecycle(ctx context.Context, engine drawing.Engine, page *pagesetup.Page, path string) (Step, error) {
	job, err := engine.Acquire(ctx)
	if err != nil {
		return StepAcquire, err
	}
	defer func() {
		if err := job.Close(); err != nil {
			d.logger.Warn("release engine", "err", err)
		}
	}()

	steps := []struct {
		step Step
		fn   func(context.Context) error
	}{
		{StepBeginPlot, job.BeginPlot},
		{StepBeginDocument, func(ctx context.Context) error { return job.BeginDocument(ctx, path) }},
		{StepBeginPage, func(ctx context.Context) error { return job.BeginPage(ctx, page.Settings) }},
		{StepBeginGenerateGraphics, job.BeginGenerateGraphics},
		{StepEndGenerateGraphics, job.EndGenerateGraphics},
		{StepEndPage, job.EndPage},
		{StepEndDocument, job.EndDocument},
		{StepEndPlot, job.EndPlot},
	}
	for _, s := range steps {
		if err := guard(ctx, s.fn); err != nil {
			return s.step, err
		}
	}
	return "", nil
}

func (d *Driver) waitIdle(ctx context.Context, engine drawing.Engine) bool {
	if d.opts.BusyTimeout <= 0 {
		return false
	}
	opts := poll.Options{Interval: d.opts.PollInterval, Timeout: d.opts.BusyTimeout}
	err := poll.Until(ctx, opts, func(context.Context) (bool, error) {
		return !engine.Busy(), nil
	})
	return err == nil
}

// guard runs fn and converts a panic in the backend into an error.
func guard(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}

// prepare creates the output directory and removes a previous artifact so
// the completion poll cannot observe an old file.
func prepare(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
