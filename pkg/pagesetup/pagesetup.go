// Package pagesetup builds the print settings for one title block.
//
// Build walks a fixed sequence of steps against a clean backend settings
// object. The order is part of the contract: some backends validate the
// window before the plot type and the media before the rotation.
//
//  1. clean settings object for the layout
//  2. device (the only fatal step)
//  3. paper units in millimetres
//  4. style sheet, when configured and plot styles are on
//  5. media: forced, matched by size, or the configured default
//  6. window, then plot type = window
//  7. rotation: 90 degrees when region and paper aspects disagree
//  8. scale: fit and centred, or a ratio with centring or an offset
//  9. rendering flags and shade mode
//  10. refresh derived lists
//
// Every step after the device degrades instead of failing: the error is
// recorded as a Warning on the Page, logged, and the backend keeps its
// previous value.
package pagesetup

import (
	"context"
	"fmt"
	"math"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/titleplot/pkg/drawing"
	"github.com/matzehuels/titleplot/pkg/errors"
	"github.com/matzehuels/titleplot/pkg/geom"
	"github.com/matzehuels/titleplot/pkg/plotconfig"
	"github.com/matzehuels/titleplot/pkg/region"
)

// Step names used in warnings.
const (
	StepStyleSheet = "style sheet"
	StepUnits      = "units"
	StepMedia      = "media"
	StepWindow     = "window"
	StepPlotType   = "plot type"
	StepRotation   = "rotation"
	StepScale      = "scale"
	StepPosition   = "position"
	StepRender     = "render flags"
	StepShade      = "shade"
	StepRefresh    = "refresh"
)

// MediaSource tells how the media was chosen.
type MediaSource string

const (
	MediaForced  MediaSource = "forced"
	MediaMatched MediaSource = "matched"
	MediaDefault MediaSource = "default"
	MediaDevice  MediaSource = "device"
)

// Warning is a degraded step.
type Warning struct {
	Step string
	Err  error
}

func (w Warning) Error() string { return w.Step + ": " + w.Err.Error() }

func (w Warning) Unwrap() error { return w.Err }

// Page is a configured page ready for the plot driver.
type Page struct {
	Settings    drawing.PlotSettings
	Region      region.Region
	Device      string
	Media       drawing.Media
	MediaSource MediaSource
	Window      geom.Window
	Rotation    drawing.Rotation
	Fit         bool
	Scale       plotconfig.Ratio
	Centered    bool
	Offset      geom.Point2
	Warnings    []Warning
}

// Degraded reports whether any step fell back to a default.
func (p *Page) Degraded() bool { return len(p.Warnings) > 0 }

// Builder produces pages.
type Builder struct {
	Logger *log.Logger
}

// NewBuilder creates a builder. A nil logger uses log.Default().
func NewBuilder(logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.Default()
	}
	return &Builder{Logger: logger}
}

// Build configures a page for r on the given layout. The returned error is
// non-nil only when no settings object could be created
// (ErrCodeLayout) or the device could not be selected
// (ErrCodeDeviceUnavailable); both abort this page only.
func (b *Builder) Build(ctx context.Context, doc drawing.Document, layout string, r region.Region, cfg plotconfig.Config) (*Page, error) {
	cfg.SetDefaults()

	// 1. Clean settings.
	s, err := doc.NewPlotSettings(layout)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeLayout, err, "create plot settings for %q", layout)
	}
	p := &Page{Settings: s, Region: r, Device: cfg.Device, Window: r.Window}

	// 2. Device.
	if err := s.SetDevice(cfg.Device); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDeviceUnavailable, err, "device %q unavailable", cfg.Device)
	}

	// 3. Units.
	b.try(p, StepUnits, s.SetUnits(drawing.Millimeters))

	// 4. Style sheet.
	if cfg.StyleSheet != "" && cfg.PlotStyles {
		b.try(p, StepStyleSheet, s.SetStyleSheet(cfg.StyleSheet))
	}

	// 5. Media.
	b.selectMedia(p, s, cfg)

	// 6. Window before plot type.
	if b.try(p, StepWindow, s.SetWindow(r.Window)) {
		b.try(p, StepPlotType, s.SetPlotType(drawing.PlotWindow))
	}

	// 7. Rotation.
	p.Rotation = Rotation(r, p.Media, cfg.AutoRotate)
	if !b.try(p, StepRotation, s.SetRotation(p.Rotation)) {
		p.Rotation = drawing.Rotate0
	}

	// 8. Scale and position.
	b.applyScale(p, s, cfg)

	// 9. Rendering.
	b.try(p, StepRender, s.SetRenderFlags(drawing.RenderFlags{
		PlotStyles:   cfg.PlotStyles,
		Lineweights:  cfg.Lineweights,
		Transparency: cfg.Transparency,
		ScaleLW:      cfg.ScaleLineweights,
	}))
	b.try(p, StepShade, s.SetShade(drawing.ShadeAsDisplayed, drawing.ResolutionNormal))

	// 10. Refresh.
	b.try(p, StepRefresh, s.Refresh())

	b.Logger.Debug("page configured",
		"region", r.Handle,
		"media", p.Media.Name,
		"source", p.MediaSource,
		"rotation", p.Rotation.Degrees(),
		"fit", p.Fit,
		"scale", p.Scale.String(),
		"warnings", len(p.Warnings))
	return p, nil
}

func (b *Builder) selectMedia(p *Page, s drawing.PlotSettings, cfg plotconfig.Config) {
	p.MediaSource = MediaDevice

	if cfg.ForcePaper && cfg.Paper != "" {
		if b.try(p, StepMedia, s.SetMedia(cfg.Paper)) {
			p.MediaSource = MediaForced
		}
	} else {
		w, h := p.Region.Size()
		list, err := s.MediaList()
		b.try(p, StepMedia, err)
		if m, ok := MatchMedia(list, w, h, cfg.MediaTolerance); ok {
			if b.try(p, StepMedia, s.SetMedia(m.Name)) {
				p.MediaSource = MediaMatched
			}
		} else if cfg.Paper != "" {
			if b.try(p, StepMedia, s.SetMedia(cfg.Paper)) {
				p.MediaSource = MediaDefault
			}
		}
	}

	m, err := s.Media()
	if b.try(p, StepMedia, err) {
		p.Media = m
	}
}

func (b *Builder) applyScale(p *Page, s drawing.PlotSettings, cfg plotconfig.Config) {
	if cfg.Fit() {
		if b.try(p, StepScale, s.SetScaleToFit()) {
			p.Fit = true
		}
		if b.try(p, StepPosition, s.SetCentered(true)) {
			p.Centered = true
		}
		return
	}

	ratio, err := plotconfig.ParseScale(cfg.Scale)
	if err != nil {
		b.try(p, StepScale, fmt.Errorf("%w, using 1:1", err))
	}
	p.Scale = plotconfig.OneToOne
	if b.try(p, StepScale, s.SetCustomScale(ratio.Paper, ratio.Drawing)) {
		p.Scale = ratio
	}

	if cfg.Center {
		if b.try(p, StepPosition, s.SetCentered(true)) {
			p.Centered = true
		}
		return
	}
	b.try(p, StepPosition, s.SetCentered(false))
	if b.try(p, StepPosition, s.SetOrigin(cfg.OffsetX, cfg.OffsetY)) {
		p.Offset = geom.Point2{X: cfg.OffsetX, Y: cfg.OffsetY}
	}
}

// try records err as a warning. It reports whether the step succeeded.
func (b *Builder) try(p *Page, step string, err error) bool {
	if err == nil {
		return true
	}
	p.Warnings = append(p.Warnings, Warning{Step: step, Err: err})
	b.Logger.Warn("page setup step failed", "step", step, "region", p.Region.Handle, "err", err)
	return false
}

// MatchMedia returns the first media whose size equals w x h within tol,
// in either orientation.
func MatchMedia(list []drawing.Media, w, h, tol float64) (drawing.Media, bool) {
	if tol < 0 {
		tol = 0
	}
	within := func(a, b float64) bool { return math.Abs(a-b) <= tol }
	for _, m := range list {
		if (within(m.Width, w) && within(m.Height, h)) || (within(m.Width, h) && within(m.Height, w)) {
			return m, true
		}
	}
	return drawing.Media{}, false
}

// Rotation returns the plot rotation for r on media m. With autoRotate off,
// or when the media size is unknown, it is always Rotate0.
func Rotation(r region.Region, m drawing.Media, autoRotate bool) drawing.Rotation {
	if !autoRotate || m.Width <= 0 || m.Height <= 0 {
		return drawing.Rotate0
	}
	if r.Landscape() != m.Landscape() {
		return drawing.Rotate90
	}
	return drawing.Rotate0
}
