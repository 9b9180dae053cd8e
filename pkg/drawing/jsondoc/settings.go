package jsondoc

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/matzehuels/titleplot/pkg/drawing"
	"github.com/matzehuels/titleplot/pkg/geom"
)

// Settings is the plot-settings object of a layout. Setters validate
// against the current device the way a CAD host does: the device must be
// chosen before the media, the window before the window plot type and the
// media before the rotation.
type Settings struct {
	catalog *Catalog
	doc     *Document
	layout  *Layout

	device    string
	media     drawing.Media
	hasMedia  bool
	units     drawing.Units
	style     string
	window    geom.Window
	hasWindow bool
	plotType  drawing.PlotType
	rotation  drawing.Rotation
	fit       bool
	scale     float64 // paper units per drawing unit
	centered  bool
	origin    geom.Point2
	flags     drawing.RenderFlags
	shade     drawing.ShadeMode
	res       drawing.Resolution
}

func newSettings(c *Catalog, d *Document, l *Layout) *Settings {
	return &Settings{catalog: c, doc: d, layout: l, plotType: drawing.PlotExtents, fit: true, scale: 1}
}

func (s *Settings) SetDevice(name string) error {
	if _, err := s.catalog.Media(context.Background(), name); err != nil {
		return err
	}
	s.device = name
	s.media, s.hasMedia = drawing.Media{}, false
	return nil
}

func (s *Settings) SetUnits(u drawing.Units) error {
	if u != drawing.Millimeters && u != drawing.Inches {
		return fmt.Errorf("unknown units %d", u)
	}
	s.units = u
	return nil
}

func (s *Settings) SetStyleSheet(name string) error {
	if !s.catalog.hasStyle(name) {
		return fmt.Errorf("style sheet %q not found", name)
	}
	s.style = name
	return nil
}

func (s *Settings) SetMedia(name string) error {
	list, err := s.MediaList()
	if err != nil {
		return err
	}
	for _, m := range list {
		if m.Name == name {
			s.media, s.hasMedia = m, true
			return nil
		}
	}
	return fmt.Errorf("media %q not available on %s", name, s.device)
}

func (s *Settings) Media() (drawing.Media, error) {
	if !s.hasMedia {
		return drawing.Media{}, errors.New("no media selected")
	}
	return s.media, nil
}

func (s *Settings) MediaList() ([]drawing.Media, error) {
	if s.device == "" {
		return nil, errors.New("no device selected")
	}
	return s.catalog.Media(context.Background(), s.device)
}

func (s *Settings) SetWindow(w geom.Window) error {
	if w.Width() == 0 || w.Height() == 0 {
		return errors.New("plot window is empty")
	}
	s.window = geom.Window{
		Min: geom.Point2{X: math.Min(w.Min.X, w.Max.X), Y: math.Min(w.Min.Y, w.Max.Y)},
		Max: geom.Point2{X: math.Max(w.Min.X, w.Max.X), Y: math.Max(w.Min.Y, w.Max.Y)},
	}
	s.hasWindow = true
	return nil
}

func (s *Settings) SetPlotType(t drawing.PlotType) error {
	if t == drawing.PlotWindow && !s.hasWindow {
		return errors.New("window plot type requires a window")
	}
	s.plotType = t
	return nil
}

func (s *Settings) SetRotation(r drawing.Rotation) error {
	if !s.hasMedia {
		return errors.New("rotation requires a media")
	}
	if r < drawing.Rotate0 || r > drawing.Rotate270 {
		return fmt.Errorf("invalid rotation %d", r)
	}
	s.rotation = r
	return nil
}

func (s *Settings) SetScaleToFit() error {
	s.fit = true
	return nil
}

func (s *Settings) SetCustomScale(paper, drawingUnits float64) error {
	if !(paper > 0) || !(drawingUnits > 0) {
		return fmt.Errorf("invalid scale %g:%g", paper, drawingUnits)
	}
	s.fit = false
	s.scale = paper / drawingUnits
	return nil
}

func (s *Settings) SetCentered(on bool) error {
	s.centered = on
	return nil
}

func (s *Settings) SetOrigin(x, y float64) error {
	s.origin = geom.Point2{X: x, Y: y}
	return nil
}

func (s *Settings) SetRenderFlags(f drawing.RenderFlags) error {
	s.flags = f
	return nil
}

func (s *Settings) SetShade(mode drawing.ShadeMode, res drawing.Resolution) error {
	s.shade, s.res = mode, res
	return nil
}

func (s *Settings) Refresh() error {
	if s.device == "" {
		return errors.New("no device selected")
	}
	return nil
}

// Window returns the plot window and whether one was set.
func (s *Settings) Window() (geom.Window, bool) { return s.window, s.hasWindow }

// Rotation returns the selected rotation.
func (s *Settings) Rotation() drawing.Rotation { return s.rotation }

// StyleSheet returns the selected style sheet, if any.
func (s *Settings) StyleSheet() string { return s.style }

// RenderFlags returns the rendering options.
func (s *Settings) RenderFlags() drawing.RenderFlags { return s.flags }

// Centered reports whether the plot is centred on the paper.
func (s *Settings) Centered() bool { return s.centered }

// Scale returns the paper units per drawing unit and whether the plot is
// scaled to fit instead.
func (s *Settings) Scale() (factor float64, fit bool) { return s.scale, s.fit }

// PageSpec returns the paper of the page to print.
func (s *Settings) PageSpec() (PageSpec, error) {
	if !s.hasMedia {
		return PageSpec{}, errors.New("no media selected")
	}
	return PageSpec{Media: s.media.Name, Width: s.media.Width, Height: s.media.Height}, nil
}

var _ drawing.PlotSettings = (*Settings)(nil)
