package drawing

import (
	"context"

	"github.com/matzehuels/titleplot/pkg/geom"
)

// Media is a paper size known to a device.
type Media struct {
	Name   string  `json:"name"`   // canonical, backend-recognized name
	Label  string  `json:"label"`  // display name
	Width  float64 `json:"width"`  // millimetres
	Height float64 `json:"height"` // millimetres
}

// Landscape reports whether the media is wider than tall.
func (m Media) Landscape() bool { return m.Width > m.Height }

// Catalog enumerates output devices and their capabilities.
type Catalog interface {
	Devices(ctx context.Context) ([]string, error)
	Media(ctx context.Context, device string) ([]Media, error)
	StyleSheets(ctx context.Context) ([]string, error)
}

// Units are paper units.
type Units int

const (
	Millimeters Units = iota
	Inches
)

// PlotType selects what part of the space is plotted.
type PlotType int

const (
	PlotDisplay PlotType = iota
	PlotExtents
	PlotLimits
	PlotWindow
)

// Rotation is the plot rotation in quarter turns.
type Rotation int

const (
	Rotate0 Rotation = iota
	Rotate90
	Rotate180
	Rotate270
)

// Degrees returns the rotation angle.
func (r Rotation) Degrees() int { return int(r) * 90 }

// ShadeMode is the shaded-viewport plot mode.
type ShadeMode int

const (
	ShadeAsDisplayed ShadeMode = iota
	ShadeWireframe
	ShadeHidden
	ShadeRendered
)

// Resolution is the shade plot resolution level.
type Resolution int

const (
	ResolutionNormal Resolution = iota
	ResolutionDraft
	ResolutionPreview
	ResolutionPresentation
	ResolutionMaximum
)

// RenderFlags are the boolean rendering options of a plot.
type RenderFlags struct {
	PlotStyles   bool `json:"plot_styles"`
	Lineweights  bool `json:"lineweights"`
	Transparency bool `json:"transparency"`
	ScaleLW      bool `json:"scale_lineweights"`
}

// PlotSettings is the backend-native print-settings object. Setters may
// validate against the current device, so their call order matters: device
// before media, window before plot type, media before rotation.
type PlotSettings interface {
	SetDevice(name string) error
	SetUnits(u Units) error
	SetStyleSheet(name string) error
	SetMedia(name string) error
	// Media returns the currently selected media. The size is zero when the
	// backend cannot report it.
	Media() (Media, error)
	// MediaList returns the media available on the current device.
	MediaList() ([]Media, error)
	SetWindow(w geom.Window) error
	SetPlotType(t PlotType) error
	SetRotation(r Rotation) error
	SetScaleToFit() error
	SetCustomScale(paper, drawing float64) error
	SetCentered(on bool) error
	SetOrigin(x, y float64) error
	SetRenderFlags(f RenderFlags) error
	SetShade(mode ShadeMode, res Resolution) error
	// Refresh recomputes lists that depend on the device and media.
	Refresh() error
}

// Engine is the host plot engine. Only one job may be in flight at a time.
type Engine interface {
	// Busy reports whether a plot is currently in progress.
	Busy() bool

	// Acquire reserves the engine. Job.Close releases it.
	Acquire(ctx context.Context) (Job, error)
}

// Job is a scoped acquisition of the engine. Its methods must be called in
// lifecycle order; Close is always safe to call.
type Job interface {
	BeginPlot(ctx context.Context) error
	BeginDocument(ctx context.Context, path string) error
	BeginPage(ctx context.Context, settings PlotSettings) error
	BeginGenerateGraphics(ctx context.Context) error
	EndGenerateGraphics(ctx context.Context) error
	EndPage(ctx context.Context) error
	EndDocument(ctx context.Context) error
	EndPlot(ctx context.Context) error
	Close() error
}
