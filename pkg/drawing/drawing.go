// Package drawing defines the capabilities titleplot needs from a CAD host.
//
// The plotter never talks to a drawing format directly. A host integrates by
// implementing these interfaces; the repository ships one implementation in
// package jsondoc.
//
// # Capabilities
//
//   - Backend opens documents by path.
//   - Document gives transactional read access, an exclusive lock, the
//     current view, a content fingerprint and clean plot-settings objects.
//   - Space exposes the block references of one layout.
//   - BlockRef resolves its effective definition name and its extents.
//   - Catalog enumerates devices, media and style sheets.
//   - PlotSettings is the backend-native print-settings object.
//   - Engine runs the plot lifecycle and reports whether a plot is in flight.
package drawing

import (
	"context"
	"time"

	"github.com/matzehuels/titleplot/pkg/geom"
)

// Backend opens drawings.
type Backend interface {
	Open(ctx context.Context, path string) (Document, error)
}

// Document is an open drawing.
type Document interface {
	// Path returns the file the document was opened from.
	Path() string

	// Lock takes the exclusive edit lock. The returned release function
	// must be called exactly once.
	Lock(ctx context.Context) (release func() error, err error)

	// Read runs fn inside a read transaction.
	Read(ctx context.Context, fn func(tx Tx) error) error

	// CurrentView returns the model-space view. An error means no view is
	// available and callers fall back to world coordinates.
	CurrentView(ctx context.Context) (geom.View, error)

	// Fingerprint returns the drawing's internal last-modification marker.
	Fingerprint(ctx context.Context) (string, error)

	// Timestamp returns the filesystem modification time of the drawing.
	Timestamp() (time.Time, error)

	// NewPlotSettings returns a clean settings object for the named
	// layout, not inherited from the layout's saved settings.
	NewPlotSettings(layout string) (PlotSettings, error)

	// Catalog returns the device enumeration service.
	Catalog() Catalog

	// Engine returns the plot engine bound to this document's host.
	Engine() Engine

	Close() error
}

// Tx is a read transaction.
type Tx interface {
	// ActiveSpace returns the space that is current in the document.
	ActiveSpace() (Space, error)
}

// Space is a drawing space: model space or a paper layout.
type Space interface {
	Name() string
	IsModel() bool
	BlockRefs() ([]BlockRef, error)
}

// BlockRef is an inserted block instance.
type BlockRef interface {
	// Handle identifies the instance within its document.
	Handle() string

	// EffectiveName returns the definition name the instance was created
	// from. For dynamic-block variants this is the underlying definition,
	// not the anonymous variant.
	EffectiveName() (string, error)

	// Extents returns the world-space bounding box. It fails for empty or
	// malformed geometry.
	Extents() (geom.Extents, error)
}
