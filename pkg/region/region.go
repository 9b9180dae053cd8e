// Package region finds title blocks in a drawing and orders them into a
// print sequence.
//
// A Region is one title-block instance: the rectangle that becomes one
// page. Scanner collects regions from the active space of a document,
// converting model-space extents into display coordinates through the
// current view. Sort imposes a reading order that tolerates small
// misalignments between blocks that are meant to sit on the same row or
// column.
//
// # Usage
//
//	scan, err := region.NewScanner(logger).Scan(ctx, doc, []string{"A3_TITLE"})
//	if err != nil {
//	    return err
//	}
//	ordered := region.Sort(scan.Regions, region.OrderHorizontal, region.DefaultGroupTolerance)
package region

import (
	"github.com/matzehuels/titleplot/pkg/geom"
)

// Region is one printable title-block instance. Regions are created per
// scan and never modified afterwards.
type Region struct {
	Name    string       // effective block name
	Handle  string       // instance handle in the source document
	Layout  string       // name of the space the block was found in
	Model   bool         // true when Layout is model space
	Extents geom.Extents // world extents, normalized
	Window  geom.Window  // plot window in display coordinates
}

// Size returns the region's width and height in drawing units.
func (r Region) Size() (w, h float64) {
	return r.Extents.Width(), r.Extents.Height()
}

// Landscape reports whether the region is wider than tall.
func (r Region) Landscape() bool { return r.Extents.Landscape() }

// ToWindow converts world extents into a plot window. In model space with a
// known view the corners are transformed with geom.WorldToView; otherwise
// the world X/Y coordinates are used directly.
func ToWindow(ext geom.Extents, view *geom.View, model bool) geom.Window {
	e := ext.Normalized()
	if model && view != nil {
		e = geom.WorldToView(*view).TransformExtents(e)
	}
	return geom.Window{Min: e.Min.XY(), Max: e.Max.XY()}
}
