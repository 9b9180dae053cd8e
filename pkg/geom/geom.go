// Package geom provides the small amount of 3D geometry titleplot needs:
// points, axis-aligned extents and affine 4x4 matrices for converting
// world coordinates into the display coordinates of a view.
package geom

import "math"

// Point2 is a point on the page or in display coordinates.
type Point2 struct {
	X, Y float64
}

// Point3 is a point in world coordinates.
type Point3 struct {
	X, Y, Z float64
}

// XY drops the Z component.
func (p Point3) XY() Point2 { return Point2{X: p.X, Y: p.Y} }

// Sub returns p - q.
func (p Point3) Sub(q Point3) Point3 { return Point3{p.X - q.X, p.Y - q.Y, p.Z - q.Z} }

// Cross returns the cross product p x q.
func (p Point3) Cross(q Point3) Point3 {
	return Point3{
		X: p.Y*q.Z - p.Z*q.Y,
		Y: p.Z*q.X - p.X*q.Z,
		Z: p.X*q.Y - p.Y*q.X,
	}
}

// Length returns the Euclidean norm.
func (p Point3) Length() float64 { return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z) }

// Normalize returns p scaled to unit length. The zero vector is returned
// unchanged.
func (p Point3) Normalize() Point3 {
	l := p.Length()
	if l == 0 {
		return p
	}
	return Point3{p.X / l, p.Y / l, p.Z / l}
}

// Extents is an axis-aligned bounding box. Only X and Y are meaningful for
// plotting; Z is carried through transforms.
type Extents struct {
	Min, Max Point3
}

// Width returns the absolute X size.
func (e Extents) Width() float64 { return math.Abs(e.Max.X - e.Min.X) }

// Height returns the absolute Y size.
func (e Extents) Height() float64 { return math.Abs(e.Max.Y - e.Min.Y) }

// Landscape reports whether the extents are wider than tall.
func (e Extents) Landscape() bool { return e.Width() > e.Height() }

// Normalized returns extents whose Min is the componentwise minimum and Max
// the componentwise maximum of the two corners.
func (e Extents) Normalized() Extents {
	return Extents{
		Min: Point3{math.Min(e.Min.X, e.Max.X), math.Min(e.Min.Y, e.Max.Y), math.Min(e.Min.Z, e.Max.Z)},
		Max: Point3{math.Max(e.Min.X, e.Max.X), math.Max(e.Min.Y, e.Max.Y), math.Max(e.Min.Z, e.Max.Z)},
	}
}

// Window is a rectangular plot area in display coordinates.
type Window struct {
	Min, Max Point2
}

// Width returns the window width.
func (w Window) Width() float64 { return math.Abs(w.Max.X - w.Min.X) }

// Height returns the window height.
func (w Window) Height() float64 { return math.Abs(w.Max.Y - w.Min.Y) }

// Contains reports whether p lies inside w, edges included.
func (w Window) Contains(p Point2) bool {
	return p.X >= w.Min.X && p.X <= w.Max.X && p.Y >= w.Min.Y && p.Y <= w.Max.Y
}
