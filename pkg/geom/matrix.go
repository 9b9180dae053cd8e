package geom

import "math"

// Matrix is a row-major 4x4 affine transform acting on column vectors:
// p' = M * p. Multiply composes so that m.Multiply(o) applies o first.
type Matrix [4][4]float64

// Identity returns the identity transform.
func Identity() Matrix {
	return Matrix{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// Translation returns a transform that moves points by v.
func Translation(v Point3) Matrix {
	m := Identity()
	m[0][3], m[1][3], m[2][3] = v.X, v.Y, v.Z
	return m
}

// RotationZ returns a counter-clockwise rotation about the Z axis by angle
// radians.
func RotationZ(angle float64) Matrix {
	c, s := math.Cos(angle), math.Sin(angle)
	m := Identity()
	m[0][0], m[0][1] = c, -s
	m[1][0], m[1][1] = s, c
	return m
}

// arbitraryAxisLimit is the threshold of the arbitrary axis algorithm used by
// CAD systems to pick a stable in-plane X axis for a given normal.
const arbitraryAxisLimit = 1.0 / 64.0

// PlaneAxes returns the in-plane X and Y axes for a plane with the given
// normal, following the arbitrary axis algorithm.
func PlaneAxes(normal Point3) (ax, ay Point3) {
	n := normal.Normalize()
	if math.Abs(n.X) < arbitraryAxisLimit && math.Abs(n.Y) < arbitraryAxisLimit {
		ax = Point3{0, 1, 0}.Cross(n)
	} else {
		ax = Point3{0, 0, 1}.Cross(n)
	}
	ax = ax.Normalize()
	ay = n.Cross(ax).Normalize()
	return ax, ay
}

// WorldToPlane returns the transform that expresses world points in the
// coordinate system of the plane through the origin with the given normal.
// The plane's X and Y axes map to X and Y, the normal maps to Z.
func WorldToPlane(normal Point3) Matrix {
	n := normal.Normalize()
	if n.Length() == 0 {
		return Identity()
	}
	ax, ay := PlaneAxes(n)
	return Matrix{
		{ax.X, ax.Y, ax.Z, 0},
		{ay.X, ay.Y, ay.Z, 0},
		{n.X, n.Y, n.Z, 0},
		{0, 0, 0, 1},
	}
}

// Multiply returns m * o.
func (m Matrix) Multiply(o Matrix) Matrix {
	var r Matrix
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += m[i][k] * o[k][j]
			}
			r[i][j] = sum
		}
	}
	return r
}

// Transform applies m to p.
func (m Matrix) Transform(p Point3) Point3 {
	return Point3{
		X: m[0][0]*p.X + m[0][1]*p.Y + m[0][2]*p.Z + m[0][3],
		Y: m[1][0]*p.X + m[1][1]*p.Y + m[1][2]*p.Z + m[1][3],
		Z: m[2][0]*p.X + m[2][1]*p.Y + m[2][2]*p.Z + m[2][3],
	}
}

// View describes the current viewing parameters of model space.
type View struct {
	Target    Point3  // point the view looks at
	Direction Point3  // from target toward the viewer
	Twist     float64 // radians, counter-clockwise
}

// WorldToView returns the world-to-display transform for v. It is the
// composition of three steps applied in order: move the view target to the
// origin, project onto the view plane (normal = view direction), rotate by
// minus the twist angle.
func WorldToView(v View) Matrix {
	toOrigin := Translation(Point3{-v.Target.X, -v.Target.Y, -v.Target.Z})
	project := WorldToPlane(v.Direction)
	untwist := RotationZ(-v.Twist)
	return untwist.Multiply(project).Multiply(toOrigin)
}

// TransformExtents applies m to both corners of e and returns the
// componentwise min/max, since the transform may swap axis order.
func (m Matrix) TransformExtents(e Extents) Extents {
	return Extents{Min: m.Transform(e.Min), Max: m.Transform(e.Max)}.Normalized()
}
