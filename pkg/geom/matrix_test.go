package geom

import (
	"math"
	"testing"
)

const eps = 1e-9

func near(a, b Point3) bool {
	return math.Abs(a.X-b.X) < eps && math.Abs(a.Y-b.Y) < eps && math.Abs(a.Z-b.Z) < eps
}

func TestWorldToView(t *testing.T) {
	tests := []struct {
		name string
		view View
		in   Point3
		want Point3
	}{
		{
			name: "top view at origin is identity",
			view: View{Direction: Point3{0, 0, 1}},
			in:   Point3{120, -40, 0},
			want: Point3{120, -40, 0},
		},
		{
			name: "target moves to origin",
			view: View{Target: Point3{100, 50, 0}, Direction: Point3{0, 0, 1}},
			in:   Point3{200, 150, 0},
			want: Point3{100, 100, 0},
		},
		{
			name: "twist rotates clockwise",
			view: View{Direction: Point3{0, 0, 1}, Twist: math.Pi / 2},
			in:   Point3{1, 0, 0},
			want: Point3{0, -1, 0},
		},
		{
			name: "front view maps world Z to display Y",
			view: View{Direction: Point3{0, -1, 0}},
			in:   Point3{5, 0, 7},
			want: Point3{5, 7, 0},
		},
		{
			name: "zero direction falls back to plan",
			view: View{Target: Point3{1, 1, 0}},
			in:   Point3{2, 3, 0},
			want: Point3{1, 2, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WorldToView(tt.view).Transform(tt.in)
			if !near(got, tt.want) {
				t.Errorf("Transform(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTransformExtentsNormalizes(t *testing.T) {
	m := WorldToView(View{Direction: Point3{0, 0, 1}, Twist: math.Pi})
	e := Extents{Min: Point3{0, 0, 0}, Max: Point3{420, 297, 0}}

	got := m.TransformExtents(e)

	if got.Min.X > got.Max.X || got.Min.Y > got.Max.Y {
		t.Fatalf("extents not normalized: %+v", got)
	}
	if math.Abs(got.Width()-420) > eps || math.Abs(got.Height()-297) > eps {
		t.Errorf("size = %vx%v, want 420x297", got.Width(), got.Height())
	}
	if !near(got.Min, Point3{-420, -297, 0}) {
		t.Errorf("Min = %v, want {-420 -297 0}", got.Min)
	}
}

func TestMultiplyOrder(t *testing.T) {
	// Translate first, then rotate.
	m := RotationZ(math.Pi / 2).Multiply(Translation(Point3{1, 0, 0}))
	got := m.Transform(Point3{0, 0, 0})
	if !near(got, Point3{0, 1, 0}) {
		t.Errorf("got %v, want {0 1 0}", got)
	}
}

func TestPlaneAxesOrthonormal(t *testing.T) {
	for _, n := range []Point3{{0, 0, 1}, {1, 1, 1}, {0, -1, 0}, {0.001, 0, 1}} {
		ax, ay := PlaneAxes(n)
		nn := n.Normalize()
		dot := func(a, b Point3) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }
		if math.Abs(dot(ax, ay)) > eps || math.Abs(dot(ax, nn)) > eps || math.Abs(dot(ay, nn)) > eps {
			t.Errorf("axes for %v not orthogonal: %v %v", n, ax, ay)
		}
		if math.Abs(ax.Length()-1) > eps || math.Abs(ay.Length()-1) > eps {
			t.Errorf("axes for %v not unit length", n)
		}
	}
}
