package region

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/matzehuels/titleplot/pkg/errors"
)

// DefaultGroupTolerance is the rounding step, in drawing units, used to put
// nearly aligned blocks into the same row or column.
const DefaultGroupTolerance = 100.0

// Order is a print sequence mode.
type Order int

const (
	// OrderHorizontal reads rows top to bottom, each row left to right
	// (a "Z" pattern).
	OrderHorizontal Order = iota
	// OrderVertical reads columns left to right, each column top to
	// bottom (an "N" pattern).
	OrderVertical
)

func (o Order) String() string {
	switch o {
	case OrderVertical:
		return "vertical"
	default:
		return "horizontal"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Order) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Order) UnmarshalText(b []byte) error {
	v, err := ParseOrder(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// ParseOrder parses "horizontal"/"z" or "vertical"/"n", ignoring case.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "horizontal", "z", "h":
		return OrderHorizontal, nil
	case "vertical", "n", "v":
		return OrderVertical, nil
	}
	return OrderHorizontal, errors.New(errors.ErrCodeInvalidConfig, "unknown order %q (want horizontal or vertical)", s)
}

// Sort returns regions in print order. The input slice is not modified.
// Sorting is a total order, so sorting already sorted output is a no-op.
// A non-positive tol uses DefaultGroupTolerance.
func Sort(regions []Region, order Order, tol float64) []Region {
	if tol <= 0 {
		tol = DefaultGroupTolerance
	}
	out := slices.Clone(regions)
	group := func(v float64) float64 { return math.Round(v / tol) }

	switch order {
	case OrderVertical:
		slices.SortStableFunc(out, func(a, b Region) int {
			return cmpChain(
				cmp.Compare(group(a.Extents.Min.X), group(b.Extents.Min.X)),
				cmp.Compare(b.Extents.Min.Y, a.Extents.Min.Y),
				cmp.Compare(a.Extents.Min.X, b.Extents.Min.X),
				cmp.Compare(a.Handle, b.Handle),
			)
		})
	default:
		slices.SortStableFunc(out, func(a, b Region) int {
			return cmpChain(
				cmp.Compare(group(b.Extents.Min.Y), group(a.Extents.Min.Y)),
				cmp.Compare(a.Extents.Min.X, b.Extents.Min.X),
				cmp.Compare(b.Extents.Min.Y, a.Extents.Min.Y),
				cmp.Compare(a.Handle, b.Handle),
			)
		})
	}
	return out
}

func cmpChain(cs ...int) int {
	for _, c := range cs {
		if c != 0 {
			return c
		}
	}
	return 0
}
