// Package jsondoc is a drawing backend for JSON drawing exchange files.
//
// A drawing file lists its layouts, each with the entities placed on it.
// Title blocks are "insert" entities carrying their block name and world
// extents; "line" and "polyline" entities are the geometry that ends up on
// paper. The engine renders a page to SVG and hands it to a Printer, which
// produces the PDF artifact.
//
//	{
//	  "revision": "r42",
//	  "activeLayout": "Model",
//	  "view": {"target": [0, 0, 0], "direction": [0, 0, 1], "twist": 0},
//	  "layouts": [{
//	    "name": "Model", "model": true,
//	    "entities": [
//	      {"type": "insert", "handle": "1A", "name": "A3_TITLE",
//	       "min": [0, 0, 0], "max": [420, 297, 0]},
//	      {"type": "line", "points": [[10, 10], [410, 287]]}
//	    ]
//	  }]
//	}
package jsondoc

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/matzehuels/titleplot/pkg/geom"
)

// Entity types.
const (
	TypeInsert   = "insert"
	TypeLine     = "line"
	TypePolyline = "polyline"
)

// File is a decoded drawing file.
type File struct {
	Revision     string    `json:"revision,omitempty"`
	ActiveLayout string    `json:"activeLayout"`
	View         *ViewSpec `json:"view,omitempty"`
	Layouts      []Layout  `json:"layouts"`
}

// ViewSpec is the saved model-space view. Twist is in degrees.
type ViewSpec struct {
	Target    [3]float64 `json:"target"`
	Direction [3]float64 `json:"direction"`
	Twist     float64    `json:"twist,omitempty"`
}

// Layout is one drawing space.
type Layout struct {
	Name     string   `json:"name"`
	Model    bool     `json:"model,omitempty"`
	Entities []Entity `json:"entities"`
}

// Entity is a drawable object or a block insert.
type Entity struct {
	Type   string `json:"type"`
	Handle string `json:"handle,omitempty"`

	// Insert fields. Name may be an anonymous variant ("*U12"), in which
	// case EffectiveName names the definition it was created from.
	Name          string      `json:"name,omitempty"`
	EffectiveName string      `json:"effectiveName,omitempty"`
	Min           *[3]float64 `json:"min,omitempty"`
	Max           *[3]float64 `json:"max,omitempty"`

	// Line and polyline fields.
	Points [][2]float64 `json:"points,omitempty"`
	Closed bool         `json:"closed,omitempty"`
	Color  string       `json:"color,omitempty"`
}

// Parse decodes and checks a drawing file. Entities without a handle get
// one derived from their position.
func Parse(data []byte) (*File, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode drawing: %w", err)
	}
	if len(f.Layouts) == 0 {
		return nil, fmt.Errorf("drawing has no layouts")
	}
	seen := make(map[string]bool, len(f.Layouts))
	for li := range f.Layouts {
		l := &f.Layouts[li]
		if strings.TrimSpace(l.Name) == "" {
			return nil, fmt.Errorf("layout %d has no name", li)
		}
		if seen[l.Name] {
			return nil, fmt.Errorf("duplicate layout %q", l.Name)
		}
		seen[l.Name] = true
		for ei := range l.Entities {
			e := &l.Entities[ei]
			if e.Handle == "" {
				e.Handle = strconv.FormatInt(int64(li+1)<<16|int64(ei+1), 16)
			}
		}
	}
	if f.ActiveLayout == "" {
		f.ActiveLayout = f.Layouts[0].Name
	}
	if f.Layout(f.ActiveLayout) == nil {
		return nil, fmt.Errorf("active layout %q does not exist", f.ActiveLayout)
	}
	return &f, nil
}

// ReadFile reads and parses the drawing at path.
func ReadFile(path string) (*File, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	f, err := Parse(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, data, nil
}

// Layout returns the named layout, or nil.
func (f *File) Layout(name string) *Layout {
	for i := range f.Layouts {
		if f.Layouts[i].Name == name {
			return &f.Layouts[i]
		}
	}
	return nil
}

// GeomView converts the saved view, or reports false when there is none.
func (f *File) GeomView() (geom.View, bool) {
	if f.View == nil {
		return geom.View{}, false
	}
	v := f.View
	return geom.View{
		Target:    geom.Point3{X: v.Target[0], Y: v.Target[1], Z: v.Target[2]},
		Direction: geom.Point3{X: v.Direction[0], Y: v.Direction[1], Z: v.Direction[2]},
		Twist:     v.Twist * math.Pi / 180,
	}, true
}

// Extents returns the world extents of an insert.
func (e Entity) Extents() (geom.Extents, error) {
	if e.Min == nil || e.Max == nil {
		return geom.Extents{}, fmt.Errorf("entity %s has no extents", e.Handle)
	}
	ext := geom.Extents{
		Min: geom.Point3{X: e.Min[0], Y: e.Min[1], Z: e.Min[2]},
		Max: geom.Point3{X: e.Max[0], Y: e.Max[1], Z: e.Max[2]},
	}.Normalized()
	for _, v := range []float64{ext.Min.X, ext.Min.Y, ext.Max.X, ext.Max.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return geom.Extents{}, fmt.Errorf("entity %s has non-finite extents", e.Handle)
		}
	}
	if ext.Width() == 0 || ext.Height() == 0 {
		return geom.Extents{}, fmt.Errorf("entity %s has empty extents", e.Handle)
	}
	return ext, nil
}

// BlockName returns the definition name of an insert.
func (e Entity) BlockName() (string, error) {
	if e.EffectiveName != "" {
		return e.EffectiveName, nil
	}
	if strings.HasPrefix(e.Name, "*") {
		return "", fmt.Errorf("anonymous block %s has no effective name", e.Name)
	}
	if e.Name == "" {
		return "", fmt.Errorf("insert %s has no block name", e.Handle)
	}
	return e.Name, nil
}
