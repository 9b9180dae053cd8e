package jsondoc

import (
	"errors"
	"fmt"
	"html"
	"math"
	"regexp"
	"strings"

	"github.com/matzehuels/titleplot/pkg/drawing"
	"github.com/matzehuels/titleplot/pkg/geom"
)

const (
	defaultStroke = "#000000"
	thinStroke    = 0.18 // mm
	heavyStroke   = 0.35 // mm
	minStroke     = 0.05 // mm
)

var colorPattern = regexp.MustCompile(`^(#[0-9a-fA-F]{3,8}|[a-zA-Z]+)$`)

// placement maps display coordinates onto the paper.
type placement struct {
	win    geom.Window
	rot    drawing.Rotation
	toView geom.Matrix
	pageH  float64

	// k is mm per drawing unit; ox, oy is the lower-left corner of the
	// plot on the paper.
	k, ox, oy    float64
	clipW, clipH float64
}

// RenderSVG renders the layout the settings belong to as one SVG page
// sized to the selected media.
func RenderSVG(s *Settings) ([]byte, error) {
	spec, err := s.PageSpec()
	if err != nil {
		return nil, err
	}
	toView := geom.Identity()
	if s.layout.Model {
		if v, ok := s.doc.file.GeomView(); ok {
			toView = geom.WorldToView(v)
		}
	}

	win, ok := s.Window()
	if !ok || s.plotType != drawing.PlotWindow {
		win, ok = entityBounds(s.layout.Entities, toView)
		if !ok {
			return nil, errors.New("nothing to plot")
		}
	}

	p := placement{win: win, rot: s.rotation, pageH: spec.Height, toView: toView}
	cw, ch := win.Width(), win.Height()
	if s.rotation == drawing.Rotate90 || s.rotation == drawing.Rotate270 {
		cw, ch = ch, cw
	}
	if s.fit {
		p.k = math.Min(spec.Width/cw, spec.Height/ch)
	} else {
		p.k = s.scale
		if s.units == drawing.Inches {
			p.k *= 25.4
		}
	}
	p.clipW, p.clipH = cw*p.k, ch*p.k
	if s.centered {
		p.ox = (spec.Width - p.clipW) / 2
		p.oy = (spec.Height - p.clipH) / 2
	} else {
		p.ox, p.oy = s.origin.X, s.origin.Y
		if s.units == drawing.Inches {
			p.ox, p.oy = p.ox*25.4, p.oy*25.4
		}
	}

	stroke := thinStroke
	if s.flags.Lineweights {
		stroke = heavyStroke
	}
	if s.flags.ScaleLW && !s.fit {
		stroke = math.Max(stroke*p.k, minStroke)
	}
	mono := s.flags.PlotStyles && (s.style == "monochrome.ctb" || s.style == "grayscale.ctb")

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%smm" height="%smm" viewBox="0 0 %s %s">`+"\n",
		num(spec.Width), num(spec.Height), num(spec.Width), num(spec.Height))
	fmt.Fprintf(&b, `<defs><clipPath id="plot"><rect x="%s" y="%s" width="%s" height="%s"/></clipPath></defs>`+"\n",
		num(p.ox), num(spec.Height-p.oy-p.clipH), num(p.clipW), num(p.clipH))
	fmt.Fprintf(&b, `<g clip-path="url(#plot)" fill="none" stroke-width="%s" stroke-linecap="round" stroke-linejoin="round">`+"\n", num(stroke))

	for _, e := range s.layout.Entities {
		pts, closed := outline(e)
		if len(pts) < 2 {
			continue
		}
		color := defaultStroke
		if !mono && e.Color != "" && colorPattern.MatchString(e.Color) {
			color = e.Color
		}
		tag := "polyline"
		if closed {
			tag = "polygon"
		}
		fmt.Fprintf(&b, `<%s stroke="%s" points="`, tag, html.EscapeString(color))
		for i, pt := range pts {
			x, y := p.paper(pt)
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(num(x) + "," + num(y))
		}
		b.WriteString(`"/>` + "\n")
	}
	b.WriteString("</g>\n</svg>\n")
	return []byte(b.String()), nil
}

// paper converts a world point into SVG user units (mm, y down).
func (p placement) paper(pt [2]float64) (float64, float64) {
	v := p.toView.Transform(geom.Point3{X: pt[0], Y: pt[1]})
	u, w := v.X-p.win.Min.X, v.Y-p.win.Min.Y
	ww, wh := p.win.Width(), p.win.Height()
	switch p.rot {
	case drawing.Rotate90:
		u, w = wh-w, u
	case drawing.Rotate180:
		u, w = ww-u, wh-w
	case drawing.Rotate270:
		u, w = w, ww-u
	}
	return p.ox + u*p.k, p.pageH - (p.oy + w*p.k)
}

// outline returns the drawable points of an entity. Inserts are drawn as
// the rectangle of their extents.
func outline(e Entity) ([][2]float64, bool) {
	switch e.Type {
	case TypeLine, TypePolyline:
		return e.Points, e.Closed && len(e.Points) > 2
	case TypeInsert:
		ext, err := e.Extents()
		if err != nil {
			return nil, false
		}
		return [][2]float64{
			{ext.Min.X, ext.Min.Y},
			{ext.Max.X, ext.Min.Y},
			{ext.Max.X, ext.Max.Y},
			{ext.Min.X, ext.Max.Y},
		}, true
	}
	return nil, false
}

// entityBounds returns the display-space bounds of every drawable point.
func entityBounds(entities []Entity, toView geom.Matrix) (geom.Window, bool) {
	w := geom.Window{
		Min: geom.Point2{X: math.Inf(1), Y: math.Inf(1)},
		Max: geom.Point2{X: math.Inf(-1), Y: math.Inf(-1)},
	}
	for _, e := range entities {
		pts, _ := outline(e)
		for _, pt := range pts {
			v := toView.Transform(geom.Point3{X: pt[0], Y: pt[1]})
			w.Min.X, w.Min.Y = math.Min(w.Min.X, v.X), math.Min(w.Min.Y, v.Y)
			w.Max.X, w.Max.Y = math.Max(w.Max.X, v.X), math.Max(w.Max.Y, v.Y)
		}
	}
	if math.IsInf(w.Min.X, 0) || w.Width() == 0 || w.Height() == 0 {
		return geom.Window{}, false
	}
	return w, true
}

func num(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.3f", v), "0"), ".")
}
