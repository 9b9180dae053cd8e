package jsondoc

import (
	"context"
	"fmt"
	"slices"

	"github.com/matzehuels/titleplot/pkg/drawing"
)

// DefaultDevice is the PDF device every catalog starts with.
const DefaultDevice = "PDF"

// Catalog is a static device catalog.
type Catalog struct {
	devices map[string][]drawing.Media
	styles  []string
}

type paper struct {
	label string
	w, h  float64 // millimetres, portrait
	inch  bool
}

var (
	isoSizes = []paper{
		{"A0", 841, 1189, false},
		{"A1", 594, 841, false},
		{"A2", 420, 594, false},
		{"A3", 297, 420, false},
		{"A4", 210, 297, false},
	}
	ansiSizes = []paper{
		{"A", 215.9, 279.4, true},
		{"B", 279.4, 431.8, true},
		{"C", 431.8, 558.8, true},
		{"D", 558.8, 863.6, true},
	}
)

// DefaultCatalog returns a catalog with the PDF device offering ISO A0-A4
// and ANSI A-D in both orientations.
func DefaultCatalog() *Catalog {
	c := &Catalog{
		devices: map[string][]drawing.Media{},
		styles:  []string{"monochrome.ctb", "grayscale.ctb", "acad.ctb"},
	}
	var media []drawing.Media
	for _, p := range isoSizes {
		media = append(media, p.media("ISO", false), p.media("ISO", true))
	}
	for _, p := range ansiSizes {
		media = append(media, p.media("ANSI", false), p.media("ANSI", true))
	}
	c.AddDevice(DefaultDevice, media...)
	return c
}

func (p paper) media(family string, landscape bool) drawing.Media {
	w, h := p.w, p.h
	orient := ""
	if landscape {
		w, h = h, w
		orient = "expand_"
	}
	var name string
	if p.inch {
		name = fmt.Sprintf("%s_%s%s_(%.2f_x_%.2f_Inches)", family, orient, p.label, w/25.4, h/25.4)
	} else {
		name = fmt.Sprintf("%s_%s%s_(%.2f_x_%.2f_MM)", family, orient, p.label, w, h)
	}
	label := family + " " + p.label
	if landscape {
		label += " landscape"
	}
	return drawing.Media{Name: name, Label: label, Width: w, Height: h}
}

// AddDevice registers or replaces a device.
func (c *Catalog) AddDevice(name string, media ...drawing.Media) {
	c.devices[name] = slices.Clone(media)
}

// AddStyleSheet registers a style sheet name.
func (c *Catalog) AddStyleSheet(name string) {
	if !slices.Contains(c.styles, name) {
		c.styles = append(c.styles, name)
	}
}

func (c *Catalog) Devices(ctx context.Context) ([]string, error) {
	out := make([]string, 0, len(c.devices))
	for d := range c.devices {
		out = append(out, d)
	}
	slices.Sort(out)
	return out, nil
}

func (c *Catalog) Media(ctx context.Context, device string) ([]drawing.Media, error) {
	m, ok := c.devices[device]
	if !ok {
		return nil, fmt.Errorf("unknown device %q", device)
	}
	return slices.Clone(m), nil
}

func (c *Catalog) StyleSheets(ctx context.Context) ([]string, error) {
	return slices.Clone(c.styles), nil
}

func (c *Catalog) hasStyle(name string) bool { return slices.Contains(c.styles, name) }

var _ drawing.Catalog = (*Catalog)(nil)
