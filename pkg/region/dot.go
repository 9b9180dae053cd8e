package region

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/goccy/go-graphviz"
)

// previewSize is the longest side of the order preview in points.
const previewSize = 720.0

// ToDOT renders regions in the given order as a Graphviz graph. Each region
// is a box pinned at its window position and scaled to its size; edges
// follow the print sequence. The graph is meant for the neato engine, which
// honours pinned positions.
func ToDOT(regions []Region) string {
	var buf bytes.Buffer
	buf.WriteString("digraph order {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  splines=true;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12, fixedsize=true];\n")
	buf.WriteString("  edge [color=\"#1e9e8f\", penwidth=2, arrowsize=0.8];\n")
	buf.WriteString("\n")

	if len(regions) == 0 {
		buf.WriteString("}\n")
		return buf.String()
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, r := range regions {
		minX = math.Min(minX, r.Window.Min.X)
		minY = math.Min(minY, r.Window.Min.Y)
		maxX = math.Max(maxX, r.Window.Max.X)
		maxY = math.Max(maxY, r.Window.Max.Y)
	}
	span := math.Max(maxX-minX, maxY-minY)
	scale := 1.0
	if span > 0 {
		scale = previewSize / span
	}

	for i, r := range regions {
		cx := ((r.Window.Min.X+r.Window.Max.X)/2 - minX) * scale
		cy := ((r.Window.Min.Y+r.Window.Max.Y)/2 - minY) * scale
		w := math.Max(r.Window.Width()*scale/72, 0.3)
		h := math.Max(r.Window.Height()*scale/72, 0.3)
		label := fmt.Sprintf("%02d\\n%s", i+1, strings.ReplaceAll(r.Name, `"`, `\"`))
		fmt.Fprintf(&buf, "  p%d [label=\"%s\", pos=\"%.2f,%.2f!\", width=%.3f, height=%.3f];\n",
			i+1, label, cx, cy, w, h)
	}

	buf.WriteString("\n")
	for i := 1; i < len(regions); i++ {
		fmt.Fprintf(&buf, "  p%d -> p%d;\n", i, i+1)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderOrderSVG renders the print sequence of regions to SVG.
func RenderOrderSVG(ctx context.Context, regions []Region) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(ToDOT(regions)))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.SetLayout(graphviz.NEATO).Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
