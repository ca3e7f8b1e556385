package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"

	"github.com/gagern/confoo/pkg/errors"
	"github.com/gagern/confoo/pkg/mesh"
)

// dotScale converts viewport pixels to Graphviz points.
const dotScale = 72.0 / 96.0

// DOT describes m as an undirected Graphviz graph. Every vertex is pinned
// at its viewport position, so the graph can be drawn with the neato engine
// without moving anything. Boundary edges are drawn bold.
func DOT(m *mesh.Mesh2D, opts ...Option) string {
	o := newOptions(opts)
	vp := newViewport(m, o)

	var buf bytes.Buffer
	buf.WriteString("graph mesh {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  outputorder=edgesfirst;\n")
	fmt.Fprintf(&buf, "  node [shape=circle, width=0.08, fixedsize=true, style=filled, fillcolor=%q, color=%q, fontsize=8];\n",
		fillColor, boundaryColor)
	fmt.Fprintf(&buf, "  edge [color=%q];\n\n", edgeColor)

	for i, p := range m.Points {
		q := vp.apply(p)
		label := ""
		if o.labels {
			label = labelOf(m, i)
		}
		// pos is in points with y up
		fmt.Fprintf(&buf, "  v%d [label=%q, pos=\"%.2f,%.2f!\"];\n",
			i, label, q.X*dotScale, (vp.height-q.Y)*dotScale)
	}
	buf.WriteString("\n")

	boundary := make(map[mesh.Edge2D]bool)
	for _, e := range m.BoundaryEdges() {
		boundary[e] = true
	}
	for _, e := range m.Edges() {
		if boundary[e] {
			fmt.Fprintf(&buf, "  v%d -- v%d [color=%q, penwidth=2];\n", e.A, e.B, boundaryColor)
		} else {
			fmt.Fprintf(&buf, "  v%d -- v%d;\n", e.A, e.B)
		}
	}
	buf.WriteString("}\n")
	return buf.String()
}

// DOTToSVG renders a DOT graph to SVG with the neato engine, honoring the
// pinned positions written by [DOT].
func DOTToSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "init graphviz")
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "render")
	}
	return buf.Bytes(), nil
}
