package render

import (
	"bytes"
	"fmt"
	"html"
	"strconv"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/gagern/confoo/pkg/fonts"
	"github.com/gagern/confoo/pkg/mesh"
)

// SVG draws m as a standalone SVG document.
func SVG(m *mesh.Mesh2D, opts ...Option) []byte {
	o := newOptions(opts)
	vp := newViewport(m, o)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d">`+"\n",
		o.width, o.height, o.width, o.height)
	fmt.Fprintf(&buf, `  <rect width="100%%" height="100%%" fill="white"/>`+"\n")

	if o.disk {
		c := vp.apply(r2.Vec{})
		fmt.Fprintf(&buf, `  <circle class="disk" cx="%.2f" cy="%.2f" r="%.2f" fill="none" stroke="%s" stroke-dasharray="4 3"/>`+"\n",
			c.X, c.Y, vp.scale, diskColor)
	}

	buf.WriteString(`  <g class="triangles" fill="` + fillColor + `" stroke="none">` + "\n")
	for i := range m.Tris {
		c := m.Corners(i)
		a, b, d := vp.apply(c[0]), vp.apply(c[1]), vp.apply(c[2])
		fmt.Fprintf(&buf, `    <path d="M%.2f %.2fL%.2f %.2fL%.2f %.2fZ"/>`+"\n", a.X, a.Y, b.X, b.Y, d.X, d.Y)
	}
	buf.WriteString("  </g>\n")

	buf.WriteString(`  <g class="edges" stroke="` + edgeColor + `" stroke-width="0.75">` + "\n")
	for _, e := range m.InteriorEdges() {
		p, q := vp.apply(m.Points[e.A]), vp.apply(m.Points[e.B])
		fmt.Fprintf(&buf, `    <line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f"/>`+"\n", p.X, p.Y, q.X, q.Y)
	}
	buf.WriteString("  </g>\n")

	buf.WriteString(`  <g class="boundary" fill="none" stroke="` + boundaryColor + `" stroke-width="1.5" stroke-linejoin="round">` + "\n")
	for _, loop := range m.BoundaryPolygons() {
		buf.WriteString(`    <polygon points="`)
		for i, p := range loop {
			q := vp.apply(p)
			if i > 0 {
				buf.WriteByte(' ')
			}
			fmt.Fprintf(&buf, "%.2f,%.2f", q.X, q.Y)
		}
		buf.WriteString(`"/>` + "\n")
	}
	buf.WriteString("  </g>\n")

	if o.labels {
		fmt.Fprintf(&buf, `  <g class="labels" font-family="%s" font-size="%g" fill="%s">`+"\n",
			html.EscapeString(fonts.FontFamily), fonts.LabelSize, boundaryColor)
		for i, p := range m.Points {
			q := vp.apply(p)
			fmt.Fprintf(&buf, `    <text x="%.2f" y="%.2f">%s</text>`+"\n", q.X+3, q.Y-3, html.EscapeString(labelOf(m, i)))
		}
		buf.WriteString("  </g>\n")
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

// labelOf returns the original identifier of point i, or i itself.
func labelOf(m *mesh.Mesh2D, i int) string {
	if i < len(m.Labels) {
		return m.Labels[i]
	}
	return strconv.Itoa(i)
}
