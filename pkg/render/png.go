package render

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/gagern/confoo/pkg/errors"
	"github.com/gagern/confoo/pkg/fonts"
	"github.com/gagern/confoo/pkg/mesh"
)

var (
	fillRGBA     = color.RGBA{0xdb, 0xe9, 0xf6, 0xff}
	edgeRGBA     = color.RGBA{0x4a, 0x6f, 0x8a, 0xff}
	boundaryRGBA = color.RGBA{0x1b, 0x2a, 0x36, 0xff}
	diskRGBA     = color.RGBA{0x9a, 0xa5, 0xad, 0xff}
)

// PNG rasterizes m.
func PNG(m *mesh.Mesh2D, opts ...Option) ([]byte, error) {
	o := newOptions(opts)
	if err := ValidateSize(o.width, o.height); err != nil {
		return nil, err
	}
	vp := newViewport(m, o)

	img := image.NewRGBA(image.Rect(0, 0, o.width, o.height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	r := &raster{z: vector.NewRasterizer(o.width, o.height), img: img}

	if o.disk {
		r.circle(vp.apply(r2.Vec{}), vp.scale, 1)
		r.paint(diskRGBA)
	}

	for i := range m.Tris {
		c := m.Corners(i)
		r.polygon(vp.apply(c[0]), vp.apply(c[1]), vp.apply(c[2]))
	}
	r.paint(fillRGBA)

	for _, e := range m.InteriorEdges() {
		r.segment(vp.apply(m.Points[e.A]), vp.apply(m.Points[e.B]), 0.75)
	}
	r.paint(edgeRGBA)

	for _, loop := range m.BoundaryPolygons() {
		for i, p := range loop {
			r.segment(vp.apply(p), vp.apply(loop[(i+1)%len(loop)]), 1.5)
		}
	}
	r.paint(boundaryRGBA)

	if o.labels {
		if err := drawLabels(img, m, vp); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "encode png")
	}
	return buf.Bytes(), nil
}

// drawLabels writes the label of every point above and right of it, like
// the SVG renderer does.
func drawLabels(img *image.RGBA, m *mesh.Mesh2D, vp viewport) error {
	face, err := fonts.Face(fonts.LabelSize)
	if err != nil {
		return errors.Wrap(errors.ErrCodeRender, err, "load label font")
	}
	defer face.Close()

	d := &font.Drawer{Dst: img, Src: image.NewUniform(boundaryRGBA), Face: face}
	for i, p := range m.Points {
		q := vp.apply(p)
		d.Dot = fixed.P(int(math.Round(q.X+3)), int(math.Round(q.Y-3)))
		d.DrawString(labelOf(m, i))
	}
	return nil
}

// raster collects paths in a rasterizer and paints them in one color.
type raster struct {
	z   *vector.Rasterizer
	img *image.RGBA
}

func (r *raster) paint(c color.Color) {
	r.z.Draw(r.img, r.img.Bounds(), image.NewUniform(c), image.Point{})
	b := r.img.Bounds()
	r.z.Reset(b.Dx(), b.Dy())
}

func (r *raster) polygon(pts ...r2.Vec) {
	r.z.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, p := range pts[1:] {
		r.z.LineTo(float32(p.X), float32(p.Y))
	}
	r.z.ClosePath()
}

// segment adds a rectangle of the given width around pq. All rectangles
// share one winding direction so that overlaps add up instead of
// cancelling.
func (r *raster) segment(p, q r2.Vec, width float64) {
	d := r2.Sub(q, p)
	l := r2.Norm(d)
	if l == 0 {
		return
	}
	n := r2.Scale(width/(2*l), r2.Vec{X: -d.Y, Y: d.X})
	r.polygon(r2.Add(p, n), r2.Add(q, n), r2.Sub(q, n), r2.Sub(p, n))
}

// circle adds a ring of the given width as a polygon with 128 sides.
func (r *raster) circle(c r2.Vec, radius, width float64) {
	const sides = 128
	var prev r2.Vec
	for i := 0; i <= sides; i++ {
		p := r2.Add(c, r2.Scale(radius, unit(2*math.Pi*float64(i)/sides)))
		if i > 0 {
			r.segment(prev, p, width)
		}
		prev = p
	}
}

func unit(theta float64) r2.Vec {
	s, c := math.Sincos(theta)
	return r2.Vec{X: c, Y: s}
}
