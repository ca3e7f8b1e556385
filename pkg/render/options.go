package render

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/gagern/confoo/pkg/errors"
	"github.com/gagern/confoo/pkg/mesh"
)

// Default viewport.
const (
	DefaultWidth  = 800
	DefaultHeight = 600
	DefaultMargin = 16.0
)

// Colors used by every renderer.
const (
	fillColor     = "#dbe9f6"
	edgeColor     = "#4a6f8a"
	boundaryColor = "#1b2a36"
	diskColor     = "#9aa5ad"
)

// Option configures a renderer.
type Option func(*options)

type options struct {
	width, height int
	margin        float64
	labels        bool
	disk          bool
}

func WithSize(w, h int) Option    { return func(o *options) { o.width, o.height = w, h } }
func WithMargin(m float64) Option { return func(o *options) { o.margin = m } }
func WithLabels() Option          { return func(o *options) { o.labels = true } }
func WithDisk() Option            { return func(o *options) { o.disk = true } }

func newOptions(opts []Option) options {
	o := options{width: DefaultWidth, height: DefaultHeight, margin: DefaultMargin}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ValidateSize checks a requested viewport size.
func ValidateSize(w, h int) error {
	const maxSide = 8192
	if w <= 0 || h <= 0 || w > maxSide || h > maxSide {
		return errors.New(errors.ErrCodeInvalidConfig, "image size %dx%d out of range (1..%d)", w, h, maxSide)
	}
	return nil
}

// viewport maps mesh coordinates to pixels.
type viewport struct {
	scale  float64
	offset r2.Vec // pixel position of the mesh origin
	height float64
}

func newViewport(m *mesh.Mesh2D, o options) viewport {
	b := m.Bounds()
	if o.disk {
		b.Min.X, b.Min.Y = min(b.Min.X, -1), min(b.Min.Y, -1)
		b.Max.X, b.Max.Y = max(b.Max.X, 1), max(b.Max.Y, 1)
	}
	size := r2.Sub(b.Max, b.Min)
	w := float64(o.width) - 2*o.margin
	h := float64(o.height) - 2*o.margin
	scale := math.Min(w/size.X, h/size.Y)
	if math.IsInf(scale, 0) || math.IsNaN(scale) || scale <= 0 {
		scale = 1
	}
	// center the mesh inside the margins
	center := r2.Scale(0.5, r2.Add(b.Min, b.Max))
	return viewport{
		scale: scale,
		offset: r2.Vec{
			X: float64(o.width)/2 - scale*center.X,
			Y: float64(o.height)/2 - scale*center.Y,
		},
		height: float64(o.height),
	}
}

// apply returns pixel coordinates with y pointing down.
func (v viewport) apply(p r2.Vec) r2.Vec {
	q := r2.Add(r2.Scale(v.scale, p), v.offset)
	return r2.Vec{X: q.X, Y: v.height - q.Y}
}
