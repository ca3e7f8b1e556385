package render

import (
	"encoding/json"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/gagern/confoo/pkg/errors"
	"github.com/gagern/confoo/pkg/mesh"
)

// Scene is the JSON rendering of a mesh in viewport coordinates.
type Scene struct {
	Width     int      `json:"width"`
	Height    int      `json:"height"`
	Scale     float64  `json:"scale"`
	Points    []Point  `json:"points"`
	Triangles [][3]int `json:"triangles"`
	Boundary  [][]int  `json:"boundary"`
	Disk      *Circle  `json:"disk,omitempty"`
}

// Point is one vertex in pixels, y pointing down.
type Point struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label,omitempty"`
}

// Circle is the unit circle of the Poincaré disk in pixels.
type Circle struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	R float64 `json:"r"`
}

// NewScene computes the viewport coordinates of m.
func NewScene(m *mesh.Mesh2D, opts ...Option) Scene {
	o := newOptions(opts)
	vp := newViewport(m, o)
	s := Scene{
		Width:     o.width,
		Height:    o.height,
		Scale:     vp.scale,
		Points:    make([]Point, len(m.Points)),
		Triangles: make([][3]int, len(m.Tris)),
		Boundary:  m.Boundary(),
	}
	for i, p := range m.Points {
		q := vp.apply(p)
		s.Points[i] = Point{X: q.X, Y: q.Y}
		if o.labels {
			s.Points[i].Label = labelOf(m, i)
		}
	}
	for i, t := range m.Tris {
		s.Triangles[i] = [3]int(t)
	}
	if o.disk {
		c := vp.apply(r2.Vec{})
		s.Disk = &Circle{X: c.X, Y: c.Y, R: vp.scale}
	}
	return s
}

// JSON encodes the [Scene] of m.
func JSON(m *mesh.Mesh2D, opts ...Option) ([]byte, error) {
	data, err := json.MarshalIndent(NewScene(m, opts...), "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "encode scene")
	}
	return data, nil
}
