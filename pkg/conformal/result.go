package conformal

import (
	"iter"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/gagern/confoo/pkg/mesh"
	"github.com/gagern/confoo/pkg/opt"
)

// ResultMesh is the outcome of a transform, keyed by the caller's vertex
// identifiers. It is independent of the internal mesh it was copied from.
type ResultMesh[V comparable] struct {
	geom      Geometry
	vertices  []V
	triangles []mesh.Triangle[V]
	location  map[V]r2.Vec
	u         map[V]float64
	lengths   map[[2]V]float64
	opt       opt.Result
}

var (
	_ mesh.LocatedMesh[int] = (*ResultMesh[int])(nil)
	_ mesh.MetricMesh[int]  = (*ResultMesh[int])(nil)
)

func newResultMesh[V comparable](m *InternalMesh[V], g Geometry, res opt.Result) *ResultMesh[V] {
	r := &ResultMesh[V]{
		geom:      g,
		vertices:  make([]V, len(m.Vertices)),
		triangles: make([]mesh.Triangle[V], len(m.Triangles)),
		location:  make(map[V]r2.Vec, len(m.Vertices)),
		u:         make(map[V]float64, len(m.Vertices)),
		lengths:   make(map[[2]V]float64, 2*len(m.Edges)),
		opt:       res,
	}
	for i := range m.Vertices {
		v := &m.Vertices[i]
		r.vertices[i] = v.Rep
		r.u[v.Rep] = v.U
		if p, ok := v.Location(); ok {
			r.location[v.Rep] = p
		}
	}
	for t := range m.Triangles {
		c := m.Corners(t)
		r.triangles[t] = mesh.Triangle[V]{m.Vertices[c[0]].Rep, m.Vertices[c[1]].Rep, m.Vertices[c[2]].Rep}
	}
	for i := range m.Edges {
		e := &m.Edges[i]
		a, b := m.Vertices[e.V1].Rep, m.Vertices[e.V2].Rep
		r.lengths[[2]V{a, b}] = e.Length
		r.lengths[[2]V{b, a}] = e.Length
	}
	return r
}

// Geometry returns the geometry of the coordinates and lengths. For
// Hyperbolic results the coordinates lie in the Poincaré disk.
func (r *ResultMesh[V]) Geometry() Geometry { return r.geom }

// Optimization returns the optimizer outcome.
func (r *ResultMesh[V]) Optimization() opt.Result { return r.opt }

// Triangles enumerates the triangles with their original orientation.
func (r *ResultMesh[V]) Triangles() iter.Seq[mesh.Triangle[V]] {
	return func(yield func(mesh.Triangle[V]) bool) {
		for _, t := range r.triangles {
			if !yield(t) {
				return
			}
		}
	}
}

// Vertices enumerates the vertex identifiers in order of first appearance
// in the input.
func (r *ResultMesh[V]) Vertices() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, v := range r.vertices {
			if !yield(v) {
				return
			}
		}
	}
}

// Location returns the coordinates of v.
func (r *ResultMesh[V]) Location(v V) (r2.Vec, bool) {
	p, ok := r.location[v]
	return p, ok
}

// X returns the x coordinate of v, or NaN for unknown vertices.
func (r *ResultMesh[V]) X(v V) float64 {
	if p, ok := r.location[v]; ok {
		return p.X
	}
	return math.NaN()
}

// Y returns the y coordinate of v, or NaN for unknown vertices.
func (r *ResultMesh[V]) Y(v V) float64 {
	if p, ok := r.location[v]; ok {
		return p.Y
	}
	return math.NaN()
}

// Z is always zero.
func (r *ResultMesh[V]) Z(V) float64 { return 0 }

// EdgeLength returns the optimized length of the edge a-b, or NaN if the
// two vertices are not adjacent.
func (r *ResultMesh[V]) EdgeLength(a, b V) float64 {
	if l, ok := r.lengths[[2]V{a, b}]; ok {
		return l
	}
	return math.NaN()
}

// U returns the final log-scale factor of v.
func (r *ResultMesh[V]) U(v V) float64 { return r.u[v] }
