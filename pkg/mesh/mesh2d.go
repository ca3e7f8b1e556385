package mesh

import (
	"fmt"
	"iter"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r2"
)

// Edge2D is an undirected edge of a [Mesh2D], stored with A < B.
type Edge2D struct {
	A, B int
}

func newEdge2D(a, b int) Edge2D {
	if a > b {
		a, b = b, a
	}
	return Edge2D{a, b}
}

// Mesh2D is a planar triangle mesh with integer vertex identifiers that
// index into Points. It implements both [LocatedMesh] and [MetricMesh]
// over int. Labels, when present, name the original vertex of each point.
type Mesh2D struct {
	Points []r2.Vec
	Tris   []Triangle[int]
	Labels []string
}

// NewMesh2D projects a located mesh onto the xy plane. Vertices are
// numbered in order of first appearance and labeled with their original
// identifier.
func NewMesh2D[V comparable](m LocatedMesh[V]) *Mesh2D {
	out := &Mesh2D{}
	ids := make(map[V]int)
	for t := range m.Triangles() {
		var tri Triangle[int]
		for i, c := range t {
			id, ok := ids[c]
			if !ok {
				id = len(out.Points)
				ids[c] = id
				out.Points = append(out.Points, r2.Vec{X: m.X(c), Y: m.Y(c)})
				out.Labels = append(out.Labels, fmt.Sprint(c))
			}
			tri[i] = id
		}
		out.Tris = append(out.Tris, tri)
	}
	return out
}

// FromPoints builds a Mesh2D from triangles given as point triples.
// Coinciding points are merged into one vertex.
func FromPoints(tris [][3]r2.Vec) *Mesh2D {
	out := &Mesh2D{}
	ids := make(map[r2.Vec]int)
	for _, t := range tris {
		var tri Triangle[int]
		for i, p := range t {
			id, ok := ids[p]
			if !ok {
				id = len(out.Points)
				ids[p] = id
				out.Points = append(out.Points, p)
			}
			tri[i] = id
		}
		out.Tris = append(out.Tris, tri)
	}
	return out
}

// Triangles implements [Mesh].
func (m *Mesh2D) Triangles() iter.Seq[Triangle[int]] {
	return slices.Values(m.Tris)
}

func (m *Mesh2D) X(v int) float64 { return m.Points[v].X }
func (m *Mesh2D) Y(v int) float64 { return m.Points[v].Y }
func (m *Mesh2D) Z(v int) float64 { return 0 }

// EdgeLength implements [MetricMesh].
func (m *Mesh2D) EdgeLength(a, b int) float64 {
	return r2.Norm(r2.Sub(m.Points[a], m.Points[b]))
}

// Corners returns the three points of triangle i.
func (m *Mesh2D) Corners(i int) [3]r2.Vec {
	t := m.Tris[i]
	return [3]r2.Vec{m.Points[t[0]], m.Points[t[1]], m.Points[t[2]]}
}

// Edges returns all edges of the mesh in a deterministic order.
func (m *Mesh2D) Edges() []Edge2D {
	all, _ := m.classify()
	return all
}

// InteriorEdges returns the edges shared by two triangles.
func (m *Mesh2D) InteriorEdges() []Edge2D {
	all, count := m.classify()
	return slices.DeleteFunc(all, func(e Edge2D) bool { return count[e] < 2 })
}

// BoundaryEdges returns the edges incident to exactly one triangle.
func (m *Mesh2D) BoundaryEdges() []Edge2D {
	all, count := m.classify()
	return slices.DeleteFunc(all, func(e Edge2D) bool { return count[e] != 1 })
}

func (m *Mesh2D) classify() ([]Edge2D, map[Edge2D]int) {
	count := make(map[Edge2D]int, 3*len(m.Tris)/2)
	var all []Edge2D
	for _, t := range m.Tris {
		for i := range 3 {
			e := newEdge2D(t.Corner(i), t.Corner(i+1))
			if count[e] == 0 {
				all = append(all, e)
			}
			count[e]++
		}
	}
	slices.SortFunc(all, func(x, y Edge2D) int {
		if x.A != y.A {
			return x.A - y.A
		}
		return x.B - y.B
	})
	return all, count
}

// Boundary returns the boundary of the mesh as closed polygons. Each loop
// lists its vertices in the winding order of the adjacent triangles, so for
// counter-clockwise triangles the outer boundary runs counter-clockwise and
// holes run clockwise. The first vertex is not repeated at the end.
func (m *Mesh2D) Boundary() [][]int {
	type dirEdge struct{ a, b int }
	directed := make(map[dirEdge]bool, 3*len(m.Tris))
	for _, t := range m.Tris {
		for i := range 3 {
			directed[dirEdge{t.Corner(i), t.Corner(i + 1)}] = true
		}
	}
	next := make(map[int]int)
	var starts []int
	for e := range directed {
		if directed[dirEdge{e.b, e.a}] {
			continue
		}
		next[e.a] = e.b
		starts = append(starts, e.a)
	}
	slices.Sort(starts)

	var loops [][]int
	seen := make(map[int]bool, len(next))
	for _, s := range starts {
		if seen[s] {
			continue
		}
		var loop []int
		for v := s; !seen[v]; {
			seen[v] = true
			loop = append(loop, v)
			n, ok := next[v]
			if !ok {
				break
			}
			v = n
		}
		loops = append(loops, loop)
	}
	return loops
}

// BoundaryPolygons is like [Mesh2D.Boundary] but returns point coordinates.
func (m *Mesh2D) BoundaryPolygons() [][]r2.Vec {
	loops := m.Boundary()
	out := make([][]r2.Vec, len(loops))
	for i, loop := range loops {
		out[i] = make([]r2.Vec, len(loop))
		for j, v := range loop {
			out[i][j] = m.Points[v]
		}
	}
	return out
}

// Bounds returns the smallest axis-aligned box containing every point.
// An empty mesh yields the zero box.
func (m *Mesh2D) Bounds() r2.Box {
	if len(m.Points) == 0 {
		return r2.Box{}
	}
	b := r2.Box{
		Min: r2.Vec{X: math.Inf(1), Y: math.Inf(1)},
		Max: r2.Vec{X: math.Inf(-1), Y: math.Inf(-1)},
	}
	for _, p := range m.Points {
		b.Min.X = min(b.Min.X, p.X)
		b.Min.Y = min(b.Min.Y, p.Y)
		b.Max.X = max(b.Max.X, p.X)
		b.Max.Y = max(b.Max.Y, p.Y)
	}
	return b
}

// SignedArea returns the signed area of a closed polygon; positive for
// counter-clockwise polygons.
func SignedArea(poly []r2.Vec) float64 {
	var a float64
	for i, p := range poly {
		q := poly[(i+1)%len(poly)]
		a += r2.Cross(p, q)
	}
	return a / 2
}
