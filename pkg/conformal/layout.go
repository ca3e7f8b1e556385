package conformal

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// layout assigns a location to every vertex from the current edge lengths
// and angles by walking the triangle adjacency graph breadth first.
type layout[V comparable] struct {
	m    *InternalMesh[V]
	geom Geometry
}

// Layout places the mesh in the plane (Euclidean) or in the Poincaré disk
// (Hyperbolic), starting at triangle start. A negative start selects the
// triangle found by [InternalMesh.CentralTriangle].
func (im *InternalMesh[V]) Layout(g Geometry, start int) {
	if start < 0 {
		start = im.CentralTriangle()
	}
	l := &layout[V]{m: im, geom: g}
	l.run(start)
}

// CentralTriangle walks breadth first from all boundary triangles inwards
// and returns the last triangle reached. Meshes without boundary, or
// without triangles away from it, yield the middle triangle.
func (im *InternalMesh[V]) CentralTriangle() int {
	fallback := len(im.Triangles) / 2
	im.clearVisited()
	defer im.clearVisited()

	var queue []int
	for t := range im.Triangles {
		if im.isBoundaryTriangle(t) {
			im.Triangles[t].visited = true
			queue = append(queue, t)
		}
	}
	unqueued := len(im.Triangles) - len(queue)
	if len(queue) == 0 || unqueued == 0 {
		return fallback
	}
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		for _, e := range im.TriangleEdges(t) {
			t2 := im.otherTriangle(e, t)
			if t2 == none || im.Triangles[t2].visited {
				continue
			}
			im.Triangles[t2].visited = true
			unqueued--
			if unqueued == 0 {
				return t2
			}
			queue = append(queue, t2)
		}
	}
	return fallback
}

func (im *InternalMesh[V]) clearVisited() {
	for t := range im.Triangles {
		im.Triangles[t].visited = false
	}
}

func (l *layout[V]) run(start int) {
	m := l.m
	m.clearVisited()
	defer m.clearVisited()

	if l.geom == Hyperbolic {
		l.startHyperbolic(start)
	} else {
		l.startEuclidean(start)
	}

	m.Triangles[start].visited = true
	queue := []int{start}
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		for _, e := range m.TriangleEdges(t) {
			t2 := m.otherTriangle(e, t)
			if t2 == none || m.Triangles[t2].visited {
				continue
			}
			m.Triangles[t2].visited = true
			l.layoutEdge(e, t2)
			queue = append(queue, t2)
		}
	}
}

func (l *layout[V]) layoutEdge(e, t int) {
	if l.geom == Hyperbolic {
		l.layoutEdgeHyperbolic(e, t)
	} else {
		l.layoutEdgeEuclidean(e, t)
	}
}

// =============================================================================
// Euclidean
// =============================================================================

func (l *layout[V]) startEuclidean(t int) {
	m := l.m
	a := &m.Angles[m.Triangles[t].Angles[0]]
	b := &m.Angles[a.Next]
	v1, v2, v3 := a.Vertex, a.NextVertex, a.PrevVertex
	l12 := m.Edges[a.NextEdge].Length
	l13 := m.Edges[a.PrevEdge].Length
	alpha := a.Value

	m.offerLocation(v1, r2.Vec{})
	m.offerLocation(v2, r2.Vec{X: l12})
	m.offerLocation(v3, r2.Scale(l13, polar(alpha)))
	l.offerDirection(a.NextEdge, v1, 0)
	l.offerDirection(a.PrevEdge, v1, alpha)
	l.offerDirection(a.Opposite, v2, math.Pi-b.Value)
}

// layoutEdgeEuclidean places the corner C of triangle t = ABC lying
// opposite the already placed edge AB.
func (l *layout[V]) layoutEdgeEuclidean(e, t int) {
	m := l.m
	c := &m.Angles[m.oppositeAngle(t, e)]
	a := &m.Angles[c.Next]
	b := &m.Angles[a.Next]
	va, vb, vc := a.Vertex, b.Vertex, c.Vertex

	dirAB := l.direction(e, va)
	dirAC := dirAB + a.Value
	dirBC := dirAB + math.Pi - b.Value
	locA, _ := m.Vertices[va].Location()
	locB, _ := m.Vertices[vb].Location()
	fromA := r2.Add(locA, r2.Scale(m.Edges[a.PrevEdge].Length, polar(dirAC)))
	fromB := r2.Add(locB, r2.Scale(m.Edges[b.NextEdge].Length, polar(dirBC)))

	m.offerLocation(vc, r2.Scale(0.5, r2.Add(fromA, fromB)))
	l.offerDirection(a.PrevEdge, va, dirAC)
	l.offerDirection(b.NextEdge, vb, dirBC)
}

// direction returns the direction of edge e leaving vertex from.
func (l *layout[V]) direction(e, from int) float64 {
	edge := &l.m.Edges[e]
	if from == edge.V1 {
		return edge.dir
	}
	return edge.dir + math.Pi
}

// offerDirection records the direction of e leaving vertex from unless a
// direction is already known.
func (l *layout[V]) offerDirection(e, from int, dir float64) {
	edge := &l.m.Edges[e]
	if edge.hasDir {
		return
	}
	if from != edge.V1 {
		dir += math.Pi
	}
	edge.dir = math.Remainder(dir, 2*math.Pi)
	edge.hasDir = true
}

func polar(theta float64) r2.Vec {
	return r2.Vec{X: math.Cos(theta), Y: math.Sin(theta)}
}

// =============================================================================
// Hyperbolic
// =============================================================================

func (l *layout[V]) startHyperbolic(t int) {
	m := l.m
	a := &m.Angles[m.Triangles[t].Angles[0]]
	v1, v2 := a.Vertex, a.NextVertex
	pos := l.offerHyp(a.NextEdge, hypIdentity(v1))
	m.offerLocation(v1, complexVec(pos.Point(v1, 0)))
	m.offerLocation(v2, complexVec(pos.Point(v2, m.Edges[a.NextEdge].Length)))
	l.layoutEdgeHyperbolic(a.NextEdge, t)
}

func (l *layout[V]) layoutEdgeHyperbolic(e, t int) {
	m := l.m
	c := &m.Angles[m.oppositeAngle(t, e)]
	a := &m.Angles[c.Next]
	b := &m.Angles[a.Next]
	lab := m.Edges[e].Length

	ab := m.Edges[e].hyp
	ca := l.offerHyp(a.PrevEdge, ab.Derive(a.Vertex, lab, a.Value))
	bc := l.offerHyp(b.NextEdge, ab.Derive(b.Vertex, lab, -b.Value))
	fromA := ca.Point(c.Vertex, m.Edges[a.PrevEdge].Length)
	fromB := bc.Point(c.Vertex, m.Edges[b.NextEdge].Length)
	m.offerLocation(c.Vertex, complexVec((fromA+fromB)/2))
}

// offerHyp stores pos on e unless a placement is already known and returns
// the stored placement.
func (l *layout[V]) offerHyp(e int, pos *HypEdgePos) *HypEdgePos {
	edge := &l.m.Edges[e]
	if edge.hyp == nil {
		edge.hyp = pos
	}
	return edge.hyp
}

func complexVec(z complex128) r2.Vec {
	return r2.Vec{X: real(z), Y: imag(z)}
}
