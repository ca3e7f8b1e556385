package mesh

import (
	"iter"
	"math"
)

// Triangle is an oriented triple of corner identifiers.
type Triangle[V comparable] [3]V

// Corner returns the i-th corner, with i taken modulo 3.
func (t Triangle[V]) Corner(i int) V {
	return t[((i%3)+3)%3]
}

// Rotate returns the triangle with its corners shifted cyclically by n
// positions. The orientation is preserved.
func (t Triangle[V]) Rotate(n int) Triangle[V] {
	return Triangle[V]{t.Corner(n), t.Corner(n + 1), t.Corner(n + 2)}
}

// SameOrientedAs reports whether o lists the same corners in the same
// cyclic order as t.
func (t Triangle[V]) SameOrientedAs(o Triangle[V]) bool {
	for r := range 3 {
		if t.Rotate(r) == o {
			return true
		}
	}
	return false
}

// Mesh is a combinatorial triangle mesh.
type Mesh[V comparable] interface {
	// Triangles enumerates all triangles of the mesh.
	Triangles() iter.Seq[Triangle[V]]
}

// MetricMesh is a mesh with a length assigned to every edge.
type MetricMesh[V comparable] interface {
	Mesh[V]

	// EdgeLength returns the length of the edge between two adjacent corners.
	EdgeLength(a, b V) float64
}

// LocatedMesh is a mesh with coordinates for every vertex.
type LocatedMesh[V comparable] interface {
	Mesh[V]

	X(v V) float64
	Y(v V) float64
	Z(v V) float64
}

// Distance returns the Euclidean distance between two vertices of a
// located mesh.
func Distance[V comparable](m LocatedMesh[V], a, b V) float64 {
	dx := m.X(a) - m.X(b)
	dy := m.Y(a) - m.Y(b)
	dz := m.Z(a) - m.Z(b)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Metric adapts a located mesh into a metric mesh measuring Euclidean
// distances between vertex coordinates.
func Metric[V comparable](m LocatedMesh[V]) MetricMesh[V] {
	return located[V]{m}
}

type located[V comparable] struct {
	LocatedMesh[V]
}

func (l located[V]) EdgeLength(a, b V) float64 {
	return Distance(l.LocatedMesh, a, b)
}

// Stats summarises the combinatorics of a mesh.
type Stats struct {
	Vertices       int `json:"vertices"`
	Triangles      int `json:"triangles"`
	Edges          int `json:"edges"`
	BoundaryEdges  int `json:"boundary_edges"`
	BoundaryLoops  int `json:"boundary_loops"`
	EulerCharacter int `json:"euler_characteristic"`
}

// Count computes [Stats] for any mesh by walking its triangles once.
// Boundary loops are counted by following directed boundary edges.
func Count[V comparable](m Mesh[V]) Stats {
	type dirEdge struct{ a, b V }
	var s Stats
	vertices := make(map[V]struct{})
	directed := make(map[dirEdge]struct{})
	for t := range m.Triangles() {
		s.Triangles++
		for i := range 3 {
			vertices[t[i]] = struct{}{}
			directed[dirEdge{t.Corner(i), t.Corner(i + 1)}] = struct{}{}
		}
	}
	next := make(map[V]V)
	for e := range directed {
		if _, ok := directed[dirEdge{e.b, e.a}]; ok {
			s.Edges++ // counted twice, halved below
			continue
		}
		s.BoundaryEdges++
		next[e.a] = e.b
	}
	s.Edges = s.Edges/2 + s.BoundaryEdges
	s.Vertices = len(vertices)
	s.EulerCharacter = s.Vertices - s.Edges + s.Triangles

	seen := make(map[V]bool, len(next))
	for start := range next {
		if seen[start] {
			continue
		}
		s.BoundaryLoops++
		for v := start; !seen[v]; {
			seen[v] = true
			n, ok := next[v]
			if !ok {
				break
			}
			v = n
		}
	}
	return s
}
