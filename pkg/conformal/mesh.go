package conformal

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/gagern/confoo/pkg/errors"
	"github.com/gagern/confoo/pkg/mesh"
)

// Fixed is the optimization index of a vertex whose scale factor is held
// constant.
const Fixed = -1

// none marks an absent triangle on a boundary edge.
const none = -1

// Kind classifies a vertex by the boundary status of its incident edges.
type Kind int

// Vertex kinds.
const (
	Unclassified Kind = iota
	Corner            // only boundary edges
	Boundary          // boundary and interior edges
	Interior          // only interior edges
)

func (k Kind) String() string {
	switch k {
	case Corner:
		return "corner"
	case Boundary:
		return "boundary"
	case Interior:
		return "interior"
	default:
		return "unclassified"
	}
}

// Vertex is one caller supplied mesh vertex.
type Vertex[V comparable] struct {
	Rep    V       // caller identifier
	Index  int     // slot in the optimization vector, or Fixed
	Target float64 // desired angle sum in radians
	U      float64 // log-scale factor
	Fixed  bool
	Kind   Kind

	location r2.Vec
	placed   bool
}

// Location returns the position assigned by layout, if any.
func (v *Vertex[V]) Location() (r2.Vec, bool) {
	return v.location, v.placed
}

// Edge is an unordered vertex pair with up to two incident triangles.
type Edge struct {
	V1, V2 int
	T1, T2 int // T2 is -1 on boundary edges

	OrigLength    float64
	OrigLogLength float64
	LogLength     float64 // OrigLogLength + U(V1) + U(V2)
	Length        float64

	dir    float64 // direction from V1 to V2, Euclidean layout
	hasDir bool
	hyp    *HypEdgePos
}

// IsBoundary reports whether only one triangle is incident to e.
func (e *Edge) IsBoundary() bool { return e.T2 == none }

// Angle is one corner of a triangle.
type Angle struct {
	Vertex     int
	NextVertex int
	PrevVertex int
	Opposite   int // edge NextVertex-PrevVertex
	NextEdge   int // edge Vertex-NextVertex
	PrevEdge   int // edge Vertex-PrevVertex
	Next       int // angle at NextVertex in the same triangle
	Triangle   int
	Value      float64 // radians in [0, π]
}

// Triangle holds the three corner angles in orientation order.
type Triangle struct {
	Angles [3]int

	visited bool
}

type vertexPair struct{ a, b int }

func pairOf(a, b int) vertexPair {
	if a > b {
		a, b = b, a
	}
	return vertexPair{a, b}
}

// InternalMesh owns all mesh entities of one transform.
type InternalMesh[V comparable] struct {
	Vertices  []Vertex[V]
	Edges     []Edge
	Angles    []Angle
	Triangles []Triangle

	vertexMap map[V]int
	edgeMap   map[vertexPair]int
}

// BuildMesh links the triangles of m into an [InternalMesh]. Edges
// shared by more than two triangles, shared edges traversed in the same
// direction by both triangles and degenerate input lengths are reported
// as INVALID_MESH errors.
func BuildMesh[V comparable](m mesh.MetricMesh[V]) (*InternalMesh[V], error) {
	im := &InternalMesh[V]{
		vertexMap: make(map[V]int),
		edgeMap:   make(map[vertexPair]int),
	}
	for tri := range m.Triangles() {
		if err := im.addTriangle(m, tri); err != nil {
			return nil, err
		}
	}
	if len(im.Triangles) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidMesh, "mesh has no triangles")
	}
	im.classify()
	im.InitLogLengths(Euclidean)
	return im, nil
}

func (im *InternalMesh[V]) intern(rep V) int {
	if i, ok := im.vertexMap[rep]; ok {
		return i
	}
	i := len(im.Vertices)
	im.Vertices = append(im.Vertices, Vertex[V]{Rep: rep, Index: Fixed})
	im.vertexMap[rep] = i
	return i
}

func (im *InternalMesh[V]) addTriangle(m mesh.MetricMesh[V], tri mesh.Triangle[V]) error {
	if tri[0] == tri[1] || tri[1] == tri[2] || tri[2] == tri[0] {
		return errors.New(errors.ErrCodeInvalidMesh, "degenerate triangle %v", tri)
	}
	t := len(im.Triangles)
	var vs, es [3]int
	for i := range 3 {
		vs[i] = im.intern(tri[i])
	}

	// Edge i lies opposite corner i.
	for i := range 3 {
		a, b := vs[(i+1)%3], vs[(i+2)%3]
		key := pairOf(a, b)
		k, ok := im.edgeMap[key]
		if !ok {
			l := m.EdgeLength(tri.Corner(i+1), tri.Corner(i+2))
			if !(l > 0) || math.IsInf(l, 0) {
				return errors.New(errors.ErrCodeInvalidMesh, "edge %v-%v has invalid length %v",
					tri.Corner(i+1), tri.Corner(i+2), l)
			}
			k = len(im.Edges)
			im.Edges = append(im.Edges, Edge{V1: a, V2: b, T1: t, T2: none, OrigLength: l})
			im.edgeMap[key] = k
			es[i] = k
			continue
		}
		e := &im.Edges[k]
		if e.T2 != none {
			return errors.New(errors.ErrCodeInvalidMesh, "more than two triangles share edge %v-%v",
				im.Vertices[a].Rep, im.Vertices[b].Rep)
		}
		if e.V1 == a {
			return errors.New(errors.ErrCodeInvalidMesh, "inconsistent triangle orientation at edge %v-%v",
				im.Vertices[a].Rep, im.Vertices[b].Rep)
		}
		e.T2 = t
		es[i] = k
	}

	base := len(im.Angles)
	for i := range 3 {
		im.Angles = append(im.Angles, Angle{
			Vertex:     vs[i],
			NextVertex: vs[(i+1)%3],
			PrevVertex: vs[(i+2)%3],
			Opposite:   es[i],
			PrevEdge:   es[(i+1)%3],
			NextEdge:   es[(i+2)%3],
			Next:       base + (i+1)%3,
			Triangle:   t,
			Value:      math.NaN(),
		})
	}
	im.Triangles = append(im.Triangles, Triangle{Angles: [3]int{base, base + 1, base + 2}})
	return nil
}

func (im *InternalMesh[V]) classify() {
	for i := range im.Edges {
		e := &im.Edges[i]
		for _, v := range [2]int{e.V1, e.V2} {
			k := &im.Vertices[v].Kind
			switch {
			case e.IsBoundary() && *k == Unclassified:
				*k = Corner
			case e.IsBoundary() && *k == Interior:
				*k = Boundary
			case !e.IsBoundary() && *k == Unclassified:
				*k = Interior
			case !e.IsBoundary() && *k == Corner:
				*k = Boundary
			}
		}
	}
}

// InitLogLengths derives the log-lengths λ from the input lengths as
// measured in geometry g: λ = 2·log(l) for Euclidean input and
// λ = 2·log(sinh(l/2)) for hyperbolic input. Scale factors are reset
// to zero.
func (im *InternalMesh[V]) InitLogLengths(g Geometry) {
	for i := range im.Vertices {
		im.Vertices[i].U = 0
	}
	for i := range im.Edges {
		e := &im.Edges[i]
		if g == Hyperbolic {
			e.OrigLogLength = 2 * math.Log(math.Sinh(e.OrigLength/2))
		} else {
			e.OrigLogLength = 2 * math.Log(e.OrigLength)
		}
		e.LogLength = e.OrigLogLength
		e.Length = e.OrigLength
	}
}

// Vertex returns the index of the vertex with the given caller identifier.
func (im *InternalMesh[V]) Vertex(rep V) (int, bool) {
	i, ok := im.vertexMap[rep]
	return i, ok
}

// Edge returns the index of the edge joining vertices a and b.
func (im *InternalMesh[V]) Edge(a, b int) (int, bool) {
	i, ok := im.edgeMap[pairOf(a, b)]
	return i, ok
}

// Corners returns the vertex indices of triangle t in orientation order.
func (im *InternalMesh[V]) Corners(t int) [3]int {
	var c [3]int
	for i, a := range im.Triangles[t].Angles {
		c[i] = im.Angles[a].Vertex
	}
	return c
}

// TriangleEdges returns the edge indices of triangle t, edge i lying
// opposite corner i.
func (im *InternalMesh[V]) TriangleEdges(t int) [3]int {
	var es [3]int
	for i, a := range im.Triangles[t].Angles {
		es[i] = im.Angles[a].Opposite
	}
	return es
}

// oppositeAngle returns the angle of triangle t lying opposite edge e.
func (im *InternalMesh[V]) oppositeAngle(t, e int) int {
	for _, a := range im.Triangles[t].Angles {
		if im.Angles[a].Opposite == e {
			return a
		}
	}
	panic("conformal: edge is not part of triangle")
}

// otherTriangle returns the triangle across edge e from t, or -1.
func (im *InternalMesh[V]) otherTriangle(e, t int) int {
	edge := &im.Edges[e]
	if edge.T1 == t {
		return edge.T2
	}
	return edge.T1
}

func (im *InternalMesh[V]) isBoundaryTriangle(t int) bool {
	for _, e := range im.TriangleEdges(t) {
		if im.Edges[e].IsBoundary() {
			return true
		}
	}
	return false
}

// KindCounts returns the number of vertices of each kind.
func (im *InternalMesh[V]) KindCounts() map[Kind]int {
	counts := make(map[Kind]int, 3)
	for i := range im.Vertices {
		counts[im.Vertices[i].Kind]++
	}
	return counts
}

// AngleSum returns the sum of the triangle angles incident to vertex v.
func (im *InternalMesh[V]) AngleSum(v int) float64 {
	var sum float64
	for i := range im.Angles {
		if im.Angles[i].Vertex == v {
			sum += im.Angles[i].Value
		}
	}
	return sum
}

// offerLocation sets the location of v unless it has already been set and
// returns the stored location.
func (im *InternalMesh[V]) offerLocation(v int, p r2.Vec) r2.Vec {
	vx := &im.Vertices[v]
	if !vx.placed {
		vx.location = p
		vx.placed = true
	}
	return vx.location
}
