package conformal

import (
	"iter"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gagern/confoo/pkg/errors"
	"github.com/gagern/confoo/pkg/mesh"
)

// testMesh is a located mesh with integer vertex ids.
type testMesh struct {
	pts  map[int][2]float64
	tris []mesh.Triangle[int]
}

func (m *testMesh) Triangles() iter.Seq[mesh.Triangle[int]] {
	return func(yield func(mesh.Triangle[int]) bool) {
		for _, t := range m.tris {
			if !yield(t) {
				return
			}
		}
	}
}

func (m *testMesh) X(v int) float64 { return m.pts[v][0] }
func (m *testMesh) Y(v int) float64 { return m.pts[v][1] }
func (m *testMesh) Z(int) float64   { return 0 }

// lengthMesh assigns explicit lengths to the edges of one triangle.
type lengthMesh struct {
	tri     mesh.Triangle[int]
	lengths map[[2]int]float64
}

func (m *lengthMesh) Triangles() iter.Seq[mesh.Triangle[int]] {
	return func(yield func(mesh.Triangle[int]) bool) { yield(m.tri) }
}

func (m *lengthMesh) EdgeLength(a, b int) float64 {
	if l, ok := m.lengths[[2]int{a, b}]; ok {
		return l
	}
	return m.lengths[[2]int{b, a}]
}

func rightTriangle() mesh.MetricMesh[int] {
	return mesh.Metric[int](&testMesh{
		pts:  map[int][2]float64{1: {0, 0}, 2: {1, 0}, 3: {0, 1}},
		tris: []mesh.Triangle[int]{{1, 2, 3}},
	})
}

// squareMesh is the unit square split into eight triangles around the
// center vertex 9. Vertex 9 may be moved to make the problem less trivial.
func squareMesh(center [2]float64) *testMesh {
	return &testMesh{
		pts: map[int][2]float64{
			1: {0, 0}, 2: {1, 0}, 3: {1, 1}, 4: {0, 1},
			5: {.5, 0}, 6: {1, .5}, 7: {.5, 1}, 8: {0, .5},
			9: center,
		},
		tris: []mesh.Triangle[int]{
			{1, 5, 8}, {5, 9, 8}, {5, 2, 9}, {2, 6, 9},
			{6, 3, 7}, {6, 7, 9}, {9, 7, 4}, {8, 9, 4},
		},
	}
}

func square() mesh.MetricMesh[int] {
	return mesh.Metric[int](squareMesh([2]float64{.5, .5}))
}

func TestBuildMeshSquare(t *testing.T) {
	m, err := BuildMesh(square())
	require.NoError(t, err)

	assert.Len(t, m.Vertices, 9)
	assert.Len(t, m.Triangles, 8)
	assert.Len(t, m.Edges, 16)
	assert.Len(t, m.Angles, 24)

	var order []int
	for _, v := range m.Vertices {
		order = append(order, v.Rep)
	}
	assert.Equal(t, []int{1, 5, 8, 9, 2, 6, 3, 7, 4}, order)

	boundary := 0
	for i := range m.Edges {
		if m.Edges[i].IsBoundary() {
			boundary++
		}
	}
	assert.Equal(t, 8, boundary)

	kinds := map[int]Kind{
		1: Corner, 3: Corner, 9: Interior,
		2: Boundary, 4: Boundary, 5: Boundary, 6: Boundary, 7: Boundary, 8: Boundary,
	}
	for rep, want := range kinds {
		i, ok := m.Vertex(rep)
		require.True(t, ok)
		assert.Equal(t, want, m.Vertices[i].Kind, "vertex %d", rep)
	}
	assert.Equal(t, map[Kind]int{Corner: 2, Boundary: 6, Interior: 1}, m.KindCounts())
}

func TestBuildMeshLinks(t *testing.T) {
	m, err := BuildMesh(square())
	require.NoError(t, err)

	for i, a := range m.Angles {
		// the three angles of a triangle form a ring
		ring := m.Angles[m.Angles[a.Next].Next]
		assert.Equal(t, i, ring.Next, "angle %d", i)
		assert.Equal(t, a.NextVertex, m.Angles[a.Next].Vertex)
		assert.Equal(t, a.PrevVertex, ring.Vertex)

		check := func(e, v1, v2 int) {
			edge := m.Edges[e]
			assert.ElementsMatch(t, []int{v1, v2}, []int{edge.V1, edge.V2})
		}
		check(a.Opposite, a.NextVertex, a.PrevVertex)
		check(a.NextEdge, a.Vertex, a.NextVertex)
		check(a.PrevEdge, a.Vertex, a.PrevVertex)
	}
	for i := range m.Edges {
		e := m.Edges[i]
		edge, ok := m.Edge(e.V2, e.V1)
		require.True(t, ok)
		assert.Equal(t, i, edge)
		assert.InDelta(t, 2*math.Log(e.OrigLength), e.OrigLogLength, 1e-15)
	}
}

func TestBuildMeshErrors(t *testing.T) {
	pts := map[int][2]float64{1: {0, 0}, 2: {1, 0}, 3: {0, 1}, 4: {1, 1}, 5: {2, 2}}
	tests := []struct {
		name string
		tris []mesh.Triangle[int]
		want string
	}{
		{"empty", nil, "no triangles"},
		{"degenerate", []mesh.Triangle[int]{{1, 1, 2}}, "degenerate"},
		{"orientation", []mesh.Triangle[int]{{1, 2, 3}, {2, 3, 4}}, "orientation"},
		{"three triangles", []mesh.Triangle[int]{{1, 2, 3}, {2, 1, 4}, {2, 1, 5}}, "more than two"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildMesh(mesh.Metric[int](&testMesh{pts: pts, tris: tt.tris}))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidMesh))
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("zero length", func(t *testing.T) {
		_, err := BuildMesh(mesh.Metric[int](&testMesh{
			pts:  map[int][2]float64{1: {0, 0}, 2: {0, 0}, 3: {0, 1}},
			tris: []mesh.Triangle[int]{{1, 2, 3}},
		}))
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidMesh))
	})
}

func TestCentralTriangle(t *testing.T) {
	m, err := BuildMesh(square())
	require.NoError(t, err)
	assert.Equal(t, []int{6, 7, 9}, cornerReps(m, m.CentralTriangle()))

	single, err := BuildMesh(rightTriangle())
	require.NoError(t, err)
	assert.Equal(t, 0, single.CentralTriangle())
	for _, tri := range m.Triangles {
		assert.False(t, tri.visited)
	}
}

func cornerReps(m *InternalMesh[int], t int) []int {
	var reps []int
	for _, v := range m.Corners(t) {
		reps = append(reps, m.Vertices[v].Rep)
	}
	return reps
}

func TestBoundaryConditions(t *testing.T) {
	t.Run("fixed curvature", func(t *testing.T) {
		m, err := BuildMesh(square())
		require.NoError(t, err)
		b := FixedBoundaryCurvature(map[int]float64{2: math.Pi / 2})
		require.NoError(t, b.Apply(m))
		assert.False(t, b.FixedScale())

		want := map[int]float64{1: math.Pi / 2, 2: math.Pi / 2, 5: math.Pi, 9: 2 * math.Pi}
		for rep, target := range want {
			i, _ := m.Vertex(rep)
			assert.Equal(t, target, m.Vertices[i].Target, "vertex %d", rep)
		}
		var fixed []int
		for _, v := range m.Vertices {
			if v.Fixed {
				fixed = append(fixed, v.Rep)
			}
		}
		assert.Equal(t, []int{2}, fixed)
	})

	t.Run("isometric", func(t *testing.T) {
		m, err := BuildMesh(square())
		require.NoError(t, err)
		b := IsometricBoundary[int]()
		require.NoError(t, b.Apply(m))
		assert.True(t, b.FixedScale())
		for _, v := range m.Vertices {
			assert.Equal(t, v.Rep != 9, v.Fixed, "vertex %d", v.Rep)
		}
		i, _ := m.Vertex(9)
		assert.Equal(t, 2*math.Pi, m.Vertices[i].Target)
	})

	t.Run("unknown vertex", func(t *testing.T) {
		m, err := BuildMesh(square())
		require.NoError(t, err)
		err = FixedBoundaryCurvature(map[int]float64{42: 1}).Apply(m)
		assert.True(t, errors.Is(err, errors.ErrCodeNoSuchVertex))
	})

	t.Run("invalid angle", func(t *testing.T) {
		err := FixedBoundaryCurvature(map[int]float64{1: -1}).Validate()
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
		err = BoundaryCondition[int]{}.Validate()
		assert.True(t, errors.Is(err, errors.ErrCodeMisuse))
	})
}
