package conformal

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/gagern/confoo/pkg/errors"
	"github.com/gagern/confoo/pkg/mesh"
	"github.com/gagern/confoo/pkg/opt"
)

const layoutTolerance = 1e-12

func deg(d float64) float64 { return d * math.Pi / 180 }

// measuredAngle returns the angle at corner a of the located triangle abc.
func measuredAngle(r *ResultMesh[int], a, b, c int) float64 {
	pa, _ := r.Location(a)
	pb, _ := r.Location(b)
	pc, _ := r.Location(c)
	u, v := r2.Sub(pb, pa), r2.Sub(pc, pa)
	return math.Atan2(r2.Cross(u, v), r2.Dot(u, v))
}

// assertConsistentLayout checks every edge of r against its optimized length.
func assertConsistentLayout(t *testing.T, r *ResultMesh[int]) {
	t.Helper()
	for tri := range r.Triangles() {
		for i := range 3 {
			a, b := tri.Corner(i), tri.Corner(i+1)
			pa, ok := r.Location(a)
			require.True(t, ok, "vertex %d not placed", a)
			pb, _ := r.Location(b)
			var d float64
			if r.Geometry() == Hyperbolic {
				d = hypDistance(complex(pa.X, pa.Y), complex(pb.X, pb.Y))
			} else {
				d = r2.Norm(r2.Sub(pa, pb))
			}
			assert.InDelta(t, r.EdgeLength(a, b), d, layoutTolerance, "edge %d-%d", a, b)
		}
	}
}

func transform(t *testing.T, c *Conformal[int]) *ResultMesh[int] {
	t.Helper()
	r, err := c.Transform(context.Background())
	require.NoError(t, err)
	return r
}

func TestTransformEquilateral(t *testing.T) {
	c, err := New(rightTriangle())
	require.NoError(t, err)
	require.NoError(t, c.FixedBoundaryCurvature(map[int]float64{1: deg(60), 2: deg(60), 3: deg(60)}))
	r := transform(t, c)

	assert.InDelta(t, deg(60), measuredAngle(r, 1, 2, 3), deg(0.5))
	assert.InDelta(t, deg(60), measuredAngle(r, 2, 3, 1), deg(0.5))
	assert.InDelta(t, deg(60), measuredAngle(r, 3, 1, 2), deg(0.5))

	assert.Equal(t, 0.0, r.X(1))
	assert.Equal(t, 0.0, r.Y(1))
	assert.Greater(t, r.X(2), 0.0)
	assert.Equal(t, 0.0, r.Y(2))
	assert.Greater(t, r.Y(3), 0.0)
	assert.Equal(t, 0.0, r.Z(3))

	assert.InDelta(t, 0, r.U(1)+r.U(2)+r.U(3), 1e-14)
	assert.Equal(t, opt.ExitGradient, r.Optimization().Exit)
	assertConsistentLayout(t, r)
}

func TestTransformSquareCorners(t *testing.T) {
	for _, center := range [][2]float64{{.5, .5}, {.6, .4}, {.3, .35}} {
		c, err := New(mesh.Metric[int](squareMesh(center)))
		require.NoError(t, err)
		right := deg(90)
		require.NoError(t, c.FixedBoundaryCurvature(map[int]float64{1: right, 2: right, 3: right, 4: right}))
		r := transform(t, c)

		assertConsistentLayout(t, r)
		corners := []int{1, 2, 3, 4}
		for i, v := range corners {
			next, prev := corners[(i+1)%4], corners[(i+3)%4]
			assert.InDelta(t, right, measuredAngle(r, v, next, prev), 1e-9, "corner %d", v)
		}

		// midpoints lie on the sides, strictly between the corners
		for _, s := range []struct{ mid, a, b int }{{5, 1, 2}, {6, 2, 3}, {7, 3, 4}, {8, 4, 1}} {
			pa, _ := r.Location(s.a)
			pb, _ := r.Location(s.b)
			pm, _ := r.Location(s.mid)
			side := r2.Sub(pb, pa)
			rel := r2.Sub(pm, pa)
			assert.InDelta(t, 0, r2.Cross(side, rel)/r2.Norm(side), 1e-9, "midpoint %d off side", s.mid)
			f := r2.Dot(side, rel) / r2.Dot(side, side)
			assert.Greater(t, f, 0.0)
			assert.Less(t, f, 1.0)
		}

		// the interior vertex is on the inner side of every side
		p9, _ := r.Location(9)
		for i, v := range corners {
			pa, _ := r.Location(v)
			pb, _ := r.Location(corners[(i+1)%4])
			assert.Greater(t, r2.Cross(r2.Sub(pb, pa), r2.Sub(p9, pa)), 0.0)
		}

		var sum float64
		for v := range r.Vertices() {
			sum += r.U(v)
		}
		assert.InDelta(t, 0, sum, 1e-12)

		// the unit square is already a solution
		if center == [2]float64{.5, .5} {
			assert.InDelta(t, 1, r2.Norm(r2.Sub(mustLocation(r, 2), mustLocation(r, 1))), 1e-9)
		}
	}
}

func mustLocation(r *ResultMesh[int], v int) r2.Vec {
	p, _ := r.Location(v)
	return p
}

func TestTransformIsometric(t *testing.T) {
	in := mesh.Metric[int](squareMesh([2]float64{.6, .4}))
	c, err := New(in)
	require.NoError(t, err)
	c.IsometricBoundaryCondition()
	r := transform(t, c)

	for tri := range in.Triangles() {
		for i := range 3 {
			a, b := tri.Corner(i), tri.Corner(i+1)
			assert.InDelta(t, in.EdgeLength(a, b), r.EdgeLength(a, b), 1e-12, "edge %d-%d", a, b)
		}
	}
	assert.Equal(t, opt.ExitGradient, r.Optimization().Exit)
	assert.Equal(t, 0, r.Optimization().Iterations)
	for v := 1; v <= 8; v++ {
		assert.Equal(t, 0.0, r.U(v), "boundary vertex %d must keep its scale", v)
	}
	assertConsistentLayout(t, r)
	assert.True(t, math.IsNaN(r.EdgeLength(1, 3)))
	assert.True(t, math.IsNaN(r.X(42)))
}

func TestTransformHyperbolic(t *testing.T) {
	c, err := New(mesh.Metric[int](squareMesh([2]float64{.6, .4})))
	require.NoError(t, err)
	require.NoError(t, c.SetInputGeometry(Hyperbolic))
	require.NoError(t, c.SetOutputGeometry(Hyperbolic))
	require.NoError(t, c.SetAngleErrorBound(1e-12))
	c.IsometricBoundaryCondition()
	r := transform(t, c)

	assert.Equal(t, Hyperbolic, r.Geometry())
	assert.Less(t, r.U(9), 0.0, "hyperbolic triangles are thinner, the center must shrink")
	for _, v := range []int{1, 2, 5, 8} {
		assert.Equal(t, 0.0, r.U(v))
	}
	assertConsistentLayout(t, r)

	m := c.Mesh()
	i, _ := m.Vertex(9)
	assert.InDelta(t, 2*math.Pi, m.AngleSum(i), 1e-12)
	for v := range r.Vertices() {
		p, _ := r.Location(v)
		assert.Less(t, r2.Norm(p), 1.0, "vertex %d outside the disk", v)
	}
}

func TestTransformHyperbolicFromEuclidean(t *testing.T) {
	c, err := New(mesh.Metric[int](squareMesh([2]float64{.5, .5})))
	require.NoError(t, err)
	require.NoError(t, c.SetOutputGeometry(Hyperbolic))
	require.NoError(t, c.SetLayoutStartTriangle(9, 5, 2))
	c.IsometricBoundaryCondition()
	r := transform(t, c)

	assertConsistentLayout(t, r)
	p5, _ := r.Location(5)
	assert.Equal(t, r2.Vec{}, p5, "layout starts at the first corner of the chosen triangle")
}

func TestTransformStartTriangle(t *testing.T) {
	c, err := New(square())
	require.NoError(t, err)
	require.NoError(t, c.SetLayoutStartTriangle(7, 9, 6))
	c.IsometricBoundaryCondition()
	r := transform(t, c)

	assert.Equal(t, r2.Vec{}, mustLocation(r, 6))
	assert.InDelta(t, 0, r.Y(7), 1e-15)
	assert.Greater(t, r.X(7), 0.0)
	assertConsistentLayout(t, r)

	err = c.SetLayoutStartTriangle(6, 9, 7)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
	assert.Contains(t, err.Error(), "not a triangle of the mesh")
}

func TestTransformMisuse(t *testing.T) {
	t.Run("no boundary condition", func(t *testing.T) {
		c, err := New(rightTriangle())
		require.NoError(t, err)
		_, err = c.Transform(context.Background())
		assert.True(t, errors.Is(err, errors.ErrCodeMisuse))
	})

	t.Run("second transform", func(t *testing.T) {
		c, err := New(rightTriangle())
		require.NoError(t, err)
		c.IsometricBoundaryCondition()
		transform(t, c)
		_, err = c.Transform(context.Background())
		assert.True(t, errors.Is(err, errors.ErrCodeMisuse))
	})

	t.Run("unknown vertex", func(t *testing.T) {
		c, err := New(rightTriangle())
		require.NoError(t, err)
		require.NoError(t, c.FixedBoundaryCurvature(map[int]float64{7: 1}))
		_, err = c.Transform(context.Background())
		assert.True(t, errors.Is(err, errors.ErrCodeNoSuchVertex))
	})

	t.Run("configuration", func(t *testing.T) {
		c, err := New(rightTriangle())
		require.NoError(t, err)
		assert.True(t, errors.Is(c.SetInputGeometry(0), errors.ErrCodeInvalidConfig))
		assert.True(t, errors.Is(c.SetOutputGeometry(3), errors.ErrCodeInvalidConfig))
		assert.True(t, errors.Is(c.SetAngleErrorBound(-1), errors.ErrCodeInvalidConfig))
		assert.True(t, errors.Is(c.SetMaxIterations(0), errors.ErrCodeInvalidConfig))
		assert.True(t, errors.Is(c.SetLineSearch(0, 0.5, 0.1), errors.ErrCodeInvalidConfig))
		assert.True(t, errors.Is(c.FixedBoundaryCurvature(map[int]float64{1: math.NaN()}), errors.ErrCodeInvalidInput))
	})

	t.Run("canceled", func(t *testing.T) {
		c, err := New(square())
		require.NoError(t, err)
		require.NoError(t, c.FixedBoundaryCurvature(map[int]float64{1: deg(80)}))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = c.Transform(ctx)
		assert.True(t, errors.Is(err, errors.ErrCodeCanceled))
	})
}

func TestTriangleInequalityCheck(t *testing.T) {
	c, err := New(rightTriangle())
	require.NoError(t, err)
	m := c.Mesh()
	for i := range m.Edges {
		m.Edges[i].Length = 1
	}
	require.NoError(t, c.checkTriangleInequality())

	v2, _ := m.Vertex(2)
	v3, _ := m.Vertex(3)
	e, _ := m.Edge(v2, v3)
	m.Edges[e].Length = 3
	err = c.checkTriangleInequality()
	var tie *TriangleInequalityError[int]
	require.ErrorAs(t, err, &tie)
	assert.Equal(t, TriangleInequalityError[int]{Vertex: 1, Next: 2, Prev: 3}, *tie)
	assert.True(t, errors.Is(err, errors.ErrCodeTriangleInequality))
}

func TestIterationLimit(t *testing.T) {
	c, err := New(mesh.Metric[int](squareMesh([2]float64{.6, .4})))
	require.NoError(t, err)
	require.NoError(t, c.FixedBoundaryCurvature(map[int]float64{1: deg(80), 2: deg(90), 3: deg(100), 4: deg(90)}))
	require.NoError(t, c.SetMaxIterations(1))
	r := transform(t, c)
	assert.Equal(t, opt.ExitIterations, r.Optimization().Exit)
	assert.Equal(t, 1, r.Optimization().Iterations)
}

func TestSolverFailure(t *testing.T) {
	c, err := New(mesh.Metric[int](squareMesh([2]float64{.6, .4})))
	require.NoError(t, err)
	require.NoError(t, c.FixedBoundaryCurvature(map[int]float64{1: deg(80), 2: deg(90), 3: deg(100), 4: deg(90)}))
	require.NoError(t, c.SetSolverOptions(opt.CGOptions{MaxIterations: 1}))

	_, err = c.Transform(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeNotConverged), "code = %v", errors.GetCode(err))
	assert.Contains(t, err.Error(), "could not find optimal solution")
	var nc *opt.NotConvergedError
	require.ErrorAs(t, err, &nc)
	assert.Equal(t, opt.ReasonIterations, nc.Reason)
	assert.Equal(t, 1, nc.Iterations)
}

func TestSetSolverOptions(t *testing.T) {
	c, err := New(rightTriangle())
	require.NoError(t, err)
	assert.NoError(t, c.SetSolverOptions(opt.CGOptions{}))
	assert.True(t, errors.Is(c.SetSolverOptions(opt.CGOptions{Tolerance: -1}), errors.ErrCodeInvalidConfig))
	assert.True(t, errors.Is(c.SetSolverOptions(opt.CGOptions{MaxIterations: -1}), errors.ErrCodeInvalidConfig))
}
