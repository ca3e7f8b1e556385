package conformal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gagern/confoo/pkg/errors"
	"github.com/gagern/confoo/pkg/mesh"
	"github.com/gagern/confoo/pkg/opt"
)

// skewedEnergy returns the energy of the square with a displaced center
// under fixed boundary curvature, evaluated at a non-trivial argument.
func skewedEnergy(t *testing.T, g Geometry) (*Energy[int], []float64) {
	t.Helper()
	m, err := BuildMesh(mesh.Metric[int](squareMesh([2]float64{.6, .4})))
	require.NoError(t, err)
	m.InitLogLengths(g)
	require.NoError(t, FixedBoundaryCurvature(map[int]float64{1: 1.2, 3: 1.4}).Apply(m))
	e := NewEnergy(m, g, nil)
	u := make([]float64, e.Size())
	for i := range u {
		u[i] = 0.1 * math.Sin(float64(3*i+1))
	}
	e.SetArgument(u)
	return e, u
}

func TestEnergyGradientMatchesValue(t *testing.T) {
	for _, g := range []Geometry{Euclidean, Hyperbolic} {
		t.Run(g.String(), func(t *testing.T) {
			e, u := skewedEnergy(t, g)
			grad := make([]float64, e.Size())
			e.Gradient(grad)

			const h = 1e-5
			x := make([]float64, len(u))
			for i := range u {
				copy(x, u)
				x[i] = u[i] + h
				e.SetArgument(x)
				plus := e.Value()
				x[i] = u[i] - h
				e.SetArgument(x)
				minus := e.Value()
				assert.InDelta(t, grad[i], (plus-minus)/(2*h), 1e-7, "component %d", i)
			}
		})
	}
}

func TestEnergyHessianMatchesGradient(t *testing.T) {
	for _, g := range []Geometry{Euclidean, Hyperbolic} {
		t.Run(g.String(), func(t *testing.T) {
			e, u := skewedEnergy(t, g)
			n := e.Size()
			hess := opt.NewSymSparse(n)
			e.Hessian(hess)

			const h = 1e-6
			x := make([]float64, n)
			gp := make([]float64, n)
			gm := make([]float64, n)
			for j := range n {
				copy(x, u)
				x[j] = u[j] + h
				e.SetArgument(x)
				e.Gradient(gp)
				x[j] = u[j] - h
				e.SetArgument(x)
				e.Gradient(gm)
				for i := range n {
					// the Hessian is the derivative of the gradient
					assert.InDelta(t, hess.At(i, j), (gp[i]-gm[i])/(2*h), 1e-6, "entry (%d, %d)", i, j)
				}
			}
		})
	}
}

func TestEnergyValueChange(t *testing.T) {
	e, u := skewedEnergy(t, Euclidean)
	before := e.Value()
	x := make([]float64, len(u))
	for i := range u {
		x[i] = u[i] + 1e-3
	}
	e.SetArgument(x)
	change := e.ValueChange()
	assert.InDelta(t, e.Value()-before, change, 1e-12)

	// the reference stays at the last Value call
	assert.Equal(t, 0.0, e.ValueChange())
}

func TestEnergySetArgumentIsDeterministic(t *testing.T) {
	e, u := skewedEnergy(t, Hyperbolic)
	snapshot := func() ([]float64, []float64) {
		var lengths, angles []float64
		for _, edge := range e.m.Edges {
			lengths = append(lengths, edge.Length)
		}
		for _, a := range e.m.Angles {
			angles = append(angles, a.Value)
		}
		return lengths, angles
	}
	l1, a1 := snapshot()
	e.SetArgument(make([]float64, len(u)))
	e.SetArgument(u)
	l2, a2 := snapshot()
	assert.Equal(t, l1, l2)
	assert.Equal(t, a1, a2)
}

func TestAngleClamping(t *testing.T) {
	tests := []struct {
		name    string
		lengths map[[2]int]float64
		want    map[int]float64 // by vertex
	}{
		{
			name:    "opposite too long",
			lengths: map[[2]int]float64{{1, 2}: 1, {2, 3}: 3, {3, 1}: 1},
			want:    map[int]float64{1: math.Pi, 2: 0, 3: 0},
		},
		{
			name:    "other side too long",
			lengths: map[[2]int]float64{{1, 2}: 4, {2, 3}: 1, {3, 1}: 1.5},
			want:    map[int]float64{1: 0, 2: 0, 3: math.Pi},
		},
		{
			name:    "equilateral",
			lengths: map[[2]int]float64{{1, 2}: 1, {2, 3}: 1, {3, 1}: 1},
			want:    map[int]float64{1: math.Pi / 3, 2: math.Pi / 3, 3: math.Pi / 3},
		},
	}
	for _, tt := range tests {
		for _, g := range []Geometry{Euclidean, Hyperbolic} {
			t.Run(tt.name+"/"+g.String(), func(t *testing.T) {
				m, err := BuildMesh[int](&lengthMesh{tri: mesh.Triangle[int]{1, 2, 3}, lengths: tt.lengths})
				require.NoError(t, err)
				m.InitLogLengths(g)
				require.NoError(t, IsometricBoundary[int]().Apply(m))
				NewEnergy(m, g, nil)
				for _, a := range m.Angles {
					assert.GreaterOrEqual(t, a.Value, 0.0)
					assert.LessOrEqual(t, a.Value, math.Pi)
					if g == Euclidean {
						assert.InDelta(t, tt.want[m.Vertices[a.Vertex].Rep], a.Value, 1e-12)
					}
				}
			})
		}
	}
}

func TestEnergyScale(t *testing.T) {
	e, u := skewedEnergy(t, Euclidean)
	e.SetArgument(u)
	e.Scale()
	var sum float64
	for _, v := range e.m.Vertices {
		sum += v.U
	}
	assert.InDelta(t, 0, sum, 1e-15)
	for _, edge := range e.m.Edges {
		v1, v2 := e.m.Vertices[edge.V1], e.m.Vertices[edge.V2]
		assert.InDelta(t, edge.OrigLogLength+v1.U+v2.U, edge.LogLength, 1e-15)
	}

	h, hu := skewedEnergy(t, Hyperbolic)
	h.Scale()
	assert.Equal(t, hu, h.Argument())
}

func TestPreciseSum(t *testing.T) {
	assert.Equal(t, 0.0, preciseSum(nil))
	assert.Equal(t, 6.0, preciseSum([]float64{3, 1, 2}))
	assert.Equal(t, -6.0, preciseSum([]float64{-3, -1, -2}))
	assert.Equal(t, 1.0, preciseSum([]float64{1e16, 1, -1e16}))
	assert.Equal(t, 0.5, preciseSum([]float64{-1, 0.25, 1, 0.25}))
}

func TestGeometry(t *testing.T) {
	g, err := ParseGeometry("Hyperbolic")
	require.NoError(t, err)
	assert.Equal(t, Hyperbolic, g)
	g, err = ParseGeometry(" euclid ")
	require.NoError(t, err)
	assert.Equal(t, Euclidean, g)

	_, err = ParseGeometry("spherical")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidConfig))
	assert.True(t, errors.Is(Geometry(7).Validate(), errors.ErrCodeInvalidConfig))
	assert.NoError(t, Hyperbolic.Validate())

	assert.InDelta(t, 1.5, Hyperbolic.lengthFromLog(2*math.Log(math.Sinh(0.75))), 1e-14)
	assert.InDelta(t, 1.5, Euclidean.lengthFromLog(2*math.Log(1.5)), 1e-15)
}
