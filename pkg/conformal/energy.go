package conformal

import (
	"io"
	"math"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/gagern/confoo/pkg/clausen"
	"github.com/gagern/confoo/pkg/errors"
	"github.com/gagern/confoo/pkg/opt"
)

// Geometry selects how edge lengths are measured.
type Geometry int

// Supported geometries.
const (
	Euclidean Geometry = iota + 1
	Hyperbolic
)

func (g Geometry) String() string {
	switch g {
	case Euclidean:
		return "euclidean"
	case Hyperbolic:
		return "hyperbolic"
	default:
		return "unknown"
	}
}

// Validate returns an INVALID_CONFIG error for unsupported values.
func (g Geometry) Validate() error {
	if g != Euclidean && g != Hyperbolic {
		return errors.New(errors.ErrCodeInvalidConfig, "unsupported geometry %d", int(g))
	}
	return nil
}

// ParseGeometry accepts "euclidean" or "hyperbolic" (and the prefixes
// "euclid" and "hyp").
func ParseGeometry(s string) (Geometry, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "euclidean", "euclid", "e":
		return Euclidean, nil
	case "hyperbolic", "hyp", "h":
		return Hyperbolic, nil
	}
	return 0, errors.New(errors.ErrCodeInvalidConfig, "unknown geometry %q (want euclidean or hyperbolic)", s)
}

// lengthFromLog maps a log-length λ to a length.
func (g Geometry) lengthFromLog(lambda float64) float64 {
	if g == Hyperbolic {
		return 2 * math.Asinh(math.Exp(lambda/2))
	}
	return math.Exp(lambda / 2)
}

// angleFactor is applied to length combinations in the half-angle formula.
func (g Geometry) angleFactor(x float64) float64 {
	if g == Hyperbolic {
		return math.Sinh(x / 2)
	}
	return x
}

// Energy is the convex functional whose critical point realizes the target
// angle sums. It implements [opt.Functional] over the scale factors of the
// non-fixed vertices.
type Energy[V comparable] struct {
	m         *InternalMesh[V]
	geom      Geometry
	size      int
	lastTerms []float64
}

var _ opt.Functional = (*Energy[int])(nil)

// NewEnergy assigns optimization indices to the non-fixed vertices of m and
// returns the energy for geometry g. Lengths and angles are computed for
// the current scale factors.
func NewEnergy[V comparable](m *InternalMesh[V], g Geometry, logger *log.Logger) *Energy[V] {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	e := &Energy[V]{m: m, geom: g}
	for i := range m.Vertices {
		v := &m.Vertices[i]
		if v.Fixed {
			v.Index = Fixed
		} else {
			v.Index = e.size
			e.size++
		}
		logger.Debug("vertex",
			"id", v.Rep,
			"index", v.Index,
			"kind", v.Kind,
			"target", v.Target*180/math.Pi)
	}
	e.update()
	return e
}

// Geometry returns the geometry the energy measures in.
func (e *Energy[V]) Geometry() Geometry { return e.geom }

// Size returns the number of non-fixed vertices.
func (e *Energy[V]) Size() int { return e.size }

// Argument returns the scale factors of the non-fixed vertices.
func (e *Energy[V]) Argument() []float64 {
	u := make([]float64, e.size)
	for i := range e.m.Vertices {
		if v := &e.m.Vertices[i]; v.Index >= 0 {
			u[v.Index] = v.U
		}
	}
	return u
}

// SetArgument writes u to the non-fixed vertices and recomputes all
// lengths and angles.
func (e *Energy[V]) SetArgument(u []float64) {
	for i := range e.m.Vertices {
		if v := &e.m.Vertices[i]; v.Index >= 0 {
			v.U = u[v.Index]
		}
	}
	e.update()
}

func (e *Energy[V]) update() {
	for i := range e.m.Edges {
		e.updateEdge(&e.m.Edges[i])
	}
	for i := range e.m.Angles {
		e.updateAngle(&e.m.Angles[i])
	}
}

func (e *Energy[V]) updateEdge(edge *Edge) {
	edge.LogLength = edge.OrigLogLength + e.m.Vertices[edge.V1].U + e.m.Vertices[edge.V2].U
	edge.Length = e.geom.lengthFromLog(edge.LogLength)
}

// updateAngle applies the half-angle formula. Lengths violating the
// triangle inequality yield 0 or π.
func (e *Energy[V]) updateAngle(a *Angle) {
	lo := e.m.Edges[a.Opposite].Length
	ln := e.m.Edges[a.NextEdge].Length
	lp := e.m.Edges[a.PrevEdge].Length
	if lo >= ln+lp {
		a.Value = math.Pi
		return
	}
	if ln >= lo+lp || lp >= lo+ln {
		a.Value = 0
		return
	}
	f := e.geom.angleFactor
	nom := f(ln+lo-lp) * f(lo+lp-ln)
	denom := f(lp+ln-lo) * f(lo+lp+ln)
	if nom <= denom {
		a.Value = 2 * math.Atan(math.Sqrt(nom/denom))
	} else {
		a.Value = math.Pi - 2*math.Atan(math.Sqrt(denom/nom))
	}
}

// Value returns the energy at the current argument and remembers its
// terms as the reference for [Energy.ValueChange].
func (e *Energy[V]) Value() float64 {
	terms := e.terms()
	sum := preciseSum(terms)
	e.lastTerms = terms
	return sum
}

// ValueChange returns the energy difference between the current argument
// and the one of the last [Energy.Value] call. Sorted terms are
// subtracted pairwise before summing, which cancels their shared
// magnitude.
func (e *Energy[V]) ValueChange() float64 {
	if e.lastTerms == nil {
		panic("conformal: ValueChange called before Value")
	}
	terms := e.terms()
	slices.Sort(terms)
	for i := range terms {
		terms[i] -= e.lastTerms[i]
	}
	return preciseSum(terms)
}

// Gradient stores target minus angle sum for every non-fixed vertex in g.
func (e *Energy[V]) Gradient(g []float64) {
	clear(g)
	for i := range e.m.Vertices {
		if v := &e.m.Vertices[i]; v.Index >= 0 {
			g[v.Index] += v.Target
		}
	}
	for i := range e.m.Angles {
		a := &e.m.Angles[i]
		if idx := e.m.Vertices[a.Vertex].Index; idx >= 0 {
			g[idx] -= a.Value
		}
	}
}

// Hessian adds the second derivatives to h, which must be zero on entry.
// Angles of exactly 0 or π contribute nothing.
func (e *Energy[V]) Hessian(h *opt.SymSparse) {
	for k := range e.m.Angles {
		a := &e.m.Angles[k]
		alpha := a.Value
		if alpha <= 0 || alpha >= math.Pi {
			continue
		}
		var diag, off float64
		if e.geom == Hyperbolic {
			beta := e.beta(a)
			cot := math.Cos(beta) / math.Sin(beta) / 2
			t := math.Tanh(e.m.Edges[a.Opposite].Length / 2)
			diag = cot * (t*t + 1)
			off = cot * (t*t - 1)
		} else {
			cot := math.Cos(alpha) / math.Sin(alpha) / 2
			diag, off = cot, -cot
		}
		i := e.m.Vertices[a.NextVertex].Index
		j := e.m.Vertices[a.PrevVertex].Index
		if i >= 0 {
			h.Add(i, i, diag)
		}
		if j >= 0 {
			h.Add(j, j, diag)
			if i >= 0 {
				h.Add(i, j, off)
			}
		}
	}
}

// beta is the angle of the ideal triangle construction opposite the same
// edge as a: (π + α - α_next - α_prev) / 2.
func (e *Energy[V]) beta(a *Angle) float64 {
	next := &e.m.Angles[a.Next]
	prev := &e.m.Angles[next.Next]
	return (math.Pi + a.Value - next.Value - prev.Value) / 2
}

// Scale shifts all scale factors by a common constant so that they sum
// to zero, then recomputes lengths and angles. Hyperbolic lengths have an
// absolute scale, so Scale does nothing for them.
func (e *Energy[V]) Scale() {
	if e.geom == Hyperbolic || len(e.m.Vertices) == 0 {
		return
	}
	var sum float64
	for i := range e.m.Vertices {
		sum += e.m.Vertices[i].U
	}
	diff := -sum / float64(len(e.m.Vertices))
	for i := range e.m.Vertices {
		e.m.Vertices[i].U += diff
	}
	e.update()
}

func (e *Energy[V]) terms() []float64 {
	m := e.m
	var terms []float64
	if e.geom == Hyperbolic {
		terms = make([]float64, 0, 4*len(m.Angles)+len(m.Triangles)+len(m.Vertices))
		for k := range m.Angles {
			a := &m.Angles[k]
			beta := e.beta(a)
			terms = append(terms,
				-math.Pi*m.Vertices[a.Vertex].U,
				beta*m.Edges[a.Opposite].LogLength,
				clausen.Cl2(2*a.Value)/2,
				clausen.Cl2(2*beta)/2)
		}
		for t := range m.Triangles {
			sum := math.Pi
			for _, a := range m.Triangles[t].Angles {
				sum -= m.Angles[a].Value
			}
			terms = append(terms, clausen.Cl2(sum)/2)
		}
	} else {
		terms = make([]float64, 0, 3*len(m.Angles)+len(m.Vertices))
		for k := range m.Angles {
			a := &m.Angles[k]
			terms = append(terms,
				a.Value*m.Edges[a.Opposite].LogLength,
				clausen.Cl2(2*a.Value),
				-math.Pi*m.Vertices[a.Vertex].U)
		}
	}
	for i := range m.Vertices {
		terms = append(terms, m.Vertices[i].Target*m.Vertices[i].U)
	}
	return terms
}

// preciseSum sorts terms in place and adds them so that the running total
// stays small: same-sign terms are added smallest magnitude first, mixed
// terms are taken from the end whose sign opposes the running total.
func preciseSum(terms []float64) float64 {
	slices.Sort(terms)
	n := len(terms)
	if n == 0 {
		return 0
	}
	var sum float64
	switch {
	case terms[0] >= 0:
		for _, t := range terms {
			sum += t
		}
	case terms[n-1] <= 0:
		for i := n - 1; i >= 0; i-- {
			sum += terms[i]
		}
	default:
		for left, right := 0, n; left < right; {
			if sum >= 0 {
				sum += terms[left]
				left++
			} else {
				right--
				sum += terms[right]
			}
		}
	}
	return sum
}
