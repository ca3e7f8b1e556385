package conformal

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gagern/confoo/pkg/errors"
	"github.com/gagern/confoo/pkg/mesh"
	"github.com/gagern/confoo/pkg/observability"
	"github.com/gagern/confoo/pkg/opt"
)

// traceLevel sits below debug and carries per-edge output.
const traceLevel = log.DebugLevel - 1

// Transform defaults.
const (
	DefaultAngleErrorBound = 2e-14 // radians, gradient exit threshold
	DefaultMaxIterations   = 128
)

// TriangleInequalityError reports a converged triangle whose lengths do not
// form a triangle. Vertex is the corner whose opposite edge is too long.
type TriangleInequalityError[V comparable] struct {
	Vertex, Next, Prev V
}

func (e *TriangleInequalityError[V]) Error() string {
	return fmt.Sprintf("triangle inequality violated in triangle %v, %v, %v", e.Vertex, e.Next, e.Prev)
}

// ErrorCode classifies the error for package errors.
func (e *TriangleInequalityError[V]) ErrorCode() errors.Code {
	return errors.ErrCodeTriangleInequality
}

// Conformal computes a conformal re-metrization of one mesh. Configure it
// with the setters, then call [Conformal.Transform] once.
type Conformal[V comparable] struct {
	mu sync.Mutex

	m        *InternalMesh[V]
	boundary *BoundaryCondition[V]
	inGeom   Geometry
	outGeom  Geometry
	bound    float64
	maxIter  int
	search   [3]float64 // alpha, beta, gamma
	solver   opt.CGOptions
	start    int
	logger   *log.Logger
	used     bool
	pending  error
}

// New builds the internal mesh of m. Malformed meshes are reported here.
func New[V comparable](m mesh.MetricMesh[V]) (*Conformal[V], error) {
	im, err := BuildMesh(m)
	if err != nil {
		return nil, err
	}
	return &Conformal[V]{
		m:       im,
		inGeom:  Euclidean,
		outGeom: Euclidean,
		bound:   DefaultAngleErrorBound,
		maxIter: DefaultMaxIterations,
		search:  [3]float64{opt.DefaultAlpha, opt.DefaultBeta, opt.DefaultGamma},
		start:   none,
		logger:  log.New(io.Discard),
	}, nil
}

// Mesh returns the internal mesh. It is modified in place by Transform.
func (c *Conformal[V]) Mesh() *InternalMesh[V] { return c.m }

// SetAngleErrorBound sets the largest acceptable deviation, in radians,
// of any vertex angle sum from its target.
func (c *Conformal[V]) SetAngleErrorBound(bound float64) error {
	if err := errors.ValidateEpsilon("angle error bound", bound); err != nil {
		return err
	}
	c.bound = bound
	return nil
}

// FixedBoundaryCurvature selects [FixedBoundaryCurvature] with the given
// explicit angles in radians.
func (c *Conformal[V]) FixedBoundaryCurvature(angles map[V]float64) error {
	b := FixedBoundaryCurvature(angles)
	if err := b.Validate(); err != nil {
		return err
	}
	c.boundary = &b
	return nil
}

// IsometricBoundaryCondition selects [IsometricBoundary].
func (c *Conformal[V]) IsometricBoundaryCondition() {
	b := IsometricBoundary[V]()
	c.boundary = &b
}

// SetBoundaryCondition selects an arbitrary boundary condition.
func (c *Conformal[V]) SetBoundaryCondition(b BoundaryCondition[V]) error {
	if err := b.Validate(); err != nil {
		return err
	}
	c.boundary = &b
	return nil
}

// SetInputGeometry sets the geometry the input lengths are measured in.
func (c *Conformal[V]) SetInputGeometry(g Geometry) error {
	if err := g.Validate(); err != nil {
		return err
	}
	c.inGeom = g
	return nil
}

// SetOutputGeometry sets the geometry of the result.
func (c *Conformal[V]) SetOutputGeometry(g Geometry) error {
	if err := g.Validate(); err != nil {
		return err
	}
	c.outGeom = g
	return nil
}

// SetLayoutStartTriangle makes layout start at the triangle with the given
// corners, in any cyclic rotation.
func (c *Conformal[V]) SetLayoutStartTriangle(a, b, d V) error {
	want := mesh.Triangle[V]{a, b, d}
	for t := range c.m.Triangles {
		corners := c.m.Corners(t)
		got := mesh.Triangle[V]{
			c.m.Vertices[corners[0]].Rep,
			c.m.Vertices[corners[1]].Rep,
			c.m.Vertices[corners[2]].Rep,
		}
		if got.SameOrientedAs(want) {
			c.start = t
			return nil
		}
	}
	return errors.New(errors.ErrCodeInvalidInput, "not a triangle of the mesh: %v", want)
}

// SetMaxIterations caps the number of Newton steps.
func (c *Conformal[V]) SetMaxIterations(n int) error {
	if n < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "max iterations must be at least 1, got %d", n)
	}
	c.maxIter = n
	return nil
}

// SetLineSearch sets the backtracking parameters of the optimizer, see
// [opt.WithLineSearch].
func (c *Conformal[V]) SetLineSearch(alpha, beta, gamma float64) error {
	if err := opt.ValidateLineSearch(alpha, beta, gamma); err != nil {
		return err
	}
	c.search = [3]float64{alpha, beta, gamma}
	return nil
}

// SetSolverOptions configures the conjugate gradient solve inside each
// Newton step. Zero fields keep their defaults.
func (c *Conformal[V]) SetSolverOptions(o opt.CGOptions) error {
	if o.Tolerance < 0 || math.IsNaN(o.Tolerance) {
		return errors.New(errors.ErrCodeInvalidConfig, "solver tolerance must not be negative, got %g", o.Tolerance)
	}
	if o.MaxIterations < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "solver iterations must not be negative, got %d", o.MaxIterations)
	}
	c.solver = o
	return nil
}

// SetLogger sets the logger for phase and iteration diagnostics.
func (c *Conformal[V]) SetLogger(l *log.Logger) {
	if l != nil {
		c.logger = l
	}
}

// Transform runs the conformal transform. A Conformal can transform only
// once; later calls fail with MISUSE.
func (c *Conformal[V]) Transform(ctx context.Context) (*ResultMesh[V], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.used {
		return nil, errors.New(errors.ErrCodeMisuse, "transform has already been run")
	}
	c.used = true
	if c.boundary == nil {
		return nil, errors.New(errors.ErrCodeMisuse, "no boundary condition set")
	}

	m := c.m
	var (
		energy *Energy[V]
		result opt.Result
	)
	steps := []struct {
		phase observability.Phase
		run   func() error
	}{
		{observability.PhaseInit, func() error {
			m.InitLogLengths(c.inGeom)
			return nil
		}},
		{observability.PhaseBoundary, func() error {
			return c.boundary.Apply(m)
		}},
		{observability.PhaseOptimize, func() error {
			energy = NewEnergy(m, c.outGeom, c.logger)
			var err error
			result, err = c.optimize(ctx, energy)
			return err
		}},
		{observability.PhaseScale, func() error {
			if !c.boundary.FixedScale() {
				energy.Scale()
			}
			return nil
		}},
		{observability.PhaseCheck, func() error {
			return c.checkTriangleInequality()
		}},
		{observability.PhaseLayout, func() error {
			m.Layout(c.outGeom, c.start)
			return nil
		}},
	}

	hooks := observability.Transform()
	for _, step := range steps {
		hooks.OnPhaseStart(ctx, step.phase)
		began := time.Now()
		err := step.run()
		elapsed := time.Since(began)
		hooks.OnPhaseComplete(ctx, step.phase, elapsed, err)
		if err != nil {
			c.logger.Debug("phase failed", "phase", step.phase, "err", err)
			return nil, err
		}
		c.logger.Debug("phase complete", "phase", step.phase, "duration", elapsed)
	}
	if c.logger.GetLevel() <= traceLevel {
		for i := range m.Edges {
			e := &m.Edges[i]
			c.logger.Log(traceLevel, "edge",
				"v1", m.Vertices[e.V1].Rep,
				"v2", m.Vertices[e.V2].Rep,
				"length", e.Length)
		}
	}
	return newResultMesh(m, c.outGeom, result), nil
}

func (c *Conformal[V]) optimize(ctx context.Context, e *Energy[V]) (opt.Result, error) {
	n, err := opt.New(e,
		opt.WithStart(e.Argument()),
		opt.WithNorm(opt.ExitGradient, opt.NormInfinity),
		opt.WithEpsilon(opt.ExitGradient, c.bound),
		opt.WithEpsilon(opt.ExitEstimate, 0),
		opt.WithEpsilon(opt.ExitDelta, 0),
		opt.WithMaxIterations(c.maxIter),
		opt.WithLineSearch(c.search[0], c.search[1], c.search[2]),
		opt.WithCG(c.solver),
		opt.WithLogger(c.logger))
	if err != nil {
		return opt.Result{}, err
	}
	res, err := n.Optimize(ctx)
	if err != nil {
		if errors.Is(err, errors.ErrCodeCanceled) {
			return res, err
		}
		return res, errors.Wrap(errors.ErrCodeNotConverged, err, "could not find optimal solution")
	}
	if res.Exit == opt.ExitIterations {
		c.logger.Warn("iteration limit reached", "iterations", res.Iterations, "gradient", res.GradientNorm)
	}
	c.logger.Info("optimization finished",
		"exit", res.Exit,
		"iterations", res.Iterations,
		"gradient", res.GradientNorm)
	return res, nil
}

// checkTriangleInequality reports the first angle whose opposite edge is
// longer than the other two together.
func (c *Conformal[V]) checkTriangleInequality() error {
	m := c.m
	for i := range m.Angles {
		a := &m.Angles[i]
		lo := m.Edges[a.Opposite].Length
		if lo > m.Edges[a.NextEdge].Length+m.Edges[a.PrevEdge].Length {
			return &TriangleInequalityError[V]{
				Vertex: m.Vertices[a.Vertex].Rep,
				Next:   m.Vertices[a.NextVertex].Rep,
				Prev:   m.Vertices[a.PrevVertex].Rep,
			}
		}
	}
	return nil
}
