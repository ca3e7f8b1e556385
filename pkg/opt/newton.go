package opt

import (
	"context"
	"io"
	"math"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/floats"

	"github.com/gagern/confoo/pkg/errors"
	"github.com/gagern/confoo/pkg/observability"
)

// Line search and termination defaults.
const (
	DefaultAlpha    = 0.25  // fraction of the predicted decrease to achieve
	DefaultBeta     = 0.75  // step size decay per backtracking step
	DefaultGamma    = 0.01  // smallest step size tried
	DefaultEpsilon  = 1e-14 // epsilon for every exit condition
	DefaultFullStep = 1e-12 // decrement below which full steps are taken
)

// Newton is a damped Newton optimizer. Create one with [New].
type Newton struct {
	f        Functional
	eps      [3]float64 // indexed by ExitGradient, ExitEstimate, ExitDelta
	gradNorm Norm
	dltNorm  Norm
	maxIter  int
	alpha    float64
	beta     float64
	gamma    float64
	fullStep float64
	cg       CGOptions
	start    []float64
	logger   *log.Logger
	err      error
}

// Result describes a finished optimization.
type Result struct {
	Exit         ExitCondition
	Iterations   int       // accepted Newton steps
	CGIterations int       // conjugate gradient iterations, summed
	GradientNorm float64   // gradient norm at the final argument
	X            []float64 // final argument
}

// Option configures a [Newton] optimizer.
type Option func(*Newton)

// WithEpsilon sets the threshold of the gradient, estimate or delta exit
// condition. Negative values are rejected by [New].
func WithEpsilon(c ExitCondition, eps float64) Option {
	return func(n *Newton) {
		if c < ExitGradient || c >= ExitIterations {
			n.fail(errors.New(errors.ErrCodeInvalidConfig, "no epsilon for exit condition %v", c))
			return
		}
		if err := errors.ValidateEpsilon(c.String()+" epsilon", eps); err != nil {
			n.fail(err)
			return
		}
		n.eps[c] = eps
	}
}

// WithNorm selects the norm used by the gradient or delta exit condition.
func WithNorm(c ExitCondition, norm Norm) Option {
	return func(n *Newton) {
		if norm < NormOne || norm > NormInfinity {
			n.fail(errors.New(errors.ErrCodeInvalidConfig, "unknown norm %d", int(norm)))
			return
		}
		switch c {
		case ExitGradient:
			n.gradNorm = norm
		case ExitDelta:
			n.dltNorm = norm
		default:
			n.fail(errors.New(errors.ErrCodeInvalidConfig, "exit condition %v has no norm", c))
		}
	}
}

// WithMaxIterations caps the number of Newton steps.
func WithMaxIterations(limit int) Option {
	return func(n *Newton) {
		if limit < 1 {
			n.fail(errors.New(errors.ErrCodeInvalidConfig, "max iterations must be at least 1, got %d", limit))
			return
		}
		n.maxIter = limit
	}
}

// WithLineSearch sets the backtracking parameters. A step t is accepted
// once the value decreased by at least alpha·t·λ²; otherwise t is
// multiplied by beta, but never drops below gamma. Requires
// 0 < alpha < 1/2, 0 < beta < 1 and 0 ≤ gamma ≤ beta.
func WithLineSearch(alpha, beta, gamma float64) Option {
	return func(n *Newton) {
		if err := ValidateLineSearch(alpha, beta, gamma); err != nil {
			n.fail(err)
			return
		}
		n.alpha, n.beta, n.gamma = alpha, beta, gamma
	}
}

// ValidateLineSearch checks backtracking parameters as accepted by
// [WithLineSearch].
func ValidateLineSearch(alpha, beta, gamma float64) error {
	switch {
	case !(alpha > 0 && alpha < 0.5):
		return errors.New(errors.ErrCodeInvalidConfig, "alpha must lie in (0, 0.5), got %v", alpha)
	case !(beta > 0 && beta < 1):
		return errors.New(errors.ErrCodeInvalidConfig, "beta must lie in (0, 1), got %v", beta)
	case !(gamma >= 0 && gamma <= beta):
		return errors.New(errors.ErrCodeInvalidConfig, "gamma must lie in [0, beta], got %v", gamma)
	}
	return nil
}

// WithFullStepBelow makes the line search accept the full Newton step
// whenever the predicted decrease λ²/2 is at most decrement. Close to the
// optimum the actual decrease drowns in rounding noise, so comparing it
// against the prediction would only shrink steps that are in fact exact.
func WithFullStepBelow(decrement float64) Option {
	return func(n *Newton) {
		if err := errors.ValidateEpsilon("full step decrement", decrement); err != nil {
			n.fail(err)
			return
		}
		n.fullStep = decrement
	}
}

// WithCG configures the inner conjugate gradient solve.
func WithCG(opts CGOptions) Option {
	return func(n *Newton) { n.cg = opts }
}

// WithStart sets the starting point. The default is the zero vector.
func WithStart(x []float64) Option {
	return func(n *Newton) { n.start = x }
}

// WithLogger sets the logger receiving per-iteration debug output.
func WithLogger(l *log.Logger) Option {
	return func(n *Newton) {
		if l != nil {
			n.logger = l
		}
	}
}

func (n *Newton) fail(err error) {
	if n.err == nil {
		n.err = err
	}
}

// New returns an optimizer for f.
func New(f Functional, opts ...Option) (*Newton, error) {
	n := &Newton{
		f:        f,
		eps:      [3]float64{DefaultEpsilon, DefaultEpsilon, DefaultEpsilon},
		gradNorm: NormTwo,
		dltNorm:  NormTwo,
		maxIter:  math.MaxInt,
		alpha:    DefaultAlpha,
		beta:     DefaultBeta,
		gamma:    DefaultGamma,
		fullStep: DefaultFullStep,
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.err != nil {
		return nil, n.err
	}
	if n.start != nil && len(n.start) != f.Size() {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "start vector has %d entries, want %d", len(n.start), f.Size())
	}
	return n, nil
}

// Optimize runs the Newton iteration until an exit condition holds. The
// functional is left at the final argument. Cancellation of ctx is checked
// between iterations.
func (n *Newton) Optimize(ctx context.Context) (Result, error) {
	size := n.f.Size()
	x := make([]float64, size)
	copy(x, n.start)
	x2 := make([]float64, size)
	g := make([]float64, size)
	delta := make([]float64, size)
	h := NewSymSparse(size)
	hooks := observability.Optimizer()

	n.f.SetArgument(x)
	res := Result{X: x}
	finish := func(c ExitCondition) (Result, error) {
		res.Exit = c
		res.X = x
		n.logger.Debug("newton finished", "exit", c, "iterations", res.Iterations, "gradient", res.GradientNorm)
		hooks.OnExit(ctx, c.String(), res.Iterations)
		return res, nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return res, errors.Wrap(errors.ErrCodeCanceled, err, "optimization canceled after %d iterations", res.Iterations)
		}

		n.f.Gradient(g)
		res.GradientNorm = n.gradNorm.Of(g)
		if res.GradientNorm <= n.eps[ExitGradient] {
			return finish(ExitGradient)
		}
		if res.Iterations >= n.maxIter {
			return finish(ExitIterations)
		}

		h.Zero()
		n.f.Hessian(h)
		floats.Scale(-1, g)
		value := n.f.Value()
		cgRes, err := SolveCG(h, g, delta, n.cg)
		if err != nil {
			return res, err
		}
		res.CGIterations += cgRes.Iterations

		lambda2 := floats.Dot(g, delta)
		decrement := lambda2 / 2
		if decrement <= n.eps[ExitEstimate] {
			return finish(ExitEstimate)
		}

		deltaNorm := n.dltNorm.Of(delta)
		fullStep := decrement <= n.fullStep
		t := 1.0
		moved := false
		for {
			if t*deltaNorm <= n.eps[ExitDelta] {
				if moved {
					n.f.SetArgument(x)
				}
				return finish(ExitDelta)
			}
			floats.AddScaledTo(x2, x, t, delta)
			n.f.SetArgument(x2)
			moved = true
			change := n.f.ValueChange()
			if fullStep || change <= -n.alpha*t*lambda2 || t <= n.gamma {
				break
			}
			t = max(t*n.beta, n.gamma)
		}
		x, x2 = x2, x
		res.Iterations++

		n.logger.Debug("newton step",
			"iteration", res.Iterations,
			"value", value,
			"gradient", res.GradientNorm,
			"decrement", decrement,
			"t", t,
			"cg", cgRes.Iterations)
		hooks.OnIteration(ctx, observability.Iteration{
			Index:        res.Iterations - 1,
			Value:        value,
			GradientNorm: res.GradientNorm,
			Decrement:    decrement,
			StepSize:     t,
			CGIterations: cgRes.Iterations,
		})
	}
}
