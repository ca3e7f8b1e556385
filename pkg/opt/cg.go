package opt

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/gagern/confoo/pkg/errors"
)

// Default conjugate gradient settings.
const (
	DefaultCGTolerance  = 1e-12 // relative residual ‖r‖/‖b‖
	DefaultCGDivergence = 1e5   // relative residual treated as divergence
	minCGIterations     = 1000
)

// CGOptions configures [SolveCG].
type CGOptions struct {
	// Tolerance is the relative residual at which the solve succeeds.
	// Zero selects DefaultCGTolerance.
	Tolerance float64

	// MaxIterations caps the iteration count. Zero selects
	// max(10·n, 1000).
	MaxIterations int
}

// CGResult reports how a successful solve went.
type CGResult struct {
	Iterations int
	Residual   float64 // final relative residual
}

// NotConvergedError reports a conjugate gradient solve that did not reach
// its tolerance.
type NotConvergedError struct {
	Reason     string
	Iterations int
	Residual   float64
}

func (e *NotConvergedError) Error() string {
	return fmt.Sprintf("conjugate gradient: %s after %d iterations (residual %g)", e.Reason, e.Iterations, e.Residual)
}

// ErrorCode classifies the error for package errors.
func (e *NotConvergedError) ErrorCode() errors.Code {
	return errors.ErrCodeNotConverged
}

// Reasons reported by NotConvergedError.
const (
	ReasonIterations = "iteration limit reached"
	ReasonBreakdown  = "breakdown"
	ReasonDivergence = "divergence"
	ReasonNonFinite  = "non-finite value"
)

// SolveCG solves a·x = b for symmetric positive (semi-)definite a using the
// conjugate gradient method with a Jacobi preconditioner. The iteration
// starts from zero and x receives the solution.
func SolveCG(a *SymSparse, b, x []float64, opts CGOptions) (CGResult, error) {
	n := a.Dim()
	if len(b) != n || len(x) != n {
		panic("opt: dimension mismatch")
	}
	tol := opts.Tolerance
	if tol <= 0 {
		tol = DefaultCGTolerance
	}
	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = max(10*n, minCGIterations)
	}

	clear(x)
	bnorm := floats.Norm(b, 2)
	if n == 0 || bnorm == 0 {
		return CGResult{}, nil
	}
	if math.IsNaN(bnorm) || math.IsInf(bnorm, 0) || !a.IsFinite() {
		return CGResult{}, &NotConvergedError{Reason: ReasonNonFinite, Residual: math.NaN()}
	}

	inv := make([]float64, n)
	for i := range inv {
		if d := a.Diag(i); d > 0 {
			inv[i] = 1 / d
		} else {
			inv[i] = 1
		}
	}

	r := make([]float64, n)
	copy(r, b)
	z := make([]float64, n)
	floats.MulTo(z, inv, r)
	p := make([]float64, n)
	copy(p, z)
	ap := make([]float64, n)
	rz := floats.Dot(r, z)

	res := 1.0
	for k := 1; k <= maxIter; k++ {
		a.MulVecTo(ap, p)
		pap := floats.Dot(p, ap)
		if math.IsNaN(pap) || pap <= 0 {
			return CGResult{}, &NotConvergedError{Reason: ReasonBreakdown, Iterations: k, Residual: res}
		}
		alpha := rz / pap
		floats.AddScaled(x, alpha, p)
		floats.AddScaled(r, -alpha, ap)

		res = floats.Norm(r, 2) / bnorm
		switch {
		case math.IsNaN(res) || math.IsInf(res, 0):
			return CGResult{}, &NotConvergedError{Reason: ReasonNonFinite, Iterations: k, Residual: res}
		case res <= tol:
			return CGResult{Iterations: k, Residual: res}, nil
		case res >= DefaultCGDivergence:
			return CGResult{}, &NotConvergedError{Reason: ReasonDivergence, Iterations: k, Residual: res}
		}

		floats.MulTo(z, inv, r)
		rzNew := floats.Dot(r, z)
		beta := rzNew / rz
		rz = rzNew
		for i := range p {
			p[i] = z[i] + beta*p[i]
		}
	}
	return CGResult{}, &NotConvergedError{Reason: ReasonIterations, Iterations: maxIter, Residual: res}
}
