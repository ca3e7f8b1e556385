package opt

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Functional is a twice differentiable function of a real vector.
//
// SetArgument moves the functional to a new point; every other method
// refers to the most recent argument. ValueChange returns the difference
// between the value at the current argument and the value computed by the
// last call to Value, without replacing that reference value.
type Functional interface {
	Size() int
	SetArgument(x []float64)
	Value() float64
	ValueChange() float64
	Gradient(g []float64)
	Hessian(h *SymSparse)
}

// Norm selects a vector norm.
type Norm int

// Supported norms.
const (
	NormOne Norm = iota + 1
	NormTwo
	NormInfinity
)

func (n Norm) String() string {
	switch n {
	case NormOne:
		return "one"
	case NormTwo:
		return "two"
	case NormInfinity:
		return "infinity"
	default:
		return "unknown"
	}
}

// Of returns the norm of x. The norm of an empty vector is zero.
func (n Norm) Of(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	switch n {
	case NormOne:
		return floats.Norm(x, 1)
	case NormInfinity:
		return floats.Norm(x, math.Inf(1))
	default:
		return floats.Norm(x, 2)
	}
}

// ExitCondition names the reason a Newton optimization stopped.
type ExitCondition int

// Exit conditions, in the order they are checked within one iteration.
const (
	ExitGradient ExitCondition = iota
	ExitEstimate
	ExitDelta
	ExitIterations
)

func (c ExitCondition) String() string {
	switch c {
	case ExitGradient:
		return "GRADIENT"
	case ExitEstimate:
		return "ESTIMATE"
	case ExitDelta:
		return "DELTA"
	case ExitIterations:
		return "ITERATIONS"
	default:
		return "UNKNOWN"
	}
}
