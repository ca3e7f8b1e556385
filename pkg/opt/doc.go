// Package opt finds critical points of smooth convex functionals with a
// damped Newton method.
//
// # Functionals
//
// A [Functional] exposes its dimension, a way to move to a new argument,
// its value, its gradient and its Hessian as a sparse symmetric matrix
// ([SymSparse]). It also reports the change of value relative to the last
// [Functional.Value] call; implementations compute this term by term so the
// line search sees an accurate difference even when the absolute value is
// large compared to the change.
//
// # Newton
//
// [Newton] repeatedly solves H·Δ = -g with a Jacobi preconditioned
// conjugate gradient method ([SolveCG]) and performs a backtracking line
// search along Δ. The loop ends with exactly one [ExitCondition]:
//
//	GRADIENT    ‖g‖ ≤ ε_gradient
//	ESTIMATE    λ²/2 = ⟨-g, Δ⟩/2 ≤ ε_estimate
//	DELTA       t·‖Δ‖ ≤ ε_delta
//	ITERATIONS  the iteration cap was reached
//
// A conjugate gradient failure aborts the optimization with a
// [*NotConvergedError].
package opt
