// Package clausen implements Clausen's integral
//
//	Cl2(x) = -∫₀^x ln|2 sin(t/2)| dt
//
// which appears in the volume of ideal hyperbolic tetrahedra and, through
// the Lobachevsky function Л(x) = Cl2(2x)/2, in the discrete conformal
// energies of package conformal.
//
// The function is odd and 2π-periodic. On the reduced interval (0, π] it
// is evaluated through the power series
//
//	Cl2(θ) = θ - θ ln θ + Σ_{k≥1} ζ(2k) θ^(2k+1) / (k (2k+1) (2π)^(2k))
//
// whose terms shrink at least by a factor four per step on that interval.
package clausen

import (
	"math"

	"gonum.org/v1/gonum/mathext"
)

// numTerms bounds the series; at θ = π the terms drop below 1e-17 of the
// leading term well before this count.
const numTerms = 40

// coeff holds ζ(2k) / (k (2k+1) (2π)^(2k)) for k = 1..numTerms.
var coeff = func() [numTerms]float64 {
	var c [numTerms]float64
	twoPi2 := 4 * math.Pi * math.Pi
	scale := 1.0
	for i := range c {
		k := float64(i + 1)
		scale *= twoPi2
		c[i] = mathext.Zeta(2*k, 1) / (k * (2*k + 1) * scale)
	}
	return c
}()

// Cl2 returns Clausen's integral of x.
// The result is exactly zero at integer multiples of π.
func Cl2(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return math.NaN()
	}
	theta := math.Remainder(x, 2*math.Pi)
	switch {
	case theta == 0:
		return 0
	case theta < 0:
		return -series(-theta)
	default:
		return series(theta)
	}
}

// series evaluates Cl2 for 0 < theta <= π.
func series(theta float64) float64 {
	if theta >= math.Pi {
		return 0
	}
	t2 := theta * theta
	pow := theta
	var sum float64
	for _, c := range coeff {
		pow *= t2
		term := c * pow
		sum += term
		if term < 1e-18*theta {
			break
		}
	}
	return theta - theta*math.Log(theta) + sum
}

// Lobachevsky returns Milnor's Lobachevsky function Л(x) = Cl2(2x)/2.
func Lobachevsky(x float64) float64 {
	return Cl2(2*x) / 2
}
