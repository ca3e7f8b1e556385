package conformal

import (
	"math"
	"math/cmplx"
)

// HypEdgePos places an edge in the Poincaré disk. It is the orientation
// preserving isometry
//
//	T(z) = (P·z + Q) / (conj(Q)·z + conj(P))
//
// mapping the standard frame (origin, +x axis) to the edge frame: the
// anchor vertex of the edge sits at T(0) and the edge leaves it in the
// direction of T applied to the positive real axis.
type HypEdgePos struct {
	P, Q   complex128
	Anchor int // vertex at the frame origin
}

// normalizeTolerance is the deviation of |P|² - |Q|² from one that
// triggers renormalization.
const normalizeTolerance = 1e-10

func hypIdentity(anchor int) *HypEdgePos {
	return &HypEdgePos{P: 1, Anchor: anchor}
}

// hypTranslation moves the origin along the real axis by hyperbolic
// distance d.
func hypTranslation(d float64) *HypEdgePos {
	return &HypEdgePos{P: complex(math.Cosh(d/2), 0), Q: complex(math.Sinh(d/2), 0)}
}

// hypRotation turns the disk about the origin by theta.
func hypRotation(theta float64) *HypEdgePos {
	return &HypEdgePos{P: cmplx.Rect(1, theta/2)}
}

// Components returns the four real parameters (a, b, c, d) with
// Q = a + ib and P = c - id.
func (h *HypEdgePos) Components() (a, b, c, d float64) {
	return real(h.Q), imag(h.Q), real(h.P), -imag(h.P)
}

// compose returns h∘o, anchored where h is.
func (h *HypEdgePos) compose(o *HypEdgePos) *HypEdgePos {
	r := &HypEdgePos{
		P:      h.P*o.P + h.Q*cmplx.Conj(o.Q),
		Q:      h.P*o.Q + h.Q*cmplx.Conj(o.P),
		Anchor: h.Anchor,
	}
	r.normalize()
	return r
}

// Det returns |P|² - |Q|², which is one for a normalized transform.
func (h *HypEdgePos) Det() float64 {
	return real(h.P)*real(h.P) + imag(h.P)*imag(h.P) - real(h.Q)*real(h.Q) - imag(h.Q)*imag(h.Q)
}

func (h *HypEdgePos) normalize() {
	det := h.Det()
	if math.Abs(det-1) <= normalizeTolerance || !(det > 0) {
		return
	}
	s := complex(1/math.Sqrt(det), 0)
	h.P *= s
	h.Q *= s
}

// Apply maps z by the transform.
func (h *HypEdgePos) Apply(z complex128) complex128 {
	return (h.P*z + h.Q) / (cmplx.Conj(h.Q)*z + cmplx.Conj(h.P))
}

// origin returns T(0), the dehomogenized position of the frame origin.
func (h *HypEdgePos) origin() complex128 {
	return h.Q / cmplx.Conj(h.P)
}

// Point returns the position of endpoint v of an edge of hyperbolic
// length l placed by h.
func (h *HypEdgePos) Point(v int, l float64) complex128 {
	if v == h.Anchor {
		return h.origin()
	}
	return h.compose(hypTranslation(l)).origin()
}

// Derive returns the frame anchored at endpoint v of the edge placed by h,
// rotated by theta from the direction pointing along the edge. The edge
// has hyperbolic length l.
func (h *HypEdgePos) Derive(v int, l, theta float64) *HypEdgePos {
	var r *HypEdgePos
	if v == h.Anchor {
		r = h.compose(hypRotation(theta))
	} else {
		r = h.compose(hypTranslation(l)).compose(hypRotation(math.Pi + theta))
	}
	r.Anchor = v
	return r
}

// hypDistance returns the hyperbolic distance of two points in the
// Poincaré disk.
func hypDistance(z, w complex128) float64 {
	return 2 * math.Atanh(cmplx.Abs(z-w)/cmplx.Abs(1-cmplx.Conj(z)*w))
}
