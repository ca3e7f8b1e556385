package conformal

import (
	"math"

	"github.com/gagern/confoo/pkg/errors"
)

type boundaryKind int

const (
	fixedCurvature boundaryKind = iota + 1
	isometric
)

// BoundaryCondition assigns target angle sums and decides which vertices
// keep their scale. Create one with [FixedBoundaryCurvature] or
// [IsometricBoundary].
type BoundaryCondition[V comparable] struct {
	kind   boundaryKind
	angles map[V]float64
}

// FixedBoundaryCurvature prescribes angle sums: π/2 at corners, π along the
// boundary and 2π inside, overridden by the explicit angles (radians) given
// for individual vertices. One vertex is fixed to pin the global scale,
// which is normalized after optimization.
func FixedBoundaryCurvature[V comparable](angles map[V]float64) BoundaryCondition[V] {
	return BoundaryCondition[V]{kind: fixedCurvature, angles: angles}
}

// IsometricBoundary keeps the lengths along the boundary: corner and
// boundary vertices are fixed and interior vertices become flat.
func IsometricBoundary[V comparable]() BoundaryCondition[V] {
	return BoundaryCondition[V]{kind: isometric}
}

// FixedScale reports whether the condition determines the absolute scale
// of the solution.
func (b BoundaryCondition[V]) FixedScale() bool {
	return b.kind == isometric
}

func (b BoundaryCondition[V]) String() string {
	switch b.kind {
	case fixedCurvature:
		return "fixed boundary curvature"
	case isometric:
		return "isometric boundary"
	default:
		return "unset"
	}
}

// Validate checks the explicit angles without looking at a mesh.
func (b BoundaryCondition[V]) Validate() error {
	if b.kind != fixedCurvature && b.kind != isometric {
		return errors.New(errors.ErrCodeMisuse, "boundary condition not initialized")
	}
	for v, a := range b.angles {
		if err := errors.ValidateAngle(a); err != nil {
			return errors.Wrap(errors.GetCode(err), err, "angle for vertex %v", v)
		}
	}
	return nil
}

// Apply sets the target and the fixed flag of every vertex of m.
func (b BoundaryCondition[V]) Apply(m *InternalMesh[V]) error {
	if err := b.Validate(); err != nil {
		return err
	}
	switch b.kind {
	case fixedCurvature:
		for i := range m.Vertices {
			v := &m.Vertices[i]
			v.Fixed = false
			switch v.Kind {
			case Corner:
				v.Target = math.Pi / 2
			case Boundary:
				v.Target = math.Pi
			default:
				v.Target = 2 * math.Pi
			}
		}
		for rep, angle := range b.angles {
			i, ok := m.Vertex(rep)
			if !ok {
				return errors.New(errors.ErrCodeNoSuchVertex, "no such vertex: %v", rep)
			}
			m.Vertices[i].Target = angle
		}
		if len(m.Vertices) > 0 {
			m.Vertices[len(m.Vertices)/2].Fixed = true
		}
	case isometric:
		for i := range m.Vertices {
			v := &m.Vertices[i]
			v.Fixed = v.Kind != Interior
			if !v.Fixed {
				v.Target = 2 * math.Pi
			}
		}
	}
	return nil
}
