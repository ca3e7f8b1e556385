// Package conformal computes discrete conformal re-metrizations of triangle
// meshes.
//
// Given a triangle mesh with edge lengths and a target angle sum for every
// vertex, the package finds per-vertex log-scale factors u such that the
// rescaled edge lengths
//
//	l̃(ij) = l(ij) · exp((u_i + u_j) / 2)
//
// realize the targets, then lays the result out in the plane (or in the
// Poincaré disk for hyperbolic output).
//
// # Pipeline
//
// A [Conformal] runs the following phases for one mesh:
//
//  1. Initialize log-lengths from the input geometry
//  2. Assign target angles via a [BoundaryCondition]
//  3. Minimize the convex [Energy] with a damped Newton method ([opt.Newton])
//  4. Rescale so that Σu = 0 if the boundary condition leaves scale free
//  5. Verify the triangle inequality for the converged lengths
//  6. Place vertices by breadth-first traversal of the triangle graph
//
// The result is a [ResultMesh] keyed by the caller's vertex identifiers.
//
// # Usage
//
//	c, err := conformal.New[int](objMesh)
//	if err != nil {
//	    return err
//	}
//	c.FixedBoundaryCurvature(map[int]float64{1: math.Pi / 2, 3: math.Pi / 2})
//	flat, err := c.Transform(ctx)
//
// # Mesh Representation
//
// [InternalMesh] stores vertices, edges, angles and triangles in flat
// slices. Every cross reference is an index into one of these slices, so the
// cyclic adjacency structure needs no pointers. The structure is built once
// by [BuildMesh] and never changes shape afterwards; only the scalar fields
// (u, lengths, angles, locations) are updated while a transform runs.
package conformal
