// Package mesh defines the generic triangle mesh interfaces shared by the
// conformal engine, the file formats and the renderers.
//
// # Interfaces
//
// A mesh is anything that can enumerate its triangles as triples of
// caller-defined vertex identifiers:
//
//   - [Mesh]: combinatorial structure only
//   - [MetricMesh]: adds the length of the edge between two adjacent corners
//   - [LocatedMesh]: adds x, y and z coordinates per vertex
//
// Vertex identifiers may be of any comparable type. Triangles sharing an
// edge must list its endpoints in opposite order, which is the usual
// counter-clockwise winding convention for an oriented surface.
//
// # Mesh2D
//
// [Mesh2D] is a planar view of a located mesh, used by the renderers. It
// derives edges, boundary edges and closed boundary loops from the triangle
// list and reports the bounding box of all points.
package mesh
