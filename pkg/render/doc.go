// Package render draws flattened meshes.
//
// # Overview
//
// Every renderer takes a [mesh.Mesh2D], the planar view of a located mesh,
// and fits it into a viewport of the requested pixel size. The aspect ratio
// is preserved and the y axis points up, so a counter-clockwise triangle of
// the mesh stays counter-clockwise on screen.
//
//   - [SVG]: filled triangles, interior edges, boundary loops and optional
//     vertex labels as a standalone SVG document
//   - [PNG]: the same picture rasterized with golang.org/x/image/vector
//   - [DOT]: a Graphviz graph with every vertex pinned at its position;
//     [DOTToSVG] lays it out in-process with go-graphviz
//   - [JSON]: viewport coordinates for external front ends
//
// # Hyperbolic Results
//
// Results in the Poincaré disk model should be drawn with [WithDisk], which
// includes the unit circle in the viewport and draws it as the boundary at
// infinity. Edges are drawn as straight chords, not as geodesic arcs.
//
//	m := mesh.NewMesh2D(result)
//	svg := render.SVG(m, render.WithSize(800, 800), render.WithDisk())
//
// [mesh.Mesh2D]: github.com/gagern/confoo/pkg/mesh.Mesh2D
package render
