// Package pkg provides the libraries behind confoo, a tool for discrete
// conformal flattening of triangle meshes.
//
// # Overview
//
// A discrete conformal map changes every edge length of a mesh by scale
// factors attached to its endpoints. Confoo chooses those factors so that
// every vertex gets a prescribed angle sum, then lays the mesh out in the
// Euclidean plane or the Poincaré disk.
//
// The typical data flow:
//
//	Wavefront OBJ
//	     ↓
//	[io] package (parse, renumber)
//	     ↓
//	[conformal] package (boundary conditions, Newton optimization, layout)
//	     ↓
//	[render] package (SVG, PNG, DOT, scene JSON)
//
// # Quick Start
//
//	m, _ := io.ImportOBJ("square.obj")
//	c, _ := conformal.New(mesh.Metric[int](m))
//	c.FixedBoundaryCurvature(map[int]float64{1: math.Pi / 2, 3: math.Pi / 2})
//	res, err := c.Transform(ctx)
//	if err != nil {
//	    return err
//	}
//	svg := render.SVG(mesh.NewMesh2D[int](res))
//
// # Main Packages
//
// ## Geometry
//
// [mesh] - Triangle, mesh interfaces and the planar [mesh.Mesh2D] used for
// drawing.
//
// [conformal] - The re-metrization itself: energy, boundary conditions,
// optimization and layout, for Euclidean and hyperbolic geometry.
//
// [opt] - Damped Newton minimization with a sparse conjugate gradient
// solver.
//
// [clausen] - The Clausen integral and Lobachevsky function used by the
// energies.
//
// ## Input and Output
//
// [io] - OBJ and JSON import and export.
//
// [render] - Drawings of planar meshes, with [fonts] for raster labels.
//
// ## Infrastructure
//
// [pipeline] - Parse, transform and render with caching, shared by the CLI
// and the HTTP API.
//
// [cache] - File, Redis and null cache backends keyed by content hash.
//
// [server] - The HTTP API.
//
// [errors] - Coded errors with user-facing messages.
//
// [observability] - Hooks for phase, iteration, cache and HTTP events.
//
// [buildinfo] - Version information.
//
// # Testing
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/conformal/...          # Specific package
package pkg
