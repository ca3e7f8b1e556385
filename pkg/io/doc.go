// Package io reads and writes triangle meshes in the Wavefront OBJ format
// and in a small JSON format that also carries conformal scale factors.
//
// # OBJ Format
//
// Only geometry statements are interpreted:
//
//	# comment
//	v 0.0 0.0 0.0
//	v 1.0 0.0 0.0
//	v 0.0 1.0 0.0
//	f 1 2 3
//
// Vertex lines carry three coordinates; an optional fourth weight is
// ignored. Face entries may be written as a, a/t, a//n or a/t/n; only the
// vertex index a is used. Indices are 1-based, and negative indices count
// back from the most recently defined vertex. Faces with more than three
// corners are split into a fan of triangles around their first corner.
// Comments and all other statements (vt, vn, g, o, usemtl, ...) are
// skipped.
//
// [ReadOBJ] returns an [ObjMesh] whose vertex identifiers are the 1-based
// OBJ indices, so angles given per vertex on the command line refer to the
// same numbers as the file. [WriteOBJ] writes v and f lines back in index
// order.
//
// # JSON Format
//
//	{
//	  "geometry": "euclidean",
//	  "vertices": [
//	    {"id": 1, "x": 0, "y": 0, "z": 0, "u": -0.12}
//	  ],
//	  "triangles": [[1, 2, 3]]
//	}
//
// The geometry and u fields are optional. Vertex ids must be unique and
// every triangle corner must name a listed vertex; [ReadJSON] reports
// violations with the PARSE_ERROR code.
//
// # Import and Export
//
// Use [ImportOBJ] and [ImportJSON] to read from a file path, [ReadOBJ] and
// [ReadJSON] to read from any io.Reader. [ExportOBJ], [ExportJSON],
// [WriteOBJ] and [WriteJSON] are the writing counterparts.
//
//	in, err := io.ImportOBJ("face.obj")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	c, err := conformal.New(mesh.Metric[int](in))
//
// Both mesh types implement [mesh.LocatedMesh] over int, so they can be
// fed to the conformal engine and to the renderers directly.
package io
