package io

import (
	"iter"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/gagern/confoo/pkg/mesh"
)

// ObjMesh is a mesh read from or destined for an OBJ file. Vertex ids are
// 1-based indices into Points.
type ObjMesh struct {
	Points []r3.Vec
	Faces  []mesh.Triangle[int]
}

// NewObjMesh copies a located mesh with integer ids, keeping the ids as OBJ
// indices. Ids must be positive. Points for ids that no triangle uses, or
// whose coordinates are not finite, are written as the origin so that the
// numbering stays intact.
func NewObjMesh(m mesh.LocatedMesh[int]) *ObjMesh {
	out := &ObjMesh{}
	maxID := 0
	for t := range m.Triangles() {
		out.Faces = append(out.Faces, t)
		maxID = max(maxID, t[0], t[1], t[2])
	}
	out.Points = make([]r3.Vec, maxID)
	used := make([]bool, maxID)
	for _, t := range out.Faces {
		for _, v := range t {
			used[v-1] = true
		}
	}
	for i := range out.Points {
		if !used[i] {
			continue
		}
		p := r3.Vec{X: m.X(i + 1), Y: m.Y(i + 1), Z: m.Z(i + 1)}
		if finite(p) {
			out.Points[i] = p
		}
	}
	return out
}

// Renumber copies an arbitrary located mesh, numbering vertices from 1 in
// order of first appearance. The returned map gives the new index of every
// vertex.
func Renumber[V comparable](m mesh.LocatedMesh[V]) (*ObjMesh, map[V]int) {
	out := &ObjMesh{}
	ids := make(map[V]int)
	for t := range m.Triangles() {
		var f mesh.Triangle[int]
		for i, v := range t {
			id, ok := ids[v]
			if !ok {
				out.Points = append(out.Points, r3.Vec{X: m.X(v), Y: m.Y(v), Z: m.Z(v)})
				id = len(out.Points)
				ids[v] = id
			}
			f[i] = id
		}
		out.Faces = append(out.Faces, f)
	}
	return out, ids
}

// Triangles implements [mesh.Mesh].
func (m *ObjMesh) Triangles() iter.Seq[mesh.Triangle[int]] {
	return slices.Values(m.Faces)
}

func (m *ObjMesh) X(v int) float64 { return m.Points[v-1].X }
func (m *ObjMesh) Y(v int) float64 { return m.Points[v-1].Y }
func (m *ObjMesh) Z(v int) float64 { return m.Points[v-1].Z }

// EdgeLength implements [mesh.MetricMesh] with Euclidean distances.
func (m *ObjMesh) EdgeLength(a, b int) float64 {
	return r3.Norm(r3.Sub(m.Points[a-1], m.Points[b-1]))
}

// Used returns the sorted ids of all vertices referenced by a face.
func (m *ObjMesh) Used() []int {
	seen := make(map[int]bool, len(m.Points))
	var ids []int
	for _, f := range m.Faces {
		for _, v := range f {
			if !seen[v] {
				seen[v] = true
				ids = append(ids, v)
			}
		}
	}
	slices.Sort(ids)
	return ids
}

func finite(p r3.Vec) bool {
	for _, c := range [3]float64{p.X, p.Y, p.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

var (
	_ mesh.LocatedMesh[int] = (*ObjMesh)(nil)
	_ mesh.MetricMesh[int]  = (*ObjMesh)(nil)
)
