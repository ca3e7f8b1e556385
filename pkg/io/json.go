package io

import (
	"iter"
	"slices"

	"github.com/gagern/confoo/pkg/mesh"
)

// MeshDoc is the JSON document form of a located mesh with integer ids.
type MeshDoc struct {
	Geometry string               `json:"geometry,omitempty"`
	Vertices []VertexDoc          `json:"vertices"`
	Tris     []mesh.Triangle[int] `json:"triangles"`

	index map[int]int
}

// VertexDoc is one vertex of a [MeshDoc]. U is the logarithmic scale
// factor of a conformal result, absent for plain meshes.
type VertexDoc struct {
	ID int      `json:"id"`
	X  float64  `json:"x"`
	Y  float64  `json:"y"`
	Z  float64  `json:"z"`
	U  *float64 `json:"u,omitempty"`
}

// scaled is implemented by meshes that know the scale factor of each vertex.
type scaled interface {
	U(v int) float64
}

// NewMeshDoc converts a located mesh into a document. Vertices are listed
// by ascending id and include only those used by some triangle. When m also
// reports scale factors through a U(int) float64 method, they are included.
func NewMeshDoc(m mesh.LocatedMesh[int]) *MeshDoc {
	d := &MeshDoc{}
	seen := make(map[int]bool)
	var ids []int
	for t := range m.Triangles() {
		d.Tris = append(d.Tris, t)
		for _, v := range t {
			if !seen[v] {
				seen[v] = true
				ids = append(ids, v)
			}
		}
	}
	slices.Sort(ids)

	s, hasU := m.(scaled)
	d.Vertices = make([]VertexDoc, len(ids))
	for i, v := range ids {
		vd := VertexDoc{ID: v, X: m.X(v), Y: m.Y(v), Z: m.Z(v)}
		if hasU {
			u := s.U(v)
			vd.U = &u
		}
		d.Vertices[i] = vd
	}
	d.lookup()
	return d
}

// Triangles implements [mesh.Mesh].
func (d *MeshDoc) Triangles() iter.Seq[mesh.Triangle[int]] {
	return slices.Values(d.Tris)
}

func (d *MeshDoc) X(v int) float64 { return d.vertex(v).X }
func (d *MeshDoc) Y(v int) float64 { return d.vertex(v).Y }
func (d *MeshDoc) Z(v int) float64 { return d.vertex(v).Z }

// U returns the scale factor of vertex v, or zero when the document has
// none.
func (d *MeshDoc) U(v int) float64 {
	if u := d.vertex(v).U; u != nil {
		return *u
	}
	return 0
}

// Has reports whether the document lists vertex v.
func (d *MeshDoc) Has(v int) bool {
	_, ok := d.lookup()[v]
	return ok
}

func (d *MeshDoc) vertex(v int) *VertexDoc {
	i, ok := d.lookup()[v]
	if !ok {
		return &VertexDoc{ID: v}
	}
	return &d.Vertices[i]
}

// lookup builds the id index on first use. Documents are not safe for
// concurrent use until the index exists; ReadJSON and NewMeshDoc return
// documents with the index already built.
func (d *MeshDoc) lookup() map[int]int {
	if d.index == nil {
		d.index = make(map[int]int, len(d.Vertices))
		for i, v := range d.Vertices {
			d.index[v.ID] = i
		}
	}
	return d.index
}

var _ mesh.LocatedMesh[int] = (*MeshDoc)(nil)
