// Package mesh holds the merged triangle mesh handed to the exporter and the
// Wavefront OBJ geometry encoder.
package mesh

import (
	"errors"
	"fmt"

	"github.com/Faultbox/objexport/pkg/math"
)

// Mesh errors.
var (
	ErrInvalidMesh     = errors.New("mesh has no usable topology")
	ErrMissingMeshData = errors.New("mesh topology tables missing")
)

// VertexInstance is one face corner: a shared vertex plus the normal and UV
// used at that corner.
type VertexInstance struct {
	Vertex int
	Normal math.Vec3
	UV     math.Vec2
}

// Polygon is a group of triangles assigned to one material slot.
type Polygon struct {
	Slot      int
	Triangles []int
}

// Description is a merged mesh in the source's Z-up frame.
// IDs are indices into the corresponding slice.
//
// Triangles hold vertex-instance IDs. Entries with a corner count other than
// three are tolerated and skipped by the encoder.
type Description struct {
	Name      string
	Vertices  []math.Vec3
	Instances []VertexInstance
	Polygons  []Polygon
	Triangles [][]int
}

// Validate checks that the topology tables are present, non-empty and that
// every cross reference resolves.
func (d *Description) Validate() error {
	if d == nil {
		return ErrMissingMeshData
	}
	switch {
	case d.Vertices == nil:
		return fmt.Errorf("%w: vertices", ErrMissingMeshData)
	case d.Instances == nil:
		return fmt.Errorf("%w: vertex instances", ErrMissingMeshData)
	case d.Triangles == nil:
		return fmt.Errorf("%w: triangles", ErrMissingMeshData)
	}

	if len(d.Vertices) == 0 {
		return fmt.Errorf("%w: no vertices", ErrInvalidMesh)
	}
	if len(d.Triangles) == 0 {
		return fmt.Errorf("%w: no triangles", ErrInvalidMesh)
	}

	for i, inst := range d.Instances {
		if inst.Vertex < 0 || inst.Vertex >= len(d.Vertices) {
			return fmt.Errorf("%w: instance %d references vertex %d of %d", ErrInvalidMesh, i, inst.Vertex, len(d.Vertices))
		}
	}
	for i, tri := range d.Triangles {
		for _, id := range tri {
			if id < 0 || id >= len(d.Instances) {
				return fmt.Errorf("%w: triangle %d references instance %d of %d", ErrInvalidMesh, i, id, len(d.Instances))
			}
		}
	}
	for i, p := range d.Polygons {
		if p.Slot < 0 {
			return fmt.Errorf("%w: polygon %d has slot %d", ErrInvalidMesh, i, p.Slot)
		}
		for _, id := range p.Triangles {
			if id < 0 || id >= len(d.Triangles) {
				return fmt.Errorf("%w: polygon %d references triangle %d of %d", ErrInvalidMesh, i, id, len(d.Triangles))
			}
		}
	}
	return nil
}

// SlotCount returns one more than the highest slot any polygon uses.
func (d *Description) SlotCount() int {
	n := 0
	for _, p := range d.Polygons {
		if p.Slot+1 > n {
			n = p.Slot + 1
		}
	}
	return n
}

// Bounds returns the axis-aligned bounding box of all vertices.
func (d *Description) Bounds() (lo, hi math.Vec3) {
	if len(d.Vertices) == 0 {
		return
	}
	lo, hi = d.Vertices[0], d.Vertices[0]
	for _, v := range d.Vertices[1:] {
		lo.X, hi.X = minf(lo.X, v.X), maxf(hi.X, v.X)
		lo.Y, hi.Y = minf(lo.Y, v.Y), maxf(hi.Y, v.Y)
		lo.Z, hi.Z = minf(lo.Z, v.Z), maxf(hi.Z, v.Z)
	}
	return lo, hi
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
