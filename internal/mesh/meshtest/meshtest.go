// Package meshtest provides small meshes for tests.
package meshtest

import (
	"github.com/Faultbox/objexport/internal/mesh"
	"github.com/Faultbox/objexport/pkg/math"
)

var cubeFaces = []struct {
	corners [4]int
	normal  math.Vec3
}{
	{[4]int{0, 4, 6, 2}, math.Vec3{X: -1}},
	{[4]int{1, 3, 7, 5}, math.Vec3{X: 1}},
	{[4]int{0, 1, 5, 4}, math.Vec3{Y: -1}},
	{[4]int{2, 6, 7, 3}, math.Vec3{Y: 1}},
	{[4]int{0, 2, 3, 1}, math.Vec3{Z: -1}},
	{[4]int{4, 5, 7, 6}, math.Vec3{Z: 1}},
}

var quadUVs = [4]math.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}

// Cube returns a unit cube centred on the origin: 8 vertices, 24 vertex
// instances (four per side), 12 triangles and one polygon per side.
// Every polygon uses the given slot.
func Cube(name string, slot int) *mesh.Description {
	d := &mesh.Description{
		Name:      name,
		Vertices:  make([]math.Vec3, 8),
		Instances: make([]mesh.VertexInstance, 0, 24),
		Triangles: make([][]int, 0, 12),
		Polygons:  make([]mesh.Polygon, 0, 6),
	}
	for i := range d.Vertices {
		d.Vertices[i] = math.Vec3{
			X: float32(i&1) - 0.5,
			Y: float32(i>>1&1) - 0.5,
			Z: float32(i>>2&1) - 0.5,
		}
	}

	for _, f := range cubeFaces {
		base := len(d.Instances)
		for k, v := range f.corners {
			d.Instances = append(d.Instances, mesh.VertexInstance{Vertex: v, Normal: f.normal, UV: quadUVs[k]})
		}
		t0 := len(d.Triangles)
		d.Triangles = append(d.Triangles,
			[]int{base, base + 1, base + 2},
			[]int{base, base + 2, base + 3},
		)
		d.Polygons = append(d.Polygons, mesh.Polygon{Slot: slot, Triangles: []int{t0, t0 + 1}})
	}
	return d
}

// Triangle returns a single triangle in the XY plane using slot 0.
func Triangle(name string) *mesh.Description {
	return &mesh.Description{
		Name:     name,
		Vertices: []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}},
		Instances: []mesh.VertexInstance{
			{Vertex: 0, Normal: math.Vec3{Z: 1}, UV: math.Vec2{X: 0, Y: 0}},
			{Vertex: 1, Normal: math.Vec3{Z: 1}, UV: math.Vec2{X: 1, Y: 0}},
			{Vertex: 2, Normal: math.Vec3{Z: 1}, UV: math.Vec2{X: 0, Y: 1}},
		},
		Triangles: [][]int{{0, 1, 2}},
		Polygons:  []mesh.Polygon{{Slot: 0, Triangles: []int{0}}},
	}
}
