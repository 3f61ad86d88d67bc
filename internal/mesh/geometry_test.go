package mesh_test

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/Faultbox/objexport/internal/mesh"
	"github.com/Faultbox/objexport/internal/mesh/meshtest"
	"github.com/Faultbox/objexport/pkg/math"
)

// countPrefix counts lines starting with prefix followed by a space.
func countPrefix(text, prefix string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, prefix+" ") {
			n++
		}
	}
	return n
}

func lines(text, prefix string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, prefix+" ") {
			out = append(out, line)
		}
	}
	return out
}

func TestEncodeGeometry_UnitCube(t *testing.T) {
	cube := meshtest.Cube("Cube", 0)
	g, err := mesh.EncodeGeometry(cube, []string{"cube_material"}, "cube.mtl")
	if err != nil {
		t.Fatalf("EncodeGeometry: %v", err)
	}

	checks := []struct {
		prefix string
		want   int
	}{
		{"v", 8},
		{"vt", 24},
		{"vn", 24},
		{"f", 12},
		{"usemtl", 1},
		{"mtllib", 1},
	}
	for _, c := range checks {
		if got := countPrefix(g.Text, c.prefix); got != c.want {
			t.Errorf("%q lines = %d, want %d", c.prefix, got, c.want)
		}
	}

	if !strings.Contains(g.Text, "mtllib cube.mtl\n") {
		t.Error("missing mtllib reference")
	}
	if !strings.Contains(g.Text, "usemtl cube_material\n") {
		t.Error("missing usemtl cube_material")
	}
	if !strings.HasPrefix(g.Text, "# Exported by objexport\n# Mesh: Cube\n") {
		t.Errorf("unexpected header:\n%s", g.Text[:40])
	}

	if g.Vertices != 8 || g.TexCoords != 24 || g.Normals != 24 || g.Faces != 12 || g.Skipped != 0 {
		t.Errorf("counts = %+v", g)
	}
	if len(g.Groups) != 1 || g.Groups[0].Faces != 12 || g.Groups[0].Material != "cube_material" {
		t.Errorf("groups = %+v", g.Groups)
	}
}

func TestEncodeGeometry_IndexRanges(t *testing.T) {
	cube := meshtest.Cube("Cube", 0)
	g, err := mesh.EncodeGeometry(cube, []string{"m"}, "c.mtl")
	if err != nil {
		t.Fatalf("EncodeGeometry: %v", err)
	}

	for _, line := range lines(g.Text, "f") {
		corners := strings.Fields(line)[1:]
		if len(corners) != 3 {
			t.Fatalf("face %q has %d corners", line, len(corners))
		}
		for _, c := range corners {
			parts := strings.Split(c, "/")
			if len(parts) != 3 {
				t.Fatalf("corner %q is not v/vt/vn", c)
			}
			vi, _ := strconv.Atoi(parts[0])
			ti, _ := strconv.Atoi(parts[1])
			ni, _ := strconv.Atoi(parts[2])
			if vi < 1 || vi > len(cube.Vertices) {
				t.Errorf("vertex index %d out of [1,%d]", vi, len(cube.Vertices))
			}
			if ti < 1 || ti > len(cube.Instances) {
				t.Errorf("uv index %d out of [1,%d]", ti, len(cube.Instances))
			}
			if ti != ni {
				t.Errorf("uv index %d and normal index %d differ", ti, ni)
			}
		}
	}
}

func TestEncodeGeometry_CoordinateConversion(t *testing.T) {
	d := &mesh.Description{
		Name:     "tri",
		Vertices: []math.Vec3{{X: 1, Y: 2, Z: 3}, {X: 4, Y: 5, Z: 6}, {X: 7, Y: 8, Z: 9}},
		Instances: []mesh.VertexInstance{
			{Vertex: 2, Normal: math.Vec3{X: 0, Y: 0, Z: 1}, UV: math.Vec2{X: 0.25, Y: 0.25}},
			{Vertex: 0, Normal: math.Vec3{X: 0, Y: 1, Z: 0}, UV: math.Vec2{X: 0.5, Y: 1}},
			{Vertex: 1, Normal: math.Vec3{X: 1, Y: 0, Z: 0}, UV: math.Vec2{X: 1, Y: 0}},
		},
		Triangles: [][]int{{0, 1, 2}},
		Polygons:  []mesh.Polygon{{Slot: 0, Triangles: []int{0}}},
	}

	g, err := mesh.EncodeGeometry(d, []string{"m"}, "tri.mtl")
	if err != nil {
		t.Fatalf("EncodeGeometry: %v", err)
	}

	wantLines := []string{
		"v 1.000000 3.000000 2.000000",
		"v 4.000000 6.000000 5.000000",
		"vt 0.250000 0.750000",
		"vt 0.500000 0.000000",
		"vt 1.000000 1.000000",
		"vn 0.000000 1.000000 0.000000",
		"vn 0.000000 0.000000 1.000000",
		"f 3/1/1 1/2/2 2/3/3",
	}
	for _, want := range wantLines {
		if !strings.Contains(g.Text, want+"\n") {
			t.Errorf("missing line %q in:\n%s", want, g.Text)
		}
	}
}

func TestEncodeGeometry_SkipsUnassignedSlot(t *testing.T) {
	cube := meshtest.Cube("Cube", 0)
	// Move the last two sides to slot 1 and the first side to slot 2.
	cube.Polygons[4].Slot = 1
	cube.Polygons[5].Slot = 1
	cube.Polygons[0].Slot = 2

	g, err := mesh.EncodeGeometry(cube, []string{"first", "", "third"}, "c.mtl")
	if err != nil {
		t.Fatalf("EncodeGeometry: %v", err)
	}

	if got := countPrefix(g.Text, "usemtl"); got != 2 {
		t.Errorf("usemtl lines = %d, want 2", got)
	}
	if strings.Contains(g.Text, "# Material: \n") {
		t.Error("unassigned slot produced a group header")
	}
	if got := countPrefix(g.Text, "f"); got != 8 {
		t.Errorf("face lines = %d, want 8 (slot 1 skipped)", got)
	}

	want := []mesh.Group{{Slot: 0, Material: "first", Faces: 6}, {Slot: 2, Material: "third", Faces: 2}}
	if len(g.Groups) != len(want) {
		t.Fatalf("groups = %+v, want %+v", g.Groups, want)
	}
	for i := range want {
		if g.Groups[i] != want[i] {
			t.Errorf("group %d = %+v, want %+v", i, g.Groups[i], want[i])
		}
	}

	// Group order follows slot order.
	first := strings.Index(g.Text, "usemtl first")
	third := strings.Index(g.Text, "usemtl third")
	if first < 0 || third < 0 || first > third {
		t.Errorf("groups out of slot order: first at %d, third at %d", first, third)
	}
}

func TestEncodeGeometry_SkipsNonTriangles(t *testing.T) {
	d := meshtest.Triangle("quad")
	d.Triangles = append(d.Triangles, []int{0, 1, 2, 0})
	d.Polygons[0].Triangles = append(d.Polygons[0].Triangles, 1)

	g, err := mesh.EncodeGeometry(d, []string{"m"}, "q.mtl")
	if err != nil {
		t.Fatalf("EncodeGeometry: %v", err)
	}
	if g.Faces != 1 || g.Skipped != 1 {
		t.Errorf("faces = %d skipped = %d, want 1 and 1", g.Faces, g.Skipped)
	}
}

func TestEncodeGeometry_Errors(t *testing.T) {
	tests := []struct {
		name      string
		desc      *mesh.Description
		materials []string
		want      error
	}{
		{"nil description", nil, []string{"m"}, mesh.ErrMissingMeshData},
		{"nil vertices", &mesh.Description{Instances: []mesh.VertexInstance{}, Triangles: [][]int{}}, []string{"m"}, mesh.ErrMissingMeshData},
		{"nil instances", &mesh.Description{Vertices: []math.Vec3{}, Triangles: [][]int{}}, []string{"m"}, mesh.ErrMissingMeshData},
		{"nil triangles", &mesh.Description{Vertices: []math.Vec3{}, Instances: []mesh.VertexInstance{}}, []string{"m"}, mesh.ErrMissingMeshData},
		{"empty vertices", &mesh.Description{Vertices: []math.Vec3{}, Instances: []mesh.VertexInstance{}, Triangles: [][]int{{0, 0, 0}}}, []string{"m"}, mesh.ErrInvalidMesh},
		{"empty triangles", &mesh.Description{Vertices: []math.Vec3{{}}, Instances: []mesh.VertexInstance{}, Triangles: [][]int{}}, []string{"m"}, mesh.ErrInvalidMesh},
		{"slot beyond materials", meshtest.Cube("c", 1), []string{"m"}, mesh.ErrInvalidMesh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := mesh.EncodeGeometry(tt.desc, tt.materials, "x.mtl")
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if g != nil {
				t.Error("geometry returned alongside error")
			}
		})
	}
}
