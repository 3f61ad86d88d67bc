package mesh

import (
	"fmt"
	"strings"
)

// Generator is written into the geometry header comment.
const Generator = "objexport"

// Group reports how many faces were emitted for one material slot.
type Group struct {
	Slot     int
	Material string
	Faces    int
}

// Geometry is the encoded OBJ text plus record counts.
type Geometry struct {
	Text      string
	Vertices  int
	TexCoords int
	Normals   int
	Faces     int
	// Skipped counts faces dropped for not having exactly three corners.
	Skipped int
	Groups  []Group
}

// EncodeGeometry writes desc as Wavefront OBJ text.
//
// materials is indexed by slot; an empty name marks an unassigned slot, whose
// polygons are left out entirely. Positions and normals are converted from
// Z-up to Y-up by swapping Y and Z, texture V is flipped, and all indices are
// 1-based. UV and normal indices are the same vertex-instance index.
func EncodeGeometry(desc *Description, materials []string, mtlFile string) (*Geometry, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if n := desc.SlotCount(); n > len(materials) {
		return nil, fmt.Errorf("%w: polygons use slot %d but only %d slots exist", ErrInvalidMesh, n-1, len(materials))
	}

	var b strings.Builder
	g := &Geometry{}

	fmt.Fprintf(&b, "# Exported by %s\n", Generator)
	fmt.Fprintf(&b, "# Mesh: %s\n", desc.Name)
	fmt.Fprintf(&b, "mtllib %s\n\n", mtlFile)

	for _, v := range desc.Vertices {
		p := v.SwapYZ()
		fmt.Fprintf(&b, "v %.6f %.6f %.6f\n", p.X, p.Y, p.Z)
	}
	b.WriteString("\n")
	g.Vertices = len(desc.Vertices)

	// The n-th instance gets index n+1 in both the vt and vn streams.
	for _, inst := range desc.Instances {
		uv := inst.UV.FlipV()
		fmt.Fprintf(&b, "vt %.6f %.6f\n", uv.X, uv.Y)
	}
	b.WriteString("\n")
	g.TexCoords = len(desc.Instances)

	for _, inst := range desc.Instances {
		n := inst.Normal.SwapYZ()
		fmt.Fprintf(&b, "vn %.6f %.6f %.6f\n", n.X, n.Y, n.Z)
	}
	b.WriteString("\n")
	g.Normals = len(desc.Instances)

	for slot, name := range materials {
		if name == "" {
			continue
		}
		fmt.Fprintf(&b, "\n# Material: %s\n", name)
		fmt.Fprintf(&b, "usemtl %s\n", name)

		group := Group{Slot: slot, Material: name}
		for _, p := range desc.Polygons {
			if p.Slot != slot {
				continue
			}
			for _, triID := range p.Triangles {
				corners := desc.Triangles[triID]
				if len(corners) != 3 {
					g.Skipped++
					continue
				}
				b.WriteString("f")
				for _, id := range corners {
					vi := desc.Instances[id].Vertex + 1
					ti := id + 1
					fmt.Fprintf(&b, " %d/%d/%d", vi, ti, ti)
				}
				b.WriteString("\n")
				group.Faces++
			}
		}
		g.Faces += group.Faces
		g.Groups = append(g.Groups, group)
	}

	g.Text = b.String()
	return g, nil
}
