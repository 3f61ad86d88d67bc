// Package source flattens parsed RSM models into the merged mesh and
// material slots the exporter consumes.
package source

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/objexport/internal/material"
	"github.com/Faultbox/objexport/internal/mesh"
	"github.com/Faultbox/objexport/internal/texture"
	"github.com/Faultbox/objexport/pkg/formats"
	"github.com/Faultbox/objexport/pkg/math"
)

// ErrEmptyModel is returned for models without a single usable face.
var ErrEmptyModel = errors.New("model has no usable faces")

// DefaultMaterialName names the single slot of a model without textures.
const DefaultMaterialName = "default"

// degenerateArea is the cross product length below which a face counts
// as degenerate.
const degenerateArea = 1e-5

// Options control how a model is flattened.
type Options struct {
	// AnimTimeMS selects the pose of animated models.
	AnimTimeMS float32
	// DoubleSided emits back faces for every face, not only two-sided ones.
	DoubleSided bool
	Log         *zap.Logger
}

// Stats counts what happened to the model's faces.
type Stats struct {
	Faces      int
	Triangles  int
	BackFaces  int
	BadIndices int
	Degenerate int
}

// Model is a flattened RSM model ready for export.
type Model struct {
	Mesh  *mesh.Description
	Slots []material.Slot
	Stats Stats
}

// instanceKey identifies a face corner after deduplication. face is -1
// under smooth shading, so corners share across faces.
type instanceKey struct {
	vertex int
	uv     math.Vec2
	back   bool
	face   int
}

type builder struct {
	desc    *mesh.Description
	index   map[instanceKey]int
	normals map[instanceKey]math.Vec3
	bySlot  map[int][]int
	smooth  bool
	faceSeq int
}

// FromRSM flattens every node of rsm into one mesh named name. Node
// transforms are applied at opts.AnimTimeMS, RO's downward Y axis is
// flipped, and the result is expressed Z-up. Each entry of the model's
// texture table becomes a material slot; textures come from loader, which
// may be nil.
//
// Faces referencing missing vertices and faces with no area are dropped.
func FromRSM(rsm *formats.RSM, name string, loader *texture.Loader, opts Options) (*Model, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	if rsm == nil || len(rsm.Nodes) == 0 {
		return nil, fmt.Errorf("%w: no nodes", ErrEmptyModel)
	}

	slotCount := len(rsm.Textures)
	if slotCount == 0 {
		slotCount = 1
	}

	b := &builder{
		desc: &mesh.Description{
			Name:      name,
			Vertices:  []math.Vec3{},
			Instances: []mesh.VertexInstance{},
			Triangles: [][]int{},
		},
		index:   make(map[instanceKey]int),
		normals: make(map[instanceKey]math.Vec3),
		bySlot:  make(map[int][]int),
		smooth:  rsm.Shading == formats.RSMShadingSmooth,
	}
	var stats Stats

	for i := range rsm.Nodes {
		node := &rsm.Nodes[i]
		m := NodeMatrix(node, rsm, opts.AnimTimeMS)
		reverse := m.Determinant3() < 0

		base := len(b.desc.Vertices)
		for _, v := range node.Vertices {
			p := m.TransformPoint(math.V3(v))
			p.Y = -p.Y
			b.desc.Vertices = append(b.desc.Vertices, p.SwapYZ())
		}

		for _, face := range node.Faces {
			stats.Faces++
			if !validFace(face, len(node.Vertices)) {
				stats.BadIndices++
				continue
			}

			slot := 0
			if int(face.TextureID) < len(node.TextureIDs) {
				slot = int(node.TextureIDs[face.TextureID])
			}
			if slot < 0 || slot >= slotCount {
				slot = 0
			}

			corners := [3]int{0, 1, 2}
			if reverse {
				corners = [3]int{2, 1, 0}
			}
			var verts [3]int
			var uvs [3]math.Vec2
			for k, c := range corners {
				verts[k] = base + int(face.VertexIDs[c])
				if tc := int(face.TexCoordIDs[c]); tc < len(node.TexCoords) {
					uvs[k] = math.Vec2{X: node.TexCoords[tc].U, Y: node.TexCoords[tc].V}
				}
			}

			if !b.addTriangle(slot, verts, uvs, false) {
				stats.Degenerate++
				continue
			}
			stats.Triangles++

			if face.TwoSide != 0 || opts.DoubleSided {
				verts[0], verts[2] = verts[2], verts[0]
				uvs[0], uvs[2] = uvs[2], uvs[0]
				b.addTriangle(slot, verts, uvs, true)
				stats.BackFaces++
			}
		}
	}

	if stats.Triangles == 0 {
		return nil, fmt.Errorf("%w: %d faces dropped", ErrEmptyModel, stats.Faces)
	}
	b.finish()

	if stats.BadIndices > 0 || stats.Degenerate > 0 {
		log.Debug("Dropped faces",
			zap.String("model", name),
			zap.Int("bad_indices", stats.BadIndices),
			zap.Int("degenerate", stats.Degenerate))
	}

	return &Model{
		Mesh:  b.desc,
		Slots: buildSlots(rsm.Textures, loader),
		Stats: stats,
	}, nil
}

func validFace(face formats.RSMFace, vertexCount int) bool {
	for _, vid := range face.VertexIDs {
		if int(vid) >= vertexCount {
			return false
		}
	}
	return true
}

// addTriangle appends one triangle, reusing corners with the same vertex
// and UV. It returns false for degenerate triangles.
func (b *builder) addTriangle(slot int, verts [3]int, uvs [3]math.Vec2, back bool) bool {
	p0 := b.desc.Vertices[verts[0]]
	p1 := b.desc.Vertices[verts[1]]
	p2 := b.desc.Vertices[verts[2]]
	// The Z-up swap mirrors the frame, so the cross product is reversed
	// to point out of the front face.
	n := p2.Sub(p0).Cross(p1.Sub(p0))
	if n.Length() < degenerateArea {
		return false
	}

	face := -1
	if !b.smooth {
		face = b.faceSeq
	}
	b.faceSeq++

	tri := make([]int, 3)
	for k := range tri {
		key := instanceKey{vertex: verts[k], uv: uvs[k], back: back, face: face}
		id, ok := b.index[key]
		if !ok {
			id = len(b.desc.Instances)
			b.index[key] = id
			b.desc.Instances = append(b.desc.Instances, mesh.VertexInstance{Vertex: verts[k], UV: uvs[k]})
		}
		tri[k] = id

		// Area-weighted accumulation, shared by every UV seam copy.
		nk := instanceKey{vertex: verts[k], back: back, face: face}
		b.normals[nk] = b.normals[nk].Add(n)
	}

	b.bySlot[slot] = append(b.bySlot[slot], len(b.desc.Triangles))
	b.desc.Triangles = append(b.desc.Triangles, tri)
	return true
}

// finish assigns normals and emits one polygon per used slot in slot order.
func (b *builder) finish() {
	for key, id := range b.index {
		nk := instanceKey{vertex: key.vertex, back: key.back, face: key.face}
		b.desc.Instances[id].Normal = b.normals[nk].Normalize()
	}

	maxSlot := -1
	for slot := range b.bySlot {
		if slot > maxSlot {
			maxSlot = slot
		}
	}
	for slot := 0; slot <= maxSlot; slot++ {
		if tris, ok := b.bySlot[slot]; ok {
			b.desc.Polygons = append(b.desc.Polygons, mesh.Polygon{Slot: slot, Triangles: tris})
		}
	}
}

func buildSlots(textures []string, loader *texture.Loader) []material.Slot {
	if len(textures) == 0 {
		return []material.Slot{{Index: 0, Material: NewMaterial(DefaultMaterialName, nil)}}
	}
	slots := make([]material.Slot, len(textures))
	for i, texPath := range textures {
		var tex material.Texture
		if loader != nil && texPath != "" {
			tex = loader.Texture(texPath)
		}
		slots[i] = material.Slot{Index: i, Material: NewMaterial(materialName(texPath), tex)}
	}
	return slots
}
