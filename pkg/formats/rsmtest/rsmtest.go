// Package rsmtest builds RSM files in memory for tests.
package rsmtest

import (
	"bytes"
	"encoding/binary"

	"github.com/Faultbox/objexport/pkg/encoding"
	"github.com/Faultbox/objexport/pkg/formats"
)

// Encode serializes rsm in the layout ParseRSM reads for rsm.Version.
func Encode(rsm *formats.RSM) []byte {
	v := rsm.Version
	var buf bytes.Buffer
	le := func(x any) { binary.Write(&buf, binary.LittleEndian, x) }
	name := func(s string) { buf.Write(encoding.UTF8ToFixedString(s, 40)) }

	buf.WriteString("GRSM")
	buf.WriteByte(v.Major)
	buf.WriteByte(v.Minor)
	le(rsm.AnimLength)
	le(int32(rsm.Shading))
	if v.AtLeast(1, 4) {
		buf.WriteByte(uint8(rsm.Alpha * 255))
	}
	buf.Write(make([]byte, 16))

	le(int32(len(rsm.Textures)))
	for _, tex := range rsm.Textures {
		name(tex)
	}
	name(rsm.RootNode)

	le(int32(len(rsm.Nodes)))
	for _, n := range rsm.Nodes {
		name(n.Name)
		name(n.Parent)
		le(int32(len(n.TextureIDs)))
		le(n.TextureIDs)
		le(n.Matrix)
		le(n.Offset)
		le(n.Position)
		le(n.RotAngle)
		le(n.RotAxis)
		le(n.Scale)

		le(int32(len(n.Vertices)))
		le(n.Vertices)

		le(int32(len(n.TexCoords)))
		for _, tc := range n.TexCoords {
			if v.AtLeast(1, 2) {
				buf.Write(tc.Color[:])
			}
			le(tc.U)
			le(tc.V)
		}

		le(int32(len(n.Faces)))
		for _, f := range n.Faces {
			le(f.VertexIDs)
			le(f.TexCoordIDs)
			le(f.TextureID)
			le(f.Padding)
			le(f.TwoSide)
			if v.AtLeast(1, 2) {
				le(f.SmoothGroup)
			}
		}

		if !v.AtLeast(1, 5) {
			le(int32(len(n.PosKeys)))
			le(n.PosKeys)
		}
		le(int32(len(n.RotKeys)))
		le(n.RotKeys)
		if v.AtLeast(1, 5) {
			le(int32(len(n.ScaleKeys)))
			le(n.ScaleKeys)
		}
	}

	le(int32(len(rsm.VolumeBoxes)))
	for _, b := range rsm.VolumeBoxes {
		le(b.Size)
		le(b.Position)
		le(b.Rotation)
		if v.AtLeast(1, 3) {
			le(b.Flag)
		}
	}
	return buf.Bytes()
}

// Identity is a node transform with no rotation and unit scale.
func Identity(name, parent string) formats.RSMNode {
	return formats.RSMNode{
		Name:   name,
		Parent: parent,
		Matrix: [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1},
		Scale:  [3]float32{1, 1, 1},
	}
}

// Quad returns a single-node model: a unit square in the XZ plane made of
// two triangles, the first using texture 0 and the second texture 1.
func Quad() *formats.RSM {
	node := Identity("root", "")
	node.TextureIDs = []int32{0, 1}
	node.Vertices = [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1}}
	white := [4]uint8{255, 255, 255, 255}
	node.TexCoords = []formats.RSMTexCoord{
		{Color: white, U: 0, V: 0},
		{Color: white, U: 1, V: 0},
		{Color: white, U: 1, V: 1},
		{Color: white, U: 0, V: 1},
	}
	node.Faces = []formats.RSMFace{
		{VertexIDs: [3]uint16{0, 1, 2}, TexCoordIDs: [3]uint16{0, 1, 2}, TextureID: 0},
		{VertexIDs: [3]uint16{0, 2, 3}, TexCoordIDs: [3]uint16{0, 2, 3}, TextureID: 1},
	}

	return &formats.RSM{
		Version:  formats.RSMVersion{Major: 1, Minor: 5},
		Shading:  formats.RSMShadingSmooth,
		Alpha:    1,
		Textures: []string{"wall.bmp", "내부소품/floor.tga"},
		RootNode: "root",
		Nodes:    []formats.RSMNode{node},
	}
}
