// Package formats parses Ragnarok Online RSM (Resource Model) files, the
// static and keyframed meshes placed on maps.
//
// All versions from 1.1 to 2.3 are read with the 1.x node layout.
package formats

import (
	"errors"
	"fmt"
	"os"
)

// RSM format errors.
var (
	ErrInvalidRSMMagic       = errors.New("invalid RSM magic: expected 'GRSM'")
	ErrUnsupportedRSMVersion = errors.New("unsupported RSM version")
	ErrTruncatedRSMData      = errors.New("truncated RSM data")
	ErrInvalidNodeCount      = errors.New("invalid RSM node count")
)

// RSMVersion represents the RSM file version.
type RSMVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v RSMVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast returns true if version is >= major.minor.
func (v RSMVersion) AtLeast(major, minor uint8) bool {
	if v.Major > major {
		return true
	}
	if v.Major == major && v.Minor >= minor {
		return true
	}
	return false
}

// RSMShadingType represents the shading mode for rendering.
type RSMShadingType int32

const (
	RSMShadingNone   RSMShadingType = 0 // No shading
	RSMShadingFlat   RSMShadingType = 1 // Flat shading
	RSMShadingSmooth RSMShadingType = 2 // Smooth shading
)

// String returns a human-readable shading type name.
func (s RSMShadingType) String() string {
	switch s {
	case RSMShadingNone:
		return "None"
	case RSMShadingFlat:
		return "Flat"
	case RSMShadingSmooth:
		return "Smooth"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// RSMTexCoord represents a texture coordinate with optional vertex color.
type RSMTexCoord struct {
	Color [4]uint8 // RGBA vertex color (v1.2+)
	U, V  float32  // Texture coordinates
}

// RSMFace represents a triangle face in a mesh.
type RSMFace struct {
	VertexIDs   [3]uint16 // Indices into vertex array
	TexCoordIDs [3]uint16 // Indices into texcoord array
	TextureID   uint16    // Index into node's texture array
	Padding     uint16    // Padding (unused)
	TwoSide     int32     // Double-sided rendering flag
	SmoothGroup int32     // Smoothing group ID (v1.2+)
}

// RSMPosKeyframe represents a position animation keyframe.
type RSMPosKeyframe struct {
	Frame    int32      // Frame number
	Position [3]float32 // X, Y, Z position
}

// RSMRotKeyframe represents a rotation animation keyframe.
type RSMRotKeyframe struct {
	Frame      int32      // Frame number
	Quaternion [4]float32 // X, Y, Z, W quaternion
}

// RSMScaleKeyframe represents a scale animation keyframe.
type RSMScaleKeyframe struct {
	Frame int32      // Frame number
	Scale [3]float32 // X, Y, Z scale
}

// RSMNode represents a node in the model hierarchy.
type RSMNode struct {
	Name       string  // Node name
	Parent     string  // Parent node name (empty for root)
	TextureIDs []int32 // Indices into RSM.Textures array

	// Transform components
	Matrix   [9]float32 // 3x3 rotation matrix
	Offset   [3]float32 // Pivot point offset
	Position [3]float32 // Translation
	RotAngle float32    // Rotation angle (radians)
	RotAxis  [3]float32 // Rotation axis
	Scale    [3]float32 // Scale factors

	// Mesh data
	Vertices  [][3]float32  // Vertex positions
	TexCoords []RSMTexCoord // Texture coordinates
	Faces     []RSMFace     // Triangle faces

	// Animation keyframes
	PosKeys   []RSMPosKeyframe   // Position keyframes (v < 1.5)
	RotKeys   []RSMRotKeyframe   // Rotation keyframes
	ScaleKeys []RSMScaleKeyframe // Scale keyframes (v >= 1.5)
}

// RSMVolumeBox represents a bounding volume box.
type RSMVolumeBox struct {
	Size     [3]float32 // Box dimensions
	Position [3]float32 // Box center position
	Rotation [3]float32 // Box rotation (Euler angles)
	Flag     int32      // Box flag (v1.3+)
}

// RSM represents a parsed RSM (Resource Model) file.
type RSM struct {
	Version     RSMVersion     // File version
	AnimLength  int32          // Animation length in milliseconds
	Shading     RSMShadingType // Shading type
	Alpha       float32        // Global alpha (0-1)
	Textures    []string       // Texture file paths
	RootNode    string         // Root node name
	Nodes       []RSMNode      // Node hierarchy
	VolumeBoxes []RSMVolumeBox // Bounding volume boxes
}

// Element sizes used to bound counts against the remaining data.
const (
	rsmNameSize     = 40
	rsmVertexSize   = 12
	rsmFaceSizeV11  = 20
	rsmFaceSizeV12  = 24
	rsmTexCoordV11  = 8
	rsmTexCoordV12  = 12
	rsmPosKeySize   = 16
	rsmRotKeySize   = 20
	rsmScaleKeySize = 16
	rsmMaxNodes     = 10000
)

// ParseRSM parses RSM data from a byte slice.
func ParseRSM(data []byte) (*RSM, error) {
	r := &reader{data: data}

	magic := r.take(4)
	if r.truncated {
		return nil, ErrTruncatedRSMData
	}
	if string(magic) != "GRSM" {
		return nil, ErrInvalidRSMMagic
	}

	rsm := &RSM{
		Version: RSMVersion{Major: r.u8(), Minor: r.u8()},
	}
	if r.truncated {
		return nil, ErrTruncatedRSMData
	}

	// Check supported versions (1.1 - 2.3)
	if !rsm.Version.AtLeast(1, 1) || rsm.Version.AtLeast(2, 4) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, rsm.Version)
	}

	rsm.AnimLength = r.i32()
	rsm.Shading = RSMShadingType(r.i32())

	rsm.Alpha = 1.0
	if rsm.Version.AtLeast(1, 4) {
		rsm.Alpha = float32(r.u8()) / 255.0
	}

	// Reserved
	r.skip(16)

	textureCount, ok := r.count(rsmNameSize)
	if !ok {
		return nil, fmt.Errorf("%w: texture table", ErrTruncatedRSMData)
	}
	rsm.Textures = make([]string, textureCount)
	for i := range rsm.Textures {
		rsm.Textures[i] = r.str(rsmNameSize)
	}

	rsm.RootNode = r.str(rsmNameSize)

	nodeCount := r.i32()
	if r.truncated {
		return nil, fmt.Errorf("%w: header", ErrTruncatedRSMData)
	}
	if nodeCount < 0 || nodeCount > rsmMaxNodes {
		return nil, fmt.Errorf("%w: %d", ErrInvalidNodeCount, nodeCount)
	}

	rsm.Nodes = make([]RSMNode, nodeCount)
	for i := range rsm.Nodes {
		if err := parseRSMNode(r, rsm.Version, &rsm.Nodes[i]); err != nil {
			return nil, fmt.Errorf("parsing node %d: %w", i, err)
		}
	}

	// Volume boxes are optional; older exporters stop after the nodes.
	if r.remaining() >= 4 {
		boxSize := 36
		if rsm.Version.AtLeast(1, 3) {
			boxSize = 40
		}
		boxCount, ok := r.count(boxSize)
		if !ok {
			return nil, fmt.Errorf("%w: volume boxes", ErrTruncatedRSMData)
		}
		if boxCount > 0 {
			rsm.VolumeBoxes = make([]RSMVolumeBox, boxCount)
			for i := range rsm.VolumeBoxes {
				box := &rsm.VolumeBoxes[i]
				box.Size = r.vec3()
				box.Position = r.vec3()
				box.Rotation = r.vec3()
				if rsm.Version.AtLeast(1, 3) {
					box.Flag = r.i32()
				}
			}
		}
	}

	return rsm, nil
}

// parseRSMNode parses a single node at the reader's position into node.
func parseRSMNode(r *reader, version RSMVersion, node *RSMNode) error {
	node.Name = r.str(rsmNameSize)
	node.Parent = r.str(rsmNameSize)

	textureCount, ok := r.count(4)
	if !ok {
		return fmt.Errorf("%w: texture ids", ErrTruncatedRSMData)
	}
	if textureCount > 0 {
		node.TextureIDs = make([]int32, textureCount)
		for i := range node.TextureIDs {
			node.TextureIDs[i] = r.i32()
		}
	}

	for i := range node.Matrix {
		node.Matrix[i] = r.f32()
	}
	node.Offset = r.vec3()
	node.Position = r.vec3()
	node.RotAngle = r.f32()
	node.RotAxis = r.vec3()
	node.Scale = r.vec3()
	if r.truncated {
		return fmt.Errorf("%w: transform", ErrTruncatedRSMData)
	}

	vertexCount, ok := r.count(rsmVertexSize)
	if !ok {
		return fmt.Errorf("%w: vertices", ErrTruncatedRSMData)
	}
	if vertexCount > 0 {
		node.Vertices = make([][3]float32, vertexCount)
		for i := range node.Vertices {
			node.Vertices[i] = r.vec3()
		}
	}

	texCoordSize := rsmTexCoordV11
	if version.AtLeast(1, 2) {
		texCoordSize = rsmTexCoordV12
	}
	texCoordCount, ok := r.count(texCoordSize)
	if !ok {
		return fmt.Errorf("%w: texture coordinates", ErrTruncatedRSMData)
	}
	if texCoordCount > 0 {
		node.TexCoords = make([]RSMTexCoord, texCoordCount)
		for i := range node.TexCoords {
			tc := &node.TexCoords[i]
			if version.AtLeast(1, 2) {
				copy(tc.Color[:], r.take(4))
			} else {
				tc.Color = [4]uint8{255, 255, 255, 255}
			}
			tc.U = r.f32()
			tc.V = r.f32()
		}
	}

	faceSize := rsmFaceSizeV11
	if version.AtLeast(1, 2) {
		faceSize = rsmFaceSizeV12
	}
	faceCount, ok := r.count(faceSize)
	if !ok {
		return fmt.Errorf("%w: faces", ErrTruncatedRSMData)
	}
	if faceCount > 0 {
		node.Faces = make([]RSMFace, faceCount)
		for i := range node.Faces {
			face := &node.Faces[i]
			for j := range face.VertexIDs {
				face.VertexIDs[j] = r.u16()
			}
			for j := range face.TexCoordIDs {
				face.TexCoordIDs[j] = r.u16()
			}
			face.TextureID = r.u16()
			face.Padding = r.u16()
			face.TwoSide = r.i32()
			if version.AtLeast(1, 2) {
				face.SmoothGroup = r.i32()
			}
		}
	}

	// Position keyframes (v < 1.5)
	if !version.AtLeast(1, 5) {
		posKeyCount, ok := r.count(rsmPosKeySize)
		if !ok {
			return fmt.Errorf("%w: position keyframes", ErrTruncatedRSMData)
		}
		if posKeyCount > 0 {
			node.PosKeys = make([]RSMPosKeyframe, posKeyCount)
			for i := range node.PosKeys {
				node.PosKeys[i] = RSMPosKeyframe{Frame: r.i32(), Position: r.vec3()}
			}
		}
	}

	rotKeyCount, ok := r.count(rsmRotKeySize)
	if !ok {
		return fmt.Errorf("%w: rotation keyframes", ErrTruncatedRSMData)
	}
	if rotKeyCount > 0 {
		node.RotKeys = make([]RSMRotKeyframe, rotKeyCount)
		for i := range node.RotKeys {
			key := &node.RotKeys[i]
			key.Frame = r.i32()
			for j := range key.Quaternion {
				key.Quaternion[j] = r.f32()
			}
		}
	}

	// Scale keyframes (v >= 1.5)
	if version.AtLeast(1, 5) {
		scaleKeyCount, ok := r.count(rsmScaleKeySize)
		if !ok {
			return fmt.Errorf("%w: scale keyframes", ErrTruncatedRSMData)
		}
		if scaleKeyCount > 0 {
			node.ScaleKeys = make([]RSMScaleKeyframe, scaleKeyCount)
			for i := range node.ScaleKeys {
				node.ScaleKeys[i] = RSMScaleKeyframe{Frame: r.i32(), Scale: r.vec3()}
			}
		}
	}

	if r.truncated {
		return ErrTruncatedRSMData
	}
	return nil
}

// ParseRSMFile parses an RSM file from disk.
func ParseRSMFile(path string) (*RSM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading RSM file: %w", err)
	}
	return ParseRSM(data)
}

// GetTotalVertexCount returns the total number of vertices across all nodes.
func (rsm *RSM) GetTotalVertexCount() int {
	total := 0
	for _, node := range rsm.Nodes {
		total += len(node.Vertices)
	}
	return total
}

// GetTotalFaceCount returns the total number of faces across all nodes.
func (rsm *RSM) GetTotalFaceCount() int {
	total := 0
	for _, node := range rsm.Nodes {
		total += len(node.Faces)
	}
	return total
}

// GetNodeByName returns a node by its name, or nil if not found.
func (rsm *RSM) GetNodeByName(name string) *RSMNode {
	for i := range rsm.Nodes {
		if rsm.Nodes[i].Name == name {
			return &rsm.Nodes[i]
		}
	}
	return nil
}

// GetRootNode returns the root node (first node matching RootNode name).
func (rsm *RSM) GetRootNode() *RSMNode {
	return rsm.GetNodeByName(rsm.RootNode)
}

// GetChildNodes returns all nodes that have the given parent name.
func (rsm *RSM) GetChildNodes(parentName string) []*RSMNode {
	var children []*RSMNode
	for i := range rsm.Nodes {
		if rsm.Nodes[i].Parent == parentName {
			children = append(children, &rsm.Nodes[i])
		}
	}
	return children
}

// HasAnimation returns true if the model has any animation keyframes.
func (rsm *RSM) HasAnimation() bool {
	for _, node := range rsm.Nodes {
		if len(node.PosKeys) > 0 || len(node.RotKeys) > 0 || len(node.ScaleKeys) > 0 {
			return true
		}
	}
	return false
}
