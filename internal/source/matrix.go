package source

import (
	"github.com/Faultbox/objexport/pkg/formats"
	"github.com/Faultbox/objexport/pkg/math"
)

// NodeMatrix builds the transform that takes a node's vertices into model
// space at animation time timeMs: the inherited hierarchy matrix followed by
// the node's own offset and 3x3 matrix, which children do not inherit.
func NodeMatrix(node *formats.RSMNode, rsm *formats.RSM, timeMs float32) math.Mat4 {
	visited := make(map[string]bool)
	m := hierarchyMatrix(node, rsm, timeMs, visited)
	m = m.Mul(math.Translate(math.V3(node.Offset)))
	return m.Mul(math.FromMat3x3(node.Matrix))
}

// hierarchyMatrix returns parent * Position * Rotation * Scale.
func hierarchyMatrix(node *formats.RSMNode, rsm *formats.RSM, timeMs float32, visited map[string]bool) math.Mat4 {
	// Cyclic parent chains
	if visited[node.Name] {
		return math.Identity()
	}
	visited[node.Name] = true

	position := math.V3(node.Position)
	if len(node.PosKeys) > 0 {
		position = InterpolatePosKeys(node.PosKeys, timeMs)
	}
	local := math.Translate(position)

	// Axis-angle rotation or keyframes, never both.
	if len(node.RotKeys) > 0 {
		local = local.Mul(InterpolateRotKeys(node.RotKeys, timeMs).ToMat4())
	} else if node.RotAngle != 0 {
		axis := math.V3(node.RotAxis)
		if axis.Length() > 1e-6 {
			local = local.Mul(math.RotateAxis(axis.Normalize(), node.RotAngle))
		}
	}

	local = local.Mul(math.Scale(math.V3(node.Scale)))
	if len(node.ScaleKeys) > 0 {
		local = local.Mul(math.Scale(InterpolateScaleKeys(node.ScaleKeys, timeMs)))
	}

	if node.Parent != "" && node.Parent != node.Name {
		if parent := rsm.GetNodeByName(node.Parent); parent != nil {
			return hierarchyMatrix(parent, rsm, timeMs, visited).Mul(local)
		}
	}
	return local
}
