package source

import (
	"github.com/Faultbox/objexport/pkg/formats"
	"github.com/Faultbox/objexport/pkg/math"
)

// bracket returns the keys surrounding timeMs and the blend factor between
// them. frame(i) must be non-decreasing. prev == next means no blending.
func bracket(n int, frame func(int) int32, timeMs float32) (prev, next int, t float32) {
	for i := 0; i < n; i++ {
		if float32(frame(i)) > timeMs {
			next = i
			if i == 0 {
				return 0, 0, 0
			}
			break
		}
		prev = i
		next = i
	}
	if prev == next {
		return prev, next, 0
	}
	f0, f1 := frame(prev), frame(next)
	if f1 != f0 {
		t = (timeMs - float32(f0)) / float32(f1-f0)
	}
	return prev, next, t
}

// InterpolateRotKeys interpolates rotation keyframes at the given time.
func InterpolateRotKeys(keys []formats.RSMRotKeyframe, timeMs float32) math.Quat {
	if len(keys) == 0 {
		return math.QuatIdentity()
	}
	prev, next, t := bracket(len(keys), func(i int) int32 { return keys[i].Frame }, timeMs)
	q0 := math.QuatFromArray(keys[prev].Quaternion)
	if prev == next {
		return q0
	}
	return q0.Slerp(math.QuatFromArray(keys[next].Quaternion), t)
}

// InterpolateScaleKeys interpolates scale keyframes at the given time.
func InterpolateScaleKeys(keys []formats.RSMScaleKeyframe, timeMs float32) math.Vec3 {
	if len(keys) == 0 {
		return math.Vec3{X: 1, Y: 1, Z: 1}
	}
	prev, next, t := bracket(len(keys), func(i int) int32 { return keys[i].Frame }, timeMs)
	return math.LerpVec3(math.V3(keys[prev].Scale), math.V3(keys[next].Scale), t)
}

// InterpolatePosKeys interpolates position keyframes at the given time.
func InterpolatePosKeys(keys []formats.RSMPosKeyframe, timeMs float32) math.Vec3 {
	if len(keys) == 0 {
		return math.Vec3{}
	}
	prev, next, t := bracket(len(keys), func(i int) int32 { return keys[i].Frame }, timeMs)
	return math.LerpVec3(math.V3(keys[prev].Position), math.V3(keys[next].Position), t)
}

// Animated reports whether the model has a real animation: a positive
// length and a node with more than one keyframe on some channel. A single
// keyframe is a static pose.
func Animated(rsm *formats.RSM) bool {
	if rsm.AnimLength <= 0 {
		return false
	}
	for i := range rsm.Nodes {
		node := &rsm.Nodes[i]
		if len(node.RotKeys) > 1 || len(node.PosKeys) > 1 || len(node.ScaleKeys) > 1 {
			return true
		}
	}
	return false
}
