package source

import (
	"testing"

	"github.com/Faultbox/objexport/pkg/formats"
	"github.com/Faultbox/objexport/pkg/math"
)

func TestInterpolateScaleKeys(t *testing.T) {
	keys := []formats.RSMScaleKeyframe{
		{Frame: 100, Scale: [3]float32{1, 1, 1}},
		{Frame: 200, Scale: [3]float32{3, 1, 1}},
	}

	tests := []struct {
		name   string
		keys   []formats.RSMScaleKeyframe
		timeMs float32
		want   math.Vec3
	}{
		{"no keys", nil, 0, math.Vec3{X: 1, Y: 1, Z: 1}},
		{"before first", keys, 0, math.Vec3{X: 1, Y: 1, Z: 1}},
		{"midway", keys, 150, math.Vec3{X: 2, Y: 1, Z: 1}},
		{"after last", keys, 500, math.Vec3{X: 3, Y: 1, Z: 1}},
		{"single key", keys[1:], 0, math.Vec3{X: 3, Y: 1, Z: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InterpolateScaleKeys(tt.keys, tt.timeMs); !near(got, tt.want) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestInterpolatePosKeys(t *testing.T) {
	keys := []formats.RSMPosKeyframe{
		{Frame: 0, Position: [3]float32{0, 0, 0}},
		{Frame: 10, Position: [3]float32{10, 20, 30}},
	}
	if got := InterpolatePosKeys(keys, 5); !near(got, math.Vec3{X: 5, Y: 10, Z: 15}) {
		t.Errorf("got %+v", got)
	}
	if got := InterpolatePosKeys(nil, 5); got != (math.Vec3{}) {
		t.Errorf("no keys = %+v", got)
	}
}

func TestInterpolateRotKeys(t *testing.T) {
	if got := InterpolateRotKeys(nil, 0); got != math.QuatIdentity() {
		t.Errorf("no keys = %+v", got)
	}
	keys := []formats.RSMRotKeyframe{{Frame: 0, Quaternion: [4]float32{0, 1, 0, 0}}}
	if got := InterpolateRotKeys(keys, 1000); got != (math.Quat{Y: 1}) {
		t.Errorf("single key = %+v", got)
	}
}

func TestAnimated(t *testing.T) {
	twoKeys := []formats.RSMRotKeyframe{{Frame: 0}, {Frame: 10}}

	tests := []struct {
		name string
		rsm  *formats.RSM
		want bool
	}{
		{"static", &formats.RSM{AnimLength: 100, Nodes: []formats.RSMNode{{}}}, false},
		{"single pose", &formats.RSM{AnimLength: 100, Nodes: []formats.RSMNode{{RotKeys: twoKeys[:1]}}}, false},
		{"no length", &formats.RSM{Nodes: []formats.RSMNode{{RotKeys: twoKeys}}}, false},
		{"animated", &formats.RSM{AnimLength: 100, Nodes: []formats.RSMNode{{RotKeys: twoKeys}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Animated(tt.rsm); got != tt.want {
				t.Errorf("Animated() = %v, want %v", got, tt.want)
			}
		})
	}
}
