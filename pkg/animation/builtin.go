package animation

import (
	"github.com/chazu/mannequin/pkg/figure"
	"github.com/chazu/mannequin/pkg/scene"
)

func init() {
	Register(NewFunc("walk", walk))
	Register(NewFunc("wave", wave))
}

// walkFrames are the keyed frames of one walk cycle; the last matches the
// first so playback loops cleanly.
var walkFrames = []int{0, 30, 60, 90, 120}

// walk swings arms and legs in opposition and bobs the torso.
func walk(f *figure.Figure) error {
	swing := []float32{0, 0.5, 0, -0.5, 0}
	bob := []float32{0, -0.05, 0, -0.05, 0}

	for i, frame := range walkFrames {
		s := swing[i]
		steps := []struct {
			joint string
			edit  func(k *scene.Keyframe)
		}{
			{figure.LeftArm, func(k *scene.Keyframe) { k.Rotation[0] += s }},
			{figure.RightArm, func(k *scene.Keyframe) { k.Rotation[0] -= s }},
			{figure.LeftLeg, func(k *scene.Keyframe) { k.Rotation[0] -= 0.8 * s }},
			{figure.RightLeg, func(k *scene.Keyframe) { k.Rotation[0] += 0.8 * s }},
			{figure.Torso, func(k *scene.Keyframe) { k.Position[1] += bob[i] }},
		}
		for _, st := range steps {
			if err := key(f, st.joint, frame, st.edit); err != nil {
				return err
			}
		}
	}
	return nil
}

// wave raises the right arm about its shoulder pivot, waves the hand and
// tilts the head.
func wave(f *figure.Figure) error {
	const raised = 2.6

	arm := []struct {
		frame int
		z     float32
	}{
		{0, 0}, {20, raised}, {60, raised}, {80, 0},
	}
	for _, a := range arm {
		z := a.z
		if err := key(f, figure.RightArm, a.frame, func(k *scene.Keyframe) {
			k.Rotation[2] += z
			// Swing from the top of the shoulder rather than its centre.
			k.Pivot[0] -= 0.1 * z / raised
		}); err != nil {
			return err
		}
	}

	hand := []struct {
		frame int
		z     float32
	}{
		{20, 0}, {30, 0.5}, {40, -0.5}, {50, 0.5}, {60, 0},
	}
	for _, h := range hand {
		z := h.z
		if err := key(f, figure.RightHand, h.frame, func(k *scene.Keyframe) { k.Rotation[2] += z }); err != nil {
			return err
		}
	}

	for _, h := range []struct {
		frame int
		z     float32
	}{{0, 0}, {30, 0.15}, {80, 0}} {
		z := h.z
		if err := key(f, figure.Head, h.frame, func(k *scene.Keyframe) { k.Rotation[2] += z }); err != nil {
			return err
		}
	}
	return nil
}
