package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Keyframe is an immutable snapshot of a Transform's four vectors.
type Keyframe struct {
	Position mgl32.Vec3 `json:"position"`
	Rotation mgl32.Vec3 `json:"rotation"`
	Scale    mgl32.Vec3 `json:"scale"`
	Pivot    mgl32.Vec3 `json:"pivot"`
}

// Snapshot copies the current state of t.
func Snapshot(t *Transform) Keyframe {
	return Keyframe{
		Position: t.position,
		Rotation: t.rotation,
		Scale:    t.scale,
		Pivot:    t.pivot,
	}
}

// Lerp blends k toward o component by component. alpha is not clamped, so
// values outside [0, 1] extrapolate. Rotations blend as plain Euler angles.
func (k Keyframe) Lerp(o Keyframe, alpha float32) Keyframe {
	return Keyframe{
		Position: lerp3(k.Position, o.Position, alpha),
		Rotation: lerp3(k.Rotation, o.Rotation, alpha),
		Scale:    lerp3(k.Scale, o.Scale, alpha),
		Pivot:    lerp3(k.Pivot, o.Pivot, alpha),
	}
}

// Matrix returns the local matrix a transform restored from k would have.
func (k Keyframe) Matrix() mgl32.Mat4 {
	return composeMatrix(k.Position, k.Rotation, k.Scale, k.Pivot)
}

func lerp3(a, b mgl32.Vec3, alpha float32) mgl32.Vec3 {
	return mgl32.Vec3{
		a[0]*(1-alpha) + b[0]*alpha,
		a[1]*(1-alpha) + b[1]*alpha,
		a[2]*(1-alpha) + b[2]*alpha,
	}
}
