package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Target receives the local matrix whenever a Transform changes.
// Node is the only production implementation.
type Target interface {
	SetLocal(m mgl32.Mat4)
}

// Transform holds the four animatable vectors of a node and keeps the node's
// local matrix in sync with them. Rotation is in radians, applied X then Y
// then Z about the pivot.
type Transform struct {
	position mgl32.Vec3
	rotation mgl32.Vec3
	scale    mgl32.Vec3
	pivot    mgl32.Vec3

	target Target // not owned
}

// NewTransform returns an identity transform (scale 1) bound to target and
// pushes its matrix once. target may be nil.
func NewTransform(target Target) *Transform {
	t := &Transform{
		scale:  mgl32.Vec3{1, 1, 1},
		target: target,
	}
	t.Apply()
	return t
}

// SetPosition sets the translation and pushes the new matrix.
func (t *Transform) SetPosition(x, y, z float32) {
	t.position = mgl32.Vec3{x, y, z}
	t.Apply()
}

// SetRotation sets the Euler angles in radians, applied X then Y then Z.
func (t *Transform) SetRotation(x, y, z float32) {
	t.rotation = mgl32.Vec3{x, y, z}
	t.Apply()
}

// SetScale sets the per-axis scale.
func (t *Transform) SetScale(x, y, z float32) {
	t.scale = mgl32.Vec3{x, y, z}
	t.Apply()
}

// SetPivot sets the point, in local space, that rotation turns about.
func (t *Transform) SetPivot(x, y, z float32) {
	t.pivot = mgl32.Vec3{x, y, z}
	t.Apply()
}

// Position returns the translation.
func (t *Transform) Position() mgl32.Vec3 { return t.position }

// Rotation returns the Euler angles in radians.
func (t *Transform) Rotation() mgl32.Vec3 { return t.rotation }

// Scale returns the per-axis scale.
func (t *Transform) Scale() mgl32.Vec3 { return t.scale }

// Pivot returns the rotation pivot.
func (t *Transform) Pivot() mgl32.Vec3 { return t.pivot }

// Restore replaces all four vectors from k and pushes the matrix once.
func (t *Transform) Restore(k Keyframe) {
	t.position = k.Position
	t.rotation = k.Rotation
	t.scale = k.Scale
	t.pivot = k.Pivot
	t.Apply()
}

// Apply pushes the current matrix to the target.
func (t *Transform) Apply() {
	if t.target != nil {
		t.target.SetLocal(t.Matrix())
	}
}

// Matrix returns the local matrix
//
//	T(position) · T(pivot) · Rx · Ry · Rz · T(-pivot) · S(scale)
//
// so scale is applied first and rotation happens about the pivot.
func (t *Transform) Matrix() mgl32.Mat4 {
	return composeMatrix(t.position, t.rotation, t.scale, t.pivot)
}

func composeMatrix(position, rotation, scale, pivot mgl32.Vec3) mgl32.Mat4 {
	return mgl32.Translate3D(position.X(), position.Y(), position.Z()).
		Mul4(mgl32.Translate3D(pivot.X(), pivot.Y(), pivot.Z())).
		Mul4(mgl32.HomogRotate3DX(rotation.X())).
		Mul4(mgl32.HomogRotate3DY(rotation.Y())).
		Mul4(mgl32.HomogRotate3DZ(rotation.Z())).
		Mul4(mgl32.Translate3D(-pivot.X(), -pivot.Y(), -pivot.Z())).
		Mul4(mgl32.Scale3D(scale.X(), scale.Y(), scale.Z()))
}
