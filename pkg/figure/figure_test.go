package figure

import (
	"testing"

	"github.com/chazu/mannequin/pkg/kernel"
	_ "github.com/chazu/mannequin/pkg/kernel/sdfx"
	"github.com/chazu/mannequin/pkg/scene"
	"github.com/chazu/mannequin/pkg/shapes"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assemble(t *testing.T) *Figure {
	t.Helper()
	return Assemble(shapes.DefaultContext(), Options{CylinderSlices: 8, SphereSlices: 8, SphereStacks: 4})
}

var allJoints = []string{
	Torso, Head, Collar, Hips,
	LeftArm, RightArm, LeftHand, RightHand,
	LeftLeg, RightLeg, LeftFoot, RightFoot,
}

func TestJointNames(t *testing.T) {
	f := assemble(t)
	assert.Equal(t, allJoints, f.JointNames())
	for _, name := range allJoints {
		j, err := f.Joint(name)
		require.NoError(t, err, name)
		assert.NotNil(t, j)
	}
}

func TestUnknownJoint(t *testing.T) {
	f := assemble(t)
	_, err := f.Joint("Tail")
	assert.ErrorIs(t, err, ErrUnknownJoint)
	_, err = f.Part("Tail")
	assert.ErrorIs(t, err, ErrUnknownJoint)
	assert.Panics(t, func() { f.MustJoint("Tail") })
}

func TestHierarchy(t *testing.T) {
	f := assemble(t)

	assert.Equal(t, RootName, f.Root.Name)
	require.Len(t, f.Root.Children(), 1)
	torso := f.MustJoint(Torso)
	assert.Equal(t, "Torso Pivot", torso.Name)
	assert.Same(t, f.Root, torso.Parent())

	arm := f.MustJoint(LeftArm)
	assert.Equal(t, "Left Arm Pivot", arm.Name)
	assert.Same(t, torso, arm.Parent())

	// The hand hangs from the arm wrapper, next to the arm mesh.
	armPart, err := f.Part(LeftArm)
	require.NoError(t, err)
	hand := f.MustJoint(LeftHand)
	assert.Equal(t, []*scene.Node{armPart, hand}, arm.Children())

	// Head and feet are not isolated.
	assert.Equal(t, Head, f.MustJoint(Head).Name)
	foot := f.MustJoint(LeftFoot)
	assert.Equal(t, LeftFoot, foot.Name)
	assert.Same(t, f.MustJoint(LeftLeg), foot.Parent())

	// Root, twelve parts, nine wrappers.
	assert.Len(t, f.Nodes(), 22)
}

func TestOwns(t *testing.T) {
	f := assemble(t)
	for _, n := range f.Nodes() {
		assert.True(t, f.Owns(n), "%s", n.Name)
	}

	extra := scene.NewNode("Prop")
	require.NoError(t, f.MustJoint(LeftHand).AddChild(extra))
	assert.False(t, f.Owns(extra))
	assert.False(t, f.Owns(scene.NewNode("Loose")))
	assert.False(t, f.Owns(nil))
}

func TestPartsCarryMeshes(t *testing.T) {
	f := assemble(t)
	for _, name := range allJoints {
		p, err := f.Part(name)
		require.NoError(t, err)
		require.NotNil(t, p.Mesh, name)
		assert.Equal(t, name, p.Mesh.PartName)
	}
	torso, _ := f.Part(Torso)
	assert.Equal(t, 2*8+2, torso.Mesh.VertexCount())
	head, _ := f.Part(Head)
	assert.Equal(t, 8*3+2, head.Mesh.VertexCount())
	foot, _ := f.Part(LeftFoot)
	assert.Equal(t, 8, foot.Mesh.VertexCount())
}

func TestIsolatedPartsKeepOnlyScale(t *testing.T) {
	f := assemble(t)
	for _, name := range []string{Torso, Collar, Hips, LeftArm, RightArm, LeftHand, RightHand, LeftLeg, RightLeg} {
		p, _ := f.Part(name)
		tr := p.Transform()
		assert.Equal(t, mgl32.Vec3{}, tr.Position(), name)
		assert.Equal(t, mgl32.Vec3{}, tr.Rotation(), name)
		assert.Equal(t, mgl32.Vec3{}, tr.Pivot(), name)
		assert.NotEqual(t, mgl32.Vec3{1, 1, 1}, tr.Scale(), name)
		assert.Equal(t, mgl32.Vec3{1, 1, 1}, f.MustJoint(name).Transform().Scale(), name)
	}
}

func TestChildrenDoNotInheritScale(t *testing.T) {
	f := assemble(t)
	arm := f.MustJoint(RightArm)
	hand := f.MustJoint(RightHand)

	want := arm.World().Mul4(mgl32.Translate3D(0, -0.85, 0))
	assert.True(t, want.ApproxEqualThreshold(hand.World(), 1e-5))
}

func TestArmPivotsAtShoulder(t *testing.T) {
	f := assemble(t)
	arm := f.MustJoint(LeftArm)
	shoulder := mgl32.TransformCoordinate(mgl32.Vec3{0, 0.7, 0}, arm.Local())

	arm.Transform().SetRotation(1.2, 0, 0.3)
	moved := mgl32.TransformCoordinate(mgl32.Vec3{0, 0.7, 0}, arm.Local())
	assert.True(t, shoulder.ApproxEqualThreshold(moved, 1e-5))
}

func TestResetPose(t *testing.T) {
	f := assemble(t)
	arm := f.MustJoint(LeftArm)
	rest, ok := f.Rest(LeftArm)
	require.True(t, ok)

	arm.Transform().SetRotation(1, 2, 3)
	require.NoError(t, arm.SaveKeyframe(5))
	f.ResetPose()

	assert.Equal(t, rest, scene.Snapshot(arm.Transform()))
	assert.True(t, arm.FrameIsKeyFrame(5))

	f.ClearAnimation()
	assert.Empty(t, arm.Keyframes())
}

func TestFigureValidates(t *testing.T) {
	f := assemble(t)
	assert.Empty(t, scene.Validate(f.Root))
}

func TestRoundedLimbs(t *testing.T) {
	f := Assemble(shapes.DefaultContext(), Options{CylinderSlices: 10, LimbKind: "rounded-cylinder"})
	arm, _ := f.Part(LeftArm)
	assert.False(t, arm.Mesh.IsEmpty())
	assert.Equal(t, LeftArm, arm.Mesh.PartName)
}

func TestUnknownLimbKindFallsBack(t *testing.T) {
	logger, hook := test.NewNullLogger()
	ctx := shapes.DefaultContext()
	ctx.Logger = logger

	f := Assemble(ctx, Options{LimbKind: "noodle"})
	arm, _ := f.Part(LeftArm)
	assert.Equal(t, 2*kernel.DefaultSlices+2, arm.Mesh.VertexCount())
	require.NotNil(t, hook.LastEntry())
	assert.Contains(t, hook.LastEntry().Message, "limb shape unavailable")
}
