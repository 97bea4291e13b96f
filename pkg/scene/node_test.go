package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keyAtX saves a keyframe at frame with the node positioned at (x, 0, 0).
func keyAtX(t *testing.T, n *Node, frame int, x float32) {
	t.Helper()
	n.Transform().SetPosition(x, 0, 0)
	require.NoError(t, n.SaveKeyframe(frame))
}

func TestNewNode(t *testing.T) {
	n := NewNode("Torso")
	assert.Equal(t, "Torso", n.Name)
	assert.NotEqual(t, uuid.Nil, n.ID)
	assert.Equal(t, NoFrame, n.LoadedFrame())
	assert.Equal(t, DefaultMaxFrames, n.MaxFrames())
	assert.Empty(t, n.Keyframes())
	assert.Equal(t, mgl32.Ident4(), n.World())
}

func TestSaveKeyframe(t *testing.T) {
	n := NewNode("n")
	keyAtX(t, n, 12, 3)

	assert.True(t, n.FrameIsKeyFrame(12))
	assert.False(t, n.FrameIsKeyFrame(11))
	assert.Equal(t, 12, n.LoadedFrame())

	k, ok := n.Keyframe(12)
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{3, 0, 0}, k.Position)
}

func TestSaveKeyframeOverwrites(t *testing.T) {
	n := NewNode("n")
	keyAtX(t, n, 5, 1)
	keyAtX(t, n, 5, 2)

	k, _ := n.Keyframe(5)
	assert.Equal(t, float32(2), k.Position.X())
	assert.Equal(t, []int{5}, n.Keyframes())
}

func TestSaveKeyframeOutOfRange(t *testing.T) {
	n := NewNode("n", WithMaxFrames(100))

	tests := []struct {
		frame   int
		wantErr bool
	}{
		{-1, true},
		{0, false},
		{100, false},
		{101, true},
	}
	for _, tt := range tests {
		err := n.SaveKeyframe(tt.frame)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrFrameOutOfRange, "frame %d", tt.frame)
			assert.False(t, n.FrameIsKeyFrame(tt.frame))
		} else {
			assert.NoError(t, err, "frame %d", tt.frame)
		}
	}
	assert.Equal(t, []int{0, 100}, n.Keyframes())
}

func TestSetKeyframe(t *testing.T) {
	n := NewNode("n", WithMaxFrames(10))
	k := Keyframe{Position: mgl32.Vec3{1, 2, 3}, Scale: mgl32.Vec3{1, 1, 1}}

	require.NoError(t, n.SetKeyframe(4, k))
	assert.ErrorIs(t, n.SetKeyframe(11, k), ErrFrameOutOfRange)

	got, ok := n.Keyframe(4)
	require.True(t, ok)
	assert.Equal(t, k, got)
	assert.Equal(t, NoFrame, n.LoadedFrame())
	assert.Equal(t, mgl32.Vec3{}, n.Transform().Position())
}

func TestRemoveKeyframeRoundTrip(t *testing.T) {
	n := NewNode("n")
	keyAtX(t, n, 7, 1)
	require.True(t, n.FrameIsKeyFrame(7))

	n.RemoveKeyframe(7)
	assert.False(t, n.FrameIsKeyFrame(7))

	// Removing a missing keyframe is a no-op.
	n.RemoveKeyframe(7)
	n.RemoveKeyframe(999)
	assert.Empty(t, n.Keyframes())
}

func TestKeyframesSorted(t *testing.T) {
	n := NewNode("n")
	for _, f := range []int{90, 0, 30, 120, 60} {
		require.NoError(t, n.SaveKeyframe(f))
	}
	assert.Equal(t, []int{0, 30, 60, 90, 120}, n.Keyframes())
}

func TestClearKeyframes(t *testing.T) {
	n := NewNode("n")
	keyAtX(t, n, 1, 1)
	keyAtX(t, n, 2, 2)
	n.ClearKeyframes()
	assert.Empty(t, n.Keyframes())
	assert.Equal(t, NoFrame, n.LoadedFrame())
}

func TestLoadFrameNoKeyframes(t *testing.T) {
	n := NewNode("n")
	n.Transform().SetPosition(4, 5, 6)

	n.LoadFrame(10)

	assert.Equal(t, mgl32.Vec3{4, 5, 6}, n.Transform().Position())
	assert.Equal(t, NoFrame, n.LoadedFrame())
}

func TestLoadFrameExactKey(t *testing.T) {
	n := NewNode("n")
	keyAtX(t, n, 0, 0)
	keyAtX(t, n, 10, 10)

	n.LoadFrame(0)
	assert.Equal(t, float32(0), n.Transform().Position().X())
	assert.Equal(t, 0, n.LoadedFrame())
}

func TestLoadFrameInterpolates(t *testing.T) {
	n := NewNode("n")
	keyAtX(t, n, 0, 0)
	keyAtX(t, n, 10, 10)

	n.LoadFrame(4)

	assertVec3(t, mgl32.Vec3{4, 0, 0}, n.Transform().Position())
	assert.Equal(t, 4, n.LoadedFrame())
	assert.True(t, n.Transform().Matrix().ApproxEqualThreshold(n.Local(), eps))
}

func TestLoadFrameNoBoundaryExtrapolation(t *testing.T) {
	n := NewNode("n")
	keyAtX(t, n, 10, 1)
	keyAtX(t, n, 50, 5)

	n.LoadFrame(5)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, n.Transform().Position())
	assert.Equal(t, 10, n.LoadedFrame())

	n.LoadFrame(55)
	assert.Equal(t, mgl32.Vec3{5, 0, 0}, n.Transform().Position())
	assert.Equal(t, 50, n.LoadedFrame())
}

func TestLoadFrameIdempotent(t *testing.T) {
	n := NewNode("n")
	keyAtX(t, n, 0, 0)
	keyAtX(t, n, 20, 8)

	n.LoadFrame(5)
	first := Snapshot(n.Transform())
	firstLocal := n.Local()

	n.LoadFrame(5)
	assert.Equal(t, first, Snapshot(n.Transform()))
	assert.Equal(t, firstLocal, n.Local())
	assert.Equal(t, 5, n.LoadedFrame())
}

func TestLoadFrameSameFrameIsNoOp(t *testing.T) {
	n := NewNode("n")
	keyAtX(t, n, 0, 0)
	keyAtX(t, n, 10, 10)
	n.LoadFrame(3)

	// A manual edit survives reloading the frame that is already loaded.
	n.Transform().SetPosition(100, 0, 0)
	n.LoadFrame(3)
	assert.Equal(t, float32(100), n.Transform().Position().X())

	n.LoadFrame(4)
	assertVec3(t, mgl32.Vec3{4, 0, 0}, n.Transform().Position())
}

func TestUnloadFrameForcesReload(t *testing.T) {
	n := NewNode("n")
	keyAtX(t, n, 0, 0)
	keyAtX(t, n, 10, 10)
	n.Transform().SetPosition(100, 0, 0)

	n.UnloadFrame()
	n.LoadFrame(10)

	assert.Equal(t, float32(10), n.Transform().Position().X())
}

func TestLoadFrameInterpolatesEveryChannel(t *testing.T) {
	n := NewNode("n")
	tr := n.Transform()
	tr.Restore(keyA)
	require.NoError(t, n.SaveKeyframe(0))
	tr.Restore(keyB)
	require.NoError(t, n.SaveKeyframe(4))

	n.LoadFrame(1)

	want := keyA.Lerp(keyB, 0.25)
	got := Snapshot(tr)
	assertVec3(t, want.Position, got.Position)
	assertVec3(t, want.Rotation, got.Rotation)
	assertVec3(t, want.Scale, got.Scale)
	assertVec3(t, want.Pivot, got.Pivot)
}

func TestNodesKeepIndependentKeyframes(t *testing.T) {
	a, b := NewNode("a"), NewNode("b")
	keyAtX(t, a, 3, 1)
	assert.True(t, a.FrameIsKeyFrame(3))
	assert.False(t, b.FrameIsKeyFrame(3))
}

func TestWorldMatrix(t *testing.T) {
	root := NewNode("root")
	child := NewNode("child")
	require.NoError(t, root.AddChild(child))

	root.Transform().SetPosition(1, 0, 0)
	child.Transform().SetPosition(0, 2, 0)
	assertVec3(t, mgl32.Vec3{1, 2, 0}, mgl32.TransformCoordinate(mgl32.Vec3{}, child.World()))

	// Changing an ancestor invalidates the cached child matrix.
	root.Transform().SetPosition(5, 0, 0)
	assertVec3(t, mgl32.Vec3{5, 2, 0}, mgl32.TransformCoordinate(mgl32.Vec3{}, child.World()))

	root.Transform().SetScale(2, 2, 2)
	assertVec3(t, mgl32.Vec3{5, 4, 0}, mgl32.TransformCoordinate(mgl32.Vec3{}, child.World()))
}

func TestAddChildReparents(t *testing.T) {
	a, b, c := NewNode("a"), NewNode("b"), NewNode("c")
	require.NoError(t, a.AddChild(c))
	require.NoError(t, b.AddChild(c))

	assert.Empty(t, a.Children())
	assert.Equal(t, []*Node{c}, b.Children())
	assert.Same(t, b, c.Parent())
}

func TestAddChildRejectsCycles(t *testing.T) {
	a, b := NewNode("a"), NewNode("b")
	require.NoError(t, a.AddChild(b))

	assert.ErrorIs(t, b.AddChild(a), ErrCycle)
	assert.ErrorIs(t, a.AddChild(a), ErrCycle)
	assert.Same(t, a, b.Parent())
	assert.Nil(t, a.Parent())
}

func TestRemoveChild(t *testing.T) {
	a, b, c := NewNode("a"), NewNode("b"), NewNode("c")
	require.NoError(t, a.AddChild(b))
	require.NoError(t, a.AddChild(c))

	assert.True(t, a.RemoveChild(b))
	assert.False(t, a.RemoveChild(b))
	assert.Nil(t, b.Parent())
	assert.Equal(t, []*Node{c}, a.Children())

	c.Remove()
	assert.Empty(t, a.Children())
}

func TestReplaceWithKeepsSlot(t *testing.T) {
	root := NewNode("root")
	first, mid, last := NewNode("first"), NewNode("mid"), NewNode("last")
	for _, n := range []*Node{first, mid, last} {
		require.NoError(t, root.AddChild(n))
	}
	wrapper := NewNode("wrapper")

	require.NoError(t, mid.ReplaceWith(wrapper))

	assert.Equal(t, []*Node{first, wrapper, last}, root.Children())
	assert.Same(t, root, wrapper.Parent())
	assert.Nil(t, mid.Parent())
}

func TestReplaceWithRejectsAncestor(t *testing.T) {
	root := NewNode("root")
	parent, child := NewNode("parent"), NewNode("child")
	require.NoError(t, root.AddChild(parent))
	require.NoError(t, parent.AddChild(child))

	assert.ErrorIs(t, child.ReplaceWith(parent), ErrCycle)
	assert.ErrorIs(t, child.ReplaceWith(root), ErrCycle)

	// Nothing moved.
	assert.Same(t, parent, child.Parent())
	assert.Same(t, root, parent.Parent())
	assert.Equal(t, []*Node{parent}, root.Children())
	assert.Nil(t, root.Parent())
}

func TestForEachAncestorsFirst(t *testing.T) {
	root := NewNode("root")
	a, b := NewNode("a"), NewNode("b")
	a1, b1 := NewNode("a1"), NewNode("b1")
	require.NoError(t, root.AddChild(a))
	require.NoError(t, root.AddChild(b))
	require.NoError(t, a.AddChild(a1))
	require.NoError(t, b.AddChild(b1))

	var names []string
	root.ForEach(func(n *Node) { names = append(names, n.Name) })
	assert.Equal(t, []string{"root", "a", "b", "a1", "b1"}, names)
}

func TestFind(t *testing.T) {
	root := NewNode("root")
	a := NewNode("a")
	deep := NewNode("deep")
	require.NoError(t, root.AddChild(a))
	require.NoError(t, a.AddChild(deep))

	assert.Same(t, deep, root.Find("deep"))
	assert.Same(t, deep, root.FindByID(deep.ID))
	assert.Nil(t, root.Find("missing"))
	assert.Nil(t, a.Find("root"))
}
