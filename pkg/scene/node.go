// Package scene implements the animatable scene tree: per-node transforms,
// keyframe storage and frame resolution, and lazily cached world matrices.
//
// The package holds no locks. Callers that share a tree between goroutines
// must serialize access themselves.
package scene

import (
	"sort"

	"github.com/chazu/mannequin/pkg/kernel"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// DefaultMaxFrames is the highest frame number a keyframe may be saved at
// unless a node is built WithMaxFrames.
const DefaultMaxFrames = 1000

// NoFrame is the loaded-frame value of a node that has not resolved a frame.
const NoFrame = -1

var (
	// ErrFrameOutOfRange is returned when a keyframe is saved outside
	// [0, MaxFrames].
	ErrFrameOutOfRange = errors.New("frame out of range")

	// ErrCycle is returned by AddChild when the child is the node itself or
	// one of its ancestors.
	ErrCycle = errors.New("child would create a cycle")
)

// Material is the shared surface description handed to every generated
// mesh node.
type Material struct {
	Name  string     `json:"name" yaml:"name"`
	Color [4]float32 `json:"color" yaml:"color"`
}

// Node is one element of the scene tree. It owns its transform, its
// keyframes and its children; the parent pointer is a back reference.
type Node struct {
	ID       uuid.UUID
	Name     string
	Mesh     *kernel.Mesh // nil for grouping nodes
	Material *Material    // shared, not owned

	transform   *Transform
	keyframes   map[int]Keyframe
	loadedFrame int
	maxFrames   int

	local      mgl32.Mat4
	world      mgl32.Mat4
	worldDirty bool

	parent   *Node
	children []*Node
}

// Option configures a Node at construction.
type Option func(*Node)

// WithMesh attaches geometry to the node.
func WithMesh(m *kernel.Mesh) Option {
	return func(n *Node) { n.Mesh = m }
}

// WithMaterial sets the node's shared material.
func WithMaterial(mat *Material) Option {
	return func(n *Node) { n.Material = mat }
}

// WithMaxFrames sets the highest frame a keyframe may be saved at.
func WithMaxFrames(max int) Option {
	return func(n *Node) { n.maxFrames = max }
}

// WithID overrides the generated node id.
func WithID(id uuid.UUID) Option {
	return func(n *Node) { n.ID = id }
}

// NewNode returns a detached node with an identity transform and no
// keyframes.
func NewNode(name string, opts ...Option) *Node {
	n := &Node{
		ID:          uuid.New(),
		Name:        name,
		keyframes:   make(map[int]Keyframe),
		loadedFrame: NoFrame,
		maxFrames:   DefaultMaxFrames,
		local:       mgl32.Ident4(),
		world:       mgl32.Ident4(),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.transform = NewTransform(n)
	return n
}

// Transform returns the node's live transform.
func (n *Node) Transform() *Transform { return n.transform }

// SetLocal implements Target.
func (n *Node) SetLocal(m mgl32.Mat4) {
	n.local = m
	n.markDirty()
}

// Local returns the node's local matrix.
func (n *Node) Local() mgl32.Mat4 { return n.local }

// World returns the product of every ancestor's local matrix and this
// node's own, recomputing only when something on the path changed.
func (n *Node) World() mgl32.Mat4 {
	if n.worldDirty {
		if n.parent != nil {
			n.world = n.parent.World().Mul4(n.local)
		} else {
			n.world = n.local
		}
		n.worldDirty = false
	}
	return n.world
}

func (n *Node) markDirty() {
	n.worldDirty = true
	for _, c := range n.children {
		c.markDirty()
	}
}

// ---------------------------------------------------------------------------
// Keyframes
// ---------------------------------------------------------------------------

// MaxFrames returns the highest frame a keyframe may be saved at.
func (n *Node) MaxFrames() int { return n.maxFrames }

// SetMaxFrames changes the frame bound. Existing keyframes are kept even if
// they now fall outside it; Validate reports them.
func (n *Node) SetMaxFrames(max int) { n.maxFrames = max }

// LoadedFrame returns the frame the transform was last resolved to, or
// NoFrame.
func (n *Node) LoadedFrame() int { return n.loadedFrame }

// SaveKeyframe snapshots the live transform at frame, overwriting any
// existing keyframe there.
func (n *Node) SaveKeyframe(frame int) error {
	if frame < 0 || frame > n.maxFrames {
		return errors.Wrapf(ErrFrameOutOfRange, "node %q: frame %d not in [0, %d]", n.Name, frame, n.maxFrames)
	}
	n.keyframes[frame] = Snapshot(n.transform)
	n.loadedFrame = frame
	return nil
}

// SetKeyframe stores k at frame without touching the live transform or the
// loaded frame.
func (n *Node) SetKeyframe(frame int, k Keyframe) error {
	if frame < 0 || frame > n.maxFrames {
		return errors.Wrapf(ErrFrameOutOfRange, "node %q: frame %d not in [0, %d]", n.Name, frame, n.maxFrames)
	}
	n.keyframes[frame] = k
	return nil
}

// RemoveKeyframe deletes the keyframe at frame if there is one.
func (n *Node) RemoveKeyframe(frame int) {
	delete(n.keyframes, frame)
}

// FrameIsKeyFrame reports whether a keyframe is stored at frame.
func (n *Node) FrameIsKeyFrame(frame int) bool {
	_, ok := n.keyframes[frame]
	return ok
}

// Keyframe returns the snapshot stored at frame.
func (n *Node) Keyframe(frame int) (Keyframe, bool) {
	k, ok := n.keyframes[frame]
	return k, ok
}

// Keyframes returns the keyed frames in ascending order.
func (n *Node) Keyframes() []int {
	frames := lo.Keys(n.keyframes)
	sort.Ints(frames)
	return frames
}

// UnloadFrame forgets the loaded frame so the next LoadFrame resolves even
// if it asks for the same frame again.
func (n *Node) UnloadFrame() {
	n.loadedFrame = NoFrame
}

// ClearKeyframes drops every keyframe and forgets the loaded frame.
func (n *Node) ClearKeyframes() {
	n.keyframes = make(map[int]Keyframe)
	n.loadedFrame = NoFrame
}

// LoadFrame resolves the transform for frame:
//
//   - a keyframe at frame is restored as is;
//   - between two keyframes the surrounding pair is interpolated linearly;
//   - before the first or after the last keyframe the nearest one holds,
//     and the loaded frame records that keyframe rather than frame.
//
// Nodes without keyframes, and repeated loads of the same frame, are left
// untouched.
func (n *Node) LoadFrame(frame int) {
	if len(n.keyframes) == 0 || frame == n.loadedFrame {
		return
	}
	if k, ok := n.keyframes[frame]; ok {
		n.transform.Restore(k)
		n.loadedFrame = frame
		return
	}

	prev, next := NoFrame, NoFrame
	for f := range n.keyframes {
		if f < frame && f > prev {
			prev = f
		}
		if f > frame && f <= n.maxFrames && (next == NoFrame || f < next) {
			next = f
		}
	}

	switch {
	case prev == NoFrame && next == NoFrame:
		n.transform.Apply()
		n.loadedFrame = NoFrame
	case prev == NoFrame:
		n.transform.Restore(n.keyframes[next])
		n.loadedFrame = next
	case next == NoFrame:
		n.transform.Restore(n.keyframes[prev])
		n.loadedFrame = prev
	default:
		alpha := float32(frame-prev) / float32(next-prev)
		n.transform.Restore(n.keyframes[prev].Lerp(n.keyframes[next], alpha))
		n.loadedFrame = frame
	}
}

// ---------------------------------------------------------------------------
// Hierarchy
// ---------------------------------------------------------------------------

// Parent returns the node's parent, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns a copy of the ordered child list.
func (n *Node) Children() []*Node {
	return append([]*Node(nil), n.children...)
}

// IsAncestorOf reports whether n is other or one of its ancestors.
func (n *Node) IsAncestorOf(other *Node) bool {
	for p := other; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

// AddChild appends child, detaching it from any previous parent first.
func (n *Node) AddChild(child *Node) error {
	if child.IsAncestorOf(n) {
		return errors.Wrapf(ErrCycle, "add %q under %q", child.Name, n.Name)
	}
	child.Remove()
	child.parent = n
	n.children = append(n.children, child)
	child.markDirty()
	return nil
}

// RemoveChild detaches child and reports whether it was a child of n.
func (n *Node) RemoveChild(child *Node) bool {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil
			child.markDirty()
			return true
		}
	}
	return false
}

// Remove detaches n from its parent.
func (n *Node) Remove() {
	if n.parent != nil {
		n.parent.RemoveChild(n)
	}
}

// ReplaceWith puts other into n's slot in n's parent, keeping the sibling
// order, and detaches n. Nothing happens when n has no parent. other may not
// be an ancestor of n.
func (n *Node) ReplaceWith(other *Node) error {
	p := n.parent
	if p == nil || other == n {
		return nil
	}
	if other.IsAncestorOf(n) {
		return errors.Wrapf(ErrCycle, "replace %q with its ancestor %q", n.Name, other.Name)
	}
	other.Remove()
	for i, c := range p.children {
		if c == n {
			p.children[i] = other
			break
		}
	}
	other.parent = p
	n.parent = nil
	other.markDirty()
	n.markDirty()
	return nil
}

// ForEach visits n and its descendants breadth-first, so every node is
// visited after all of its ancestors.
func (n *Node) ForEach(fn func(*Node)) {
	queue := []*Node{n}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		fn(cur)
		queue = append(queue, cur.children...)
	}
}

// Find returns the first node named name in breadth-first order, or nil.
func (n *Node) Find(name string) *Node {
	return n.find(func(c *Node) bool { return c.Name == name })
}

// FindByID returns the node with the given id, or nil.
func (n *Node) FindByID(id uuid.UUID) *Node {
	return n.find(func(c *Node) bool { return c.ID == id })
}

func (n *Node) find(match func(*Node) bool) *Node {
	queue := []*Node{n}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if match(cur) {
			return cur
		}
		queue = append(queue, cur.children...)
	}
	return nil
}

// finite reports whether every component of v is a real number.
func finite(v mgl32.Vec3) bool {
	for _, c := range v {
		if math32.IsNaN(c) || math32.IsInf(c, 0) {
			return false
		}
	}
	return true
}
