// Package figure assembles the articulated mannequin from procedural shapes.
package figure

import (
	"github.com/chazu/mannequin/pkg/kernel"
	"github.com/chazu/mannequin/pkg/scene"
	"github.com/chazu/mannequin/pkg/shapes"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// RootName is the name of the figure's top grouping node.
const RootName = "Figure"

// Joint names.
const (
	Torso     = "Torso"
	Head      = "Head"
	Collar    = "Collar"
	Hips      = "Hips"
	LeftArm   = "Left Arm"
	RightArm  = "Right Arm"
	LeftHand  = "Left Hand"
	RightHand = "Right Hand"
	LeftLeg   = "Left Leg"
	RightLeg  = "Right Leg"
	LeftFoot  = "Left Foot"
	RightFoot = "Right Foot"
)

// ErrUnknownJoint is returned when a joint name is not part of the figure.
var ErrUnknownJoint = errors.New("unknown joint")

// Options controls tessellation detail and the shape used for limbs.
// Zero values select the kernel defaults.
type Options struct {
	CylinderSlices int
	SphereSlices   int
	SphereStacks   int

	// LimbKind is the shape kind used for torso, collar, hips, arms and
	// legs. Empty selects kernel.KindCylinder.
	LimbKind kernel.Kind
}

// Figure is an assembled mannequin. Joints are the nodes animation scripts
// drive: the scale-isolation wrapper for isolated parts, the part itself
// otherwise.
type Figure struct {
	Root *scene.Node

	order  []string
	joints map[string]*scene.Node
	parts  map[string]*scene.Node
	rest   map[string]scene.Keyframe
}

// Joint returns the node that carries the named joint's motion.
func (f *Figure) Joint(name string) (*scene.Node, error) {
	n, ok := f.joints[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownJoint, "%q", name)
	}
	return n, nil
}

// MustJoint is like Joint but panics on unknown names. Only pass it the
// joint constants above.
func (f *Figure) MustJoint(name string) *scene.Node {
	n, err := f.Joint(name)
	if err != nil {
		panic(err)
	}
	return n
}

// Part returns the mesh node of the named joint.
func (f *Figure) Part(name string) (*scene.Node, error) {
	n, ok := f.parts[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownJoint, "%q", name)
	}
	return n, nil
}

// JointNames lists the joints in assembly order.
func (f *Figure) JointNames() []string {
	return append([]string(nil), f.order...)
}

// Nodes returns every node of the figure, ancestors first.
func (f *Figure) Nodes() []*scene.Node {
	var nodes []*scene.Node
	f.Root.ForEach(func(n *scene.Node) { nodes = append(nodes, n) })
	return nodes
}

// Owns reports whether n is part of the figure's own structure: the root,
// a joint, a part or a scale-isolation wrapper between them. Nodes added
// under a joint later are not owned.
func (f *Figure) Owns(n *scene.Node) bool {
	if n == nil {
		return false
	}
	if n == f.Root {
		return true
	}
	for _, set := range []map[string]*scene.Node{f.joints, f.parts} {
		for _, m := range set {
			for p := m; p != nil && p != f.Root; p = p.Parent() {
				if p == n {
					return true
				}
			}
		}
	}
	return false
}

// Rest returns the named joint's pose at assembly.
func (f *Figure) Rest(name string) (scene.Keyframe, bool) {
	k, ok := f.rest[name]
	return k, ok
}

// ResetPose puts every joint back in its rest pose and forgets the loaded
// frames. Keyframes are kept.
func (f *Figure) ResetPose() {
	for name, n := range f.joints {
		n.Transform().Restore(f.rest[name])
	}
	for _, n := range f.Nodes() {
		n.UnloadFrame()
	}
}

// ClearAnimation drops the keyframes of every node and resets the pose.
func (f *Figure) ClearAnimation() {
	for _, n := range f.Nodes() {
		n.ClearKeyframes()
	}
	f.ResetPose()
}

// part describes one piece of the figure relative to its parent joint.
type part struct {
	name     string
	parent   string // joint name, "" for the root
	shape    string // "limb", "sphere" or "cube"
	isolate  bool
	position mgl32.Vec3
	rotation mgl32.Vec3
	scale    mgl32.Vec3
	pivot    mgl32.Vec3
}

// layout is the rest pose. Parents come before their children.
var layout = []part{
	{name: Torso, shape: "limb", isolate: true,
		rotation: mgl32.Vec3{0.05, 0, 0}, scale: mgl32.Vec3{0.5, 0.9, 0.3}},
	{name: Head, parent: Torso, shape: "sphere",
		position: mgl32.Vec3{0, 1.35, 0}, scale: mgl32.Vec3{0.3, 0.36, 0.3}},
	{name: Collar, parent: Torso, shape: "limb", isolate: true,
		position: mgl32.Vec3{0, 0.92, 0}, scale: mgl32.Vec3{0.6, 0.06, 0.25}},
	{name: Hips, parent: Torso, shape: "limb", isolate: true,
		position: mgl32.Vec3{0, -0.95, 0}, scale: mgl32.Vec3{0.45, 0.1, 0.28}},
	{name: LeftArm, parent: Torso, shape: "limb", isolate: true,
		position: mgl32.Vec3{-0.85, 0.3, 0}, scale: mgl32.Vec3{0.13, 0.7, 0.13}, pivot: mgl32.Vec3{0, 0.7, 0}},
	{name: RightArm, parent: Torso, shape: "limb", isolate: true,
		position: mgl32.Vec3{0.85, 0.3, 0}, scale: mgl32.Vec3{0.13, 0.7, 0.13}, pivot: mgl32.Vec3{0, 0.7, 0}},
	{name: LeftHand, parent: LeftArm, shape: "sphere", isolate: true,
		position: mgl32.Vec3{0, -0.85, 0}, scale: mgl32.Vec3{0.14, 0.17, 0.1}},
	{name: RightHand, parent: RightArm, shape: "sphere", isolate: true,
		position: mgl32.Vec3{0, -0.85, 0}, scale: mgl32.Vec3{0.14, 0.17, 0.1}},
	{name: LeftLeg, parent: Torso, shape: "limb", isolate: true,
		position: mgl32.Vec3{-0.3, -1.85, 0}, scale: mgl32.Vec3{0.17, 0.8, 0.17}, pivot: mgl32.Vec3{0, 0.8, 0}},
	{name: RightLeg, parent: Torso, shape: "limb", isolate: true,
		position: mgl32.Vec3{0.3, -1.85, 0}, scale: mgl32.Vec3{0.17, 0.8, 0.17}, pivot: mgl32.Vec3{0, 0.8, 0}},
	{name: LeftFoot, parent: LeftLeg, shape: "cube",
		position: mgl32.Vec3{0, -0.88, 0.1}, scale: mgl32.Vec3{0.14, 0.07, 0.25}},
	{name: RightFoot, parent: RightLeg, shape: "cube",
		position: mgl32.Vec3{0, -0.88, 0.1}, scale: mgl32.Vec3{0.14, 0.07, 0.25}},
}

// Assemble builds the figure. An unusable LimbKind falls back to cylinders.
func Assemble(ctx shapes.Context, opts Options) *Figure {
	log := ctx.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	factories := map[string]*shapes.Factory{
		"limb":   limbFactory(ctx, opts, log),
		"sphere": mustFactory(kernel.KindSphere, kernel.Params{Slices: opts.SphereSlices, Stacks: opts.SphereStacks}, ctx),
		"cube":   shapes.New(kernel.Cube{}, ctx),
	}

	f := &Figure{
		Root:   shapes.GenerateEmptyNode(ctx, RootName),
		joints: make(map[string]*scene.Node, len(layout)),
		parts:  make(map[string]*scene.Node, len(layout)),
		rest:   make(map[string]scene.Keyframe, len(layout)),
	}

	for _, p := range layout {
		node := factories[p.shape].GenerateNamed(p.name)
		tr := node.Transform()
		tr.SetPosition(p.position.X(), p.position.Y(), p.position.Z())
		tr.SetRotation(p.rotation.X(), p.rotation.Y(), p.rotation.Z())
		tr.SetPivot(p.pivot.X(), p.pivot.Y(), p.pivot.Z())
		tr.SetScale(p.scale.X(), p.scale.Y(), p.scale.Z())

		parent := f.Root
		if p.parent != "" {
			parent = f.joints[p.parent]
		}
		attach(parent, node)

		joint := node
		if p.isolate {
			joint = shapes.IsolateScale(node)
		}
		f.order = append(f.order, p.name)
		f.joints[p.name] = joint
		f.parts[p.name] = node
		f.rest[p.name] = scene.Snapshot(joint.Transform())
	}

	log.WithFields(logrus.Fields{
		"joints": len(f.joints),
		"nodes":  len(f.Nodes()),
	}).Debug("figure assembled")
	return f
}

// attach adds a freshly generated node, which cannot close a cycle.
func attach(parent, child *scene.Node) {
	if err := parent.AddChild(child); err != nil {
		panic(err)
	}
}

func limbFactory(ctx shapes.Context, opts Options, log logrus.FieldLogger) *shapes.Factory {
	kind := lo.Ternary(opts.LimbKind == "", kernel.KindCylinder, opts.LimbKind)
	f, err := shapes.NewKind(kind, kernel.Params{Slices: opts.CylinderSlices}, ctx)
	if err != nil {
		log.WithError(err).WithField("kind", kind).Warn("limb shape unavailable, using cylinders")
		return mustFactory(kernel.KindCylinder, kernel.Params{Slices: opts.CylinderSlices}, ctx)
	}
	return f
}

// mustFactory builds a factory for one of the built-in kinds. Degenerate
// detail values fall back to the defaults.
func mustFactory(kind kernel.Kind, p kernel.Params, ctx shapes.Context) *shapes.Factory {
	f, err := shapes.NewKind(kind, p, ctx)
	if err != nil {
		f, err = shapes.NewKind(kind, kernel.Params{}, ctx)
		if err != nil {
			panic(err)
		}
	}
	return f
}
