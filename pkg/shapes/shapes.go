// Package shapes turns kernel shape variants into scene nodes.
//
// A Factory wraps one shape variant and names the nodes it generates
// "<Shape> <n>". Every node it builds shares the Context's material and
// frame bound.
package shapes

import (
	"fmt"

	"github.com/chazu/mannequin/pkg/kernel"
	"github.com/chazu/mannequin/pkg/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"
)

// PivotSuffix is appended to a node's name to name its scale-isolation
// wrapper.
const PivotSuffix = " Pivot"

// Context is the environment shared by everything a factory builds.
type Context struct {
	Material  *scene.Material
	MaxFrames int
	Logger    logrus.FieldLogger
}

// DefaultContext returns a context with a grey material, the default frame
// bound and the standard logger.
func DefaultContext() Context {
	return Context{
		Material:  &scene.Material{Name: "default", Color: [4]float32{0.8, 0.8, 0.8, 1}},
		MaxFrames: scene.DefaultMaxFrames,
		Logger:    logrus.StandardLogger(),
	}
}

func (c Context) logger() logrus.FieldLogger {
	if c.Logger == nil {
		return logrus.StandardLogger()
	}
	return c.Logger
}

func (c Context) maxFrames() int {
	if c.MaxFrames <= 0 {
		return scene.DefaultMaxFrames
	}
	return c.MaxFrames
}

func (c Context) nodeOptions() []scene.Option {
	return []scene.Option{
		scene.WithMaterial(c.Material),
		scene.WithMaxFrames(c.maxFrames()),
	}
}

// Factory generates scene nodes from one shape variant.
type Factory struct {
	shape   kernel.Shape
	ctx     Context
	counter int
}

// New returns a factory for shape.
func New(shape kernel.Shape, ctx Context) *Factory {
	return &Factory{shape: shape, ctx: ctx}
}

// NewKind returns a factory for the variant registered under kind.
func NewKind(kind kernel.Kind, p kernel.Params, ctx Context) (*Factory, error) {
	shape, err := kernel.NewShape(kind, p)
	if err != nil {
		return nil, err
	}
	return New(shape, ctx), nil
}

// SetContext changes the context of nodes generated from now on. The
// naming counter is kept.
func (f *Factory) SetContext(ctx Context) { f.ctx = ctx }

// Shape returns the variant the factory generates.
func (f *Factory) Shape() kernel.Shape { return f.shape }

// GenerateMesh builds a node named after the shape and a running counter.
func (f *Factory) GenerateMesh() *scene.Node {
	f.counter++
	return f.GenerateNamed(fmt.Sprintf("%s %d", f.shape.Name(), f.counter))
}

// GenerateNamed builds a node with the given name. A variant without
// geometry yields an empty grouping node.
func (f *Factory) GenerateNamed(name string) *scene.Node {
	mesh := f.shape.Geometry()
	if mesh == nil {
		f.ctx.logger().WithFields(logrus.Fields{
			"shape": f.shape.Name(),
			"node":  name,
		}).Debug("shape has no geometry, generating empty node")
		return GenerateEmptyNode(f.ctx, name)
	}
	mesh.PartName = name
	opts := append(f.ctx.nodeOptions(), scene.WithMesh(mesh))
	return scene.NewNode(name, opts...)
}

// GenerateEmptyNode builds a grouping node with no geometry.
func GenerateEmptyNode(ctx Context, name string) *scene.Node {
	return scene.NewNode(name, ctx.nodeOptions()...)
}

// IsolateScale inserts a wrapper above node so that node's children can hang
// from the wrapper without inheriting node's scale. The wrapper takes node's
// slot in its parent along with its position, rotation and pivot, and node
// keeps only its scale. Existing keyframes are split the same way; keys
// outside node's frame bound cannot be split and are dropped.
// The world matrix of node is unchanged. IsolateScale returns the wrapper.
func IsolateScale(node *scene.Node) *scene.Node {
	wrapper := scene.NewNode(node.Name+PivotSuffix,
		scene.WithMaterial(node.Material),
		scene.WithMaxFrames(node.MaxFrames()),
	)

	for _, frame := range node.Keyframes() {
		k, _ := node.Keyframe(frame)
		if err := wrapper.SetKeyframe(frame, wrapperPart(k)); err != nil {
			node.RemoveKeyframe(frame)
			continue
		}
		// Same bound as the wrapper, so this cannot fail.
		_ = node.SetKeyframe(frame, scalePart(k))
	}

	live := scene.Snapshot(node.Transform())
	wrapper.Transform().Restore(wrapperPart(live))
	node.Transform().Restore(scalePart(live))

	// wrapper is fresh, so it is neither an ancestor nor a descendant of node.
	_ = node.ReplaceWith(wrapper)
	_ = wrapper.AddChild(node)
	return wrapper
}

func wrapperPart(k scene.Keyframe) scene.Keyframe {
	return scene.Keyframe{
		Position: k.Position,
		Rotation: k.Rotation,
		Scale:    mgl32.Vec3{1, 1, 1},
		Pivot:    k.Pivot,
	}
}

func scalePart(k scene.Keyframe) scene.Keyframe {
	return scene.Keyframe{Scale: k.Scale}
}
