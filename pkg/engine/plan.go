package engine

import (
	"github.com/chazu/mannequin/pkg/figure"
	"github.com/chazu/mannequin/pkg/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// OpKind identifies the kind of edit an Op makes.
type OpKind string

const (
	OpKey    OpKind = "key"
	OpRemove OpKind = "remove"
	OpClear  OpKind = "clear"
)

// Op is one keyframe edit recorded by a script. Nil channels keep the value
// already keyed at Frame, or the joint's rest pose when nothing is.
type Op struct {
	Kind     OpKind      `json:"kind"`
	Joint    string      `json:"joint"`
	Frame    int         `json:"frame"`
	Position *mgl32.Vec3 `json:"position,omitempty"`
	Rotation *mgl32.Vec3 `json:"rotation,omitempty"`
	Scale    *mgl32.Vec3 `json:"scale,omitempty"`
	Pivot    *mgl32.Vec3 `json:"pivot,omitempty"`
}

// Plan is the ordered list of edits produced by one evaluation.
type Plan struct {
	Ops []Op `json:"ops"`
}

// Len returns the number of edits.
func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Ops)
}

// Apply performs the edits on f in order. It stops at the first failing
// edit; earlier edits stay applied. The live pose is not changed.
func (p *Plan) Apply(f *figure.Figure) error {
	if p == nil {
		return nil
	}
	for i, op := range p.Ops {
		if err := applyOp(f, op); err != nil {
			return errors.Wrapf(err, "op %d (%s %q)", i, op.Kind, op.Joint)
		}
	}
	return nil
}

func applyOp(f *figure.Figure, op Op) error {
	n, err := f.Joint(op.Joint)
	if err != nil {
		return err
	}
	switch op.Kind {
	case OpKey:
		k, ok := n.Keyframe(op.Frame)
		if !ok {
			k, _ = f.Rest(op.Joint)
		}
		return n.SetKeyframe(op.Frame, op.Keyframe(k))
	case OpRemove:
		n.RemoveKeyframe(op.Frame)
		return nil
	case OpClear:
		n.ClearKeyframes()
		return nil
	}
	return errors.Errorf("unknown op kind %q", op.Kind)
}

func override(dst *mgl32.Vec3, v *mgl32.Vec3) {
	if v != nil {
		*dst = *v
	}
}

// Keyframe returns the keyframe op would write given base.
func (op Op) Keyframe(base scene.Keyframe) scene.Keyframe {
	override(&base.Position, op.Position)
	override(&base.Rotation, op.Rotation)
	override(&base.Scale, op.Scale)
	override(&base.Pivot, op.Pivot)
	return base
}
