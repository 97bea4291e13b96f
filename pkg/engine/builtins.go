package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites script source before passing it to zygomys:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: remove-keyframe -> remove_keyframe
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator).
//
//  3. ; line comments become // comments.
//
// String literals are left untouched.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		switch {
		case b[i] == '"':
			j := skipString(b, i, '"', true)
			result = append(result, b[i:j]...)
			i = j
			continue
		case b[i] == '`':
			j := skipString(b, i, '`', false)
			result = append(result, b[i:j]...)
			i = j
			continue
		case b[i] == ';':
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		case b[i] == ':' && i+1 < len(b):
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				result = append(result, '"')
				result = append(result, kwPrefix...)
				result = append(result, b[i+1:j]...)
				result = append(result, '"')
				i = j
				continue
			}
		case b[i] == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			// A hyphen between identifier characters, not a minus operator.
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

// skipString returns the index just past the literal that opens at b[start].
func skipString(b []byte, start int, quote byte, escapes bool) int {
	i := start + 1
	for i < len(b) && b[i] != quote {
		if escapes && b[i] == '\\' && i+1 < len(b) {
			i += 2
			continue
		}
		i++
	}
	if i < len(b) {
		i++
	}
	return i
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps an mgl32.Vec3.
type sexpVec3 struct {
	vec mgl32.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X(), v.vec.Y(), v.vec.Z())
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpJoint names a figure joint.
type sexpJoint struct {
	name string
}

func (j *sexpJoint) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(joint %q)", j.name)
}
func (j *sexpJoint) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value; treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts a whole number from a Sexp.
func toInt(s zygo.Sexp) (int, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return int(v.Val), nil
	case *zygo.SexpFloat:
		if v.Val == math.Trunc(v.Val) {
			return int(v.Val), nil
		}
		return 0, fmt.Errorf("expected whole number, got %g", v.Val)
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a Vec3 from a sexpVec3.
func toVec3(s zygo.Sexp) (mgl32.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return mgl32.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toJoint extracts a joint name from a sexpJoint or a plain string.
func toJoint(s zygo.Sexp) (string, error) {
	switch v := s.(type) {
	case *sexpJoint:
		return v.name, nil
	case *zygo.SexpStr:
		return v.S, nil
	}
	return "", fmt.Errorf("expected joint, got %T (%s)", s, s.SexpString(nil))
}

// ---------------------------------------------------------------------------
// Plan building
// ---------------------------------------------------------------------------

// planBuilder accumulates the edits requested by one evaluation.
type planBuilder struct {
	plan      *Plan
	warnings  []EvalWarning
	maxFrames int
	joints    map[string]bool
}

func (b *planBuilder) checkJoint(name string) error {
	if b.joints != nil && !b.joints[name] {
		return fmt.Errorf("unknown joint %q", name)
	}
	return nil
}

func (b *planBuilder) checkFrame(frame int) error {
	if frame < 0 || frame > b.maxFrames {
		return fmt.Errorf("frame %d not in [0, %d]", frame, b.maxFrames)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the animation DSL builtins into a zygomys
// environment. The builtins only record edits in b; nothing outside the
// sandbox is touched.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *planBuilder) {

	// -----------------------------------------------------------------------
	// (vec3 0 0.7 0)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires 3 arguments, got %d", len(args))
		}
		var v mgl32.Vec3
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: component %d: %w", i, err)
			}
			v[i] = float32(f)
		}
		return &sexpVec3{vec: v}, nil
	})

	// -----------------------------------------------------------------------
	// (deg 45) => radians
	// -----------------------------------------------------------------------
	env.AddFunction("deg", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("deg requires 1 argument, got %d", len(args))
		}
		f, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("deg: %w", err)
		}
		return &zygo.SexpFloat{Val: f * math.Pi / 180}, nil
	})

	// -----------------------------------------------------------------------
	// (joint "Left Arm")
	// -----------------------------------------------------------------------
	env.AddFunction("joint", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("joint requires a name argument")
		}
		jn, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("joint: %w", err)
		}
		if err := b.checkJoint(jn); err != nil {
			return zygo.SexpNull, fmt.Errorf("joint: %w", err)
		}
		return &sexpJoint{name: jn}, nil
	})

	// -----------------------------------------------------------------------
	// (keyframe (joint "Left Arm") 30 :rotation (vec3 0.5 0 0) :pivot (vec3 0 0.7 0))
	// -----------------------------------------------------------------------
	env.AddFunction("keyframe", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("keyframe requires a joint and a frame")
		}
		jn, err := toJoint(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("keyframe: %w", err)
		}
		if err := b.checkJoint(jn); err != nil {
			return zygo.SexpNull, fmt.Errorf("keyframe: %w", err)
		}
		frame, err := toInt(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("keyframe: frame: %w", err)
		}
		if err := b.checkFrame(frame); err != nil {
			return zygo.SexpNull, fmt.Errorf("keyframe: %w", err)
		}

		op := Op{Kind: OpKey, Joint: jn, Frame: frame}
		channels := []struct {
			kw  string
			dst **mgl32.Vec3
		}{
			{"position", &op.Position},
			{"rotation", &op.Rotation},
			{"scale", &op.Scale},
			{"pivot", &op.Pivot},
		}
		for _, ch := range channels {
			v, ok := pa.kw[ch.kw]
			if !ok {
				continue
			}
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("keyframe: %s: %w", ch.kw, err)
			}
			*ch.dst = &vec
		}
		for kw := range pa.kw {
			switch kw {
			case "position", "rotation", "scale", "pivot":
			default:
				return zygo.SexpNull, fmt.Errorf("keyframe: unknown channel :%s", kw)
			}
		}
		if len(pa.kw) == 0 {
			b.warnings = append(b.warnings, EvalWarning{
				Message: "keyframe sets no channels; the rest pose is keyed",
				Joint:   jn,
				Frame:   frame,
			})
		}

		b.plan.Ops = append(b.plan.Ops, op)
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (remove-keyframe (joint "Left Arm") 30)
	// -----------------------------------------------------------------------
	env.AddFunction("remove_keyframe", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("remove-keyframe requires a joint and a frame")
		}
		jn, err := toJoint(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("remove-keyframe: %w", err)
		}
		if err := b.checkJoint(jn); err != nil {
			return zygo.SexpNull, fmt.Errorf("remove-keyframe: %w", err)
		}
		frame, err := toInt(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("remove-keyframe: frame: %w", err)
		}
		b.plan.Ops = append(b.plan.Ops, Op{Kind: OpRemove, Joint: jn, Frame: frame})
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (clear-keyframes (joint "Left Arm"))
	// -----------------------------------------------------------------------
	env.AddFunction("clear_keyframes", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("clear-keyframes requires a joint")
		}
		jn, err := toJoint(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("clear-keyframes: %w", err)
		}
		if err := b.checkJoint(jn); err != nil {
			return zygo.SexpNull, fmt.Errorf("clear-keyframes: %w", err)
		}
		b.plan.Ops = append(b.plan.Ops, Op{Kind: OpClear, Joint: jn})
		return zygo.SexpNull, nil
	})
}
