package engine

import (
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(keyframe j 10 :rotation r)`,
			expect: `(keyframe j 10 "__kw_rotation" r)`,
		},
		{
			name:   "multiple keywords",
			input:  `(keyframe j 0 :position p :pivot q)`,
			expect: `(keyframe j 0 "__kw_position" p "__kw_pivot" q)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(remove-keyframe arm 30)`,
			expect: `(remove_keyframe arm 30)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "negative number preserved",
			input:  `(vec3 0 -0.5 0)`,
			expect: `(vec3 0 -0.5 0)`,
		},
		{
			name:   "hyphenated joint name in string preserved",
			input:  `(joint "Left-Arm")`,
			expect: `(joint "Left-Arm")`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:ease-in`,
			expect: `"__kw_ease-in"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Keyframe builtins
// ---------------------------------------------------------------------------

func evalPlan(t *testing.T, eng *Engine, source string) *Plan {
	t.Helper()
	res, err := eng.EvaluateResult(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(res.Errors) > 0 {
		t.Fatalf("eval errors: %v", res.Errors)
	}
	return res.Plan
}

func TestKeyframeRecordsChannels(t *testing.T) {
	p := evalPlan(t, NewEngine(), `
(keyframe (joint "Left Arm") 30 :rotation (vec3 0.5 0 0) :pivot (vec3 0 0.75 0))
`)
	if p.Len() != 1 {
		t.Fatalf("expected 1 op, got %d", p.Len())
	}
	op := p.Ops[0]
	if op.Kind != OpKey || op.Joint != "Left Arm" || op.Frame != 30 {
		t.Errorf("unexpected op %+v", op)
	}
	if op.Rotation == nil || *op.Rotation != (mgl32.Vec3{0.5, 0, 0}) {
		t.Errorf("rotation = %v", op.Rotation)
	}
	if op.Pivot == nil || *op.Pivot != (mgl32.Vec3{0, 0.75, 0}) {
		t.Errorf("pivot = %v", op.Pivot)
	}
	if op.Position != nil || op.Scale != nil {
		t.Errorf("unset channels should be nil, got position=%v scale=%v", op.Position, op.Scale)
	}
}

func TestVariableReference(t *testing.T) {
	p := evalPlan(t, NewEngine(), `
(def swing 0.25)
(def arm (joint "Right Arm"))
(keyframe arm 0 :rotation (vec3 swing 0 0))
(keyframe arm 10 :rotation (vec3 (* -1 swing) 0 0))
`)
	if p.Len() != 2 {
		t.Fatalf("expected 2 ops, got %d", p.Len())
	}
	if got := p.Ops[1].Rotation.X(); got != -0.25 {
		t.Errorf("expected X=-0.25 (from variable), got %f", got)
	}
	if p.Ops[0].Joint != "Right Arm" {
		t.Errorf("joint = %q", p.Ops[0].Joint)
	}
}

func TestDeg(t *testing.T) {
	p := evalPlan(t, NewEngine(), `(keyframe "Head" 0 :rotation (vec3 0 (deg 180) 0))`)
	if p.Len() != 1 {
		t.Fatalf("expected 1 op, got %d", p.Len())
	}
	if got := p.Ops[0].Rotation.Y(); math.Abs(float64(got)-math.Pi) > 1e-6 {
		t.Errorf("expected pi radians, got %f", got)
	}
}

func TestRemoveAndClear(t *testing.T) {
	p := evalPlan(t, NewEngine(), `
(remove-keyframe (joint "Torso") 60)
(clear-keyframes (joint "Head"))
`)
	if p.Len() != 2 {
		t.Fatalf("expected 2 ops, got %d", p.Len())
	}
	if p.Ops[0].Kind != OpRemove || p.Ops[0].Frame != 60 {
		t.Errorf("unexpected op %+v", p.Ops[0])
	}
	if p.Ops[1].Kind != OpClear || p.Ops[1].Joint != "Head" {
		t.Errorf("unexpected op %+v", p.Ops[1])
	}
}

func TestKeyframeWithoutChannelsWarns(t *testing.T) {
	res, err := NewEngine().EvaluateResult(`(keyframe (joint "Head") 5)`)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(res.Errors) > 0 {
		t.Fatalf("eval errors: %v", res.Errors)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(res.Warnings))
	}
	if w := res.Warnings[0]; w.Joint != "Head" || w.Frame != 5 {
		t.Errorf("unexpected warning %+v", w)
	}
}

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantMsg string
	}{
		{"unknown joint", `(joint "Tail")`, "unknown joint"},
		{"frame past max", `(keyframe (joint "Head") 60 :position (vec3 0 1 0))`, "not in [0, 50]"},
		{"negative frame", `(keyframe (joint "Head") -1 :position (vec3 0 1 0))`, "not in [0, 50]"},
		{"fractional frame", `(keyframe (joint "Head") 1.5 :position (vec3 0 1 0))`, "whole number"},
		{"unknown channel", `(keyframe (joint "Head") 1 :color (vec3 0 1 0))`, "unknown channel"},
		{"channel not a vector", `(keyframe (joint "Head") 1 :scale 2)`, "expected vec3"},
		{"vec3 arity", `(vec3 1 2)`, "vec3 requires 3 arguments"},
		{"vec3 component", `(vec3 1 "a" 2)`, "expected number"},
		{"keyframe arity", `(keyframe (joint "Head"))`, "requires a joint and a frame"},
	}

	eng := NewEngine(WithMaxFrames(50), WithJoints([]string{"Head", "Torso"}))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, evalErrs, err := eng.Evaluate(tt.source)
			if err != nil {
				t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
			}
			if p != nil {
				t.Error("expected nil plan on eval error")
			}
			if len(evalErrs) == 0 {
				t.Fatal("expected an eval error")
			}
			found := false
			for _, e := range evalErrs {
				if strings.Contains(e.Message, tt.wantMsg) {
					found = true
				}
			}
			if !found {
				t.Errorf("errors %v do not mention %q", evalErrs, tt.wantMsg)
			}
		})
	}
}

func TestAnyJointWithoutRestriction(t *testing.T) {
	p := evalPlan(t, NewEngine(), `(keyframe (joint "Tail") 1 :scale (vec3 1 1 1))`)
	if p.Len() != 1 || p.Ops[0].Joint != "Tail" {
		t.Fatalf("unexpected plan %+v", p)
	}
}
