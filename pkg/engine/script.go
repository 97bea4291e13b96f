package engine

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chazu/mannequin/pkg/figure"
	"github.com/pkg/errors"
)

// ScriptExt is the file extension of animation scripts.
const ScriptExt = ".lisp"

// Script is an animation written in Lisp. It satisfies animation.Script.
type Script struct {
	name    string
	source  string
	timeout time.Duration
}

// NewScript returns a script called name with the given source.
func NewScript(name, source string) *Script {
	return &Script{name: name, source: source, timeout: EvalTimeout}
}

// LoadScript reads a script file. The script is named after the file
// without its extension.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "load script")
	}
	return NewScript(ScriptName(path), string(data)), nil
}

// ScriptName derives a script name from a file path.
func ScriptName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// WithScriptTimeout returns a copy of s with a different evaluation limit.
func (s *Script) WithScriptTimeout(d time.Duration) *Script {
	c := *s
	if d > 0 {
		c.timeout = d
	}
	return &c
}

// Name returns the name the script is registered under.
func (s *Script) Name() string { return s.name }

// Timeout returns the evaluation limit used by Apply.
func (s *Script) Timeout() time.Duration { return s.timeout }

// Source returns the script's Lisp source.
func (s *Script) Source() string { return s.source }

// Apply evaluates the script against f's joints and applies the result.
// Evaluation errors are returned as EvalErrors.
func (s *Script) Apply(f *figure.Figure) error {
	e := NewEngine(
		WithTimeout(s.timeout),
		WithMaxFrames(f.Root.MaxFrames()),
		WithJoints(f.JointNames()),
	)
	res, err := e.EvaluateResult(s.source)
	if err != nil {
		return err
	}
	if len(res.Errors) > 0 {
		return EvalErrors(res.Errors)
	}
	return res.Plan.Apply(f)
}
