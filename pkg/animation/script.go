// Package animation holds animation scripts and the playback clock.
//
// A Script writes keyframes onto a figure's joints. Scripts are looked up by
// name in a Registry; the built-in ones register themselves in Default.
package animation

import (
	"sort"
	"sync"

	"github.com/chazu/mannequin/pkg/figure"
	"github.com/chazu/mannequin/pkg/scene"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// ErrUnknownScript is returned by Lookup for names nothing registered.
var ErrUnknownScript = errors.New("unknown animation script")

// Script is an animation that can be applied to a figure.
type Script interface {
	Name() string

	// Apply writes keyframes onto f's joints. It must leave every joint's
	// live transform in its rest pose.
	Apply(f *figure.Figure) error
}

// Func adapts a plain function into a Script.
type Func struct {
	name string
	fn   func(*figure.Figure) error
}

// NewFunc returns a Script named name that calls fn.
func NewFunc(name string, fn func(*figure.Figure) error) *Func {
	return &Func{name: name, fn: fn}
}

// Name returns the registered name.
func (s *Func) Name() string { return s.name }

// Apply calls the wrapped function.
func (s *Func) Apply(f *figure.Figure) error { return s.fn(f) }

// Registry maps names to scripts. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	scripts map[string]Script
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{scripts: make(map[string]Script)}
}

// Default holds the built-in scripts.
var Default = NewRegistry()

// Register adds s, replacing any script with the same name.
func (r *Registry) Register(s Script) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scripts[s.Name()] = s
}

// Unregister removes the script called name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.scripts, name)
}

// Lookup returns the script called name.
func (r *Registry) Lookup(name string) (Script, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scripts[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownScript, "%q", name)
	}
	return s, nil
}

// Names lists the registered script names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := lo.Keys(r.scripts)
	sort.Strings(names)
	return names
}

// Register adds s to the Default registry.
func Register(s Script) { Default.Register(s) }

// Lookup finds a script in the Default registry.
func Lookup(name string) (Script, error) { return Default.Lookup(name) }

// Names lists the scripts in the Default registry.
func Names() []string { return Default.Names() }

// Apply clears f's animation, runs s and puts the figure back in its rest
// pose, even when s fails halfway.
func Apply(s Script, f *figure.Figure) error {
	f.ClearAnimation()
	defer f.ResetPose()
	if err := s.Apply(f); err != nil {
		return errors.Wrapf(err, "animation %q", s.Name())
	}
	return nil
}

// key poses joint at frame: its live transform is set from the rest pose
// adjusted by edit, then saved as a keyframe.
func key(f *figure.Figure, joint string, frame int, edit func(k *scene.Keyframe)) error {
	n, err := f.Joint(joint)
	if err != nil {
		return err
	}
	k, _ := f.Rest(joint)
	edit(&k)
	n.Transform().Restore(k)
	return n.SaveKeyframe(frame)
}
