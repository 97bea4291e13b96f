package main

import (
	"context"

	"github.com/chazu/mannequin/pkg/engine"
	"github.com/chazu/mannequin/pkg/kernel"
	"github.com/chazu/mannequin/pkg/scene"
	"github.com/chazu/mannequin/pkg/studio"
	"github.com/chazu/mannequin/pkg/tessellate"
	"github.com/sirupsen/logrus"
	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// FrameEvent is the runtime event carrying playback frames to the frontend.
const FrameEvent = "playback:frame"

// colorPalette is a default palette used to assign distinct colors to parts.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App is the Wails backend. It exposes the studio to the frontend via
// bindings.
type App struct {
	ctx    context.Context
	studio *studio.Studio
	log    logrus.FieldLogger

	// emit sends runtime events; it is set on startup.
	emit func(event string, data ...interface{})
}

// MeshData is the JSON-serializable mesh format sent to the frontend.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable eval error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result returned to the frontend.
type EvalResult struct {
	Meshes   []MeshData           `json:"meshes"`
	Errors   []EvalErrorData      `json:"errors"`
	Warnings []engine.EvalWarning `json:"warnings"`
}

// NewApp creates a new App around s.
func NewApp(s *studio.Studio, log logrus.FieldLogger) *App {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &App{
		studio: s,
		log:    log,
		emit:   func(string, ...interface{}) {},
	}
}

// startup is called by Wails on app startup. The context is saved
// so we can call Wails runtime methods later.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.emit = func(event string, data ...interface{}) {
		runtime.EventsEmit(ctx, event, data...)
	}
}

// shutdown is called by Wails when the window closes.
func (a *App) shutdown(ctx context.Context) {
	a.studio.Close()
}

// Evaluate runs a Lisp animation script against the figure and returns the
// scene meshes with any errors. This is the binding behind the editor.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []engine.EvalWarning{},
	}

	res, err := a.studio.EvaluateScript(source)
	if err != nil {
		// Fatal error (panic, timeout, bad plan)
		a.log.WithError(err).Warn("evaluate failed")
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	for _, e := range res.Errors {
		result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
	}
	result.Warnings = append(result.Warnings, res.Warnings...)
	if len(result.Errors) > 0 {
		return result
	}

	result.Meshes = a.Meshes()
	return result
}

// Meshes returns the scene's world-space geometry with a color per part.
func (a *App) Meshes() []MeshData {
	meshes := a.studio.Meshes()
	out := make([]MeshData, 0, len(meshes))
	for i, m := range meshes {
		out = append(out, meshData(m, colorPalette[i%len(colorPalette)]))
	}
	return out
}

func meshData(m *kernel.Mesh, color string) MeshData {
	return MeshData{
		Vertices: m.Vertices,
		Normals:  m.Normals,
		Indices:  m.Indices,
		PartName: m.PartName,
		Color:    color,
	}
}

// Tree returns the scene hierarchy.
func (a *App) Tree() studio.NodeInfo { return a.studio.Tree() }

// Shapes lists the kinds GenerateMesh accepts.
func (a *App) Shapes() []string {
	kinds := a.studio.Shapes()
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

// Bounds returns the scene's bounding box, or nil when it has no geometry.
func (a *App) Bounds() *tessellate.Bounds {
	b, ok := a.studio.Bounds()
	if !ok {
		return nil
	}
	return &b
}

// SetMaxFrames changes the frame bound of the whole scene.
func (a *App) SetMaxFrames(max int) error { return a.studio.SetMaxFrames(max) }

// GenerateMesh adds a shape of the given kind under the scene root.
func (a *App) GenerateMesh(kind, name string) (studio.NodeInfo, error) {
	return a.studio.GenerateMesh(kernel.Kind(kind), name)
}

// GenerateEmptyNode adds a grouping node under the scene root.
func (a *App) GenerateEmptyNode(name string) (studio.NodeInfo, error) {
	return a.studio.GenerateEmptyNode(name)
}

// IsolateScale wraps a node so its children stop inheriting its scale.
func (a *App) IsolateScale(id string) (studio.NodeInfo, error) {
	return a.studio.IsolateScale(id)
}

// Reparent moves a node under another one.
func (a *App) Reparent(id, parent string) error { return a.studio.Reparent(id, parent) }

// Remove deletes a node and its subtree.
func (a *App) Remove(id string) error { return a.studio.Remove(id) }

// Transform returns a node's live transform.
func (a *App) Transform(id string) (scene.Keyframe, error) { return a.studio.Transform(id) }

// SetTransform edits a node's live transform.
func (a *App) SetTransform(id string, p studio.TransformPatch) (scene.Keyframe, error) {
	return a.studio.SetTransform(id, p)
}

// ToggleKeyframe saves a keyframe at frame, or removes the one already
// there. It reports whether the frame is keyed afterwards.
func (a *App) ToggleKeyframe(id string, frame int) (bool, error) {
	keyed, err := a.studio.FrameIsKeyFrame(id, frame)
	if err != nil {
		return false, err
	}
	if keyed {
		return false, a.studio.RemoveKeyframe(id, frame)
	}
	if err := a.studio.SaveKeyframe(id, frame); err != nil {
		return false, err
	}
	return true, nil
}

// Keyframes lists a node's keyed frames.
func (a *App) Keyframes(id string) ([]int, error) { return a.studio.Keyframes(id) }

// LoadFrame resolves the scene at frame.
func (a *App) LoadFrame(frame int) studio.Frame { return a.studio.LoadFrame(frame) }

// RebuildFigure replaces the mannequin with a fresh one.
func (a *App) RebuildFigure() studio.NodeInfo { return a.studio.RebuildFigure() }

// Animations lists the scripts ApplyAnimation accepts.
func (a *App) Animations() []string { return a.studio.Animations() }

// ApplyAnimation replaces the figure's animation with a named script.
func (a *App) ApplyAnimation(name string) error { return a.studio.ApplyAnimation(name) }

// Play starts playback and streams frames to the frontend as FrameEvent.
func (a *App) Play(fps int) {
	emit := a.emit
	a.studio.Play(fps, func(f studio.Frame) { emit(FrameEvent, f) })
}

// Pause stops playback.
func (a *App) Pause() { a.studio.Pause() }

// Seek jumps to frame.
func (a *App) Seek(frame int) studio.Frame { return a.studio.Seek(frame) }
