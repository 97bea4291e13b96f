// Package studio is the interaction boundary of the mannequin editor. It owns
// the scene tree and the assembled figure and exposes every editing operation
// by node id. A Studio is safe for concurrent use: each operation runs under
// one lock, so transports may call in from any goroutine.
package studio

import (
	"context"
	"sync"

	"github.com/chazu/mannequin/pkg/animation"
	"github.com/chazu/mannequin/pkg/config"
	"github.com/chazu/mannequin/pkg/engine"
	"github.com/chazu/mannequin/pkg/figure"
	"github.com/chazu/mannequin/pkg/kernel"
	"github.com/chazu/mannequin/pkg/kernel/sdfx"
	"github.com/chazu/mannequin/pkg/scene"
	"github.com/chazu/mannequin/pkg/shapes"
	"github.com/chazu/mannequin/pkg/tessellate"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// SceneName is the name of the root of every studio scene.
const SceneName = "Scene"

var (
	// ErrNodeNotFound is returned for ids that name no node in the scene.
	ErrNodeNotFound = errors.New("node not found")

	// ErrSceneRoot is returned for edits the scene root does not allow.
	ErrSceneRoot = errors.New("operation not allowed on the scene root")

	// ErrFigureNode is returned for structural edits to the figure's own
	// nodes. RebuildFigure replaces the figure as a whole.
	ErrFigureNode = errors.New("operation not allowed on a figure node")
)

// NodeInfo describes one node of the tree.
type NodeInfo struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	HasMesh     bool       `json:"hasMesh"`
	Keyframes   []int      `json:"keyframes"`
	LoadedFrame int        `json:"loadedFrame"`
	Children    []NodeInfo `json:"children,omitempty"`
}

// NodePose is a node's world matrix.
type NodePose struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	World mgl32.Mat4 `json:"world"`
}

// Frame is one resolved playback frame.
type Frame struct {
	Frame int        `json:"frame"`
	Pose  []NodePose `json:"pose"`
}

// TransformPatch sets the channels that are not nil.
type TransformPatch struct {
	Position *mgl32.Vec3 `json:"position,omitempty"`
	Rotation *mgl32.Vec3 `json:"rotation,omitempty"`
	Scale    *mgl32.Vec3 `json:"scale,omitempty"`
	Pivot    *mgl32.Vec3 `json:"pivot,omitempty"`
}

// NodeDetail is everything the studio knows about one node.
type NodeDetail struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Parent      string                 `json:"parent,omitempty"`
	Transform   scene.Keyframe         `json:"transform"`
	Local       mgl32.Mat4             `json:"local"`
	World       mgl32.Mat4             `json:"world"`
	Material    *scene.Material        `json:"material,omitempty"`
	Vertices    int                    `json:"vertices"`
	Triangles   int                    `json:"triangles"`
	MaxFrames   int                    `json:"maxFrames"`
	LoadedFrame int                    `json:"loadedFrame"`
	Keyframes   map[int]scene.Keyframe `json:"keyframes"`
}

// Studio owns a scene and the figure inside it.
type Studio struct {
	mu sync.Mutex

	cfg     config.Config
	log     logrus.FieldLogger
	ctx     shapes.Context
	root    *scene.Node
	figure  *figure.Figure
	shapes  map[kernel.Kind]*shapes.Factory
	scripts *animation.Registry
	engine  *engine.Engine
	player  *animation.Player

	playMu sync.Mutex
	stop   context.CancelFunc
	done   chan struct{}
}

// New builds a studio holding a freshly assembled figure. The built-in
// animations are copied into the studio's script registry.
func New(cfg config.Config, log logrus.FieldLogger) *Studio {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Studio{
		cfg:     cfg,
		log:     log,
		ctx:     cfg.ShapeContext(log),
		shapes:  make(map[kernel.Kind]*shapes.Factory),
		scripts: animation.NewRegistry(),
	}
	s.root = shapes.GenerateEmptyNode(s.ctx, SceneName)
	s.player = animation.NewPlayer(s.root, animation.WithLocker(&s.mu))

	for _, name := range animation.Names() {
		script, _ := animation.Lookup(name)
		s.scripts.Register(script)
	}
	s.rebuildFigure()
	return s
}

// Scripts returns the registry ApplyAnimation looks names up in.
func (s *Studio) Scripts() *animation.Registry { return s.scripts }

// Config returns the studio's current settings.
func (s *Studio) Config() config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Shapes lists the kinds GenerateMesh accepts.
func (s *Studio) Shapes() []kernel.Kind { return kernel.Kinds() }

// SetMaxFrames changes the frame bound of every node in the scene and of
// nodes generated later. Keyframes beyond a lowered bound are kept and
// reported by Validate.
func (s *Studio) SetMaxFrames(max int) error {
	if max < 1 {
		return errors.Wrapf(scene.ErrFrameOutOfRange, "max frames %d", max)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.MaxFrames = max
	s.ctx.MaxFrames = max
	for _, f := range s.shapes {
		f.SetContext(s.ctx)
	}
	s.root.ForEach(func(n *scene.Node) { n.SetMaxFrames(max) })
	s.engine = s.newEngine()
	s.log.WithField("maxFrames", max).Info("frame bound changed")
	return nil
}

// ---------------------------------------------------------------------------
// Tree
// ---------------------------------------------------------------------------

// RootID returns the id of the scene root.
func (s *Studio) RootID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root.ID.String()
}

// Tree describes the whole scene.
func (s *Studio) Tree() NodeInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return describe(s.root)
}

// Node describes the subtree rooted at id.
func (s *Studio) Node(id string) (NodeInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.lookup(id)
	if err != nil {
		return NodeInfo{}, err
	}
	return describe(n), nil
}

// Joint returns the id of the node carrying the named figure joint.
func (s *Studio) Joint(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.figure.Joint(name)
	if err != nil {
		return "", err
	}
	return n.ID.String(), nil
}

// Inspect returns the full state of one node.
func (s *Studio) Inspect(id string) (NodeDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.lookup(id)
	if err != nil {
		return NodeDetail{}, err
	}
	d := NodeDetail{
		ID:          n.ID.String(),
		Name:        n.Name,
		Transform:   scene.Snapshot(n.Transform()),
		Local:       n.Local(),
		World:       n.World(),
		Material:    n.Material,
		MaxFrames:   n.MaxFrames(),
		LoadedFrame: n.LoadedFrame(),
		Keyframes:   make(map[int]scene.Keyframe),
	}
	if p := n.Parent(); p != nil {
		d.Parent = p.ID.String()
	}
	if !n.Mesh.IsEmpty() {
		d.Vertices = n.Mesh.VertexCount()
		d.Triangles = n.Mesh.TriangleCount()
	}
	for _, f := range n.Keyframes() {
		d.Keyframes[f], _ = n.Keyframe(f)
	}
	return d, nil
}

// GenerateMesh adds a node of the given shape kind under the scene root.
// An empty name selects "<Shape> <n>". The empty kind adds a grouping node.
func (s *Studio) GenerateMesh(kind kernel.Kind, name string) (NodeInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.factory(kind)
	if err != nil {
		return NodeInfo{}, err
	}
	var n *scene.Node
	if name == "" {
		n = f.GenerateMesh()
	} else {
		n = f.GenerateNamed(name)
	}
	if err := s.root.AddChild(n); err != nil {
		return NodeInfo{}, err
	}
	s.log.WithFields(logrus.Fields{"kind": kind, "node": n.Name}).Debug("generated node")
	return describe(n), nil
}

// GenerateEmptyNode adds a grouping node under the scene root.
func (s *Studio) GenerateEmptyNode(name string) (NodeInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == "" {
		name = "Empty"
	}
	n := shapes.GenerateEmptyNode(s.ctx, name)
	if err := s.root.AddChild(n); err != nil {
		return NodeInfo{}, err
	}
	return describe(n), nil
}

func (s *Studio) factory(kind kernel.Kind) (*shapes.Factory, error) {
	if f, ok := s.shapes[kind]; ok {
		return f, nil
	}
	f, err := shapes.NewKind(kind, s.params(kind), s.ctx)
	if err != nil {
		return nil, err
	}
	s.shapes[kind] = f
	return f, nil
}

func (s *Studio) params(kind kernel.Kind) kernel.Params {
	switch kind {
	case kernel.KindSphere:
		return kernel.Params{Slices: s.cfg.SphereSlices, Stacks: s.cfg.SphereStacks}
	case sdfx.KindRoundedCube, sdfx.KindRoundedCylinder, sdfx.KindCapsule:
		// marching cubes resolution, not slices
		return kernel.Params{}
	default:
		return kernel.Params{Slices: s.cfg.CylinderSlices}
	}
}

// IsolateScale wraps the node so its children stop inheriting its scale and
// returns the wrapper.
func (s *Studio) IsolateScale(id string) (NodeInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.lookupChild(id)
	if err != nil {
		return NodeInfo{}, err
	}
	return describe(shapes.IsolateScale(n)), nil
}

// Reparent moves the node under parentID, keeping its local transform.
func (s *Studio) Reparent(id, parentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.lookupChild(id)
	if err != nil {
		return err
	}
	p, err := s.lookup(parentID)
	if err != nil {
		return err
	}
	return p.AddChild(n)
}

// Remove detaches the node and its subtree from the scene.
func (s *Studio) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.lookupChild(id)
	if err != nil {
		return err
	}
	n.Remove()
	return nil
}

// Validate checks the scene tree.
func (s *Studio) Validate() []scene.ValidationError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return scene.Validate(s.root)
}

// ---------------------------------------------------------------------------
// Transforms and keyframes
// ---------------------------------------------------------------------------

// Transform returns the node's live transform.
func (s *Studio) Transform(id string) (scene.Keyframe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.lookup(id)
	if err != nil {
		return scene.Keyframe{}, err
	}
	return scene.Snapshot(n.Transform()), nil
}

// SetTransform changes the node's live transform.
func (s *Studio) SetTransform(id string, p TransformPatch) (scene.Keyframe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.lookup(id)
	if err != nil {
		return scene.Keyframe{}, err
	}
	tr := n.Transform()
	if v := p.Position; v != nil {
		tr.SetPosition(v.X(), v.Y(), v.Z())
	}
	if v := p.Rotation; v != nil {
		tr.SetRotation(v.X(), v.Y(), v.Z())
	}
	if v := p.Scale; v != nil {
		tr.SetScale(v.X(), v.Y(), v.Z())
	}
	if v := p.Pivot; v != nil {
		tr.SetPivot(v.X(), v.Y(), v.Z())
	}
	return scene.Snapshot(tr), nil
}

// SaveKeyframe records the node's live transform at frame. Frames outside
// the node's range are logged and skipped.
func (s *Studio) SaveKeyframe(id string, frame int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.lookup(id)
	if err != nil {
		return err
	}
	if err := n.SaveKeyframe(frame); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"node": n.Name, "frame": frame}).Warn("keyframe not saved")
		return err
	}
	return nil
}

// RemoveKeyframe drops the node's keyframe at frame, if any.
func (s *Studio) RemoveKeyframe(id string, frame int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.lookup(id)
	if err != nil {
		return err
	}
	n.RemoveKeyframe(frame)
	return nil
}

// ClearKeyframes drops every keyframe of the node.
func (s *Studio) ClearKeyframes(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.lookup(id)
	if err != nil {
		return err
	}
	n.ClearKeyframes()
	return nil
}

// FrameIsKeyFrame reports whether the node has a keyframe at frame.
func (s *Studio) FrameIsKeyFrame(id string, frame int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.lookup(id)
	if err != nil {
		return false, err
	}
	return n.FrameIsKeyFrame(frame), nil
}

// Keyframes lists the node's keyed frames in ascending order.
func (s *Studio) Keyframes(id string) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return n.Keyframes(), nil
}

// LoadFrame resolves every node at frame and returns the resulting pose.
func (s *Studio) LoadFrame(frame int) Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player.Seek(frame)
	return Frame{Frame: frame, Pose: s.pose()}
}

// ---------------------------------------------------------------------------
// Rendering
// ---------------------------------------------------------------------------

// Pose returns the world matrix of every node, ancestors first.
func (s *Studio) Pose() []NodePose {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pose()
}

func (s *Studio) pose() []NodePose {
	var pose []NodePose
	s.root.ForEach(func(n *scene.Node) {
		pose = append(pose, NodePose{ID: n.ID.String(), Name: n.Name, World: n.World()})
	})
	return pose
}

// Meshes returns the world-space geometry of the scene.
func (s *Studio) Meshes() []*kernel.Mesh {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tessellate.Tessellate(s.root)
}

// Bounds returns the box around the scene's world-space geometry. ok is
// false when the scene has none.
func (s *Studio) Bounds() (b tessellate.Bounds, ok bool) {
	return tessellate.MeshBounds(s.Meshes())
}

// ---------------------------------------------------------------------------
// Figure and animation
// ---------------------------------------------------------------------------

// RebuildFigure replaces the figure with a freshly assembled one.
func (s *Studio) RebuildFigure() NodeInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuildFigure()
	return describe(s.figure.Root)
}

func (s *Studio) rebuildFigure() {
	if s.figure != nil {
		s.figure.Root.Remove()
	}
	s.figure = figure.Assemble(s.ctx, s.cfg.FigureOptions())
	if err := s.root.AddChild(s.figure.Root); err != nil {
		panic(err)
	}
	s.engine = s.newEngine()
}

func (s *Studio) newEngine() *engine.Engine {
	return engine.NewEngine(
		engine.WithTimeout(s.cfg.EvalTimeout),
		engine.WithMaxFrames(s.figure.Root.MaxFrames()),
		engine.WithJoints(s.figure.JointNames()),
	)
}

// Animations lists the scripts ApplyAnimation accepts.
func (s *Studio) Animations() []string {
	return s.scripts.Names()
}

// ApplyAnimation replaces the figure's keyframes with the named script's.
func (s *Studio) ApplyAnimation(name string) error {
	script, err := s.scripts.Lookup(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := animation.Apply(script, s.figure); err != nil {
		s.log.WithError(err).WithField("animation", name).Warn("animation failed")
		return err
	}
	s.log.WithField("animation", name).Info("animation applied")
	return nil
}

// EvaluateScript runs Lisp source against the figure. On success the figure's
// animation is replaced by the script's keyframes. Script errors are
// reported in the result; the returned error is for timeouts and crashes.
func (s *Studio) EvaluateScript(source string) (engine.EvalResult, error) {
	s.mu.Lock()
	eng := s.engine
	s.mu.Unlock()

	// Evaluation runs unlocked; it never touches the scene.
	res, err := eng.EvaluateResult(source)
	if err != nil || len(res.Errors) > 0 {
		return res, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.figure.ClearAnimation()
	defer s.figure.ResetPose()
	if err := res.Plan.Apply(s.figure); err != nil {
		return res, err
	}
	return res, nil
}

// ---------------------------------------------------------------------------
// Playback
// ---------------------------------------------------------------------------

// Frame returns the current playback frame.
func (s *Studio) Frame() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player.Frame()
}

// Playing reports whether playback is running.
func (s *Studio) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

// Play starts playback at fps, or the configured rate when fps is not
// positive. onFrame is called after every tick with the studio locked, so it
// must not call back into the studio. Play restarts playback that is already
// running.
func (s *Studio) Play(fps int, onFrame func(Frame)) {
	s.playMu.Lock()
	defer s.playMu.Unlock()
	s.pause()
	if fps <= 0 {
		fps = s.cfg.FPS
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.mu.Lock()
	s.stop, s.done = cancel, done
	s.mu.Unlock()

	go func() {
		defer close(done)
		err := s.player.Run(ctx, fps, func(frame int) {
			if onFrame != nil {
				onFrame(Frame{Frame: frame, Pose: s.pose()})
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.log.WithError(err).Warn("playback stopped")
		}
	}()
	s.log.WithField("fps", fps).Debug("playback started")
}

// Pause stops playback and waits for the last tick to finish.
func (s *Studio) Pause() {
	s.playMu.Lock()
	defer s.playMu.Unlock()
	s.pause()
}

func (s *Studio) pause() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	stop()
	<-done
}

// Seek jumps to frame and resolves the scene there.
func (s *Studio) Seek(frame int) Frame {
	return s.LoadFrame(frame)
}

// Close stops playback.
func (s *Studio) Close() {
	s.Pause()
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *Studio) lookup(id string) (*scene.Node, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, errors.Wrapf(ErrNodeNotFound, "%q", id)
	}
	n := s.root.FindByID(uid)
	if n == nil {
		return nil, errors.Wrapf(ErrNodeNotFound, "%s", id)
	}
	return n, nil
}

// lookupChild is lookup for structural edits, which must not touch the
// scene root or the figure's own nodes.
func (s *Studio) lookupChild(id string) (*scene.Node, error) {
	n, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if n == s.root {
		return nil, ErrSceneRoot
	}
	if s.figure.Owns(n) {
		return nil, errors.Wrapf(ErrFigureNode, "%q", n.Name)
	}
	return n, nil
}

func describe(n *scene.Node) NodeInfo {
	info := NodeInfo{
		ID:          n.ID.String(),
		Name:        n.Name,
		HasMesh:     !n.Mesh.IsEmpty(),
		Keyframes:   n.Keyframes(),
		LoadedFrame: n.LoadedFrame(),
	}
	for _, c := range n.Children() {
		info.Children = append(info.Children, describe(c))
	}
	return info
}
