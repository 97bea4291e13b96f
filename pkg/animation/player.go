package animation

import (
	"context"
	"sync"
	"time"

	"github.com/chazu/mannequin/pkg/scene"
	"github.com/pkg/errors"
)

// Player advances one shared frame counter over a scene tree and resolves
// every node at that frame. A Player is not safe for concurrent use unless
// it is given a Locker that the other users of the tree also hold.
type Player struct {
	root  *scene.Node
	frame int
	end   int
	lock  sync.Locker
}

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithEnd sets the last frame before playback wraps to 0. Without it the
// player wraps after the last keyframe found in the tree.
func WithEnd(end int) PlayerOption {
	return func(p *Player) { p.end = end }
}

// WithLocker makes Run hold l around every tick.
func WithLocker(l sync.Locker) PlayerOption {
	return func(p *Player) { p.lock = l }
}

// NewPlayer returns a player positioned at frame 0.
func NewPlayer(root *scene.Node, opts ...PlayerOption) *Player {
	p := &Player{root: root}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Frame returns the current frame.
func (p *Player) Frame() int { return p.frame }

// SetRoot points the player at a different tree, keeping the frame.
func (p *Player) SetRoot(root *scene.Node) { p.root = root }

// Seek jumps to frame and resolves every node there.
func (p *Player) Seek(frame int) {
	p.frame = frame
	p.apply()
}

// Tick advances one frame, wrapping to 0 past the end, and resolves every
// node at the new frame.
func (p *Player) Tick() int {
	p.frame++
	if p.frame > p.endFrame() {
		p.frame = 0
	}
	p.apply()
	return p.frame
}

func (p *Player) endFrame() int {
	if p.end > 0 {
		return p.end
	}
	return LastKeyframe(p.root)
}

func (p *Player) apply() {
	LoadFrame(p.root, p.frame)
}

// Run ticks at fps until ctx ends, calling onFrame after every tick.
// onFrame runs while the player's Locker, if any, is held.
func (p *Player) Run(ctx context.Context, fps int, onFrame func(frame int)) error {
	if fps <= 0 {
		return errors.Errorf("animation: fps must be positive, got %d", fps)
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if p.lock != nil {
				p.lock.Lock()
			}
			frame := p.Tick()
			if onFrame != nil {
				onFrame(frame)
			}
			if p.lock != nil {
				p.lock.Unlock()
			}
		}
	}
}

// LoadFrame resolves every node under root at frame, ancestors first.
func LoadFrame(root *scene.Node, frame int) {
	root.ForEach(func(n *scene.Node) { n.LoadFrame(frame) })
}

// LastKeyframe returns the highest keyed frame under root, or 0.
func LastKeyframe(root *scene.Node) int {
	last := 0
	root.ForEach(func(n *scene.Node) {
		if frames := n.Keyframes(); len(frames) > 0 && frames[len(frames)-1] > last {
			last = frames[len(frames)-1]
		}
	})
	return last
}
