// Package entity holds the client's local copies of server entities and
// the registry that reconciles them against tick snapshots.
package entity

import (
	"time"

	"github.com/tim-ings/mmo/internal/coord"
	"github.com/tim-ings/mmo/internal/scene"
)

// HeightSampler answers terrain height at a world position.
type HeightSampler interface {
	SampleHeight(w coord.WorldPoint) (float64, bool)
}

// Frame is the per-frame input to entity updates.
type Frame struct {
	DT      time.Duration
	Alpha   float64 // progress from the previous tick to the current one, [0, 1]
	Heights HeightSampler
}

// Entity is what a Registry needs from an entity kind.
type Entity[D any] interface {
	ID() string
	ApplyUpdate(def D)
	IsDead() bool
	Update(f Frame)
	ShowModel(sc scene.Scene, h scene.Handle)
	Dispose()
}

// body is the positional and scene state shared by every entity kind.
type body struct {
	id     string
	prev   coord.WorldPoint
	target coord.WorldPoint
	pos    coord.WorldPoint
	placed bool

	sc       scene.Scene
	model    scene.Handle
	shown    bool
	disposed bool
}

func (b *body) ID() string { return b.id }

// Position is the interpolated world position as of the last frame.
func (b *body) Position() coord.WorldPoint { return b.pos }

// Model returns the attached model handle, if any.
func (b *body) Model() (scene.Handle, bool) { return b.model, b.shown }

// moveTo starts a new interpolation segment from wherever the entity is
// drawn now to tile t. The first placement snaps.
func (b *body) moveTo(t coord.Point) {
	w := coord.TileToWorld(t)
	if !b.placed {
		b.prev, b.pos, b.placed = w, w, true
	} else {
		b.prev = b.pos
	}
	b.target = w
}

func (b *body) interpolate(f Frame) {
	p := b.prev.Add(b.target.Sub(b.prev).Mul(f.Alpha))
	if f.Heights != nil {
		if h, ok := f.Heights.SampleHeight(p); ok {
			p[1] = h
		}
	}
	b.pos = p
}

func (b *body) ShowModel(sc scene.Scene, h scene.Handle) {
	if b.disposed || b.shown {
		return
	}
	b.sc, b.model, b.shown = sc, h, true
	sc.Attach(h)
}

func (b *body) Dispose() {
	if b.disposed {
		return
	}
	b.disposed = true
	if b.shown {
		b.sc.Detach(b.model)
	}
}

// Disposed reports whether Dispose has run.
func (b *body) Disposed() bool { return b.disposed }
