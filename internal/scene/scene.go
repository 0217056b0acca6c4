// Package scene defines the attachment points between the world model and
// a renderer. The world model never touches meshes directly; it hands out
// handles and the renderer decides what they mean.
package scene

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Kind names what a handle refers to.
type Kind string

const (
	KindTerrain Kind = "terrain"
	KindDoodad  Kind = "doodad"
	KindModel   Kind = "model"
)

// Handle identifies one attachable scene object.
type Handle struct {
	Kind  Kind
	Key   string // chunk id, doodad uuid, entity id
	Asset string // model path, empty for terrain
}

func (h Handle) String() string {
	return fmt.Sprintf("%s:%s", h.Kind, h.Key)
}

// Scene receives attach/detach side effects. Implementations must be safe
// for concurrent use: chunk loads attach from their own goroutines.
type Scene interface {
	Attach(h Handle)
	Detach(h Handle)
}

// Graph is an in-memory Scene that tracks attached handles. The headless
// client renders into it and tests assert against it.
type Graph struct {
	mu       sync.Mutex
	attached map[Handle]int
	attaches int
	detaches int
	log      *zap.Logger
}

func NewGraph(log *zap.Logger) *Graph {
	if log == nil {
		log = zap.NewNop()
	}
	return &Graph{
		attached: make(map[Handle]int),
		log:      log,
	}
}

func (g *Graph) Attach(h Handle) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.attached[h]++
	g.attaches++
	g.log.Debug("scene attach", zap.Stringer("handle", h))
}

func (g *Graph) Detach(h Handle) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.attached[h] <= 1 {
		delete(g.attached, h)
	} else {
		g.attached[h]--
	}
	g.detaches++
	g.log.Debug("scene detach", zap.Stringer("handle", h))
}

// Count returns how many times h is currently attached.
func (g *Graph) Count(h Handle) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attached[h]
}

// Attached lists attached handles of one kind, sorted by key.
func (g *Graph) Attached(kind Kind) []Handle {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Handle, 0, len(g.attached))
	for h := range g.attached {
		if h.Kind == kind {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Stats returns total attach and detach calls.
func (g *Graph) Stats() (attaches, detaches int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attaches, g.detaches
}
