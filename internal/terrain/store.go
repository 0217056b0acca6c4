package terrain

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/tim-ings/mmo/internal/coord"
	"github.com/tim-ings/mmo/internal/core/event"
	"github.com/tim-ings/mmo/internal/protocol"
	"github.com/tim-ings/mmo/internal/scene"
)

// ModelPaths resolves a doodad model name to its asset path.
type ModelPaths interface {
	Path(model string) string
}

type identityPaths struct{}

func (identityPaths) Path(model string) string { return model }

// StoreConfig wires a Store to its collaborators. Only Source is required.
type StoreConfig struct {
	Source   Source
	Scene    scene.Scene
	Models   ModelPaths
	Bus      *event.Bus
	Editable bool
	Log      *zap.Logger
}

// Store owns the resident chunks. All maps are guarded by one RWMutex;
// loads for the same id collapse into a single fetch.
type Store struct {
	mu       sync.RWMutex
	chunks   map[int]*Chunk
	byGrid   map[coord.Point]*Chunk
	order    []int // residency order
	blocked  map[coord.Point]int
	pending  map[int]struct{}
	loads    singleflight.Group
	src      Source
	scene    scene.Scene
	models   ModelPaths
	bus      *event.Bus
	editable bool
	log      *zap.Logger
}

func NewStore(cfg StoreConfig) *Store {
	s := &Store{
		chunks:   make(map[int]*Chunk),
		byGrid:   make(map[coord.Point]*Chunk),
		blocked:  make(map[coord.Point]int),
		pending:  make(map[int]struct{}),
		src:      cfg.Source,
		scene:    cfg.Scene,
		models:   cfg.Models,
		bus:      cfg.Bus,
		editable: cfg.Editable,
		log:      cfg.Log,
	}
	if s.scene == nil {
		s.scene = scene.NewGraph(nil)
	}
	if s.models == nil {
		s.models = identityPaths{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Load returns chunk id, fetching and materializing it if it is not
// resident. Concurrent loads of one id share a single fetch. A failed load
// leaves the id absent; the store does not retry.
func (s *Store) Load(ctx context.Context, id int) (*Chunk, error) {
	if c := s.Chunk(id); c != nil {
		return c, nil
	}
	v, err, _ := s.loads.Do(strconv.Itoa(id), func() (any, error) {
		// a flight that finished between the check above and Do
		if c := s.Chunk(id); c != nil {
			return c, nil
		}
		s.setPending(id, true)
		defer s.setPending(id, false)

		def, err := s.src.Fetch(context.WithoutCancel(ctx), id)
		if err != nil {
			return nil, fmt.Errorf("load chunk %d: %w", id, err)
		}
		if def.ID != id {
			return nil, fmt.Errorf("load chunk %d: source returned chunk %d", id, def.ID)
		}
		c, err := newChunk(def, s.models)
		if err != nil {
			return nil, fmt.Errorf("load chunk %d: %w", id, err)
		}
		return s.insert(c)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Chunk), nil
}

func (s *Store) insert(c *Chunk) (*Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if other, ok := s.byGrid[c.grid]; ok {
		return nil, fmt.Errorf("load chunk %d: grid %v already held by chunk %d", c.id, c.grid, other.id)
	}
	s.chunks[c.id] = c
	s.byGrid[c.grid] = c
	s.order = append(s.order, c.id)

	s.scene.Attach(c.mesh)
	for _, d := range c.doodads {
		s.scene.Attach(d.Handle)
		s.block(c.grid, d, 1)
	}
	if s.bus != nil {
		event.Emit(s.bus, event.ChunkLoaded{ID: c.id})
	}
	s.log.Debug("chunk loaded",
		zap.Int("id", c.id),
		zap.Int("grid_x", c.grid.X),
		zap.Int("grid_y", c.grid.Y),
		zap.Int("doodads", len(c.doodads)),
	)
	return c, nil
}

func (s *Store) block(grid coord.Point, d *Doodad, delta int) {
	for _, t := range doodadNavblocks(grid, d) {
		s.blocked[t] += delta
		if s.blocked[t] <= 0 {
			delete(s.blocked, t)
		}
	}
}

func (s *Store) setPending(id int, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if on {
		s.pending[id] = struct{}{}
	} else {
		delete(s.pending, id)
	}
}

// Prune evicts every resident chunk whose chunk-grid Chebyshev distance
// from the chunk containing center exceeds viewDistance. It returns the
// evicted ids in residency order.
func (s *Store) Prune(center coord.Point, viewDistance int) []int {
	centerGrid, _ := coord.TileToChunk(center)

	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []int
	kept := s.order[:0]
	for _, id := range s.order {
		c := s.chunks[id]
		if coord.ChebyshevDistance(c.grid, centerGrid) <= viewDistance {
			kept = append(kept, id)
			continue
		}
		s.evict(c)
		evicted = append(evicted, id)
	}
	s.order = kept

	if len(evicted) > 0 {
		s.log.Debug("chunks pruned",
			zap.Ints("evicted", evicted),
			zap.Int("resident", len(s.order)),
		)
	}
	return evicted
}

// evict detaches and releases c. Caller holds the lock and fixes order.
func (s *Store) evict(c *Chunk) {
	for _, d := range c.doodads {
		s.scene.Detach(d.Handle)
		s.block(c.grid, d, -1)
	}
	s.scene.Detach(c.mesh)
	delete(s.chunks, c.id)
	delete(s.byGrid, c.grid)
	c.release()
	if s.bus != nil {
		event.Emit(s.bus, event.ChunkEvicted{ID: c.id})
	}
}

// Stitch makes every shared boundary vertex agree between resident
// neighbours. Edge interiors are copied from the west chunk onto the east
// one and from the north chunk onto the south one. Each corner junction
// has a single owner, the first resident of its north-west, north-east,
// south-west and south-east chunks. It returns how many vertices changed;
// a second call changes nothing.
func (s *Store) Stitch() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	junctions := make(map[coord.Point]struct{}, 4*len(s.order))
	corners := make([]coord.Point, 0, 4*len(s.order))
	for _, id := range s.order {
		c := s.chunks[id]
		if e, ok := s.byGrid[c.grid.Add(coord.Point{X: 1})]; ok {
			for y := 1; y < Verts-1; y++ {
				if copyVertex(c, Verts-1, y, e, 0, y) {
					changed++
				}
			}
		}
		if so, ok := s.byGrid[c.grid.Add(coord.Point{Y: 1})]; ok {
			for x := 1; x < Verts-1; x++ {
				if copyVertex(c, x, Verts-1, so, x, 0) {
					changed++
				}
			}
		}
		for _, d := range [...]coord.Point{{}, {X: 1}, {Y: 1}, {X: 1, Y: 1}} {
			j := c.grid.Add(d)
			if _, seen := junctions[j]; !seen {
				junctions[j] = struct{}{}
				corners = append(corners, j)
			}
		}
	}
	for _, j := range corners {
		changed += s.stitchCorner(j)
	}
	return changed
}

// cornerSlots lists, for the junction at the north-west corner of grid
// cell j, the chunks that meet there and the vertex each holds, in
// ownership order.
var cornerSlots = [4]struct {
	off  coord.Point
	x, y int
}{
	{coord.Point{X: -1, Y: -1}, Verts - 1, Verts - 1}, // NW
	{coord.Point{Y: -1}, 0, Verts - 1},                 // NE
	{coord.Point{X: -1}, Verts - 1, 0},                 // SW
	{coord.Point{}, 0, 0},                              // SE
}

func (s *Store) stitchCorner(j coord.Point) int {
	var owner *Chunk
	ox, oy := 0, 0
	changed := 0
	for _, slot := range cornerSlots {
		c, ok := s.byGrid[j.Add(slot.off)]
		if !ok {
			continue
		}
		if owner == nil {
			owner, ox, oy = c, slot.x, slot.y
			continue
		}
		if copyVertex(owner, ox, oy, c, slot.x, slot.y) {
			changed++
		}
	}
	return changed
}

// StitchUntilStable repeats Stitch until a pass changes nothing or
// maxPasses is reached. It returns the number of passes run.
func (s *Store) StitchUntilStable(maxPasses int) int {
	passes := 0
	for passes < maxPasses {
		passes++
		if s.Stitch() == 0 {
			break
		}
	}
	return passes
}

// Mismatches counts shared boundary vertices whose height or normal
// differs between resident neighbours.
func (s *Store) Mismatches() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, c := range s.chunks {
		if e, ok := s.byGrid[c.grid.Add(coord.Point{X: 1})]; ok {
			for y := 0; y < Verts; y++ {
				if !sameVertex(c, Verts-1, y, e, 0, y) {
					n++
				}
			}
		}
		if so, ok := s.byGrid[c.grid.Add(coord.Point{Y: 1})]; ok {
			for x := 0; x < Verts; x++ {
				if !sameVertex(c, x, Verts-1, so, x, 0) {
					n++
				}
			}
		}
	}
	return n
}

func sameVertex(a *Chunk, ax, ay int, b *Chunk, bx, by int) bool {
	return a.Height(ax, ay) == b.Height(bx, by) && a.Normal(ax, ay) == b.Normal(bx, by)
}

// ElevationAt returns the terrain height at a tile, or false when the
// tile's chunk is not resident.
func (s *Store) ElevationAt(t coord.Point) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.elevationAt(t)
}

func (s *Store) elevationAt(t coord.Point) (float64, bool) {
	grid, local := coord.TileToChunk(t)
	c, ok := s.byGrid[grid]
	if !ok {
		return 0, false
	}
	return c.Height(local.X, local.Y), true
}

// SampleHeight bilinearly interpolates terrain height at a continuous
// world position. Missing neighbour tiles fall back to the base tile.
func (s *Store) SampleHeight(w coord.WorldPoint) (float64, bool) {
	fx, fz := w.X()/coord.TileSize, w.Z()/coord.TileSize
	x0, z0 := math.Floor(fx), math.Floor(fz)
	tx, tz := fx-x0, fz-z0
	base := coord.Point{X: int(x0), Y: int(z0)}

	s.mu.RLock()
	defer s.mu.RUnlock()

	h00, ok := s.elevationAt(base)
	if !ok {
		return 0, false
	}
	at := func(dx, dy int) float64 {
		if h, ok := s.elevationAt(base.Add(coord.Point{X: dx, Y: dy})); ok {
			return h
		}
		return h00
	}
	h10, h01, h11 := at(1, 0), at(0, 1), at(1, 1)
	top := h00 + (h10-h00)*tx
	bottom := h01 + (h11-h01)*tx
	return top + (bottom-top)*tz, true
}

// Walkable reports whether a tile lies on resident terrain and is not
// covered by a doodad navblock.
func (s *Store) Walkable(t coord.Point) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	grid, _ := coord.TileToChunk(t)
	if _, ok := s.byGrid[grid]; !ok {
		return false
	}
	return s.blocked[t] == 0
}

// ChunkGrid implements coord.GridResolver.
func (s *Store) ChunkGrid(id int) (coord.Point, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chunks[id]
	if !ok {
		return coord.Point{}, false
	}
	return c.grid, true
}

// Chunk returns a resident chunk or nil.
func (s *Store) Chunk(id int) *Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chunks[id]
}

// ChunkAt returns the resident chunk covering grid cell g, or nil.
func (s *Store) ChunkAt(g coord.Point) *Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byGrid[g]
}

// Resident returns resident chunk ids in residency order.
func (s *Store) Resident() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int, len(s.order))
	copy(out, s.order)
	return out
}

// Pending reports whether id is being fetched right now.
func (s *Store) Pending(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pending[id]
	return ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// ResidentGrid returns the grid cells of resident chunks, sorted north to
// south then west to east.
func (s *Store) ResidentGrid() []coord.Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]coord.Point, 0, len(s.byGrid))
	for g := range s.byGrid {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

// Snapshot returns the current definition of a resident chunk, edits
// included.
func (s *Store) Snapshot(id int) (*protocol.ChunkDef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chunks[id]
	if !ok {
		return nil, false
	}
	return c.Def(), true
}
