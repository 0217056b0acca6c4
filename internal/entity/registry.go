package entity

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tim-ings/mmo/internal/assets"
	"github.com/tim-ings/mmo/internal/core/event"
	"github.com/tim-ings/mmo/internal/protocol"
	"github.com/tim-ings/mmo/internal/scene"
)

// Config wires a Registry to its collaborators.
type Config struct {
	Scene       scene.Scene
	Loader      assets.Loader
	Paths       assets.Paths
	Bus         *event.Bus
	DeathLinger time.Duration // 0 keeps dying entities until the next sweep
	Log         *zap.Logger
}

// Registry keeps one live entity per server id for a single entity kind
// and reconciles it against each tick's definitions. It is not safe for
// concurrent use, except that model loads may complete from any goroutine.
type Registry[D any, E Entity[D]] struct {
	kind    event.EntityKind
	newFn   func(D) E
	idOf    func(D) string
	modelOf func(D) string

	records map[string]*record[E]

	mu   sync.Mutex // guards done
	done []completion[E]

	cfg Config
	log *zap.Logger

	// OnAdded and OnRemoved run after the matching bus event is queued.
	OnAdded   func(id string, e E)
	OnRemoved func(id string)
}

type record[E any] struct {
	entity E
	tick   uint64
	stale  bool
	linger time.Duration
	added  bool
}

type completion[E any] struct {
	rec   *record[E]
	id    string
	name  string
	model assets.Model
	err   error
}

func newRegistry[D any, E Entity[D]](kind event.EntityKind, cfg Config, newFn func(D) E, idOf, modelOf func(D) string) *Registry[D, E] {
	if cfg.Scene == nil {
		cfg.Scene = scene.NewGraph(nil)
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.Loader == nil {
		cfg.Loader = assets.LoaderFunc(func(name string) (assets.Model, error) {
			return assets.Model{Name: name, Path: name}, nil
		})
	}
	return &Registry[D, E]{
		kind:    kind,
		newFn:   newFn,
		idOf:    idOf,
		modelOf: modelOf,
		records: make(map[string]*record[E]),
		cfg:     cfg,
		log:     cfg.Log.With(zap.String("kind", string(kind))),
	}
}

func NewUnits(cfg Config) *Registry[protocol.UnitDef, *Unit] {
	return newRegistry(event.KindUnit, cfg, NewUnit,
		func(d protocol.UnitDef) string { return d.ID },
		func(d protocol.UnitDef) string { return d.Model })
}

func NewPlayers(cfg Config) *Registry[protocol.PlayerDef, *Player] {
	return newRegistry(event.KindPlayer, cfg, NewPlayer,
		func(d protocol.PlayerDef) string { return d.ID },
		func(d protocol.PlayerDef) string { return d.Model })
}

func NewGroundItems(cfg Config) *Registry[protocol.GroundItemDef, *GroundItem] {
	return newRegistry(event.KindGroundItem, cfg, NewGroundItem,
		func(d protocol.GroundItemDef) string { return d.ID },
		func(d protocol.GroundItemDef) string { return d.Model })
}

func (r *Registry[D, E]) Kind() event.EntityKind { return r.kind }

// Reconcile applies one tick's definitions: unknown ids are constructed,
// known ids are overwritten, and every entity the tick did not mention is
// swept.
func (r *Registry[D, E]) Reconcile(tick uint64, defs []D) {
	for _, def := range defs {
		id := r.idOf(def)
		rec, ok := r.records[id]
		if !ok {
			r.construct(tick, def)
			continue
		}
		rec.entity.ApplyUpdate(def)
		if rec.stale && !rec.entity.IsDead() {
			rec.stale = false
			r.log.Debug("stale entity reported alive", zap.String("id", id))
		}
		rec.tick = tick
	}
	r.sweep(tick)
}

// construct registers the entity at once and loads its model in the
// background. EntityAdded waits for the load.
func (r *Registry[D, E]) construct(tick uint64, def D) {
	id := r.idOf(def)
	if _, dup := r.records[id]; dup {
		assertf(r.log, "duplicate construction of %s %s", r.kind, id)
		return
	}
	rec := &record[E]{entity: r.newFn(def), tick: tick}
	r.records[id] = rec

	name := r.modelOf(def)
	r.cfg.Loader.Load(name, func(m assets.Model, err error) {
		r.mu.Lock()
		r.done = append(r.done, completion[E]{rec: rec, id: id, name: name, model: m, err: err})
		r.mu.Unlock()
	})
}

// sweep handles entities the tick did not mention. A dead entity seen
// absent for the first time is kept as stale so its death can play out;
// anything else, including an entity already stale, is removed.
func (r *Registry[D, E]) sweep(tick uint64) {
	for _, id := range r.IDs() {
		rec := r.records[id]
		if rec.tick == tick {
			continue
		}
		if rec.entity.IsDead() && !rec.stale {
			rec.stale = true
			rec.linger = r.cfg.DeathLinger
			r.log.Debug("entity dying", zap.String("id", id))
			continue
		}
		r.remove(id, rec)
	}
}

func (r *Registry[D, E]) remove(id string, rec *record[E]) {
	delete(r.records, id)
	if r.cfg.Bus != nil {
		event.Emit(r.cfg.Bus, event.EntityRemoved{Kind: r.kind, ID: id})
	}
	if r.OnRemoved != nil {
		r.OnRemoved(id)
	}
	rec.entity.Dispose()
}

// DrainLoads finishes constructions whose model load has completed and
// returns how many it finished. A load that failed attaches the
// placeholder model. Loads for entities removed in the meantime are
// discarded.
func (r *Registry[D, E]) DrainLoads() int {
	r.mu.Lock()
	done := r.done
	r.done = nil
	r.mu.Unlock()

	n := 0
	for _, c := range done {
		if cur, ok := r.records[c.id]; !ok || cur != c.rec {
			continue
		}
		m := c.model
		if c.err != nil {
			r.log.Warn("model load failed, using placeholder",
				zap.String("id", c.id),
				zap.String("model", c.name),
				zap.Error(c.err),
			)
			if r.cfg.Paths != nil {
				m = assets.Placeholder(r.cfg.Paths, c.name)
			} else {
				m = assets.Model{Name: c.name, Placeholder: true}
			}
		}
		h := scene.Handle{Kind: scene.KindModel, Key: string(r.kind) + ":" + c.id, Asset: m.Path}
		c.rec.entity.ShowModel(r.cfg.Scene, h)
		c.rec.added = true
		if r.cfg.Bus != nil {
			event.Emit(r.cfg.Bus, event.EntityAdded{Kind: r.kind, ID: c.id, Entity: c.rec.entity})
		}
		if r.OnAdded != nil {
			r.OnAdded(c.id, c.rec.entity)
		}
		n++
	}
	return n
}

// Update forwards a frame to every entity and evicts dying entities whose
// linger has run out.
func (r *Registry[D, E]) Update(f Frame) {
	var expired []string
	for id, rec := range r.records {
		rec.entity.Update(f)
		if !rec.stale || r.cfg.DeathLinger <= 0 {
			continue
		}
		rec.linger -= f.DT
		if rec.linger <= 0 {
			expired = append(expired, id)
		}
	}
	sort.Strings(expired)
	for _, id := range expired {
		r.log.Debug("death linger elapsed", zap.String("id", id))
		r.remove(id, r.records[id])
	}
}

// Get returns the entity for id.
func (r *Registry[D, E]) Get(id string) (E, bool) {
	rec, ok := r.records[id]
	if !ok {
		var zero E
		return zero, false
	}
	return rec.entity, true
}

// IsStale reports whether id is registered and dying.
func (r *Registry[D, E]) IsStale(id string) bool {
	rec, ok := r.records[id]
	return ok && rec.stale
}

// IsAdded reports whether id's EntityAdded has been emitted.
func (r *Registry[D, E]) IsAdded(id string) bool {
	rec, ok := r.records[id]
	return ok && rec.added
}

func (r *Registry[D, E]) Len() int { return len(r.records) }

// IDs returns the registered ids, sorted.
func (r *Registry[D, E]) IDs() []string {
	ids := make([]string, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Each calls fn for every registered entity in id order.
func (r *Registry[D, E]) Each(fn func(id string, e E)) {
	for _, id := range r.IDs() {
		fn(id, r.records[id].entity)
	}
}

// Clear removes every entity through the normal removal path.
func (r *Registry[D, E]) Clear() {
	for _, id := range r.IDs() {
		r.remove(id, r.records[id])
	}
}
