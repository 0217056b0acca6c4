// Package world is the client's aggregate root: it applies tick
// snapshots to the entity registries and drives per-frame updates.
package world

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tim-ings/mmo/internal/assets"
	"github.com/tim-ings/mmo/internal/core/event"
	"github.com/tim-ings/mmo/internal/entity"
	"github.com/tim-ings/mmo/internal/protocol"
	"github.com/tim-ings/mmo/internal/scene"
	"github.com/tim-ings/mmo/internal/terrain"
)

// State of the tick controller.
type State int

const (
	StateUninitialized State = iota
	StateActive
)

func (s State) String() string {
	if s == StateActive {
		return "active"
	}
	return "uninitialized"
}

// Client carries outbound packets to the server.
type Client interface {
	Send(data []byte)
}

// Config holds world timing.
type Config struct {
	TickRate    time.Duration // server tick interval
	DeathLinger time.Duration // how long dying entities stay after their last report
}

// Deps are the world's collaborators. A nil Store disables height
// sampling; a nil Bus or Scene gets a private one.
type Deps struct {
	Client Client
	Store  *terrain.Store
	Scene  scene.Scene
	Loader assets.Loader
	Paths  assets.Paths
	Bus    *event.Bus
	Log    *zap.Logger
}

// World holds everything the client knows about its surroundings. A
// single mutex makes each tick's reconciliation atomic with respect to
// frame updates.
type World struct {
	mu       sync.Mutex
	state    State
	tick     uint64
	timer    time.Duration
	tickRate time.Duration

	self        *entity.Player
	units       *entity.Registry[protocol.UnitDef, *entity.Unit]
	players     *entity.Registry[protocol.PlayerDef, *entity.Player]
	groundItems *entity.Registry[protocol.GroundItemDef, *entity.GroundItem]

	store *terrain.Store
	scene scene.Scene
	paths assets.Paths
	bus   *event.Bus
	log   *zap.Logger
}

// New builds the world and asks the server for the chunks around the
// player.
func New(cfg Config, deps Deps) *World {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	if deps.Bus == nil {
		deps.Bus = event.NewBus()
	}
	if deps.Scene == nil {
		deps.Scene = scene.NewGraph(log)
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = 200 * time.Millisecond
	}
	rc := entity.Config{
		Scene:       deps.Scene,
		Loader:      deps.Loader,
		Paths:       deps.Paths,
		Bus:         deps.Bus,
		DeathLinger: cfg.DeathLinger,
		Log:         log,
	}
	w := &World{
		tickRate:    cfg.TickRate,
		units:       entity.NewUnits(rc),
		players:     entity.NewPlayers(rc),
		groundItems: entity.NewGroundItems(rc),
		store:       deps.Store,
		scene:       deps.Scene,
		paths:       deps.Paths,
		bus:         deps.Bus,
		log:         log,
	}
	w.groundItems.OnAdded = func(id string, g *entity.GroundItem) {
		event.Emit(w.bus, event.GroundItemAdded{ID: id, Item: g})
	}
	w.groundItems.OnRemoved = func(id string) {
		event.Emit(w.bus, event.GroundItemRemoved{ID: id})
	}

	if deps.Client != nil {
		deps.Client.Send(protocol.EncodeRequestChunkList())
	}
	return w
}

// ApplyTick reconciles one snapshot. A snapshot no newer than the current
// tick is dropped and ApplyTick returns false.
func (w *World) ApplyTick(snap *protocol.TickSnapshot) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == StateActive && snap.Tick <= w.tick {
		w.log.Info("stale tick dropped",
			zap.Uint64("tick", snap.Tick),
			zap.Uint64("current", w.tick),
		)
		return false
	}
	if w.state == StateUninitialized {
		w.log.Info("world active", zap.Uint64("tick", snap.Tick))
	}
	w.state = StateActive
	w.timer = 0
	w.tick = snap.Tick

	w.updateSelf(snap.Self)
	w.units.Reconcile(snap.Tick, snap.Units)
	w.players.Reconcile(snap.Tick, snap.Players)
	w.groundItems.Reconcile(snap.Tick, snap.GroundItems)

	event.Emit(w.bus, event.TickAdvanced{Tick: snap.Tick})
	return true
}

// updateSelf keeps the session's own player. A different id replaces it.
func (w *World) updateSelf(def protocol.PlayerDef) {
	if def.ID == "" {
		return
	}
	if w.self != nil && w.self.ID() == def.ID {
		w.self.ApplyUpdate(def)
		return
	}
	if w.self != nil {
		w.self.Dispose()
	}
	w.self = entity.NewPlayer(def)
	asset := def.Model
	if w.paths != nil {
		asset = w.paths.Path(def.Model)
	}
	w.self.ShowModel(w.scene, scene.Handle{Kind: scene.KindModel, Key: "self:" + def.ID, Asset: asset})
}

// Update advances the inter-tick timer, finishes completed model loads
// and forwards the frame to every entity.
func (w *World) Update(dt time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.timer += dt
	f := entity.Frame{DT: dt, Alpha: w.alpha()}
	if w.store != nil {
		f.Heights = w.store
	}

	w.units.DrainLoads()
	w.players.DrainLoads()
	w.groundItems.DrainLoads()

	if w.self != nil {
		w.self.Update(f)
	}
	w.units.Update(f)
	w.players.Update(f)
	w.groundItems.Update(f)
}

// Alpha is the interpolation fraction between the last two ticks.
func (w *World) Alpha() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.alpha()
}

func (w *World) alpha() float64 {
	a := float64(w.timer) / float64(w.tickRate)
	switch {
	case a < 0:
		return 0
	case a > 1:
		return 1
	}
	return a
}

func (w *World) Tick() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tick
}

func (w *World) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Self returns the session's player, nil before the first tick.
func (w *World) Self() *entity.Player {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.self
}

func (w *World) Store() *terrain.Store { return w.store }

// View runs fn with the registries under the world lock.
func (w *World) View(fn func(v View)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(View{
		Units:       w.units,
		Players:     w.players,
		GroundItems: w.groundItems,
	})
}

// View exposes the registries for reading inside World.View.
type View struct {
	Units       *entity.Registry[protocol.UnitDef, *entity.Unit]
	Players     *entity.Registry[protocol.PlayerDef, *entity.Player]
	GroundItems *entity.Registry[protocol.GroundItemDef, *entity.GroundItem]
}

// Counts returns live units, players and ground items.
func (w *World) Counts() (units, players, items int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.units.Len(), w.players.Len(), w.groundItems.Len()
}

// Close removes every entity and the self player.
func (w *World) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.units.Clear()
	w.players.Clear()
	w.groundItems.Clear()
	if w.self != nil {
		w.self.Dispose()
		w.self = nil
	}
}
