package world

import (
	"testing"
	"time"

	"github.com/tim-ings/mmo/internal/assets"
	"github.com/tim-ings/mmo/internal/coord"
	"github.com/tim-ings/mmo/internal/core/event"
	"github.com/tim-ings/mmo/internal/net/packet"
	"github.com/tim-ings/mmo/internal/protocol"
	"github.com/tim-ings/mmo/internal/scene"
	"github.com/tim-ings/mmo/internal/terrain"
)

type recordingClient struct {
	sent [][]byte
}

func (c *recordingClient) Send(data []byte) { c.sent = append(c.sent, data) }

type syncLoader struct{}

func (syncLoader) Load(name string, done func(assets.Model, error)) {
	done(assets.Model{Name: name, Path: name}, nil)
}

type fixture struct {
	w      *World
	bus    *event.Bus
	client *recordingClient
	graph  *scene.Graph
	events []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{bus: event.NewBus(), client: &recordingClient{}, graph: scene.NewGraph(nil)}
	store := terrain.NewStore(terrain.StoreConfig{Source: terrain.NewStaged(), Scene: f.graph})
	f.w = New(Config{TickRate: 100 * time.Millisecond}, Deps{
		Client: f.client,
		Store:  store,
		Scene:  f.graph,
		Loader: syncLoader{},
		Bus:    f.bus,
	})
	event.Subscribe(f.bus, func(e event.EntityAdded) { f.events = append(f.events, "added:"+string(e.Kind)+":"+e.ID) })
	event.Subscribe(f.bus, func(e event.EntityRemoved) { f.events = append(f.events, "removed:"+string(e.Kind)+":"+e.ID) })
	event.Subscribe(f.bus, func(e event.GroundItemAdded) { f.events = append(f.events, "item+:"+e.ID) })
	event.Subscribe(f.bus, func(e event.GroundItemRemoved) { f.events = append(f.events, "item-:"+e.ID) })
	event.Subscribe(f.bus, func(e event.TickAdvanced) { f.events = append(f.events, "tick") })
	return f
}

func (f *fixture) frame(dt time.Duration) {
	f.w.Update(dt)
	f.bus.SwapBuffers()
	f.bus.DispatchAll()
}

func snapshot(tick uint64) *protocol.TickSnapshot {
	return &protocol.TickSnapshot{
		Tick: tick,
		Self: protocol.PlayerDef{ID: "me", Name: "Tim", Model: "human.glb", Health: 50, MaxHealth: 50},
		Units: []protocol.UnitDef{
			{ID: "u1", Model: "goblin.glb", Health: 10, MaxHealth: 10, Position: coord.Point{X: 1, Y: 1}},
		},
		Players: []protocol.PlayerDef{
			{ID: "p1", Model: "elf.glb", Health: 20, MaxHealth: 20},
		},
		GroundItems: []protocol.GroundItemDef{
			{ID: "g1", Model: "coin.glb", Count: 5},
		},
	}
}

func TestNewRequestsChunkList(t *testing.T) {
	f := newFixture(t)
	if len(f.client.sent) != 1 {
		t.Fatalf("sent %d packets, want 1", len(f.client.sent))
	}
	if op := f.client.sent[0][0]; op != packet.C_OPCODE_REQUEST_CHUNK_LIST {
		t.Fatalf("opcode = %d", op)
	}
	if f.w.State() != StateUninitialized {
		t.Fatal("world active before first tick")
	}
}

func TestApplyTickReconcilesAllKinds(t *testing.T) {
	f := newFixture(t)
	if !f.w.ApplyTick(snapshot(1)) {
		t.Fatal("first tick rejected")
	}
	f.frame(10 * time.Millisecond)

	want := []string{"tick", "added:unit:u1", "added:player:p1", "added:ground_item:g1", "item+:g1"}
	if len(f.events) != len(want) {
		t.Fatalf("events = %v, want %v", f.events, want)
	}
	for i := range want {
		if f.events[i] != want[i] {
			t.Fatalf("events = %v, want %v", f.events, want)
		}
	}
	if f.w.State() != StateActive || f.w.Tick() != 1 {
		t.Fatalf("state = %v tick = %d", f.w.State(), f.w.Tick())
	}
	if self := f.w.Self(); self == nil || self.Def().Name != "Tim" {
		t.Fatalf("self = %+v", self)
	}
	if u, p, g := f.w.Counts(); u != 1 || p != 1 || g != 1 {
		t.Fatalf("counts = %d %d %d", u, p, g)
	}

	f.events = nil
	next := snapshot(2)
	next.GroundItems = nil
	f.w.ApplyTick(next)
	f.frame(0)
	if len(f.events) != 3 || f.events[0] != "removed:ground_item:g1" || f.events[1] != "item-:g1" || f.events[2] != "tick" {
		t.Fatalf("events = %v", f.events)
	}
}

func TestDuplicateTickRejected(t *testing.T) {
	f := newFixture(t)
	snap := snapshot(5)
	if !f.w.ApplyTick(snap) {
		t.Fatal("first apply rejected")
	}
	if f.w.ApplyTick(snap) {
		t.Fatal("duplicate tick accepted")
	}
	if f.w.ApplyTick(snapshot(4)) {
		t.Fatal("older tick accepted")
	}
	f.frame(0)

	added, ticks := 0, 0
	for _, e := range f.events {
		switch {
		case e == "tick":
			ticks++
		case len(e) > 6 && e[:6] == "added:":
			added++
		}
	}
	if ticks != 1 || added != 3 {
		t.Fatalf("ticks = %d added = %d, want 1 and 3 (events %v)", ticks, added, f.events)
	}
}

func TestAlphaClamps(t *testing.T) {
	f := newFixture(t)
	f.w.ApplyTick(snapshot(1))
	f.w.Update(50 * time.Millisecond)
	if a := f.w.Alpha(); a != 0.5 {
		t.Fatalf("alpha = %v, want 0.5", a)
	}
	f.w.Update(80 * time.Millisecond)
	if a := f.w.Alpha(); a != 1 {
		t.Fatalf("alpha = %v, want clamp to 1", a)
	}
	f.w.ApplyTick(snapshot(2))
	if a := f.w.Alpha(); a != 0 {
		t.Fatalf("alpha after tick = %v, want 0", a)
	}
}

func TestStaleUnitSurvivesOneTick(t *testing.T) {
	f := newFixture(t)
	snap := snapshot(1)
	snap.Units[0].Health = 0
	f.w.ApplyTick(snap)
	f.frame(0)

	f.w.ApplyTick(&protocol.TickSnapshot{Tick: 2, Self: snap.Self})
	f.w.View(func(v View) {
		if !v.Units.IsStale("u1") {
			t.Fatal("dead unit not stale")
		}
	})
	f.w.ApplyTick(&protocol.TickSnapshot{Tick: 3, Self: snap.Self})
	if u, _, _ := f.w.Counts(); u != 0 {
		t.Fatal("stale unit not evicted")
	}
}

func TestCloseDetachesEverything(t *testing.T) {
	f := newFixture(t)
	f.w.ApplyTick(snapshot(1))
	f.frame(0)
	if n := len(f.graph.Attached(scene.KindModel)); n != 4 {
		t.Fatalf("%d models attached, want 4", n)
	}
	f.w.Close()
	if n := len(f.graph.Attached(scene.KindModel)); n != 0 {
		t.Fatalf("%d models attached after Close", n)
	}
}
