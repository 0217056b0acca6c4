package terrain

import (
	"errors"
	"testing"

	"github.com/tim-ings/mmo/internal/coord"
	"github.com/tim-ings/mmo/internal/protocol"
	"github.com/tim-ings/mmo/internal/scene"
)

func TestEditsRequireEditableStore(t *testing.T) {
	s := NewStore(StoreConfig{Source: newMapSource(flatDef(0, 0, 0))})
	loadGrid(t, s, [][2]int{{0, 0}})
	if err := s.SetHeight(gridID(0, 0), coord.Point{X: 1, Y: 1}, 3); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("err = %v, want ErrReadOnly", err)
	}
}

func TestSetHeightAndSmooth(t *testing.T) {
	s := NewStore(StoreConfig{Source: newMapSource(flatDef(0, 0, 0)), Editable: true})
	loadGrid(t, s, [][2]int{{0, 0}})
	id := gridID(0, 0)
	c := s.Chunk(id)

	before := c.Normal(11, 10)
	if err := s.SetHeight(id, coord.Point{X: 10, Y: 10}, 8); err != nil {
		t.Fatalf("SetHeight: %v", err)
	}
	if c.Height(10, 10) != 8 {
		t.Fatalf("height = %v, want 8", c.Height(10, 10))
	}
	if c.Normal(11, 10) == before {
		t.Fatal("neighbour normal not recomputed")
	}

	if err := s.Smooth(id, coord.Point{X: 10, Y: 10}, 0.5); err != nil {
		t.Fatalf("Smooth: %v", err)
	}
	if c.Height(10, 10) != 4 {
		t.Fatalf("smoothed height = %v, want 4", c.Height(10, 10))
	}

	if err := s.SetHeight(id, coord.Point{X: Verts, Y: 0}, 1); err == nil {
		t.Fatal("expected out of range error")
	}
	if err := s.Smooth(id, coord.Point{}, 2); err == nil {
		t.Fatal("expected strength error")
	}
	if err := s.SetHeight(999, coord.Point{}, 1); !errors.Is(err, ErrNotResident) {
		t.Fatalf("err = %v, want ErrNotResident", err)
	}

	snap, ok := s.Snapshot(id)
	if !ok || snap.Heights[10*Verts+10] != 4 {
		t.Fatal("snapshot does not carry edits")
	}
}

func TestAddRemoveDoodad(t *testing.T) {
	g := scene.NewGraph(nil)
	s := NewStore(StoreConfig{Source: newMapSource(flatDef(0, 0, 0)), Scene: g, Editable: true})
	loadGrid(t, s, [][2]int{{0, 0}})
	id := gridID(0, 0)

	def := protocol.DoodadDef{UUID: "well", Model: "well.glb", X: 5, Y: 5,
		Navblocks: []protocol.NavblockDef{{X: 0, Y: 0}}}
	if err := s.AddDoodad(id, def); err != nil {
		t.Fatalf("AddDoodad: %v", err)
	}
	if err := s.AddDoodad(id, def); err == nil {
		t.Fatal("duplicate doodad accepted")
	}
	if s.Walkable(coord.Point{X: 5, Y: 5}) {
		t.Fatal("new doodad navblock ignored")
	}
	if n := len(g.Attached(scene.KindDoodad)); n != 1 {
		t.Fatalf("%d doodads attached, want 1", n)
	}

	if err := s.RemoveDoodad(id, "well"); err != nil {
		t.Fatalf("RemoveDoodad: %v", err)
	}
	if !s.Walkable(coord.Point{X: 5, Y: 5}) {
		t.Fatal("navblock outlived its doodad")
	}
	if n := len(g.Attached(scene.KindDoodad)); n != 0 {
		t.Fatalf("%d doodads attached after removal", n)
	}
	if err := s.RemoveDoodad(id, "well"); err == nil {
		t.Fatal("removing a missing doodad succeeded")
	}
}
