package coord

import "testing"

func TestTileWorldRoundTrip(t *testing.T) {
	for x := -300; x <= 300; x += 7 {
		for y := -300; y <= 300; y += 11 {
			tile := Point{X: x, Y: y}
			if got := WorldToTile(TileToWorld(tile)); got != tile {
				t.Fatalf("round trip %v: got %v", tile, got)
			}
		}
	}
}

func TestWorldToTileRoundsHalfAwayFromZero(t *testing.T) {
	cases := []struct {
		in   WorldPoint
		want Point
	}{
		{WorldPoint{0.5, 3, 0.49}, Point{X: 1, Y: 0}},
		{WorldPoint{-0.5, 0, -1.5}, Point{X: -1, Y: -2}},
		{WorldPoint{2.49, 100, -2.51}, Point{X: 2, Y: -3}},
	}
	for _, c := range cases {
		if got := WorldToTile(c.in); got != c.want {
			t.Fatalf("WorldToTile(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestTileToChunk(t *testing.T) {
	cases := []struct {
		tile  Point
		grid  Point
		local Point
	}{
		{Point{X: 0, Y: 0}, Point{}, Point{}},
		{Point{X: 63, Y: 64}, Point{X: 0, Y: 1}, Point{X: 63, Y: 0}},
		{Point{X: -1, Y: -64}, Point{X: -1, Y: -1}, Point{X: 63, Y: 0}},
		{Point{X: -65, Y: 130}, Point{X: -2, Y: 2}, Point{X: 63, Y: 2}},
	}
	for _, c := range cases {
		grid, local := TileToChunk(c.tile)
		if grid != c.grid || local != c.local {
			t.Fatalf("TileToChunk(%v) = %v,%v want %v,%v", c.tile, grid, local, c.grid, c.local)
		}
		if back := ChunkToTile(grid, local); back != c.tile {
			t.Fatalf("ChunkToTile(%v,%v) = %v, want %v", grid, local, back, c.tile)
		}
	}
}

type gridMap map[int]Point

func (m gridMap) ChunkGrid(id int) (Point, bool) {
	g, ok := m[id]
	return g, ok
}

func TestChunkPointToWorld(t *testing.T) {
	r := gridMap{7: {X: 1, Y: -1}}
	cp := ChunkPoint{X: 3, Y: 4, Chunk: 7}
	w, ok := cp.ToWorld(r)
	if !ok {
		t.Fatalf("expected resident chunk")
	}
	want := WorldPoint{ChunkSize + 3, 0, -ChunkSize + 4}
	if w != want {
		t.Fatalf("ToWorld = %v, want %v", w, want)
	}
	if _, ok := (ChunkPoint{Chunk: 99}).ToWorld(r); ok {
		t.Fatalf("unknown chunk should not resolve")
	}
}

func TestChebyshevDistance(t *testing.T) {
	if d := ChebyshevDistance(Point{X: 1, Y: 1}, Point{X: -2, Y: 3}); d != 3 {
		t.Fatalf("distance = %d, want 3", d)
	}
}
