package coord

// GridResolver resolves a chunk id to that chunk's grid cell. The terrain
// store implements it; a ChunkPoint never holds the chunk itself.
type GridResolver interface {
	ChunkGrid(id int) (Point, bool)
}

// ChunkPoint is a position local to one chunk, referencing the chunk by id.
type ChunkPoint struct {
	X     int
	Y     int
	Chunk int
}

// Tile resolves the point to tile space. ok is false when the chunk is not
// resident.
func (c ChunkPoint) Tile(r GridResolver) (Point, bool) {
	grid, ok := r.ChunkGrid(c.Chunk)
	if !ok {
		return Point{}, false
	}
	return ChunkToTile(grid, Point{X: c.X, Y: c.Y}), true
}

// ToWorld resolves the point to world space at elevation 0.
func (c ChunkPoint) ToWorld(r GridResolver) (WorldPoint, bool) {
	t, ok := c.Tile(r)
	if !ok {
		return WorldPoint{}, false
	}
	return TileToWorld(t), true
}
