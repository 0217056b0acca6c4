package coord

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	// TileSize is the world-space edge length of one tile.
	TileSize = 1.0
	// ChunkSize is the number of tiles along each edge of a chunk.
	ChunkSize = 64
)

// Point is an integer position in tile space (or chunk-local space when
// paired with a chunk).
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns p+o.
func (p Point) Add(o Point) Point { return Point{X: p.X + o.X, Y: p.Y + o.Y} }

// Sub returns p-o.
func (p Point) Sub(o Point) Point { return Point{X: p.X - o.X, Y: p.Y - o.Y} }

// WorldPoint is a continuous world-space position. X runs east, Y is
// elevation, Z runs south. Tile Y maps onto world Z.
type WorldPoint = mgl64.Vec3

// TileToWorld returns the world position of a tile's center at elevation 0.
// Elevation is filled in by terrain sampling, never here.
func TileToWorld(t Point) WorldPoint {
	return WorldPoint{float64(t.X) * TileSize, 0, float64(t.Y) * TileSize}
}

// WorldToTile rounds a world position to the nearest tile, halves away
// from zero. Elevation is ignored.
func WorldToTile(w WorldPoint) Point {
	return Point{
		X: int(math.Round(w.X() / TileSize)),
		Y: int(math.Round(w.Z() / TileSize)),
	}
}

// ChunkOrigin returns the tile of a chunk's north-west corner.
func ChunkOrigin(grid Point) Point {
	return Point{X: grid.X * ChunkSize, Y: grid.Y * ChunkSize}
}

// ChunkToTile converts a chunk-local point to tile space.
func ChunkToTile(grid Point, local Point) Point {
	return ChunkOrigin(grid).Add(local)
}

// TileToChunk splits a tile into the chunk grid cell that contains it and
// the tile's local offset inside that chunk. Negative tiles floor toward
// the next chunk west/north.
func TileToChunk(t Point) (grid Point, local Point) {
	grid = Point{X: floorDiv(t.X, ChunkSize), Y: floorDiv(t.Y, ChunkSize)}
	local = t.Sub(ChunkOrigin(grid))
	return grid, local
}

// ChebyshevDistance is max(|dx|, |dy|).
func ChebyshevDistance(a, b Point) int {
	dx := abs(a.X - b.X)
	dy := abs(a.Y - b.Y)
	if dy > dx {
		return dy
	}
	return dx
}

func floorDiv(v, d int) int {
	if v < 0 {
		return (v - d + 1) / d
	}
	return v / d
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
