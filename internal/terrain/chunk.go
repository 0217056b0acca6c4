// Package terrain owns the resident chunk set: loading chunks from their
// sources, pruning them by view distance, stitching their seams, and
// answering height and walkability queries.
package terrain

import (
	"fmt"
	"strconv"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/tim-ings/mmo/internal/coord"
	"github.com/tim-ings/mmo/internal/protocol"
	"github.com/tim-ings/mmo/internal/scene"
)

// Verts is the number of heightfield vertices along a chunk edge. The last
// row and column are shared with the east and south neighbours.
const Verts = coord.ChunkSize + 1

// Doodad is a static model placed in a chunk.
type Doodad struct {
	Def    protocol.DoodadDef
	Handle scene.Handle
}

// Local returns the doodad's chunk-local tile.
func (d *Doodad) Local() coord.Point {
	return coord.Point{X: d.Def.X, Y: d.Def.Y}
}

// Chunk is a materialized terrain chunk. It is read-only during play; the
// store mutates it only through its editing calls, under the store lock.
type Chunk struct {
	id      int
	grid    coord.Point
	heights []float64
	normals []mgl64.Vec3
	doodads []*Doodad
	mesh    scene.Handle
}

func newChunk(def *protocol.ChunkDef, models ModelPaths) (*Chunk, error) {
	c := &Chunk{
		id:      def.ID,
		grid:    def.Grid(),
		heights: make([]float64, Verts*Verts),
		normals: make([]mgl64.Vec3, Verts*Verts),
		mesh:    scene.Handle{Kind: scene.KindTerrain, Key: strconv.Itoa(def.ID)},
	}
	switch len(def.Heights) {
	case 0:
		// flat
	case Verts * Verts:
		copy(c.heights, def.Heights)
	default:
		return nil, fmt.Errorf("chunk %d: %d heights, want %d", def.ID, len(def.Heights), Verts*Verts)
	}
	c.computeNormals()

	seen := make(map[string]bool, len(def.Doodads))
	for _, dd := range def.Doodads {
		if seen[dd.UUID] {
			return nil, fmt.Errorf("chunk %d: duplicate doodad %s", def.ID, dd.UUID)
		}
		seen[dd.UUID] = true
		c.doodads = append(c.doodads, newDoodad(dd, models))
	}
	return c, nil
}

func newDoodad(def protocol.DoodadDef, models ModelPaths) *Doodad {
	if def.Scale == 0 {
		def.Scale = 1
	}
	return &Doodad{
		Def:    def,
		Handle: scene.Handle{Kind: scene.KindDoodad, Key: def.UUID, Asset: models.Path(def.Model)},
	}
}

func (c *Chunk) ID() int                  { return c.id }
func (c *Chunk) Grid() coord.Point        { return c.grid }
func (c *Chunk) Origin() coord.Point      { return coord.ChunkOrigin(c.grid) }
func (c *Chunk) MeshHandle() scene.Handle { return c.mesh }

// Height returns the height of vertex (x, y). Vertex (x, y) sits on
// chunk-local tile (x, y).
func (c *Chunk) Height(x, y int) float64 {
	return c.heights[y*Verts+x]
}

// Normal returns the unit normal of vertex (x, y).
func (c *Chunk) Normal(x, y int) mgl64.Vec3 {
	return c.normals[y*Verts+x]
}

// Doodads returns the chunk's doodads in placement order.
func (c *Chunk) Doodads() []*Doodad {
	out := make([]*Doodad, len(c.doodads))
	copy(out, c.doodads)
	return out
}

// Doodad finds a doodad by uuid.
func (c *Chunk) Doodad(uuid string) (*Doodad, bool) {
	for _, d := range c.doodads {
		if d.Def.UUID == uuid {
			return d, true
		}
	}
	return nil, false
}

// Navblocks lists every non-walkable tile contributed by the chunk's
// doodads, in tile space. Doodads near an edge may block tiles that belong
// to a neighbouring chunk.
func (c *Chunk) Navblocks() []coord.Point {
	var out []coord.Point
	for _, d := range c.doodads {
		out = append(out, doodadNavblocks(c.grid, d)...)
	}
	return out
}

func doodadNavblocks(grid coord.Point, d *Doodad) []coord.Point {
	out := make([]coord.Point, 0, len(d.Def.Navblocks))
	for _, nb := range d.Def.Navblocks {
		local := d.Local().Add(coord.Point{X: nb.X, Y: nb.Y})
		out = append(out, coord.ChunkToTile(grid, local))
	}
	return out
}

// DoodadWorld returns a doodad's world position: the terrain height under
// it raised by the doodad's own elevation.
func (c *Chunk) DoodadWorld(d *Doodad) coord.WorldPoint {
	l := d.Local()
	w := coord.TileToWorld(coord.ChunkToTile(c.grid, l))
	h := 0.0
	if inVerts(l.X, l.Y) {
		h = c.Height(l.X, l.Y)
	}
	return w.Add(mgl64.Vec3{0, h + d.Def.Elevation, 0})
}

// Def snapshots the chunk back into its wire definition, including edits.
func (c *Chunk) Def() *protocol.ChunkDef {
	def := &protocol.ChunkDef{
		ID:      c.id,
		X:       c.grid.X,
		Y:       c.grid.Y,
		Heights: make([]float64, len(c.heights)),
	}
	copy(def.Heights, c.heights)
	for _, d := range c.doodads {
		dd := d.Def
		dd.Navblocks = append([]protocol.NavblockDef(nil), d.Def.Navblocks...)
		def.Doodads = append(def.Doodads, dd)
	}
	return def
}

func inVerts(x, y int) bool {
	return x >= 0 && y >= 0 && x < Verts && y < Verts
}

func (c *Chunk) setHeight(x, y int, h float64) {
	c.heights[y*Verts+x] = h
	c.updateNormalsAround(x, y)
}

// smooth pulls vertex (x, y) toward the mean of its neighbours by
// strength in [0, 1].
func (c *Chunk) smooth(x, y int, strength float64) {
	sum, n := 0.0, 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if !inVerts(nx, ny) {
				continue
			}
			sum += c.Height(nx, ny)
			n++
		}
	}
	if n == 0 {
		return
	}
	cur := c.Height(x, y)
	c.setHeight(x, y, cur+(sum/float64(n)-cur)*strength)
}

func (c *Chunk) computeNormals() {
	for y := 0; y < Verts; y++ {
		for x := 0; x < Verts; x++ {
			c.normals[y*Verts+x] = c.normalAt(x, y)
		}
	}
}

func (c *Chunk) updateNormalsAround(x, y int) {
	for ny := y - 1; ny <= y+1; ny++ {
		for nx := x - 1; nx <= x+1; nx++ {
			if inVerts(nx, ny) {
				c.normals[ny*Verts+nx] = c.normalAt(nx, ny)
			}
		}
	}
}

// normalAt uses central differences, one-sided on the chunk border. Border
// normals therefore disagree between neighbours until stitched.
func (c *Chunk) normalAt(x, y int) mgl64.Vec3 {
	x0, x1 := max(x-1, 0), min(x+1, Verts-1)
	y0, y1 := max(y-1, 0), min(y+1, Verts-1)
	dx := (c.Height(x1, y) - c.Height(x0, y)) / (float64(x1-x0) * coord.TileSize)
	dz := (c.Height(x, y1) - c.Height(x, y0)) / (float64(y1-y0) * coord.TileSize)
	return mgl64.Vec3{-dx, 1, -dz}.Normalize()
}

// copyVertex copies height and normal of (sx, sy) in src onto (dx, dy) in
// dst and reports whether anything changed.
func copyVertex(src *Chunk, sx, sy int, dst *Chunk, dx, dy int) bool {
	si, di := sy*Verts+sx, dy*Verts+dx
	if dst.heights[di] == src.heights[si] && dst.normals[di] == src.normals[si] {
		return false
	}
	dst.heights[di] = src.heights[si]
	dst.normals[di] = src.normals[si]
	return true
}

func (c *Chunk) release() {
	c.heights = nil
	c.normals = nil
	c.doodads = nil
}
