package entity

import (
	"math"

	"github.com/tim-ings/mmo/internal/coord"
	"github.com/tim-ings/mmo/internal/protocol"
)

// groundItemSpin is the idle rotation of dropped items, radians/second.
const groundItemSpin = math.Pi / 2

// GroundItem is an item lying on the ground. Items have no health; they
// are never dead, so an absent item is always removed at once.
type GroundItem struct {
	body
	def      protocol.GroundItemDef
	rotation float64
}

func NewGroundItem(def protocol.GroundItemDef) *GroundItem {
	g := &GroundItem{body: body{id: def.ID}}
	g.ApplyUpdate(def)
	return g
}

func (g *GroundItem) ApplyUpdate(def protocol.GroundItemDef) {
	g.def = def
	g.moveTo(def.Position)
}

func (g *GroundItem) IsDead() bool { return false }

func (g *GroundItem) Update(f Frame) {
	g.interpolate(Frame{Alpha: 1, Heights: f.Heights})
	g.rotation = math.Mod(g.rotation+groundItemSpin*f.DT.Seconds(), 2*math.Pi)
}

func (g *GroundItem) Def() protocol.GroundItemDef { return g.def }

func (g *GroundItem) Tile() coord.Point { return g.def.Position }

// Rotation is the current idle spin angle.
func (g *GroundItem) Rotation() float64 { return g.rotation }
