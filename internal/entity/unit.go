package entity

import (
	"github.com/tim-ings/mmo/internal/coord"
	"github.com/tim-ings/mmo/internal/protocol"
)

// Unit is a local NPC or monster.
type Unit struct {
	body
	def protocol.UnitDef
}

func NewUnit(def protocol.UnitDef) *Unit {
	u := &Unit{body: body{id: def.ID}}
	u.ApplyUpdate(def)
	return u
}

// ApplyUpdate overwrites every server field.
func (u *Unit) ApplyUpdate(def protocol.UnitDef) {
	u.def = def
	u.def.MoveQueue = append([]coord.Point(nil), def.MoveQueue...)
	u.moveTo(def.Position)
}

func (u *Unit) IsDead() bool { return u.def.Health <= 0 }

func (u *Unit) Update(f Frame) { u.interpolate(f) }

func (u *Unit) Def() protocol.UnitDef { return u.def }

func (u *Unit) Tile() coord.Point { return u.def.Position }

// Facing returns the tile the unit is heading to next, or its own tile
// when idle.
func (u *Unit) Facing() coord.Point {
	if len(u.def.MoveQueue) > 0 {
		return u.def.MoveQueue[0]
	}
	return u.def.Position
}
