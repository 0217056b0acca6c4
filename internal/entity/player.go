package entity

import (
	"github.com/tim-ings/mmo/internal/coord"
	"github.com/tim-ings/mmo/internal/protocol"
)

// Player is a local player character, including the session's own.
type Player struct {
	body
	def protocol.PlayerDef
}

func NewPlayer(def protocol.PlayerDef) *Player {
	p := &Player{body: body{id: def.ID}}
	p.ApplyUpdate(def)
	return p
}

func (p *Player) ApplyUpdate(def protocol.PlayerDef) {
	p.def = def
	p.moveTo(def.Position)
}

func (p *Player) IsDead() bool { return p.def.Health <= 0 }

func (p *Player) Update(f Frame) { p.interpolate(f) }

func (p *Player) Def() protocol.PlayerDef { return p.def }

func (p *Player) Tile() coord.Point { return p.def.Position }
