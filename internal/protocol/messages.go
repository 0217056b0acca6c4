package protocol

import "github.com/tim-ings/mmo/internal/coord"

// TickSnapshot is one authoritative simulation step.
type TickSnapshot struct {
	Tick        uint64
	Self        PlayerDef
	Units       []UnitDef
	Players     []PlayerDef
	GroundItems []GroundItemDef
}

// ChunkList names the chunks the server considers in view.
type ChunkList struct {
	Center coord.Point
	Chunks []ChunkDef
}
