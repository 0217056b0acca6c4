// Package protocol holds the decoded message types exchanged with the game
// server and their binary codec.
package protocol

import "github.com/tim-ings/mmo/internal/coord"

// UnitDef is the server's view of one NPC or monster.
type UnitDef struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Level     int           `json:"level"`
	Model     string        `json:"model"`
	Health    int           `json:"health"`
	MaxHealth int           `json:"maxHealth"`
	Running   bool          `json:"running"`
	Position  coord.Point   `json:"position"`
	MoveQueue []coord.Point `json:"moveQueue"`
	Target    string        `json:"target"`
}

// Race of a player character.
type Race int

const (
	RaceHuman Race = iota
	RaceElf
	RaceOrc
	RaceDwarf
)

// PlayerDef is the server's view of a player character.
type PlayerDef struct {
	ID        string      `json:"id"`
	CharID    int         `json:"charID"`
	Name      string      `json:"name"`
	Level     int         `json:"level"`
	Race      Race        `json:"race"`
	Model     string      `json:"model"`
	Health    int         `json:"health"`
	MaxHealth int         `json:"maxHealth"`
	Position  coord.Point `json:"position"`
}

// GroundItemDef is an item lying on the ground.
type GroundItemDef struct {
	ID       string      `json:"id"`
	ItemID   int         `json:"itemID"`
	Name     string      `json:"name"`
	Model    string      `json:"model"`
	Count    int         `json:"count"`
	Position coord.Point `json:"position"`
}

func (d UnitDef) EntityID() string       { return d.ID }
func (d PlayerDef) EntityID() string     { return d.ID }
func (d GroundItemDef) EntityID() string { return d.ID }

// NavblockDef is a non-walkable tile relative to its doodad's origin.
type NavblockDef struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// DoodadDef places a static model inside a chunk.
type DoodadDef struct {
	UUID      string        `json:"uuid"`
	Model     string        `json:"model"`
	X         int           `json:"x"` // chunk-local tile
	Y         int           `json:"y"`
	Rotation  float64       `json:"rotation"`
	Scale     float64       `json:"scale"`
	Elevation float64       `json:"elevation"`
	Navblocks []NavblockDef `json:"navblocks"`
}

// ChunkDef is everything needed to materialize one terrain chunk.
// Heights are (ChunkSize+1)² vertex heights, row-major by Y.
type ChunkDef struct {
	ID      int         `json:"id"`
	X       int         `json:"x"` // chunk grid cell
	Y       int         `json:"y"`
	Heights []float64   `json:"heights"`
	Doodads []DoodadDef `json:"doodads"`
}

// Grid returns the chunk's grid cell.
func (d *ChunkDef) Grid() coord.Point {
	return coord.Point{X: d.X, Y: d.Y}
}
