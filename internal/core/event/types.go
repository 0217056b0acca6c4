package event

// EntityKind names one of the reconciled entity collections.
type EntityKind string

const (
	KindUnit       EntityKind = "unit"
	KindPlayer     EntityKind = "player"
	KindGroundItem EntityKind = "ground_item"
)

// EntityAdded fires once an entity's construction (model load) completes.
type EntityAdded struct {
	Kind   EntityKind
	ID     string
	Entity any
}

// EntityRemoved fires when an entity is evicted from its registry.
type EntityRemoved struct {
	Kind EntityKind
	ID   string
}

// GroundItemAdded and GroundItemRemoved mirror EntityAdded/EntityRemoved
// for ground items, for inventory/loot UI that only cares about items.
type GroundItemAdded struct {
	ID   string
	Item any
}

type GroundItemRemoved struct {
	ID string
}

// TickAdvanced fires after a snapshot has been fully reconciled.
type TickAdvanced struct {
	Tick uint64
}

// ChunkLoaded fires when a chunk becomes resident.
type ChunkLoaded struct {
	ID int
}

// ChunkEvicted fires when prune removes a chunk.
type ChunkEvicted struct {
	ID int
}
