package terrain

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/tim-ings/mmo/internal/protocol"
)

const cachedDefTTL = 10 * time.Minute

// Cached keeps recently fetched definitions in memory so a chunk that
// drifts in and out of view is not decompressed or queried again.
// Cost is the number of heights plus doodads of a def.
type Cached struct {
	src   Source
	cache *ristretto.Cache[int, *protocol.ChunkDef]
}

func NewCached(src Source, maxCost int64) (*Cached, error) {
	if maxCost <= 0 {
		maxCost = 64 * Verts * Verts
	}
	cache, err := ristretto.NewCache[int, *protocol.ChunkDef](&ristretto.Config[int, *protocol.ChunkDef]{
		NumCounters: 10000,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cached{src: src, cache: cache}, nil
}

func (c *Cached) Fetch(ctx context.Context, id int) (*protocol.ChunkDef, error) {
	if def, ok := c.cache.Get(id); ok {
		return def, nil
	}
	def, err := c.src.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.SetWithTTL(id, def, defCost(def), cachedDefTTL)
	c.cache.Wait()
	return def, nil
}

// Forget drops a cached def, used after an edit is saved.
func (c *Cached) Forget(id int) {
	c.cache.Del(id)
}

func (c *Cached) Close() {
	c.cache.Close()
}

func defCost(def *protocol.ChunkDef) int64 {
	cost := int64(len(def.Heights) + len(def.Doodads))
	if cost == 0 {
		cost = 1
	}
	return cost
}
