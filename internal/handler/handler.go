package handler

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/tim-ings/mmo/internal/net/packet"
	"github.com/tim-ings/mmo/internal/terrain"
	"github.com/tim-ings/mmo/internal/world"
)

// Deps holds shared dependencies injected into all packet handlers.
type Deps struct {
	World    *world.World
	Streamer *terrain.Streamer
	Log      *zap.Logger

	// Ctx bounds background chunk batches. Nil means context.Background.
	Ctx context.Context

	batches sync.WaitGroup
}

func (d *Deps) ctx() context.Context {
	if d.Ctx == nil {
		return context.Background()
	}
	return d.Ctx
}

// Wait blocks until every chunk batch started by HandleChunkList is done.
func (d *Deps) Wait() {
	d.batches.Wait()
}

// RegisterAll registers all packet handlers into the registry.
func RegisterAll(reg *packet.Registry, deps *Deps) {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	inWorld := []packet.ConnState{packet.StateInWorld}

	reg.Register(packet.S_OPCODE_TICK, inWorld,
		func(r *packet.Reader) error {
			return HandleTick(r, deps)
		},
	)
	reg.Register(packet.S_OPCODE_CHUNK_LIST, inWorld,
		func(r *packet.Reader) error {
			return HandleChunkList(r, deps)
		},
	)
}
