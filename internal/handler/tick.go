package handler

import (
	"go.uber.org/zap"

	"github.com/tim-ings/mmo/internal/net/packet"
	"github.com/tim-ings/mmo/internal/protocol"
)

// HandleTick processes S_TICK: decode the snapshot and reconcile it into
// the world. Stale ticks are dropped by the world itself.
func HandleTick(r *packet.Reader, deps *Deps) error {
	snap, err := protocol.DecodeTick(r)
	if err != nil {
		return err
	}
	if !deps.World.ApplyTick(snap) {
		deps.Log.Debug("tick ignored", zap.Uint64("tick", snap.Tick))
	}
	return nil
}
