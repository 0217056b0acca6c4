package handler

import (
	"go.uber.org/zap"

	"github.com/tim-ings/mmo/internal/net/packet"
	"github.com/tim-ings/mmo/internal/protocol"
)

// HandleChunkList processes S_CHUNK_LIST. The batch is decoded and
// stamped on the game loop and applied on its own goroutine so chunk
// loads never stall a frame.
func HandleChunkList(r *packet.Reader, deps *Deps) error {
	list, err := protocol.DecodeChunkList(r)
	if err != nil {
		return err
	}
	deps.Log.Debug("chunk list",
		zap.Int("chunks", len(list.Chunks)),
		zap.Int("center_x", list.Center.X),
		zap.Int("center_y", list.Center.Y),
	)

	ctx := deps.ctx()
	seq := deps.Streamer.Stamp()
	deps.batches.Add(1)
	go func() {
		defer deps.batches.Done()
		if err := deps.Streamer.ApplyStamped(ctx, seq, list); err != nil {
			deps.Log.Warn("chunk list apply", zap.Error(err))
		}
	}()
	return nil
}
