package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tim-ings/mmo/internal/coord"
	"github.com/tim-ings/mmo/internal/protocol"
	"github.com/tim-ings/mmo/internal/terrain"
)

const upsertChunkSQL = `INSERT INTO chunks (id, grid_x, grid_y, def)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE
	SET grid_x = EXCLUDED.grid_x, grid_y = EXCLUDED.grid_y,
	    def = EXCLUDED.def, updated_at = now()`

// ChunkRepo stores chunk definitions in the world database. It is a
// terrain.Source.
type ChunkRepo struct {
	db *DB
}

func NewChunkRepo(db *DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// Fetch loads one chunk. The stored JSON passes the same schema check as
// chunk files.
func (r *ChunkRepo) Fetch(ctx context.Context, id int) (*protocol.ChunkDef, error) {
	var raw []byte
	err := r.db.Pool.QueryRow(ctx,
		`SELECT def FROM chunks WHERE id = $1`, id,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, terrain.ErrChunkNotFound
		}
		return nil, fmt.Errorf("query chunk %d: %w", id, err)
	}
	def, err := terrain.DecodeDef(raw)
	if err != nil {
		return nil, fmt.Errorf("chunk %d: %w", id, err)
	}
	return def, nil
}

// Save upserts a chunk definition.
func (r *ChunkRepo) Save(ctx context.Context, def *protocol.ChunkDef) error {
	raw, err := json.Marshal(def)
	if err != nil {
		return err
	}
	_, err = r.db.Pool.Exec(ctx, upsertChunkSQL, def.ID, def.X, def.Y, raw)
	if err != nil {
		return fmt.Errorf("save chunk %d: %w", def.ID, err)
	}
	return nil
}

// SaveBatch upserts many chunks in one transaction.
func (r *ChunkRepo) SaveBatch(ctx context.Context, defs []*protocol.ChunkDef) error {
	batch := &pgx.Batch{}
	for _, def := range defs {
		raw, err := json.Marshal(def)
		if err != nil {
			return fmt.Errorf("encode chunk %d: %w", def.ID, err)
		}
		batch.Queue(upsertChunkSQL, def.ID, def.X, def.Y, raw)
	}
	return r.db.InTx(ctx, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("save batch: %w", err)
		}
		return nil
	})
}

// IDsNear lists chunk ids whose grid cell lies within radius (Chebyshev)
// of center.
func (r *ChunkRepo) IDsNear(ctx context.Context, center coord.Point, radius int) ([]int, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id FROM chunks
		 WHERE grid_x BETWEEN $1 AND $2 AND grid_y BETWEEN $3 AND $4
		 ORDER BY grid_y, grid_x`,
		center.X-radius, center.X+radius, center.Y-radius, center.Y+radius,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ChunkRepo) Delete(ctx context.Context, id int) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM chunks WHERE id = $1`, id)
	return err
}
