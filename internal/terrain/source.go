package terrain

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tim-ings/mmo/internal/protocol"
)

// ErrChunkNotFound is returned by a Source that has no definition for an id.
var ErrChunkNotFound = errors.New("chunk not found")

// Source fetches chunk definitions by id. Implementations must be safe for
// concurrent use.
type Source interface {
	Fetch(ctx context.Context, id int) (*protocol.ChunkDef, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, id int) (*protocol.ChunkDef, error)

func (f SourceFunc) Fetch(ctx context.Context, id int) (*protocol.ChunkDef, error) {
	return f(ctx, id)
}

// Chain asks each source in turn, moving on only when a source reports
// ErrChunkNotFound. Any other error stops the chain.
type Chain []Source

func (c Chain) Fetch(ctx context.Context, id int) (*protocol.ChunkDef, error) {
	for _, src := range c {
		def, err := src.Fetch(ctx, id)
		if err == nil {
			return def, nil
		}
		if !errors.Is(err, ErrChunkNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("chunk %d: %w", id, ErrChunkNotFound)
}

// Staged holds the definitions carried by the most recent chunk lists, so
// chunks the server sends inline load without touching disk.
type Staged struct {
	mu   sync.RWMutex
	defs map[int]*protocol.ChunkDef
}

func NewStaged() *Staged {
	return &Staged{defs: make(map[int]*protocol.ChunkDef)}
}

// Stage records defs, replacing any earlier def with the same id. Defs
// without heights are skipped: they name a chunk without carrying it.
// A def stays staged until Forget, normally once its chunk is resident.
func (s *Staged) Stage(defs []protocol.ChunkDef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range defs {
		d := defs[i]
		if len(d.Heights) == 0 {
			continue
		}
		s.defs[d.ID] = &d
	}
}

func (s *Staged) Forget(ids ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.defs, id)
	}
}

func (s *Staged) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.defs)
}

func (s *Staged) Fetch(_ context.Context, id int) (*protocol.ChunkDef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.defs[id]; ok {
		return d, nil
	}
	return nil, ErrChunkNotFound
}
