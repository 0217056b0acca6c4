package terrain

import (
	"context"
	"fmt"
	"sync"

	"github.com/tim-ings/mmo/internal/protocol"
)

// gridID numbers chunks row-major over a 10-wide grid.
func gridID(gx, gy int) int { return gy*10 + gx + 1 }

func flatDef(gx, gy int, h float64) protocol.ChunkDef {
	def := protocol.ChunkDef{ID: gridID(gx, gy), X: gx, Y: gy, Heights: make([]float64, Verts*Verts)}
	for i := range def.Heights {
		def.Heights[i] = h
	}
	return def
}

type mapSource struct {
	mu      sync.Mutex
	defs    map[int]protocol.ChunkDef
	fail    map[int]error
	fetches map[int]int
	gate    chan struct{}
}

func newMapSource(defs ...protocol.ChunkDef) *mapSource {
	m := &mapSource{
		defs:    make(map[int]protocol.ChunkDef),
		fail:    make(map[int]error),
		fetches: make(map[int]int),
	}
	for _, d := range defs {
		m.defs[d.ID] = d
	}
	return m
}

func (m *mapSource) Fetch(_ context.Context, id int) (*protocol.ChunkDef, error) {
	if m.gate != nil {
		<-m.gate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches[id]++
	if err := m.fail[id]; err != nil {
		return nil, err
	}
	d, ok := m.defs[id]
	if !ok {
		return nil, fmt.Errorf("map source: %w", ErrChunkNotFound)
	}
	return &d, nil
}

func (m *mapSource) count(id int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches[id]
}
