package terrain

import (
	"errors"
	"fmt"

	"github.com/tim-ings/mmo/internal/coord"
	"github.com/tim-ings/mmo/internal/protocol"
)

var (
	// ErrReadOnly is returned by editing calls on a store built for play.
	ErrReadOnly = errors.New("terrain is read-only")
	// ErrNotResident is returned when an edit targets an absent chunk.
	ErrNotResident = errors.New("chunk not resident")
)

// editable looks up a resident chunk for editing. Caller holds the write lock.
func (s *Store) editableChunk(id int) (*Chunk, error) {
	if !s.editable {
		return nil, ErrReadOnly
	}
	c, ok := s.chunks[id]
	if !ok {
		return nil, fmt.Errorf("chunk %d: %w", id, ErrNotResident)
	}
	return c, nil
}

func checkVertex(id int, p coord.Point) error {
	if !inVerts(p.X, p.Y) {
		return fmt.Errorf("chunk %d: vertex %v out of range", id, p)
	}
	return nil
}

// SetHeight sets one vertex height. Seams are not re-stitched; call
// Stitch after a batch of edits.
func (s *Store) SetHeight(id int, p coord.Point, h float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.editableChunk(id)
	if err != nil {
		return err
	}
	if err := checkVertex(id, p); err != nil {
		return err
	}
	c.setHeight(p.X, p.Y, h)
	return nil
}

// Smooth pulls one vertex toward the mean of its neighbours.
func (s *Store) Smooth(id int, p coord.Point, strength float64) error {
	if strength < 0 || strength > 1 {
		return fmt.Errorf("smooth strength %v outside [0, 1]", strength)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.editableChunk(id)
	if err != nil {
		return err
	}
	if err := checkVertex(id, p); err != nil {
		return err
	}
	c.smooth(p.X, p.Y, strength)
	return nil
}

// AddDoodad places a doodad in a resident chunk and attaches it.
func (s *Store) AddDoodad(id int, def protocol.DoodadDef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.editableChunk(id)
	if err != nil {
		return err
	}
	if def.UUID == "" {
		return fmt.Errorf("chunk %d: doodad without uuid", id)
	}
	if _, dup := c.Doodad(def.UUID); dup {
		return fmt.Errorf("chunk %d: duplicate doodad %s", id, def.UUID)
	}
	d := newDoodad(def, s.models)
	c.doodads = append(c.doodads, d)
	s.scene.Attach(d.Handle)
	s.block(c.grid, d, 1)
	return nil
}

// RemoveDoodad detaches and deletes a doodad.
func (s *Store) RemoveDoodad(id int, uuid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.editableChunk(id)
	if err != nil {
		return err
	}
	for i, d := range c.doodads {
		if d.Def.UUID != uuid {
			continue
		}
		s.scene.Detach(d.Handle)
		s.block(c.grid, d, -1)
		c.doodads = append(c.doodads[:i], c.doodads[i+1:]...)
		return nil
	}
	return fmt.Errorf("chunk %d: doodad %s not found", id, uuid)
}
