package system

import (
	"time"

	coresys "github.com/tim-ings/mmo/internal/core/system"
	"github.com/tim-ings/mmo/internal/net"
)

// OutputSystem flushes packets buffered during the frame. Phase 3 (Output).
type OutputSystem struct {
	conn net.Transport
}

func NewOutputSystem(conn net.Transport) *OutputSystem {
	return &OutputSystem{conn: conn}
}

func (s *OutputSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *OutputSystem) Update(_ time.Duration) {
	s.conn.Flush()
}
