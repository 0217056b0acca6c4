package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/tim-ings/mmo/internal/core/system"
	"github.com/tim-ings/mmo/internal/net"
	"github.com/tim-ings/mmo/internal/net/packet"
)

// InputSystem drains the connection's inbound queue and dispatches each
// packet through the registry. Phase 0 (Input).
type InputSystem struct {
	conn        net.Transport
	registry    *packet.Registry
	state       packet.ConnState
	maxPerFrame int
	log         *zap.Logger
}

func NewInputSystem(conn net.Transport, registry *packet.Registry, maxPerFrame int, log *zap.Logger) *InputSystem {
	if maxPerFrame <= 0 {
		maxPerFrame = 64
	}
	return &InputSystem{
		conn:        conn,
		registry:    registry,
		state:       packet.StateConnecting,
		maxPerFrame: maxPerFrame,
		log:         log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

// SetState moves the connection to a new protocol phase.
func (s *InputSystem) SetState(state packet.ConnState) {
	if s.state != state {
		s.log.Info("connection state", zap.Stringer("from", s.state), zap.Stringer("to", state))
	}
	s.state = state
}

func (s *InputSystem) State() packet.ConnState { return s.state }

func (s *InputSystem) Update(_ time.Duration) {
	in := s.conn.Inbound()
	for i := 0; i < s.maxPerFrame; i++ {
		select {
		case data := <-in:
			if err := s.registry.Dispatch(s.state, data); err != nil {
				s.log.Debug("packet dispatch error",
					zap.Stringer("state", s.state),
					zap.Error(err),
				)
			}
		default:
			goto drained
		}
	}
drained:
	// Packets still queued on a closed connection are handled on later
	// frames before the state flips.
	if s.conn.IsClosed() && len(in) == 0 && s.state != packet.StateDisconnecting {
		s.SetState(packet.StateDisconnecting)
	}
}
