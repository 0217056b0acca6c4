package system

import (
	"time"

	"github.com/tim-ings/mmo/internal/core/event"
	coresys "github.com/tim-ings/mmo/internal/core/system"
)

// EventDispatchSystem delivers the events emitted during the previous
// frame. Phase 1 (Dispatch).
type EventDispatchSystem struct {
	bus *event.Bus
}

func NewEventDispatchSystem(bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{bus: bus}
}

func (s *EventDispatchSystem) Phase() coresys.Phase { return coresys.PhaseDispatch }

func (s *EventDispatchSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}
