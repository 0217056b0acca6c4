package packet

import (
	"fmt"

	"go.uber.org/zap"
)

// Opcodes. Server → client opcodes are below 64, client → server at 64 and up.
const (
	S_OPCODE_TICK       byte = 1
	S_OPCODE_CHUNK_LIST byte = 2

	C_OPCODE_REQUEST_CHUNK_LIST byte = 64
)

// ConnState represents the connection's protocol phase.
type ConnState int

const (
	StateConnecting ConnState = iota
	StateInWorld
	StateDisconnecting
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateInWorld:
		return "InWorld"
	case StateDisconnecting:
		return "Disconnecting"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// HandlerFunc is the callback signature for packet handlers.
type HandlerFunc func(r *Reader) error

type handlerEntry struct {
	fn            HandlerFunc
	allowedStates map[ConnState]bool
}

// Registry maps opcodes to handlers with state-based access control.
type Registry struct {
	handlers map[byte]*handlerEntry
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		handlers: make(map[byte]*handlerEntry),
		log:      log,
	}
}

// Register maps an opcode to a handler, restricted to the given states.
func (reg *Registry) Register(opcode byte, states []ConnState, fn HandlerFunc) {
	allowed := make(map[ConnState]bool, len(states))
	for _, s := range states {
		allowed[s] = true
	}
	reg.handlers[opcode] = &handlerEntry{
		fn:            fn,
		allowedStates: allowed,
	}
}

// Dispatch finds the handler for the opcode in data[0], validates the
// connection state, and calls the handler. Unknown opcodes are ignored.
func (reg *Registry) Dispatch(state ConnState, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty packet")
	}
	opcode := data[0]
	reg.log.Debug("packet received",
		zap.Uint8("opcode", opcode),
		zap.Int("size", len(data)),
		zap.Stringer("state", state),
	)

	entry, ok := reg.handlers[opcode]
	if !ok {
		reg.log.Debug("unknown opcode", zap.Uint8("opcode", opcode), zap.Stringer("state", state))
		return nil
	}

	if !entry.allowedStates[state] {
		reg.log.Warn("opcode not allowed in state",
			zap.Uint8("opcode", opcode),
			zap.Stringer("state", state),
		)
		return fmt.Errorf("opcode %d not allowed in state %s", opcode, state)
	}

	return reg.safeCall(entry.fn, NewReader(data), opcode)
}

// safeCall executes a handler with panic recovery so one bad packet cannot
// take down the game loop.
func (reg *Registry) safeCall(fn HandlerFunc, r *Reader, opcode byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("handler panic recovered",
				zap.Uint8("opcode", opcode),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("handler panic for opcode %d: %v", opcode, rec)
		}
	}()
	if err := fn(r); err != nil {
		return fmt.Errorf("opcode %d: %w", opcode, err)
	}
	return nil
}
