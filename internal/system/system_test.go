package system

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tim-ings/mmo/internal/core/event"
	coresys "github.com/tim-ings/mmo/internal/core/system"
	"github.com/tim-ings/mmo/internal/net/packet"
	"github.com/tim-ings/mmo/internal/protocol"
	"github.com/tim-ings/mmo/internal/world"
)

type fakeConn struct {
	in      chan []byte
	sent    [][]byte
	flushed int
	closed  bool
	done    chan struct{}
}

func newFakeConn(size int) *fakeConn {
	return &fakeConn{in: make(chan []byte, size), done: make(chan struct{})}
}

func (c *fakeConn) Inbound() <-chan []byte { return c.in }
func (c *fakeConn) Send(data []byte)       { c.sent = append(c.sent, data) }
func (c *fakeConn) Flush()                 { c.flushed++ }
func (c *fakeConn) IsClosed() bool         { return c.closed }
func (c *fakeConn) Done() <-chan struct{}  { return c.done }
func (c *fakeConn) Close() {
	if !c.closed {
		c.closed = true
		close(c.done)
	}
}

func TestInputDrainsUpToLimit(t *testing.T) {
	conn := newFakeConn(8)
	reg := packet.NewRegistry(zap.NewNop())
	var handled int
	reg.Register(packet.S_OPCODE_TICK, []packet.ConnState{packet.StateInWorld}, func(*packet.Reader) error {
		handled++
		return nil
	})
	for i := 0; i < 5; i++ {
		conn.in <- []byte{packet.S_OPCODE_TICK}
	}

	in := NewInputSystem(conn, reg, 3, zap.NewNop())
	in.SetState(packet.StateInWorld)
	in.Update(0)
	if handled != 3 {
		t.Fatalf("handled = %d after first frame, want 3", handled)
	}
	in.Update(0)
	if handled != 5 {
		t.Fatalf("handled = %d after second frame, want 5", handled)
	}
}

func TestInputStateGatesHandlers(t *testing.T) {
	conn := newFakeConn(1)
	reg := packet.NewRegistry(zap.NewNop())
	var handled int
	reg.Register(packet.S_OPCODE_TICK, []packet.ConnState{packet.StateInWorld}, func(*packet.Reader) error {
		handled++
		return nil
	})
	conn.in <- []byte{packet.S_OPCODE_TICK}

	in := NewInputSystem(conn, reg, 0, zap.NewNop())
	in.Update(0)
	if handled != 0 {
		t.Fatalf("handler ran while connecting")
	}
}

func TestInputNoticesClosedConn(t *testing.T) {
	conn := newFakeConn(2)
	reg := packet.NewRegistry(zap.NewNop())
	var handled int
	reg.Register(packet.S_OPCODE_TICK, []packet.ConnState{packet.StateInWorld}, func(*packet.Reader) error {
		handled++
		return nil
	})
	conn.in <- []byte{packet.S_OPCODE_TICK}
	conn.in <- []byte{packet.S_OPCODE_TICK}
	conn.Close()

	in := NewInputSystem(conn, reg, 1, zap.NewNop())
	in.SetState(packet.StateInWorld)
	in.Update(0)
	if in.State() != packet.StateInWorld {
		t.Fatalf("state flipped with packets still queued")
	}
	in.Update(0)
	if handled != 2 {
		t.Fatalf("handled = %d, want 2", handled)
	}
	if in.State() != packet.StateDisconnecting {
		t.Fatalf("state = %v, want Disconnecting", in.State())
	}
}

func TestFrameOrder(t *testing.T) {
	conn := newFakeConn(4)
	bus := event.NewBus()
	w := world.New(world.Config{TickRate: 100 * time.Millisecond}, world.Deps{Client: conn, Bus: bus})
	if len(conn.sent) != 1 {
		t.Fatalf("sent %d packets on world creation, want 1", len(conn.sent))
	}

	reg := packet.NewRegistry(zap.NewNop())
	reg.Register(packet.S_OPCODE_TICK, []packet.ConnState{packet.StateInWorld}, func(r *packet.Reader) error {
		snap, err := protocol.DecodeTick(r)
		if err != nil {
			return err
		}
		w.ApplyTick(snap)
		return nil
	})
	var ticks []uint64
	event.Subscribe(bus, func(e event.TickAdvanced) { ticks = append(ticks, e.Tick) })

	in := NewInputSystem(conn, reg, 0, zap.NewNop())
	in.SetState(packet.StateInWorld)

	runner := coresys.NewRunner()
	runner.Register(NewOutputSystem(conn))
	runner.Register(NewWorldSystem(w))
	runner.Register(NewEventDispatchSystem(bus))
	runner.Register(in)
	runner.Register(NewStatsSystem(w, runner, time.Second, zap.NewNop()))

	conn.in <- protocol.EncodeTick(&protocol.TickSnapshot{Tick: 1})
	runner.Tick(50 * time.Millisecond)

	// Input runs before dispatch, so the tick is delivered in the same frame.
	if len(ticks) != 1 || ticks[0] != 1 {
		t.Fatalf("ticks = %v, want [1]", ticks)
	}
	if got := w.Alpha(); got != 0.5 {
		t.Fatalf("alpha = %v, want 0.5", got)
	}
	runner.Tick(50 * time.Millisecond)
	if len(ticks) != 1 {
		t.Fatalf("tick delivered twice: %v", ticks)
	}
	if got := w.Alpha(); got != 1 {
		t.Fatalf("alpha = %v, want 1", got)
	}
	if conn.flushed != 2 {
		t.Fatalf("flushed %d times, want 2", conn.flushed)
	}
}
