package net

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Transport is the client's connection to the world server. Inbound
// payloads are consumed by the game loop; outbound payloads are buffered
// with Send and handed to the writer goroutine by Flush.
type Transport interface {
	Inbound() <-chan []byte
	Send(data []byte)
	Flush()
	Close()
	IsClosed() bool
	Done() <-chan struct{}
}

// Options configures Dial.
type Options struct {
	Transport    string // "tcp" or "ws"
	Address      string // host:port for tcp, ws:// URL for ws
	InQueueSize  int
	OutQueueSize int
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

// Conn is a single server connection. Network I/O runs in dedicated
// goroutines; Send and Flush are called from the game loop only.
type Conn struct {
	wire wire

	inQueue  chan []byte // game loop reads packets from here
	outQueue chan []byte // writer goroutine reads from here

	outBuf [][]byte // game loop only

	writeTimeout time.Duration

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	log *zap.Logger
}

// Dial connects to the server using the configured transport and starts
// the reader and writer goroutines.
func Dial(ctx context.Context, opts Options, log *zap.Logger) (*Conn, error) {
	if opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.DialTimeout)
		defer cancel()
	}

	var w wire
	switch opts.Transport {
	case "", "tcp":
		var d net.Dialer
		c, err := d.DialContext(ctx, "tcp", opts.Address)
		if err != nil {
			return nil, fmt.Errorf("dial tcp %s: %w", opts.Address, err)
		}
		w = tcpWire{conn: c}
	case "ws", "websocket":
		d := websocket.Dialer{HandshakeTimeout: opts.DialTimeout}
		c, resp, err := d.DialContext(ctx, opts.Address, http.Header{})
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			return nil, fmt.Errorf("dial ws %s: %w", opts.Address, err)
		}
		w = wsWire{conn: c}
	default:
		return nil, fmt.Errorf("unknown transport %q", opts.Transport)
	}

	c := newConn(w, opts, log)
	c.Start()
	return c, nil
}

// NewTCPConn wraps an established stream connection. Call Start to begin I/O.
func NewTCPConn(nc net.Conn, opts Options, log *zap.Logger) *Conn {
	return newConn(tcpWire{conn: nc}, opts, log)
}

// NewWSConn wraps an established websocket. Call Start to begin I/O.
func NewWSConn(ws *websocket.Conn, opts Options, log *zap.Logger) *Conn {
	return newConn(wsWire{conn: ws}, opts, log)
}

func newConn(w wire, opts Options, log *zap.Logger) *Conn {
	in, out := opts.InQueueSize, opts.OutQueueSize
	if in <= 0 {
		in = 128
	}
	if out <= 0 {
		out = 64
	}
	return &Conn{
		wire:         w,
		inQueue:      make(chan []byte, in),
		outQueue:     make(chan []byte, out),
		writeTimeout: opts.WriteTimeout,
		closeCh:      make(chan struct{}),
		log:          log.With(zap.String("remote", w.Remote())),
	}
}

// Start launches the reader and writer goroutines.
func (c *Conn) Start() {
	go c.readLoop()
	go c.writeLoop()
}

func (c *Conn) Inbound() <-chan []byte { return c.inQueue }

func (c *Conn) Done() <-chan struct{} { return c.closeCh }

// Send buffers a packet. Nothing is written until Flush.
func (c *Conn) Send(data []byte) {
	if c.closed.Load() {
		return
	}
	c.outBuf = append(c.outBuf, data)
}

// Flush drains the output buffer to the writer goroutine.
// Non-blocking: if the out queue is full the connection is closed.
func (c *Conn) Flush() {
	for _, data := range c.outBuf {
		select {
		case c.outQueue <- data:
		default:
			c.log.Warn("output queue full, closing connection")
			c.Close()
			c.outBuf = c.outBuf[:0]
			return
		}
	}
	c.outBuf = c.outBuf[:0]
}

func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.closeCh)
		_ = c.wire.Close()
	})
}

func (c *Conn) IsClosed() bool {
	return c.closed.Load()
}

// readLoop pushes every received payload onto the in queue. It blocks
// rather than drops when the game loop falls behind: a lost tick snapshot
// cannot be recovered.
func (c *Conn) readLoop() {
	defer c.Close()

	for {
		payload, err := c.wire.ReadPayload()
		if err != nil {
			if !c.closed.Load() {
				c.log.Info("connection lost", zap.Error(err))
			}
			return
		}

		select {
		case c.inQueue <- payload:
		case <-c.closeCh:
			return
		}
	}
}

func (c *Conn) writeLoop() {
	defer c.Close()

	for {
		select {
		case data := <-c.outQueue:
			if len(data) > 0 {
				c.log.Debug("TX",
					zap.String("op", fmt.Sprintf("0x%02X(%d)", data[0], data[0])),
					zap.Int("len", len(data)),
				)
			}
			var deadline time.Time
			if c.writeTimeout > 0 {
				deadline = time.Now().Add(c.writeTimeout)
			}
			if err := c.wire.WritePayload(data, deadline); err != nil {
				if !c.closed.Load() {
					c.log.Info("write failed", zap.Error(err))
				}
				return
			}
		case <-c.closeCh:
			return
		}
	}
}
