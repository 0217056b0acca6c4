package net

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gorilla/websocket"
)

// wire moves whole payloads over one underlying connection.
type wire interface {
	ReadPayload() ([]byte, error)
	WritePayload(data []byte, deadline time.Time) error
	Close() error
	Remote() string
}

// tcpWire frames payloads with the 2-byte length header.
type tcpWire struct {
	conn net.Conn
}

func (w tcpWire) ReadPayload() ([]byte, error) { return ReadFrame(w.conn) }

func (w tcpWire) WritePayload(data []byte, deadline time.Time) error {
	if !deadline.IsZero() {
		_ = w.conn.SetWriteDeadline(deadline)
	}
	return WriteFrame(w.conn, data)
}

func (w tcpWire) Close() error   { return w.conn.Close() }
func (w tcpWire) Remote() string { return w.conn.RemoteAddr().String() }

// wsWire carries one payload per binary websocket message; the message
// boundary replaces the length header.
type wsWire struct {
	conn *websocket.Conn
}

var errTextMessage = errors.New("unexpected text message")

func (w wsWire) ReadPayload() ([]byte, error) {
	for {
		kind, msg, err := w.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("read message: %w", err)
		}
		switch kind {
		case websocket.BinaryMessage:
			if len(msg) == 0 {
				continue
			}
			return msg, nil
		case websocket.TextMessage:
			return nil, errTextMessage
		}
	}
}

func (w wsWire) WritePayload(data []byte, deadline time.Time) error {
	if !deadline.IsZero() {
		_ = w.conn.SetWriteDeadline(deadline)
	}
	if err := w.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

func (w wsWire) Close() error {
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
		time.Now().Add(time.Second))
	return w.conn.Close()
}

func (w wsWire) Remote() string { return w.conn.RemoteAddr().String() }
