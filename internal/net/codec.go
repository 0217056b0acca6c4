package net

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Stream frames are [2 bytes LE: header + payload length][payload].
const (
	headerLen  = 2
	MaxPayload = 0xFFFF - headerLen
)

var (
	ErrEmptyFrame    = errors.New("empty frame")
	ErrFrameTooLarge = errors.New("frame too large")
)

// AppendFrame appends the framed payload to dst.
func AppendFrame(dst, payload []byte) ([]byte, error) {
	switch {
	case len(payload) == 0:
		return dst, ErrEmptyFrame
	case len(payload) > MaxPayload:
		return dst, fmt.Errorf("%d bytes: %w", len(payload), ErrFrameTooLarge)
	}
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(payload)+headerLen))
	return append(dst, payload...), nil
}

// WriteFrame frames data and writes it with a single Write call.
func WriteFrame(w io.Writer, data []byte) error {
	buf, err := AppendFrame(make([]byte, 0, headerLen+len(data)), data)
	if err != nil {
		return err
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadFrame reads one frame from r and returns its payload.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [headerLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read frame header: %w", err)
	}
	n := int(binary.LittleEndian.Uint16(header[:])) - headerLen
	if n <= 0 {
		return nil, fmt.Errorf("frame length %d: %w", n+headerLen, ErrEmptyFrame)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload (%d bytes): %w", n, err)
	}
	return payload, nil
}
