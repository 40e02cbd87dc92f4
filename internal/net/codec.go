package net

import (
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// ErrTextFrame is returned when a client sends a text message. The game
// protocol is binary only.
var ErrTextFrame = errors.New("text frame on binary protocol")

// ReadFrame reads one binary message from conn. Control frames are handled
// by the websocket library; empty messages are rejected since every packet
// starts with its type byte.
func ReadFrame(conn *websocket.Conn, idle time.Duration) ([]byte, error) {
	if idle > 0 {
		conn.SetReadDeadline(time.Now().Add(idle))
	}
	kind, payload, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	if kind != websocket.BinaryMessage {
		return nil, ErrTextFrame
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("empty frame")
	}
	return payload, nil
}

// WriteFrame writes data as one binary message.
func WriteFrame(conn *websocket.Conn, data []byte, timeout time.Duration) error {
	if timeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("write frame (%d bytes): %w", len(data), err)
	}
	return nil
}
