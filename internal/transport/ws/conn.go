// Package ws provides the WebSocket transport for the chat server. Each
// binary WebSocket message carries exactly one protocol payload.
package ws

import (
	"context"
	"net"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/omochice/tcp-chat/pkg/protocol"
)

// Conn adapts an upgraded gobwas/ws connection to the chat.Conn interface.
type Conn struct {
	conn         net.Conn
	maxFrameSize int

	writeMu sync.Mutex
}

// lockedWriter serializes control frame replies written by the reader with
// data frames written by Write.
type lockedWriter struct {
	c *Conn
}

func (w lockedWriter) Write(p []byte) (int, error) {
	w.c.writeMu.Lock()
	defer w.c.writeMu.Unlock()
	return w.c.conn.Write(p)
}

// NewConn wraps a connection that has already completed the WebSocket
// handshake.
func NewConn(conn net.Conn, maxFrameSize int) *Conn {
	if maxFrameSize <= 0 {
		maxFrameSize = protocol.DefaultMaxFrameSize
	}
	return &Conn{conn: conn, maxFrameSize: maxFrameSize}
}

// Read implements chat.Conn.
// A close frame from the peer is reported as io.EOF.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	return ReadMessage(c.conn, lockedWriter{c}, ws.StateServerSide, c.maxFrameSize)
}

// Write implements chat.Conn.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wsutil.WriteServerBinary(c.conn, data)
}

// Close implements chat.Conn.
func (c *Conn) Close() error {
	// A writer stuck on a stalled peer must not keep the connection open.
	if c.writeMu.TryLock() {
		_ = wsutil.WriteServerMessage(c.conn, ws.OpClose, ws.NewCloseFrameBody(ws.StatusNormalClosure, ""))
		c.writeMu.Unlock()
	}
	return c.conn.Close()
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
