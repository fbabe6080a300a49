// Package tcp provides the TCP transport for the chat server.
package tcp

import (
	"context"
	"net"
	"sync"

	"github.com/omochice/tcp-chat/pkg/protocol"
)

// Conn adapts a length-prefixed net.Conn stream to the chat.Conn interface.
type Conn struct {
	conn   net.Conn
	reader *protocol.FrameReader

	writeMu sync.Mutex
}

// NewConn wraps a net.Conn. maxFrameSize <= 0 selects
// protocol.DefaultMaxFrameSize.
func NewConn(conn net.Conn, maxFrameSize int) *Conn {
	return &Conn{
		conn:   conn,
		reader: protocol.NewFrameReader(conn, maxFrameSize),
	}
}

// Read implements chat.Conn.
// Blocks until a whole frame has arrived.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	return c.reader.ReadFrame()
}

// Write implements chat.Conn.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return protocol.WriteFrame(c.conn, data)
}

// Close implements chat.Conn.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
