// Package ws dials the chat server over WebSocket.
package ws

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	transport "github.com/omochice/tcp-chat/internal/transport/ws"
)

// Conn is the client side of a WebSocket connection. Each binary message
// carries one protocol payload.
type Conn struct {
	conn         net.Conn
	r            io.Reader
	maxFrameSize int

	writeMu sync.Mutex
}

type lockedWriter struct {
	c *Conn
}

func (w lockedWriter) Write(p []byte) (int, error) {
	w.c.writeMu.Lock()
	defer w.c.writeMu.Unlock()
	return w.c.conn.Write(p)
}

// Dial performs the WebSocket handshake with the server at url
// (for example ws://localhost:45001/). maxFrameSize <= 0 selects
// protocol.DefaultMaxFrameSize.
func Dial(ctx context.Context, url string, maxFrameSize int) (*Conn, error) {
	conn, br, _, err := ws.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}

	c := &Conn{conn: conn, r: conn, maxFrameSize: maxFrameSize}
	if br != nil {
		// The server already sent frames behind its handshake response.
		c.r = br
	}
	return c, nil
}

// Read returns the next payload. A close frame from the server is reported
// as io.EOF and an oversized message as protocol.ErrFrameTooLarge.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	return transport.ReadMessage(c.r, lockedWriter{c}, ws.StateClientSide, c.maxFrameSize)
}

// Write sends data as one binary message.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wsutil.WriteClientBinary(c.conn, data)
}

// Close sends a close frame and closes the connection.
func (c *Conn) Close() error {
	// A writer stuck on a stalled peer must not keep the connection open.
	if c.writeMu.TryLock() {
		_ = wsutil.WriteClientMessage(c.conn, ws.OpClose, ws.NewCloseFrameBody(ws.StatusNormalClosure, ""))
		c.writeMu.Unlock()
	}
	return c.conn.Close()
}

// RemoteAddr returns the server address.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
