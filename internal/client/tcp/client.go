// Package tcp dials the chat server over plain TCP.
package tcp

import (
	"context"
	"fmt"
	"net"

	transport "github.com/omochice/tcp-chat/internal/transport/tcp"
)

// Dial connects to the server at address. The returned connection speaks the
// same length-prefixed framing the server uses.
func Dial(ctx context.Context, address string, maxFrameSize int) (*transport.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	return transport.NewConn(conn, maxFrameSize), nil
}
