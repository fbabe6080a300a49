package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/omochice/tcp-chat/internal/client/tcp"
	"github.com/omochice/tcp-chat/internal/client/ws"
)

// Transport names accepted by New.
const (
	TransportTCP       = "tcp"
	TransportWebSocket = "ws"
)

// Conn is a connection to the server that carries whole payloads.
type Conn interface {
	// Read returns the next payload, or io.EOF once the server has gone away.
	Read(ctx context.Context) ([]byte, error)

	// Write sends one payload.
	Write(ctx context.Context, data []byte) error

	// Close closes the connection.
	Close() error
}

// DialFunc opens a connection to address.
type DialFunc func(ctx context.Context, address string) (Conn, error)

// Dialer returns the DialFunc for transport.
func Dialer(transport string) (DialFunc, error) {
	switch transport {
	case TransportTCP, "":
		return func(ctx context.Context, address string) (Conn, error) {
			conn, err := tcp.Dial(ctx, address, 0)
			if err != nil {
				return nil, err
			}
			return conn, nil
		}, nil
	case TransportWebSocket:
		return func(ctx context.Context, address string) (Conn, error) {
			conn, err := ws.Dial(ctx, websocketURL(address), 0)
			if err != nil {
				return nil, err
			}
			return conn, nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", transport)
	}
}

func websocketURL(address string) string {
	if strings.HasPrefix(address, "ws://") || strings.HasPrefix(address, "wss://") {
		return address
	}
	return "ws://" + address + "/"
}
