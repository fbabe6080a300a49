package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/omochice/tcp-chat/pkg/protocol"
)

var (
	// ErrClientClosed is returned by Send after the client has been closed.
	ErrClientClosed = errors.New("client closed")

	// ErrQueueFull is the close reason of a client whose outbound queue
	// overflowed.
	ErrQueueFull = errors.New("outbound queue full")
)

// Client is the server's handle on one accepted connection. It owns the
// connection, the nickname slot and the outbound queue drained by writeLoop.
type Client struct {
	id   string
	conn Conn

	mu       sync.RWMutex
	nickname string

	outgoing  chan []byte
	done      chan struct{}
	closeOnce sync.Once
	err       error
}

// NewClient wraps conn. queueSize bounds the number of encoded messages
// waiting to be written.
func NewClient(conn Conn, queueSize int) *Client {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Client{
		id:       uuid.NewString(),
		conn:     conn,
		outgoing: make(chan []byte, queueSize),
		done:     make(chan struct{}),
	}
}

// ID returns the client's unique identity.
func (c *Client) ID() string {
	return c.id
}

// RemoteAddr returns the peer address of the underlying connection.
func (c *Client) RemoteAddr() string {
	return c.conn.RemoteAddr()
}

// Nickname returns the nickname, or "" while the client is not logged in.
func (c *Client) Nickname() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nickname
}

// SetNickname assigns the nickname. It reports false if a nickname was
// already set; the first one sticks.
func (c *Client) SetNickname(nickname string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nickname != "" {
		return false
	}
	c.nickname = nickname
	return true
}

// Send encodes msg and queues it for the writer. It never blocks: when the
// queue is full the client is closed with ErrQueueFull.
func (c *Client) Send(msg protocol.Message) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	return c.enqueue(data)
}

func (c *Client) enqueue(data []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.outgoing <- data:
		return nil
	default:
		c.closeWithError(ErrQueueFull)
		return ErrQueueFull
	}
}

// Close closes the connection. Only the first call has an effect.
func (c *Client) Close() error {
	c.closeWithError(nil)
	return nil
}

// Done is closed once the client has been closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the reason the client was closed, or nil for a clean close.
func (c *Client) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

func (c *Client) closeWithError(err error) {
	c.closeOnce.Do(func() {
		c.err = err
		close(c.done)
		c.conn.Close()
	})
}

func (c *Client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// writeLoop drains the outbound queue until the client is closed.
func (c *Client) writeLoop(ctx context.Context) {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.outgoing:
			if err := c.conn.Write(ctx, data); err != nil {
				c.closeWithError(fmt.Errorf("failed to write to client: %w", err))
				return
			}
		}
	}
}
