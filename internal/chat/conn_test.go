package chat_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/omochice/tcp-chat/internal/chat"
	"github.com/omochice/tcp-chat/pkg/protocol"
)

// mockConn is a mock implementation of chat.Conn for testing.
type mockConn struct {
	readCh      chan []byte
	writeCh     chan []byte
	writeErr    error
	blockWrites bool
	closeOnce   sync.Once
	closed      chan struct{}
	remoteAddr  string
}

func newMockConn(addr string) *mockConn {
	return &mockConn{
		readCh:     make(chan []byte, 10),
		writeCh:    make(chan []byte, 100),
		closed:     make(chan struct{}),
		remoteAddr: addr,
	}
}

func (m *mockConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-m.closed:
		return nil, io.ErrClosedPipe
	case data, ok := <-m.readCh:
		if !ok {
			return nil, io.EOF
		}
		return data, nil
	}
}

func (m *mockConn) Write(ctx context.Context, data []byte) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	if m.blockWrites {
		<-m.closed
		return io.ErrClosedPipe
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	select {
	case m.writeCh <- copied:
		return nil
	case <-m.closed:
		return io.ErrClosedPipe
	}
}

func (m *mockConn) Close() error {
	m.closeOnce.Do(func() { close(m.closed) })
	return nil
}

func (m *mockConn) RemoteAddr() string {
	return m.remoteAddr
}

func (m *mockConn) isClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}

// deliver queues msg as if the peer had sent it.
func (m *mockConn) deliver(t *testing.T, msg protocol.Message) {
	t.Helper()
	data, err := msg.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	m.readCh <- data
}

// expect returns the next message written to the peer.
func (m *mockConn) expect(t *testing.T) protocol.Message {
	t.Helper()
	select {
	case data := <-m.writeCh:
		var msg protocol.Message
		if err := msg.Decode(data); err != nil {
			t.Fatalf("server wrote unparseable payload %q: %v", data, err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
		return protocol.Message{}
	}
}

// expectNone asserts nothing is written to the peer for a short while.
func (m *mockConn) expectNone(t *testing.T) {
	t.Helper()
	select {
	case data := <-m.writeCh:
		t.Fatalf("unexpected message %s", data)
	case <-time.After(100 * time.Millisecond):
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Compile-time check that mockConn implements chat.Conn
var _ chat.Conn = (*mockConn)(nil)
