package tcp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/omochice/tcp-chat/internal/chat"
)

// Server accepts TCP connections and hands each one to the Hub.
type Server struct {
	address      string
	maxFrameSize int
	logger       *slog.Logger
	hub          *chat.Hub

	mu       sync.Mutex
	listener net.Listener
	stopped  bool
	ready    chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New creates a TCP server that uses the provided Hub.
func New(address string, hub *chat.Hub, maxFrameSize int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		address:      address,
		maxFrameSize: maxFrameSize,
		logger:       logger,
		hub:          hub,
		ready:        make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start listens on the configured address and accepts connections until Stop
// is called.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start TCP server: %w", err)
	}
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		listener.Close()
		close(s.ready)
		return nil
	}
	s.listener = listener
	s.mu.Unlock()
	close(s.ready)

	s.logger.Info("TCP server started", "addr", listener.Addr().String())

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return nil
			default:
				s.logger.Error("failed to accept TCP connection", "error", err)
				continue
			}
		}

		if !s.track() {
			conn.Close()
			continue
		}
		go s.handleConn(conn)
	}
}

// Ready is closed once the listener is bound, or once Start gives up because
// Stop came first.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Stop closes the listener, disconnects every client and waits for their
// goroutines to finish.
func (s *Server) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	s.logger.Info("TCP server stopped")
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// track registers an accepted connection with the wait group unless Stop has
// already been called.
func (s *Server) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	s.hub.Serve(s.ctx, NewConn(conn, s.maxFrameSize))
}
