// Package client implements the client side of a chat session: it sends
// login and chat requests and turns server traffic into Events.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/omochice/tcp-chat/pkg/protocol"
)

var (
	// ErrNotConnected is returned by requests made without a connection.
	ErrNotConnected = errors.New("not connected to server")

	// ErrAlreadyConnected is returned by Connect on a connected session.
	ErrAlreadyConnected = errors.New("already connected to server")
)

const eventBufferSize = 64

// Session is one user's connection to the chat server. It may be connected,
// disconnected and connected again; the logged in state belongs to a single
// connection.
type Session struct {
	address string
	dial    DialFunc
	logger  *slog.Logger
	events  chan Event

	mu       sync.Mutex
	conn     Conn
	done     chan struct{}
	loggedIn bool
	wg       sync.WaitGroup
}

// New creates a Session that reaches address over transport ("tcp" or "ws").
func New(address, transport string, logger *slog.Logger) (*Session, error) {
	dial, err := Dialer(transport)
	if err != nil {
		return nil, err
	}
	return NewWithDialer(address, dial, logger), nil
}

// NewWithDialer creates a Session that opens connections with dial.
func NewWithDialer(address string, dial DialFunc, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		address: address,
		dial:    dial,
		logger:  logger,
		events:  make(chan Event, eventBufferSize),
	}
}

// Events returns the channel Session events are delivered on. It is never
// closed.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Connect opens a connection to the server and emits EventConnected.
func (s *Session) Connect(ctx context.Context) error {
	if s.IsConnected() {
		return ErrAlreadyConnected
	}

	conn, err := s.dial(ctx, s.address)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.conn != nil {
		s.mu.Unlock()
		conn.Close()
		return ErrAlreadyConnected
	}
	done := make(chan struct{})
	s.conn = conn
	s.done = done
	s.loggedIn = false
	s.mu.Unlock()

	s.logger.Info("connected to server", "addr", s.address)
	s.emit(Event{Type: EventConnected}, done)

	s.wg.Add(1)
	go s.receiveMessages(conn, done)
	return nil
}

// Disconnect closes the connection and waits for the receiver to finish.
// EventDisconnected is emitted if there is room for it.
func (s *Session) Disconnect() {
	s.mu.Lock()
	conn, done := s.conn, s.done
	s.conn = nil
	s.done = nil
	s.loggedIn = false
	s.mu.Unlock()

	if conn == nil {
		return
	}
	close(done)
	conn.Close()
	s.wg.Wait()
}

// IsConnected returns whether the session has a connection.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// LoggedIn returns whether the server accepted a nickname on the current
// connection.
func (s *Session) LoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loggedIn
}

// Login asks the server for nickname. The answer arrives as EventLoggedIn or
// EventLoginFailed.
func (s *Session) Login(nickname string) error {
	return s.send(protocol.Login(nickname))
}

// SendMessage sends a chat line. Text that is empty after trimming is not
// sent.
func (s *Session) SendMessage(text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.send(protocol.Chat(text))
}

// send sends a message to the server
func (s *Session) send(msg protocol.Message) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	data, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	s.logger.Debug("sending payload", "payload", string(data))
	if err := conn.Write(context.Background(), data); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// receiveMessages reads from conn until it fails or is closed.
func (s *Session) receiveMessages(conn Conn, done chan struct{}) {
	defer s.wg.Done()

	for {
		data, err := conn.Read(context.Background())
		if err != nil {
			s.mu.Lock()
			local := s.done != done
			if !local {
				s.conn = nil
				s.done = nil
				s.loggedIn = false
			}
			s.mu.Unlock()
			conn.Close()

			if !local && !errors.Is(err, io.EOF) {
				s.logger.Error("connection error", "error", err)
				s.emit(Event{Type: EventSocketError, Err: err}, done)
			}
			s.logger.Info("disconnected from server", "addr", s.address)
			s.emit(Event{Type: EventDisconnected}, done)
			return
		}

		s.logger.Debug("received payload", "payload", string(data))
		s.handle(data, done)
	}
}

func (s *Session) handle(data []byte, done chan struct{}) {
	var msg protocol.Message
	if err := msg.DecodeFromServer(data); err != nil {
		s.logger.Debug("dropping unparseable message", "error", err)
		return
	}

	switch msg.Type {
	case protocol.MessageTypeLoginResult:
		s.mu.Lock()
		if s.done != done || s.loggedIn {
			s.mu.Unlock()
			return
		}
		if msg.Success {
			s.loggedIn = true
		}
		s.mu.Unlock()

		if msg.Success {
			s.emit(Event{Type: EventLoggedIn}, done)
		} else {
			s.emit(Event{Type: EventLoginFailed, Reason: msg.Reason}, done)
		}
	case protocol.MessageTypeChat:
		s.emit(Event{Type: EventMessageReceived, Sender: msg.Sender, Text: msg.Text}, done)
	case protocol.MessageTypeUserJoined:
		s.emit(Event{Type: EventUserJoined, Nickname: msg.Nickname}, done)
	case protocol.MessageTypeUserLeft:
		s.emit(Event{Type: EventUserLeft, Nickname: msg.Nickname}, done)
	}
}

// emit delivers ev, blocking while the presentation layer catches up. Once
// the connection is closed locally it only delivers if there is room.
func (s *Session) emit(ev Event, done chan struct{}) {
	select {
	case s.events <- ev:
	case <-done:
		select {
		case s.events <- ev:
		default:
		}
	}
}
