package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/omochice/tcp-chat/pkg/protocol"
)

// DefaultQueueSize is the outbound queue length used when none is configured.
const DefaultQueueSize = 256

// Hub manages all connected clients, enforces nickname uniqueness and routes
// messages between them. Both TCP and WebSocket servers share a single Hub.
type Hub struct {
	logger    *slog.Logger
	queueSize int

	mu      sync.Mutex
	clients map[*Client]struct{}
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger, queueSize int) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:    logger,
		queueSize: queueSize,
		clients:   make(map[*Client]struct{}),
	}
}

// Serve runs one connection until the peer goes away, a read or write fails,
// or ctx is cancelled. The connection is closed when Serve returns. The
// returned error is nil for an ordinary disconnect.
func (h *Hub) Serve(ctx context.Context, conn Conn) error {
	client := NewClient(conn, h.queueSize)
	log := h.logger.With("client", client.ID(), "addr", conn.RemoteAddr())

	h.register(client)
	log.Info("client connected")

	ctx, cancel := context.WithCancel(ctx)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		client.writeLoop(ctx)
	}()
	go func() {
		select {
		case <-ctx.Done():
			client.Close()
		case <-client.Done():
		}
	}()

	client.closeWithError(h.readLoop(ctx, client, log))
	cancel()
	<-writerDone

	h.unregister(client)

	err := client.Err()
	if err != nil {
		log.Warn("client errored", "nickname", client.Nickname(), "error", err)
	} else {
		log.Info("client disconnected", "nickname", client.Nickname())
	}

	if nickname := client.Nickname(); nickname != "" {
		log.Info("user left", "nickname", nickname)
		h.broadcast(protocol.UserLeft(nickname), nil)
	}
	return err
}

// readLoop dispatches inbound messages until the connection fails. It returns
// nil when the peer disconnected or the client was closed locally.
func (h *Hub) readLoop(ctx context.Context, client *Client, log *slog.Logger) error {
	for {
		data, err := client.conn.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || client.closed() || ctx.Err() != nil {
				return nil
			}
			return err
		}

		log.Debug("received payload", "payload", string(data))

		var msg protocol.Message
		if err := msg.DecodeFromClient(data); err != nil {
			log.Debug("dropping unparseable message", "error", err)
			continue
		}
		h.dispatch(client, msg, log)
	}
}

func (h *Hub) dispatch(client *Client, msg protocol.Message, log *slog.Logger) {
	if client.Nickname() == "" {
		if msg.Type == protocol.MessageTypeLogin {
			h.handleLogin(client, msg.Nickname, log)
		}
		return
	}
	if msg.Type == protocol.MessageTypeChat {
		h.handleChat(client, msg.Text)
	}
}

func (h *Hub) handleLogin(client *Client, requested string, log *slog.Logger) {
	nickname := NormalizeNickname(requested)
	if nickname == "" {
		return
	}

	h.mu.Lock()
	taken := false
	for other := range h.clients {
		if other != client && strings.EqualFold(other.Nickname(), nickname) {
			taken = true
			break
		}
	}
	if !taken {
		client.SetNickname(nickname)
	}
	h.mu.Unlock()

	if taken {
		log.Info("login rejected", "nickname", nickname, "reason", protocol.ReasonDuplicateNickname)
		h.send(client, protocol.LoginRejected(protocol.ReasonDuplicateNickname))
		return
	}

	log.Info("user logged in", "nickname", nickname)
	h.send(client, protocol.LoginAccepted())
	h.broadcast(protocol.UserJoined(nickname), client)
}

func (h *Hub) handleChat(client *Client, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	h.broadcast(protocol.ChatFrom(client.Nickname(), text), client)
}

// broadcast sends msg to every registered client except exclude. The
// recipient set is snapshotted under the lock and sent to after releasing it.
func (h *Hub) broadcast(msg protocol.Message, exclude *Client) {
	data, err := msg.Encode()
	if err != nil {
		h.logger.Error("failed to encode broadcast", "type", msg.Type, "error", err)
		return
	}

	h.mu.Lock()
	targets := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		if client != exclude {
			targets = append(targets, client)
		}
	}
	h.mu.Unlock()

	for _, client := range targets {
		h.enqueue(client, data)
	}
}

func (h *Hub) send(client *Client, msg protocol.Message) {
	data, err := msg.Encode()
	if err != nil {
		h.logger.Error("failed to encode message", "type", msg.Type, "error", err)
		return
	}
	h.enqueue(client, data)
}

func (h *Hub) enqueue(client *Client, data []byte) {
	h.logger.Debug("sending payload", "client", client.ID(), "payload", string(data))
	switch err := client.enqueue(data); {
	case errors.Is(err, ErrQueueFull):
		h.logger.Warn("dropping slow client", "client", client.ID(), "addr", client.RemoteAddr())
	case err != nil:
		h.logger.Debug("skipping closed client", "client", client.ID())
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client)
}

// ClientCount returns number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Nicknames returns the sorted nicknames of all logged in clients.
func (h *Hub) Nicknames() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.clients))
	for client := range h.clients {
		if nickname := client.Nickname(); nickname != "" {
			names = append(names, nickname)
		}
	}
	slices.Sort(names)
	return names
}

// NormalizeNickname trims a requested nickname and collapses internal runs of
// whitespace to a single space.
func NormalizeNickname(nickname string) string {
	return strings.Join(strings.Fields(nickname), " ")
}
