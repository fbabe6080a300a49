// Package config parses and validates command line configuration for the
// chat server and client.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"

	"github.com/omochice/tcp-chat/internal/chat"
	"github.com/omochice/tcp-chat/internal/client"
	"github.com/omochice/tcp-chat/pkg/protocol"
)

type (
	// Server - chat server configuration
	Server struct {
		// Addr - TCP listen address
		Addr string
		// WebSocketAddr - WebSocket listen address, empty disables the listener
		WebSocketAddr string
		// QueueSize - outbound messages buffered per client before it is dropped
		QueueSize int
		// MaxFrameSize - largest accepted payload in bytes
		MaxFrameSize int
		// LogLevel - one of debug, info, warn, error
		LogLevel string
	}

	// Client - chat client configuration
	Client struct {
		// Server - server address, host:port
		Server string
		// Transport - tcp or ws
		Transport string
		// Nickname - nickname to log in with right after connecting
		Nickname string
		// LogLevel - one of debug, info, warn, error
		LogLevel string
	}
)

// DefaultServer returns the server configuration used when no flags are given.
func DefaultServer() Server {
	return Server{
		Addr:         ":45000",
		QueueSize:    chat.DefaultQueueSize,
		MaxFrameSize: protocol.DefaultMaxFrameSize,
		LogLevel:     "info",
	}
}

// DefaultClient returns the client configuration used when no flags are given.
func DefaultClient() Client {
	return Client{
		Server:    "localhost:45000",
		Transport: client.TransportTCP,
		LogLevel:  "warn",
	}
}

// ParseServer parses server flags from args. Usage and errors go to out.
func ParseServer(name string, args []string, out io.Writer) (Server, error) {
	cfg := DefaultServer()

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprintf(out, "Launch text chat server over TCP\n\n\t%s [options]\nOptions:\n\n", name)
		fs.PrintDefaults()
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "TCP listen address")
	fs.StringVar(&cfg.WebSocketAddr, "ws-addr", cfg.WebSocketAddr, "WebSocket listen address (empty disables WebSocket)")
	fs.IntVar(&cfg.QueueSize, "queue-size", cfg.QueueSize, "Outbound messages buffered per client before it is dropped")
	fs.IntVar(&cfg.MaxFrameSize, "max-frame-size", cfg.MaxFrameSize, "Largest accepted payload in bytes")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return Server{}, err
	}
	if fs.NArg() > 0 {
		return Server{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the server cannot run with.
func (c Server) Validate() error {
	var errs []error
	if err := validateAddr("addr", c.Addr); err != nil {
		errs = append(errs, err)
	}
	if c.WebSocketAddr != "" {
		if err := validateAddr("ws-addr", c.WebSocketAddr); err != nil {
			errs = append(errs, err)
		}
	}
	if c.QueueSize < 1 {
		errs = append(errs, errors.New("queue-size value should be greater or equal 1"))
	}
	if c.MaxFrameSize < 1 {
		errs = append(errs, errors.New("max-frame-size value should be greater or equal 1"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseClient parses client flags from args. Usage and errors go to out.
func ParseClient(name string, args []string, out io.Writer) (Client, error) {
	cfg := DefaultClient()

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprintf(out, "Text chat client\n\n\t%s [options]\nOptions:\n\n", name)
		fs.PrintDefaults()
	}
	fs.StringVar(&cfg.Server, "server", cfg.Server, "Server address (e.g., localhost:45000)")
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "Transport: tcp or ws")
	fs.StringVar(&cfg.Nickname, "nickname", cfg.Nickname, "Nickname to log in with (optional, see /nick)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return Client{}, err
	}
	if fs.NArg() > 0 {
		return Client{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if err := cfg.Validate(); err != nil {
		return Client{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the client cannot run with.
func (c Client) Validate() error {
	var errs []error
	if c.Server == "" {
		errs = append(errs, errors.New("server address is required"))
	}
	if _, err := client.Dialer(c.Transport); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseLevel converts a level name into a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", name)
	}
	return level, nil
}

func validateAddr(flagName, addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%s value %q is not host:port: %w", flagName, addr, err)
	}
	return nil
}
