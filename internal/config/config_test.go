package config_test

import (
	"errors"
	"flag"
	"io"
	"log/slog"
	"testing"

	"github.com/omochice/tcp-chat/internal/config"
)

func TestParseServer_Defaults(t *testing.T) {
	cfg, err := config.ParseServer("chat-server", nil, io.Discard)
	if err != nil {
		t.Fatalf("ParseServer() error = %v", err)
	}
	if cfg != config.DefaultServer() {
		t.Errorf("ParseServer() = %+v, want %+v", cfg, config.DefaultServer())
	}
	if cfg.Addr != ":45000" {
		t.Errorf("Addr = %q, want :45000", cfg.Addr)
	}
	if cfg.QueueSize != 256 {
		t.Errorf("QueueSize = %d, want 256", cfg.QueueSize)
	}
	if cfg.MaxFrameSize != 16<<20 {
		t.Errorf("MaxFrameSize = %d, want 16 MiB", cfg.MaxFrameSize)
	}
}

func TestParseServer_Flags(t *testing.T) {
	args := []string{
		"-addr", "127.0.0.1:5000",
		"-ws-addr", ":5001",
		"-queue-size", "8",
		"-max-frame-size", "1024",
		"-log-level", "debug",
	}
	cfg, err := config.ParseServer("chat-server", args, io.Discard)
	if err != nil {
		t.Fatalf("ParseServer() error = %v", err)
	}

	want := config.Server{
		Addr:          "127.0.0.1:5000",
		WebSocketAddr: ":5001",
		QueueSize:     8,
		MaxFrameSize:  1024,
		LogLevel:      "debug",
	}
	if cfg != want {
		t.Errorf("ParseServer() = %+v, want %+v", cfg, want)
	}
}

func TestParseServer_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"address without port", []string{"-addr", "localhost"}},
		{"bad websocket address", []string{"-ws-addr", "nope"}},
		{"zero queue", []string{"-queue-size", "0"}},
		{"negative frame size", []string{"-max-frame-size", "-1"}},
		{"unknown log level", []string{"-log-level", "loud"}},
		{"unknown flag", []string{"-port", "8080"}},
		{"positional argument", []string{"extra"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := config.ParseServer("chat-server", tt.args, io.Discard); err == nil {
				t.Errorf("ParseServer(%v) expected error", tt.args)
			}
		})
	}
}

func TestParseServer_Help(t *testing.T) {
	_, err := config.ParseServer("chat-server", []string{"-h"}, io.Discard)
	if !errors.Is(err, flag.ErrHelp) {
		t.Errorf("ParseServer(-h) error = %v, want flag.ErrHelp", err)
	}
}

func TestParseClient(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want config.Client
	}{
		{
			name: "defaults",
			args: nil,
			want: config.DefaultClient(),
		},
		{
			name: "websocket with nickname",
			args: []string{"-server", "chat.example:45001", "-transport", "ws", "-nickname", "alice"},
			want: config.Client{Server: "chat.example:45001", Transport: "ws", Nickname: "alice", LogLevel: "warn"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.ParseClient("chat-client", tt.args, io.Discard)
			if err != nil {
				t.Fatalf("ParseClient() error = %v", err)
			}
			if cfg != tt.want {
				t.Errorf("ParseClient() = %+v, want %+v", cfg, tt.want)
			}
		})
	}
}

func TestParseClient_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"empty server", []string{"-server", ""}},
		{"unknown transport", []string{"-transport", "udp"}},
		{"unknown log level", []string{"-log-level", "chatty"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := config.ParseClient("chat-client", tt.args, io.Discard); err == nil {
				t.Errorf("ParseClient(%v) expected error", tt.args)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		got, err := config.ParseLevel(tt.in)
		if err != nil {
			t.Errorf("ParseLevel(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
