package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/omochice/tcp-chat/internal/chat"
	"github.com/omochice/tcp-chat/internal/config"
	"github.com/omochice/tcp-chat/internal/transport/tcp"
	"github.com/omochice/tcp-chat/internal/transport/ws"
)

func main() {
	cfg, err := config.ParseServer(filepath.Base(os.Args[0]), os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	// TCP and WebSocket clients share one hub and see each other.
	hub := chat.NewHub(logger, cfg.QueueSize)

	type server interface {
		Start() error
		Stop()
	}
	servers := []server{tcp.New(cfg.Addr, hub, cfg.MaxFrameSize, logger)}
	if cfg.WebSocketAddr != "" {
		servers = append(servers, ws.New(cfg.WebSocketAddr, hub, cfg.MaxFrameSize, logger))
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, len(servers))
	for _, srv := range servers {
		srv := srv
		go func() {
			errChan <- srv.Start()
		}()
	}

	// Wait for either error or shutdown signal
	exitCode := 0
	select {
	case err := <-errChan:
		if err != nil {
			logger.Error("server error", "error", err)
			exitCode = 1
		}
	case sig := <-sigChan:
		logger.Info("received signal, shutting down", "signal", sig.String())
	}

	for _, srv := range servers {
		srv.Stop()
	}
	logger.Info("server stopped")
	os.Exit(exitCode)
}
