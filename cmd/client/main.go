package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/omochice/tcp-chat/internal/client"
	"github.com/omochice/tcp-chat/internal/config"
)

func main() {
	cfg, err := config.ParseClient(filepath.Base(os.Args[0]), os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	session, err := client.New(cfg.Server, cfg.Transport, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := session.Connect(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to %s: %v\n", cfg.Server, err)
		os.Exit(1)
	}
	defer session.Disconnect()

	if cfg.Nickname != "" {
		if err := session.Login(cfg.Nickname); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to log in: %v\n", err)
		}
	}

	// Start goroutine to display events
	disconnected := make(chan struct{})
	go func() {
		for ev := range session.Events() {
			if printEvent(ev, cfg.Server) {
				close(disconnected)
				return
			}
		}
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	fmt.Println("Log in with /nick <name>, then type your messages (or 'quit' to exit):")
	for {
		select {
		case <-disconnected:
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if !handleLine(session, strings.TrimSpace(line)) {
				return
			}
		}
	}
}

// handleLine acts on one line of input and reports whether to keep going.
func handleLine(session *client.Session, text string) bool {
	switch {
	case text == "":
		return true
	case text == "quit" || text == "exit":
		return false
	case strings.HasPrefix(text, "/nick"):
		nickname := strings.TrimSpace(strings.TrimPrefix(text, "/nick"))
		if nickname == "" {
			fmt.Println("usage: /nick <name>")
			return true
		}
		if session.LoggedIn() {
			fmt.Println("*** already logged in ***")
			return true
		}
		if err := session.Login(nickname); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to log in: %v\n", err)
		}
	case !session.LoggedIn():
		fmt.Println("*** log in first with /nick <name> ***")
	default:
		if err := session.SendMessage(text); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to send message: %v\n", err)
		}
	}
	return true
}

// printEvent renders ev and reports whether the session is gone.
func printEvent(ev client.Event, server string) bool {
	switch ev.Type {
	case client.EventConnected:
		fmt.Printf("*** connected to %s ***\n", server)
	case client.EventLoggedIn:
		fmt.Println("*** logged in ***")
	case client.EventLoginFailed:
		fmt.Printf("*** login failed: %s, try another /nick ***\n", ev.Reason)
	case client.EventMessageReceived:
		fmt.Printf("[%s]: %s\n", ev.Sender, ev.Text)
	case client.EventUserJoined:
		fmt.Printf("*** %s joined the chat ***\n", ev.Nickname)
	case client.EventUserLeft:
		fmt.Printf("*** %s left the chat ***\n", ev.Nickname)
	case client.EventSocketError:
		fmt.Printf("*** connection error: %v ***\n", ev.Err)
	case client.EventDisconnected:
		fmt.Println("*** disconnected from server ***")
		return true
	}
	return false
}
