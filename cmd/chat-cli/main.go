package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fakeso-chat/internal/chatclient"
	"fakeso-chat/internal/observability"

	"github.com/gookit/color"
)

func main() {
	server := flag.String("server", envOr("CHAT_SERVER_URL", "http://localhost:8080"), "chat server base URL")
	user := flag.String("user", os.Getenv("CHAT_USER"), "username to chat as")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	observability.InitLogger(*logLevel, "text")

	if *user == "" {
		color.Red.Println("a username is required: chat-cli -user alice")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := chatclient.New(*server)

	var rooms chatclient.Rooms
	sub, err := chatclient.Dial(ctx, *server, nil)
	if err != nil {
		color.Yellow.Printf("realtime updates unavailable: %v\n", err)
	} else {
		defer sub.Close()
		rooms = sub
	}

	view := chatclient.NewDirectMessageView(client, rooms, *user)
	sh := newShell(view, client, os.Stdout)

	if err := view.Load(ctx); err != nil {
		sh.errorf("could not load chats: %v", err)
	}

	if sub != nil {
		go func() {
			for update := range sub.Updates() {
				sh.notify(update)
			}
		}()
	}

	sh.banner()
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case line, ok := <-lines:
			if !ok || !sh.handle(ctx, line) {
				return
			}
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
