package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"

	"github.com/comigor/lifeline/internal/chat"
	"github.com/comigor/lifeline/internal/config"
	"github.com/comigor/lifeline/internal/history"
	"github.com/comigor/lifeline/internal/llm"
	"github.com/comigor/lifeline/internal/logger"
	"github.com/comigor/lifeline/internal/render"
	"github.com/comigor/lifeline/internal/storage"
)

// suggestions mirror the quick questions offered by the web client.
var suggestions = []string{
	"Please tell me a joke",
	"Tell me about privacy policy",
	"How do I fix API errors?",
	"What are your pricing plans?",
}

func main() {
	_ = godotenv.Load()

	// Logs go to stderr so they don't interleave with the conversation
	logger.SetOutput(os.Stderr)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.Log.Level)

	kv, err := openStorage(cfg.Storage)
	if err != nil {
		logger.L.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer kv.Close()

	client, err := llm.NewClient(cfg.ChatService)
	if err != nil {
		logger.L.Error("failed to create chat service client", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	term := render.NewTerminal(os.Stdout, false)
	controller := chat.New(history.NewStore(kv), client, chat.WithObserver(term.Observe))
	term.Observe(controller.View())

	if err := repl(ctx, os.Stdin, os.Stdout, controller); err != nil {
		logger.L.Error("input error", "error", err)
	}
}

func openStorage(cfg config.StorageConfig) (storage.KV, error) {
	if cfg.Driver == config.DriverMemory {
		logger.L.Warn("using in-memory storage; the conversation will not survive a restart")
		return storage.NewMemory(), nil
	}
	db, err := storage.OpenSQLite(cfg.Path)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func repl(ctx context.Context, in io.Reader, out io.Writer, c *chat.Controller) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch cmd, arg, _ := strings.Cut(line, " "); cmd {
		case "/quit", "/exit":
			return nil
		case "/reset":
			if err := c.Reset(); err != nil {
				logger.L.Warn("reset was not fully persisted", "error", err)
			}
		case "/suggest":
			for i, s := range suggestions {
				fmt.Fprintf(out, "  %d. %s\n", i+1, s)
			}
		case "/export":
			if err := export(strings.TrimSpace(arg), c.View().History); err != nil {
				fmt.Fprintln(out, "export failed:", err)
			}
		default:
			if n, ok := suggestionIndex(line); ok {
				line = suggestions[n]
			}
			c.Send(ctx, line)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// suggestionIndex accepts "#2" as a shortcut for the second suggestion.
func suggestionIndex(line string) (int, bool) {
	var n int
	if _, err := fmt.Sscanf(line, "#%d", &n); err != nil || n < 1 || n > len(suggestions) {
		return 0, false
	}
	return n - 1, true
}

func export(path string, msgs []history.Message) error {
	if path == "" {
		path = "transcript.html"
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render.WriteTranscript(f, msgs); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	logger.L.Info("transcript exported", "path", path, "messages", len(msgs))
	return nil
}
