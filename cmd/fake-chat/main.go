// Command fake-chat serves canned, word-by-word streamed replies on the chat
// service wire protocol for local development.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/comigor/lifeline/internal/config"
	"github.com/comigor/lifeline/internal/fakeservice"
	"github.com/comigor/lifeline/internal/logger"
)

func main() {
	delay := flag.Duration("delay", 80*time.Millisecond, "pause between streamed words")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.Log.Level)

	router := fakeservice.NewRouter(fakeservice.WithChunkDelay(*delay))

	// Start server
	serverAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.L.Info("starting fake chat service", "address", serverAddr)
	if err := http.ListenAndServe(serverAddr, router); err != nil {
		logger.L.Error("failed to start server", "error", err)
		os.Exit(1)
	}
}
