// Command compound-browser is an interactive terminal client for the
// compound database. It fetches compound listings from the backend API
// and presents them as a filterable, paginated table with a per-compound
// detail view.
//
// Configuration comes from environment variables (a .env file is loaded
// when present):
//
//	API_BASE_URL  backend base URL (default http://localhost:5000/api)
//	REDIS_ADDR    optional Redis address enabling response caching
//	LOG_FILE      optional path for debug logs (stderr is the TUI)
package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mohrezaeib/cyto-compound-client/pkg/browser"
	"github.com/mohrezaeib/cyto-compound-client/pkg/client"
	"github.com/mohrezaeib/cyto-compound-client/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "compound-browser: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger, cleanup, err := setupLogging()
	if err != nil {
		return err
	}
	defer cleanup()

	baseURL := os.Getenv("API_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:5000/api"
	}

	cfg := client.DefaultConfig(baseURL)
	cfg.Timeout = 10 * time.Second

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis = redis.NewClient(&redis.Options{Addr: addr})
		logger.Info().Str("addr", addr).Msg("Response caching enabled")
	}

	apiClient, err := client.New(cfg)
	if err != nil {
		return fmt.Errorf("creating API client: %w", err)
	}

	b := browser.New(apiClient)
	program := tea.NewProgram(newModel(b), tea.WithAltScreen())

	logger.Info().Str("base_url", baseURL).Msg("Starting compound browser")
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running UI: %w", err)
	}
	return nil
}

// setupLogging writes logs to LOG_FILE when set. The terminal belongs to
// the TUI, so without a log file output is discarded entirely.
func setupLogging() (zerolog.Logger, func(), error) {
	if path := os.Getenv("LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("opening log file: %w", err)
		}
		logging.Setup(logging.Config{Level: logging.LevelDebug, Output: f})
		return logging.NewLogger("compound-browser"), func() { f.Close() }, nil
	}

	devNull, _ := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	logging.Setup(logging.Config{Level: logging.LevelInfo, Output: devNull})
	return logging.NewLogger("compound-browser"), func() {}, nil
}
