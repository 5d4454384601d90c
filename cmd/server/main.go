// Command server runs the Tobimarks bookmark API.
//
// Configuration comes from the environment, optionally seeded from a .env
// file in the working directory. See internal/config for every key.
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tobimarks/tobimarks-api/internal/config"
	"github.com/tobimarks/tobimarks-api/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	// config.Load reads .env (if present) and then the environment. Every
	// invalid key is reported at once, so a bad deploy fails with the full
	// list instead of one key per restart.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// Text output to stdout at LOG_LEVEL. Packages receive this logger
	// explicitly; SetDefault only covers code that logs before wiring.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Log.Level,
	}))
	slog.SetDefault(logger)

	// === 3. DATABASE DIRECTORY ===
	// SQLite creates the file but not its directory.
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", dbDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// === 4. BUILD THE SERVER ===
	// Opens the pool, runs migrations and wires every route.
	srv, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 5. SERVE ===
	// Start blocks until SIGINT or SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
